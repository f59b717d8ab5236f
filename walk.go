package fatfs

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/go-bootfs/fatfs/checkpoint"
)

// invalidClusterIndex marks a cursor whose cached chain position is unknown.
// Any read compares the wanted logical cluster against it and rewinds, so no
// separate validity flag is needed.
const invalidClusterIndex = ^uint32(0)

// chainStart is the first cluster of a file, or the fixed root directory of
// a FAT12/16 volume, which lives outside the cluster region and has no
// chain at all.
type chainStart struct {
	fixedRoot bool
	cluster   uint32
}

// cursor tracks one open file or directory: the entry data needed to read it
// plus the resumption point inside its cluster chain. curIndex is the number
// of chain steps from start to curCluster, so sequential and forward reads
// skip re-walking the chain from the beginning.
type cursor struct {
	start      chainStart
	attr       byte
	curIndex   uint32
	curCluster uint32
}

// ReadHook observes the underlying device reads of a data read. It is called
// once per touched 512 byte sector with the position inside that sector.
type ReadHook func(sector uint32, offset uint32, length uint32)

// readRange reads len(p) bytes starting at the given sector and byte offset.
// The offset may exceed the sector size.
func (fs *Fs) readRange(sector uint32, offset uint32, p []byte, hook ReadHook) error {
	fs.lock.Lock()
	defer fs.lock.Unlock()

	pos := int64(sector)<<sectorBits + int64(offset)
	if _, err := fs.reader.Seek(pos, io.SeekStart); err != nil {
		return checkpoint.From(err)
	}
	if _, err := io.ReadFull(fs.reader, p); err != nil {
		return checkpoint.From(err)
	}

	if hook != nil {
		sec := sector + offset>>sectorBits
		off := offset & (1<<sectorBits - 1)
		remaining := uint32(len(p))
		for remaining > 0 {
			n := 1<<sectorBits - off
			if n > remaining {
				n = remaining
			}
			hook(sec, off, n)
			sec++
			off = 0
			remaining -= n
		}
	}

	return nil
}

// nextCluster reads the FAT entry of the given cluster. The result is masked
// to the entry width of the variant but not range checked.
func (fs *Fs) nextCluster(cluster uint32) (uint32, error) {
	var fatOffset uint32
	switch fs.info.FATBits {
	case 32:
		fatOffset = cluster << 2
	case 16:
		fatOffset = cluster << 1
	default:
		// FAT12 packs two entries into three bytes.
		fatOffset = cluster + cluster>>1
	}

	var raw [4]byte
	if err := fs.readRange(fs.info.FATSector, fatOffset, raw[:(fs.info.FATBits+7)>>3], nil); err != nil {
		return 0, checkpoint.From(err)
	}

	next := binary.LittleEndian.Uint32(raw[:])
	switch fs.info.FATBits {
	case 32:
		next &= 0x0fffffff
	case 16:
		next &= 0xffff
	case 12:
		if cluster&1 != 0 {
			next >>= 4
		}
		next &= 0x0fff
	}

	return next, nil
}

// readFileAt reads up to len(p) bytes at offset from the file referenced by
// cur, following its cluster chain. It returns the number of bytes read,
// which is short when the chain ends before len(p) bytes; that is not an
// error. A chain entry outside [2, NumClusters) is.
func (fs *Fs) readFileAt(cur *cursor, offset int64, p []byte, hook ReadHook) (int, error) {
	// FAT12 and FAT16 don't have the root directory in clusters.
	if cur.start.fixedRoot {
		size := int64(fs.info.NumRootSectors)<<sectorBits - offset
		if size <= 0 {
			return 0, nil
		}
		if size > int64(len(p)) {
			size = int64(len(p))
		}
		if err := fs.readRange(fs.info.RootSector, uint32(offset), p[:size], hook); err != nil {
			return 0, checkpoint.From(err)
		}
		return int(size), nil
	}

	logicalClusterBits := fs.info.clusterBits + fs.info.logicalSectorBits + sectorBits
	clusterBytes := uint32(1) << logicalClusterBits
	logicalCluster := uint32(offset >> logicalClusterBits)
	inOff := uint32(offset) & (clusterBytes - 1)

	// The sole rewind policy: any backward read restarts the walk at the
	// first cluster. This also covers a freshly invalidated cursor.
	if logicalCluster < cur.curIndex {
		cur.curIndex = 0
		cur.curCluster = cur.start.cluster
	}

	read := 0
	for read < len(p) {
		for logicalCluster > cur.curIndex {
			next, err := fs.nextCluster(cur.curCluster)
			if err != nil {
				return read, err
			}

			if next >= fs.info.ClusterEOFMark {
				return read, nil
			}
			if next < 2 || next >= fs.info.NumClusters {
				return read, checkpoint.Wrap(fmt.Errorf("invalid cluster %d", next), ErrBadFilesystem)
			}

			cur.curCluster = next
			cur.curIndex++
		}

		sector := fs.info.ClusterSector +
			(cur.curCluster-2)<<(fs.info.clusterBits+fs.info.logicalSectorBits)
		size := int(clusterBytes - inOff)
		if size > len(p)-read {
			size = len(p) - read
		}

		if err := fs.readRange(sector, inOff, p[read:read+size], hook); err != nil {
			return read, err
		}

		read += size
		logicalCluster++
		inOff = 0
	}

	return read, nil
}
