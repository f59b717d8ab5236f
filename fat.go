package fatfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/go-bootfs/fatfs/checkpoint"
)

// FATType is the FAT variant of a mounted volume.
type FATType uint8

const (
	FAT12 FATType = iota
	FAT16
	FAT32
)

func (t FATType) String() string {
	switch t {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	}
	return "unknown"
}

// Directory entry attribute bits.
const (
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeID  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20

	// attrLongName marks a long-name entry. The combination is impossible
	// for a real file, which is how the overlay is detected.
	attrLongName = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeID

	// attrValid is the set of attribute bits a real directory entry may
	// carry. Entries with any other bit set are skipped.
	attrValid = AttrReadOnly | AttrHidden | AttrSystem | AttrDirectory | AttrArchive
)

const (
	// sectorBits is the size of the addressing unit used against the
	// underlying device: all sector numbers in Info are in 512 byte units,
	// independent of the logical sector size declared by the BPB.
	sectorBits = 9

	dirEntrySize = 32
)

// Info describes the geometry of a mounted volume. It is filled once during
// mount and never modified afterwards, so mounting the same image twice
// yields identical descriptors.
type Info struct {
	FSType         FATType
	FATBits        int
	SectorSize     uint16
	NumFATs        uint8
	NumSectors     uint32
	FATSector      uint32
	SectorsPerFAT  uint32
	RootSector     uint32
	NumRootSectors uint32
	ClusterSector  uint32
	NumClusters    uint32
	ClusterEOFMark uint32
	VolumeID       uint32
	OEMName        string

	logicalSectorBits uint32
	clusterBits       uint32
	rootStart         chainStart
}

// ClusterBytes returns the size of one cluster in bytes.
func (i *Info) ClusterBytes() uint32 {
	return 1 << (i.clusterBits + i.logicalSectorBits + sectorBits)
}

// Fs is a read-only FAT12, FAT16 or FAT32 filesystem on top of an
// io.ReadSeeker, usually an image file or a partition of a block device.
// It implements afero.Fs.
type Fs struct {
	lock   sync.Mutex
	reader io.ReadSeeker
	info   Info
}

// New opens the FAT filesystem from the given reader.
func New(reader io.ReadSeeker) (*Fs, error) {
	fs := &Fs{reader: reader}
	if err := fs.initialize(false); err != nil {
		return nil, checkpoint.From(err)
	}
	return fs, nil
}

// NewSkipChecks opens a FAT filesystem just like New but skips the boot jump
// instruction and the first-FAT-entry sentinel checks, which may allow you to
// open not perfectly standard FAT filesystems. Use with caution!
func NewSkipChecks(reader io.ReadSeeker) (*Fs, error) {
	fs := &Fs{reader: reader}
	if err := fs.initialize(true); err != nil {
		return nil, checkpoint.From(err)
	}
	return fs, nil
}

// fatLog2 returns the base-2 logarithm of x, or -1 if x is zero or not a
// power of two.
func fatLog2(x uint32) int {
	if x == 0 {
		return -1
	}
	i := 0
	for x&1 == 0 {
		x >>= 1
		i++
	}
	if x != 1 {
		return -1
	}
	return i
}

func badFilesystem(format string, a ...interface{}) error {
	return checkpoint.Wrap(fmt.Errorf(format, a...), ErrBadFilesystem)
}

// initialize reads and validates the BPB and derives the volume geometry.
func (fs *Fs) initialize(skipChecks bool) error {
	// The BPB needs only the first 90 bytes, but the boot sector is never
	// smaller than one physical sector.
	sector0 := make([]byte, 1<<sectorBits)
	if err := fs.readRange(0, 0, sector0, nil); err != nil {
		return checkpoint.Wrap(err, ErrBadFilesystem)
	}

	var bpb BPB
	if err := binary.Read(bytes.NewReader(sector0), binary.LittleEndian, &bpb); err != nil {
		return checkpoint.Wrap(err, ErrBadFilesystem)
	}

	// Check for valid jump instructions.
	if !skipChecks &&
		!(bpb.BSJumpBoot[0] == 0xEB && bpb.BSJumpBoot[2] == 0x90) &&
		bpb.BSJumpBoot[0] != 0xE9 {
		return badFilesystem("no valid jump instruction at the beginning")
	}

	info := &fs.info
	info.SectorSize = bpb.BytesPerSector
	info.OEMName = string(bytes.TrimRight(bpb.BSOEMName[:], " "))

	// Get the sizes of logical sectors and clusters. Both have to be powers
	// of two, and a logical sector cannot be smaller than the 512 byte
	// addressing unit.
	lsb := fatLog2(uint32(bpb.BytesPerSector))
	if lsb < sectorBits {
		return badFilesystem("invalid bytes per sector %d", bpb.BytesPerSector)
	}
	info.logicalSectorBits = uint32(lsb - sectorBits)

	cb := fatLog2(uint32(bpb.SectorsPerCluster))
	if cb < 0 {
		return badFilesystem("invalid sectors per cluster %d", bpb.SectorsPerCluster)
	}
	info.clusterBits = uint32(cb) + info.logicalSectorBits

	// Get information about the FATs.
	info.FATSector = uint32(bpb.ReservedSectorCount) << info.logicalSectorBits
	if info.FATSector == 0 {
		return badFilesystem("invalid reserved sector count")
	}

	var fat32 FAT32SpecificData
	if err := binary.Read(bytes.NewReader(bpb.FATSpecificData[:]), binary.LittleEndian, &fat32); err != nil {
		return checkpoint.Wrap(err, ErrBadFilesystem)
	}

	if bpb.FATSize16 != 0 {
		info.SectorsPerFAT = uint32(bpb.FATSize16) << info.logicalSectorBits
	} else {
		info.SectorsPerFAT = fat32.FATSize << info.logicalSectorBits
	}
	if info.SectorsPerFAT == 0 {
		return badFilesystem("invalid FAT size")
	}

	// Get the number of sectors in this volume.
	if bpb.TotalSectors16 != 0 {
		info.NumSectors = uint32(bpb.TotalSectors16) << info.logicalSectorBits
	} else {
		info.NumSectors = bpb.TotalSectors32 << info.logicalSectorBits
	}
	if info.NumSectors == 0 {
		return badFilesystem("invalid total sector count")
	}

	if bpb.NumFATs == 0 {
		return badFilesystem("invalid number of FATs")
	}
	info.NumFATs = bpb.NumFATs

	// Locate the root directory and the cluster region behind it. On FAT32
	// NumRootSectors is zero and the root directory is an ordinary cluster
	// chain.
	info.RootSector = info.FATSector + uint32(bpb.NumFATs)*info.SectorsPerFAT
	info.NumRootSectors = ((uint32(bpb.RootEntryCount)*dirEntrySize +
		uint32(bpb.BytesPerSector) - 1) >>
		(info.logicalSectorBits + sectorBits)) <<
		info.logicalSectorBits

	info.ClusterSector = info.RootSector + info.NumRootSectors
	info.NumClusters = ((info.NumSectors - info.ClusterSector) >>
		(info.clusterBits + info.logicalSectorBits)) + 2

	if info.NumClusters <= 2 {
		return badFilesystem("not enough clusters")
	}

	if bpb.FATSize16 == 0 {
		// FAT32.
		info.FSType = FAT32
		info.FATBits = 32
		info.ClusterEOFMark = 0x0ffffff8
		info.VolumeID = fat32.BSVolumeID
		info.rootStart = chainStart{cluster: fat32.RootCluster}

		if fat32.ExtFlags&0x80 != 0 {
			// FAT mirroring is disabled, use the active FAT.
			activeFAT := uint32(fat32.ExtFlags & 0xF)
			if activeFAT > uint32(bpb.NumFATs) {
				return badFilesystem("invalid active FAT %d", activeFAT)
			}
			info.FATSector += activeFAT * info.SectorsPerFAT
		}

		if bpb.RootEntryCount != 0 || fat32.FSVersion != 0 {
			return badFilesystem("invalid FAT32 BPB")
		}
	} else {
		// FAT12 or FAT16. The root directory is the fixed region before the
		// clusters.
		info.rootStart = chainStart{fixedRoot: true}

		var fat16 FAT16SpecificData
		if err := binary.Read(bytes.NewReader(bpb.FATSpecificData[:]), binary.LittleEndian, &fat16); err != nil {
			return checkpoint.Wrap(err, ErrBadFilesystem)
		}
		info.VolumeID = fat16.BSVolumeID

		if info.NumClusters <= 4085+2 {
			info.FSType = FAT12
			info.FATBits = 12
			info.ClusterEOFMark = 0x0ff8
		} else {
			info.FSType = FAT16
			info.FATBits = 16
			info.ClusterEOFMark = 0xfff8
		}
	}

	// More sanity checks.
	if info.NumSectors <= info.FATSector {
		return badFilesystem("volume smaller than its FAT region")
	}

	if !skipChecks {
		// The first FAT entry repeats the media byte below an all-ones mask.
		var raw [4]byte
		if err := fs.readRange(info.FATSector, 0, raw[:], nil); err != nil {
			return checkpoint.Wrap(err, ErrBadFilesystem)
		}
		firstFAT := binary.LittleEndian.Uint32(raw[:])

		var magic uint32
		switch info.FATBits {
		case 32:
			firstFAT &= 0x0fffffff
			magic = 0x0fffff00
		case 16:
			firstFAT &= 0x0000ffff
			magic = 0xff00
		default:
			firstFAT &= 0x00000fff
			magic = 0x0f00
		}

		if firstFAT != magic|uint32(bpb.Media) {
			return badFilesystem("first FAT entry %#x does not match media byte %#x", firstFAT, bpb.Media)
		}
	}

	return nil
}

// rootCursor returns a cursor positioned at the root directory.
func (fs *Fs) rootCursor() cursor {
	return cursor{
		start:    fs.info.rootStart,
		attr:     AttrDirectory,
		curIndex: invalidClusterIndex,
	}
}

// Info returns the volume descriptor.
func (fs *Fs) Info() Info {
	return fs.info
}

// FSType returns the FAT variant of the volume.
func (fs *Fs) FSType() FATType {
	return fs.info.FSType
}

// Label returns the volume label stored in the root directory, or the empty
// string if there is none. The label is the raw 11 byte short name of the
// first entry whose attribute byte is exactly the volume-id bit; long-name
// assembly does not apply to it.
func (fs *Fs) Label() string {
	cur := fs.rootCursor()
	var raw [dirEntrySize]byte

	for offset := int64(0); ; offset += dirEntrySize {
		n, err := fs.readFileAt(&cur, offset, raw[:], nil)
		if err != nil || n != dirEntrySize || raw[0] == 0 {
			return ""
		}

		var entry EntryHeader
		if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &entry); err != nil {
			return ""
		}

		if entry.Attribute == AttrVolumeID {
			return string(entry.Name[:])
		}
	}
}
