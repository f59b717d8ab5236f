package fatfs

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"
)

// imageSpec describes the geometry of a synthesized test image. All test
// images use 512 byte sectors, so physical and logical sectors coincide.
type imageSpec struct {
	fsType            FATType
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	rootEntries       uint16
	sectorsPerFAT     uint32
	totalSectors      uint32
	media             byte
	extFlags          uint16
	rootCluster       uint32
}

func fat16Spec() imageSpec {
	// 4090 clusters of 4 sectors, safely above the FAT12 boundary.
	return imageSpec{
		fsType:            FAT16,
		sectorsPerCluster: 4,
		reservedSectors:   1,
		numFATs:           2,
		rootEntries:       512,
		sectorsPerFAT:     16,
		totalSectors:      16417,
		media:             0xF8,
	}
}

func fat12Spec() imageSpec {
	// 102 clusters of 2 sectors.
	return imageSpec{
		fsType:            FAT12,
		sectorsPerCluster: 2,
		reservedSectors:   1,
		numFATs:           2,
		rootEntries:       16,
		sectorsPerFAT:     1,
		totalSectors:      204,
		media:             0xF8,
	}
}

func fat32Spec() imageSpec {
	// 130 clusters of 1 sector, root directory at cluster 2.
	return imageSpec{
		fsType:            FAT32,
		sectorsPerCluster: 1,
		reservedSectors:   32,
		numFATs:           2,
		sectorsPerFAT:     16,
		totalSectors:      192,
		media:             0xF8,
		rootCluster:       2,
	}
}

// testImage is a FAT image assembled in memory.
type testImage struct {
	t    *testing.T
	spec imageSpec
	data []byte

	fatStart      uint32
	rootStart     uint32
	numRootSecs   uint32
	clusterStart  uint32
	clusterBytes  uint32
	dirFill       map[uint32]int
	rootFill      int
}

func (s imageSpec) eofValue() uint32 {
	switch s.fsType {
	case FAT12:
		return 0xFFF
	case FAT16:
		return 0xFFFF
	}
	return 0x0FFFFFFF
}

func buildImage(t *testing.T, spec imageSpec) *testImage {
	t.Helper()

	ti := &testImage{
		t:       t,
		spec:    spec,
		data:    make([]byte, int64(spec.totalSectors)<<sectorBits),
		dirFill: map[uint32]int{},
	}

	ti.fatStart = uint32(spec.reservedSectors)
	ti.rootStart = ti.fatStart + uint32(spec.numFATs)*spec.sectorsPerFAT
	ti.numRootSecs = (uint32(spec.rootEntries)*dirEntrySize + 511) >> sectorBits
	ti.clusterStart = ti.rootStart + ti.numRootSecs
	ti.clusterBytes = uint32(spec.sectorsPerCluster) << sectorBits

	bpb := BPB{
		BSJumpBoot:          [3]byte{0xEB, 0x3C, 0x90},
		BytesPerSector:      512,
		SectorsPerCluster:   spec.sectorsPerCluster,
		ReservedSectorCount: spec.reservedSectors,
		NumFATs:             spec.numFATs,
		RootEntryCount:      spec.rootEntries,
		Media:               spec.media,
	}
	copy(bpb.BSOEMName[:], "MSDOS5.0")

	if spec.fsType == FAT32 {
		bpb.TotalSectors32 = spec.totalSectors

		ext := FAT32SpecificData{
			FATSize:         spec.sectorsPerFAT,
			ExtFlags:        spec.extFlags,
			RootCluster:     spec.rootCluster,
			BSBootSignature: 0x29,
			BSVolumeID:      0x19880205,
		}
		copy(ext.BSVolumeLabel[:], "NO NAME    ")
		copy(ext.BSFileSystemType[:], "FAT32   ")

		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, ext); err != nil {
			t.Fatal(err)
		}
		copy(bpb.FATSpecificData[:], buf.Bytes())
	} else {
		bpb.FATSize16 = uint16(spec.sectorsPerFAT)
		if spec.totalSectors <= 0xFFFF {
			bpb.TotalSectors16 = uint16(spec.totalSectors)
		} else {
			bpb.TotalSectors32 = spec.totalSectors
		}

		ext := FAT16SpecificData{
			BSBootSignature: 0x29,
			BSVolumeID:      0x19880205,
		}
		copy(ext.BSVolumeLabel[:], "NO NAME    ")
		copy(ext.BSFileSystemType[:], "FAT16   ")

		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, ext); err != nil {
			t.Fatal(err)
		}
		copy(bpb.FATSpecificData[:], buf.Bytes())
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, bpb); err != nil {
		t.Fatal(err)
	}
	copy(ti.data, buf.Bytes())
	ti.data[510] = 0x55
	ti.data[511] = 0xAA

	// The first two FAT entries carry the media sentinel, in every copy.
	for c := 0; c < int(spec.numFATs); c++ {
		switch spec.fsType {
		case FAT12:
			ti.setFATEntry(c, 0, 0xF00|uint32(spec.media))
		case FAT16:
			ti.setFATEntry(c, 0, 0xFF00|uint32(spec.media))
		case FAT32:
			ti.setFATEntry(c, 0, 0x0FFFFF00|uint32(spec.media))
		}
		ti.setFATEntry(c, 1, spec.eofValue())
		if spec.fsType == FAT32 {
			ti.setFATEntry(c, spec.rootCluster, spec.eofValue())
		}
	}

	return ti
}

func (ti *testImage) fatOffset(fatCopy int) int64 {
	return int64(ti.fatStart+uint32(fatCopy)*ti.spec.sectorsPerFAT) << sectorBits
}

// setFATEntry writes one FAT entry in the given FAT copy, packed according
// to the entry width of the variant.
func (ti *testImage) setFATEntry(fatCopy int, idx, val uint32) {
	base := ti.fatOffset(fatCopy)
	switch ti.spec.fsType {
	case FAT32:
		binary.LittleEndian.PutUint32(ti.data[base+int64(idx)*4:], val&0x0FFFFFFF)
	case FAT16:
		binary.LittleEndian.PutUint16(ti.data[base+int64(idx)*2:], uint16(val))
	default:
		off := base + int64(idx) + int64(idx)/2
		if idx&1 == 0 {
			ti.data[off] = byte(val)
			ti.data[off+1] = ti.data[off+1]&0xF0 | byte(val>>8)&0x0F
		} else {
			ti.data[off] = ti.data[off]&0x0F | byte(val&0xF)<<4
			ti.data[off+1] = byte(val >> 4)
		}
	}
}

// setChain links the given clusters in FAT copy 0 and terminates the chain.
func (ti *testImage) setChain(clusters ...uint32) {
	for i, c := range clusters {
		next := ti.spec.eofValue()
		if i+1 < len(clusters) {
			next = clusters[i+1]
		}
		ti.setFATEntry(0, c, next)
	}
}

func (ti *testImage) clusterOffset(c uint32) int64 {
	return int64(ti.clusterStart+(c-2)*uint32(ti.spec.sectorsPerCluster)) << sectorBits
}

func (ti *testImage) writeCluster(c uint32, b []byte) {
	ti.t.Helper()
	if uint32(len(b)) > ti.clusterBytes {
		ti.t.Fatalf("cluster content too big: %d > %d", len(b), ti.clusterBytes)
	}
	copy(ti.data[ti.clusterOffset(c):], b)
}

// addRoot appends entries to the root directory.
func (ti *testImage) addRoot(entries ...[dirEntrySize]byte) {
	if ti.spec.fsType == FAT32 {
		ti.addDir(ti.spec.rootCluster, entries...)
		return
	}
	base := int64(ti.rootStart) << sectorBits
	for _, e := range entries {
		copy(ti.data[base+int64(ti.rootFill)*dirEntrySize:], e[:])
		ti.rootFill++
	}
}

// addDir appends entries to the directory stored in the given cluster. The
// caller has to terminate the cluster chain itself.
func (ti *testImage) addDir(cluster uint32, entries ...[dirEntrySize]byte) {
	base := ti.clusterOffset(cluster)
	for _, e := range entries {
		copy(ti.data[base+int64(ti.dirFill[cluster])*dirEntrySize:], e[:])
		ti.dirFill[cluster]++
	}
}

func (ti *testImage) reader() *bytes.Reader {
	return bytes.NewReader(ti.data)
}

// rawShortName pads a literal 8.3 name to its 11 byte on-disk form.
func rawShortName(name string) (out [11]byte) {
	for i := range out {
		out[i] = ' '
	}
	copy(out[:], name)
	return out
}

// entry83 builds a plain directory entry.
func entry83(name [11]byte, attr byte, cluster uint32, size uint32) [dirEntrySize]byte {
	var e [dirEntrySize]byte
	copy(e[:11], name[:])
	e[11] = attr
	binary.LittleEndian.PutUint16(e[20:], uint16(cluster>>16))
	binary.LittleEndian.PutUint16(e[26:], uint16(cluster))
	binary.LittleEndian.PutUint32(e[28:], size)
	return e
}

// lfnEntries builds the long-name run for the given name, highest ordinal
// first, checksummed against the short name it will precede.
func lfnEntries(long string, short [11]byte) [][dirEntrySize]byte {
	units := append(utf16.Encode([]rune(long)), 0)
	slots := (len(units) + 12) / 13

	padded := make([]uint16, slots*13)
	for i := range padded {
		padded[i] = 0xFFFF
	}
	copy(padded, units)

	sum := shortNameChecksum(short)

	var out [][dirEntrySize]byte
	for s := slots; s >= 1; s-- {
		var e [dirEntrySize]byte
		seq := byte(s)
		if s == slots {
			seq |= 0x40
		}
		e[0] = seq
		e[11] = attrLongName
		e[13] = sum

		frag := padded[(s-1)*13:]
		for i := 0; i < 5; i++ {
			binary.LittleEndian.PutUint16(e[1+2*i:], frag[i])
		}
		for i := 0; i < 6; i++ {
			binary.LittleEndian.PutUint16(e[14+2*i:], frag[5+i])
		}
		for i := 0; i < 2; i++ {
			binary.LittleEndian.PutUint16(e[28+2*i:], frag[11+i])
		}
		out = append(out, e)
	}
	return out
}

// fat16WithFiles is the shared fixture used by the facade tests: a FAT16
// volume with a label, two root files (one with a long name) and a
// subdirectory.
func fat16WithFiles(t *testing.T) *testImage {
	t.Helper()
	ti := buildImage(t, fat16Spec())

	ti.addRoot(entry83(rawShortName("TESTDATA"), AttrVolumeID, 0, 0))

	ti.addRoot(entry83(rawShortName("HELLO   TXT"), AttrArchive, 2, 2))
	ti.writeCluster(2, []byte("hi"))
	ti.setChain(2)

	short := rawShortName("A-LONG~1TXT")
	ti.addRoot(lfnEntries("a-long-filename.txt", short)...)
	content := []byte("long name contents\n")
	ti.addRoot(entry83(short, AttrArchive, 3, uint32(len(content))))
	ti.writeCluster(3, content)
	ti.setChain(3)

	ti.addRoot(entry83(rawShortName("DOCS"), AttrDirectory, 4, 0))
	ti.setChain(4)

	readme := []byte("# readme\n")
	ti.addDir(4, entry83(rawShortName("README  MD"), AttrArchive, 5, uint32(len(readme))))
	ti.writeCluster(5, readme)
	ti.setChain(5)

	return ti
}
