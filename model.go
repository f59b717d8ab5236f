// Model contains the structs which match the on-disk structures of the FAT
// filesystem. All of them are little-endian and packed.

package fatfs

// BPB is the BIOS Parameter Block at the start of the first sector. The
// first 36 bytes are shared by all FAT variants; the variant specific part
// follows in FATSpecificData.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	FATSpecificData     [54]byte
}

// FAT16SpecificData is the tail of the BPB on FAT12 and FAT16 volumes.
type FAT16SpecificData struct {
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// FAT32SpecificData is the tail of the BPB on FAT32 volumes.
type FAT32SpecificData struct {
	FATSize          uint32
	ExtFlags         uint16
	FSVersion        uint16
	RootCluster      uint32
	FSInfo           uint16
	BkBootSector     uint16
	Reserved         [12]byte
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSignature  byte
	BSVolumeID       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// EntryHeader is one 32 byte directory entry.
//
// Name[0] == 0x00 marks the end of the directory, 0xE5 a deleted entry and
// 0x05 an escaped 0xE5 as legitimate first byte.
type EntryHeader struct {
	Name            [11]byte
	Attribute       byte
	NTReserved      byte
	CreateTimeTenth byte
	CreateTime      uint16
	CreateDate      uint16
	LastAccessDate  uint16
	FirstClusterHI  uint16
	WriteTime       uint16
	WriteDate       uint16
	FirstClusterLO  uint16
	FileSize        uint32
}

// LongFilenameEntry overlays the same 32 bytes when Attribute equals
// attrLongName. The three fragments carry 5+6+2 UTF-16LE code units of the
// long name.
type LongFilenameEntry struct {
	Sequence     byte
	First        [5]uint16
	Attribute    byte
	EntryType    byte
	Checksum     byte
	Second       [6]uint16
	FirstCluster uint16
	Third        [2]uint16
}

// ExtendedEntryHeader is a directory entry together with its display name:
// the decoded long name if a valid long-name run preceded it, the lowercased
// 8.3 form otherwise.
type ExtendedEntryHeader struct {
	EntryHeader
	ExtendedName string
}
