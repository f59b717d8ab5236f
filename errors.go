package fatfs

import "errors"

// Errors reported by the driver. Disk failures are wrapped, not replaced, so
// the underlying error stays reachable through errors.Is and errors.As.
var (
	// ErrBadFilesystem is returned when the volume cannot be interpreted as a
	// FAT filesystem: a BPB field fails validation, the first FAT entry does
	// not carry the media sentinel, or a cluster chain points outside the
	// cluster region.
	ErrBadFilesystem = errors.New("not a fat filesystem")

	// ErrBadFileType is returned when a path traverses a non-directory or a
	// directory is read as a file.
	ErrBadFileType = errors.New("bad file type")

	// ErrFileNotFound is returned when a directory scan reaches the
	// end-of-directory marker without matching the requested name.
	ErrFileNotFound = errors.New("file not found")

	// ErrReadOnly is returned by every mutating operation.
	ErrReadOnly = errors.New("filesystem is read-only")
)

// These errors may occur while processing a file.
var (
	ErrReadFile = errors.New("could not read file completely")
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
)
