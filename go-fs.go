package fatfs

import (
	"errors"
	"io"
	"io/fs"

	"github.com/go-bootfs/fatfs/checkpoint"
	"github.com/spf13/afero"
)

// GoDirEntry adapts an os.FileInfo to fs.DirEntry.
type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

// GoFile adapts a File to fs.File and fs.ReadDirFile.
type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) Read(p []byte) (int, error) {
	return g.File.Read(p)
}

func (g GoFile) Close() error {
	return g.File.Close()
}

// ReadDir lists the directory. Readdir already returns the entries sorted by
// name, as the io/fs contract demands.
func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	entries, err := g.File.Readdir(n)

	goEntries := make([]fs.DirEntry, len(entries))
	for i, e := range entries {
		goEntries[i] = GoDirEntry{e}
	}

	return goEntries, err
}

// GoFS wraps the afero FAT implementation to be compatible with fs.FS.
type GoFS struct {
	*Fs
}

// NewGoFS opens a FAT filesystem from the given reader as fs.FS compatible
// filesystem.
func NewGoFS(reader io.ReadSeeker) (*GoFS, error) {
	fatFs, err := New(reader)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	return &GoFS{fatFs}, nil
}

// NewGoFSSkipChecks opens a FAT filesystem from the given reader as fs.FS
// compatible filesystem just like NewGoFS but it skips some filesystem
// validations. Use with caution!
func NewGoFSSkipChecks(reader io.ReadSeeker) (*GoFS, error) {
	fatFs, err := NewSkipChecks(reader)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	return &GoFS{fatFs}, nil
}

// NewIOFS opens a FAT filesystem as fs.FS using the afero compatibility
// layer.
func NewIOFS(reader io.ReadSeeker) (afero.IOFS, error) {
	fatFs, err := New(reader)
	if err != nil {
		return afero.IOFS{}, checkpoint.From(err)
	}

	return afero.NewIOFS(fatFs), nil
}

// NewIOFSSkipChecks is NewIOFS on top of NewSkipChecks.
func NewIOFSSkipChecks(reader io.ReadSeeker) (afero.IOFS, error) {
	fatFs, err := NewSkipChecks(reader)
	if err != nil {
		return afero.IOFS{}, checkpoint.From(err)
	}

	return afero.NewIOFS(fatFs), nil
}

func (g GoFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}

	file, err := g.Fs.open(name)
	if err != nil {
		if errors.Is(err, ErrFileNotFound) {
			err = fs.ErrNotExist
		}
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}

	return GoFile{file}, nil
}
