package fatfs

import (
	"os"
	"strings"
	"time"

	"github.com/go-bootfs/fatfs/checkpoint"
	"github.com/spf13/afero"
)

// rootInfo is the synthesized FileInfo of the root directory, which has no
// directory entry of its own.
var rootInfo = entryHeaderFileInfo{
	entry: ExtendedEntryHeader{
		EntryHeader:  EntryHeader{Attribute: AttrDirectory},
		ExtendedName: ".",
	},
}

// open resolves path component by component, starting at the root.
func (fs *Fs) open(path string) (*File, error) {
	name := strings.Trim(path, "/")
	if name == "" || name == "." {
		return &File{
			fs:          fs,
			path:        "",
			cur:         fs.rootCursor(),
			isDirectory: true,
			stat:        rootInfo,
		}, nil
	}

	cur := fs.rootCursor()
	var entry ExtendedEntryHeader
	p := name
	for {
		rest, e, err := fs.findDir(&cur, p, nil)
		if err != nil {
			return nil, checkpoint.From(err)
		}
		entry = e
		if rest == "" {
			break
		}
		p = rest
	}

	return &File{
		fs:          fs,
		path:        name,
		cur:         cur,
		isDirectory: entry.Attribute&AttrDirectory != 0,
		isReadOnly:  entry.Attribute&AttrReadOnly != 0,
		isHidden:    entry.Attribute&AttrHidden != 0,
		isSystem:    entry.Attribute&AttrSystem != 0,
		stat:        entry.FileInfo(),
	}, nil
}

// Open opens the file or directory at path for reading.
func (fs *Fs) Open(path string) (afero.File, error) {
	return fs.open(path)
}

// OpenFile is like Open. Any flag requesting write access fails with
// ErrReadOnly.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, checkpoint.From(ErrReadOnly)
	}
	return fs.open(name)
}

// Stat returns the FileInfo of the file or directory at path.
func (fs *Fs) Stat(path string) (os.FileInfo, error) {
	f, err := fs.open(path)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	defer f.Close()
	return f.Stat()
}

func (fs *Fs) Name() string {
	return "fat"
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Remove(name string) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) RemoveAll(path string) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return checkpoint.From(ErrReadOnly)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return checkpoint.From(ErrReadOnly)
}
