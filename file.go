package fatfs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"syscall"

	"github.com/go-bootfs/fatfs/checkpoint"
	"github.com/spf13/afero"
)

// fatFileFs provides all methods needed from a fat filesystem for File.
// It mainly exists to be able to mock the Fs in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock.go -package fatfs
type fatFileFs interface {
	readFileAt(cur *cursor, offset int64, p []byte, hook ReadHook) (int, error)
	readDirEntries(cur *cursor) ([]ExtendedEntryHeader, error)
}

// File is an open file or directory on a FAT volume. The embedded cursor
// keeps the position inside the cluster chain, so sequential reads don't
// re-walk the chain from the start.
type File struct {
	fs   fatFileFs
	path string
	cur  cursor

	isDirectory bool
	isReadOnly  bool
	isHidden    bool
	isSystem    bool

	stat   os.FileInfo
	offset int64
	hook   ReadHook
}

// SetReadHook registers an observer for the device reads of all following
// Read and ReadAt calls. The hook is handed to the disk layer for the
// duration of each single read only.
func (f *File) SetReadHook(hook ReadHook) {
	f.hook = hook
}

func (f *File) Close() error {
	f.fs = nil
	f.path = ""
	f.cur = cursor{}
	f.isDirectory = false
	f.isReadOnly = false
	f.isHidden = false
	f.isSystem = false
	f.stat = nil
	f.offset = 0
	f.hook = nil

	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	if p == nil {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.Wrap(errors.New("not a file"), ErrBadFileType)
	}

	// Reading a file if the size has been already reached, makes no sense.
	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}

	size := int64(len(p))
	if rest := f.stat.Size() - f.offset; size > rest {
		size = rest
	}

	n, err = f.fs.readFileAt(&f.cur, f.offset, p[:size], f.hook)
	f.offset += int64(n)

	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}

	return n, nil
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if p == nil {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.Wrap(errors.New("not a file"), ErrBadFileType)
	}

	// Reading over the end makes no sense.
	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	size := int64(len(p))
	if rest := f.stat.Size() - off; size > rest {
		size = rest
	}

	n, err = f.fs.readFileAt(&f.cur, off, p[:size], f.hook)
	if err != nil {
		return n, checkpoint.Wrap(err, ErrReadFile)
	}

	// io.ReaderAt demands an error whenever fewer than len(p) bytes come
	// back.
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Seek jumps to a specific offset in the file. This affects all Read
// operations except ReadAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, checkpoint.From(ErrReadOnly)
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, checkpoint.From(ErrReadOnly)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return 0, checkpoint.From(ErrReadOnly)
}

func (f *File) Truncate(size int64) error {
	return checkpoint.From(ErrReadOnly)
}

func (f *File) Sync() error {
	return nil
}

func (f *File) Name() string {
	return f.stat.Name()
}

// Readdir reads the contents of the directory and returns a FileInfo per
// entry, using the long name where a valid one exists.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	content, err := f.fs.readDirEntries(&f.cur)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	// A stable order keeps paginated calls consistent with one big call.
	sort.Slice(content, func(i, j int) bool {
		return entryHeaderFileInfo{content[i]}.Name() < entryHeaderFileInfo{content[j]}.Name()
	})

	end := len(content)

	if int64(len(content)) < f.offset+int64(count) {
		count = len(content) - int(f.offset)
		err = io.EOF
	}

	if count >= 0 {
		end = int(f.offset) + count
	}

	content = content[f.offset:end]

	if count > 0 {
		f.offset += int64(count)
	} else if count < 0 {
		f.offset = int64(end)
	}

	result := make([]os.FileInfo, len(content))
	for i := range content {
		result[i] = content[i].FileInfo()
	}

	return result, err
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil && err != io.EOF {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, err
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}
