package fatfs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/go-bootfs/fatfs/checkpoint"
)

// maxLongNameSlots bounds the slot count of a long-name run: the ordinal
// field keeps only 6 bits for it, so a run declares at most 0x3f slots.
const maxLongNameSlots = 0x40

// ListHook receives one directory entry per call during a listing. Returning
// true stops the listing early.
type ListHook func(name string, isDir bool) bool

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

// shortNameChecksum is the rotate-right sum over the 11 short name bytes
// that links a long-name run to its short entry.
func shortNameChecksum(name [11]byte) byte {
	var sum byte
	for _, c := range name {
		sum = (sum>>1 | sum<<7) + c
	}
	return sum
}

// shortNameOf converts an 11 byte 8.3 name to its display form: the
// lowercased base, a dot and the lowercased extension. Both parts end at the
// first NUL or whitespace; without extension characters the dot is dropped.
func shortNameOf(name [11]byte) string {
	buf := make([]byte, 0, 12)
	for i := 0; i < 8 && name[i] != 0 && !isSpace(name[i]); i++ {
		buf = append(buf, lower(name[i]))
	}

	base := len(buf)
	buf = append(buf, '.')
	for i := 8; i < 11 && name[i] != 0 && !isSpace(name[i]); i++ {
		buf = append(buf, lower(name[i]))
	}
	if len(buf) == base+1 {
		buf = buf[:base]
	}

	return string(buf)
}

// utf16ToString decodes UTF-16LE code units into a string, stopping at the
// first NUL so the 0xFFFF padding of the last long-name slot never shows up.
func utf16ToString(units []uint16) string {
	for i, u := range units {
		if u == 0 {
			units = units[:i]
			break
		}
	}
	return string(utf16.Decode(units))
}

// scanDir iterates over the directory referenced by cur, assembling
// long-name runs and verifying their checksum linkage. emit is called once
// per valid entry: name is the decoded long name if the preceding run was
// valid, the 8.3 display form otherwise; alt carries the 8.3 form besides a
// long name, and is empty when name already is the 8.3 form. A true return
// stops the scan. Reaching the end-of-directory marker is not an error.
func (fs *Fs) scanDir(cur *cursor, emit func(name, alt string, entry *EntryHeader) bool) error {
	var (
		unibuf   [maxLongNameSlots * 13]uint16
		slot     int
		slots    int
		checksum = -1
		raw      [dirEntrySize]byte
	)

	for offset := int64(0); ; offset += dirEntrySize {
		n, err := fs.readFileAt(cur, offset, raw[:], nil)
		if err != nil {
			return checkpoint.Wrap(err, ErrReadDir)
		}
		if n != dirEntrySize || raw[0] == 0 {
			// End of the directory.
			return nil
		}

		var entry EntryHeader
		if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &entry); err != nil {
			return checkpoint.Wrap(err, ErrReadDir)
		}

		// Handle long name entries.
		if entry.Attribute == attrLongName {
			var long LongFilenameEntry
			if err := binary.Read(bytes.NewReader(raw[:]), binary.LittleEndian, &long); err != nil {
				return checkpoint.Wrap(err, ErrReadDir)
			}

			id := int(long.Sequence)
			if id&0x40 != 0 {
				id &= 0x3f
				slots, slot = id, id
				checksum = int(long.Checksum)
			}

			// Out of sequence or checksum changed mid-run: drop the run and
			// fall back to the 8.3 name of the following entry.
			if id != slot || slot == 0 || checksum != int(long.Checksum) {
				checksum = -1
				continue
			}

			slot--
			copy(unibuf[slot*13:], long.First[:])
			copy(unibuf[slot*13+5:], long.Second[:])
			copy(unibuf[slot*13+11:], long.Third[:])
			continue
		}

		// Check if this entry is valid.
		if entry.Name[0] == 0xE5 || entry.Attribute&^byte(attrValid) != 0 {
			continue
		}

		// 0x05 escapes a legitimate 0xE5 first byte (a workaround for
		// Japanese). The entry is not deleted.
		if entry.Name[0] == 0x05 {
			entry.Name[0] = 0xE5
		}

		var name, alt string
		if checksum != -1 && slot == 0 {
			if shortNameChecksum(entry.Name) == byte(checksum) {
				name = utf16ToString(unibuf[:slots*13])
				alt = shortNameOf(entry.Name)
			}
			checksum = -1
		}
		if name == "" {
			name = shortNameOf(entry.Name)
		}

		if emit(name, alt, &entry) {
			return nil
		}
	}
}

// findDir resolves the leading slash-delimited component of path inside the
// directory referenced by cur. On a match the cursor is advanced to the
// matched entry and the tail of the path starting at the next separator is
// returned, or "" when the component was the last one. A trailing separator
// yields a non-empty tail, so resolution continues with an empty component.
//
// When hook is set and the component is terminal, an empty component
// switches into listing mode: every entry is passed to hook instead of being
// matched, and a missing match is not an error.
func (fs *Fs) findDir(cur *cursor, path string, hook ListHook) (rest string, matched ExtendedEntryHeader, err error) {
	if cur.attr&AttrDirectory == 0 {
		return "", ExtendedEntryHeader{}, checkpoint.Wrap(errors.New("not a directory"), ErrBadFileType)
	}

	path = strings.TrimLeft(path, "/")
	name := path
	if i := strings.IndexByte(path, '/'); i >= 0 {
		name, rest = path[:i], path[i:]
	}

	callHook := rest == "" && hook != nil

	var found *ExtendedEntryHeader
	err = fs.scanDir(cur, func(n, alt string, entry *EntryHeader) bool {
		if name == "" && callHook {
			return hook(n, entry.Attribute&AttrDirectory != 0)
		}

		// Short names are produced lowercased, and FAT name matching is
		// case-insensitive in general, so fold both sides.
		if !strings.EqualFold(n, name) && !(alt != "" && strings.EqualFold(alt, name)) {
			return false
		}

		if callHook {
			hook(n, entry.Attribute&AttrDirectory != 0)
		}
		found = &ExtendedEntryHeader{EntryHeader: *entry, ExtendedName: n}
		return true
	})
	if err != nil {
		return "", ExtendedEntryHeader{}, err
	}

	if found == nil {
		if callHook {
			// A listing that ran to the end, or a hook that stopped it.
			return "", ExtendedEntryHeader{}, nil
		}
		return "", ExtendedEntryHeader{}, checkpoint.Wrap(fmt.Errorf("no entry %q", name), ErrFileNotFound)
	}

	cur.attr = found.Attribute
	cur.start = chainStart{
		cluster: uint32(found.FirstClusterHI)<<16 | uint32(found.FirstClusterLO),
	}
	cur.curIndex = invalidClusterIndex

	return rest, *found, nil
}

// List calls hook for every entry of the directory at path until hook
// returns true or the directory is exhausted. Listing the contents of a
// directory requires a trailing slash ("/boot/"); without one the hook
// receives the named entry itself.
func (fs *Fs) List(path string, hook ListHook) error {
	cur := fs.rootCursor()
	for {
		rest, _, err := fs.findDir(&cur, path, hook)
		if err != nil {
			return checkpoint.From(err)
		}
		if rest == "" {
			return nil
		}
		path = rest
	}
}

// readDirEntries returns all entries of the directory referenced by cur with
// their decoded names.
func (fs *Fs) readDirEntries(cur *cursor) ([]ExtendedEntryHeader, error) {
	if cur.attr&AttrDirectory == 0 {
		return nil, checkpoint.Wrap(errors.New("not a directory"), ErrBadFileType)
	}

	var entries []ExtendedEntryHeader
	err := fs.scanDir(cur, func(n, alt string, entry *EntryHeader) bool {
		entries = append(entries, ExtendedEntryHeader{EntryHeader: *entry, ExtendedName: n})
		return false
	})
	if err != nil {
		return nil, checkpoint.From(err)
	}

	return entries, nil
}
