// Package openfiles tracks the per-session state of files a caller has
// opened: name and current byte offset, keyed directly by file descriptor
// the way the original procedural API's "Filent" table did, as a dense
// slice rather than a map. The inode's block list is deliberately not
// cached here; every operation re-reads it from the inode block so it can
// never go stale against a concurrent write to the same file.
package openfiles

import "github.com/blockstore/tinyfs"

// OpenFile is one entry in the open-file table.
type OpenFile struct {
	Name         string
	Offset       uint32
	InodeBlockNo uint32
}

// Table is a dense, FD-indexed vector of open files. A nil entry means the
// FD is not currently open.
type Table struct {
	entries []*OpenFile
}

// New creates an empty open-file table.
func New() *Table {
	return &Table{}
}

func (t *Table) ensureCapacity(fd int) {
	for len(t.entries) <= fd {
		t.entries = append(t.entries, nil)
	}
}

// Set records an open-file entry at fd, growing the table if needed.
func (t *Table) Set(fd int, entry *OpenFile) {
	t.ensureCapacity(fd)
	t.entries[fd] = entry
}

// Get returns the open-file entry at fd, or ErrInvalidFD if fd isn't open.
func (t *Table) Get(fd int) (*OpenFile, error) {
	if fd < 0 || fd >= len(t.entries) || t.entries[fd] == nil {
		return nil, tinyfs.NewFSError(tinyfs.ErrInvalidFD)
	}
	return t.entries[fd], nil
}

// Clear removes fd's entry, if any. Clearing an FD that isn't open is not
// an error: callers use this both to close an explicitly open file and to
// guarantee a deleted file's FD can never be read through again.
func (t *Table) Clear(fd int) {
	if fd < 0 || fd >= len(t.entries) {
		return
	}
	t.entries[fd] = nil
}

// IsOpen reports whether fd currently has an entry.
func (t *Table) IsOpen(fd int) bool {
	return fd >= 0 && fd < len(t.entries) && t.entries[fd] != nil
}

// OpenFDs returns every currently open file descriptor, in ascending order.
func (t *Table) OpenFDs() []int {
	var out []int
	for fd, entry := range t.entries {
		if entry != nil {
			out = append(out, fd)
		}
	}
	return out
}
