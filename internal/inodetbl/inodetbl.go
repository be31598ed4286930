// Package inodetbl manages the five-block name-to-inode directory that
// sits at blocks 3..7. Each block holds 21 fixed-width entries; a file's
// descriptor is a single bijection of (table block, slot) rather than the
// two diverging formulas the table this is modeled on used for allocation
// versus lookup.
package inodetbl

import (
	"bytes"

	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/blockdev"
)

const (
	// FirstTableBlock is the absolute block number of the first inode
	// table block.
	FirstTableBlock = 3
	// TableBlockCount is how many blocks the inode table spans.
	TableBlockCount = 5
	entrySize       = 12
	nameSize        = tinyfs.MaxNameLength
	// SlotsPerBlock is how many 12-byte entries fit in one 256-byte block.
	SlotsPerBlock = tinyfs.BlockSize / entrySize
)

// Manager allocates, looks up, and frees inode table entries through a
// block cache.
type Manager struct {
	cache *blockdev.Cache
}

// New creates a Manager over the given cache.
func New(cache *blockdev.Cache) *Manager {
	return &Manager{cache: cache}
}

func slotOffset(slot int) int {
	return slot * entrySize
}

func encodeName(name string) [nameSize]byte {
	var buf [nameSize]byte
	copy(buf[:], name)
	return buf
}

func decodeName(buf []byte) string {
	return string(bytes.TrimRight(buf, "\x00"))
}

// fdFor converts a (logical table block, slot) pair into its file
// descriptor: tableBlock*SlotsPerBlock + slot.
func fdFor(tableBlock, slot int) int {
	return tableBlock*SlotsPerBlock + slot
}

// locate inverts fdFor.
func locate(fd int) (tableBlock, slot int) {
	return fd / SlotsPerBlock, fd % SlotsPerBlock
}

// AllocateEntry finds the first free slot across the five table blocks,
// writes name and inodeBlockNo into it, and returns the resulting FD.
func (m *Manager) AllocateEntry(name string, inodeBlockNo uint32) (int, error) {
	for tableBlock := 0; tableBlock < TableBlockCount; tableBlock++ {
		block, err := m.cache.ReadBlock(uint32(FirstTableBlock + tableBlock))
		if err != nil {
			return 0, err
		}
		for slot := 0; slot < SlotsPerBlock; slot++ {
			off := slotOffset(slot)
			entry := block[off : off+entrySize]
			if isFreeEntry(entry) {
				encoded := encodeName(name)
				copy(entry[:nameSize], encoded[:])
				putUint32(entry[nameSize:], inodeBlockNo)
				if err := m.cache.WriteBlock(uint32(FirstTableBlock+tableBlock), block); err != nil {
					return 0, err
				}
				return fdFor(tableBlock, slot), nil
			}
		}
	}
	return 0, tinyfs.NewFSError(tinyfs.ErrNoFD)
}

// Lookup returns the name and inode block number stored for fd.
func (m *Manager) Lookup(fd int) (name string, inodeBlockNo uint32, err error) {
	tableBlock, slot := locate(fd)
	if tableBlock < 0 || tableBlock >= TableBlockCount || slot < 0 || slot >= SlotsPerBlock {
		return "", 0, tinyfs.NewFSError(tinyfs.ErrInvalidFD)
	}

	block, err := m.cache.ReadBlock(uint32(FirstTableBlock + tableBlock))
	if err != nil {
		return "", 0, err
	}
	off := slotOffset(slot)
	entry := block[off : off+entrySize]
	if isFreeEntry(entry) {
		return "", 0, tinyfs.NewFSError(tinyfs.ErrInvalidFD)
	}
	return decodeName(entry[:nameSize]), getUint32(entry[nameSize:]), nil
}

// FreeEntry zeroes fd's 12-byte slot.
func (m *Manager) FreeEntry(fd int) error {
	tableBlock, slot := locate(fd)
	if tableBlock < 0 || tableBlock >= TableBlockCount || slot < 0 || slot >= SlotsPerBlock {
		return tinyfs.NewFSError(tinyfs.ErrInvalidFD)
	}

	block, err := m.cache.ReadBlock(uint32(FirstTableBlock + tableBlock))
	if err != nil {
		return err
	}
	off := slotOffset(slot)
	entry := block[off : off+entrySize]
	if isFreeEntry(entry) {
		return tinyfs.NewFSError(tinyfs.ErrInvalidFD)
	}
	for i := range entry {
		entry[i] = 0
	}
	return m.cache.WriteBlock(uint32(FirstTableBlock+tableBlock), block)
}

// Entries returns every occupied (fd, name, inodeBlockNo) triple, in
// ascending FD order. Used by diagnostics.
func (m *Manager) Entries() ([]Entry, error) {
	var out []Entry
	for tableBlock := 0; tableBlock < TableBlockCount; tableBlock++ {
		block, err := m.cache.ReadBlock(uint32(FirstTableBlock + tableBlock))
		if err != nil {
			return nil, err
		}
		for slot := 0; slot < SlotsPerBlock; slot++ {
			off := slotOffset(slot)
			entry := block[off : off+entrySize]
			if isFreeEntry(entry) {
				continue
			}
			out = append(out, Entry{
				FD:           fdFor(tableBlock, slot),
				Name:         decodeName(entry[:nameSize]),
				InodeBlockNo: getUint32(entry[nameSize:]),
			})
		}
	}
	return out, nil
}

// Entry is one occupied inode table slot.
type Entry struct {
	FD           int
	Name         string
	InodeBlockNo uint32
}

func isFreeEntry(entry []byte) bool {
	for _, b := range entry {
		if b != 0 {
			return false
		}
	}
	return true
}

func putUint32(buf []byte, v uint32) {
	buf[0] = byte(v >> 24)
	buf[1] = byte(v >> 16)
	buf[2] = byte(v >> 8)
	buf[3] = byte(v)
}

func getUint32(buf []byte) uint32 {
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])
}
