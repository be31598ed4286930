// Package inodeblk encodes and decodes the per-file inode block: a
// metadata prefix followed by a list of data-block numbers, all packed at
// fixed big-endian offsets generated from a single field table rather than
// scattered through call sites.
package inodeblk

import "github.com/blockstore/tinyfs"

// field describes one fixed-offset, fixed-width big-endian integer field
// in an inode block.
type field struct {
	offset int
	width  int
}

var (
	fieldPermissions = field{0, 1}
	fieldType        = field{1, 1}
	fieldSize        = field{2, 2}
	fieldNBlocks     = field{4, 4}
	fieldCreatedAt   = field{8, 4}
	fieldAccessedAt  = field{12, 4}
	fieldModifiedAt  = field{16, 4}
)

const blockListOffset = 20

// MaxBlocks is the largest number of data-block entries that fit after the
// metadata prefix.
const MaxBlocks = (tinyfs.BlockSize - blockListOffset) / 4

// getField unpacks a big-endian unsigned integer of f.width bytes at f.offset.
func getField(buf []byte, f field) uint64 {
	var v uint64
	for i := 0; i < f.width; i++ {
		v = v<<8 | uint64(buf[f.offset+i])
	}
	return v
}

// setField packs value into f.width big-endian bytes at f.offset.
func setField(buf []byte, f field, value uint64) {
	for i := f.width - 1; i >= 0; i-- {
		buf[f.offset+i] = byte(value)
		value >>= 8
	}
}

// Inode is the decoded contents of one inode block.
type Inode struct {
	Permissions tinyfs.Permission
	Type        tinyfs.FileType
	Size        uint16
	NBlocks     uint32
	CreatedAt   uint32
	AccessedAt  uint32
	ModifiedAt  uint32
	Blocks      []uint32
}

// Encode packs ino into a fresh 256-byte block.
func Encode(ino Inode) []byte {
	buf := make([]byte, tinyfs.BlockSize)
	setField(buf, fieldPermissions, uint64(ino.Permissions))
	setField(buf, fieldType, uint64(ino.Type))
	setField(buf, fieldSize, uint64(ino.Size))
	setField(buf, fieldNBlocks, uint64(len(ino.Blocks)))
	setField(buf, fieldCreatedAt, uint64(ino.CreatedAt))
	setField(buf, fieldAccessedAt, uint64(ino.AccessedAt))
	setField(buf, fieldModifiedAt, uint64(ino.ModifiedAt))

	for i, blockNo := range ino.Blocks {
		off := blockListOffset + i*4
		setField(buf, field{off, 4}, uint64(blockNo))
	}
	return buf
}

// Decode unpacks an inode block. NBlocks is authoritative: exactly that
// many 4-byte entries are read from the block list, regardless of whether
// a later slot happens to be zero. The all-zero terminator is only
// meaningful when NBlocks wasn't trusted, which this implementation never
// needs because the field is always written accurately by Encode.
func Decode(buf []byte) Inode {
	ino := Inode{
		Permissions: tinyfs.Permission(getField(buf, fieldPermissions)),
		Type:        tinyfs.FileType(getField(buf, fieldType)),
		Size:        uint16(getField(buf, fieldSize)),
		NBlocks:     uint32(getField(buf, fieldNBlocks)),
		CreatedAt:   uint32(getField(buf, fieldCreatedAt)),
		AccessedAt:  uint32(getField(buf, fieldAccessedAt)),
		ModifiedAt:  uint32(getField(buf, fieldModifiedAt)),
	}

	n := int(ino.NBlocks)
	if n > MaxBlocks {
		n = MaxBlocks
	}
	ino.Blocks = make([]uint32, n)
	for i := 0; i < n; i++ {
		off := blockListOffset + i*4
		ino.Blocks[i] = uint32(getField(buf, field{off, 4}))
	}
	return ino
}
