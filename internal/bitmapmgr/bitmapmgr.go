// Package bitmapmgr implements the free-block bitmap: 253 bookkeeping bytes
// in the superblock plus up to two whole extension blocks, addressed MSB
// first the way the original on-disk format does it.
//
// Grounded on the allocator in dargueta-disko's drivers/common/allocatormap.go
// (first-fit scan, allocate/free on a single bit), adapted here to a bitmap
// that spans several non-contiguous blocks instead of one contiguous slice.
package bitmapmgr

import (
	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/blockdev"
)

// superblockBitmapBytes is how many of the superblock's 256 bytes hold
// bitmap data: byte 0 is the magic number, byte 1 the root inode table
// block (3), byte 2 the extension-block count, leaving 253 bytes.
const superblockBitmapBytes = tinyfs.BlockSize - 3

// Manager tracks which of the disk's data blocks are free, reading and
// writing the bitmap through a Cache so its changes batch with everything
// else a File-System Core call touches.
type Manager struct {
	cache           *blockdev.Cache
	extensionBlocks uint8
}

// New creates a Manager over the given cache. extensionBlocks is the number
// of blocks immediately after the superblock (blocks 1..extensionBlocks)
// that extend the bitmap.
func New(cache *blockdev.Cache, extensionBlocks uint8) *Manager {
	return &Manager{cache: cache, extensionBlocks: extensionBlocks}
}

// bitNum returns the MSB-first position (0 for bit 7, down to 7 for bit 0)
// of the first set bit in b, scanning from bit 7 downward, or -1 if b is 0.
func bitNum(b byte) int {
	for n := 0; n < 8; n++ {
		if b&(1<<uint(7-n)) != 0 {
			return n
		}
	}
	return -1
}

// globalBitIndex returns the bitmap's bit position for absolute block
// number blockNum. Block numbers below 8 (the superblock, its extension
// blocks, and the inode table) are never represented in the bitmap.
func globalBitIndex(blockNum uint32) uint32 {
	return blockNum - 8
}

// locate splits a global bit index into the byte within the superblock's
// 253 bitmap bytes, or an extension block number and byte offset within it.
func locate(bitIndex uint32) (inSuperblock bool, byteIdx int, extBlock uint8, extByteIdx int) {
	byteGlobal := int(bitIndex / 8)
	if byteGlobal < superblockBitmapBytes {
		return true, byteGlobal, 0, 0
	}
	rem := byteGlobal - superblockBitmapBytes
	return false, 0, uint8(1 + rem/tinyfs.BlockSize), rem % tinyfs.BlockSize
}

func (m *Manager) readByteSlice(inSuperblock bool, extBlock uint8) ([]byte, uint32, error) {
	if inSuperblock {
		block, err := m.cache.ReadBlock(0)
		if err != nil {
			return nil, 0, err
		}
		return block[3:], 0, nil
	}
	block, err := m.cache.ReadBlock(uint32(extBlock))
	if err != nil {
		return nil, 0, err
	}
	return block, uint32(extBlock), nil
}

func (m *Manager) writeByte(inSuperblock bool, byteIdx int, extBlock uint8, extByteIdx int, value byte) error {
	if inSuperblock {
		block, err := m.cache.ReadBlock(0)
		if err != nil {
			return err
		}
		block[3+byteIdx] = value
		return m.cache.WriteBlock(0, block)
	}
	block, err := m.cache.ReadBlock(uint32(extBlock))
	if err != nil {
		return err
	}
	block[extByteIdx] = value
	return m.cache.WriteBlock(uint32(extBlock), block)
}

// FindFree returns the lowest-numbered free data block, without marking it
// used. Scanning always proceeds byte-by-byte, and within a byte from bit 7
// down to bit 0, which is exactly the order that yields ascending block
// numbers.
func (m *Manager) FindFree() (uint32, error) {
	superblock, err := m.cache.ReadBlock(0)
	if err != nil {
		return 0, err
	}
	for i, b := range superblock[3:] {
		if b == 0 {
			continue
		}
		n := bitNum(b)
		return uint32(8 + i*8 + n), nil
	}

	for ext := uint8(0); ext < m.extensionBlocks; ext++ {
		block, err := m.cache.ReadBlock(uint32(1 + ext))
		if err != nil {
			return 0, err
		}
		for i, b := range block {
			if b == 0 {
				continue
			}
			n := bitNum(b)
			byteGlobal := superblockBitmapBytes + int(ext)*tinyfs.BlockSize + i
			return uint32(8 + byteGlobal*8 + n), nil
		}
	}

	return 0, tinyfs.NewFSError(tinyfs.ErrNoFreeBlocks)
}

// MarkUsed clears blockNum's free bit.
func (m *Manager) MarkUsed(blockNum uint32) error {
	return m.setBit(blockNum, false)
}

// MarkFree sets blockNum's free bit.
func (m *Manager) MarkFree(blockNum uint32) error {
	return m.setBit(blockNum, true)
}

func (m *Manager) setBit(blockNum uint32, free bool) error {
	bitIndex := globalBitIndex(blockNum)
	inSuperblock, byteIdx, extBlock, extByteIdx := locate(bitIndex)

	slice, _, err := m.readByteSlice(inSuperblock, extBlock)
	if err != nil {
		return err
	}

	idx := byteIdx
	if !inSuperblock {
		idx = extByteIdx
	}
	current := slice[idx]
	bit := int(bitIndex % 8)
	mask := byte(1) << uint(7-bit)
	var updated byte
	if free {
		updated = current | mask
	} else {
		updated = current &^ mask
	}

	return m.writeByte(inSuperblock, byteIdx, extBlock, extByteIdx, updated)
}

// IsFree reports whether blockNum's bit is currently set.
func (m *Manager) IsFree(blockNum uint32) (bool, error) {
	bitIndex := globalBitIndex(blockNum)
	inSuperblock, byteIdx, extBlock, extByteIdx := locate(bitIndex)

	slice, _, err := m.readByteSlice(inSuperblock, extBlock)
	if err != nil {
		return false, err
	}
	idx := byteIdx
	if !inSuperblock {
		idx = extByteIdx
	}
	bit := int(bitIndex % 8)
	mask := byte(1) << uint(7-bit)
	return slice[idx]&mask != 0, nil
}

// CountFree returns the total number of free data blocks recorded in the
// bitmap, across the superblock and every extension block.
func (m *Manager) CountFree() (uint32, error) {
	var free uint32

	superblock, err := m.cache.ReadBlock(0)
	if err != nil {
		return 0, err
	}
	for _, b := range superblock[3:] {
		free += uint32(popcount(b))
	}

	for ext := uint8(0); ext < m.extensionBlocks; ext++ {
		block, err := m.cache.ReadBlock(uint32(1 + ext))
		if err != nil {
			return 0, err
		}
		for _, b := range block {
			free += uint32(popcount(b))
		}
	}

	return free, nil
}

func popcount(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}
