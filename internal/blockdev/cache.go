package blockdev

import (
	"github.com/boljen/go-bitmap"

	"github.com/blockstore/tinyfs"
)

// Cache is a whole-disk write-back cache over a Table handle. It exists so
// a single File-System Core operation that touches the bitmap, an inode
// block, and several data blocks can batch those writes and flush them
// once, while still producing exactly the on-disk state a naive
// read-modify-write-every-time implementation would leave behind.
//
// Callers are expected to call FlushAll before returning control to the
// caller of any top-level operation; nothing here defers flushing across
// operations.
type Cache struct {
	table       *Table
	handle      Handle
	totalBlocks uint32
	data        []byte
	loaded      bitmap.Bitmap
	dirty       bitmap.Bitmap
}

// NewCache creates a Cache over the given table/handle. totalBlocks must
// match the device's actual block count.
func NewCache(table *Table, handle Handle, totalBlocks uint32) *Cache {
	return &Cache{
		table:       table,
		handle:      handle,
		totalBlocks: totalBlocks,
		data:        make([]byte, int(totalBlocks)*tinyfs.BlockSize),
		loaded:      bitmap.New(int(totalBlocks)),
		dirty:       bitmap.New(int(totalBlocks)),
	}
}

func (c *Cache) checkBlock(bNum uint32) error {
	if bNum >= c.totalBlocks {
		return tinyfs.NewFSError(tinyfs.ErrInvalidBNum)
	}
	return nil
}

func (c *Cache) slice(bNum uint32) []byte {
	start := int(bNum) * tinyfs.BlockSize
	return c.data[start : start+tinyfs.BlockSize]
}

func (c *Cache) ensureLoaded(bNum uint32) error {
	if c.loaded.Get(int(bNum)) {
		return nil
	}
	if err := c.table.Read(c.handle, bNum, c.slice(bNum)); err != nil {
		return err
	}
	c.loaded.Set(int(bNum), true)
	return nil
}

// ReadBlock returns a fresh copy of block bNum's current contents (loading
// it from the underlying device first if it isn't cached yet).
func (c *Cache) ReadBlock(bNum uint32) ([]byte, error) {
	if err := c.checkBlock(bNum); err != nil {
		return nil, err
	}
	if err := c.ensureLoaded(bNum); err != nil {
		return nil, err
	}
	out := make([]byte, tinyfs.BlockSize)
	copy(out, c.slice(bNum))
	return out, nil
}

// WriteBlock copies buf (exactly one block) into the cache and marks the
// block dirty. It is not written to the underlying device until FlushAll.
func (c *Cache) WriteBlock(bNum uint32, buf []byte) error {
	if err := c.checkBlock(bNum); err != nil {
		return err
	}
	if len(buf) != tinyfs.BlockSize {
		return tinyfs.ErrInvalidBNum.WithMessage("buffer must be exactly one block")
	}
	copy(c.slice(bNum), buf)
	c.loaded.Set(int(bNum), true)
	c.dirty.Set(int(bNum), true)
	return nil
}

// FlushAll writes every dirty block back to the underlying device and
// marks the cache clean.
func (c *Cache) FlushAll() error {
	for i := uint32(0); i < c.totalBlocks; i++ {
		if !c.dirty.Get(int(i)) {
			continue
		}
		if err := c.table.Write(c.handle, i, c.slice(i)); err != nil {
			return err
		}
		c.dirty.Set(int(i), false)
	}
	return nil
}
