package fs

import (
	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/bitmapmgr"
	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/internal/inodetbl"
	"github.com/blockstore/tinyfs/internal/openfiles"
)

// MinBlocks and MaxBlocks bound a valid image size: below MinBlocks there's
// no room for the superblock, inode table, and two data blocks (an inode
// block and one block of file data);
// above MaxBlocks the bitmap would need a third extension block, which the
// format's 2-block reservation (blocks 1 and 2) doesn't provide room for.
const (
	MinBlocks = 10
	MaxBlocks = 8 + 253*8 + 2*256*8
)

const magicByte = 0x5A

// superblockBitmapBytes mirrors the constant in package bitmapmgr.
const superblockBitmapBytes = tinyfs.BlockSize - 3

// Mkfs creates a new image at path, sized to hold nBytes (a multiple of
// tinyfs.BlockSize), and writes its superblock and initial free-block
// bitmap. It does not mount the image.
func Mkfs(devices *blockdev.Table, path string, nBytes int64) error {
	if nBytes <= 0 {
		return tinyfs.NewFSError(tinyfs.ErrDiskSize)
	}
	totalBlocks := uint32(nBytes / tinyfs.BlockSize)
	if totalBlocks < MinBlocks || totalBlocks > MaxBlocks {
		return tinyfs.NewFSError(tinyfs.ErrDiskSize)
	}

	handle, err := devices.Open(path, nBytes)
	if err != nil {
		return tinyfs.ErrFailedCreate.Wrap(err)
	}

	cache := blockdev.NewCache(devices, handle, totalBlocks)

	freeBlockCount := totalBlocks - 8
	extensionBlocks := extensionBlocksNeeded(freeBlockCount)

	if err := writeInitialBitmap(cache, freeBlockCount, extensionBlocks); err != nil {
		_ = devices.Close(handle)
		return tinyfs.ErrFailedCreate.Wrap(err)
	}
	if err := cache.FlushAll(); err != nil {
		_ = devices.Close(handle)
		return tinyfs.ErrFailedCreate.Wrap(err)
	}
	return devices.Close(handle)
}

// extensionBlocksNeeded computes E = ceil(max(0, freeBlocks - 8*253) / (8*256)).
func extensionBlocksNeeded(freeBlocks uint32) uint8 {
	superblockBits := uint32(superblockBitmapBytes * 8)
	if freeBlocks <= superblockBits {
		return 0
	}
	remaining := freeBlocks - superblockBits
	extensionBits := uint32(tinyfs.BlockSize * 8)
	return uint8((remaining + extensionBits - 1) / extensionBits)
}

// writeInitialBitmap fills the superblock and its extension blocks with a
// bit-string of length freeBlocks set to 1, MSB-first, padded with 0 bits.
func writeInitialBitmap(cache *blockdev.Cache, freeBlocks uint32, extensionBlocks uint8) error {
	superblock := make([]byte, tinyfs.BlockSize)
	superblock[0] = magicByte
	superblock[1] = 3
	superblock[2] = extensionBlocks

	totalBitmapBytes := superblockBitmapBytes + int(extensionBlocks)*tinyfs.BlockSize
	bits := make([]byte, totalBitmapBytes)
	for i := uint32(0); i < freeBlocks; i++ {
		byteIdx := int(i / 8)
		bit := int(i % 8)
		bits[byteIdx] |= 1 << uint(7-bit)
	}

	copy(superblock[3:], bits[:superblockBitmapBytes])
	if err := cache.WriteBlock(0, superblock); err != nil {
		return err
	}

	for ext := uint8(0); ext < extensionBlocks; ext++ {
		block := make([]byte, tinyfs.BlockSize)
		start := superblockBitmapBytes + int(ext)*tinyfs.BlockSize
		copy(block, bits[start:start+tinyfs.BlockSize])
		if err := cache.WriteBlock(uint32(1+ext), block); err != nil {
			return err
		}
	}
	return nil
}

// Mount opens an existing image and verifies its superblock magic byte.
func Mount(devices *blockdev.Table, path string, clock tinyfs.Clock) (*FS, error) {
	handle, err := devices.Open(path, 0)
	if err != nil {
		return nil, tinyfs.ErrOpen.Wrap(err)
	}

	totalBlocks, err := devices.TotalBlocks(handle)
	if err != nil {
		_ = devices.Close(handle)
		return nil, err
	}

	cache := blockdev.NewCache(devices, handle, totalBlocks)
	superblock, err := cache.ReadBlock(0)
	if err != nil {
		_ = devices.Close(handle)
		return nil, err
	}
	if superblock[0] != magicByte {
		_ = devices.Close(handle)
		return nil, tinyfs.NewFSError(tinyfs.ErrInvalidFS)
	}
	extensionBlocks := superblock[2]

	return &FS{
		Path:            path,
		devices:         devices,
		handle:          handle,
		cache:           cache,
		totalBlocks:     totalBlocks,
		extensionBlocks: extensionBlocks,
		bitmap:          bitmapmgr.New(cache, extensionBlocks),
		inodes:          inodetbl.New(cache),
		open:            openfiles.New(),
		clock:           clock,
	}, nil
}

// Unmount flushes and closes the mounted image's device handle.
func Unmount(f *FS) error {
	if err := f.cache.FlushAll(); err != nil {
		return err
	}
	return f.devices.Close(f.handle)
}
