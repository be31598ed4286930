// Package diag cross-checks a mounted file system's on-disk state against
// its invariants, aggregating every violation found rather than stopping
// at the first one, collected with go-multierror.
package diag

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/bitmapmgr"
	"github.com/blockstore/tinyfs/internal/inodeblk"
	"github.com/blockstore/tinyfs/internal/inodetbl"
)

// Cache is the subset of blockdev.Cache that invariant checking needs.
type Cache interface {
	ReadBlock(bNum uint32) ([]byte, error)
}

// CheckInvariants walks every occupied inode table entry and its inode
// block, verifying I3 through I6, then verifies I2 by confirming the
// bitmap agrees with the set of blocks actually referenced. It returns nil
// if every invariant holds, or a *multierror.Error listing every
// violation found.
func CheckInvariants(cache Cache, bmgr *bitmapmgr.Manager, itbl *inodetbl.Manager, totalBlocks uint32) error {
	var result *multierror.Error

	entries, err := itbl.Entries()
	if err != nil {
		return fmt.Errorf("reading inode table: %w", err)
	}

	referenced := make(map[uint32]bool)

	for _, entry := range entries {
		if entry.InodeBlockNo < 8 || entry.InodeBlockNo >= totalBlocks {
			result = multierror.Append(result, fmt.Errorf(
				"I3: fd %d (%q) inode block %d out of data region [8, %d)",
				entry.FD, entry.Name, entry.InodeBlockNo, totalBlocks))
			continue
		}
		referenced[entry.InodeBlockNo] = true

		free, err := bmgr.IsFree(entry.InodeBlockNo)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if free {
			result = multierror.Append(result, fmt.Errorf(
				"I3: fd %d (%q) inode block %d is marked free", entry.FD, entry.Name, entry.InodeBlockNo))
		}

		block, err := cache.ReadBlock(entry.InodeBlockNo)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		ino := inodeblk.Decode(block)

		if int(ino.Size) > len(ino.Blocks)*tinyfs.BlockSize {
			result = multierror.Append(result, fmt.Errorf(
				"I5: fd %d (%q) size %d exceeds %d allocated blocks", entry.FD, entry.Name, ino.Size, len(ino.Blocks)))
		}
		if len(ino.Blocks) > tinyfs.MaxDataBlocks {
			result = multierror.Append(result, fmt.Errorf(
				"I5: fd %d (%q) has %d blocks, exceeding the maximum of %d", entry.FD, entry.Name, len(ino.Blocks), tinyfs.MaxDataBlocks))
		}
		if ino.AccessedAt < ino.CreatedAt {
			result = multierror.Append(result, fmt.Errorf(
				"I6: fd %d (%q) atime %d precedes ctime %d", entry.FD, entry.Name, ino.AccessedAt, ino.CreatedAt))
		}
		if ino.ModifiedAt < ino.CreatedAt {
			result = multierror.Append(result, fmt.Errorf(
				"I6: fd %d (%q) mtime %d precedes ctime %d", entry.FD, entry.Name, ino.ModifiedAt, ino.CreatedAt))
		}

		for _, blockNo := range ino.Blocks {
			referenced[blockNo] = true
			free, err := bmgr.IsFree(blockNo)
			if err != nil {
				result = multierror.Append(result, err)
				continue
			}
			if free {
				result = multierror.Append(result, fmt.Errorf(
					"I4: fd %d (%q) data block %d is marked free", entry.FD, entry.Name, blockNo))
			}
		}
	}

	for b := uint32(8); b < totalBlocks; b++ {
		free, err := bmgr.IsFree(b)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if free == referenced[b] {
			result = multierror.Append(result, fmt.Errorf(
				"I2: block %d bitmap bit (%v) disagrees with reference state (%v)", b, free, referenced[b]))
		}
	}

	return result.ErrorOrNil()
}
