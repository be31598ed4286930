package diag_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs/internal/bitmapmgr"
	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/internal/diag"
	"github.com/blockstore/tinyfs/internal/inodeblk"
	"github.com/blockstore/tinyfs/internal/inodetbl"
)

const totalBlocks = 20

func newFixture(t *testing.T) (*blockdev.Cache, *bitmapmgr.Manager, *inodetbl.Manager) {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "diag-*.img")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(totalBlocks*256))
	require.NoError(t, f.Close())

	table := blockdev.NewTable()
	handle, err := table.Open(f.Name(), 0)
	require.NoError(t, err)
	cache := blockdev.NewCache(table, handle, totalBlocks)

	superblock := make([]byte, 256)
	superblock[0] = 0x5A
	superblock[1] = 3
	for i := 3; i < 256; i++ {
		superblock[i] = 0xFF
	}
	require.NoError(t, cache.WriteBlock(0, superblock))

	return cache, bitmapmgr.New(cache, 0), inodetbl.New(cache)
}

func writeInode(t *testing.T, cache *blockdev.Cache, blockNo uint32, ino inodeblk.Inode) {
	t.Helper()
	require.NoError(t, cache.WriteBlock(blockNo, inodeblk.Encode(ino)))
}

func TestCheckInvariantsPassesForConsistentState(t *testing.T) {
	cache, bmgr, itbl := newFixture(t)

	require.NoError(t, bmgr.MarkUsed(8))
	require.NoError(t, bmgr.MarkUsed(9))
	_, err := itbl.AllocateEntry("hello", 8)
	require.NoError(t, err)
	writeInode(t, cache, 8, inodeblk.Inode{
		CreatedAt: 10, AccessedAt: 10, ModifiedAt: 10,
		Size: 256, Blocks: []uint32{9},
	})

	require.NoError(t, diag.CheckInvariants(cache, bmgr, itbl, totalBlocks))
}

func TestCheckInvariantsCatchesUnmarkedDataBlock(t *testing.T) {
	cache, bmgr, itbl := newFixture(t)

	require.NoError(t, bmgr.MarkUsed(8))
	// Block 9 is referenced by the inode but never marked used.
	_, err := itbl.AllocateEntry("hello", 8)
	require.NoError(t, err)
	writeInode(t, cache, 8, inodeblk.Inode{
		CreatedAt: 10, AccessedAt: 10, ModifiedAt: 10,
		Size: 256, Blocks: []uint32{9},
	})

	err = diag.CheckInvariants(cache, bmgr, itbl, totalBlocks)
	require.Error(t, err)
}

func TestCheckInvariantsCatchesBackwardsTimestamps(t *testing.T) {
	cache, bmgr, itbl := newFixture(t)

	require.NoError(t, bmgr.MarkUsed(8))
	_, err := itbl.AllocateEntry("hello", 8)
	require.NoError(t, err)
	writeInode(t, cache, 8, inodeblk.Inode{
		CreatedAt: 100, AccessedAt: 10, ModifiedAt: 100,
	})

	err = diag.CheckInvariants(cache, bmgr, itbl, totalBlocks)
	require.Error(t, err)
}

func TestCheckInvariantsCatchesOrphanUsedBlock(t *testing.T) {
	cache, bmgr, itbl := newFixture(t)
	_ = cache

	require.NoError(t, bmgr.MarkUsed(8))
	// Nothing references block 8.

	err := diag.CheckInvariants(cache, bmgr, itbl, totalBlocks)
	require.Error(t, err)
}
