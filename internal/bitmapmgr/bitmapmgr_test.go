package bitmapmgr_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs/internal/bitmapmgr"
	"github.com/blockstore/tinyfs/internal/blockdev"
)

// newCache creates a totalBlocks-block cache backed by a temp file, with
// every bitmap byte initialized to 0xFF (all free) except block 0's header
// bytes.
func newCache(t *testing.T, totalBlocks uint32, extensionBlocks uint8) *blockdev.Cache {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "bitmapmgr-*.img")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(int64(totalBlocks)*256))
	require.NoError(t, f.Close())

	table := blockdev.NewTable()
	handle, err := table.Open(f.Name(), 0)
	require.NoError(t, err)

	cache := blockdev.NewCache(table, handle, totalBlocks)

	superblock := make([]byte, 256)
	superblock[0] = 0x5A
	superblock[1] = 3
	superblock[2] = extensionBlocks
	for i := 3; i < 256; i++ {
		superblock[i] = 0xFF
	}
	require.NoError(t, cache.WriteBlock(0, superblock))

	full := make([]byte, 256)
	for i := range full {
		full[i] = 0xFF
	}
	for ext := uint8(0); ext < extensionBlocks; ext++ {
		require.NoError(t, cache.WriteBlock(uint32(1+ext), full))
	}

	return cache
}

func TestFindFreeReturnsLowestBlock(t *testing.T) {
	cache := newCache(t, 20, 0)
	mgr := bitmapmgr.New(cache, 0)

	block, err := mgr.FindFree()
	require.NoError(t, err)
	require.EqualValues(t, 8, block, "first data block should be the first free one")
}

func TestMarkUsedThenFindFreeSkipsIt(t *testing.T) {
	cache := newCache(t, 20, 0)
	mgr := bitmapmgr.New(cache, 0)

	require.NoError(t, mgr.MarkUsed(8))
	require.NoError(t, mgr.MarkUsed(9))

	block, err := mgr.FindFree()
	require.NoError(t, err)
	require.EqualValues(t, 10, block)
}

func TestMarkFreeMakesBlockAvailableAgain(t *testing.T) {
	cache := newCache(t, 20, 0)
	mgr := bitmapmgr.New(cache, 0)

	require.NoError(t, mgr.MarkUsed(8))
	require.NoError(t, mgr.MarkFree(8))

	block, err := mgr.FindFree()
	require.NoError(t, err)
	require.EqualValues(t, 8, block)
}

func TestFindFreeSpillsIntoExtensionBlock(t *testing.T) {
	cache := newCache(t, 2200, 1)
	mgr := bitmapmgr.New(cache, 1)

	superblock, err := cache.ReadBlock(0)
	require.NoError(t, err)
	for i := 3; i < 256; i++ {
		superblock[i] = 0
	}
	require.NoError(t, cache.WriteBlock(0, superblock))

	block, err := mgr.FindFree()
	require.NoError(t, err)
	require.EqualValues(t, 8+253*8, block, "first block covered by the extension block")
}

func TestFindFreeReturnsErrorWhenFull(t *testing.T) {
	cache := newCache(t, 20, 0)
	mgr := bitmapmgr.New(cache, 0)

	superblock, err := cache.ReadBlock(0)
	require.NoError(t, err)
	for i := 3; i < 256; i++ {
		superblock[i] = 0
	}
	require.NoError(t, cache.WriteBlock(0, superblock))

	_, err = mgr.FindFree()
	require.Error(t, err)
}

func TestCountFree(t *testing.T) {
	cache := newCache(t, 20, 0)
	mgr := bitmapmgr.New(cache, 0)

	total, err := mgr.CountFree()
	require.NoError(t, err)
	require.EqualValues(t, 253*8, total)

	require.NoError(t, mgr.MarkUsed(8))
	total, err = mgr.CountFree()
	require.NoError(t, err)
	require.EqualValues(t, 253*8-1, total)
}
