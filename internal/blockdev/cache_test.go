package blockdev_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs/internal/blockdev"
)

func TestCacheWriteIsNotPersistedUntilFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.tfs")
	table := blockdev.NewTable()
	handle, err := table.Open(path, 2560)
	require.NoError(t, err)

	cache := blockdev.NewCache(table, handle, 10)
	buf := make([]byte, 256)
	buf[0] = 0xEE
	require.NoError(t, cache.WriteBlock(3, buf))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte(0), raw[3*256], "write should not hit disk before FlushAll")

	require.NoError(t, cache.FlushAll())
	raw, err = os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, byte(0xEE), raw[3*256])
}

func TestCacheReadReturnsDefensiveCopy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.tfs")
	table := blockdev.NewTable()
	handle, err := table.Open(path, 2560)
	require.NoError(t, err)
	cache := blockdev.NewCache(table, handle, 10)

	buf := make([]byte, 256)
	buf[0] = 1
	require.NoError(t, cache.WriteBlock(0, buf))

	read, err := cache.ReadBlock(0)
	require.NoError(t, err)
	read[0] = 99

	readAgain, err := cache.ReadBlock(0)
	require.NoError(t, err)
	require.Equal(t, byte(1), readAgain[0], "mutating a returned block must not affect the cache")
}
