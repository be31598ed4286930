package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/registry"
)

func TestMountSingleton(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.tfs")
	reg := registry.New()
	require.NoError(t, reg.Mkfs(path, 2560))
	require.NoError(t, reg.Mount(path))
	require.True(t, reg.IsMounted())

	err := reg.Mount(path)
	require.ErrorIs(t, err, tinyfs.ErrMountedFS)

	require.NoError(t, reg.Unmount())
	require.False(t, reg.IsMounted())
}

func TestOperationsFailWhenNothingMounted(t *testing.T) {
	reg := registry.New()

	_, err := reg.Open("hello")
	require.ErrorIs(t, err, tinyfs.ErrMountedNone)

	err = reg.Unmount()
	require.ErrorIs(t, err, tinyfs.ErrMountedNone)
}

func TestEndToEndScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.tfs")
	clock := tinyfs.NewFixedClock(500)
	reg := registry.NewWithClock(clock)

	// 4096 bytes leaves enough data blocks for the inode plus a two-block
	// write; a 2560-byte image has only blocks 8 and 9.
	require.NoError(t, reg.Mkfs(path, 4096))
	require.NoError(t, reg.Mount(path))

	fd, err := reg.Open("hello")
	require.NoError(t, err)
	require.Equal(t, 0, fd)

	buf := make([]byte, 512)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.NoError(t, reg.Write(fd, buf, 512))

	require.NoError(t, reg.Seek(fd, 256))
	for i := 0; i < 4; i++ {
		b, err := reg.ReadByte(fd)
		require.NoError(t, err)
		require.Equal(t, buf[256+i], b)
	}

	require.NoError(t, reg.Delete(fd))
	_, err = reg.ReadByte(fd)
	require.ErrorIs(t, err, tinyfs.ErrInvalidFD)

	require.NoError(t, reg.Unmount())
}
