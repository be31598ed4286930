package testutil_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/internal/testutil"
)

func TestBlankImageRoundTripsThroughBlockdev(t *testing.T) {
	rws := testutil.NewBlankImage(t, 20*256)

	table := blockdev.NewTable()
	handle := table.OpenStream(rws, 20)

	buf := make([]byte, 256)
	for i := range buf {
		buf[i] = byte(i)
	}
	require.NoError(t, table.Write(handle, 5, buf))

	readBack, err := table.TotalBlocks(handle)
	require.NoError(t, err)
	require.EqualValues(t, 20, readBack)

	out := make([]byte, 256)
	require.NoError(t, table.Read(handle, 5, out))
	require.Equal(t, buf, out)
}

func TestGrowableWriterAcceptsWrites(t *testing.T) {
	w := testutil.NewGrowableWriter(t)
	n, err := w.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
}
