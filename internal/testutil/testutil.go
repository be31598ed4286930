// Package testutil builds in-memory disk images for tests, the way the
// teacher package this is modeled on (disko's testing/images.go) builds an
// io.ReadWriteSeeker from an embedded compressed fixture. There is no
// compressed fixture here: images are generated live, zero-filled, at the
// size the test asks for.
package testutil

import (
	"io"
	"testing"

	"github.com/noxer/bytewriter"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"
)

// NewBlankImage returns an io.ReadWriteSeeker of exactly size bytes, every
// byte zero, suitable for handing to blockdev.Table.OpenStream.
func NewBlankImage(t *testing.T, size int64) io.ReadWriteSeeker {
	t.Helper()
	require.Greater(t, size, int64(0), "image size must be positive")
	return bytesextra.NewReadWriteSeeker(make([]byte, size))
}

// NewGrowableWriter returns a buffer that grows on write, for tests that
// want to observe exactly how many bytes an operation touches rather than
// pre-sizing the whole image.
func NewGrowableWriter(t *testing.T) *bytewriter.Writer {
	t.Helper()
	return bytewriter.New(nil)
}
