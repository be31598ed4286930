package inodeblk_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/inodeblk"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	ino := inodeblk.Inode{
		Permissions: tinyfs.PermReadOnly,
		Type:        tinyfs.TypeData,
		Size:        512,
		CreatedAt:   100,
		AccessedAt:  200,
		ModifiedAt:  300,
		Blocks:      []uint32{9, 10},
	}

	buf := inodeblk.Encode(ino)
	require.Len(t, buf, tinyfs.BlockSize)

	decoded := inodeblk.Decode(buf)
	require.Equal(t, ino.Permissions, decoded.Permissions)
	require.Equal(t, ino.Type, decoded.Type)
	require.Equal(t, ino.Size, decoded.Size)
	require.EqualValues(t, 2, decoded.NBlocks)
	require.Equal(t, ino.CreatedAt, decoded.CreatedAt)
	require.Equal(t, ino.AccessedAt, decoded.AccessedAt)
	require.Equal(t, ino.ModifiedAt, decoded.ModifiedAt)
	require.Equal(t, ino.Blocks, decoded.Blocks)
}

func TestDecodeHonorsNBlocksOverTerminator(t *testing.T) {
	buf := inodeblk.Encode(inodeblk.Inode{Blocks: []uint32{11}})
	// Corrupt what would be the terminator check: put a nonzero value
	// right after the one real entry. NBlocks still says 1, so Decode
	// must not read it.
	buf[24] = 0xFF

	decoded := inodeblk.Decode(buf)
	require.Equal(t, []uint32{11}, decoded.Blocks)
}

func TestEncodeFullBlockListWithNoTerminator(t *testing.T) {
	blocks := make([]uint32, inodeblk.MaxBlocks)
	for i := range blocks {
		blocks[i] = uint32(8 + i)
	}
	buf := inodeblk.Encode(inodeblk.Inode{Blocks: blocks})

	decoded := inodeblk.Decode(buf)
	require.Len(t, decoded.Blocks, inodeblk.MaxBlocks)
	require.Equal(t, blocks, decoded.Blocks)
}
