package presets_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/presets"
)

func TestLookupKnownPresets(t *testing.T) {
	tiny, err := presets.Lookup("tiny")
	require.NoError(t, err)
	require.EqualValues(t, 10, tiny.Blocks)
	require.EqualValues(t, 2560, tiny.Bytes())

	max, err := presets.Lookup("max")
	require.NoError(t, err)
	require.EqualValues(t, 6128, max.Blocks)
}

func TestLookupUnknownPreset(t *testing.T) {
	_, err := presets.Lookup("floppy-8-inch")
	require.Error(t, err)
}

func TestMkfsFromPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.tfs")
	require.NoError(t, presets.Mkfs(blockdev.NewTable(), path, "tiny"))
}

func TestNamesIncludesEveryPreset(t *testing.T) {
	names := presets.Names()
	require.Contains(t, names, "tiny")
	require.Contains(t, names, "small")
	require.Contains(t, names, "standard")
	require.Contains(t, names, "max")
}
