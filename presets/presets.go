// Package presets offers a handful of named disk sizes, loaded from an
// embedded CSV the way the teacher's disks package loads historical floppy
// geometries, scoped down to sizes this format can actually address.
package presets

import (
	_ "embed"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/fs"
)

// Preset is one named disk size.
type Preset struct {
	Name        string `csv:"name"`
	Blocks      uint32 `csv:"blocks"`
	Description string `csv:"description"`
}

// Bytes returns the size in bytes this preset's block count corresponds to.
func (p Preset) Bytes() int64 {
	return int64(p.Blocks) * tinyfs.BlockSize
}

//go:embed presets.csv
var presetsCSV string

var byName map[string]Preset

func init() {
	byName = make(map[string]Preset)
	err := gocsv.UnmarshalToCallback(strings.NewReader(presetsCSV), func(row Preset) error {
		if _, exists := byName[row.Name]; exists {
			return fmt.Errorf("duplicate preset name %q", row.Name)
		}
		byName[row.Name] = row
		return nil
	})
	if err != nil && err != io.EOF {
		panic(err)
	}
}

// Lookup returns the named preset, or an error if no preset has that name.
func Lookup(name string) (Preset, error) {
	preset, ok := byName[name]
	if !ok {
		return Preset{}, fmt.Errorf("no preset named %q", name)
	}
	return preset, nil
}

// Names returns every defined preset name.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	return names
}

// Mkfs creates a new image at path sized to the named preset, as a
// convenience over fs.Mkfs(devices, path, nBytes).
func Mkfs(devices *blockdev.Table, path string, presetName string) error {
	preset, err := Lookup(presetName)
	if err != nil {
		return err
	}
	return fs.Mkfs(devices, path, preset.Bytes())
}
