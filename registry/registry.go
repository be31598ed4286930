// Package registry is the process-wide entry point: it tracks which image
// is currently mounted and forwards every per-FD operation to it, the way
// the original flat procedural API kept a single global "current file
// system" behind the scenes, but as an explicit value instead of package
// state.
//
// Every method returns an ordinary Go error carrying a tinyfs.Code.
// Callers that need the legacy signed-integer contract call
// tinyfs.ErrorCode(err) on the result.
package registry

import (
	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/fs"
)

// Registry owns the device table and the single mount slot.
type Registry struct {
	devices *blockdev.Table
	clock   tinyfs.Clock
	mounted *fs.FS
}

// New creates a Registry using the system clock.
func New() *Registry {
	return NewWithClock(tinyfs.SystemClock{})
}

// NewWithClock creates a Registry with an injected clock, for deterministic
// tests of timestamp ordering.
func NewWithClock(clock tinyfs.Clock) *Registry {
	return &Registry{devices: blockdev.NewTable(), clock: clock}
}

// Mkfs creates a new image at path without mounting it.
func (r *Registry) Mkfs(path string, nBytes int64) error {
	return fs.Mkfs(r.devices, path, nBytes)
}

// Mount attaches path as the single mounted image. Fails with
// ErrMountedFS if another image is already mounted.
func (r *Registry) Mount(path string) error {
	if r.mounted != nil {
		return tinyfs.NewFSError(tinyfs.ErrMountedFS)
	}
	mounted, err := fs.Mount(r.devices, path, r.clock)
	if err != nil {
		return err
	}
	r.mounted = mounted
	return nil
}

// Unmount detaches the mounted image. Fails with ErrMountedNone if nothing
// is mounted.
func (r *Registry) Unmount() error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	if err := fs.Unmount(mounted); err != nil {
		return err
	}
	r.mounted = nil
	return nil
}

// IsMounted reports whether any image is currently mounted (property P8).
func (r *Registry) IsMounted() bool {
	return r.mounted != nil
}

// MountedPath returns the path of the currently mounted image, or "" if
// none is mounted.
func (r *Registry) MountedPath() string {
	if r.mounted == nil {
		return ""
	}
	return r.mounted.Path
}

func (r *Registry) requireMounted() (*fs.FS, error) {
	if r.mounted == nil {
		return nil, tinyfs.NewFSError(tinyfs.ErrMountedNone)
	}
	return r.mounted, nil
}

// Open allocates a new file named name on the mounted image.
func (r *Registry) Open(name string) (int, error) {
	mounted, err := r.requireMounted()
	if err != nil {
		return 0, err
	}
	return mounted.Open(name)
}

// Close discards fd's open-file entry.
func (r *Registry) Close(fd int) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.Close(fd)
}

// Write replaces fd's contents with the whole blocks of buf[:size],
// recording size as the file's length (see fs.FS.Write).
func (r *Registry) Write(fd int, buf []byte, size int) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.Write(fd, buf, size)
}

// WriteByte overwrites one byte of fd's contents.
func (r *Registry) WriteByte(fd int, offset int, value byte) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.WriteByte(fd, offset, value)
}

// ReadByte reads the byte at fd's current offset and advances it.
func (r *Registry) ReadByte(fd int) (byte, error) {
	mounted, err := r.requireMounted()
	if err != nil {
		return 0, err
	}
	return mounted.ReadByte(fd)
}

// Seek sets fd's absolute offset.
func (r *Registry) Seek(fd int, offset uint32) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.Seek(fd, offset)
}

// Delete removes fd's file entirely.
func (r *Registry) Delete(fd int) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.Delete(fd)
}

// MakeRO marks the open file named name read-only.
func (r *Registry) MakeRO(name string) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.MakeRO(name)
}

// MakeRW marks the open file named name read-write.
func (r *Registry) MakeRW(name string) error {
	mounted, err := r.requireMounted()
	if err != nil {
		return err
	}
	return mounted.MakeRW(name)
}

// Stat returns fd's current metadata.
func (r *Registry) Stat(fd int) (tinyfs.Stat, error) {
	mounted, err := r.requireMounted()
	if err != nil {
		return tinyfs.Stat{}, err
	}
	return mounted.Stat(fd)
}

// FSStat returns the mounted image's block accounting.
func (r *Registry) FSStat() (tinyfs.FSStat, error) {
	mounted, err := r.requireMounted()
	if err != nil {
		return tinyfs.FSStat{}, err
	}
	return mounted.FSStat()
}
