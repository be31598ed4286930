// Package blockdev implements fixed-size block I/O over a host file,
// addressed through small integer handles the way the original Pascal/C
// "disk" layer did: a process-wide slice of open disks where a handle is
// simply that disk's index. Handles are never recycled within a Table's
// lifetime, even after Close.
package blockdev

import (
	"io"
	"os"

	"github.com/blockstore/tinyfs"
)

// Handle identifies one open block device within a Table.
type Handle int

// backend is what a device needs from its underlying storage: random
// access reads and writes, and an optional way to close. *os.File
// satisfies it directly; OpenStream wraps an io.ReadWriteSeeker (as used
// by in-memory test fixtures) to satisfy it via Seek.
type backend interface {
	io.ReaderAt
	io.WriterAt
}

type device struct {
	backend     backend
	closer      io.Closer
	totalBlocks uint32
	closed      bool
}

// seekBackend adapts an io.ReadWriteSeeker (which has no ReadAt/WriteAt)
// into the backend interface. It is not safe for concurrent use, matching
// the rest of this package.
type seekBackend struct {
	rws io.ReadWriteSeeker
}

func (s *seekBackend) ReadAt(p []byte, off int64) (int, error) {
	if _, err := s.rws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return io.ReadFull(s.rws, p)
}

func (s *seekBackend) WriteAt(p []byte, off int64) (int, error) {
	if _, err := s.rws.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return s.rws.Write(p)
}

// Table is a registry of open block devices. The zero value is ready to
// use; most callers want a single process-wide instance.
type Table struct {
	devices []*device
}

// NewTable creates an empty device table.
func NewTable() *Table {
	return &Table{}
}

// Open attaches a host file as a block device and returns its handle.
//
//   - nBytes == 0 attaches to an existing file without modifying it.
//   - nBytes > 0 creates (or truncates) the file and zero-fills it to that
//     length.
//   - nBytes < 0 is rejected with ErrDiskSize.
func (t *Table) Open(path string, nBytes int64) (Handle, error) {
	if nBytes < 0 {
		return -1, tinyfs.NewFSError(tinyfs.ErrDiskSize)
	}

	var (
		file        *os.File
		err         error
		totalBlocks uint32
	)

	if nBytes == 0 {
		file, err = os.OpenFile(path, os.O_RDWR, 0o644)
		if err != nil {
			return -1, tinyfs.ErrOpen.Wrap(err)
		}
		info, statErr := file.Stat()
		if statErr != nil {
			file.Close()
			return -1, tinyfs.ErrOpen.Wrap(statErr)
		}
		totalBlocks = uint32(info.Size() / tinyfs.BlockSize)
	} else {
		file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			return -1, tinyfs.ErrCreate.Wrap(err)
		}
		if err := file.Truncate(nBytes); err != nil {
			file.Close()
			return -1, tinyfs.ErrCreate.Wrap(err)
		}
		totalBlocks = uint32(nBytes / tinyfs.BlockSize)
	}

	t.devices = append(t.devices, &device{backend: file, closer: file, totalBlocks: totalBlocks})
	return Handle(len(t.devices) - 1), nil
}

// OpenStream attaches an already-open io.ReadWriteSeeker (an in-memory
// buffer in tests) as a block device of totalBlocks blocks, and returns its
// handle. Unlike Open, nothing is truncated or zero-filled; the stream is
// assumed to already be exactly totalBlocks*tinyfs.BlockSize bytes long.
func (t *Table) OpenStream(rws io.ReadWriteSeeker, totalBlocks uint32) Handle {
	var closer io.Closer
	if c, ok := rws.(io.Closer); ok {
		closer = c
	}
	t.devices = append(t.devices, &device{
		backend:     &seekBackend{rws: rws},
		closer:      closer,
		totalBlocks: totalBlocks,
	})
	return Handle(len(t.devices) - 1)
}

func (t *Table) get(h Handle) (*device, error) {
	if h < 0 || int(h) >= len(t.devices) {
		return nil, tinyfs.NewFSError(tinyfs.ErrInvalidDisk)
	}
	dev := t.devices[h]
	if dev.closed {
		return nil, tinyfs.NewFSError(tinyfs.ErrClosed)
	}
	return dev, nil
}

// TotalBlocks returns the number of blocks on the device identified by h.
func (t *Table) TotalBlocks(h Handle) (uint32, error) {
	dev, err := t.get(h)
	if err != nil {
		return 0, err
	}
	return dev.totalBlocks, nil
}

// Read fills buf (exactly tinyfs.BlockSize bytes) with block bNum's contents.
func (t *Table) Read(h Handle, bNum uint32, buf []byte) error {
	dev, err := t.get(h)
	if err != nil {
		return err
	}
	if bNum >= dev.totalBlocks {
		return tinyfs.NewFSError(tinyfs.ErrInvalidBNum)
	}
	if len(buf) != tinyfs.BlockSize {
		return tinyfs.ErrInvalidBNum.WithMessage("buffer must be exactly one block")
	}

	_, err = dev.backend.ReadAt(buf, int64(bNum)*tinyfs.BlockSize)
	if err != nil {
		return tinyfs.ErrInvalidDisk.Wrap(err)
	}
	return nil
}

// Write transfers exactly tinyfs.BlockSize bytes from buf to block bNum.
func (t *Table) Write(h Handle, bNum uint32, buf []byte) error {
	dev, err := t.get(h)
	if err != nil {
		return err
	}
	if bNum >= dev.totalBlocks {
		return tinyfs.NewFSError(tinyfs.ErrInvalidBNum)
	}
	if len(buf) != tinyfs.BlockSize {
		return tinyfs.ErrInvalidBNum.WithMessage("buffer must be exactly one block")
	}

	_, err = dev.backend.WriteAt(buf, int64(bNum)*tinyfs.BlockSize)
	if err != nil {
		return tinyfs.ErrInvalidDisk.Wrap(err)
	}
	return nil
}

// Close marks the handle closed. The slot is preserved so the handle value
// stays valid for error-reporting purposes, but further reads/writes fail
// with ErrClosed.
func (t *Table) Close(h Handle) error {
	dev, err := t.get(h)
	if err != nil {
		return err
	}
	dev.closed = true
	if dev.closer == nil {
		return nil
	}
	return dev.closer.Close()
}
