// Package fs implements the twelve mounted-filesystem operations on top of
// the block device, bitmap manager, inode table, and inode block codec.
// It orchestrates them the way the teacher's basedriver ties its block
// manager and inode codec together, but against a flat single-directory
// layout instead of a tree.
package fs

import (
	"github.com/blockstore/tinyfs"
	"github.com/blockstore/tinyfs/internal/bitmapmgr"
	"github.com/blockstore/tinyfs/internal/blockdev"
	"github.com/blockstore/tinyfs/internal/inodeblk"
	"github.com/blockstore/tinyfs/internal/inodetbl"
	"github.com/blockstore/tinyfs/internal/openfiles"
)

// FS is one mounted image: an open block device, its write-back cache, and
// the bitmap/inode-table managers built on top of it.
type FS struct {
	Path            string
	devices         *blockdev.Table
	handle          blockdev.Handle
	cache           *blockdev.Cache
	totalBlocks     uint32
	extensionBlocks uint8
	bitmap          *bitmapmgr.Manager
	inodes          *inodetbl.Manager
	open            *openfiles.Table
	clock           tinyfs.Clock
}

// Cache exposes the mounted image's block cache, for diagnostics.
func (f *FS) Cache() *blockdev.Cache { return f.cache }

// Bitmap exposes the mounted image's bitmap manager, for diagnostics.
func (f *FS) Bitmap() *bitmapmgr.Manager { return f.bitmap }

// Inodes exposes the mounted image's inode table manager, for diagnostics.
func (f *FS) Inodes() *inodetbl.Manager { return f.inodes }

// TotalBlocks returns the number of blocks in the mounted image.
func (f *FS) TotalBlocks() uint32 { return f.totalBlocks }

func (f *FS) withFlush(err *error) {
	if flushErr := f.cache.FlushAll(); *err == nil {
		*err = flushErr
	}
}

func (f *FS) getInode(blockNo uint32) (inodeblk.Inode, error) {
	buf, err := f.cache.ReadBlock(blockNo)
	if err != nil {
		return inodeblk.Inode{}, err
	}
	return inodeblk.Decode(buf), nil
}

func (f *FS) putInode(blockNo uint32, ino inodeblk.Inode) error {
	return f.cache.WriteBlock(blockNo, inodeblk.Encode(ino))
}

// freeBlocks frees every block in blocks, stopping at and returning the
// first error, if any.
func (f *FS) freeBlocks(blocks []uint32) error {
	for _, b := range blocks {
		if err := f.bitmap.MarkFree(b); err != nil {
			return err
		}
	}
	return nil
}

func validName(name string) bool {
	return len(name) > 0 && len(name) <= tinyfs.MaxNameLength
}

// Open allocates an inode table slot and one inode block for a brand-new
// data file named name, and returns its file descriptor.
func (f *FS) Open(name string) (fd int, err error) {
	defer f.withFlush(&err)

	if !validName(name) {
		return 0, tinyfs.NewFSError(tinyfs.ErrFailedCreate)
	}

	inodeBlockNo, err := f.bitmap.FindFree()
	if err != nil {
		return 0, tinyfs.NewFSError(tinyfs.ErrNoFreeBlocks)
	}
	if err := f.bitmap.MarkUsed(inodeBlockNo); err != nil {
		return 0, err
	}

	now := f.clock.Now()
	ino := inodeblk.Inode{
		Permissions: tinyfs.PermReadWrite,
		Type:        tinyfs.TypeData,
		CreatedAt:   now,
		AccessedAt:  now,
		ModifiedAt:  now,
	}
	if err := f.putInode(inodeBlockNo, ino); err != nil {
		_ = f.bitmap.MarkFree(inodeBlockNo)
		return 0, err
	}

	newFD, err := f.inodes.AllocateEntry(name, inodeBlockNo)
	if err != nil {
		_ = f.bitmap.MarkFree(inodeBlockNo)
		return 0, tinyfs.NewFSError(tinyfs.ErrNoFreeBlocks)
	}

	f.open.Set(newFD, &openfiles.OpenFile{Name: name, InodeBlockNo: inodeBlockNo})
	return newFD, nil
}

// Close discards fd's open-file entry without touching the disk.
func (f *FS) Close(fd int) (err error) {
	defer f.withFlush(&err)

	if _, getErr := f.open.Get(fd); getErr != nil {
		return getErr
	}
	f.open.Clear(fd)
	return nil
}

// Write replaces fd's contents with the first size/BlockSize whole blocks
// of buf and records size as the file's length. A partial trailing block
// is not stored; offsets past the last whole block fail with
// ErrInvalidOffset. Any blocks the file previously held are freed first,
// so repeated writes never orphan blocks.
func (f *FS) Write(fd int, buf []byte, size int) (err error) {
	defer f.withFlush(&err)

	entry, getErr := f.open.Get(fd)
	if getErr != nil {
		return getErr
	}

	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return err
	}
	if ino.Permissions == tinyfs.PermReadOnly {
		return tinyfs.NewFSError(tinyfs.ErrInvalidPerms)
	}
	if size < 0 || size > len(buf) {
		return tinyfs.NewFSError(tinyfs.ErrFileSize)
	}

	needed := size / tinyfs.BlockSize
	if needed > tinyfs.MaxDataBlocks {
		return tinyfs.NewFSError(tinyfs.ErrFileTooLarge)
	}

	free, err := f.bitmap.CountFree()
	if err != nil {
		return err
	}
	available := free + uint32(len(ino.Blocks))
	if uint32(needed) > available {
		return tinyfs.NewFSError(tinyfs.ErrNoFreeBlocks)
	}

	if err := f.freeBlocks(ino.Blocks); err != nil {
		return err
	}

	newBlocks := make([]uint32, 0, needed)
	for i := 0; i < needed; i++ {
		blockNo, err := f.bitmap.FindFree()
		if err != nil {
			return err
		}
		if err := f.bitmap.MarkUsed(blockNo); err != nil {
			return err
		}
		newBlocks = append(newBlocks, blockNo)
	}

	for i, blockNo := range newBlocks {
		start := i * tinyfs.BlockSize
		end := start + tinyfs.BlockSize
		if err := f.cache.WriteBlock(blockNo, buf[start:end]); err != nil {
			return err
		}
	}

	now := f.clock.Now()
	ino.Size = uint16(size)
	ino.Blocks = newBlocks
	ino.AccessedAt = now
	ino.ModifiedAt = now
	return f.putInode(entry.InodeBlockNo, ino)
}

// WriteByte overwrites the single byte at offset in fd's current contents.
func (f *FS) WriteByte(fd int, offset int, value byte) (err error) {
	defer f.withFlush(&err)

	entry, getErr := f.open.Get(fd)
	if getErr != nil {
		return getErr
	}
	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return err
	}
	if ino.Permissions == tinyfs.PermReadOnly {
		return tinyfs.NewFSError(tinyfs.ErrInvalidPerms)
	}
	if offset < 0 || offset >= int(ino.Size) {
		return tinyfs.NewFSError(tinyfs.ErrInvalidOffset)
	}
	blockIdx := offset / tinyfs.BlockSize
	if blockIdx >= len(ino.Blocks) {
		// Size counts bytes in a final partial block that Write never
		// actually allocated; that range isn't readable.
		return tinyfs.NewFSError(tinyfs.ErrInvalidOffset)
	}

	blockNo := ino.Blocks[blockIdx]
	block, err := f.cache.ReadBlock(blockNo)
	if err != nil {
		return err
	}
	block[offset%tinyfs.BlockSize] = value
	if err := f.cache.WriteBlock(blockNo, block); err != nil {
		return err
	}

	now := f.clock.Now()
	ino.AccessedAt = now
	ino.ModifiedAt = now
	return f.putInode(entry.InodeBlockNo, ino)
}

// ReadByte reads the byte at fd's current offset, then advances the offset
// by one.
func (f *FS) ReadByte(fd int) (value byte, err error) {
	defer f.withFlush(&err)

	entry, getErr := f.open.Get(fd)
	if getErr != nil {
		return 0, getErr
	}
	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return 0, err
	}
	if entry.Offset >= uint32(ino.Size) {
		return 0, tinyfs.NewFSError(tinyfs.ErrInvalidOffset)
	}
	blockIdx := entry.Offset / tinyfs.BlockSize
	if blockIdx >= uint32(len(ino.Blocks)) {
		// Size counts bytes in a final partial block that Write never
		// actually allocated; that range isn't readable.
		return 0, tinyfs.NewFSError(tinyfs.ErrInvalidOffset)
	}

	blockNo := ino.Blocks[blockIdx]
	block, err := f.cache.ReadBlock(blockNo)
	if err != nil {
		return 0, err
	}
	value = block[entry.Offset%tinyfs.BlockSize]

	entry.Offset++
	f.open.Set(fd, entry)

	ino.AccessedAt = f.clock.Now()
	if err := f.putInode(entry.InodeBlockNo, ino); err != nil {
		return 0, err
	}
	return value, nil
}

// Seek sets fd's current offset to an absolute position, which must be
// strictly less than the file's current size.
func (f *FS) Seek(fd int, offset uint32) (err error) {
	defer f.withFlush(&err)

	entry, getErr := f.open.Get(fd)
	if getErr != nil {
		return getErr
	}
	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return err
	}
	if offset >= uint32(ino.Size) {
		return tinyfs.NewFSError(tinyfs.ErrInvalidSeek)
	}

	entry.Offset = offset
	f.open.Set(fd, entry)
	return nil
}

// Delete frees every block the file holds, including its inode block, then
// clears both the inode table entry and the open-file entry so every
// subsequent operation against fd fails with ErrInvalidFD.
func (f *FS) Delete(fd int) (err error) {
	defer f.withFlush(&err)

	entry, getErr := f.open.Get(fd)
	if getErr != nil {
		return getErr
	}
	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return err
	}
	if ino.Permissions == tinyfs.PermReadOnly {
		return tinyfs.NewFSError(tinyfs.ErrInvalidPerms)
	}

	if err := f.freeBlocks(ino.Blocks); err != nil {
		return err
	}
	if err := f.bitmap.MarkFree(entry.InodeBlockNo); err != nil {
		return err
	}
	if err := f.inodes.FreeEntry(fd); err != nil {
		return err
	}
	f.open.Clear(fd)
	return nil
}

// findOpenByName linear-scans the open-file table for name, mirroring the
// original flat API's get_FD.
func (f *FS) findOpenByName(name string) (int, *openfiles.OpenFile, error) {
	for _, fd := range f.open.OpenFDs() {
		entry, err := f.open.Get(fd)
		if err != nil {
			continue
		}
		if entry.Name == name {
			return fd, entry, nil
		}
	}
	return 0, nil, tinyfs.NewFSError(tinyfs.ErrFileNotFound)
}

func (f *FS) setPermission(name string, perm tinyfs.Permission) (err error) {
	defer f.withFlush(&err)

	_, entry, findErr := f.findOpenByName(name)
	if findErr != nil {
		return findErr
	}
	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return err
	}
	ino.Permissions = perm
	now := f.clock.Now()
	ino.AccessedAt = now
	ino.ModifiedAt = now
	return f.putInode(entry.InodeBlockNo, ino)
}

// MakeRO marks the open file named name read-only.
func (f *FS) MakeRO(name string) error {
	return f.setPermission(name, tinyfs.PermReadOnly)
}

// MakeRW marks the open file named name read-write.
func (f *FS) MakeRW(name string) error {
	return f.setPermission(name, tinyfs.PermReadWrite)
}

// Stat returns fd's current metadata.
func (f *FS) Stat(fd int) (stat tinyfs.Stat, err error) {
	defer f.withFlush(&err)

	entry, getErr := f.open.Get(fd)
	if getErr != nil {
		return tinyfs.Stat{}, getErr
	}
	ino, err := f.getInode(entry.InodeBlockNo)
	if err != nil {
		return tinyfs.Stat{}, err
	}

	return tinyfs.Stat{
		Name:         entry.Name,
		FD:           fd,
		Permissions:  ino.Permissions,
		Type:         ino.Type,
		Size:         int64(ino.Size),
		NBlocks:      ino.NBlocks,
		CreatedAt:    ino.CreatedAt,
		LastAccessed: ino.AccessedAt,
		LastModified: ino.ModifiedAt,
	}, nil
}

// FSStat reports the mounted image's own block accounting.
func (f *FS) FSStat() (tinyfs.FSStat, error) {
	free, err := f.bitmap.CountFree()
	if err != nil {
		return tinyfs.FSStat{}, err
	}
	return tinyfs.FSStat{
		BlockSize:       tinyfs.BlockSize,
		TotalBlocks:     f.totalBlocks,
		ExtensionBlocks: f.extensionBlocks,
		BlocksFree:      free,
		BlocksUsed:      f.totalBlocks - 8 - free,
	}, nil
}
