package tinyfs

// Stat describes everything the file system tracks about one open file:
// Name and FD come from its open-file entry, everything else from its
// inode block.
type Stat struct {
	Name        string
	FD          int
	Permissions Permission
	Type        FileType
	Size        int64
	NBlocks     uint32
	CreatedAt   uint32
	LastAccessed uint32
	LastModified uint32
}

// FSStat describes the mounted image as a whole. It's a diagnostic
// convenience on top of the twelve core operations, not one of them.
type FSStat struct {
	BlockSize      int
	TotalBlocks    uint32
	ExtensionBlocks uint8
	BlocksFree     uint32
	BlocksUsed     uint32
}
