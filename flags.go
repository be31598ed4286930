package tinyfs

// Permission is the single permission bit stored in an inode.
type Permission uint8

const (
	PermReadWrite Permission = 0
	PermReadOnly  Permission = 1
)

// FileType is the type byte stored in an inode, distinguishing the
// superblock's own bookkeeping entry from a directory placeholder (the root
// itself, never separately allocated) and an ordinary data file.
type FileType uint8

const (
	TypeSuperblock FileType = 0
	TypeDirectory  FileType = 1
	TypeData       FileType = 2
)

const (
	// BlockSize is the fixed size of every block on disk, in bytes.
	BlockSize = 256
	// MaxNameLength is the longest a file name may be.
	MaxNameLength = 8
	// MaxDataBlocks is the largest number of data blocks a single inode's
	// embedded block list can hold.
	MaxDataBlocks = 59
	// MaxFileSize is the largest number of bytes a file can store, given
	// MaxDataBlocks blocks of BlockSize each.
	MaxFileSize = MaxDataBlocks * BlockSize
)
