// Package tinyfs implements a small block-structured file system that lives
// entirely inside one host file treated as a raw block device.
//
// The file system has a single flat namespace (no directories beyond the
// root), fixed 256-byte blocks, and a superblock + bitmap + inode-table
// layout documented in the subpackages that implement each piece:
// internal/blockdev for raw block I/O and the write-back cache,
// internal/bitmapmgr for free-block tracking, internal/inodetbl and
// internal/inodeblk for file metadata, internal/openfiles for the
// per-mount open-file table, internal/diag for invariant checking, and
// fs for mounting an image and the operations that tie all of it together.
// registry wraps fs with the single-mounted-disk bookkeeping a caller
// expects; presets offers a handful of named disk sizes.
package tinyfs
