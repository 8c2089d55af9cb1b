package common

import "context"

// FileSystem is the capability record every opened file system (FAT or
// Registry) binds at Open: a plain interface rather than struct embedding
// or inheritance. Each variant implements the full set, stubbing whatever
// it doesn't support with UNSUPFUNC.
type FileSystem interface {
	// BlockWalk streams every block in [startBlock, endBlock] matching flags
	// to callback, in strictly ascending address order.
	BlockWalk(ctx context.Context, startBlock, endBlock SectorID, flags WalkFlag, callback BlockWalkCallback, userPtr any) error

	// BlockGetFlags classifies a single block without walking.
	BlockGetFlags(block SectorID) (BlockFlag, error)

	// InodeWalk streams every inode in [startInum, endInum] matching flags
	// to callback. FAT stubs this (directory-entry inode walking lives in a
	// higher layer); Registry walks hive cells.
	InodeWalk(ctx context.Context, startInum, endInum InodeNumber, flags WalkFlag, callback InodeWalkCallback, userPtr any) error

	// Istat, Fsstat, and Fscheck belong to the higher layers (directory
	// entry parsing, attribute loading, textual pretty-printing); every
	// implementation here stubs them with UNSUPFUNC.
	Istat(inum InodeNumber) (string, error)
	Fsstat() (string, error)
	Fscheck() error

	// Close releases every buffer owned by this handle.
	Close() error

	// JBlockWalk, JEntryWalk, and JOpen are journal operations. Neither FAT
	// nor the Registry hive format supports journaling; both always fail
	// UNSUPFUNC.
	JBlockWalk(ctx context.Context, callback BlockWalkCallback, userPtr any) error
	JEntryWalk(ctx context.Context, callback BlockWalkCallback, userPtr any) error
	JOpen() error

	// NameCmp compares two names under this file system's case-folding
	// rules. Both variants fold case; the full FAT short-name matching
	// rules live in the directory-entry layer.
	NameCmp(a, b string) bool
}
