// Package common holds the value types shared by the fat and registry
// packages: sector/cluster addressing, block flags, and the walk callback
// contract both file system kinds bind into their capability record.
package common

// SectorID is an absolute sector address within an opened file system region.
type SectorID uint64

// ClusterID is a FAT cluster index. Valid cluster indices start at 2.
type ClusterID uint32

// InodeNumber is a generic inode address: a directory-entry slot index for
// FAT, or a byte offset from the image start for a Registry cell.
type InodeNumber uint64

// BlockFlag describes the classification of a single block delivered to a
// walk callback. Flags compose: a block may be, e.g., ALLOC|CONT.
type BlockFlag uint16

const (
	// FlagAlloc marks a block as allocated.
	FlagAlloc BlockFlag = 1 << iota
	// FlagUnalloc marks a block as unallocated.
	FlagUnalloc
	// FlagMeta marks a block as belonging to file system metadata (boot
	// sector, FAT table, REGF header).
	FlagMeta
	// FlagCont marks a block as belonging to file content (root directory,
	// data clusters, HBIN pages).
	FlagCont
	// FlagRaw marks a block whose contents are delivered without further
	// interpretation.
	FlagRaw
)

func (f BlockFlag) Has(bit BlockFlag) bool {
	return f&bit != 0
}

// WalkFlag selects which classes of block/inode a walk should visit. The
// zero value means "unset"; Resolve fills in the documented defaults.
type WalkFlag uint16

const (
	WalkAlloc WalkFlag = 1 << iota
	WalkUnalloc
	WalkMeta
	WalkCont
)

// Resolve applies the "absent filters mean include all" rule: if neither
// ALLOC nor UNALLOC is set, both are turned on; same for META/CONT.
func (f WalkFlag) Resolve() WalkFlag {
	resolved := f
	if resolved&(WalkAlloc|WalkUnalloc) == 0 {
		resolved |= WalkAlloc | WalkUnalloc
	}
	if resolved&(WalkMeta|WalkCont) == 0 {
		resolved |= WalkMeta | WalkCont
	}
	return resolved
}

func (f WalkFlag) allows(flags BlockFlag) bool {
	if flags.Has(FlagAlloc) && f&WalkAlloc == 0 {
		return false
	}
	if flags.Has(FlagUnalloc) && f&WalkUnalloc == 0 {
		return false
	}
	if flags.Has(FlagMeta) && f&WalkMeta == 0 {
		return false
	}
	if flags.Has(FlagCont) && f&WalkCont == 0 {
		return false
	}
	return true
}

// Allows reports whether a block classified with flags should be delivered
// to the callback under the resolved walk filter f.
func (f WalkFlag) Allows(flags BlockFlag) bool {
	return f.Resolve().allows(flags)
}

// WalkAction is the value a walk callback returns to control iteration.
type WalkAction int

const (
	WalkContinue WalkAction = iota
	WalkStop
	WalkError
)

// BlockView is handed to a block-walk callback for a single addressed block.
type BlockView struct {
	Addr  SectorID
	Flags BlockFlag
	Data  []byte
}

// InodeView is handed to an inode-walk callback for a single addressed
// inode (a FAT directory-entry slot, or a Registry cell).
type InodeView struct {
	Inum  InodeNumber
	Flags BlockFlag
	Data  []byte
}

// BlockWalkCallback is invoked once per block visited by a block walk.
type BlockWalkCallback func(view BlockView, userPtr any) WalkAction

// InodeWalkCallback is invoked once per inode visited by an inode walk.
type InodeWalkCallback func(view InodeView, userPtr any) WalkAction
