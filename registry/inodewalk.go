package registry

import (
	"context"
	"fmt"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
)

// hbinHeaderSize is the fixed size of the "hbin" page header that precedes
// the first cell in every HBIN block.
const hbinHeaderSize = 32

// CellWalkCallback is invoked once per cell visited by CellWalk, with the
// fully decoded cell header (offset, type, allocation state).
type CellWalkCallback func(cell *Cell, userPtr any) common.WalkAction

// CellWalk streams every cell whose start offset lies in [startInum,
// endInum] to callback, in ascending offset order. The walk is page by
// page: start right after each HBIN's page header and hop cell to cell by
// consuming |length| bytes at a time. A zero-length cell or one overrunning
// its page means the hive is corrupted and aborts the walk.
func (fs *FsInfo) CellWalk(ctx context.Context, startInum, endInum common.InodeNumber, flags common.WalkFlag, callback CellWalkCallback, userPtr any) error {
	if uint64(startInum) < uint64(fs.firstInum) {
		startInum = fs.firstInum
	}
	if uint64(endInum) > uint64(fs.lastInum) {
		endInum = fs.lastInum
	}
	if startInum > endInum {
		return fserrors.BlockNumber.WithMessage("inode walk range outside hive bounds")
	}

	resolved := flags.Resolve()

	hbinStart := uint64(startInum) - (uint64(startInum) % HbinSize)

	for hbinStart <= uint64(endInum) {
		if err := ctx.Err(); err != nil {
			return fserrors.Read.WrapError(err)
		}

		addr := hbinStart + hbinHeaderSize
		hbinEnd := hbinStart + HbinSize

		for addr < hbinEnd {
			cell, err := LoadCell(fs.reader, fs.diag, fs.firstInum, fs.lastInum, common.InodeNumber(addr))
			if err != nil {
				return err
			}

			if cell.Length == 0 {
				fs.diag.Record(RegistryDiagnosticsRow{
					Kind:   "cell-zero-length",
					Inum:   addr,
					Detail: "zeroed cell header mid-page, remaining cells unreachable",
				})
				return fserrors.InodeCorrupt.WithMessage("zero-length registry cell")
			}
			if addr+uint64(cell.Length) > hbinEnd {
				fs.diag.Record(RegistryDiagnosticsRow{
					Kind: "cell-overrun",
					Inum: addr,
					Detail: fmt.Sprintf("declared length %d runs %d bytes past the containing HBIN",
						cell.Length, addr+uint64(cell.Length)-hbinEnd),
				})
				return fserrors.InodeCorrupt.WithMessage("cell overran into subsequent HBIN header")
			}

			if uint64(cell.Inum) >= uint64(startInum) && uint64(cell.Inum) <= uint64(endInum) {
				classification := common.FlagMeta
				if cell.IsAllocated {
					classification |= common.FlagAlloc
				} else {
					classification |= common.FlagUnalloc
				}

				if resolved.Allows(classification) {
					action := callback(cell, userPtr)
					switch action {
					case common.WalkStop:
						return nil
					case common.WalkError:
						return fserrors.Read.WithMessage("callback returned ERROR during inode walk")
					}
				}
			}

			addr += uint64(cell.Length)
		}

		hbinStart += HbinSize
	}

	return nil
}

// InodeWalk adapts CellWalk to the generic capability-record callback,
// reducing each cell to an inode view.
func (fs *FsInfo) InodeWalk(ctx context.Context, startInum, endInum common.InodeNumber, flags common.WalkFlag, callback common.InodeWalkCallback, userPtr any) error {
	return fs.CellWalk(ctx, startInum, endInum, flags, func(cell *Cell, userPtr any) common.WalkAction {
		classification := common.FlagMeta
		if cell.IsAllocated {
			classification |= common.FlagAlloc
		} else {
			classification |= common.FlagUnalloc
		}
		view := common.InodeView{
			Inum:  cell.Inum,
			Flags: classification,
		}
		return callback(view, userPtr)
	}, userPtr)
}
