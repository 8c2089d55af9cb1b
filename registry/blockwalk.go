package registry

import (
	"context"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
)

// BlockWalk streams HBIN pages [startBlk, endBlk) to callback, one HbinSize
// read per page at absolute offset blk*HbinSize. Every HBIN carries the
// full ALLOC|META|CONT classification.
func (fs *FsInfo) BlockWalk(ctx context.Context, startBlk, endBlk common.SectorID, flags common.WalkFlag, callback common.BlockWalkCallback, userPtr any) error {
	// endBlk is exclusive, so it may point one page past the last HBIN.
	if startBlk > endBlk || uint64(endBlk) > fs.lastHbinIndex()+1 {
		return fserrors.WalkRange.WithMessage("start/end HBIN index out of bounds")
	}

	resolved := flags.Resolve()
	classification := common.FlagAlloc | common.FlagMeta | common.FlagCont
	if !resolved.Allows(classification) {
		return nil
	}

	for blk := startBlk; blk < endBlk; blk++ {
		if err := ctx.Err(); err != nil {
			return fserrors.Read.WrapError(err)
		}

		buf := make([]byte, HbinSize)
		if err := fs.reader.ReadAt(int64(blk)*HbinSize, buf); err != nil {
			return fserrors.Read.WrapError(err)
		}

		view := common.BlockView{
			Addr:  blk,
			Flags: classification | common.FlagRaw,
			Data:  buf,
		}
		action := callback(view, userPtr)
		switch action {
		case common.WalkStop:
			return nil
		case common.WalkError:
			return fserrors.Read.WithMessage("callback returned ERROR during HBIN walk")
		}
	}

	return nil
}

// BlockGetFlags classifies a single HBIN without walking. Every HBIN is
// always ALLOC|META|CONT.
func (fs *FsInfo) BlockGetFlags(blk common.SectorID) (common.BlockFlag, error) {
	if uint64(blk) > fs.lastHbinIndex() {
		return 0, fserrors.BlockNumber.WithMessage("HBIN index out of range")
	}
	return common.FlagAlloc | common.FlagMeta | common.FlagCont, nil
}

func (fs *FsInfo) lastHbinIndex() uint64 {
	return uint64(fs.header.LastHbinOffset) / HbinSize
}
