package fat

import (
	"context"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
)

const preDataBurstSectors = 8

// isSectorAllocated: metadata sectors are always allocated, the
// non-clustered tail past the last cluster is never allocated, and every
// other sector defers to the FAT entry of its containing cluster.
func (fs *FsInfo) isSectorAllocated(sector SectorIndex) (bool, error) {
	if sector < fs.geom.FirstClusterSector {
		return true, nil
	}

	tailStart := fs.geom.FirstClusterSector + SectorIndex(fs.geom.ClusterSizeSectors)*SectorIndex(fs.geom.ClusterCount)
	if sector >= tailStart && sector <= fs.geom.LastBlock {
		return false, nil
	}

	cluster := fs.sectorToCluster(sector)
	value, err := fs.geom.getFat(fs.cache, fs.diag, cluster)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

func (fs *FsInfo) sectorToCluster(sector SectorIndex) ClusterIndex {
	offset := uint64(sector) - uint64(fs.geom.FirstClusterSector)
	return ClusterIndex(2 + offset/uint64(fs.geom.ClusterSizeSectors))
}

func (fs *FsInfo) clusterStartSector(cluster ClusterIndex) SectorIndex {
	return fs.geom.FirstClusterSector + SectorIndex((uint64(cluster)-2)*uint64(fs.geom.ClusterSizeSectors))
}

// BlockWalk classifies and streams every sector in [startBlock, endBlock]
// matching flags to callback, in ascending address order. The pre-data
// region (boot sector, FAT tables, static root directory) is read in
// 8-sector bursts; the data area is read one cluster at a time with a
// single allocation lookup per cluster.
func (fs *FsInfo) BlockWalk(ctx context.Context, startBlock, endBlock SectorIndex, flags common.WalkFlag, callback common.BlockWalkCallback, userPtr any) error {
	resolved := flags.Resolve()

	if startBlock > endBlock || endBlock > fs.geom.LastBlock {
		return fserrors.WalkRange.WithMessage("start/end block out of bounds")
	}

	addr := startBlock

	// Phase A: pre-data region, read in bursts of exactly 8 sectors.
	if resolved&common.WalkAlloc != 0 {
		for addr <= endBlock && addr < fs.geom.FirstClusterSector {
			if err := ctx.Err(); err != nil {
				return fserrors.Read.WrapError(err)
			}

			burstEnd := addr + preDataBurstSectors
			if burstEnd > fs.geom.FirstClusterSector {
				burstEnd = fs.geom.FirstClusterSector
			}
			if burstEnd > endBlock+1 {
				burstEnd = endBlock + 1
			}

			burstLen := int(burstEnd - addr)
			buf := make([]byte, burstLen*fs.geom.SectorSize)
			if err := fs.reader.ReadAt(int64(addr)*int64(fs.geom.SectorSize), buf); err != nil {
				return fserrors.Read.WrapError(err)
			}

			for i := 0; i < burstLen; i++ {
				cur := addr + SectorIndex(i)
				classification := common.FlagCont
				if cur < fs.geom.FirstDataSector {
					classification = common.FlagMeta
				}
				if !resolved.Allows(classification) {
					continue
				}

				view := common.BlockView{
					Addr:  cur,
					Flags: classification | common.FlagAlloc | common.FlagRaw,
					Data:  buf[i*fs.geom.SectorSize : (i+1)*fs.geom.SectorSize],
				}
				action := callback(view, userPtr)
				switch action {
				case common.WalkStop:
					return nil
				case common.WalkError:
					return fserrors.Read.WithMessage("callback returned ERROR during pre-data walk")
				}
			}

			addr = burstEnd
		}
	}

	if addr < fs.geom.FirstClusterSector {
		addr = fs.geom.FirstClusterSector
	}
	if addr > endBlock {
		return nil
	}

	// Phase B: cluster area, aligned reads of one cluster at a time.
	cluster := fs.sectorToCluster(addr)
	clusterStart := fs.clusterStartSector(cluster)
	clusterSectors := SectorIndex(fs.geom.ClusterSizeSectors)

	for clusterStart <= endBlock {
		if err := ctx.Err(); err != nil {
			return fserrors.Read.WrapError(err)
		}

		allocated, err := fs.isSectorAllocated(clusterStart)
		if err != nil {
			return err
		}

		classification := common.FlagCont
		if allocated {
			classification |= common.FlagAlloc
		} else {
			classification |= common.FlagUnalloc
		}

		clusterEnd := clusterStart + clusterSectors - 1
		readSectors := clusterSectors
		if clusterEnd > endBlock {
			readSectors = endBlock - clusterStart + 1
		}

		if resolved.Allows(classification) {
			buf := make([]byte, int(readSectors)*fs.geom.SectorSize)
			if err := fs.reader.ReadAt(int64(clusterStart)*int64(fs.geom.SectorSize), buf); err != nil {
				return fserrors.Read.WrapError(err)
			}

			for i := SectorIndex(0); i < readSectors; i++ {
				cur := clusterStart + i
				if cur < startBlock || cur > endBlock {
					continue
				}
				view := common.BlockView{
					Addr:  cur,
					Flags: classification | common.FlagRaw,
					Data:  buf[int(i)*fs.geom.SectorSize : int(i+1)*fs.geom.SectorSize],
				}
				action := callback(view, userPtr)
				switch action {
				case common.WalkStop:
					return nil
				case common.WalkError:
					return fserrors.Read.WithMessage("callback returned ERROR during cluster walk")
				}
			}
		}

		clusterStart += clusterSectors
	}

	return nil
}

// BlockGetFlags classifies a single sector without walking.
func (fs *FsInfo) BlockGetFlags(sector SectorIndex) (common.BlockFlag, error) {
	if sector > fs.geom.LastBlock {
		return 0, fserrors.BlockNumber.WithMessage("sector out of range")
	}

	if sector < fs.geom.FirstClusterSector {
		classification := common.FlagCont
		if sector < fs.geom.FirstDataSector {
			classification = common.FlagMeta
		}
		return classification | common.FlagAlloc, nil
	}

	allocated, err := fs.isSectorAllocated(sector)
	if err != nil {
		return 0, err
	}
	if allocated {
		return common.FlagCont | common.FlagAlloc, nil
	}
	return common.FlagCont | common.FlagUnalloc, nil
}
