package fat

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	"github.com/forensicfs/tskfs/fserrors"
)

// ListClusters returns every cluster in the chain beginning at chainStart,
// in chain order. The resolver itself carries no loop guard, so this is
// where cycle detection lives: a visited bitmap sized to the cluster space,
// consulted before each step. A revisited cluster means the chain loops in
// a corrupted image and fails with INODE_COR.
//
// For a valid chainStart the returned list has it as its first member; an
// invalid chainStart fails with ARG and a nil list. A chain that
// runs into a FREE entry is truncated at that point and reported to the
// diagnostics sink rather than failing, since a clamped entry (see getFat)
// surfaces as FREE too.
func (fs *FsInfo) ListClusters(chainStart ClusterIndex) ([]ClusterIndex, error) {
	if chainStart < 2 || uint64(chainStart) > uint64(fs.geom.LastCluster) {
		return nil, fserrors.ARG.WithMessage(
			fmt.Sprintf("invalid cluster %d cannot start a cluster chain", chainStart))
	}

	visited := bitmap.New(int(fs.geom.LastCluster) + 1)
	chain := []ClusterIndex{}
	current := chainStart

	for {
		if visited.Get(int(current)) {
			return chain, fserrors.InodeCorrupt.WithMessage(fmt.Sprintf(
				"cluster chain from %d revisits cluster %d after %d steps",
				chainStart, current, len(chain)))
		}
		visited.Set(int(current), true)
		chain = append(chain, current)

		next, err := fs.GetFat(current)
		if err != nil {
			return chain, err
		}

		if fs.geom.isEndOfChain(next) {
			return chain, nil
		}
		if fs.geom.isFree(next) {
			fs.diag.Record(DiagnosticRow{
				Kind:    "chain-truncated",
				Cluster: uint32(current),
				Detail: fmt.Sprintf(
					"chain from %d ends on a free entry at index %d instead of an end-of-chain marker",
					chainStart, len(chain)-1),
			})
			return chain, nil
		}
		if next < 2 || uint64(next) > uint64(fs.geom.LastCluster) {
			return chain, fserrors.InodeCorrupt.WithMessage(fmt.Sprintf(
				"cluster %d followed by invalid cluster 0x%x in chain from %d",
				current, uint32(next), chainStart))
		}

		current = next
	}
}
