package fat

import (
	"fmt"

	"github.com/forensicfs/tskfs/fserrors"
)

// getFat resolves one FAT entry: given a cluster index it returns the
// successor cluster, an end-of-chain sentinel, or 0 (free). Entries larger
// than the last cluster but below the end-of-chain threshold are scrubbed to
// free; those repairs are recorded to diag rather than reported as errors.
func (g *Geometry) getFat(cache *sectorCache, diag DiagnosticsSink, cluster ClusterIndex) (ClusterIndex, error) {
	if uint64(cluster) > uint64(g.LastCluster) {
		// Requests one past the last cluster are accepted silently when a
		// non-clustered tail region follows the data area.
		lastDataSector := uint64(g.FirstClusterSector) + uint64(g.ClusterSizeSectors)*g.ClusterCount - 1
		if uint64(cluster) == uint64(g.LastCluster)+1 && lastDataSector != uint64(g.LastBlock) {
			return 0, nil
		}
		return 0, fserrors.ARG.WithMessage(
			fmt.Sprintf("invalid cluster address: %d", cluster))
	}

	switch g.Flavor {
	case FAT12:
		return g.getFat12(cache, diag, cluster)
	case FAT16:
		return g.getFat16(cache, diag, cluster)
	case FAT32, XTAF:
		return g.getFat32(cache, diag, cluster)
	default:
		return 0, fserrors.ARG.WithMessage("unknown FAT flavor")
	}
}

func (g *Geometry) clampSanity(diag DiagnosticsSink, cluster ClusterIndex, value uint32, mask uint32) ClusterIndex {
	if uint64(value) > uint64(g.LastCluster) && value < (0x0FFFFFF7&mask) {
		diag.Record(DiagnosticRow{
			Kind:    "fat-entry-clamped",
			Cluster: uint32(cluster),
			Detail:  fmt.Sprintf("entry %d exceeds last cluster %d, treated as free", value, g.LastCluster),
		})
		return 0
	}
	return ClusterIndex(value)
}

func (g *Geometry) getFat12(cache *sectorCache, diag DiagnosticsSink, cluster ClusterIndex) (ClusterIndex, error) {
	if cluster&0xf000 != 0 {
		return 0, fserrors.ARG.WithMessage(
			fmt.Sprintf("FAT12 cluster %d too large", cluster))
	}

	byteIndex := uint64(cluster) + uint64(cluster>>1)
	sector := g.FirstFATSector + SectorIndex(byteIndex>>g.SectorShift)

	idx, err := cache.acquire(sector)
	if err != nil {
		return 0, err
	}

	offs := cache.offsetInSlot(idx, sector, int(byteIndex))

	// Special case: the 12-bit value straddles the last byte of the cache
	// buffer. Reload the slot to start at this sector (TTLs were already
	// updated by acquire above) and recompute the offset within it.
	if offs == cache.slotBytes-1 {
		if err := cache.reloadAt(idx, sector); err != nil {
			return 0, fserrors.Read.WithMessage(
				fmt.Sprintf("FAT12 FAT overlap reload failed at sector %d", sector))
		}
		offs = int(byteIndex) % g.SectorSize
	}

	raw := readU16LE(cache.buf[idx], offs)
	if cluster&1 != 0 {
		raw >>= 4
	}
	value := uint32(raw) & g.EndOfChainMask

	return g.clampSanity(diag, cluster, value, g.EndOfChainMask), nil
}

func (g *Geometry) getFat16(cache *sectorCache, diag DiagnosticsSink, cluster ClusterIndex) (ClusterIndex, error) {
	sector := g.FirstFATSector + SectorIndex((uint64(cluster)<<1)>>g.SectorShift)

	idx, err := cache.acquire(sector)
	if err != nil {
		return 0, err
	}

	offs := cache.offsetInSlot(idx, sector, int(uint64(cluster)<<1))
	value := uint32(readU16LE(cache.buf[idx], offs)) & g.EndOfChainMask

	return g.clampSanity(diag, cluster, value, g.EndOfChainMask), nil
}

func (g *Geometry) getFat32(cache *sectorCache, diag DiagnosticsSink, cluster ClusterIndex) (ClusterIndex, error) {
	sector := g.FirstFATSector + SectorIndex((uint64(cluster)<<2)>>g.SectorShift)

	idx, err := cache.acquire(sector)
	if err != nil {
		return 0, err
	}

	offs := cache.offsetInSlot(idx, sector, int(uint64(cluster)<<2))
	value := readU32LE(cache.buf[idx], offs) & g.EndOfChainMask

	return g.clampSanity(diag, cluster, value, g.EndOfChainMask), nil
}

func readU16LE(buf []byte, offset int) uint16 {
	return uint16(buf[offset]) | uint16(buf[offset+1])<<8
}

func readU32LE(buf []byte, offset int) uint32 {
	return uint32(buf[offset]) | uint32(buf[offset+1])<<8 |
		uint32(buf[offset+2])<<16 | uint32(buf[offset+3])<<24
}

// isEndOfChain reports whether value is an end-of-chain sentinel: any value
// >= (0x0FFFFFF7 & mask) within the flavor's entry width.
func (g *Geometry) isEndOfChain(value ClusterIndex) bool {
	return uint32(value) >= (0x0FFFFFF7 & g.EndOfChainMask)
}

// isFree reports whether value is the FREE sentinel.
func (g *Geometry) isFree(value ClusterIndex) bool {
	return value == 0
}
