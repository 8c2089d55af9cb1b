package fat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicfs/tskfs/internal/testutil"
)

// newTestCache builds a sectorCache over a trivial zero-filled image large
// enough to serve any sector the cache monotonicity/LRU tests below touch.
func newTestCache(t *testing.T, slots, sectorsPerSlot, sectorSize int) *sectorCache {
	t.Helper()
	image := make([]byte, 4096*sectorSize)
	reader := testutil.NewImageReader(image)
	return newSectorCache(reader, slots, sectorsPerSlot, sectorSize)
}

// TestCacheMonotonicity: after any sequence of acquire calls, ttl values
// among slots with ttl>0 are pairwise distinct, and exactly one slot has
// ttl=1 (the most recently acquired one).
func TestCacheMonotonicity(t *testing.T) {
	c := newTestCache(t, 3, 2, 512)

	sectors := []SectorIndex{10, 20, 30, 20, 40}
	var lastIdx int
	for _, s := range sectors {
		idx, err := c.acquire(s)
		require.NoError(t, err)
		lastIdx = idx
	}

	seen := map[int]bool{}
	for i := 0; i < c.slotsN; i++ {
		if c.ttl[i] == 0 {
			continue
		}
		assert.Falsef(t, seen[c.ttl[i]], "ttl %d reused across slots", c.ttl[i])
		seen[c.ttl[i]] = true
	}
	assert.Equal(t, 1, c.ttl[lastIdx], "most recently acquired slot must have ttl=1")
}

// TestCacheLRU: for a cache of N slots, after N+1 acquires of pairwise
// distinct, non-overlapping sectors, the slot not referenced again is the
// one reused by the most recent acquire.
func TestCacheLRU(t *testing.T) {
	const slots = 3
	c := newTestCache(t, slots, 2, 512)

	// Non-overlapping sectors: each covers a distinct [base, base+2) range.
	bases := []SectorIndex{0, 2, 4}
	var slotIdx [3]int
	for i, s := range bases {
		idx, err := c.acquire(s)
		require.NoError(t, err)
		slotIdx[i] = idx
	}
	assert.ElementsMatch(t, []int{0, 1, 2}, slotIdx[:], "expected all three slots populated once")

	// Fourth acquire of a fresh, non-overlapping sector must evict the LRU
	// slot: the one backing bases[0] (ttl was aged to 3, the oldest).
	victimBefore := slotIdx[0]
	newIdx, err := c.acquire(SectorIndex(6))
	require.NoError(t, err)
	assert.Equal(t, victimBefore, newIdx, "expected the LRU slot to be reused")
	assert.Equal(t, SectorIndex(6), c.baseAddr[newIdx])
}

// TestCacheHitPromotesWithoutReread verifies a hit returns the existing
// slot and promotes it to MRU without re-reading the backing image.
func TestCacheHitPromotesWithoutReread(t *testing.T) {
	c := newTestCache(t, 2, 2, 512)

	idx1, err := c.acquire(SectorIndex(0))
	require.NoError(t, err)
	_, err = c.acquire(SectorIndex(10))
	require.NoError(t, err)

	// Re-acquire a sector within the first slot's range: must hit and
	// promote, not evict.
	idx1Again, err := c.acquire(SectorIndex(1))
	require.NoError(t, err)
	assert.Equal(t, idx1, idx1Again)
	assert.Equal(t, 1, c.ttl[idx1Again])
	// A miss would have reloaded the slot starting at sector 1.
	assert.Equal(t, SectorIndex(0), c.baseAddr[idx1Again], "a hit must not reload the slot")
}
