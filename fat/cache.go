package fat

import (
	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/imgreader"
)

// sectorCache amortizes repeated reads of FAT table sectors during chain
// walking. Slots are ranked by a time-to-live counter: ttl 0 marks an unused
// slot, 1 the most recent access, higher values older ones. Nonzero ttl
// values stay pairwise distinct across slots.
type sectorCache struct {
	slotsN         int
	sectorsPerSlot int
	sectorSize     int
	slotBytes      int

	ttl      []int
	baseAddr []SectorIndex
	buf      [][]byte

	reader imgreader.ImageReader
}

// newSectorCache allocates slotsN slots of sectorsPerSlot sectors each, all
// initially unused.
func newSectorCache(reader imgreader.ImageReader, slotsN, sectorsPerSlot, sectorSize int) *sectorCache {
	c := &sectorCache{
		slotsN:         slotsN,
		sectorsPerSlot: sectorsPerSlot,
		sectorSize:     sectorSize,
		slotBytes:      sectorsPerSlot * sectorSize,
		ttl:            make([]int, slotsN),
		baseAddr:       make([]SectorIndex, slotsN),
		buf:            make([][]byte, slotsN),
		reader:         reader,
	}
	for i := range c.buf {
		c.buf[i] = make([]byte, c.slotBytes)
	}
	return c
}

// acquire returns the index of the slot covering sector, loading it from the
// image reader on a miss. Victim selection prefers unused slots and slots
// aged past slotsN; when several qualify the last one wins.
func (c *sectorCache) acquire(sector SectorIndex) (int, error) {
	for i := 0; i < c.slotsN; i++ {
		if c.ttl[i] > 0 && sector >= c.baseAddr[i] && sector < c.baseAddr[i]+SectorIndex(c.sectorsPerSlot) {
			c.promote(i)
			return i, nil
		}
	}

	victim := 0
	for i := 0; i < c.slotsN; i++ {
		if c.ttl[i] == 0 || c.ttl[i] >= c.slotsN {
			victim = i
		}
	}

	if err := c.reader.ReadAt(int64(sector)*int64(c.sectorSize), c.buf[victim]); err != nil {
		return 0, fserrors.Read.WrapError(err)
	}

	if c.ttl[victim] == 0 {
		c.ttl[victim] = c.slotsN + 1
	}
	for i := 0; i < c.slotsN; i++ {
		if c.ttl[i] > 0 && c.ttl[i] < c.ttl[victim] {
			c.ttl[i]++
		}
	}
	c.ttl[victim] = 1
	c.baseAddr[victim] = sector

	return victim, nil
}

// reloadAt forcibly reloads slot idx to begin at sector, without touching
// TTLs. Used only by the FAT12 straddle case in getFat12, after acquire has
// already run the TTL bookkeeping for the slot.
func (c *sectorCache) reloadAt(idx int, sector SectorIndex) error {
	if err := c.reader.ReadAt(int64(sector)*int64(c.sectorSize), c.buf[idx]); err != nil {
		return fserrors.Read.WrapError(err)
	}
	c.baseAddr[idx] = sector
	return nil
}

func (c *sectorCache) promote(hit int) {
	hitTTL := c.ttl[hit]
	for i := 0; i < c.slotsN; i++ {
		if c.ttl[i] > 0 && c.ttl[i] < hitTTL {
			c.ttl[i]++
		}
	}
	c.ttl[hit] = 1
}

func (c *sectorCache) offsetInSlot(idx int, sector SectorIndex, byteIndex int) int {
	return int(sector-c.baseAddr[idx])*c.sectorSize + byteIndex%c.sectorSize
}
