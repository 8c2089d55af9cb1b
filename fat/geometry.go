// Package fat implements the read-only FAT12/FAT16/FAT32/XTAF parser: boot
// sector validation, the FAT sector cache, cluster chain resolution, and the
// block walker.
package fat

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/imgreader"
	multierror "github.com/hashicorp/go-multierror"
)

// SectorIndex is an absolute sector address within the opened FAT region.
type SectorIndex = common.SectorID

// ClusterIndex is a FAT cluster index; valid indices start at 2.
type ClusterIndex = common.ClusterID

// Flavor selects which FAT variant a Geometry describes.
type Flavor int

const (
	FlavorUnknown Flavor = iota
	FAT12
	FAT16
	FAT32
	XTAF
)

func (f Flavor) String() string {
	switch f {
	case FAT12:
		return "FAT12"
	case FAT16:
		return "FAT16"
	case FAT32:
		return "FAT32"
	case XTAF:
		return "XTAF"
	default:
		return "unknown"
	}
}

// endOfChainMask returns the mask applied to raw FAT entries, per flavor.
func (f Flavor) endOfChainMask() uint32 {
	switch f {
	case FAT12:
		return 0x0FFF
	case FAT16:
		return 0xFFFF
	default:
		return 0x0FFFFFFF
	}
}

// rawBootSector is the on-disk layout of the classic FAT BIOS parameter
// block, through the 32-bit total sector count.
type rawBootSector struct {
	JmpBoot         [3]byte
	OEMName         [8]byte
	BytesPerSector  uint16
	SectorsPerClust uint8
	ReservedSectors uint16
	NumFATs         uint8
	RootEntryCount  uint16
	TotalSectors16  uint16
	Media           uint8
	SectorsPerFAT16 uint16
	SectorsPerTrack uint16
	NumHeads        uint16
	HiddenSectors   uint32
	TotalSectors32  uint32
}

const bootSectorSize = 36
const backupBootSectorOffsetSectors = 6
const xtafMagic = "XTAF"
const fatSignatureOffset = 510
const fatSignatureLo = 0x55
const fatSignatureHi = 0xAA

// Geometry is the fully derived, validated layout of a FAT file system.
type Geometry struct {
	Flavor Flavor

	SectorSize  int
	SectorShift uint

	ClusterSizeSectors int // "clusterSize" in sectors
	NumberOfFATs       int

	FirstFATSector     SectorIndex
	SectorsPerFAT      uint64
	FirstDataSector    SectorIndex // start of root directory (FAT12/16) or data (FAT32)
	FirstClusterSector SectorIndex

	ClusterCount uint64
	LastCluster  ClusterIndex

	RootDirSectors uint64
	TotalSectors   uint64
	LastBlock      SectorIndex
	LastBlockAct   SectorIndex

	EndOfChainMask uint32
}

// OpenOptions configures Open. The zero value selects sensible defaults:
// flavor auto-detection, a 4-slot cache of 4 sectors each, no XTAF size
// table, no diagnostics.
type OpenOptions struct {
	RequestedFlavor Flavor // FlavorUnknown means DETECT

	CacheSlots         int // N; 0 selects the default of 4
	SectorsPerSlot     int // S; 0 selects the default of 4 (must be >= 2)
	AllowXTAFSizeTable bool

	Diagnostics DiagnosticsSink
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.CacheSlots <= 0 {
		o.CacheSlots = 4
	}
	if o.SectorsPerSlot < 2 {
		o.SectorsPerSlot = 4
	}
	if o.Diagnostics == nil {
		o.Diagnostics = NopDiagnostics{}
	}
	return o
}

// determineFlavorByClusterCount implements the three-way Microsoft rule:
// clusterCount < 4085 -> FAT12, < 65525 -> FAT16, else FAT32. Some legacy
// tools collapse this into a two-way "< 0xfff4 -> FAT16" split and never
// detect FAT12 by size; this module uses the full rule.
func determineFlavorByClusterCount(clusterCount uint64) Flavor {
	switch {
	case clusterCount < 4085:
		return FAT12
	case clusterCount < 65525:
		return FAT16
	default:
		return FAT32
	}
}

func isPowerOfTwoInRange(v, lo, hi int) bool {
	if v < lo || v > hi {
		return false
	}
	return v&(v-1) == 0
}

// parseBootSector reads and validates the boot sector at byteOffset,
// deriving a Geometry. XTAF images are recognized by their ASCII magic and
// routed to the size-table fallback; everything else must carry the 0x55AA
// signature.
func parseBootSector(reader imgreader.ImageReader, byteOffset int64, opts OpenOptions) (*Geometry, error) {
	header := make([]byte, 512)
	if err := reader.ReadAt(byteOffset, header); err != nil {
		return nil, fserrors.Magic.WrapError(err)
	}

	if string(header[0:4]) == xtafMagic {
		if !opts.AllowXTAFSizeTable {
			return nil, fserrors.Magic.WithMessage(
				"image identifies as XTAF but AllowXTAFSizeTable is not set")
		}
		geom, err := lookupXTAFGeometry(reader.Size())
		if err == nil {
			opts.Diagnostics.Record(DiagnosticRow{
				Kind:   "xtaf-size-table",
				Detail: fmt.Sprintf("geometry taken from the size-keyed fallback table for %d bytes", reader.Size()),
			})
		}
		return geom, err
	}

	if header[fatSignatureOffset] != fatSignatureLo || header[fatSignatureOffset+1] != fatSignatureHi {
		return nil, fserrors.Magic.WithMessage("boot sector signature 0x55AA not found")
	}

	var raw rawBootSector
	if err := binary.Read(byteSliceReader(header), binary.LittleEndian, &raw); err != nil {
		return nil, fserrors.Magic.WrapError(err)
	}

	// When the 16-bit sectors-per-FAT field reads zero, the real count
	// lives in the 32-bit field of the FAT32 extended BPB, right after the
	// common fields.
	sectorsPerFAT32 := binary.LittleEndian.Uint32(header[bootSectorSize : bootSectorSize+4])

	return deriveGeometry(raw, sectorsPerFAT32, opts)
}

// deriveGeometry validates raw and computes the full derived layout.
// Independent violations are collected into a single aggregate error via
// go-multierror so a caller auditing a badly corrupted image sees every
// violated invariant at once, rather than only the first one encountered.
func deriveGeometry(raw rawBootSector, sectorsPerFAT32 uint32, opts OpenOptions) (*Geometry, error) {
	var errs *multierror.Error

	switch raw.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		errs = multierror.Append(errs, fmt.Errorf(
			"BytesPerSector must be 512, 1024, 2048, or 4096, got %d", raw.BytesPerSector))
	}

	if !isPowerOfTwoInRange(int(raw.SectorsPerClust), 1, 128) {
		errs = multierror.Append(errs, fmt.Errorf(
			"SectorsPerCluster must be a power of two in [1,128], got %d", raw.SectorsPerClust))
	}

	if raw.NumFATs < 1 || raw.NumFATs > 8 {
		errs = multierror.Append(errs, fmt.Errorf("NumFATs must be in [1,8], got %d", raw.NumFATs))
	}

	if errs != nil {
		return nil, fserrors.Magic.WrapError(errs.ErrorOrNil())
	}

	sectorsPerFAT := uint64(raw.SectorsPerFAT16)
	if sectorsPerFAT == 0 {
		sectorsPerFAT = uint64(sectorsPerFAT32)
	}
	rootDirSectors := (uint64(raw.RootEntryCount)*32 + uint64(raw.BytesPerSector) - 1) / uint64(raw.BytesPerSector)

	totalSectors := uint64(raw.TotalSectors16)
	if totalSectors == 0 {
		totalSectors = uint64(raw.TotalSectors32)
	}

	totalFATSectors := uint64(raw.NumFATs) * sectorsPerFAT
	firstDataSector := uint64(raw.ReservedSectors) + totalFATSectors
	firstClusterSector := firstDataSector + rootDirSectors

	var clusterCount uint64
	if raw.SectorsPerClust > 0 && totalSectors > firstClusterSector {
		clusterCount = (totalSectors - firstClusterSector) / uint64(raw.SectorsPerClust)
	}

	flavor := opts.RequestedFlavor
	if flavor == FlavorUnknown {
		flavor = determineFlavorByClusterCount(clusterCount)
	}

	if flavor == FAT32 && rootDirSectors != 0 {
		return nil, fserrors.Magic.WithMessage(fmt.Sprintf(
			"corruption detected: RootDirSectors is nonzero (%d) for a FAT32 volume", rootDirSectors))
	}

	bytesPerCluster := uint64(raw.BytesPerSector) * uint64(raw.SectorsPerClust)
	if bytesPerCluster > 32768 {
		return nil, fserrors.Magic.WithMessage(fmt.Sprintf(
			"corruption detected: bytes per cluster cannot exceed 32768, got %d", bytesPerCluster))
	}

	if raw.ReservedSectors == 0 {
		return nil, fserrors.Magic.WithMessage("ReservedSectors (first FAT sector) must be nonzero")
	}

	geom := &Geometry{
		Flavor:             flavor,
		SectorSize:         int(raw.BytesPerSector),
		SectorShift:        log2(uint(raw.BytesPerSector)),
		ClusterSizeSectors: int(raw.SectorsPerClust),
		NumberOfFATs:       int(raw.NumFATs),
		FirstFATSector:     SectorIndex(raw.ReservedSectors),
		SectorsPerFAT:      sectorsPerFAT,
		FirstDataSector:    SectorIndex(firstDataSector),
		FirstClusterSector: SectorIndex(firstClusterSector),
		ClusterCount:       clusterCount,
		LastCluster:        ClusterIndex(1 + clusterCount),
		RootDirSectors:     rootDirSectors,
		TotalSectors:       totalSectors,
		LastBlock:          SectorIndex(totalSectors - 1),
		LastBlockAct:       SectorIndex(totalSectors - 1),
		EndOfChainMask:     flavor.endOfChainMask(),
	}

	if geom.FirstFATSector == 0 || uint64(geom.FirstFATSector) > totalSectors {
		return nil, fserrors.Magic.WithMessage("firstFatSector out of range")
	}
	if geom.SectorsPerFAT == 0 {
		return nil, fserrors.Magic.WithMessage("sectorsPerFat must be nonzero")
	}
	if geom.FirstDataSector > geom.FirstClusterSector || uint64(geom.FirstClusterSector) > totalSectors {
		return nil, fserrors.Magic.WithMessage("firstDataSector/firstClusterSector out of order or out of range")
	}
	if geom.ClusterCount >= 1 && geom.LastCluster < 2 {
		return nil, fserrors.Magic.WithMessage("lastCluster must be >= 2 when clusterCount >= 1")
	}

	return geom, nil
}

func log2(v uint) uint {
	shift := uint(0)
	for v > 1 {
		v >>= 1
		shift++
	}
	return shift
}

// byteSliceReader adapts a []byte to an io.Reader without copying, for
// binary.Read call sites that only need a single pass.
type byteSliceReaderT struct {
	data []byte
	pos  int
}

func byteSliceReader(data []byte) *byteSliceReaderT {
	return &byteSliceReaderT{data: data}
}

func (r *byteSliceReaderT) Read(p []byte) (int, error) {
	n := copy(p, r.data[r.pos:])
	r.pos += n
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}
