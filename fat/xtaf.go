package fat

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/forensicfs/tskfs/fserrors"
	"github.com/gocarina/gocsv"
)

// xtafCSV holds the opt-in image-size-keyed XTAF geometry fallback table.
// The on-disk XTAF boot sector doesn't carry enough information to derive
// the layout directly, so geometries for the known Xbox 360 partitions are
// keyed by total image size instead. The table is consulted only when Open
// is called with AllowXTAFSizeTable set; without it an XTAF image fails
// with a MAGIC error.
//
//go:embed xtaf.csv
var xtafCSV string

type xtafRow struct {
	ImageSize        int64  `csv:"image_size"`
	RootSector       uint64 `csv:"root_sector"`
	SectorsPerFAT    uint64 `csv:"sectors_per_fat"`
	FirstClustSector uint64 `csv:"first_cluster_sector"`
	ClusterCount     uint64 `csv:"cluster_count"`
	LastCluster      uint64 `csv:"last_cluster"`
}

var xtafGeometriesBySize map[int64]xtafRow

func init() {
	xtafGeometriesBySize = make(map[int64]xtafRow)

	reader := strings.NewReader(xtafCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row xtafRow) error {
		xtafGeometriesBySize[row.ImageSize] = row
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("fat: malformed embedded xtaf.csv: %s", err))
	}
}

// lookupXTAFGeometry derives an XTAF Geometry from the image-size-keyed
// table.
func lookupXTAFGeometry(imageSize int64) (*Geometry, error) {
	row, ok := xtafGeometriesBySize[imageSize]
	if !ok {
		return nil, fserrors.Magic.WithMessage(fmt.Sprintf(
			"no XTAF geometry entry for image size %d", imageSize))
	}

	const xtafSectorSize = 512
	const xtafFirstFATSector = 8
	// Every known XTAF partition in the table uses 32 sectors/cluster
	// (16 KiB clusters), so the fallback assumes that too.

	return &Geometry{
		Flavor:             XTAF,
		SectorSize:         xtafSectorSize,
		SectorShift:        log2(xtafSectorSize),
		ClusterSizeSectors: 32,
		NumberOfFATs:       1,
		FirstFATSector:     SectorIndex(xtafFirstFATSector),
		SectorsPerFAT:      row.SectorsPerFAT,
		FirstDataSector:    SectorIndex(row.RootSector),
		FirstClusterSector: SectorIndex(row.FirstClustSector),
		ClusterCount:       row.ClusterCount,
		LastCluster:        ClusterIndex(row.LastCluster),
		RootDirSectors:     0,
		TotalSectors:       uint64(imageSize) / xtafSectorSize,
		LastBlock:          SectorIndex(uint64(imageSize)/xtafSectorSize - 1),
		LastBlockAct:       SectorIndex(uint64(imageSize)/xtafSectorSize - 1),
		EndOfChainMask:     XTAF.endOfChainMask(),
	}, nil
}
