package fat

import (
	"context"
	"strings"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/imgreader"
)

// FsInfo is the opened handle for a FAT12/16/32/XTAF region. It owns its
// cache and geometry exclusively between Open and Close and must not be
// touched from more than one goroutine at a time.
type FsInfo struct {
	reader imgreader.ImageReader
	geom   *Geometry
	cache  *sectorCache
	diag   DiagnosticsSink
}

var _ common.FileSystem = (*FsInfo)(nil)

// Open validates the boot sector at byteOffset within reader and returns a
// ready-to-use FsInfo.
func Open(reader imgreader.ImageReader, byteOffset int64, opts OpenOptions) (*FsInfo, error) {
	opts = opts.withDefaults()

	if opts.RequestedFlavor != FlavorUnknown {
		switch opts.RequestedFlavor {
		case FAT12, FAT16, FAT32, XTAF:
		default:
			return nil, fserrors.ARG.WithMessage("requested flavor is not a FAT flavor")
		}
	}

	geom, err := parseBootSector(reader, byteOffset, opts)
	if err != nil {
		// Try the backup boot sector before giving up entirely. The backup
		// is read at byte offset 6*512 (sector 6 of a 512-byte-sector
		// volume) for every flavor except a requested XTAF; if it fails too,
		// the original error is returned.
		if opts.RequestedFlavor != XTAF {
			backupOffset := byteOffset + backupBootSectorOffsetSectors*512
			if geom2, err2 := parseBootSector(reader, backupOffset, opts); err2 == nil {
				opts.Diagnostics.Record(DiagnosticRow{
					Kind:   "backup-boot-sector",
					Detail: "primary boot sector failed validation, geometry taken from the backup at sector 6",
				})
				geom = geom2
				err = nil
			}
		}
		if err != nil {
			return nil, err
		}
	}

	cache := newSectorCache(reader, opts.CacheSlots, opts.SectorsPerSlot, geom.SectorSize)

	return &FsInfo{
		reader: reader,
		geom:   geom,
		cache:  cache,
		diag:   opts.Diagnostics,
	}, nil
}

// Geometry returns the validated, derived geometry for this handle.
func (fs *FsInfo) Geometry() *Geometry {
	return fs.geom
}

// GetFat returns the FAT entry for cluster: the successor cluster, an
// end-of-chain sentinel, or 0 (free). Sanity-clamp repairs go to the
// diagnostics sink rather than being treated as errors.
func (fs *FsInfo) GetFat(cluster ClusterIndex) (ClusterIndex, error) {
	value, err := fs.geom.getFat(fs.cache, fs.diag, cluster)
	if err != nil {
		return 0, err
	}
	return value, nil
}

// IsClusterAllocated reports whether cluster's FAT entry is nonzero.
func (fs *FsInfo) IsClusterAllocated(cluster ClusterIndex) (bool, error) {
	value, err := fs.GetFat(cluster)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

// IsSectorAllocated reports the allocation state of a single sector.
func (fs *FsInfo) IsSectorAllocated(sector SectorIndex) (bool, error) {
	return fs.isSectorAllocated(sector)
}

// Close releases every buffer owned by fs. The cache buffers are ordinary
// Go slices, so there's nothing to explicitly free beyond dropping the
// references; Close exists to satisfy the capability record and to make
// the lifecycle boundary explicit.
func (fs *FsInfo) Close() error {
	fs.cache = nil
	return nil
}

// InodeWalk always fails UNSUPFUNC: directory-entry parsing lives in a
// higher layer, and failing loudly beats silently doing nothing.
func (fs *FsInfo) InodeWalk(ctx context.Context, startInum, endInum common.InodeNumber, flags common.WalkFlag, callback common.InodeWalkCallback, userPtr any) error {
	return fserrors.Unsupported.WithMessage("FAT inode walk is an external-collaborator operation (directory entry parsing)")
}

func (fs *FsInfo) Istat(inum common.InodeNumber) (string, error) {
	return "", fserrors.Unsupported.WithMessage("istat is an external-collaborator operation")
}

func (fs *FsInfo) Fsstat() (string, error) {
	return "", fserrors.Unsupported.WithMessage("fsstat is an external-collaborator operation")
}

func (fs *FsInfo) Fscheck() error {
	return fserrors.Unsupported.WithMessage("fscheck is an external-collaborator operation")
}

// JBlockWalk, JEntryWalk, and JOpen always fail UNSUPFUNC: neither FAT nor
// XTAF supports journaling.
func (fs *FsInfo) JBlockWalk(ctx context.Context, callback common.BlockWalkCallback, userPtr any) error {
	return fserrors.Unsupported.WithMessage("FAT does not support journaling")
}

func (fs *FsInfo) JEntryWalk(ctx context.Context, callback common.BlockWalkCallback, userPtr any) error {
	return fserrors.Unsupported.WithMessage("FAT does not support journaling")
}

func (fs *FsInfo) JOpen() error {
	return fserrors.Unsupported.WithMessage("FAT does not support journaling")
}

// NameCmp folds case the way FAT short names do in practice; the full
// short-name matching rules live in the directory-entry layer.
func (fs *FsInfo) NameCmp(a, b string) bool {
	return strings.EqualFold(a, b)
}
