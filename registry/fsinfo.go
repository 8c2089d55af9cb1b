package registry

import (
	"context"
	"strings"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/imgreader"
)

// FsInfo is the opened handle for a Registry hive region. It holds the
// parsed REGF header for its full lifetime and must not be touched from
// more than one goroutine at a time.
type FsInfo struct {
	reader imgreader.ImageReader
	header *Header
	diag   DiagnosticsSink

	firstInum common.InodeNumber
	lastInum  common.InodeNumber
}

var _ common.FileSystem = (*FsInfo)(nil)

// OpenOptions configures Open. The zero value selects the defaults: no
// diagnostics.
type OpenOptions struct {
	Diagnostics DiagnosticsSink
}

func (o OpenOptions) withDefaults() OpenOptions {
	if o.Diagnostics == nil {
		o.Diagnostics = NopDiagnostics{}
	}
	return o
}

// Open reads and validates the REGF header at byteOffset and returns a
// ready-to-use FsInfo, binding its capability record.
func Open(reader imgreader.ImageReader, byteOffset int64, opts OpenOptions) (*FsInfo, error) {
	opts = opts.withDefaults()

	header, err := loadHeader(reader, byteOffset)
	if err != nil {
		return nil, err
	}

	return &FsInfo{
		reader:    reader,
		header:    header,
		diag:      opts.Diagnostics,
		firstInum: common.InodeNumber(HbinSize), // FIRST_HBIN_OFFSET
		// Inclusive: the last addressable byte of the last HBIN page.
		lastInum: common.InodeNumber(header.LastHbinOffset) + HbinSize - 1,
	}, nil
}

// Header returns the parsed REGF header.
func (fs *FsInfo) Header() *Header {
	return fs.header
}

// LoadCell reads the cell header at byteOffset, bounds-checked against the
// hive's inode range.
func (fs *FsInfo) LoadCell(byteOffset common.InodeNumber) (*Cell, error) {
	return LoadCell(fs.reader, fs.diag, fs.firstInum, fs.lastInum, byteOffset)
}

func (fs *FsInfo) Close() error {
	return nil
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

// JBlockWalk, JEntryWalk, and JOpen always fail UNSUPFUNC: the Registry hive
// format has no journal at this layer (transaction logs live in separate
// .LOG files, not the hive).
func (fs *FsInfo) JBlockWalk(ctx context.Context, callback common.BlockWalkCallback, userPtr any) error {
	return fserrors.Unsupported.WithMessage("Registry hives do not support journaling")
}

func (fs *FsInfo) JEntryWalk(ctx context.Context, callback common.BlockWalkCallback, userPtr any) error {
	return fserrors.Unsupported.WithMessage("Registry hives do not support journaling")
}

func (fs *FsInfo) JOpen() error {
	return fserrors.Unsupported.WithMessage("Registry hives do not support journaling")
}

// NameCmp compares key and value names case-insensitively, the way the
// Registry itself resolves them.
func (fs *FsInfo) NameCmp(a, b string) bool {
	return strings.EqualFold(a, b)
}
