package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/forensicfs/tskfs/common"
	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/imgreader"
)

// CellType identifies the kind of record a Cell holds, decoded from the two
// ASCII tag bytes at offset 4 of the cell header.
type CellType int

const (
	TypeUnknown CellType = iota
	TypeVK
	TypeNK
	TypeLF
	TypeLH
	TypeLI
	TypeRI
	TypeSK
	TypeDB
)

func (t CellType) String() string {
	switch t {
	case TypeVK:
		return "vk"
	case TypeNK:
		return "nk"
	case TypeLF:
		return "lf"
	case TypeLH:
		return "lh"
	case TypeLI:
		return "li"
	case TypeRI:
		return "ri"
	case TypeSK:
		return "sk"
	case TypeDB:
		return "db"
	default:
		return "unknown"
	}
}

var cellTagToType = map[string]CellType{
	"vk": TypeVK,
	"nk": TypeNK,
	"lf": TypeLF,
	"lh": TypeLH,
	"li": TypeLI,
	"ri": TypeRI,
	"sk": TypeSK,
	"db": TypeDB,
}

// Cell is a tagged record header read from a cell's byte offset. The cell's
// offset doubles as its inode number.
type Cell struct {
	Inum        common.InodeNumber
	IsAllocated bool
	Length      uint32
	Type        CellType
}

// LoadCell reads the 6-byte cell header at byteOffset: a signed 32-bit LE
// length whose sign bit doubles as the allocation flag (negative means
// allocated), followed by a two-byte ASCII record tag. Corrupted headers
// are recorded to diag before the error is returned.
func LoadCell(reader imgreader.ImageReader, diag DiagnosticsSink, firstInum, lastInum, byteOffset common.InodeNumber) (*Cell, error) {
	if byteOffset < firstInum || byteOffset > lastInum {
		return nil, fserrors.BlockNumber.WithMessage("cell offset outside [first_inum, last_inum]")
	}

	buf := make([]byte, 6)
	if err := reader.ReadAt(int64(byteOffset), buf); err != nil {
		return nil, fserrors.Read.WrapError(err)
	}

	raw := binary.LittleEndian.Uint32(buf[0:4])
	signed := int32(raw)

	cell := &Cell{Inum: byteOffset}
	if signed < 0 {
		cell.IsAllocated = true
		cell.Length = uint32(-signed)
	} else {
		cell.IsAllocated = false
		cell.Length = raw
	}

	if cell.Length >= HbinSize {
		diag.Record(RegistryDiagnosticsRow{
			Kind:   "cell-length-oversized",
			Inum:   uint64(byteOffset),
			Detail: fmt.Sprintf("declared length %d is at least the HBIN page size %d", cell.Length, HbinSize),
		})
		return nil, fserrors.InodeCorrupt.WithMessage("registry cell size too large")
	}

	tag := string(buf[4:6])
	if t, ok := cellTagToType[tag]; ok {
		cell.Type = t
	} else {
		cell.Type = TypeUnknown
	}

	return cell, nil
}
