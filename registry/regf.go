// Package registry implements the read-only Windows Registry hive parser:
// the REGF header, the cell loader, the HBIN block walker, and the cell
// inode walker.
package registry

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/forensicfs/tskfs/fserrors"
	"github.com/forensicfs/tskfs/imgreader"
)

// HbinSize is the fixed page size of an HBIN block and of the REGF header
// page itself.
const HbinSize = 4096

const regfMagic = "regf"

// Header is the parsed REGF header: the subset of the 4096-byte header page
// this module consumes.
type Header struct {
	Seq1            uint32
	Seq2            uint32
	FirstKeyOffset  uint32
	LastHbinOffset  uint32
	MajorVersion    uint32
	MinorVersion    uint32
	HiveName        string
}

// Fixed byte offsets within the 4096-byte REGF header page.
const (
	offMagic          = 0
	offSeq1           = 4
	offSeq2           = 8
	offMajorVersion   = 20
	offMinorVersion   = 24
	offFirstKeyOffset = 36
	offLastHbinOffset = 40
	offHiveName       = 48
	hiveNameBytes     = 64 // up to 30 UTF-16 code units plus slack, null-padded
)

// loadHeader reads and validates the REGF header at the start of the hive.
func loadHeader(reader imgreader.ImageReader, byteOffset int64) (*Header, error) {
	buf := make([]byte, HbinSize)
	if err := reader.ReadAt(byteOffset, buf); err != nil {
		return nil, fserrors.Read.WrapError(err)
	}

	if string(buf[offMagic:offMagic+4]) != regfMagic {
		return nil, fserrors.Magic.WithMessage("REGF header has an invalid magic value")
	}

	h := &Header{
		Seq1:           binary.LittleEndian.Uint32(buf[offSeq1:]),
		Seq2:           binary.LittleEndian.Uint32(buf[offSeq2:]),
		MajorVersion:   binary.LittleEndian.Uint32(buf[offMajorVersion:]),
		MinorVersion:   binary.LittleEndian.Uint32(buf[offMinorVersion:]),
		FirstKeyOffset: binary.LittleEndian.Uint32(buf[offFirstKeyOffset:]),
		LastHbinOffset: binary.LittleEndian.Uint32(buf[offLastHbinOffset:]),
		HiveName:       decodeUTF16LEZeroTerminated(buf[offHiveName : offHiveName+hiveNameBytes]),
	}

	return h, nil
}

func decodeUTF16LEZeroTerminated(buf []byte) string {
	units := make([]uint16, 0, len(buf)/2)
	for i := 0; i+1 < len(buf); i += 2 {
		u := binary.LittleEndian.Uint16(buf[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
