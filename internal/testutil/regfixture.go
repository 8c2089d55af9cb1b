package testutil

import (
	"encoding/binary"
	"unicode/utf16"

	"github.com/noxer/bytewriter"
)

const hbinSize = 4096

// RegfHeaderSpec mirrors the REGF header fields registry.Header parses.
type RegfHeaderSpec struct {
	Seq1           uint32
	Seq2           uint32
	MajorVersion   uint32
	MinorVersion   uint32
	FirstKeyOffset uint32
	LastHbinOffset uint32
	HiveName       string
}

// NewRegistryImage allocates a zero-filled image of totalHbins*4096 bytes
// (the REGF header page plus totalHbins-1 HBIN pages) and stamps the REGF
// header at offset 0, using bytewriter.New for the sequential field writes.
func NewRegistryImage(spec RegfHeaderSpec, totalHbins int) []byte {
	image := make([]byte, totalHbins*hbinSize)

	header := image[:hbinSize]
	w := bytewriter.New(header)

	w.Write([]byte("regf"))
	binary.Write(w, binary.LittleEndian, spec.Seq1)
	binary.Write(w, binary.LittleEndian, spec.Seq2)

	// Bytes 12..19 (timestamp, unused by this module) are left zeroed, and
	// offMajorVersion sits at the fixed absolute offset 20 per
	// registry/regf.go, so pad up to there explicitly.
	binary.Write(w, binary.LittleEndian, make([]byte, 8))
	binary.Write(w, binary.LittleEndian, spec.MajorVersion)
	binary.Write(w, binary.LittleEndian, spec.MinorVersion)

	nameUnits := utf16.Encode([]rune(spec.HiveName))
	nameBytes := make([]byte, len(nameUnits)*2)
	for i, u := range nameUnits {
		binary.LittleEndian.PutUint16(nameBytes[i*2:], u)
	}
	binary.LittleEndian.PutUint32(header[36:40], spec.FirstKeyOffset)
	binary.LittleEndian.PutUint32(header[40:44], spec.LastHbinOffset)
	copy(header[48:48+64], nameBytes)

	return image
}

// WriteHbinPageMagic stamps the "hbin" page-header magic at the start of
// the HBIN at byteOffset, for realism; registry/blockwalk.go and
// registry/inodewalk.go don't validate it, but a real hive always carries
// it.
func WriteHbinPageMagic(image []byte, byteOffset int64) {
	copy(image[byteOffset:byteOffset+4], []byte("hbin"))
}

// WriteCell writes a registry cell header (signed LE i32 length + 2 ASCII
// tag bytes) at byteOffset. A negative length (allocated=true) is encoded
// as -length.
func WriteCell(image []byte, byteOffset int64, allocated bool, length uint32, tag string) {
	signed := int32(length)
	if allocated {
		signed = -signed
	}
	binary.LittleEndian.PutUint32(image[byteOffset:], uint32(signed))
	copy(image[byteOffset+4:byteOffset+6], []byte(tag))
}
