package testutil

import (
	"encoding/binary"

	"github.com/noxer/bytewriter"
)

// FATBootSectorSpec describes the fields of a classic FAT BIOS parameter
// block, laid out byte-for-byte like the on-disk structure, so fixtures
// built here parse exactly like a real image.
type FATBootSectorSpec struct {
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
	SectorsPerFAT32 uint32 // written at the fixed extended-BPB offset (36)
}

// NewFATImage allocates a zero-filled image of totalSectors*sectorSize
// bytes and stamps a valid boot sector (with 0x55AA signature) at byte 0.
func NewFATImage(spec FATBootSectorSpec, totalSectors int) []byte {
	sectorSize := int(spec.BytesPerSector)
	image := make([]byte, totalSectors*sectorSize)

	header := image[:sectorSize]
	w := bytewriter.New(header)

	binary.Write(w, binary.LittleEndian, [3]byte{0xEB, 0x3C, 0x90}) // JmpBoot
	binary.Write(w, binary.LittleEndian, [8]byte{'M', 'S', 'D', 'O', 'S', '5', '.', '0'})
	binary.Write(w, binary.LittleEndian, spec.BytesPerSector)
	binary.Write(w, binary.LittleEndian, spec.SectorsPerClust)
	binary.Write(w, binary.LittleEndian, spec.ReservedSectors)
	binary.Write(w, binary.LittleEndian, spec.NumFATs)
	binary.Write(w, binary.LittleEndian, spec.RootEntryCount)
	binary.Write(w, binary.LittleEndian, spec.TotalSectors16)
	binary.Write(w, binary.LittleEndian, spec.Media)
	binary.Write(w, binary.LittleEndian, spec.SectorsPerFAT16)
	binary.Write(w, binary.LittleEndian, spec.SectorsPerTrack)
	binary.Write(w, binary.LittleEndian, spec.NumHeads)
	binary.Write(w, binary.LittleEndian, spec.HiddenSectors)
	binary.Write(w, binary.LittleEndian, spec.TotalSectors32)

	// Extended BPB: FAT32's 32-bit sectors-per-FAT sits at offset 36, right
	// after the common fields (the 16-bit field above is at offset 22);
	// fat/geometry.go reads it at the fixed offset 36 regardless of flavor.
	binary.LittleEndian.PutUint32(header[36:40], spec.SectorsPerFAT32)

	header[510] = 0x55
	header[511] = 0xAA

	return image
}

// PutFAT16Entry writes a 16-bit FAT entry for cluster at its natural
// position within the FAT table starting at byte offset fatStart
// (absolute, typically reservedSectors*sectorSize).
func PutFAT16Entry(image []byte, fatStart int64, cluster uint32, value uint16) {
	off := fatStart + int64(cluster)*2
	binary.LittleEndian.PutUint16(image[off:], value)
}

// PutFAT32Entry writes a 32-bit FAT entry for cluster at its natural
// position within the FAT table starting at byte offset fatStart.
func PutFAT32Entry(image []byte, fatStart int64, cluster uint32, value uint32) {
	off := fatStart + int64(cluster)*4
	binary.LittleEndian.PutUint32(image[off:], value)
}

// PutFAT12Entry writes a 12-bit packed FAT entry for cluster, handling the
// even/odd nibble packing rule directly against the raw byte buffer
// (bypassing the sector-cache machinery under test).
func PutFAT12Entry(image []byte, fatStart int64, cluster uint32, value uint16) {
	byteIndex := int64(cluster) + int64(cluster)/2
	off := fatStart + byteIndex
	existing := binary.LittleEndian.Uint16(image[off:])
	if cluster&1 == 0 {
		existing = (existing & 0xF000) | (value & 0x0FFF)
	} else {
		existing = (existing & 0x000F) | ((value & 0x0FFF) << 4)
	}
	binary.LittleEndian.PutUint16(image[off:], existing)
}
