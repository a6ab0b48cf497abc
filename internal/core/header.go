package core

import (
	"errors"

	"github.com/scigolib/fdt/internal/utils"
)

// Magic is the fixed 32-bit signature at the start of every FDT blob.
const Magic uint32 = 0xD00DFEED

// MinVersion is the lowest header version this decoder accepts. Older
// blobs lack fields (boot_cpuid_phys, size_dt_strings, size_dt_struct)
// that the rest of the package assumes are present.
const MinVersion uint32 = 16

// HeaderSize is the byte length of the fixed FDT header.
const HeaderSize = 40

// Header mirrors the fixed-layout FDT header, decoded in place from the
// first HeaderSize bytes of a blob.
type Header struct {
	Magic           uint32
	TotalSize       uint32
	OffDtStruct     uint32
	OffDtStrings    uint32
	OffMemRsvmap    uint32
	Version         uint32
	LastCompVersion uint32
	BootCPUIDPhys   uint32
	SizeDtStrings   uint32
	SizeDtStruct    uint32
}

var (
	// ErrBadMagic is returned when a blob's leading word isn't the FDT magic.
	ErrBadMagic = errors.New("fdt: bad magic")
	// ErrUnsupportedVersion is returned when a header's version predates MinVersion.
	ErrUnsupportedVersion = errors.New("fdt: unsupported header version")
	// ErrHeaderTruncated is returned when a blob is too short to hold the fixed header.
	ErrHeaderTruncated = errors.New("fdt: blob shorter than header")
)

// ParseHeader decodes and validates the fixed header at the start of blob.
func ParseHeader(blob []byte) (Header, error) {
	if len(blob) < HeaderSize {
		return Header{}, ErrHeaderTruncated
	}
	h := Header{
		Magic:           utils.ReadU32(blob[0:4]),
		TotalSize:       utils.ReadU32(blob[4:8]),
		OffDtStruct:     utils.ReadU32(blob[8:12]),
		OffDtStrings:    utils.ReadU32(blob[12:16]),
		OffMemRsvmap:    utils.ReadU32(blob[16:20]),
		Version:         utils.ReadU32(blob[20:24]),
		LastCompVersion: utils.ReadU32(blob[24:28]),
		BootCPUIDPhys:   utils.ReadU32(blob[28:32]),
		SizeDtStrings:   utils.ReadU32(blob[32:36]),
		SizeDtStruct:    utils.ReadU32(blob[36:40]),
	}
	if h.Magic != Magic {
		return Header{}, ErrBadMagic
	}
	if h.Version < MinVersion {
		return Header{}, ErrUnsupportedVersion
	}
	if uint64(h.TotalSize) > uint64(len(blob)) {
		return Header{}, ErrHeaderTruncated
	}
	return h, nil
}

// QueryTotalSize reports the total_size field of blob without validating
// the rest of the header. It returns 0 if blob is too short to contain a
// magic number or the magic doesn't match — callers that need a firm
// decision should call ParseHeader instead.
func QueryTotalSize(blob []byte) uint32 {
	if len(blob) < 8 {
		return 0
	}
	if utils.ReadU32(blob[0:4]) != Magic {
		return 0
	}
	return utils.ReadU32(blob[4:8])
}

// MemReserveEntry is one {address, size} pair from the memory
// reservation block. An entry whose address and size are both zero
// terminates the block.
type MemReserveEntry struct {
	Address uint64
	Size    uint64
}

// ParseMemReserve decodes the reservation block starting at blob[offset],
// stopping at the terminating zero/zero entry. Entries are passed through
// unexamined: the caller never validates that they don't overlap the
// structure or strings blocks, matching upstream behavior.
func ParseMemReserve(blob []byte, offset uint32) ([]MemReserveEntry, error) {
	var entries []MemReserveEntry
	pos := int(offset)
	for {
		if pos+16 > len(blob) {
			return nil, ErrTruncated
		}
		addr := utils.ReadU64(blob[pos : pos+8])
		size := utils.ReadU64(blob[pos+8 : pos+16])
		pos += 16
		if addr == 0 && size == 0 {
			break
		}
		entries = append(entries, MemReserveEntry{Address: addr, Size: size})
	}
	return entries, nil
}
