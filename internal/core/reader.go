// Package core implements the binary decode engine for FDT blobs: the
// byte reader, the sizing scanner, the bump-allocated arena, and the
// tree builder (a single pass with an explicit stack of open nodes). It has no notion of a friendly
// navigator API — that lives in the root fdt package, which drives this
// package's exported entry points.
package core

import (
	"errors"

	"github.com/scigolib/fdt/internal/utils"
)

// Token values for the structure block, per the FDT wire format.
const (
	TokenBeginNode uint32 = 0x00000001
	TokenEndNode   uint32 = 0x00000002
	TokenProp      uint32 = 0x00000003
	TokenNop       uint32 = 0x00000004
	TokenEnd       uint32 = 0x00000009
)

// ErrTruncated is returned when a read would run past the end of the
// structure block, the memory reservation block, or the blob itself.
var ErrTruncated = errors.New("fdt: truncated structure block")

// Reader is a bounds-checked, 32-bit-aligned cursor over a structure
// block. It is the sole place that converts big-endian wire words to
// host order and enforces the alignment rules from the FDT spec: every
// token is a whole cell, and every payload consumes ceil(len/4) cells.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf, a structure block slice, positioned at its start.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Pos returns the current byte offset within the structure block.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total length of the structure block.
func (r *Reader) Len() int { return len(r.buf) }

// Done reports whether the cursor has consumed the entire block.
func (r *Reader) Done() bool { return r.pos >= len(r.buf) }

// PeekU32 reads the next cell without advancing the cursor.
func (r *Reader) PeekU32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, ErrTruncated
	}
	return utils.ReadU32(r.buf[r.pos : r.pos+4]), nil
}

// ReadU32 reads the next cell and advances the cursor by one cell.
func (r *Reader) ReadU32() (uint32, error) {
	v, err := r.PeekU32()
	if err != nil {
		return 0, err
	}
	r.pos += 4
	return v, nil
}

// Skip advances the cursor by n cells without reading them. Scan and
// Build do not call it: NOP carries no payload to skip, and an
// unrecognized token is rejected with an error rather than skipped.
func (r *Reader) Skip(cells int) error {
	n := cells * 4
	if r.pos+n > len(r.buf) {
		return ErrTruncated
	}
	r.pos += n
	return nil
}

// ReadName reads a NUL-terminated name starting at the cursor and
// advances past it, including its padding to the next 4-byte boundary.
func (r *Reader) ReadName() (string, error) {
	start := r.pos
	end := start
	for end < len(r.buf) && r.buf[end] != 0 {
		end++
	}
	if end >= len(r.buf) {
		return "", ErrTruncated
	}
	name := string(r.buf[start:end])

	nameLen := end - start + 1 // include the NUL
	padded := int(utils.CeilDiv4(uint32(nameLen))) * 4
	if start+padded > len(r.buf) {
		return "", ErrTruncated
	}
	r.pos = start + padded
	return name, nil
}

// ReadPayload reads length raw bytes starting at the cursor, padded to
// the next 4-byte boundary, and advances past the padding.
func (r *Reader) ReadPayload(length uint32) ([]byte, error) {
	start := r.pos
	if start+int(length) > len(r.buf) {
		return nil, ErrTruncated
	}
	payload := r.buf[start : start+int(length)]

	padded := int(utils.CeilDiv4(length)) * 4
	if start+padded > len(r.buf) {
		return nil, ErrTruncated
	}
	r.pos = start + padded
	return payload, nil
}

// PropDescriptor is the fixed-size header following a PROP token: the
// payload's byte length and its name's byte offset into the strings
// block.
type PropDescriptor struct {
	Length    uint32
	NameOff   uint32
}

// ReadPropDescriptor reads the two cells following a PROP token.
func (r *Reader) ReadPropDescriptor() (PropDescriptor, error) {
	length, err := r.ReadU32()
	if err != nil {
		return PropDescriptor{}, err
	}
	nameOff, err := r.ReadU32()
	if err != nil {
		return PropDescriptor{}, err
	}
	return PropDescriptor{Length: length, NameOff: nameOff}, nil
}

// LookupString resolves a strings-block offset into a NUL-terminated name.
func LookupString(strings []byte, offset uint32) (string, error) {
	if int(offset) >= len(strings) {
		return "", errors.New("fdt: string offset out of range")
	}
	end := int(offset)
	for end < len(strings) && strings[end] != 0 {
		end++
	}
	if end >= len(strings) {
		return "", errors.New("fdt: unterminated string in strings block")
	}
	return string(strings[offset:end]), nil
}
