package writer

import (
	"errors"
	"fmt"
)

// ErrBufferTooSmall is returned by WriteAt when data would run past the
// end of the wrapped buffer. Finalize's sizing pass is supposed to make
// this unreachable; seeing it means the sizing and emission passes
// disagree about the blob's total size.
var ErrBufferTooSmall = errors.New("fdt: output buffer too small for write")

// BufferWriter wraps a caller-supplied byte slice for Finalize's
// emission pass. Unlike a file writer, it never grows its backing
// store — the caller is expected to have sized buf using a prior
// sizing pass (see the root package's Tree.Finalize), and BufferWriter
// exists only to centralize allocation bookkeeping and bounds-checked
// writes against that fixed region.
//
// Not safe for concurrent use.
type BufferWriter struct {
	buf       []byte
	allocator *Allocator
}

// NewBufferWriter wraps buf, tracking allocations starting at
// initialOffset (the byte offset immediately after the fixed header).
func NewBufferWriter(buf []byte, initialOffset uint64) *BufferWriter {
	return &BufferWriter{
		buf:       buf,
		allocator: NewAllocator(initialOffset),
	}
}

// Allocate reserves size bytes at the current end of the tracked
// region and returns the address where the block begins.
func (w *BufferWriter) Allocate(size uint64) (uint64, error) {
	if w.buf == nil {
		return 0, fmt.Errorf("writer: no output buffer")
	}
	return w.allocator.Allocate(size)
}

// WriteAt copies data into the wrapped buffer starting at offset. It
// returns ErrBufferTooSmall, rather than panicking, if the write would
// run past the end of the buffer.
func (w *BufferWriter) WriteAt(data []byte, offset int64) (int, error) {
	if w.buf == nil {
		return 0, fmt.Errorf("writer: no output buffer")
	}
	if len(data) == 0 {
		return 0, nil
	}
	if offset < 0 || int(offset)+len(data) > len(w.buf) {
		return 0, ErrBufferTooSmall
	}

	n := copy(w.buf[offset:], data)
	if n != len(data) {
		return n, fmt.Errorf("writer: incomplete write at offset %d: wrote %d of %d bytes", offset, n, len(data))
	}
	return n, nil
}

// WriteAtAddress is WriteAt with a uint64 address, the common case when
// the address came directly from Allocate.
func (w *BufferWriter) WriteAtAddress(data []byte, addr uint64) error {
	_, err := w.WriteAt(data, int64(addr))
	return err
}

// WriteAtWithAllocation allocates len(data) bytes and writes data there
// in one step, returning the address it was written at.
func (w *BufferWriter) WriteAtWithAllocation(data []byte) (uint64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("writer: cannot write empty data")
	}

	addr, err := w.Allocate(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := w.WriteAtAddress(data, addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// EndOfFile returns the current end-of-region address — the total
// number of bytes written so far, including the initial offset.
func (w *BufferWriter) EndOfFile() uint64 {
	return w.allocator.EndOfFile()
}

// Allocator returns the underlying space allocator, for callers (and
// tests) that need to inspect block layout directly.
func (w *BufferWriter) Allocator() *Allocator {
	return w.allocator
}

// Bytes returns the wrapped buffer. Callers should treat it as
// write-once: BufferWriter does not protect against out-of-band writes.
func (w *BufferWriter) Bytes() []byte {
	return w.buf
}
