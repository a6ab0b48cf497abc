package fdt

import (
	"github.com/scigolib/fdt/internal/core"
	"github.com/scigolib/fdt/internal/utils"
	"github.com/scigolib/fdt/internal/writer"
)

// finalizeVersion and finalizeLastCompVersion are the header values
// written for trees with no parsed header to carry forward (those
// built with Empty): version 17, last-compatible version 16, the lowest
// version this package accepts.
const (
	finalizeVersion         = uint32(core.MinVersion) + 1
	finalizeLastCompVersion = uint32(core.MinVersion)
)

// stringTable accumulates the unique property names a structure block
// references, assigning each its first-use byte offset the way the
// strings block requires.
type stringTable struct {
	data    []byte
	offsets map[string]uint32
}

// newStringTable seeds data with a leading NUL, so offset 0 is always
// the empty string, per the wire format's own convention, before any
// property name is interned.
func newStringTable() *stringTable {
	return &stringTable{data: []byte{0}, offsets: make(map[string]uint32)}
}

func (s *stringTable) intern(name string) uint32 {
	if off, ok := s.offsets[name]; ok {
		return off
	}
	off := uint32(len(s.data))
	s.data = append(s.data, name...)
	s.data = append(s.data, 0)
	s.offsets[name] = off
	return off
}

// Finalize re-serializes the tree into buf.
//
// If buf is nil or shorter than the blob this tree requires, Finalize
// writes nothing and returns (required, nil) — call again with a
// buffer of at least that length. If buf is long enough but its length
// isn't a multiple of 4 (the FDT word size every offset and size in
// this format is expressed in), Finalize returns (0,
// ErrFinalizeBufferMisaligned) without writing. Otherwise it writes the
// blob and returns (written, nil). The required length is always a
// multiple of 4; the bytes between the end of the strings block and that
// length are zeroed and counted in the header's total size.
func (t *Tree) Finalize(buf []byte) (int, error) {
	strs := newStringTable()
	structSize := t.sizeStructBlock(strs)
	stringsSize := uint64(len(strs.data))
	reserveSize := uint64(len(t.reserves)+1) * 16 // +1 for the zero/zero terminator

	total := uint64(core.HeaderSize) + reserveSize + structSize + stringsSize
	// Round up to a whole number of words so a buffer of exactly the
	// required length also passes the alignment check below.
	total = (total + 3) &^ 3

	if buf == nil || uint64(len(buf)) < total {
		return int(total), nil
	}
	if len(buf)%4 != 0 {
		t.config.reportError("finalize: buffer length not 4-byte aligned")
		return 0, ErrFinalizeBufferMisaligned
	}

	bw := writer.NewBufferWriter(buf, uint64(core.HeaderSize))

	rsvmapAddr, err := bw.Allocate(reserveSize)
	if err != nil {
		return 0, utils.WrapError("fdt.Finalize", err)
	}
	structAddr, err := bw.Allocate(structSize)
	if err != nil {
		return 0, utils.WrapError("fdt.Finalize", err)
	}
	// A tree with no properties at all has an empty strings block;
	// Allocate refuses zero-size requests, so address it in place
	// without reserving a block.
	var stringsAddr uint64
	if stringsSize > 0 {
		stringsAddr, err = bw.Allocate(stringsSize)
		if err != nil {
			return 0, utils.WrapError("fdt.Finalize", err)
		}
	} else {
		stringsAddr = bw.EndOfFile()
	}

	if err := bw.Allocator().ValidateNoOverlaps(); err != nil {
		return 0, utils.WrapError("fdt.Finalize", err)
	}

	if err := bw.WriteAtAddress(t.buildReserveBlock(), rsvmapAddr); err != nil {
		return 0, utils.WrapError("fdt.Finalize", err)
	}

	structBuf := utils.GetBuffer(int(structSize))
	defer utils.ReleaseBuffer(structBuf)
	t.emitStructBlock(structBuf, strs)
	if err := bw.WriteAtAddress(structBuf, structAddr); err != nil {
		return 0, utils.WrapError("fdt.Finalize", err)
	}

	if err := bw.WriteAtAddress(strs.data, stringsAddr); err != nil {
		return 0, utils.WrapError("fdt.Finalize", err)
	}

	// Zero the tail padding between the strings block and total.
	clear(buf[bw.EndOfFile():total])

	t.writeHeader(buf, total, rsvmapAddr, structAddr, uint32(structSize), stringsAddr, uint32(stringsSize))

	return int(total), nil
}

// writeHeader fills buf[0:core.HeaderSize] with the fixed FDT header,
// using the tree's originally-parsed version/boot_cpuid_phys if it has
// one (a tree built with Empty carries the zero Header, so falls back
// to finalizeVersion/0).
func (t *Tree) writeHeader(buf []byte, totalSize, rsvmapAddr, structAddr uint64, structSize uint32, stringsAddr uint64, stringsSize uint32) {
	version := t.header.Version
	if version < core.MinVersion {
		version = finalizeVersion
	}
	lastComp := t.header.LastCompVersion
	if lastComp == 0 {
		lastComp = finalizeLastCompVersion
	}

	utils.PutU32(buf[0:4], core.Magic)
	utils.PutU32(buf[4:8], uint32(totalSize))
	utils.PutU32(buf[8:12], uint32(structAddr))
	utils.PutU32(buf[12:16], uint32(stringsAddr))
	utils.PutU32(buf[16:20], uint32(rsvmapAddr))
	utils.PutU32(buf[20:24], version)
	utils.PutU32(buf[24:28], lastComp)
	utils.PutU32(buf[28:32], t.header.BootCPUIDPhys)
	utils.PutU32(buf[32:36], stringsSize)
	utils.PutU32(buf[36:40], structSize)
}

// buildReserveBlock encodes the tree's memory reservation entries plus
// the terminating zero/zero pair.
func (t *Tree) buildReserveBlock() []byte {
	out := make([]byte, (len(t.reserves)+1)*16)
	for i, r := range t.reserves {
		utils.PutU64(out[i*16:i*16+8], r.Base)
		utils.PutU64(out[i*16+8:i*16+16], r.Length)
	}
	// last 16 bytes are already zero from make(), the terminator
	return out
}

// sizeStructBlock walks the tree computing the structure block's byte
// size, interning every property name it encounters into strs as it
// goes — the same traversal emitStructBlock uses, so the offsets
// computed here stay valid for the emission pass.
func (t *Tree) sizeStructBlock(strs *stringTable) uint64 {
	var size uint64
	var visit func(idx int32)
	visit = func(idx int32) {
		node := t.node(idx)
		size += 4 // BEGIN_NODE
		size += uint64(utils.CeilDiv4(uint32(len(node.Name)+1))) * 4

		for p := node.Prop; p != core.NilIndex; p = t.prop(p).Next {
			prop := t.prop(p)
			strs.intern(prop.Name)
			size += 4 + 4 + 4 // PROP token, len, nameoff
			size += uint64(utils.CeilDiv4(uint32(len(prop.Value)))) * 4
		}

		for c := node.Child; c != core.NilIndex; c = t.node(c).Sibling {
			visit(c)
		}
		size += 4 // END_NODE
	}
	for _, r := range t.roots {
		visit(r)
	}
	size += 4 // FDT_END
	return size
}

// emitStructBlock re-walks the tree in the same order as
// sizeStructBlock, writing the actual token stream into dst (which must
// be exactly the size sizeStructBlock computed).
func (t *Tree) emitStructBlock(dst []byte, strs *stringTable) {
	pos := 0
	put32 := func(v uint32) {
		utils.PutU32(dst[pos:pos+4], v)
		pos += 4
	}
	// dst comes from a pooled buffer, so padding (including a name's
	// terminating NUL) is zeroed explicitly rather than assumed.
	putPadded := func(data []byte, padLen int) {
		n := copy(dst[pos:pos+padLen], data)
		clear(dst[pos+n : pos+padLen])
		pos += padLen
	}

	var visit func(idx int32)
	visit = func(idx int32) {
		node := t.node(idx)
		put32(core.TokenBeginNode)
		nameLen := int(utils.CeilDiv4(uint32(len(node.Name)+1))) * 4
		putPadded([]byte(node.Name), nameLen)

		for p := node.Prop; p != core.NilIndex; p = t.prop(p).Next {
			prop := t.prop(p)
			put32(core.TokenProp)
			put32(uint32(len(prop.Value)))
			put32(strs.intern(prop.Name))
			valLen := int(utils.CeilDiv4(uint32(len(prop.Value)))) * 4
			putPadded(prop.Value, valLen)
		}

		for c := node.Child; c != core.NilIndex; c = t.node(c).Sibling {
			visit(c)
		}
		put32(core.TokenEndNode)
	}
	for _, r := range t.roots {
		visit(r)
	}
	put32(core.TokenEnd)
}
