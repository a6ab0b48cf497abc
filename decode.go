package fdt

import (
	"github.com/scigolib/fdt/internal/structures"
	"github.com/scigolib/fdt/internal/utils"
)

// Name returns the property's name.
func (p *Property) Name() string {
	return p.tree.prop(p.idx).Name
}

// Value returns the property's raw payload. The returned slice must not
// be modified by callers that don't own the tree exclusively.
func (p *Property) Value() []byte {
	return p.tree.prop(p.idx).Value
}

// AsString decodes the property as a single NUL-terminated string (the
// "model", "status" shape).
func (p *Property) AsString() (string, bool) {
	s, err := structures.FirstString(p.Value())
	if err != nil {
		return "", false
	}
	return s, true
}

// AsStringList decodes the property as a list of NUL-terminated strings
// (the "compatible" shape).
func (p *Property) AsStringList() ([]string, bool) {
	list, err := structures.SplitStringList(p.Value())
	if err != nil {
		return nil, false
	}
	return list, true
}

// AsU32 decodes the property as a single big-endian 32-bit cell.
func (p *Property) AsU32() (uint32, bool) {
	v := p.Value()
	if len(v) != 4 {
		return 0, false
	}
	return utils.ReadU32(v), true
}

// AsU64 decodes the property as two concatenated big-endian 32-bit
// cells (the "reg"-on-a-64-bit-address shape, address-cells == 2).
func (p *Property) AsU64() (uint64, bool) {
	v := p.Value()
	if len(v) != 8 {
		return 0, false
	}
	return utils.ReadU64(v), true
}

// AsU32Array decodes the property as a flat list of big-endian 32-bit
// cells. A payload whose length isn't a multiple of 4 is truncated to
// the largest whole number of cells it contains; trailing bytes are
// ignored rather than rejected.
func (p *Property) AsU32Array() ([]uint32, bool) {
	v := p.Value()
	n := len(v) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = utils.ReadU32(v[i*4 : i*4+4])
	}
	return out, true
}

// Layout2 describes a two-field cell layout: a pair of fields whose
// widths (in 32-bit cells) are given by A and B — the shape of a "reg"
// property under address-cells/size-cells, or any other two-cell-group
// property a caller wants to decode generically.
type Layout2 struct{ A, B int }

// Pair is one decoded two-field entry.
type Pair struct {
	A, B uint64
}

// ReadPairs decodes the property as a sequence of Layout2-shaped
// entries, reading each field as A/B cells of big-endian uint32s
// concatenated into a uint64 (so A or B must be 1 or 2). Any cells left
// over after the last whole entry are ignored (floor division), per the
// format's tolerance for trailing padding.
func (p *Property) ReadPairs(layout Layout2) ([]Pair, bool) {
	cells, ok := p.AsU32Array()
	if !ok {
		return nil, false
	}
	stride := layout.A + layout.B
	if stride == 0 {
		return nil, false
	}
	count := len(cells) / stride

	out := make([]Pair, 0, count)
	for i := 0; i < count*stride; i += stride {
		a, ok := joinCells(cells[i : i+layout.A])
		if !ok {
			return nil, false
		}
		b, ok := joinCells(cells[i+layout.A : i+stride])
		if !ok {
			return nil, false
		}
		out = append(out, Pair{A: a, B: b})
	}
	return out, true
}

// Layout3 is Layout2 with a third field, the shape of a "ranges"
// property (child-address, parent-address, size).
type Layout3 struct{ A, B, C int }

// Triplet is one decoded three-field entry.
type Triplet struct {
	A, B, C uint64
}

// ReadTriplets decodes the property as a sequence of Layout3-shaped
// entries. Trailing cells short of a whole entry are ignored (floor
// division), as with ReadPairs.
func (p *Property) ReadTriplets(layout Layout3) ([]Triplet, bool) {
	cells, ok := p.AsU32Array()
	if !ok {
		return nil, false
	}
	stride := layout.A + layout.B + layout.C
	if stride == 0 {
		return nil, false
	}
	count := len(cells) / stride

	out := make([]Triplet, 0, count)
	for i := 0; i < count*stride; i += stride {
		a, ok := joinCells(cells[i : i+layout.A])
		if !ok {
			return nil, false
		}
		b, ok := joinCells(cells[i+layout.A : i+layout.A+layout.B])
		if !ok {
			return nil, false
		}
		c, ok := joinCells(cells[i+layout.A+layout.B : i+stride])
		if !ok {
			return nil, false
		}
		out = append(out, Triplet{A: a, B: b, C: c})
	}
	return out, true
}

// Layout4 is Layout3 with a fourth field.
type Layout4 struct{ A, B, C, D int }

// Quad is one decoded four-field entry.
type Quad struct {
	A, B, C, D uint64
}

// ReadQuads decodes the property as a sequence of Layout4-shaped
// entries. Trailing cells short of a whole entry are ignored (floor
// division), as with ReadPairs.
func (p *Property) ReadQuads(layout Layout4) ([]Quad, bool) {
	cells, ok := p.AsU32Array()
	if !ok {
		return nil, false
	}
	stride := layout.A + layout.B + layout.C + layout.D
	if stride == 0 {
		return nil, false
	}
	count := len(cells) / stride

	out := make([]Quad, 0, count)
	for i := 0; i < count*stride; i += stride {
		a, ok := joinCells(cells[i : i+layout.A])
		if !ok {
			return nil, false
		}
		b, ok := joinCells(cells[i+layout.A : i+layout.A+layout.B])
		if !ok {
			return nil, false
		}
		c, ok := joinCells(cells[i+layout.A+layout.B : i+layout.A+layout.B+layout.C])
		if !ok {
			return nil, false
		}
		d, ok := joinCells(cells[i+layout.A+layout.B+layout.C : i+stride])
		if !ok {
			return nil, false
		}
		out = append(out, Quad{A: a, B: b, C: c, D: d})
	}
	return out, true
}

// joinCells concatenates 1 or 2 big-endian 32-bit cells into a uint64,
// the standard device-tree convention for wide fields.
func joinCells(cells []uint32) (uint64, bool) {
	switch len(cells) {
	case 0:
		return 0, true
	case 1:
		return uint64(cells[0]), true
	case 2:
		return uint64(cells[0])<<32 | uint64(cells[1]), true
	default:
		return 0, false
	}
}

// Reg decodes the node's "reg" property using its AddressCells and
// SizeCells, both of which read the parent node's #address-cells and
// #size-cells, per the device tree convention for reg's address/size
// widths.
func (n *Node) Reg() ([]Pair, bool) {
	prop, ok := n.FindProperty("reg")
	if !ok {
		return nil, false
	}
	return prop.ReadPairs(Layout2{A: n.AddressCells(), B: n.SizeCells()})
}
