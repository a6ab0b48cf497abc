package fdt

import (
	"github.com/scigolib/fdt/internal/core"
	"github.com/scigolib/fdt/internal/structures"
)

// defaultAddressCells and defaultSizeCells are the values #address-cells
// and #size-cells take when a node's parent doesn't declare them, per
// the device tree specification.
const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
)

// Node is a navigable handle onto one tree node. Node values are cheap
// to copy ({tree, idx}) but only valid for the lifetime of their Tree.
type Node struct {
	tree *Tree
	idx  int32
}

// Property is a navigable handle onto one node property.
type Property struct {
	tree *Tree
	idx  int32
}

func (n *Node) rec() *core.Node { return n.tree.node(n.idx) }

// Name returns the node's name as it appears in the structure block
// (including any "@unit-address" suffix).
func (n *Node) Name() string { return n.rec().Name }

// Parent returns the node's parent, or nil for a root node.
func (n *Node) Parent() *Node { return n.tree.wrapNode(n.rec().Parent) }

// Child returns the node's first child in document order, or nil.
func (n *Node) Child() *Node { return n.tree.wrapNode(n.rec().Child) }

// NextSibling returns the next node sharing this node's parent, or nil.
func (n *Node) NextSibling() *Node { return n.tree.wrapNode(n.rec().Sibling) }

// Phandle returns the node's resolved phandle value, and whether it has
// one at all (not every node does).
func (n *Node) Phandle() (uint32, bool) {
	rec := n.rec()
	return rec.Phandle, rec.HasPhandle
}

// Properties returns every property on the node, in document order.
func (n *Node) Properties() []*Property {
	var out []*Property
	for idx := n.rec().Prop; idx != core.NilIndex; idx = n.tree.prop(idx).Next {
		out = append(out, n.tree.wrapProp(idx))
	}
	return out
}

// Property returns the i'th property in document order, or nil if i is
// out of range.
func (n *Node) Property(i int) *Property {
	idx := n.rec().Prop
	for ; i > 0 && idx != core.NilIndex; i-- {
		idx = n.tree.prop(idx).Next
	}
	if idx == core.NilIndex {
		return nil
	}
	return n.tree.wrapProp(idx)
}

// FindProperty returns the named property, and whether it exists.
func (n *Node) FindProperty(name string) (*Property, bool) {
	for idx := n.rec().Prop; idx != core.NilIndex; idx = n.tree.prop(idx).Next {
		if n.tree.prop(idx).Name == name {
			return n.tree.wrapProp(idx), true
		}
	}
	return nil, false
}

// FindChild returns the first direct child whose name, with any
// "@unit-address" suffix stripped, equals name with its own suffix
// stripped.
func (n *Node) FindChild(name string) (*Node, bool) {
	target := structures.StripUnitAddress(name)
	for child := n.Child(); child != nil; child = child.NextSibling() {
		if structures.StripUnitAddress(child.Name()) == target {
			return child, true
		}
	}
	return nil, false
}

// IsCompatible reports whether the node's "compatible" property lists s
// among its entries.
func (n *Node) IsCompatible(s string) bool {
	prop, ok := n.FindProperty("compatible")
	if !ok {
		return false
	}
	list, err := structures.SplitStringList(prop.Value())
	if err != nil {
		return false
	}
	for _, entry := range list {
		if entry == s {
			return true
		}
	}
	return false
}

// AddressCells returns the #address-cells value that governs this
// node's own "reg"-shaped properties: the immediate parent's
// #address-cells property if present, else the default of 2. Unlike a
// name lookup, this is never inherited past the parent — a grandparent
// declaring it has no effect if the parent omits it. It is resolved
// fresh on every call, never cached, since a mutator can change the
// parent's #address-cells after this node was built.
func (n *Node) AddressCells() int {
	return resolveCells(n.Parent(), "#address-cells", defaultAddressCells)
}

// SizeCells returns the #size-cells value that governs this node's own
// "reg"-shaped properties, resolved the same way as AddressCells.
func (n *Node) SizeCells() int {
	return resolveCells(n.Parent(), "#size-cells", defaultSizeCells)
}

func resolveCells(parent *Node, propName string, def int) int {
	if parent == nil {
		return def
	}
	prop, ok := parent.FindProperty(propName)
	if !ok {
		return def
	}
	if v, ok := prop.AsU32(); ok {
		return int(v)
	}
	return def
}

// NodeStat summarizes a node's immediate structure.
type NodeStat struct {
	Name         string
	ChildCount   int
	PropCount    int
	SiblingCount int // siblings after this node, not including itself
}

// Stat returns a summary of the node's children, properties and
// remaining siblings.
func (n *Node) Stat() NodeStat {
	stat := NodeStat{Name: n.Name()}
	for child := n.Child(); child != nil; child = child.NextSibling() {
		stat.ChildCount++
	}
	for range n.Properties() {
		stat.PropCount++
	}
	for sib := n.NextSibling(); sib != nil; sib = sib.NextSibling() {
		stat.SiblingCount++
	}
	return stat
}
