package fdt

import (
	"github.com/scigolib/fdt/internal/core"
	"github.com/scigolib/fdt/internal/structures"
	"github.com/scigolib/fdt/internal/utils"
)

// Mutating operations. Every node/property a mutator creates lives in
// the tree's overflow vectors (see the comment on Tree), never in the
// parsed arena. Neither callers nor Finalize see that distinction, since
// every handle is just {tree, idx} and Tree.node/Tree.prop resolve both.

func (t *Tree) allocOverflowNode(name string) int32 {
	t.overflowNodes = append(t.overflowNodes, core.Node{
		Name:    name,
		Parent:  core.NilIndex,
		Child:   core.NilIndex,
		Sibling: core.NilIndex,
		Prop:    core.NilIndex,
	})
	return int32(-len(t.overflowNodes)) - 1
}

func (t *Tree) allocOverflowProp(name string, value []byte, owner int32) int32 {
	t.overflowProps = append(t.overflowProps, core.Property{
		Name:  name,
		Value: value,
		Next:  core.NilIndex,
		Owner: owner,
	})
	return int32(-len(t.overflowProps)) - 1
}

func (t *Tree) appendChild(parentIdx, childIdx int32) {
	parent := t.node(parentIdx)
	child := t.node(childIdx)
	child.Parent = parentIdx

	if parent.Child == core.NilIndex {
		parent.Child = childIdx
		return
	}
	cur := parent.Child
	for t.node(cur).Sibling != core.NilIndex {
		cur = t.node(cur).Sibling
	}
	t.node(cur).Sibling = childIdx
}

func (t *Tree) appendProp(ownerIdx, propIdx int32) {
	owner := t.node(ownerIdx)
	if owner.Prop == core.NilIndex {
		owner.Prop = propIdx
		return
	}
	cur := owner.Prop
	for t.prop(cur).Next != core.NilIndex {
		cur = t.prop(cur).Next
	}
	t.prop(cur).Next = propIdx
}

// CreateChild creates a new, empty child node named name under parent
// and returns it. It fails with ErrDuplicateName if parent already has
// a direct child with that exact name.
func (t *Tree) CreateChild(parent *Node, name string) (*Node, error) {
	if parent == nil {
		return nil, utils.WrapError("fdt.CreateChild", ErrNodeNotFound)
	}
	for c := parent.Child(); c != nil; c = c.NextSibling() {
		if c.Name() == name {
			return nil, utils.WrapError("fdt.CreateChild", ErrDuplicateName)
		}
	}

	idx := t.allocOverflowNode(name)
	t.appendChild(parent.idx, idx)
	return t.wrapNode(idx), nil
}

// CreateSibling creates a new, empty node named name immediately after
// n in its parent's child list. It fails with ErrSiblingOfRoot if n is
// a root node (roots have no parent, hence no sibling list to join),
// and with ErrDuplicateName if a same-named sibling already exists.
func (t *Tree) CreateSibling(n *Node, name string) (*Node, error) {
	if n == nil {
		return nil, utils.WrapError("fdt.CreateSibling", ErrNodeNotFound)
	}
	rec := n.rec()
	if rec.Parent == core.NilIndex {
		return nil, utils.WrapError("fdt.CreateSibling", ErrSiblingOfRoot)
	}

	parent := t.wrapNode(rec.Parent)
	for c := parent.Child(); c != nil; c = c.NextSibling() {
		if c.Name() == name {
			return nil, utils.WrapError("fdt.CreateSibling", ErrDuplicateName)
		}
	}

	idx := t.allocOverflowNode(name)
	newRec := t.node(idx)
	newRec.Parent = rec.Parent
	newRec.Sibling = rec.Sibling
	rec.Sibling = idx
	return t.wrapNode(idx), nil
}

// FindOrCreateNode resolves a slash-separated path from the root,
// creating any missing intermediate nodes (each empty, with no
// properties) along the way.
func (t *Tree) FindOrCreateNode(path string) (*Node, error) {
	cursor := t.Root()
	if cursor == nil {
		return nil, utils.WrapError("fdt.FindOrCreateNode", ErrNodeNotFound)
	}
	for _, seg := range splitPath(path) {
		if child, ok := cursor.FindChild(seg); ok {
			cursor = child
			continue
		}
		child, err := t.CreateChild(cursor, seg)
		if err != nil {
			return nil, err
		}
		cursor = child
	}
	return cursor, nil
}

// CreateProp creates a new property named name with the given raw value
// on node, failing with ErrDuplicateName if node already has a property
// with that name (use FindOrCreateProp to overwrite instead).
func (t *Tree) CreateProp(node *Node, name string, value []byte) (*Property, error) {
	if node == nil {
		return nil, utils.WrapError("fdt.CreateProp", ErrNodeNotFound)
	}
	if _, ok := node.FindProperty(name); ok {
		return nil, utils.WrapError("fdt.CreateProp", ErrDuplicateName)
	}

	idx := t.allocOverflowProp(name, value, node.idx)
	t.appendProp(node.idx, idx)
	t.registerPhandleIfAny(node.idx, name, value)
	return t.wrapProp(idx), nil
}

// FindOrCreateProp sets node's name property to value, creating it if
// absent and overwriting its payload in place if present.
func (t *Tree) FindOrCreateProp(node *Node, name string, value []byte) (*Property, error) {
	if node == nil {
		return nil, utils.WrapError("fdt.FindOrCreateProp", ErrNodeNotFound)
	}
	if prop, ok := node.FindProperty(name); ok {
		t.prop(prop.idx).Value = value
		t.registerPhandleIfAny(node.idx, name, value)
		return prop, nil
	}
	return t.CreateProp(node, name, value)
}

func (t *Tree) registerPhandleIfAny(nodeIdx int32, name string, value []byte) {
	handle, ok := structures.ExtractHandle(name, value)
	if !ok {
		return
	}
	rec := t.node(nodeIdx)
	if rec.HasPhandle && structures.IsLinuxPhandleAlias(name) {
		return
	}
	rec.Phandle = handle
	rec.HasPhandle = true
	t.phandles.Register(handle, nodeIdx)
}

// WritePropU32 is FindOrCreateProp for a single big-endian 32-bit cell.
func (t *Tree) WritePropU32(node *Node, name string, v uint32) (*Property, error) {
	value := make([]byte, 4)
	utils.PutU32(value, v)
	return t.FindOrCreateProp(node, name, value)
}

// WritePropU64 is FindOrCreateProp for two concatenated big-endian
// 32-bit cells.
func (t *Tree) WritePropU64(node *Node, name string, v uint64) (*Property, error) {
	value := make([]byte, 8)
	utils.PutU64(value, v)
	return t.FindOrCreateProp(node, name, value)
}

// WritePropString is FindOrCreateProp for a single NUL-terminated string.
func (t *Tree) WritePropString(node *Node, name, s string) (*Property, error) {
	value := append([]byte(s), 0)
	return t.FindOrCreateProp(node, name, value)
}

// WritePropStringList is FindOrCreateProp for a list of NUL-terminated
// strings concatenated back to back.
func (t *Tree) WritePropStringList(node *Node, name string, list []string) (*Property, error) {
	var value []byte
	for _, s := range list {
		value = append(value, s...)
		value = append(value, 0)
	}
	return t.FindOrCreateProp(node, name, value)
}

// splitCells is the write-side counterpart of joinCells: it encodes v
// as cellCount big-endian 32-bit cells (cellCount must be 1 or 2).
func splitCells(v uint64, cellCount int) []byte {
	out := make([]byte, cellCount*4)
	switch cellCount {
	case 1:
		utils.PutU32(out, uint32(v))
	case 2:
		utils.PutU32(out[0:4], uint32(v>>32))
		utils.PutU32(out[4:8], uint32(v))
	}
	return out
}

// WriteU32Array is FindOrCreateProp for a flat list of big-endian 32-bit
// cells, the general encoder every typed writer below is built from.
func (t *Tree) WriteU32Array(node *Node, name string, cells []uint32) (*Property, error) {
	value := make([]byte, len(cells)*4)
	for i, c := range cells {
		utils.PutU32(value[i*4:i*4+4], c)
	}
	return t.FindOrCreateProp(node, name, value)
}

// WritePairs is FindOrCreateProp for a sequence of Layout2-shaped
// entries, the write-side counterpart of ReadPairs.
func (t *Tree) WritePairs(node *Node, name string, layout Layout2, values []Pair) (*Property, error) {
	value := make([]byte, 0, len(values)*(layout.A+layout.B)*4)
	for _, pr := range values {
		value = append(value, splitCells(pr.A, layout.A)...)
		value = append(value, splitCells(pr.B, layout.B)...)
	}
	return t.FindOrCreateProp(node, name, value)
}

// WriteTriplets is FindOrCreateProp for a sequence of Layout3-shaped
// entries, the write-side counterpart of ReadTriplets.
func (t *Tree) WriteTriplets(node *Node, name string, layout Layout3, values []Triplet) (*Property, error) {
	value := make([]byte, 0, len(values)*(layout.A+layout.B+layout.C)*4)
	for _, tr := range values {
		value = append(value, splitCells(tr.A, layout.A)...)
		value = append(value, splitCells(tr.B, layout.B)...)
		value = append(value, splitCells(tr.C, layout.C)...)
	}
	return t.FindOrCreateProp(node, name, value)
}

// WriteQuads is FindOrCreateProp for a sequence of Layout4-shaped
// entries, the write-side counterpart of ReadQuads.
func (t *Tree) WriteQuads(node *Node, name string, layout Layout4, values []Quad) (*Property, error) {
	value := make([]byte, 0, len(values)*(layout.A+layout.B+layout.C+layout.D)*4)
	for _, q := range values {
		value = append(value, splitCells(q.A, layout.A)...)
		value = append(value, splitCells(q.B, layout.B)...)
		value = append(value, splitCells(q.C, layout.C)...)
		value = append(value, splitCells(q.D, layout.D)...)
	}
	return t.FindOrCreateProp(node, name, value)
}

// DestroyProp removes prop from its owning node.
func (t *Tree) DestroyProp(prop *Property) error {
	if prop == nil {
		return utils.WrapError("fdt.DestroyProp", ErrNodeNotFound)
	}
	rec := t.prop(prop.idx)
	owner := t.node(rec.Owner)

	if owner.Prop == prop.idx {
		owner.Prop = rec.Next
		return nil
	}
	for cur := owner.Prop; cur != core.NilIndex; {
		curRec := t.prop(cur)
		if curRec.Next == prop.idx {
			curRec.Next = rec.Next
			return nil
		}
		cur = curRec.Next
	}
	return utils.WrapError("fdt.DestroyProp", ErrNodeNotFound)
}

// DestroyNode removes n, and its entire subtree, from its parent's
// child list. It fails if n is a root node.
func (t *Tree) DestroyNode(n *Node) error {
	if n == nil {
		return utils.WrapError("fdt.DestroyNode", ErrNodeNotFound)
	}
	rec := n.rec()
	if rec.Parent == core.NilIndex {
		return utils.WrapError("fdt.DestroyNode", ErrCannotDestroyRoot)
	}

	parent := t.node(rec.Parent)
	if parent.Child == n.idx {
		parent.Child = rec.Sibling
		return nil
	}
	for cur := parent.Child; cur != core.NilIndex; {
		curRec := t.node(cur)
		if curRec.Sibling == n.idx {
			curRec.Sibling = rec.Sibling
			return nil
		}
		cur = curRec.Sibling
	}
	return utils.WrapError("fdt.DestroyNode", ErrNodeNotFound)
}
