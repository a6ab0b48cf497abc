package core

import (
	"fmt"

	"github.com/scigolib/fdt/internal/utils"
)

// NilIndex marks an absent link (no parent, no sibling, no child, no
// properties).
const NilIndex int32 = -1

// Node is an arena-resident tree node. Links to other nodes and to
// properties are indices into the owning Arena's slabs, never
// pointers — this keeps the whole tree relocatable and lets Finalize
// walk it without chasing live Go pointers through a serialized copy.
type Node struct {
	Name       string
	Parent     int32
	Child      int32 // first child
	Sibling    int32 // next sibling
	Prop       int32 // first property
	Phandle    uint32
	HasPhandle bool
}

// Property is an arena-resident property: a name and a payload slice
// that aliases the original blob.
type Property struct {
	Name  string
	Value []byte
	Next  int32 // next property on the same node
	Owner int32 // node this property is attached to
}

// Arena owns the node and property slabs for one parsed (and possibly
// mutated) tree. Indices into Nodes/Props are stable for the arena's
// lifetime; growth beyond the pre-scanned capacity falls back to
// ordinary slice growth, which is safe because callers only ever hold
// indices, never pointers into the backing array.
type Arena struct {
	Nodes []Node
	Props []Property
}

// NewArena preallocates slabs sized exactly from a prior Scan, with no
// extra capacity; mutator-created records live outside the arena.
func NewArena(counts Counts) *Arena {
	return &Arena{
		Nodes: make([]Node, 0, counts.Nodes),
		Props: make([]Property, 0, counts.Props),
	}
}

// AllocNode appends a new node to the slab and returns its index.
func (a *Arena) AllocNode(name string) (int32, error) {
	if uint64(len(a.Nodes)+1) > utils.MaxArenaNodes {
		return NilIndex, fmt.Errorf("arena: node capacity exceeded (max %d)", utils.MaxArenaNodes)
	}
	idx := int32(len(a.Nodes))
	a.Nodes = append(a.Nodes, Node{
		Name:    name,
		Parent:  NilIndex,
		Child:   NilIndex,
		Sibling: NilIndex,
		Prop:    NilIndex,
	})
	return idx, nil
}

// AllocProp appends a new property to the slab and returns its index.
func (a *Arena) AllocProp(name string, value []byte) (int32, error) {
	if uint64(len(a.Props)+1) > utils.MaxArenaProps {
		return NilIndex, fmt.Errorf("arena: property capacity exceeded (max %d)", utils.MaxArenaProps)
	}
	idx := int32(len(a.Props))
	a.Props = append(a.Props, Property{
		Name:  name,
		Value: value,
		Next:  NilIndex,
		Owner: NilIndex,
	})
	return idx, nil
}

// Node returns a pointer into the node slab. The pointer is valid only
// until the next AllocNode call, which may reallocate the backing array.
func (a *Arena) Node(idx int32) *Node {
	if idx == NilIndex {
		return nil
	}
	return &a.Nodes[idx]
}

// Prop returns a pointer into the property slab, with the same
// reallocation caveat as Node.
func (a *Arena) Prop(idx int32) *Property {
	if idx == NilIndex {
		return nil
	}
	return &a.Props[idx]
}

// PrependChild links child as the new first child of parent, matching
// the builder's construction order (children are discovered in document
// order but linked in reverse, so the final list is fixed up to
// document order by FixSiblingOrder).
func (a *Arena) PrependChild(parentIdx, childIdx int32) {
	parent := a.Node(parentIdx)
	child := a.Node(childIdx)
	child.Parent = parentIdx
	child.Sibling = parent.Child
	parent.Child = childIdx
}

// PrependProp links prop as the new first property of owner, with the
// same reverse-then-fix-up discipline as PrependChild.
func (a *Arena) PrependProp(ownerIdx, propIdx int32) {
	owner := a.Node(ownerIdx)
	prop := a.Prop(propIdx)
	prop.Next = owner.Prop
	prop.Owner = ownerIdx
	owner.Prop = propIdx
}

// FixSiblingOrder reverses the sibling chain under node (recursively),
// turning last-discovered-first links into document order. Call once
// after a subtree is fully built.
func (a *Arena) FixSiblingOrder(nodeIdx int32) {
	node := a.Node(nodeIdx)
	node.Child = reverseNodeChain(a, node.Child)
	node.Prop = reversePropChain(a, node.Prop)

	for child := node.Child; child != NilIndex; child = a.Node(child).Sibling {
		a.FixSiblingOrder(child)
	}
}

func reverseNodeChain(a *Arena, head int32) int32 {
	var prev int32 = NilIndex
	cur := head
	for cur != NilIndex {
		next := a.Node(cur).Sibling
		a.Node(cur).Sibling = prev
		prev = cur
		cur = next
	}
	return prev
}

func reversePropChain(a *Arena, head int32) int32 {
	var prev int32 = NilIndex
	cur := head
	for cur != NilIndex {
		next := a.Prop(cur).Next
		a.Prop(cur).Next = prev
		prev = cur
		cur = next
	}
	return prev
}
