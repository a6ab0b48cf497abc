// Package structures holds the small auxiliary indexes built on top of
// the core arena: the phandle lookup table and the stringlist decoder
// used by the root package's property accessors.
package structures

import (
	"github.com/scigolib/fdt/internal/core"
)

// phandlePropName and linuxPhandlePropName are the two property names
// that mark a node as a phandle target. Both are recognized; "phandle"
// is preferred when both are present on the same node.
const (
	phandlePropName      = "phandle"
	linuxPhandlePropName = "linux,phandle"
)

// PhandleTable maps phandle values to arena node indices. It is built
// incrementally as the builder discovers phandle/linux,phandle
// properties, then consulted by Tree.FindPhandle.
//
// Phandle values in practice are small and dense, so entries is a
// direct-indexed vector keyed by handle value; handles past its end are
// kept in the overflow map instead.
type PhandleTable struct {
	entries  []int32 // entries[handle] = node index, or core.NilIndex
	overflow map[uint32]int32
}

// NewPhandleTable allocates a table sized for an arena with the given
// node count, a reasonable upper bound on the number of distinct handles.
func NewPhandleTable(nodeCount uint32) *PhandleTable {
	t := &PhandleTable{
		entries: make([]int32, nodeCount+1),
	}
	for i := range t.entries {
		t.entries[i] = core.NilIndex
	}
	return t
}

// Register records that handle belongs to nodeIdx. A handle seen twice
// keeps its first registration, matching upstream's first-wins semantics
// for malformed blobs with duplicate phandles.
func (t *PhandleTable) Register(handle uint32, nodeIdx int32) {
	if int(handle) < len(t.entries) {
		if t.entries[handle] == core.NilIndex {
			t.entries[handle] = nodeIdx
		}
		return
	}
	if t.overflow == nil {
		t.overflow = make(map[uint32]int32)
	}
	if _, exists := t.overflow[handle]; !exists {
		t.overflow[handle] = nodeIdx
	}
}

// Lookup returns the node index registered for handle, or core.NilIndex
// if none.
func (t *PhandleTable) Lookup(handle uint32) int32 {
	if int(handle) < len(t.entries) {
		return t.entries[handle]
	}
	if idx, ok := t.overflow[handle]; ok {
		return idx
	}
	return core.NilIndex
}

// ExtractHandle reports the phandle value a property encodes, if name
// is "phandle" or "linux,phandle", the value is exactly 4 bytes, and
// the value isn't one of the two reserved handles (0 and all-ones).
// It has no side effects, so both the builder's OnProp hook and the
// root package's mutator (which doesn't have an *core.Arena to hook
// into) can share it.
func ExtractHandle(name string, value []byte) (uint32, bool) {
	if name != phandlePropName && name != linuxPhandlePropName {
		return 0, false
	}
	if len(value) != 4 {
		return 0, false
	}
	handle := uint32(value[0])<<24 | uint32(value[1])<<16 | uint32(value[2])<<8 | uint32(value[3])
	if handle == 0 || handle == 0xFFFFFFFF {
		return 0, false
	}
	return handle, true
}

// IsLinuxPhandleAlias reports whether name is the legacy "linux,phandle"
// spelling, which must not override a node that already has a "phandle"
// registration.
func IsLinuxPhandleAlias(name string) bool {
	return name == linuxPhandlePropName
}

// OnProp is a core.SpecialPropHook: it watches for phandle properties as
// the builder attaches them and registers the node in the table. It also
// caches the resolved handle on the Node itself via arena mutation, so
// Node.Phandle() doesn't need a second property scan.
func (t *PhandleTable) OnProp(arena *core.Arena, nodeIdx, propIdx int32) {
	prop := arena.Prop(propIdx)
	handle, ok := ExtractHandle(prop.Name, prop.Value)
	if !ok {
		return
	}

	node := arena.Node(nodeIdx)
	if node.HasPhandle && IsLinuxPhandleAlias(prop.Name) {
		// "phandle" already registered this node; don't let the legacy
		// alias override it.
		return
	}
	node.Phandle = handle
	node.HasPhandle = true
	t.Register(handle, nodeIdx)
}
