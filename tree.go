package fdt

import (
	"github.com/scigolib/fdt/internal/core"
	"github.com/scigolib/fdt/internal/structures"
	"github.com/scigolib/fdt/internal/utils"
)

// nodeRecordCost and propRecordCost are the approximate per-record
// byte costs used to decide whether a parse fits inside
// Config.StaticBuffer. Go's garbage-collected node/property slabs
// aren't literally packed into that buffer (doing so would require
// unsafe casts with no payoff here); StaticBuffer instead behaves as
// a byte budget the way the host static-buffer build mode behaves as
// one, failing the same way a too-small static buffer does upstream.
const (
	nodeRecordCost = 64
	propRecordCost = 48
)

// MemReserve is one {base, length} entry from the memory reservation
// block, passed through unexamined per the format's non-goals.
type MemReserve struct {
	Base   uint64
	Length uint64
}

// Tree is a parsed (and optionally mutated) device tree.
//
// Not safe for concurrent mutation: a Tree may be read from multiple
// goroutines simultaneously, but CreateChild/WriteProp*/DestroyNode and
// friends require external synchronization the same way Allocator and
// BufferWriter do.
type Tree struct {
	arena    *core.Arena
	phandles *structures.PhandleTable
	roots    []int32
	reserves []MemReserve
	config   Config
	header   core.Header // zero value for trees built via Empty

	// overflowNodes/overflowProps hold mutator-created records. They
	// share the same int32 index space as the arena via a negative
	// encoding: idx < -1 resolves to overflowNodes[-idx-2] (-1 is
	// core.NilIndex, so the first overflow record is -2). This keeps
	// every exported *Node/*Property a uniform {tree, idx} pair
	// regardless of whether it came from parsing or from a mutation.
	overflowNodes []core.Node
	overflowProps []core.Property
}

// Parse decodes blob with default settings (host-allocator mode, no
// error callback). Equivalent to ParseWithConfig(blob, Config{}).
func Parse(blob []byte) (*Tree, error) {
	return ParseWithConfig(blob, Config{})
}

// ParseWithConfig decodes blob per cfg. See Config for the available
// knobs.
func ParseWithConfig(blob []byte, cfg Config) (*Tree, error) {
	header, err := core.ParseHeader(blob)
	if err != nil {
		cfg.reportError("parse: " + err.Error())
		return nil, utils.WrapError("fdt.Parse", err)
	}

	structEnd := header.OffDtStruct + header.SizeDtStruct
	stringsEnd := header.OffDtStrings + header.SizeDtStrings
	if uint64(structEnd) > uint64(len(blob)) || uint64(stringsEnd) > uint64(len(blob)) {
		cfg.reportError("parse: struct/strings block runs past blob end")
		return nil, utils.WrapError("fdt.Parse", core.ErrTruncated)
	}
	structBlock := blob[header.OffDtStruct:structEnd]
	stringsBlock := blob[header.OffDtStrings:stringsEnd]

	rawReserves, err := core.ParseMemReserve(blob, header.OffMemRsvmap)
	if err != nil {
		cfg.reportError("parse: reading mem_rsvmap: " + err.Error())
		return nil, utils.WrapError("fdt.Parse", err)
	}
	reserves := make([]MemReserve, len(rawReserves))
	for i, r := range rawReserves {
		reserves[i] = MemReserve{Base: r.Address, Length: r.Size}
	}

	counts, err := core.Scan(structBlock)
	if err != nil {
		cfg.reportError("parse: scanning structure block: " + err.Error())
		return nil, utils.WrapError("fdt.Parse", err)
	}

	if cfg.StaticBuffer != nil {
		budget := uint64(counts.Nodes)*nodeRecordCost + uint64(counts.Props)*propRecordCost
		if budget > uint64(len(cfg.StaticBuffer)) {
			cfg.reportError("parse: static buffer too small for parsed tree")
			return nil, utils.WrapError("fdt.Parse", ErrCapacityExhausted)
		}
	}

	arena := core.NewArena(counts)
	phandles := structures.NewPhandleTable(counts.Nodes)

	roots, err := core.Build(arena, structBlock, stringsBlock, phandles.OnProp)
	if err != nil {
		cfg.reportError("parse: building tree: " + err.Error())
		return nil, utils.WrapError("fdt.Parse", err)
	}

	return &Tree{
		arena:    arena,
		phandles: phandles,
		roots:    roots,
		reserves: reserves,
		config:   cfg,
		header:   header,
	}, nil
}

// Empty returns a new tree containing a single unnamed root node and no
// properties, ready for CreateChild/CreateProp and Finalize.
func Empty() *Tree {
	t := &Tree{
		arena:    core.NewArena(core.Counts{Nodes: 1}),
		phandles: structures.NewPhandleTable(1),
	}
	rootIdx, _ := t.arena.AllocNode("")
	t.roots = []int32{rootIdx}
	return t
}

// QueryTotalSize reports the total_size header field of blob, or 0 if
// blob is too short to contain a magic number or the magic doesn't
// match. It can be called before Parse to presize a read buffer.
func QueryTotalSize(blob []byte) uint32 {
	return core.QueryTotalSize(blob)
}

// node resolves idx (arena-positive or overflow-negative) to its record.
func (t *Tree) node(idx int32) *core.Node {
	if idx == core.NilIndex {
		return nil
	}
	if idx >= 0 {
		return t.arena.Node(idx)
	}
	return &t.overflowNodes[-idx-2]
}

// prop resolves idx the same way node does, for properties.
func (t *Tree) prop(idx int32) *core.Property {
	if idx == core.NilIndex {
		return nil
	}
	if idx >= 0 {
		return t.arena.Prop(idx)
	}
	return &t.overflowProps[-idx-2]
}

func (t *Tree) wrapNode(idx int32) *Node {
	if idx == core.NilIndex {
		return nil
	}
	return &Node{tree: t, idx: idx}
}

func (t *Tree) wrapProp(idx int32) *Property {
	if idx == core.NilIndex {
		return nil
	}
	return &Property{tree: t, idx: idx}
}

// Root returns the tree's primary root node ("/"), the first node at
// depth 0. Every tree produced by Parse or Empty has at least one.
func (t *Tree) Root() *Node {
	if len(t.roots) == 0 {
		return nil
	}
	return t.wrapNode(t.roots[0])
}

// Roots returns every top-level node. In practice this is almost always
// a single-element slice; the format permits more.
func (t *Tree) Roots() []*Node {
	out := make([]*Node, len(t.roots))
	for i, idx := range t.roots {
		out[i] = t.wrapNode(idx)
	}
	return out
}

// Reserves returns the tree's memory reservation entries, in blob order.
func (t *Tree) Reserves() []MemReserve {
	return t.reserves
}

// FindPhandle returns the node registered under handle, and whether one
// was found.
func (t *Tree) FindPhandle(handle uint32) (*Node, bool) {
	idx := t.phandles.Lookup(handle)
	if idx == core.NilIndex {
		return nil, false
	}
	return t.wrapNode(idx), true
}

// Find navigates a slash-separated path (e.g. "/soc/uart@1000") from the
// primary root, stripping unit-address suffixes for comparison at each
// segment. An empty path, or "/", returns the root.
func (t *Tree) Find(path string) (*Node, bool) {
	cursor := t.Root()
	if cursor == nil {
		return nil, false
	}
	segments := splitPath(path)
	for _, seg := range segments {
		child, ok := cursor.FindChild(seg)
		if !ok {
			return nil, false
		}
		cursor = child
	}
	return cursor, true
}

// FindCompatible scans the parsed node slab in parse order, starting
// immediately after cursor (or from the beginning if cursor is nil),
// for the first node whose "compatible" property lists s. Passing a
// previous result back in as cursor resumes the scan after it, the way
// repeated calls are meant to enumerate every match in turn.
func (t *Tree) FindCompatible(cursor *Node, s string) (*Node, bool) {
	start := 0
	if cursor != nil && cursor.idx >= 0 {
		start = int(cursor.idx) + 1
	}
	for i := start; i < len(t.arena.Nodes); i++ {
		idx := int32(i)
		if t.wrapNode(idx).IsCompatible(s) {
			return t.wrapNode(idx), true
		}
	}
	return nil, false
}

func splitPath(path string) []string {
	var segs []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == '/' {
			if i > start {
				segs = append(segs, path[start:i])
			}
			start = i + 1
		}
	}
	return segs
}
