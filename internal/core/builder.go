package core

import (
	"errors"
	"fmt"

	"github.com/scigolib/fdt/internal/utils"
)

// ErrDuplicateName is returned when a node declares the same property
// name twice, or (from the mutator) when a sibling/child name collides
// with one that already exists.
var ErrDuplicateName = errors.New("fdt: duplicate name")

// SpecialPropHook is invoked by the builder each time it finishes
// attaching a property to a node, so callers (the structures package's
// phandle table) can react to well-known names without the builder
// needing to know about them.
type SpecialPropHook func(arena *Arena, nodeIdx, propIdx int32)

// Build parses structBlock into arena, starting from an empty arena
// sized by a prior Scan. It returns the indices of the top-level nodes
// (FDT permits more than one node at depth 0, though in practice there
// is exactly one: "/"). strings is the companion strings block used to
// resolve PROP name offsets.
func Build(arena *Arena, structBlock, strings []byte, onProp SpecialPropHook) ([]int32, error) {
	r := NewReader(structBlock)
	var roots []int32
	var stack []int32 // stack of open node indices; stack[len-1] is current parent

	for !r.Done() {
		tok, err := r.ReadU32()
		if err != nil {
			return nil, utils.WrapError("build: reading token", err)
		}

		switch tok {
		case TokenBeginNode:
			name, err := r.ReadName()
			if err != nil {
				return nil, utils.WrapError("build: reading node name", err)
			}
			idx, err := arena.AllocNode(name)
			if err != nil {
				return nil, utils.WrapError("build: allocating node", err)
			}
			if len(stack) == 0 {
				roots = append(roots, idx)
			} else {
				parent := stack[len(stack)-1]
				arena.PrependChild(parent, idx)
			}
			stack = append(stack, idx)

		case TokenEndNode:
			if len(stack) == 0 {
				return nil, fmt.Errorf("build: END_NODE with no matching BEGIN_NODE at offset %d", r.Pos()-4)
			}
			closed := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				// FixSiblingOrder recurses into the whole subtree, so it
				// runs once per finished top-level node.
				arena.FixSiblingOrder(closed)
			}

		case TokenProp:
			if len(stack) == 0 {
				return nil, fmt.Errorf("build: PROP outside any node at offset %d", r.Pos()-4)
			}
			pd, err := r.ReadPropDescriptor()
			if err != nil {
				return nil, utils.WrapError("build: reading prop descriptor", err)
			}
			value, err := r.ReadPayload(pd.Length)
			if err != nil {
				return nil, utils.WrapError("build: reading prop payload", err)
			}
			name, err := LookupString(strings, pd.NameOff)
			if err != nil {
				return nil, utils.WrapError("build: resolving prop name", err)
			}
			owner := stack[len(stack)-1]
			if propAlreadyPresent(arena, owner, name) {
				return nil, fmt.Errorf("build: property %q on node %q: %w", name, arena.Node(owner).Name, ErrDuplicateName)
			}
			propIdx, err := arena.AllocProp(name, value)
			if err != nil {
				return nil, utils.WrapError("build: allocating prop", err)
			}
			arena.PrependProp(owner, propIdx)
			if onProp != nil {
				onProp(arena, owner, propIdx)
			}

		case TokenNop:
			// no-op, advance only

		case TokenEnd:
			if len(stack) != 0 {
				return nil, fmt.Errorf("build: FDT_END reached with %d node(s) still open", len(stack))
			}
			return roots, nil

		default:
			return nil, fmt.Errorf("build: unrecognized token %#x at offset %d", tok, r.Pos()-4)
		}
	}

	// FDT_END is tolerated but not required (per Scan's own tolerance):
	// a block that ends with every BEGIN_NODE closed is complete.
	if len(stack) != 0 {
		return nil, fmt.Errorf("build: structure block ended with %d node(s) still open", len(stack))
	}
	return roots, nil
}

func propAlreadyPresent(arena *Arena, owner int32, name string) bool {
	for p := arena.Node(owner).Prop; p != NilIndex; p = arena.Prop(p).Next {
		if arena.Prop(p).Name == name {
			return true
		}
	}
	return false
}
