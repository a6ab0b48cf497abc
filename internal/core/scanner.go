package core

import (
	"fmt"

	"github.com/scigolib/fdt/internal/utils"
)

// Counts is the result of a sizing scan: the number of nodes and
// properties the structure block contains, used to size the arena's
// slabs before the real build pass runs.
type Counts struct {
	Nodes uint32
	Props uint32
}

// Scan walks the structure block once, counting BEGIN_NODE and PROP
// tokens without allocating anything, so the arena can be sized exactly.
// It does not validate nesting (END_NODE balance) — that's the builder's
// job on the second pass, where a malformed block fails with a precise
// error instead of a generic scan failure.
func Scan(structBlock []byte) (Counts, error) {
	r := NewReader(structBlock)
	var counts Counts

	for !r.Done() {
		tok, err := r.ReadU32()
		if err != nil {
			return Counts{}, utils.WrapError("scan: reading token", err)
		}

		switch tok {
		case TokenBeginNode:
			counts.Nodes++
			if _, err := r.ReadName(); err != nil {
				return Counts{}, utils.WrapError("scan: reading node name", err)
			}
		case TokenEndNode:
			// nothing to count
		case TokenProp:
			counts.Props++
			pd, err := r.ReadPropDescriptor()
			if err != nil {
				return Counts{}, utils.WrapError("scan: reading prop descriptor", err)
			}
			if _, err := r.ReadPayload(pd.Length); err != nil {
				return Counts{}, utils.WrapError("scan: reading prop payload", err)
			}
		case TokenNop:
			// nothing to count
		case TokenEnd:
			return validateCounts(counts)
		default:
			return Counts{}, fmt.Errorf("scan: unrecognized token %#x at offset %d", tok, r.Pos()-4)
		}
	}

	// FDT_END is tolerated but not required: a block that ends cleanly
	// after a balanced stream of tags is as valid as one terminated
	// explicitly.
	return validateCounts(counts)
}

func validateCounts(counts Counts) (Counts, error) {
	if counts.Nodes > utils.MaxArenaNodes {
		return Counts{}, fmt.Errorf("scan: node count %d exceeds maximum %d", counts.Nodes, utils.MaxArenaNodes)
	}
	if counts.Props > utils.MaxArenaProps {
		return Counts{}, fmt.Errorf("scan: prop count %d exceeds maximum %d", counts.Props, utils.MaxArenaProps)
	}
	return counts, nil
}
