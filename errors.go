package fdt

import (
	"errors"

	"github.com/scigolib/fdt/internal/core"
)

// ErrBadMagic is returned when a blob's leading word isn't the FDT magic.
var ErrBadMagic = core.ErrBadMagic

// ErrUnsupportedVersion is returned when a header version predates 16.
var ErrUnsupportedVersion = core.ErrUnsupportedVersion

// ErrTruncated is returned when a blob ends before a field it declares
// (a name, a payload, a memory-reservation entry) can be fully read.
var ErrTruncated = core.ErrTruncated

// ErrDuplicateName is returned when a property or sibling/child name
// collides with one that already exists on the same node.
var ErrDuplicateName = core.ErrDuplicateName

// ErrCapacityExhausted is returned when a tree's node or property count
// exceeds a configured static buffer, or an internal arena limit.
var ErrCapacityExhausted = errors.New("fdt: capacity exhausted")

// ErrSiblingOfRoot is returned by CreateSibling when called on the root
// node, which by construction has no siblings.
var ErrSiblingOfRoot = errors.New("fdt: root node cannot have a sibling")

// ErrFinalizeBufferMisaligned is returned by Finalize when the supplied
// buffer is long enough but its length is not a multiple of 4. The
// buffer's address alignment is not checked.
var ErrFinalizeBufferMisaligned = errors.New("fdt: finalize buffer misaligned")

// ErrNodeNotFound is returned by the mutators when given a nil node or
// property, and by DestroyProp/DestroyNode when the record is not in its
// owner's list. Lookups (Find, FindChild, FindPhandle) report a miss
// with a (value, bool) result instead.
var ErrNodeNotFound = errors.New("fdt: node not found")

// ErrCannotDestroyRoot is returned by DestroyNode when asked to remove
// a root node, which has no parent to unlink it from.
var ErrCannotDestroyRoot = errors.New("fdt: cannot destroy root node")
