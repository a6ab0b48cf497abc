package fdt

// Config selects a tree's memory strategy and diagnostic hook. The zero
// Config is valid and selects host-allocator mode with no diagnostics,
// matching Parse's defaults.
type Config struct {
	// StaticBuffer, when non-nil, acts as a byte budget for the parsed
	// arena: its length is compared against a fixed per-node and
	// per-property cost, and a blob whose node/property count doesn't
	// fit fails with ErrCapacityExhausted. The arena itself is still an
	// ordinary Go allocation; nothing is stored in StaticBuffer. Leave
	// nil for host-allocator mode, where the arena is sized exactly from
	// a scanning pass over the blob.
	StaticBuffer []byte

	// OnError, when non-nil, is invoked with a short diagnostic string
	// immediately before ParseWithConfig returns any error, and before
	// Finalize returns ErrFinalizeBufferMisaligned. The mutators and
	// Finalize's other error returns do not invoke it. It is never
	// invoked concurrently and must not block; a nil OnError is a
	// silent no-op.
	OnError func(reason string)
}

func (c Config) reportError(reason string) {
	if c.OnError != nil {
		c.OnError(reason)
	}
}
