// Package fdt reads, navigates, mutates and re-serializes Flattened
// Device Tree (FDT/DTB) blobs — the binary hardware description firmware
// hands to an OS kernel.
//
// Parse (or ParseWithConfig) decodes a blob into a *Tree, a navigable
// graph of nodes and properties. Typed accessors on *Node and *Property
// decode property payloads as strings, cell lists, or address/size
// pairs using the node's resolved #address-cells/#size-cells. Tree also
// supports mutation (CreateChild, WriteProp*, DestroyNode, ...) and
// Finalize, which re-serializes the (possibly mutated) tree back into a
// caller-supplied buffer.
//
// The package does not validate device-tree semantics beyond structural
// well-formedness: a node named "foo" with a malformed "reg" property
// parses fine; it's the caller's job to decide whether that's sane for
// its use of the tree.
package fdt
