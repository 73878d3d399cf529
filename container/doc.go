// Package container builds caller-side structures on top of
// alloc.Allocator: a growable byte buffer and a scope that guarantees
// deallocation.
package container
