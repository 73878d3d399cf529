// Package accounting implements alloc.Allocator on top of a host's raw
// allocate/reallocate/free primitives, reporting every byte it hands out
// or takes back to the host's accountant.
//
// The backend keeps the order raw operation, content fix-up, accounting
// report on every call: usage is never reported before the memory it
// describes exists and is never skipped once it does. A call that returns
// an error leaves both the raw memory and the accounted usage untouched.
//
// Sizes are accounted padded to the layout's alignment, the same size
// handed to the raw primitives and reported as the usable Block size.
package accounting
