// Package alloc defines the raw-memory allocation interface shared by
// generic containers and the backends that serve them.
//
// A Layout describes a request, an Allocator hands out Blocks for it and
// every failure is an *Error of one of four kinds. The package holds no
// memory itself; see package accounting for the reference backend that
// forwards to host-supplied primitives and reports usage to an
// accountant.
//
// The interface is manual-management by nature: nothing here frees a
// block on the caller's behalf. Containers that want guaranteed release
// build it on top, see package container.
package alloc
