// Package arrowmem exposes an alloc.Allocator as an Apache Arrow
// memory.Allocator, so Arrow arrays and builders can be backed by
// accounted raw memory.
package arrowmem
