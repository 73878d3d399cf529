package alloc

import (
	"errors"
	"fmt"
)

// Kind is the closed set of allocation failures.
type Kind uint8

const (
	// InvalidLayout means the size/alignment invariant was violated.
	InvalidLayout Kind = iota + 1
	// OutOfMemory means the raw primitive declined the request.
	OutOfMemory
	// AllocationTooLarge means the request exceeds a backend ceiling.
	AllocationTooLarge
	// Unsupported means the backend cannot perform the operation.
	Unsupported
)

func (k Kind) String() string {
	switch k {
	case InvalidLayout:
		return "invalid layout"
	case OutOfMemory:
		return "out of memory"
	case AllocationTooLarge:
		return "allocation too large"
	case Unsupported:
		return "unsupported"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

var (
	ErrInvalidLayout      = &Error{Kind: InvalidLayout}
	ErrOutOfMemory        = &Error{Kind: OutOfMemory}
	ErrAllocationTooLarge = &Error{Kind: AllocationTooLarge}
	ErrUnsupported        = &Error{Kind: Unsupported}
)

// Error is returned by every fallible allocator operation.
type Error struct {
	Kind   Kind
	Op     string
	Layout Layout
	// Limit is the ceiling that was exceeded, for AllocationTooLarge.
	Limit uintptr
}

func (e *Error) Error() string {
	if e.Op == "" {
		return "alloc: " + e.Kind.String()
	}
	switch e.Kind {
	case AllocationTooLarge:
		return fmt.Sprintf("alloc: %s %v: %s (limit %d)", e.Op, e.Layout, e.Kind, e.Limit)
	default:
		return fmt.Sprintf("alloc: %s %v: %s", e.Op, e.Layout, e.Kind)
	}
}

// Is matches any *Error of the same kind, so errors.Is(err,
// ErrOutOfMemory) works on detailed errors.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the Kind carried by err, or 0 when err is not an
// allocation error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
