package accounting

import (
	"errors"

	"github.com/notfilippo/rawalloc/alloc"
)

// RawAllocator is the host's C-style allocation family. A zero Address
// signals failure; a failed Realloc leaves the old block untouched.
type RawAllocator interface {
	Alloc(size, align uintptr) alloc.Address
	Realloc(addr alloc.Address, oldSize, newSize, align uintptr) alloc.Address
	Free(addr alloc.Address, size, align uintptr)
}

// ZeroAllocator is implemented by raw allocators that can hand out
// memory already filled with zeros, like calloc or fresh mappings.
type ZeroAllocator interface {
	AllocZeroed(size, align uintptr) alloc.Address
}

// Zeroer is implemented by raw allocators that can clear memory the
// backend cannot write to directly.
type Zeroer interface {
	Zero(addr alloc.Address, n uintptr)
}

// Reporter is the host accountant's sink. It must not fail or block.
type Reporter interface {
	ReportDelta(delta int64)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(delta int64)

func (f ReporterFunc) ReportDelta(delta int64) { f(delta) }

// Hooks are the function pointers a host supplies. Alloc, Free and
// Report are required. Without Realloc the backend resizes by
// allocating, copying and freeing. AllocZeroed and Zero are optional
// zero-fill capabilities.
type Hooks struct {
	Alloc       func(size, align uintptr) alloc.Address
	AllocZeroed func(size, align uintptr) alloc.Address
	Realloc     func(addr alloc.Address, oldSize, newSize, align uintptr) alloc.Address
	Free        func(addr alloc.Address, size, align uintptr)
	Zero        func(addr alloc.Address, n uintptr)
	Report      func(delta int64)
}

var errMissingHook = errors.New("accounting: Alloc, Free and Report hooks are required")

func (h Hooks) validate() error {
	if h.Alloc == nil || h.Free == nil || h.Report == nil {
		return errMissingHook
	}
	return nil
}

// HooksFor builds Hooks from a RawAllocator and a Reporter, picking up
// the optional zeroing capabilities raw implements.
func HooksFor(raw RawAllocator, rep Reporter) Hooks {
	h := Hooks{
		Alloc:   raw.Alloc,
		Realloc: raw.Realloc,
		Free:    raw.Free,
	}
	if rep != nil {
		h.Report = rep.ReportDelta
	}
	if za, ok := raw.(ZeroAllocator); ok {
		h.AllocZeroed = za.AllocZeroed
	}
	if z, ok := raw.(Zeroer); ok {
		h.Zero = z.Zero
	}
	return h
}
