package mem

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
)

var _ accounting.RawAllocator = (*LeakCheckAllocator)(nil)

// LeakCheckAllocator is a raw allocator that tracks every live block and
// can be used to check for memory leaks and for frees that do not match
// the size the block was obtained with.
type LeakCheckAllocator struct {
	inner accounting.RawAllocator

	lock    sync.Mutex
	tracker map[alloc.Address]claim
	inUse   uintptr

	allocations, reallocations, frees atomic.Uint64
}

type claim struct {
	size  uintptr
	align uintptr
	stack string
}

// NewLeakCheckAllocator creates a new raw allocator with the ability of
// tracking memory requests.
//
// ! This allocator should be used for debug memory usage and it's
// ! not suited for production usage.
func NewLeakCheckAllocator(inner accounting.RawAllocator) *LeakCheckAllocator {
	return &LeakCheckAllocator{
		inner:   inner,
		tracker: make(map[alloc.Address]claim),
	}
}

func (l *LeakCheckAllocator) Alloc(size, align uintptr) alloc.Address {
	l.allocations.Add(1)
	l.lock.Lock()
	defer l.lock.Unlock()

	addr := l.inner.Alloc(size, align)
	if addr != 0 {
		l.track(addr, size, align)
	}
	return addr
}

func (l *LeakCheckAllocator) Realloc(addr alloc.Address, oldSize, newSize, align uintptr) alloc.Address {
	l.reallocations.Add(1)
	l.lock.Lock()
	defer l.lock.Unlock()

	l.mustMatch("reallocating", addr, oldSize)

	naddr := l.inner.Realloc(addr, oldSize, newSize, align)
	if naddr == 0 {
		return 0
	}
	l.untrack(addr)
	l.track(naddr, newSize, align)
	return naddr
}

func (l *LeakCheckAllocator) Free(addr alloc.Address, size, align uintptr) {
	l.frees.Add(1)
	l.lock.Lock()
	defer l.lock.Unlock()

	l.mustMatch("freeing", addr, size)
	l.untrack(addr)
	l.inner.Free(addr, size, align)
}

// InUse returns the bytes held by live blocks, as requested from the
// inner allocator.
func (l *LeakCheckAllocator) InUse() uintptr {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.inUse
}

// Live returns the number of live blocks.
func (l *LeakCheckAllocator) Live() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.tracker)
}

func (l *LeakCheckAllocator) Allocations() uint64 {
	return l.allocations.Load()
}

func (l *LeakCheckAllocator) Reallocations() uint64 {
	return l.reallocations.Load()
}

func (l *LeakCheckAllocator) Frees() uint64 {
	return l.frees.Load()
}

func (l *LeakCheckAllocator) track(addr alloc.Address, size, align uintptr) {
	l.tracker[addr] = claim{size, align, string(debug.Stack())}
	l.inUse += size
}

func (l *LeakCheckAllocator) untrack(addr alloc.Address) {
	l.inUse -= l.tracker[addr].size
	delete(l.tracker, addr)
}

func (l *LeakCheckAllocator) mustMatch(verb string, addr alloc.Address, size uintptr) {
	c, ok := l.tracker[addr]
	if !ok {
		panic(fmt.Sprintf("%s unknown memory %#x", verb, uintptr(addr)))
	}
	if c.size != size {
		panic(fmt.Sprintf("%s %#x with size %d, allocated with %d", verb, uintptr(addr), size, c.size))
	}
}

type TestingT interface {
	Errorf(format string, args ...any)
}

// CheckAllocatorLeaks checks for memory leaks in the allocator and reports
// them to the testing framework.
func CheckAllocatorLeaks(t TestingT, allocator *LeakCheckAllocator, includeStack bool) {
	allocator.lock.Lock()
	defer allocator.lock.Unlock()

	if len(allocator.tracker) == 0 {
		// keep the exit code from the test run
		return
	}

	t.Errorf("mem: LeakCheckAllocator detected %d leaks (%d bytes):\n",
		len(allocator.tracker), allocator.inUse)

	if includeStack {
		for addr, value := range allocator.tracker {
			t.Errorf("%#x) size %d align %d\n%s\n", uintptr(addr), value.size, value.align, value.stack)
		}
	}

	// print allocation stats
	t.Errorf("\nmem: allocations: %d, reallocations: %d, frees: %d\n",
		allocator.Allocations(),
		allocator.Reallocations(),
		allocator.Frees(),
	)
}
