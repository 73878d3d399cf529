//go:build linux || darwin || freebsd

package mem

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/notfilippo/rawalloc/accounting"
	"github.com/notfilippo/rawalloc/alloc"
)

var (
	_ accounting.RawAllocator  = (*MmapAllocator)(nil)
	_ accounting.ZeroAllocator = (*MmapAllocator)(nil)
)

// MmapAllocator hands out anonymous private mappings, one per block. It
// needs no cgo and lives outside the Go heap, which makes it the default
// primitive for tests and for hosts without a libc allocator.
//
// Sizes are rounded to whole pages. Alignments above the page size are
// served by over-mapping and unmapping the unaligned head and tail.
type MmapAllocator struct {
	pageSize uintptr
	mapped   atomic.Int64
}

// NewMmapAllocator returns an allocator using the system page size.
func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{pageSize: uintptr(unix.Getpagesize())}
}

// Mapped returns the bytes currently mapped, in whole pages.
func (m *MmapAllocator) Mapped() int64 {
	return m.mapped.Load()
}

func (m *MmapAllocator) Alloc(size, align uintptr) alloc.Address {
	length := m.span(size)
	if align <= m.pageSize {
		p, err := mmap(length)
		if err != nil {
			return 0
		}
		m.mapped.Add(int64(length))
		return alloc.Address(p)
	}

	total := length + align
	p, err := mmap(total)
	if err != nil {
		return 0
	}
	base := uintptr(p)
	start := roundUp(base, align)
	if head := start - base; head > 0 {
		_ = unix.MunmapPtr(unsafe.Pointer(base), head)
	}
	if tail := base + total - (start + length); tail > 0 {
		_ = unix.MunmapPtr(unsafe.Pointer(start+length), tail)
	}
	m.mapped.Add(int64(length))
	return alloc.Address(start)
}

// AllocZeroed is Alloc: fresh anonymous pages read as zero.
func (m *MmapAllocator) AllocZeroed(size, align uintptr) alloc.Address {
	return m.Alloc(size, align)
}

func (m *MmapAllocator) Realloc(addr alloc.Address, oldSize, newSize, align uintptr) alloc.Address {
	oldLen, newLen := m.span(oldSize), m.span(newSize)
	if uintptr(addr)&(align-1) == 0 {
		switch {
		case newLen == oldLen:
			return addr
		case newLen < oldLen:
			tail := unsafe.Pointer(uintptr(addr) + newLen)
			if err := unix.MunmapPtr(tail, oldLen-newLen); err != nil {
				return 0
			}
			m.mapped.Add(-int64(oldLen - newLen))
			return addr
		}
	}

	naddr := m.Alloc(newSize, align)
	if naddr == 0 {
		return 0
	}
	n := min(oldSize, newSize)
	copy(bytesAt(naddr, n), bytesAt(addr, n))
	m.Free(addr, oldSize, align)
	return naddr
}

func (m *MmapAllocator) Free(addr alloc.Address, size, _ uintptr) {
	length := m.span(size)
	if err := unix.MunmapPtr(unsafe.Pointer(uintptr(addr)), length); err != nil {
		panic(err)
	}
	m.mapped.Add(-int64(length))
}

func (m *MmapAllocator) span(size uintptr) uintptr {
	return roundUp(size, m.pageSize)
}

func mmap(length uintptr) (unsafe.Pointer, error) {
	return unix.MmapPtr(-1, 0, nil, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}
