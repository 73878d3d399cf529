package accounting

import (
	"unsafe"

	"github.com/notfilippo/rawalloc/alloc"
)

var _ alloc.Allocator = (*Backend)(nil)

// Backend is the accounting allocator. Every call validates its layouts,
// forwards the padded request to the raw hooks and, only once the raw
// operation succeeded and the contents are fixed up, reports the exact
// byte delta to the accountant in a single call.
//
// Backend performs no locking. Hosts calling it from several goroutines
// must serialize the calls, for instance with alloc.Synchronized. Reports
// happen inside the call, so a Reporter that frees memory in response
// (eviction) must use the Backend directly, not the serializing wrapper
// whose lock it already runs under.
type Backend struct {
	hooks Hooks

	maxSingle uintptr
	hasMax    bool
	external  bool

	bytesInUse int64
}

// New returns a Backend driving the given hooks.
func New(h Hooks, opts ...Option) (*Backend, error) {
	if err := h.validate(); err != nil {
		return nil, err
	}
	b := &Backend{hooks: h}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// NewFor is New(HooksFor(raw, rep), opts...).
func NewFor(raw RawAllocator, rep Reporter, opts ...Option) (*Backend, error) {
	return New(HooksFor(raw, rep), opts...)
}

// BytesInUse returns the bytes currently accounted to live blocks.
func (b *Backend) BytesInUse() int64 {
	return b.bytesInUse
}

// MaxSingleAllocation returns the configured ceiling, if any.
func (b *Backend) MaxSingleAllocation() (uintptr, bool) {
	return b.maxSingle, b.hasMax
}

func (b *Backend) Allocate(l alloc.Layout) (alloc.Block, error) {
	return b.allocate("allocate", l, false)
}

func (b *Backend) AllocateZeroed(l alloc.Layout) (alloc.Block, error) {
	return b.allocate("allocate zeroed", l, true)
}

func (b *Backend) Deallocate(blk alloc.Block, l alloc.Layout) {
	if l.Validate() != nil {
		return
	}
	size := l.PaddedSize()
	if size == 0 {
		return
	}
	b.hooks.Free(blk.Addr, size, l.Align)
	b.report(-int64(size))
}

func (b *Backend) Grow(blk alloc.Block, oldLayout, newLayout alloc.Layout) (alloc.Block, error) {
	return b.grow("grow", blk, oldLayout, newLayout, false)
}

func (b *Backend) GrowZeroed(blk alloc.Block, oldLayout, newLayout alloc.Layout) (alloc.Block, error) {
	return b.grow("grow zeroed", blk, oldLayout, newLayout, true)
}

// Shrink may fail with OutOfMemory when the raw Realloc declines, even
// though most allocators shrink in place.
func (b *Backend) Shrink(blk alloc.Block, oldLayout, newLayout alloc.Layout) (alloc.Block, error) {
	const op = "shrink"
	if err := validatePair(op, oldLayout, newLayout); err != nil {
		return alloc.Block{}, err
	}
	if newLayout.Size > oldLayout.Size {
		return alloc.Block{}, &alloc.Error{Kind: alloc.InvalidLayout, Op: op, Layout: newLayout}
	}
	oldSize, newSize := oldLayout.PaddedSize(), newLayout.PaddedSize()
	if err := b.checkCeiling(op, newLayout, newSize); err != nil {
		return alloc.Block{}, err
	}

	if newSize == 0 {
		if oldSize > 0 {
			b.hooks.Free(blk.Addr, oldSize, oldLayout.Align)
			b.report(-int64(oldSize))
		}
		return alloc.Dangling(newLayout), nil
	}
	if newSize == oldSize && aligned(blk.Addr, newLayout.Align) {
		return alloc.Block{Addr: blk.Addr, Size: newSize}, nil
	}

	addr, err := b.realloc(op, blk.Addr, oldLayout, newLayout)
	if err != nil {
		return alloc.Block{}, err
	}
	b.report(int64(newSize) - int64(oldSize))
	return alloc.Block{Addr: addr, Size: newSize}, nil
}

func (b *Backend) allocate(op string, l alloc.Layout, zeroed bool) (alloc.Block, error) {
	if err := l.Validate(); err != nil {
		return alloc.Block{}, withOp(err, op)
	}
	size := l.PaddedSize()
	if size == 0 {
		return alloc.Dangling(l), nil
	}
	if err := b.checkCeiling(op, l, size); err != nil {
		return alloc.Block{}, err
	}

	var addr alloc.Address
	switch {
	case zeroed && b.hooks.AllocZeroed != nil:
		addr = b.hooks.AllocZeroed(size, l.Align)
	case zeroed && !b.canZero():
		return alloc.Block{}, &alloc.Error{Kind: alloc.Unsupported, Op: op, Layout: l}
	default:
		addr = b.hooks.Alloc(size, l.Align)
	}
	if addr == 0 {
		return alloc.Block{}, &alloc.Error{Kind: alloc.OutOfMemory, Op: op, Layout: l}
	}

	if zeroed && b.hooks.AllocZeroed == nil {
		b.zero(addr, 0, size)
	}
	b.report(int64(size))
	return alloc.Block{Addr: addr, Size: size}, nil
}

func (b *Backend) grow(
	op string, blk alloc.Block, oldLayout, newLayout alloc.Layout, zeroed bool,
) (alloc.Block, error) {

	if err := validatePair(op, oldLayout, newLayout); err != nil {
		return alloc.Block{}, err
	}
	if newLayout.Size < oldLayout.Size {
		return alloc.Block{}, &alloc.Error{Kind: alloc.InvalidLayout, Op: op, Layout: newLayout}
	}
	oldSize, newSize := oldLayout.PaddedSize(), newLayout.PaddedSize()
	if err := b.checkCeiling(op, newLayout, newSize); err != nil {
		return alloc.Block{}, err
	}

	if oldSize == 0 {
		return b.allocate(op, newLayout, zeroed)
	}
	if zeroed && !b.canZero() {
		return alloc.Block{}, &alloc.Error{Kind: alloc.Unsupported, Op: op, Layout: newLayout}
	}

	addr := blk.Addr
	if newSize != oldSize || !aligned(blk.Addr, newLayout.Align) {
		var err error
		addr, err = b.realloc(op, blk.Addr, oldLayout, newLayout)
		if err != nil {
			return alloc.Block{}, err
		}
	}

	if zeroed {
		b.zero(addr, oldLayout.Size, newSize)
	}
	b.report(int64(newSize) - int64(oldSize))
	return alloc.Block{Addr: addr, Size: newSize}, nil
}

// realloc resizes through the Realloc hook, or by alloc, copy and free
// when the host supplied none. Either way the old block is untouched on
// failure.
func (b *Backend) realloc(
	op string, addr alloc.Address, oldLayout, newLayout alloc.Layout,
) (alloc.Address, error) {

	oldSize, newSize := oldLayout.PaddedSize(), newLayout.PaddedSize()
	if b.hooks.Realloc != nil {
		naddr := b.hooks.Realloc(addr, oldSize, newSize, newLayout.Align)
		if naddr == 0 {
			return 0, &alloc.Error{Kind: alloc.OutOfMemory, Op: op, Layout: newLayout}
		}
		return naddr, nil
	}
	if b.external {
		return 0, &alloc.Error{Kind: alloc.Unsupported, Op: op, Layout: newLayout}
	}

	naddr := b.hooks.Alloc(newSize, newLayout.Align)
	if naddr == 0 {
		return 0, &alloc.Error{Kind: alloc.OutOfMemory, Op: op, Layout: newLayout}
	}
	n := min(oldSize, newSize)
	copy(view(naddr, 0, n), view(addr, 0, n))
	b.hooks.Free(addr, oldSize, oldLayout.Align)
	return naddr, nil
}

func (b *Backend) checkCeiling(op string, l alloc.Layout, size uintptr) error {
	if b.hasMax && size > b.maxSingle {
		return &alloc.Error{Kind: alloc.AllocationTooLarge, Op: op, Layout: l, Limit: b.maxSingle}
	}
	return nil
}

func (b *Backend) canZero() bool {
	return !b.external || b.hooks.Zero != nil
}

// zero clears bytes [from, to) of the block at addr.
func (b *Backend) zero(addr alloc.Address, from, to uintptr) {
	if from >= to {
		return
	}
	if b.hooks.Zero != nil {
		b.hooks.Zero(addr+alloc.Address(from), to-from)
		return
	}
	clear(view(addr, from, to))
}

func (b *Backend) report(delta int64) {
	if delta == 0 {
		return
	}
	b.bytesInUse += delta
	b.hooks.Report(delta)
}

func validatePair(op string, oldLayout, newLayout alloc.Layout) error {
	if err := oldLayout.Validate(); err != nil {
		return withOp(err, op)
	}
	if err := newLayout.Validate(); err != nil {
		return withOp(err, op)
	}
	return nil
}

func withOp(err error, op string) error {
	if e, ok := err.(*alloc.Error); ok {
		ee := *e
		ee.Op = op
		return &ee
	}
	return err
}

func aligned(addr alloc.Address, align uintptr) bool {
	return uintptr(addr)&(align-1) == 0
}

func view(addr alloc.Address, from, to uintptr) []byte {
	if from >= to {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr)+from)), to-from)
}
