package accounting

// Option configures a Backend.
type Option func(*Backend)

// WithMaxSingleAllocation rejects, with AllocationTooLarge, any request
// whose padded size exceeds n bytes. Without it there is no ceiling.
func WithMaxSingleAllocation(n uintptr) Option {
	return func(b *Backend) {
		b.maxSingle = n
		b.hasMax = true
	}
}

// WithExternalMemory declares that addresses from the raw allocator are
// not mapped into this process. The backend then never touches block
// contents: zeroed operations need the AllocZeroed or Zero hooks and fail
// with Unsupported otherwise, and resizing needs the Realloc hook.
func WithExternalMemory() Option {
	return func(b *Backend) {
		b.external = true
	}
}
