package accountant

import (
	"io"
	"log/slog"
	"sync"

	"github.com/notfilippo/rawalloc/accounting"
)

var _ accounting.Reporter = (*Limiter)(nil)

// EvictFunc is called when usage rises above the limit. It runs on the
// reporting goroutine, after the limiter's lock was released, but still
// inside the allocator call that reported the growth. It may free memory
// through the backend itself. When the backend is wrapped with
// alloc.Synchronized, the wrapper's lock is held at this point, so
// eviction must call the unwrapped backend; going through the wrapper
// deadlocks.
type EvictFunc func(used, limit int64)

// Config configures a Limiter.
type Config struct {
	// Limit is the memory ceiling in bytes. Zero disables it.
	Limit int64
	// Evict is called whenever a positive delta leaves usage above Limit.
	Evict EvictFunc
	// Logger receives limit transitions. Default: discard.
	Logger *slog.Logger
}

// Limiter accounts usage against a ceiling, the way a host memory manager
// enforcing a maxmemory setting does. Reports never fail: crossing the
// limit triggers eviction rather than refusing the allocation that
// already happened.
type Limiter struct {
	limit int64
	evict EvictFunc
	log   *slog.Logger

	mu       sync.Mutex
	used     int64
	peak     int64
	over     bool
	triggers uint64
}

func NewLimiter(cfg Config) *Limiter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Limiter{
		limit: cfg.Limit,
		evict: cfg.Evict,
		log:   logger.With("component", "limiter"),
	}
}

func (l *Limiter) ReportDelta(delta int64) {
	l.mu.Lock()
	l.used += delta
	used := l.used
	l.peak = max(l.peak, used)
	exceeded := l.limit > 0 && used > l.limit
	entered, left := exceeded && !l.over, !exceeded && l.over
	l.over = exceeded
	trigger := exceeded && delta > 0
	if trigger {
		l.triggers++
	}
	l.mu.Unlock()

	switch {
	case entered:
		l.log.Warn("memory limit exceeded", "used", used, "limit", l.limit)
	case left:
		l.log.Info("memory back under limit", "used", used, "limit", l.limit)
	}
	if trigger && l.evict != nil {
		l.evict(used, l.limit)
	}
}

// Used returns the accounted bytes.
func (l *Limiter) Used() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// Peak returns the highest accounted usage.
func (l *Limiter) Peak() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peak
}

// Exceeded reports whether usage is above the limit.
func (l *Limiter) Exceeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.over
}

// Triggers returns how many times eviction was requested.
func (l *Limiter) Triggers() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.triggers
}

// Limit returns the configured ceiling.
func (l *Limiter) Limit() int64 { return l.limit }
