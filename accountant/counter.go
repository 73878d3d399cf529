package accountant

import (
	"sync/atomic"

	"github.com/notfilippo/rawalloc/accounting"
)

var _ accounting.Reporter = (*Counter)(nil)

// Counter keeps a running total of reported bytes and the peak it
// reached. Safe for concurrent use.
type Counter struct {
	used    atomic.Int64
	peak    atomic.Int64
	reports atomic.Uint64
}

func (c *Counter) ReportDelta(delta int64) {
	c.reports.Add(1)
	used := c.used.Add(delta)
	for {
		peak := c.peak.Load()
		if used <= peak || c.peak.CompareAndSwap(peak, used) {
			return
		}
	}
}

// Used returns the bytes currently reported in use.
func (c *Counter) Used() int64 { return c.used.Load() }

// Peak returns the highest usage seen.
func (c *Counter) Peak() int64 { return c.peak.Load() }

// Reports returns how many deltas were reported.
func (c *Counter) Reports() uint64 { return c.reports.Load() }
