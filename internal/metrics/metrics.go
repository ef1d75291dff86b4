// Package metrics keeps in-process counters for the callback pipeline.
package metrics

import (
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing count.
type Counter struct {
	n atomic.Uint64
}

func (c *Counter) Inc() { c.n.Add(1) }

func (c *Counter) Load() uint64 { return c.n.Load() }

// Latency tracks how long reconciliations take.
type Latency struct {
	count atomic.Uint64
	total atomic.Int64
	max   atomic.Int64
}

// Since records the time elapsed from start.
func (l *Latency) Since(start time.Time) {
	l.Observe(time.Since(start))
}

func (l *Latency) Observe(d time.Duration) {
	l.count.Add(1)
	l.total.Add(int64(d))
	for {
		cur := l.max.Load()
		if int64(d) <= cur || l.max.CompareAndSwap(cur, int64(d)) {
			return
		}
	}
}

// Mean is zero until something was observed.
func (l *Latency) Mean() time.Duration {
	n := l.count.Load()
	if n == 0 {
		return 0
	}
	return time.Duration(l.total.Load() / int64(n))
}

func (l *Latency) Max() time.Duration {
	return time.Duration(l.max.Load())
}

// Callbacks counts callback outcomes. The zero value is ready to use.
type Callbacks struct {
	Received        Counter
	Applied         Counter
	Rejected        Counter
	AlreadyTerminal Counter
	VerifyFailures  Counter
	Reconcile       Latency
}

// Snapshot is a point-in-time copy of the callback counters.
type Snapshot struct {
	Received        uint64  `json:"received"`
	Applied         uint64  `json:"applied"`
	Rejected        uint64  `json:"rejected"`
	AlreadyTerminal uint64  `json:"already_terminal"`
	VerifyFailures  uint64  `json:"verify_failures"`
	MeanReconcileMS float64 `json:"mean_reconcile_ms"`
	MaxReconcileMS  float64 `json:"max_reconcile_ms"`
}

func (c *Callbacks) Snapshot() Snapshot {
	return Snapshot{
		Received:        c.Received.Load(),
		Applied:         c.Applied.Load(),
		Rejected:        c.Rejected.Load(),
		AlreadyTerminal: c.AlreadyTerminal.Load(),
		VerifyFailures:  c.VerifyFailures.Load(),
		MeanReconcileMS: millis(c.Reconcile.Mean()),
		MaxReconcileMS:  millis(c.Reconcile.Max()),
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
