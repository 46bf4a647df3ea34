package memory

import "sync/atomic"

// Process-wide box counters. Only creation, destruction and faults are
// counted; retain/release stay on the box's own counter.
var stats struct {
	created   atomic.Uint64
	destroyed atomic.Uint64
	faults    atomic.Uint64
}

// Stats is a snapshot of the box counters
type Stats struct {
	BoxesCreated   uint64
	BoxesDestroyed uint64
	Faults         uint64
}

// Live returns boxes created but not yet destroyed
func (s Stats) Live() uint64 {
	return s.BoxesCreated - s.BoxesDestroyed
}

// Sub returns the counters accumulated since base
func (s Stats) Sub(base Stats) Stats {
	return Stats{
		BoxesCreated:   s.BoxesCreated - base.BoxesCreated,
		BoxesDestroyed: s.BoxesDestroyed - base.BoxesDestroyed,
		Faults:         s.Faults - base.Faults,
	}
}

// Snapshot reads the current counters
func Snapshot() Stats {
	return Stats{
		BoxesCreated:   stats.created.Load(),
		BoxesDestroyed: stats.destroyed.Load(),
		Faults:         stats.faults.Load(),
	}
}
