package dispatch

import (
	"sync/atomic"
	"time"
)

// counters holds the dispatcher statistics.
type counters struct {
	dispatched    atomic.Uint64
	handled       atomic.Uint64
	unhandled     atomic.Uint64
	staleCalls    atomic.Uint64
	scriptErrors  atomic.Uint64
	marshalErrors atomic.Uint64
	refused       atomic.Uint64
	totalTimeNs   atomic.Int64
}

// Stats contains statistics for a dispatcher.
type Stats struct {
	// Dispatched is the total number of Dispatch calls.
	Dispatched uint64

	// Handled is the number of events some listener handled.
	Handled uint64

	// Unhandled is the number of events no listener handled.
	Unhandled uint64

	// StaleListeners is the number of calls abandoned because the
	// listener's callback was gone.
	StaleListeners uint64

	// ScriptErrors is the number of calls the script failed.
	ScriptErrors uint64

	// MarshalErrors is the number of fields that could not be read back.
	MarshalErrors uint64

	// Refused is the number of re-entrant dispatches that were refused.
	Refused uint64

	// TotalDuration is the cumulative time spent dispatching.
	TotalDuration time.Duration

	// AvgDuration is the average dispatch time.
	AvgDuration time.Duration
}

// Stats returns dispatch statistics.
// Values are read without a lock and may be slightly inconsistent while
// dispatches are running.
func (d *Dispatcher) Stats() Stats {
	dispatched := d.stats.dispatched.Load()
	totalNs := d.stats.totalTimeNs.Load()

	var avgNs int64
	if dispatched > 0 {
		avgNs = totalNs / int64(dispatched)
	}

	return Stats{
		Dispatched:     dispatched,
		Handled:        d.stats.handled.Load(),
		Unhandled:      d.stats.unhandled.Load(),
		StaleListeners: d.stats.staleCalls.Load(),
		ScriptErrors:   d.stats.scriptErrors.Load(),
		MarshalErrors:  d.stats.marshalErrors.Load(),
		Refused:        d.stats.refused.Load(),
		TotalDuration:  time.Duration(totalNs),
		AvgDuration:    time.Duration(avgNs),
	}
}
