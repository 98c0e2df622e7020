package repo

import "github.com/caco26i/dcc/replay"

// Options are the tunables spec.md §6 recognizes. Zero values are
// replaced by defaults in WithDefaults; CLI/flag parsing is explicitly
// out of scope (spec.md §1 Non-goals) so this is a plain struct, not a
// flag-bound config type.
type Options struct {
	// RecentUpdatesBufferSize is the capacity of the recent-updates
	// buffer. Default 1024.
	RecentUpdatesBufferSize int

	// BatchSize is the number of persisted blocks read per historical
	// batch during Phase H of a subscription, and the threshold used by
	// Phase L's splice condition. Default 10.
	BatchSize int

	// BackPressureBufferSize is the depth of a subscription's outbound
	// event channel. Default 1000.
	BackPressureBufferSize int
}

// WithDefaults returns o with zero-valued fields replaced by their
// documented defaults.
func (o Options) WithDefaults() Options {
	if o.RecentUpdatesBufferSize <= 0 {
		o.RecentUpdatesBufferSize = replay.DefaultSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 10
	}
	if o.BackPressureBufferSize <= 0 {
		o.BackPressureBufferSize = 1000
	}
	return o
}
