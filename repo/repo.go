// Package repo ties together the persistent log, the liquid state
// machine, and the recent-updates buffer into the repository core
// described in spec.md §4.3-§4.6: the write path, the read path, and
// the live, resumable subscription engine.
//
// The write path's single sync.RWMutex (taken exclusively by writers,
// shared by readers) is the serialization point spec.md §5 requires:
// every write holds it across state mutation, durable log write, and
// buffer publish, so no reader or subscriber ever observes liquid
// state, the log, and the buffer disagreeing with each other. This
// mirrors stellar-slingshot/slidechain's submitter.submitTx, whose
// bbmu mutex spans block-build, commit, and w.Write(b) the same way,
// generalized from a single mutex to an RWMutex because this repo
// needs concurrent readers, not just a single waiter.
package repo

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/caco26i/dcc/codec"
	"github.com/caco26i/dcc/replay"
	"github.com/caco26i/dcc/store"
	"github.com/caco26i/dcc/updates"
)

// Repository is a durable, replayable feed of blockchain update events.
// A Repository owns its log handle, its liquid state, and its
// recent-updates buffer exclusively; no other code may read or write
// the log directly (spec.md §5).
type Repository struct {
	mu sync.RWMutex

	log    *store.Log
	codec  codec.Codec
	liquid updates.LiquidState

	buf  *replay.Buffer
	opts Options
}

// New constructs a Repository over an already-open log and codec. The
// repository starts with no liquid state, and AppendBlock without
// liquid state accepts only a block at height 1, also when log already
// holds persisted blocks from a previous process; appending at log
// height+1 after a restart is rejected with errs.ErrOutOfOrder.
// Recovering an in-flight liquid tip across a
// restart is not modeled by spec.md (liquid state and the
// recent-updates buffer are explicitly volatile, spec.md §6) and is
// therefore the producing node's responsibility, not this package's.
func New(log *store.Log, c codec.Codec, opts Options) *Repository {
	opts = opts.WithDefaults()
	return &Repository{
		log:   log,
		codec: c,
		buf:   replay.New(opts.RecentUpdatesBufferSize),
		opts:  opts,
	}
}

// heightLocked returns the current height. Callers must hold r.mu for
// reading or writing.
func (r *Repository) heightLocked() (updates.Height, error) {
	if r.liquid.Present() {
		return r.liquid.KeyBlock.Height, nil
	}
	h, ok, err := r.log.MaxHeight()
	if err != nil {
		return 0, errors.Wrap(err, "reading max persisted height")
	}
	if !ok {
		return 0, nil
	}
	return h, nil
}

// Height returns the repository's current height: the liquid key
// block's height if liquid state is present, else the greatest
// persisted height, else 0 (spec.md §4.4).
func (r *Repository) Height() (updates.Height, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.heightLocked()
}
