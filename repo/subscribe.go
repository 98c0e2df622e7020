package repo

import (
	"context"
	stderrors "errors"
	"log"

	"github.com/pkg/errors"

	"github.com/caco26i/dcc/errs"
	"github.com/caco26i/dcc/replay"
	"github.com/caco26i/dcc/updates"
)

// Stream starts a live, resumable subscription at fromHeight,
// implementing the three-phase catch-up protocol of spec.md §4.6:
// Phase H replays persisted history in batches, Phase L atomically
// splices the remaining history with the current liquid tip and
// attaches to the recent-updates buffer, and Phase T delivers the live
// tail. fromHeight < 1 is clamped to 1; fromHeight > height()+1 fails
// with errs.ErrOutOfRange.
//
// A single goroutine runs all three phases; Cancel on the returned
// Subscription tears it down the same way slidechain's RunPin
// goroutines are torn down by their context (pin.go), but with a
// reported terminal error where RunPin has none.
func (r *Repository) Stream(ctx context.Context, fromHeight updates.Height) (*Subscription, error) {
	if fromHeight < 1 {
		fromHeight = 1
	}

	cur, err := r.Height()
	if err != nil {
		return nil, err
	}
	if int64(fromHeight) > int64(cur)+1 {
		return nil, errs.ErrOutOfRange
	}

	sctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		events: make(chan updates.Update, r.opts.BackPressureBufferSize),
		errc:   make(chan error, 1),
		cancel: cancel,
	}

	go func() {
		log.Printf("Stream(%d) starting", fromHeight)
		defer log.Printf("Stream(%d) exiting", fromHeight)

		runErr := r.runSubscription(sctx, sub, fromHeight)
		deliverTerminal(sub, runErr)
		close(sub.events)
	}()

	return sub, nil
}

func deliverTerminal(sub *Subscription, err error) {
	if err == nil {
		return
	}
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		trySend(sub.errc, err)
	case stderrors.Is(err, errs.ErrSlowConsumer):
		trySend(sub.errc, err)
	case stderrors.Is(err, errs.ErrOutOfRange):
		trySend(sub.errc, err)
	default:
		trySend(sub.errc, errors.Wrap(errs.ErrStreamFailed, err.Error()))
	}
}

func trySend(errc chan error, err error) {
	select {
	case errc <- err:
	default:
	}
}

// sendEvent delivers u to the subscription's outbound channel without
// blocking: a full channel means the subscriber hasn't drained within
// its back-pressure buffer, and is severed (spec.md §4.6).
func sendEvent(ctx context.Context, sub *Subscription, u updates.Update) error {
	select {
	case sub.events <- u:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errs.ErrSlowConsumer
	}
}

func (r *Repository) runSubscription(ctx context.Context, sub *Subscription, fromHeight updates.Height) error {
	cursor := fromHeight

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		curHeight, err := r.Height()
		if err != nil {
			return err
		}

		if int64(curHeight)-int64(cursor) <= int64(r.opts.BatchSize) {
			return r.spliceAndTail(ctx, sub, cursor)
		}

		last, n, err := r.emitBatch(ctx, sub, cursor)
		if err != nil {
			return err
		}
		if n == 0 {
			// History shrank out from under us (a rollback arrived
			// mid-Phase-H); re-check the splice condition against the
			// now-current height rather than assuming progress.
			continue
		}
		cursor = last + 1
	}
}

// emitBatch reads and emits up to BatchSize persisted blocks starting
// at from, under a shared lock held only for the duration of this one
// batch (spec.md §4.6 Phase H).
func (r *Repository) emitBatch(ctx context.Context, sub *Subscription, from updates.Height) (last updates.Height, n int, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, err := r.log.ScanFrom(from)
	if err != nil {
		return 0, 0, err
	}
	defer it.Close()

	for n < r.opts.BatchSize && it.Next() {
		h := it.Height()
		blk, decErr := r.codec.Decode(it.Value())
		if decErr != nil {
			return 0, 0, decErr
		}
		if sendErr := sendEvent(ctx, sub, blk); sendErr != nil {
			return 0, 0, sendErr
		}
		last = h
		n++
		it.Advance()
	}
	return last, n, nil
}

// spliceAndTail implements Phase L and Phase T: under a single shared
// lock, it emits the remaining persisted blocks in [cursor, height()-1]
// followed by the current liquid tip as one atomic snapshot, attaches
// to the recent-updates buffer *before* releasing the lock (spec.md
// §5's hand-off atomicity requirement), and then drains the buffer
// cursor until the subscription ends.
func (r *Repository) spliceAndTail(ctx context.Context, sub *Subscription, cursor updates.Height) error {
	liveCursor, err := r.spliceAndAttach(ctx, sub, cursor)
	if err != nil {
		return err
	}
	return r.drainLive(ctx, sub, liveCursor)
}

func (r *Repository) spliceAndAttach(ctx context.Context, sub *Subscription, cursor updates.Height) (*replay.Cursor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	it, err := r.log.ScanFrom(cursor)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var lastID updates.BlockID
	emitted := false
	for it.Next() {
		blk, decErr := r.codec.Decode(it.Value())
		if decErr != nil {
			return nil, decErr
		}
		if sendErr := sendEvent(ctx, sub, blk); sendErr != nil {
			return nil, sendErr
		}
		lastID = blk.ID
		emitted = true
		it.Advance()
	}

	if r.liquid.Present() {
		kb := r.liquid.KeyBlock
		if sendErr := sendEvent(ctx, sub, kb); sendErr != nil {
			return nil, sendErr
		}
		lastID, emitted = kb.ID, true

		for _, m := range r.liquid.MicroBlocks {
			if sendErr := sendEvent(ctx, sub, m); sendErr != nil {
				return nil, sendErr
			}
			lastID = m.ID
		}
	}

	if !emitted {
		// Nothing has ever been committed (spec.md §4.6's empty-history
		// edge case): there is nothing to match in the buffer, so attach
		// at the current write head and begin the live tail immediately.
		return r.buf.Attach(), nil
	}

	liveCursor, ok := r.buf.AttachAfter(lastID)
	if !ok {
		// The buffer evicted lastID before we could attach: it wasn't
		// sized to outlast a Phase-L snapshot against writer throughput
		// (spec.md §5 assumes capacity >> max batch size for exactly
		// this reason). Nothing safe remains to do but fail the stream.
		return nil, errors.Errorf("recent-updates buffer no longer holds hand-off event %s", lastID)
	}
	return liveCursor, nil
}

func (r *Repository) drainLive(ctx context.Context, sub *Subscription, c *replay.Cursor) error {
	for {
		u, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if u == nil {
			return nil
		}
		if err := sendEvent(ctx, sub, u); err != nil {
			return err
		}
	}
}
