package repo

import (
	"context"

	"github.com/caco26i/dcc/updates"
)

// Subscription is a live, ordered, cancellable delivery of Updates to
// one consumer, returned by Repository.Stream (spec.md §6). Back
// pressure is observable as a bounded in-flight count (the capacity of
// the channel backing Next); overflow results in a terminal
// errs.ErrSlowConsumer on this subscription only.
type Subscription struct {
	events chan updates.Update
	errc   chan error
	cancel context.CancelFunc
}

// Next blocks until the next event is available, the subscription
// terminates (returning the terminal error, or nil if it ended
// cleanly), or ctx is canceled.
func (s *Subscription) Next(ctx context.Context) (updates.Update, error) {
	select {
	case u, ok := <-s.events:
		if ok {
			return u, nil
		}
		select {
		case err := <-s.errc:
			return nil, err
		default:
			return nil, nil
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel detaches the subscription's buffer cursor and closes its scan
// iterator, if one is open. Next subsequently returns context.Canceled
// (from the internal stream context) once the subscription's goroutine
// observes the cancellation.
func (s *Subscription) Cancel() {
	s.cancel()
}
