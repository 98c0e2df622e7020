package repo

import (
	"context"

	"github.com/pkg/errors"

	"github.com/caco26i/dcc/liquid"
	"github.com/caco26i/dcc/updates"
)

// UpdateForHeight returns the solidified block at height h, or
// ok=false if no block has been committed there (spec.md §4.4).
func (r *Repository) UpdateForHeight(h updates.Height) (updates.BlockAppended, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.liquid.Present() {
		if h == r.liquid.KeyBlock.Height {
			return liquid.Solidify(r.liquid), true, nil
		}
		if h > r.liquid.KeyBlock.Height {
			return updates.BlockAppended{}, false, nil
		}
	}

	bits, ok, err := r.log.Get(h)
	if err != nil {
		return updates.BlockAppended{}, false, err
	}
	if !ok {
		return updates.BlockAppended{}, false, nil
	}
	blk, err := r.codec.Decode(bits)
	if err != nil {
		return updates.BlockAppended{}, false, err
	}
	return blk, true, nil
}

// UpdatesRange returns the committed blocks at heights [from, to],
// inclusive, each as UpdateForHeight reports it. It does not read
// through Stream: the block at the liquid height comes back in its
// solidified form (micro-block payloads folded in), where Stream
// delivers that key block and its micro-blocks as separate events. It
// stops and returns an error immediately if ctx is canceled or a
// height in range has no committed block.
func (r *Repository) UpdatesRange(ctx context.Context, from, to updates.Height) ([]updates.BlockAppended, error) {
	if to < from {
		return nil, nil
	}
	out := make([]updates.BlockAppended, 0, int(to-from)+1)
	for h := from; h <= to; h++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		blk, ok, err := r.UpdateForHeight(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errors.Errorf("updatesRange: no committed block at height %d", h)
		}
		out = append(out, blk)
	}
	return out, nil
}
