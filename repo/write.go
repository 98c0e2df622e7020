package repo

import (
	"github.com/pkg/errors"

	"github.com/caco26i/dcc/errs"
	"github.com/caco26i/dcc/liquid"
	"github.com/caco26i/dcc/updates"
)

// AppendBlock commits a new key block. If liquid state is already
// present, its current contents are solidified and persisted at the
// old key block's height before the new liquid state replaces it
// (spec.md §4.3). AppendBlock publishes exactly one event to the
// recent-updates buffer before releasing its lock.
func (r *Repository) AppendBlock(b updates.BlockAppended) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.liquid.Present() {
		if b.Height != r.liquid.KeyBlock.Height+1 {
			return errors.Wrapf(errs.ErrOutOfOrder, "appendBlock: expected height %d, got %d", r.liquid.KeyBlock.Height+1, b.Height)
		}
		solid := liquid.Solidify(r.liquid)
		bits, err := r.codec.Encode(solid)
		if err != nil {
			return errors.Wrap(errs.Storage(err), "encoding solidified block")
		}
		if err := r.log.Put(solid.Height, bits); err != nil {
			return err
		}
	} else if b.Height != 1 {
		return errors.Wrapf(errs.ErrOutOfOrder, "appendBlock: expected height 1, got %d", b.Height)
	}

	r.liquid = liquid.NewKeyBlock(b)
	r.buf.Publish(b)
	return nil
}

// AppendMicroBlock appends a micro-block to the current liquid tip.
func (r *Repository) AppendMicroBlock(m updates.MicroBlockAppended) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.liquid.Present() {
		return errors.Wrap(errs.ErrNoLiquidKeyBlock, "appendMicroBlock: no liquid key block")
	}
	if m.ParentBlockHeight != r.liquid.KeyBlock.Height {
		return errors.Wrapf(errs.ErrOutOfOrder, "appendMicroBlock: expected parent height %d, got %d", r.liquid.KeyBlock.Height, m.ParentBlockHeight)
	}

	r.liquid = liquid.AppendMicroBlock(r.liquid, m)
	r.buf.Publish(m)
	return nil
}

// Rollback truncates persistent history so that height r.ToHeight with
// id r.ToID becomes the new tip key block, with no micro-blocks. The
// target block's id is verified against the persisted record *before*
// any mutation, so a mismatch leaves the repository's state untouched
// (spec.md §7's "any failure aborts the write and leaves state
// untouched").
func (r *Repository) Rollback(rb updates.RollbackCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.heightLocked()
	if err != nil {
		return err
	}
	if rb.ToHeight > cur {
		return errors.Wrapf(errs.ErrOutOfOrder, "rollback: target height %d exceeds current height %d", rb.ToHeight, cur)
	}

	bits, ok, err := r.log.Get(rb.ToHeight)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(errs.ErrInconsistentRollback, "rollback: no persisted block at height %d", rb.ToHeight)
	}
	target, err := r.codec.Decode(bits)
	if err != nil {
		return err
	}
	if target.ID != rb.ToID {
		return errors.Wrapf(errs.ErrInconsistentRollback, "rollback: persisted block at height %d has a different id", rb.ToHeight)
	}

	persistedMax, ok, err := r.log.MaxHeight()
	if err != nil {
		return err
	}
	if ok && persistedMax > rb.ToHeight {
		if err := r.log.DeleteRange(rb.ToHeight+1, persistedMax); err != nil {
			return err
		}
	}

	r.liquid = liquid.NewKeyBlock(target)
	r.buf.Publish(rb)
	return nil
}

// RollbackMicroBlock truncates the liquid state's micro-block suffix
// so that the block or micro-block identified by mr.ToID becomes the
// new tip.
func (r *Repository) RollbackMicroBlock(mr updates.MicroBlockRollbackCompleted) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.liquid.Present() {
		return errors.Wrap(errs.ErrNoLiquidKeyBlock, "rollbackMicroBlock: no liquid key block")
	}
	truncated, ok := liquid.TruncateMicroBlocks(r.liquid, mr.ToID)
	if !ok {
		return errors.Wrapf(errs.ErrOutOfOrder, "rollbackMicroBlock: id matches neither the liquid key block nor any of its micro-blocks")
	}

	r.liquid = truncated
	r.buf.Publish(mr)
	return nil
}
