// Package liquid implements the in-memory chain-tip state machine
// (spec.md §4.2): the current key block plus its ordered micro-block
// suffix, and the deterministic fold ("solidification") that turns a
// liquid state into the single BlockAppended persisted at its height.
//
// Solidify is a pure function of its argument so the write path is
// testable without a codec or a log (spec.md §9).
package liquid

import (
	"encoding/binary"

	"github.com/caco26i/dcc/updates"
)

// NewKeyBlock returns the liquid state produced by adding a new key
// block on top of an empty or absent tip. Callers are responsible for
// checking the height precondition (spec.md §4.3) before calling this.
func NewKeyBlock(b updates.BlockAppended) updates.LiquidState {
	return updates.LiquidState{KeyBlock: b}
}

// AppendMicroBlock returns the liquid state produced by appending m to
// s's micro-block suffix.
func AppendMicroBlock(s updates.LiquidState, m updates.MicroBlockAppended) updates.LiquidState {
	out := updates.LiquidState{
		KeyBlock:    s.KeyBlock,
		MicroBlocks: make([]updates.MicroBlockAppended, len(s.MicroBlocks), len(s.MicroBlocks)+1),
	}
	copy(out.MicroBlocks, s.MicroBlocks)
	out.MicroBlocks = append(out.MicroBlocks, m)
	return out
}

// TruncateMicroBlocks returns the liquid state with its micro-block
// suffix truncated to end at (and include) the element with the given
// id, or to empty if id is the key block's own id. ok is false if id
// matches neither the key block nor any micro-block.
func TruncateMicroBlocks(s updates.LiquidState, id updates.BlockID) (out updates.LiquidState, ok bool) {
	if s.KeyBlock.ID == id {
		return updates.LiquidState{KeyBlock: s.KeyBlock}, true
	}
	for i, m := range s.MicroBlocks {
		if m.ID == id {
			kept := make([]updates.MicroBlockAppended, i+1)
			copy(kept, s.MicroBlocks[:i+1])
			return updates.LiquidState{KeyBlock: s.KeyBlock, MicroBlocks: kept}, true
		}
	}
	return updates.LiquidState{}, false
}

// Solidify deterministically folds a liquid state's key block and
// micro-block suffix into the single BlockAppended that will be
// persisted at the key block's height. The fold is: the key block's
// payload, followed by each micro-block's payload in order, each
// prefixed with its own big-endian uint32 length. This is the single
// definition of the fold; nothing else in the module reinterprets it.
func Solidify(s updates.LiquidState) updates.BlockAppended {
	if len(s.MicroBlocks) == 0 {
		return s.KeyBlock
	}

	size := len(s.KeyBlock.Payload)
	for _, m := range s.MicroBlocks {
		size += 4 + len(m.Payload)
	}
	payload := make([]byte, 0, size)
	payload = append(payload, s.KeyBlock.Payload...)
	for _, m := range s.MicroBlocks {
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(m.Payload)))
		payload = append(payload, lenBuf[:]...)
		payload = append(payload, m.Payload...)
	}

	return updates.BlockAppended{
		Height:  s.KeyBlock.Height,
		ID:      s.KeyBlock.ID,
		Payload: payload,
	}
}
