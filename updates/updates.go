// Package updates defines the data model for the chain update stream:
// the four write events a producing node emits, and the tagged Update
// sum type that both the persistent log and live subscriptions traffic
// in.
package updates

import "fmt"

// Height is a block height. Heights are positive, strictly increasing,
// and gap-free starting from 1.
type Height uint32

// BlockID is an opaque 32-byte block identifier.
type BlockID [32]byte

func (id BlockID) String() string {
	return fmt.Sprintf("%x", [32]byte(id))
}

// Update is the tagged sum of the four write events a producer emits.
// Concrete types are BlockAppended, MicroBlockAppended, RollbackCompleted,
// and MicroBlockRollbackCompleted.
type Update interface {
	isUpdate()
}

// BlockAppended represents a finalized key block.
type BlockAppended struct {
	Height  Height
	ID      BlockID
	Payload []byte
}

func (BlockAppended) isUpdate() {}

// MicroBlockAppended sits atop the current tip key block without
// advancing height.
type MicroBlockAppended struct {
	ParentBlockHeight Height
	ID                BlockID
	Payload           []byte
}

func (MicroBlockAppended) isUpdate() {}

// RollbackCompleted truncates persisted history so that ToHeight/ToID
// becomes the new tip key block, with no micro-blocks.
type RollbackCompleted struct {
	ToHeight Height
	ToID     BlockID
}

func (RollbackCompleted) isUpdate() {}

// MicroBlockRollbackCompleted truncates the micro-block suffix of the
// liquid state so that the block or micro-block identified by ToID
// becomes the new tip.
type MicroBlockRollbackCompleted struct {
	ToID BlockID
}

func (MicroBlockRollbackCompleted) isUpdate() {}

// ID returns the identifier an Update carries, for matching purposes
// during subscription hand-off (see repo.Stream). The second return
// value is false for updates that carry no single terminal ID
// (there are none among the four variants today, but the accessor is
// total so new variants can return false instead of panicking).
func ID(u Update) (BlockID, bool) {
	switch v := u.(type) {
	case BlockAppended:
		return v.ID, true
	case MicroBlockAppended:
		return v.ID, true
	case RollbackCompleted:
		return v.ToID, true
	case MicroBlockRollbackCompleted:
		return v.ToID, true
	default:
		return BlockID{}, false
	}
}

// LiquidState is the in-memory tip: the current key block plus its
// ordered micro-block suffix. A LiquidState with a zero-value KeyBlock
// ID and Height 0 represents the absence of liquid state (no blocks
// appended yet).
type LiquidState struct {
	KeyBlock    BlockAppended
	MicroBlocks []MicroBlockAppended
}

// Present reports whether liquid state exists, i.e. whether a key
// block has been installed (by an append or by a historical rollback,
// which makes its target the key block).
func (s LiquidState) Present() bool {
	return s.KeyBlock.Height != 0
}
