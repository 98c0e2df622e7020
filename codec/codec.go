// Package codec defines the wire boundary between a solidified
// BlockAppended and its opaque on-disk byte representation. The
// repository never inspects encoded bytes; it only asks a Codec to
// produce and consume them (spec.md §6).
package codec

import (
	"bytes"
	"encoding/gob"

	"github.com/caco26i/dcc/errs"
	"github.com/caco26i/dcc/updates"
)

// Codec encodes and decodes a solidified BlockAppended to and from its
// persisted byte form. Implementations own wire-format stability; the
// repository treats the result as opaque.
type Codec interface {
	Encode(updates.BlockAppended) ([]byte, error)
	Decode([]byte) (updates.BlockAppended, error)
}

// gobRecord is the on-the-wire shape for the default codec. It is kept
// separate from updates.BlockAppended so a future wire-format change
// doesn't require touching the domain type.
type gobRecord struct {
	Height  uint32
	ID      [32]byte
	Payload []byte
}

type gobCodec struct{}

// Default returns the module's default Codec, a gob encoding of the
// block fields. It exists so the store and repo packages are testable
// without a caller-supplied production codec; real deployments are
// expected to inject their own Codec tied to the producing node's wire
// format (spec.md §6 treats the codec as an external collaborator).
func Default() Codec {
	return gobCodec{}
}

func (gobCodec) Encode(b updates.BlockAppended) ([]byte, error) {
	var buf bytes.Buffer
	rec := gobRecord{Height: uint32(b.Height), ID: b.ID, Payload: b.Payload}
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (gobCodec) Decode(data []byte) (updates.BlockAppended, error) {
	var rec gobRecord
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&rec); err != nil {
		return updates.BlockAppended{}, errs.ErrCorruptRecord
	}
	return updates.BlockAppended{
		Height:  updates.Height(rec.Height),
		ID:      rec.ID,
		Payload: rec.Payload,
	}, nil
}
