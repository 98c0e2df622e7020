package updates

import "testing"

func TestBlockIDString(t *testing.T) {
	var id BlockID
	id[0] = 0xde
	id[1] = 0xad
	id[31] = 0xff
	s := id.String()
	if s[:4] != "dead" {
		t.Fatalf("String() = %q, want prefix dead", s)
	}
	if len(s) != 64 {
		t.Fatalf("String() length = %d, want 64", len(s))
	}
}

func TestID(t *testing.T) {
	blk := BlockAppended{Height: 3, ID: BlockID{1}}
	micro := MicroBlockAppended{ParentBlockHeight: 3, ID: BlockID{2}}
	rb := RollbackCompleted{ToHeight: 1, ToID: BlockID{3}}
	mrb := MicroBlockRollbackCompleted{ToID: BlockID{4}}

	cases := []struct {
		name   string
		u      Update
		wantID BlockID
		wantOK bool
	}{
		{"block", blk, blk.ID, true},
		{"micro", micro, micro.ID, true},
		{"rollback", rb, rb.ToID, true},
		{"microRollback", mrb, mrb.ToID, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			id, ok := ID(c.u)
			if ok != c.wantOK || id != c.wantID {
				t.Fatalf("ID(%v) = (%v, %v), want (%v, %v)", c.u, id, ok, c.wantID, c.wantOK)
			}
		})
	}
}

func TestLiquidStatePresent(t *testing.T) {
	var empty LiquidState
	if empty.Present() {
		t.Fatal("zero-value LiquidState should not be Present")
	}
	s := LiquidState{KeyBlock: BlockAppended{Height: 1, ID: BlockID{1}}}
	if !s.Present() {
		t.Fatal("LiquidState with a key block at height 1 should be Present")
	}
}
