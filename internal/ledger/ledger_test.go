package ledger

import (
	"bytes"
	"reflect"
	"testing"
)

func populated() *State {
	s := NewState()
	s.Assets["a1"] = Asset{Address: "a1", Creator: "alice", Owner: "alice", Listing: ListingListed, OneOfOne: true}
	s.Escrows["e1"] = Escrow{Address: "e1", Asset: "a1", Bidder: "bob", Amount: 100, Sequence: 1, Status: EscrowActive}
	s.Balances["bob"] = 900
	s.TokenHoldings["h1"] = 1
	s.Sequence = 1
	return s
}

func TestCloneIsIndependent(t *testing.T) {
	s := populated()
	c := s.Clone()
	if !reflect.DeepEqual(s, c) {
		t.Fatal("clone differs from original")
	}

	c.Assets["a2"] = Asset{Address: "a2"}
	c.Balances["bob"] = 0
	c.NextSequence()
	if _, leaked := s.Assets["a2"]; leaked {
		t.Error("clone write leaked into original assets")
	}
	if s.Balances["bob"] != 900 {
		t.Error("clone write leaked into original balances")
	}
	if s.Sequence != 1 {
		t.Error("clone sequence advance leaked into original")
	}
}

func TestHashTracksContent(t *testing.T) {
	s1 := populated()
	s2 := populated()
	if !bytes.Equal(s1.Hash(), s2.Hash()) {
		t.Error("equal states hashed differently")
	}

	s2.Balances["bob"] = 899
	if bytes.Equal(s1.Hash(), s2.Hash()) {
		t.Error("differing states hashed identically")
	}
}

func TestHashInsensitiveToInsertionOrder(t *testing.T) {
	s1 := NewState()
	s1.Balances["a"] = 1
	s1.Balances["b"] = 2

	s2 := NewState()
	s2.Balances["b"] = 2
	s2.Balances["a"] = 1

	if !bytes.Equal(s1.Hash(), s2.Hash()) {
		t.Error("map insertion order changed the hash")
	}
}

func TestChangesetReadsThroughStagedWrites(t *testing.T) {
	s := populated()
	cs := NewChangeset(s)

	cs.SetBalance("bob", 500)
	if got := cs.Balance("bob"); got != 500 {
		t.Errorf("staged balance = %d, want 500", got)
	}
	if s.Balances["bob"] != 900 {
		t.Error("staged write reached state before commit")
	}

	cs.DeleteEscrow("e1")
	if _, ok := cs.Escrow("e1"); ok {
		t.Error("staged delete not visible through changeset")
	}
	if _, ok := s.Escrows["e1"]; !ok {
		t.Error("staged delete reached state before commit")
	}

	cs.DeleteHolding("h1")
	if got := cs.Holding("h1"); got != 0 {
		t.Errorf("staged holding delete read %d, want 0", got)
	}
}

func TestChangesetCommitAppliesEverything(t *testing.T) {
	s := populated()
	cs := NewChangeset(s)
	cs.PutAsset(Asset{Address: "a2", Creator: "carol", Owner: "carol", Listing: ListingUnlisted})
	cs.PutEscrow(Escrow{Address: "e2", Asset: "a2", Bidder: "bob", Amount: 50, Sequence: 2, Status: EscrowActive})
	cs.SetBalance("bob", 850)
	cs.DeleteHolding("h1")
	cs.SetHolding("h2", 1)
	cs.Commit()

	if _, ok := s.Assets["a2"]; !ok {
		t.Error("committed asset missing")
	}
	if s.Escrows["e2"].Amount != 50 {
		t.Error("committed escrow missing")
	}
	if s.Balances["bob"] != 850 {
		t.Errorf("balance = %d, want 850", s.Balances["bob"])
	}
	if _, ok := s.TokenHoldings["h1"]; ok {
		t.Error("deleted holding still present")
	}
	if s.TokenHoldings["h2"] != 1 {
		t.Error("committed holding missing")
	}
}

func TestChangesetDiscardLeavesStateUntouched(t *testing.T) {
	s := populated()
	before := s.Clone()

	cs := NewChangeset(s)
	cs.PutAsset(Asset{Address: "a2"})
	cs.SetBalance("bob", 0)
	cs.DeleteEscrow("e1")
	// No commit.

	if !reflect.DeepEqual(s, before) {
		t.Error("discarded changeset mutated state")
	}
}

func TestCommitDropsZeroBalances(t *testing.T) {
	s := populated()
	cs := NewChangeset(s)
	cs.SetBalance("bob", 0)
	cs.Commit()

	if _, ok := s.Balances["bob"]; ok {
		t.Error("zero balance kept as explicit key")
	}
	// Absent and zero must hash identically, which Commit guarantees by
	// never storing zeros.
	if got := s.Balances["bob"]; got != 0 {
		t.Errorf("absent balance read %d, want 0", got)
	}
}
