package index

import (
	"path/filepath"
	"testing"
	"time"

	"nftmarket.mini/nfm/internal/ledger"
	"nftmarket.mini/nfm/internal/market"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAssetUpsertAndQuery(t *testing.T) {
	s := testStore(t)

	a := ledger.Asset{
		Address:     "addr1",
		Creator:     "alice",
		MetadataRef: "uri://m",
		Owner:       "alice",
		Listing:     ledger.ListingUnlisted,
		OneOfOne:    true,
	}
	if err := s.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset: %v", err)
	}

	got, ok, err := s.Asset("addr1")
	if err != nil || !ok {
		t.Fatalf("Asset: ok=%v err=%v", ok, err)
	}
	if got != a {
		t.Errorf("asset = %+v, want %+v", got, a)
	}

	// Upsert with a changed owner and listing updates the existing row.
	a.Owner = "bob"
	a.Listing = ledger.ListingSold
	if err := s.UpsertAsset(a); err != nil {
		t.Fatalf("UpsertAsset update: %v", err)
	}
	all, err := s.Assets()
	if err != nil {
		t.Fatalf("Assets: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("assets = %d rows, want 1", len(all))
	}
	if all[0].Owner != "bob" || all[0].Listing != ledger.ListingSold {
		t.Errorf("updated row = %+v", all[0])
	}

	if _, ok, err := s.Asset("missing"); err != nil || ok {
		t.Errorf("missing asset: ok=%v err=%v", ok, err)
	}
}

func TestEscrowsOrderedBySequence(t *testing.T) {
	s := testStore(t)

	for i, e := range []ledger.Escrow{
		{Address: "e2", Asset: "a1", Bidder: "carol", Amount: 300, Sequence: 2, Status: ledger.EscrowActive},
		{Address: "e1", Asset: "a1", Bidder: "bob", Amount: 100, Sequence: 1, Status: ledger.EscrowActive},
		{Address: "e3", Asset: "other", Bidder: "bob", Amount: 50, Sequence: 3, Status: ledger.EscrowActive},
	} {
		if err := s.UpsertEscrow(e); err != nil {
			t.Fatalf("UpsertEscrow %d: %v", i, err)
		}
	}

	escrows, err := s.EscrowsForAsset("a1")
	if err != nil {
		t.Fatalf("EscrowsForAsset: %v", err)
	}
	if len(escrows) != 2 {
		t.Fatalf("escrows = %d rows, want 2", len(escrows))
	}
	if escrows[0].Address != "e1" || escrows[1].Address != "e2" {
		t.Errorf("order = %s, %s; want e1, e2", escrows[0].Address, escrows[1].Address)
	}

	if err := s.DeleteEscrow("e1"); err != nil {
		t.Fatalf("DeleteEscrow: %v", err)
	}
	escrows, _ = s.EscrowsForAsset("a1")
	if len(escrows) != 1 {
		t.Errorf("escrows after delete = %d rows, want 1", len(escrows))
	}
}

func TestUpdatesNotifyWithoutBlocking(t *testing.T) {
	s := testStore(t)

	// Nobody is draining the channel; repeated writes must not block.
	for i := 0; i < 5; i++ {
		if err := s.UpsertAsset(ledger.Asset{Address: "a", Creator: "c", MetadataRef: "uri://m", Owner: "c", Listing: ledger.ListingUnlisted}); err != nil {
			t.Fatalf("UpsertAsset %d: %v", i, err)
		}
	}

	select {
	case <-s.Updates():
	default:
		t.Error("no pending update notification after writes")
	}
}

func TestIndexerAppliesSettlementEvents(t *testing.T) {
	s := testStore(t)
	events := make(chan market.Event, 8)
	ix := NewIndexer(s, events)
	ix.Start()

	asset := ledger.Asset{Address: "a1", Creator: "alice", MetadataRef: "uri://m", Owner: "alice", Listing: ledger.ListingListed, OneOfOne: true}
	losing := ledger.Escrow{Address: "e-lose", Asset: "a1", Bidder: "bob", Amount: 100, Sequence: 1, Status: ledger.EscrowActive}
	winning := ledger.Escrow{Address: "e-win", Asset: "a1", Bidder: "carol", Amount: 300, Sequence: 2, Status: ledger.EscrowActive}

	events <- market.Event{Type: market.EventAssetMinted, Asset: &asset}
	events <- market.Event{Type: market.EventBidPlaced, Escrow: &losing}
	events <- market.Event{Type: market.EventBidPlaced, Escrow: &winning}

	sold := asset
	sold.Owner = "carol"
	sold.Listing = ledger.ListingSold
	won := winning
	won.Status = ledger.EscrowWon
	events <- market.Event{
		Type:   market.EventSettled,
		Asset:  &sold,
		Escrow: &won,
		Result: &market.SettlementResult{
			Asset:      "a1",
			NewOwner:   "carol",
			FinalPrice: 300,
			Refunded:   []market.RefundEntry{{Escrow: "e-lose", Bidder: "bob", Amount: 100}},
		},
	}
	close(events)
	waitDone(t, ix)

	got, ok, err := s.Asset("a1")
	if err != nil || !ok {
		t.Fatalf("Asset: ok=%v err=%v", ok, err)
	}
	if got.Owner != "carol" || got.Listing != ledger.ListingSold {
		t.Errorf("settled asset = %+v", got)
	}

	escrows, err := s.EscrowsForAsset("a1")
	if err != nil {
		t.Fatalf("EscrowsForAsset: %v", err)
	}
	status := map[string]ledger.EscrowStatus{}
	for _, e := range escrows {
		status[e.Address] = e.Status
	}
	if status["e-win"] != ledger.EscrowWon {
		t.Errorf("winning escrow status = %s, want %s", status["e-win"], ledger.EscrowWon)
	}
	if status["e-lose"] != ledger.EscrowRefunded {
		t.Errorf("losing escrow status = %s, want %s", status["e-lose"], ledger.EscrowRefunded)
	}
}

func TestIndexerAppliesEscrowClose(t *testing.T) {
	s := testStore(t)
	events := make(chan market.Event, 2)
	ix := NewIndexer(s, events)
	ix.Start()

	events <- market.Event{Type: market.EventBidPlaced,
		Escrow: &ledger.Escrow{Address: "e1", Asset: "a1", Bidder: "bob", Amount: 100, Sequence: 1, Status: ledger.EscrowRefunded}}
	events <- market.Event{Type: market.EventEscrowClosed,
		Escrow: &ledger.Escrow{Address: "e1", Asset: "a1", Bidder: "bob"}}
	close(events)
	waitDone(t, ix)

	escrows, err := s.EscrowsForAsset("a1")
	if err != nil {
		t.Fatalf("EscrowsForAsset: %v", err)
	}
	if len(escrows) != 0 {
		t.Errorf("escrows after close = %d rows, want 0", len(escrows))
	}
}

func waitDone(t *testing.T, ix *Indexer) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		ix.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("indexer did not drain in time")
	}
}
