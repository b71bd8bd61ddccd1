package index

import (
	"log"

	"nftmarket.mini/nfm/internal/market"
)

// Indexer consumes committed market events and applies them to the store.
type Indexer struct {
	store  *Store
	events <-chan market.Event
	done   chan struct{}
}

// NewIndexer wires a store to an event channel.
func NewIndexer(store *Store, events <-chan market.Event) *Indexer {
	return &Indexer{store: store, events: events, done: make(chan struct{})}
}

// Start consumes events in a goroutine until the channel closes.
func (ix *Indexer) Start() {
	go func() {
		defer close(ix.done)
		for ev := range ix.events {
			if err := ix.apply(ev); err != nil {
				log.Printf("WARN: index apply %s: %v", ev.Type, err)
			}
		}
	}()
}

// Wait blocks until the indexer has drained its channel and stopped.
func (ix *Indexer) Wait() {
	<-ix.done
}

func (ix *Indexer) apply(ev market.Event) error {
	switch ev.Type {
	case market.EventAssetMinted, market.EventAssetListed, market.EventAssetDelisted:
		if ev.Asset != nil {
			return ix.store.UpsertAsset(*ev.Asset)
		}
	case market.EventBidPlaced:
		if ev.Escrow != nil {
			return ix.store.UpsertEscrow(*ev.Escrow)
		}
	case market.EventSettled:
		if ev.Asset != nil {
			if err := ix.store.UpsertAsset(*ev.Asset); err != nil {
				return err
			}
		}
		if ev.Escrow != nil {
			if err := ix.store.UpsertEscrow(*ev.Escrow); err != nil {
				return err
			}
		}
		if ev.Result != nil {
			// The winning escrow and every refund changed status; rewrite
			// the rows we know about from the result.
			for _, r := range ev.Result.Refunded {
				if err := ix.markEscrow(r.Escrow, "refunded"); err != nil {
					return err
				}
			}
		}
	case market.EventEscrowClosed:
		// Address is carried on the escrow when present.
		if ev.Escrow != nil {
			return ix.store.DeleteEscrow(ev.Escrow.Address)
		}
	}
	return nil
}

func (ix *Indexer) markEscrow(addr, status string) error {
	ix.store.mu.Lock()
	defer ix.store.mu.Unlock()
	if _, err := ix.store.db.Exec(`UPDATE escrows SET status = ? WHERE address = ?`, status, addr); err != nil {
		return err
	}
	ix.store.notify()
	return nil
}
