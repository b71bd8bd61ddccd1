// Package ledger defines the persisted record kinds of the marketplace and
// the State container the execution layer mutates in response to confirmed
// transactions. State is an explicit key-value store keyed by the derived
// addresses from internal/keys; operations receive it as a parameter, never
// through package-level access.
package ledger

import (
	"crypto/sha256"
	"encoding/json"
)

// ListingState is the advisory sale state of an asset.
type ListingState string

const (
	ListingUnlisted ListingState = "unlisted"
	ListingListed   ListingState = "listed"
	ListingSold     ListingState = "sold"
)

// EscrowStatus is the lifecycle state of a bid escrow.
type EscrowStatus string

const (
	EscrowActive   EscrowStatus = "active"
	EscrowWon      EscrowStatus = "won"
	EscrowRefunded EscrowStatus = "refunded"
)

// Asset is the permanent provenance record of one minted item. Exactly one
// record exists per item; the OneOfOne marker is immutable after mint.
type Asset struct {
	Address     string       `json:"address"`
	Creator     string       `json:"creator"`
	MetadataRef string       `json:"metadata_ref"`
	Owner       string       `json:"owner"`
	Listing     ListingState `json:"listing"`
	OneOfOne    bool         `json:"one_of_one"`
}

// Escrow is one bidder's locked offer on one asset. The locked amount is held
// by the escrow itself for its entire active lifetime; it leaves only through
// settlement (to the seller on a win, back to the bidder on a refund).
type Escrow struct {
	Address  string       `json:"address"`
	Asset    string       `json:"asset"`
	Bidder   string       `json:"bidder"`
	Amount   uint64       `json:"amount"`
	Sequence uint64       `json:"sequence"`
	Status   EscrowStatus `json:"status"`
}

// State is the full marketplace ledger. Balances are spendable funds in the
// smallest native unit, keyed by participant identity. TokenHoldings are
// ownership-token balances keyed by derived holder address; supply per asset
// is exactly one, so a holding is either absent or 1.
type State struct {
	Assets        map[string]Asset  `json:"assets"`
	Escrows       map[string]Escrow `json:"escrows"`
	Balances      map[string]uint64 `json:"balances"`
	TokenHoldings map[string]uint64 `json:"token_holdings"`
	Sequence      uint64            `json:"sequence"`
}

// NewState returns an empty ledger.
func NewState() *State {
	return &State{
		Assets:        make(map[string]Asset),
		Escrows:       make(map[string]Escrow),
		Balances:      make(map[string]uint64),
		TokenHoldings: make(map[string]uint64),
	}
}

// NextSequence returns a fresh monotonic marker for record ordering within
// the externally imposed total order.
func (s *State) NextSequence() uint64 {
	s.Sequence++
	return s.Sequence
}

// Clone returns a deep copy of the state. Tests use it to assert that failed
// operations leave the ledger byte-identical to its pre-call value.
func (s *State) Clone() *State {
	c := &State{
		Assets:        make(map[string]Asset, len(s.Assets)),
		Escrows:       make(map[string]Escrow, len(s.Escrows)),
		Balances:      make(map[string]uint64, len(s.Balances)),
		TokenHoldings: make(map[string]uint64, len(s.TokenHoldings)),
		Sequence:      s.Sequence,
	}
	for k, v := range s.Assets {
		c.Assets[k] = v
	}
	for k, v := range s.Escrows {
		c.Escrows[k] = v
	}
	for k, v := range s.Balances {
		c.Balances[k] = v
	}
	for k, v := range s.TokenHoldings {
		c.TokenHoldings[k] = v
	}
	return c
}

// Hash returns a deterministic digest of the state, used as the consensus
// app hash. encoding/json writes map keys in sorted order, so the encoding
// is canonical.
func (s *State) Hash() []byte {
	b, err := json.Marshal(s)
	if err != nil {
		// All field types are JSON-encodable; a failure here is a bug.
		panic(err)
	}
	sum := sha256.Sum256(b)
	return sum[:]
}
