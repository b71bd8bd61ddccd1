// Package market implements the on-ledger settlement state machine: minting
// of one-of-one assets, escrowed bidding, and the atomic exchange of escrowed
// funds against the ownership token. Every operation is a single state
// transition applied under a total order imposed externally by the hosting
// consensus engine; the engine assumes no preemption within an operation and
// no parallelism between operations, but must be correct under any serial
// interleaving of submitters.
//
// Every operation is all-or-nothing. Errors are detected before any mutation
// is committed; multi-record effects are staged in a ledger.Changeset and
// committed as one step.
package market

import (
	"fmt"
	"net/url"
	"sort"

	"nftmarket.mini/nfm/internal/keys"
	"nftmarket.mini/nfm/internal/ledger"
)

// SignatureVerifier checks that a signature over a payload was produced by
// the named identity. Production wiring uses ed25519 (internal/identity);
// tests supply a deterministic stub.
type SignatureVerifier interface {
	Verify(identity string, payload, signature []byte) bool
}

// Policy holds explicit configuration choices of the engine.
type Policy struct {
	// AllowUnlistedBids permits bidding while an asset's listing state is
	// still Unlisted. Listing is advisory metadata, not a gate, under the
	// default policy.
	AllowUnlistedBids bool
}

// DefaultPolicy treats listing as advisory and accepts bids on unlisted
// assets.
func DefaultPolicy() Policy {
	return Policy{AllowUnlistedBids: true}
}

// Engine applies marketplace operations to an explicit ledger state.
type Engine struct {
	state  *ledger.State
	verify SignatureVerifier
	policy Policy
}

// New creates an engine over the given state with an injected signature
// verifier.
func New(state *ledger.State, verify SignatureVerifier, policy Policy) *Engine {
	return &Engine{state: state, verify: verify, policy: policy}
}

// State exposes the underlying ledger. The caller must respect the external
// one-operation-at-a-time execution discipline.
func (e *Engine) State() *ledger.State {
	return e.state
}

// Mint allocates a new asset record at the address derived from
// (creatorID, mintSeed), makes creatorID the owner, and credits the single
// ownership token to the creator's holder account. metadataRef is checked
// syntactically only; the referenced document is never fetched.
func (e *Engine) Mint(creatorID, mintSeed, metadataRef string) (*ledger.Asset, error) {
	if err := validMetadataRef(metadataRef); err != nil {
		return nil, err
	}
	assetAddr, err := keys.AssetAddress(creatorID, mintSeed)
	if err != nil {
		return nil, wrapError(KindValidation, derivationField(err), "malformed mint key", err)
	}
	holderAddr, err := keys.HolderAddress(assetAddr, creatorID)
	if err != nil {
		return nil, wrapError(KindValidation, derivationField(err), "malformed holder key", err)
	}
	if _, exists := e.state.Assets[assetAddr]; exists {
		return nil, newError(KindStateConflict, "seed", "asset already minted for this seed")
	}

	asset := ledger.Asset{
		Address:     assetAddr,
		Creator:     creatorID,
		MetadataRef: metadataRef,
		Owner:       creatorID,
		Listing:     ledger.ListingUnlisted,
		OneOfOne:    true,
	}
	cs := ledger.NewChangeset(e.state)
	cs.PutAsset(asset)
	cs.SetHolding(holderAddr, 1)
	cs.Commit()
	return &asset, nil
}

// PlaceBid creates or updates the escrow record for (assetAddr, bidderID),
// locking exactly amount in escrow custody. A repeat bid from the same
// bidder replaces the prior locked amount: only the positive delta is drawn
// from the bidder's spendable balance, and a reduction is refunded
// immediately. The call has no partial effect on failure.
func (e *Engine) PlaceBid(assetAddr, bidderID string, amount uint64) (*ledger.Escrow, error) {
	if amount == 0 {
		return nil, newError(KindValidation, "amount", "bid amount must be positive")
	}
	escrowAddr, err := keys.EscrowAddress(assetAddr, bidderID)
	if err != nil {
		return nil, wrapError(KindValidation, derivationField(err), "malformed escrow key", err)
	}
	asset, ok := e.state.Assets[assetAddr]
	if !ok {
		return nil, newError(KindStateConflict, "asset", "unknown asset")
	}
	switch asset.Listing {
	case ledger.ListingSold:
		return nil, newError(KindStateConflict, "asset", "asset already sold")
	case ledger.ListingUnlisted:
		if !e.policy.AllowUnlistedBids {
			return nil, newError(KindStateConflict, "asset", "asset is not listed for sale")
		}
	}

	var locked uint64
	var sequence uint64
	if prior, exists := e.state.Escrows[escrowAddr]; exists && prior.Status == ledger.EscrowActive {
		locked = prior.Amount
		sequence = prior.Sequence
	}

	cs := ledger.NewChangeset(e.state)
	balance := cs.Balance(bidderID)
	switch {
	case amount > locked:
		delta := amount - locked
		if balance < delta {
			return nil, newError(KindResource, "amount", fmt.Sprintf("insufficient funds: need %d, have %d", delta, balance))
		}
		cs.SetBalance(bidderID, balance-delta)
	case amount < locked:
		cs.SetBalance(bidderID, balance+(locked-amount))
	}
	if sequence == 0 {
		sequence = e.state.NextSequence()
	}
	escrow := ledger.Escrow{
		Address:  escrowAddr,
		Asset:    assetAddr,
		Bidder:   bidderID,
		Amount:   amount,
		Sequence: sequence,
		Status:   ledger.EscrowActive,
	}
	cs.PutEscrow(escrow)
	cs.Commit()
	return &escrow, nil
}

// RefundEntry records one losing escrow refunded during settlement.
type RefundEntry struct {
	Escrow string `json:"escrow"`
	Bidder string `json:"bidder"`
	Amount uint64 `json:"amount"`
}

// SettlementResult describes the completed exchange.
type SettlementResult struct {
	Asset      string        `json:"asset"`
	NewOwner   string        `json:"new_owner"`
	FinalPrice uint64        `json:"final_price"`
	Refunded   []RefundEntry `json:"refunded,omitempty"`
}

// Settle executes the atomic exchange for assetAddr: the winning escrow's
// funds move to the seller and the escrow becomes Won, every other active
// escrow for the asset is refunded in full and becomes Refunded, the
// ownership token moves from the seller's to the winner's holder account,
// and the asset record's owner becomes winningBidderID with listing Sold.
//
// sellerID names the caller; sellerSig over payload must verify against it,
// and it must equal the asset's current owner. The caller chooses the winner
// explicitly; Settle verifies the chosen escrow exists and is active but
// never auto-selects a highest bid. All effects apply together or not at all.
func (e *Engine) Settle(assetAddr, winningBidderID, sellerID string, payload, sellerSig []byte) (*SettlementResult, error) {
	asset, ok := e.state.Assets[assetAddr]
	if !ok {
		return nil, newError(KindStateConflict, "asset", "unknown asset")
	}
	if asset.Listing == ledger.ListingSold {
		return nil, newError(KindStateConflict, "asset", "asset already sold")
	}
	if !e.verify.Verify(sellerID, payload, sellerSig) {
		return nil, newError(KindAuthorization, "signature", "seller signature does not verify")
	}
	if sellerID != asset.Owner {
		return nil, newError(KindAuthorization, "seller", "caller is not the asset owner")
	}
	winAddr, err := keys.EscrowAddress(assetAddr, winningBidderID)
	if err != nil {
		return nil, wrapError(KindValidation, derivationField(err), "malformed escrow key", err)
	}
	winning, ok := e.state.Escrows[winAddr]
	if !ok || winning.Status != ledger.EscrowActive {
		return nil, newError(KindStateConflict, "escrow", "winning bidder has no active escrow")
	}

	sellerHolder, err := keys.HolderAddress(assetAddr, asset.Owner)
	if err != nil {
		return nil, wrapError(KindValidation, derivationField(err), "malformed holder key", err)
	}
	winnerHolder, err := keys.HolderAddress(assetAddr, winningBidderID)
	if err != nil {
		return nil, wrapError(KindValidation, derivationField(err), "malformed holder key", err)
	}
	if e.state.TokenHoldings[sellerHolder] != 1 {
		return nil, newError(KindStateConflict, "token", "ownership token not held by seller")
	}

	// Stage the full effect, validating each escrow against the unmodified
	// state; any failure discards the changeset entirely.
	cs := ledger.NewChangeset(e.state)

	winning.Status = ledger.EscrowWon
	cs.PutEscrow(winning)
	cs.SetBalance(sellerID, cs.Balance(sellerID)+winning.Amount)

	var refunded []RefundEntry
	for _, addr := range e.activeEscrowAddrs(assetAddr) {
		if addr == winAddr {
			continue
		}
		other := e.state.Escrows[addr]
		if other.Bidder == "" {
			return nil, newError(KindStateConflict, "escrow", "malformed escrow record")
		}
		other.Status = ledger.EscrowRefunded
		cs.PutEscrow(other)
		cs.SetBalance(other.Bidder, cs.Balance(other.Bidder)+other.Amount)
		refunded = append(refunded, RefundEntry{Escrow: addr, Bidder: other.Bidder, Amount: other.Amount})
	}

	cs.DeleteHolding(sellerHolder)
	cs.SetHolding(winnerHolder, 1)

	asset.Owner = winningBidderID
	asset.Listing = ledger.ListingSold
	cs.PutAsset(asset)

	cs.Commit()
	return &SettlementResult{
		Asset:      assetAddr,
		NewOwner:   winningBidderID,
		FinalPrice: winning.Amount,
		Refunded:   refunded,
	}, nil
}

// activeEscrowAddrs returns the addresses of all active escrows for an asset
// in sorted order, so refund application is deterministic across replicas.
func (e *Engine) activeEscrowAddrs(assetAddr string) []string {
	var addrs []string
	for addr, esc := range e.state.Escrows {
		if esc.Asset == assetAddr && esc.Status == ledger.EscrowActive {
			addrs = append(addrs, addr)
		}
	}
	sort.Strings(addrs)
	return addrs
}

func derivationField(err error) string {
	if d, ok := err.(*keys.DerivationError); ok {
		return d.Field
	}
	return "key"
}

// validMetadataRef accepts a URI with a scheme or a bare content hash of at
// least 32 base58/hex characters. The referenced document is out of scope.
func validMetadataRef(ref string) error {
	if ref == "" {
		return newError(KindValidation, "metadata_ref", "metadata reference is required")
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return nil
	}
	if len(ref) >= 32 {
		for _, r := range ref {
			if (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
				return newError(KindValidation, "metadata_ref", "not a URI or content hash")
			}
		}
		return nil
	}
	return newError(KindValidation, "metadata_ref", "not a URI or content hash")
}
