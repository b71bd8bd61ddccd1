package market

import (
	"nftmarket.mini/nfm/internal/keys"
	"nftmarket.mini/nfm/internal/ledger"
)

// List marks the asset as open for bids. Listing is advisory metadata; under
// the default policy bids are accepted either way, but galleries use it to
// decide what to show. Only the current owner may list, and a sold asset is
// terminal.
func (e *Engine) List(assetAddr, callerID string) (*ledger.Asset, error) {
	return e.setListing(assetAddr, callerID, ledger.ListingListed)
}

// Delist returns the asset to the unlisted state. Only the current owner may
// delist. Active escrows are unaffected; bidders reclaim funds through
// settlement refunds or by lowering their own bids.
func (e *Engine) Delist(assetAddr, callerID string) (*ledger.Asset, error) {
	return e.setListing(assetAddr, callerID, ledger.ListingUnlisted)
}

func (e *Engine) setListing(assetAddr, callerID string, listing ledger.ListingState) (*ledger.Asset, error) {
	if callerID == "" {
		return nil, newError(KindValidation, "caller", "caller identity is required")
	}
	asset, ok := e.state.Assets[assetAddr]
	if !ok {
		return nil, newError(KindStateConflict, "asset", "unknown asset")
	}
	if asset.Listing == ledger.ListingSold {
		return nil, newError(KindStateConflict, "asset", "asset already sold")
	}
	if callerID != asset.Owner {
		return nil, newError(KindAuthorization, "caller", "caller is not the asset owner")
	}
	asset.Listing = listing
	e.state.Assets[assetAddr] = asset
	return &asset, nil
}

// Deposit credits spendable funds to an account. Genesis loading and the dev
// faucet are the only callers; deposits never touch escrow custody.
func (e *Engine) Deposit(accountID string, amount uint64) (uint64, error) {
	if accountID == "" {
		return 0, newError(KindValidation, "account", "account identity is required")
	}
	if amount == 0 {
		return 0, newError(KindValidation, "amount", "deposit amount must be positive")
	}
	balance := e.state.Balances[accountID] + amount
	e.state.Balances[accountID] = balance
	return balance, nil
}

// CloseEscrow reclaims storage for an escrow that has reached a terminal
// status. The bidder or the asset's current owner may close; an active
// escrow cannot be closed, only settled.
func (e *Engine) CloseEscrow(assetAddr, bidderID, callerID string) error {
	if callerID == "" {
		return newError(KindValidation, "caller", "caller identity is required")
	}
	escrowAddr, err := keys.EscrowAddress(assetAddr, bidderID)
	if err != nil {
		return wrapError(KindValidation, derivationField(err), "malformed escrow key", err)
	}
	escrow, ok := e.state.Escrows[escrowAddr]
	if !ok {
		return newError(KindStateConflict, "escrow", "unknown escrow")
	}
	if escrow.Status == ledger.EscrowActive {
		return newError(KindStateConflict, "escrow", "escrow is still active")
	}
	owner := ""
	if asset, ok := e.state.Assets[assetAddr]; ok {
		owner = asset.Owner
	}
	if callerID != escrow.Bidder && callerID != owner {
		return newError(KindAuthorization, "caller", "only the bidder or asset owner may close")
	}
	delete(e.state.Escrows, escrowAddr)
	return nil
}
