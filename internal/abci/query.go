package abci

import (
	"encoding/json"

	abci "github.com/tendermint/tendermint/abci/types"

	"nftmarket.mini/nfm/internal/ledger"
)

// Read accessors used by the HTTP API. Consensus serializes writes through
// DeliverTx; these take the read lock so API reads see committed state only.

// Balance returns the spendable balance of an account.
func (app *Application) Balance(accountID string) uint64 {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return app.state.Balances[accountID]
}

// Asset returns a copy of the asset record at addr.
func (app *Application) Asset(addr string) (ledger.Asset, bool) {
	app.mu.RLock()
	defer app.mu.RUnlock()
	a, ok := app.state.Assets[addr]
	return a, ok
}

// EscrowsForAsset returns copies of every escrow record for an asset.
func (app *Application) EscrowsForAsset(addr string) []ledger.Escrow {
	app.mu.RLock()
	defer app.mu.RUnlock()
	var out []ledger.Escrow
	for _, e := range app.state.Escrows {
		if e.Asset == addr {
			out = append(out, e)
		}
	}
	return out
}

// Query serves per-key lookups over the ABCI query path: "asset/<addr>",
// "balance/<id>". Range queries stay off-ledger in the index.
func (app *Application) Query(req abci.RequestQuery) abci.ResponseQuery {
	app.mu.RLock()
	defer app.mu.RUnlock()

	switch req.Path {
	case "asset":
		a, ok := app.state.Assets[string(req.Data)]
		if !ok {
			return abci.ResponseQuery{Code: CodeTypeStateConflict, Log: "unknown asset"}
		}
		b, _ := json.Marshal(a)
		return abci.ResponseQuery{Code: CodeTypeOK, Value: b}
	case "escrow":
		e, ok := app.state.Escrows[string(req.Data)]
		if !ok {
			return abci.ResponseQuery{Code: CodeTypeStateConflict, Log: "unknown escrow"}
		}
		b, _ := json.Marshal(e)
		return abci.ResponseQuery{Code: CodeTypeOK, Value: b}
	case "balance":
		b, _ := json.Marshal(app.state.Balances[string(req.Data)])
		return abci.ResponseQuery{Code: CodeTypeOK, Value: b}
	default:
		return abci.ResponseQuery{Code: CodeTypeUnknownTx, Log: "unknown query path"}
	}
}
