// Package abci contains the ABCI application that connects the marketplace
// engine to the Tendermint consensus engine. It implements transaction
// validation (CheckTx) and execution (DeliverTx) over the ledger state. This
// component is the critical bridge between the externally ordered consensus
// layer and the market domain logic: envelope signatures are verified here,
// the signer's identity becomes the authenticated caller of every operation,
// and state transitions are applied here one at a time.
package abci

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"log"
	"sync"

	abci "github.com/tendermint/tendermint/abci/types"

	"nftmarket.mini/nfm/internal/identity"
	"nftmarket.mini/nfm/internal/keys"
	"nftmarket.mini/nfm/internal/ledger"
	"nftmarket.mini/nfm/internal/market"
	"nftmarket.mini/nfm/internal/types"
)

// Stable response codes. Clients branch on these, never on log text.
const (
	CodeTypeOK                uint32 = 0
	CodeTypeEncodingError     uint32 = 1
	CodeTypeAuthError         uint32 = 2
	CodeTypeValidationError   uint32 = 3
	CodeTypeStateConflict     uint32 = 4
	CodeTypeInsufficientFunds uint32 = 5
	CodeTypeUnknownTx         uint32 = 6
)

// Application implements the ABCI interface over the marketplace engine.
type Application struct {
	abci.BaseApplication

	mu     sync.RWMutex
	state  *ledger.State
	engine *market.Engine
	faucet bool
	events chan<- market.Event

	// VerifyTx checks the envelope signature. It defaults to ed25519 and is
	// injectable so tests can supply a deterministic stub.
	VerifyTx func(pub ed25519.PublicKey, message, signature []byte) bool
}

// Options configure the application.
type Options struct {
	// Faucet accepts deposit transactions, crediting the signer. Dev only.
	Faucet bool
	// Events receives one event per applied transaction. Sends never block;
	// a full channel drops the event (the index catches up from state).
	Events chan<- market.Event
}

// NewApplication creates the ABCI application over the given state.
func NewApplication(state *ledger.State, policy market.Policy, opts Options) *Application {
	if state == nil {
		state = ledger.NewState()
	}
	return &Application{
		state:    state,
		engine:   market.New(state, identity.Verifier{}, policy),
		faucet:   opts.Faucet,
		events:   opts.Events,
		VerifyTx: ed25519.Verify,
	}
}

// Info is called by Tendermint on handshake.
func (app *Application) Info(req abci.RequestInfo) abci.ResponseInfo {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return abci.ResponseInfo{
		Version:          types.Version,
		LastBlockAppHash: app.state.Hash(),
	}
}

// CheckTx admits a transaction to the mempool: the envelope must decode, the
// signature must verify, and the operation type must be known. Full
// precondition checks run at DeliverTx against the then-current state.
func (app *Application) CheckTx(req abci.RequestCheckTx) abci.ResponseCheckTx {
	_, tx, code, logMsg := app.decode(req.Tx)
	if code != CodeTypeOK {
		return abci.ResponseCheckTx{Code: code, Log: logMsg}
	}
	switch tx.Type {
	case types.TxMintAsset, types.TxListAsset, types.TxDelistAsset,
		types.TxPlaceBid, types.TxSettle, types.TxCloseEscrow:
	case types.TxDeposit:
		if !app.faucet {
			return abci.ResponseCheckTx{Code: CodeTypeUnknownTx, Log: "deposits are disabled"}
		}
	default:
		return abci.ResponseCheckTx{Code: CodeTypeUnknownTx, Log: "unknown transaction type"}
	}
	return abci.ResponseCheckTx{Code: CodeTypeOK}
}

// DeliverTx applies one confirmed transaction to the ledger. The signer's
// identity is the authenticated caller of the operation.
func (app *Application) DeliverTx(req abci.RequestDeliverTx) abci.ResponseDeliverTx {
	app.mu.Lock()
	defer app.mu.Unlock()

	stx, tx, code, logMsg := app.decode(req.Tx)
	if code != CodeTypeOK {
		return abci.ResponseDeliverTx{Code: code, Log: logMsg}
	}
	signer := identity.ID(stx.PublicKey)

	var ev market.Event
	var err error

	switch tx.Type {
	case types.TxMintAsset:
		var p types.MintAssetPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode mint payload"}
		}
		var asset *ledger.Asset
		asset, err = app.engine.Mint(signer, p.Seed, p.MetadataRef)
		if err == nil {
			log.Printf("INFO: minted asset %s for creator %s", asset.Address, signer)
			ev = market.Event{Type: market.EventAssetMinted, Asset: asset}
		}

	case types.TxListAsset:
		var p types.ListAssetPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode list payload"}
		}
		var asset *ledger.Asset
		asset, err = app.engine.List(p.Asset, signer)
		if err == nil {
			ev = market.Event{Type: market.EventAssetListed, Asset: asset}
		}

	case types.TxDelistAsset:
		var p types.DelistAssetPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode delist payload"}
		}
		var asset *ledger.Asset
		asset, err = app.engine.Delist(p.Asset, signer)
		if err == nil {
			ev = market.Event{Type: market.EventAssetDelisted, Asset: asset}
		}

	case types.TxPlaceBid:
		var p types.PlaceBidPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode bid payload"}
		}
		var escrow *ledger.Escrow
		escrow, err = app.engine.PlaceBid(p.Asset, signer, p.Amount)
		if err == nil {
			log.Printf("INFO: bid of %d on %s by %s", escrow.Amount, p.Asset, signer)
			ev = market.Event{Type: market.EventBidPlaced, Escrow: escrow}
		}

	case types.TxSettle:
		var p types.SettlePayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode settle payload"}
		}
		var result *market.SettlementResult
		result, err = app.engine.Settle(p.Asset, p.WinningBidder, signer, stx.Tx, stx.Signature)
		if err == nil {
			log.Printf("INFO: settled %s to %s for %d", p.Asset, result.NewOwner, result.FinalPrice)
			asset := app.state.Assets[p.Asset]
			ev = market.Event{Type: market.EventSettled, Asset: &asset, Result: result}
			if winAddr, kerr := keys.EscrowAddress(p.Asset, p.WinningBidder); kerr == nil {
				if win, ok := app.state.Escrows[winAddr]; ok {
					ev.Escrow = &win
				}
			}
		}

	case types.TxCloseEscrow:
		var p types.CloseEscrowPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode close payload"}
		}
		err = app.engine.CloseEscrow(p.Asset, p.Bidder, signer)
		if err == nil {
			ev = market.Event{Type: market.EventEscrowClosed, Account: p.Bidder}
			if addr, kerr := keys.EscrowAddress(p.Asset, p.Bidder); kerr == nil {
				ev.Escrow = &ledger.Escrow{Address: addr, Asset: p.Asset, Bidder: p.Bidder}
			}
		}

	case types.TxDeposit:
		if !app.faucet {
			return abci.ResponseDeliverTx{Code: CodeTypeUnknownTx, Log: "deposits are disabled"}
		}
		var p types.DepositPayload
		if err := json.Unmarshal(tx.Payload, &p); err != nil {
			return abci.ResponseDeliverTx{Code: CodeTypeEncodingError, Log: "failed to decode deposit payload"}
		}
		_, err = app.engine.Deposit(signer, p.Amount)
		if err == nil {
			ev = market.Event{Type: market.EventDeposit, Account: signer}
		}

	default:
		return abci.ResponseDeliverTx{Code: CodeTypeUnknownTx, Log: "unknown transaction type"}
	}

	if err != nil {
		return abci.ResponseDeliverTx{Code: codeFor(err), Log: err.Error()}
	}
	app.emit(ev)
	return abci.ResponseDeliverTx{Code: CodeTypeOK}
}

// Commit returns the deterministic hash of the ledger as the app hash.
func (app *Application) Commit() abci.ResponseCommit {
	app.mu.RLock()
	defer app.mu.RUnlock()
	return abci.ResponseCommit{Data: app.state.Hash()}
}

func (app *Application) decode(raw []byte) (*types.SignedTransaction, *types.Transaction, uint32, string) {
	var stx types.SignedTransaction
	if err := json.Unmarshal(raw, &stx); err != nil {
		return nil, nil, CodeTypeEncodingError, "failed to decode signed tx"
	}
	if len(stx.PublicKey) != ed25519.PublicKeySize {
		return nil, nil, CodeTypeAuthError, "malformed public key"
	}
	if !app.VerifyTx(ed25519.PublicKey(stx.PublicKey), stx.Tx, stx.Signature) {
		return nil, nil, CodeTypeAuthError, "invalid signature"
	}
	var tx types.Transaction
	if err := json.Unmarshal(stx.Tx, &tx); err != nil {
		return nil, nil, CodeTypeEncodingError, "failed to decode inner tx"
	}
	return &stx, &tx, CodeTypeOK, ""
}

func (app *Application) emit(ev market.Event) {
	if app.events == nil || ev.Type == "" {
		return
	}
	select {
	case app.events <- ev:
	default:
	}
}

func codeFor(err error) uint32 {
	var merr *market.Error
	if !errors.As(err, &merr) {
		return CodeTypeStateConflict
	}
	switch merr.Kind {
	case market.KindValidation:
		return CodeTypeValidationError
	case market.KindAuthorization:
		return CodeTypeAuthError
	case market.KindResource:
		return CodeTypeInsufficientFunds
	default:
		return CodeTypeStateConflict
	}
}
