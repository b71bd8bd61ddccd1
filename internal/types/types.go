// Package types defines the signed transaction envelope submitted to the
// consensus engine and the per-operation payloads. A Transaction names one
// marketplace operation; a SignedTransaction wraps its JSON encoding with the
// submitter's ed25519 signature. The signer's public key is the authenticated
// caller identity for every operation: the minting creator, the bidding
// bidder, the settling seller.
package types

import (
	"encoding/json"
	"time"
)

// Version is the current version of nfm.
const Version = "0.1.0"

// BuildTime is set at build time via -ldflags.
var BuildTime = "dev"

// TxType identifies a marketplace operation.
type TxType string

const (
	TxMintAsset   TxType = "mint_asset"
	TxListAsset   TxType = "list_asset"
	TxDelistAsset TxType = "delist_asset"
	TxPlaceBid    TxType = "place_bid"
	TxSettle      TxType = "settle"
	TxCloseEscrow TxType = "close_escrow"
	TxDeposit     TxType = "deposit"
)

// Transaction is one submitted marketplace operation.
type Transaction struct {
	Type      TxType          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// SignedTransaction wraps an encoded Transaction with the submitter's
// signature. Tx holds the exact bytes the signature covers.
type SignedTransaction struct {
	Tx        []byte `json:"tx"`
	Signature []byte `json:"signature"`
	PublicKey []byte `json:"public_key"`
}

// MintAssetPayload mints a new one-of-one asset. Seed plus the signer's
// identity determine the asset address; MetadataRef points at the off-ledger
// metadata document and is checked syntactically only.
type MintAssetPayload struct {
	Seed        string `json:"seed"`
	MetadataRef string `json:"metadata_ref"`
}

// ListAssetPayload opens an owned asset for bids.
type ListAssetPayload struct {
	Asset string `json:"asset"`
}

// DelistAssetPayload returns an owned asset to the unlisted state.
type DelistAssetPayload struct {
	Asset string `json:"asset"`
}

// PlaceBidPayload locks Amount (smallest native unit) in escrow against the
// asset. A repeat bid from the same signer replaces the prior locked amount.
type PlaceBidPayload struct {
	Asset  string `json:"asset"`
	Amount uint64 `json:"amount"`
}

// SettlePayload sells the signer's asset to the named bidder.
type SettlePayload struct {
	Asset         string `json:"asset"`
	WinningBidder string `json:"winning_bidder"`
}

// CloseEscrowPayload reclaims storage for a settled (won or refunded) escrow.
type CloseEscrowPayload struct {
	Asset  string `json:"asset"`
	Bidder string `json:"bidder"`
}

// DepositPayload credits spendable funds to the signer's account. Accepted
// only when the node runs with the dev faucet enabled.
type DepositPayload struct {
	Amount uint64 `json:"amount"`
}
