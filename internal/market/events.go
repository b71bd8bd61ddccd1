package market

import "nftmarket.mini/nfm/internal/ledger"

// EventType identifies a committed market state transition.
type EventType string

const (
	EventAssetMinted   EventType = "asset_minted"
	EventAssetListed   EventType = "asset_listed"
	EventAssetDelisted EventType = "asset_delisted"
	EventBidPlaced     EventType = "bid_placed"
	EventSettled       EventType = "settled"
	EventEscrowClosed  EventType = "escrow_closed"
	EventDeposit       EventType = "deposit"
)

// Event is emitted by the execution layer after an operation commits. The
// off-ledger indexer consumes events to maintain its denormalized read view;
// the websocket stream relays them to gallery clients.
type Event struct {
	Type    EventType         `json:"type"`
	Asset   *ledger.Asset     `json:"asset,omitempty"`
	Escrow  *ledger.Escrow    `json:"escrow,omitempty"`
	Result  *SettlementResult `json:"result,omitempty"`
	Account string            `json:"account,omitempty"`
}
