// Package api implements the HTTP glue between gallery clients and the
// ledger: transaction submission (pre-signed envelopes forwarded to
// Tendermint), denormalized reads from the off-ledger index, per-key reads
// from committed state, and a websocket feed of index updates. Request
// validation and error translation live here; all market semantics stay in
// the engine.
package api

import (
	"encoding/json"
	"net/http"

	"nftmarket.mini/nfm/internal/docs"
	"nftmarket.mini/nfm/internal/index"
	"nftmarket.mini/nfm/internal/ledger"
	"nftmarket.mini/nfm/internal/logger"
	"nftmarket.mini/nfm/internal/types"
)

// Broadcaster submits signed envelopes to the consensus engine.
type Broadcaster interface {
	BroadcastSigned(stx *types.SignedTransaction, waitCommit bool) (string, error)
}

// LedgerReader serves per-key lookups over committed state.
type LedgerReader interface {
	Balance(accountID string) uint64
	Asset(addr string) (ledger.Asset, bool)
	EscrowsForAsset(addr string) []ledger.Escrow
}

// Service handles API requests.
type Service struct {
	broadcaster Broadcaster
	reader      LedgerReader
	store       *index.Store
	docs        *docs.Service
	logger      *logger.Logger
	broker      *broker
}

// NewService creates a new API service and starts fanning out index updates
// to stream clients.
func NewService(broadcaster Broadcaster, reader LedgerReader, store *index.Store, docsSvc *docs.Service, logger *logger.Logger) *Service {
	s := &Service{
		broadcaster: broadcaster,
		reader:      reader,
		store:       store,
		docs:        docsSvc,
		logger:      logger,
		broker:      newBroker(),
	}
	go s.broker.run(store.Updates())
	return s
}

// Routes returns the service's HTTP mux.
func (s *Service) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/tx", s.HandleSubmitTx)
	mux.HandleFunc("GET /api/assets", s.HandleAssets)
	mux.HandleFunc("GET /api/assets/{addr}", s.HandleAsset)
	mux.HandleFunc("GET /api/assets/{addr}/escrows", s.HandleEscrows)
	mux.HandleFunc("GET /api/accounts/{id}/balance", s.HandleBalance)
	mux.HandleFunc("GET /api/logs", s.HandleLogs)
	mux.HandleFunc("GET /api/docs", s.HandleDocList)
	mux.HandleFunc("GET /api/docs/{name}", s.HandleDoc)
	mux.HandleFunc("GET /ws", s.HandleStream)
	return mux
}

// writeJSON writes a JSON response.
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
