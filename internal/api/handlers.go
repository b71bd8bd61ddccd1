package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"nftmarket.mini/nfm/internal/types"
)

// @Title: Submit Transaction
// @Route: POST /api/tx
// @Description: Broadcast a pre-signed transaction envelope. Add ?wait=commit to block until the operation is finalized.
// @Response: {"hash": "..."} on acceptance
func (s *Service) HandleSubmitTx(w http.ResponseWriter, r *http.Request) {
	reqID := uuid.New().String()

	var stx types.SignedTransaction
	if err := json.NewDecoder(r.Body).Decode(&stx); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(stx.Tx) == 0 || len(stx.Signature) == 0 || len(stx.PublicKey) == 0 {
		s.writeError(w, http.StatusBadRequest, "Envelope is missing tx, signature, or public key")
		return
	}

	waitCommit := r.URL.Query().Get("wait") == "commit"
	hash, err := s.broadcaster.BroadcastSigned(&stx, waitCommit)
	if err != nil {
		s.logger.Errorf("API %s: broadcast failed: %v", reqID, err)
		// Rejections carry the engine's error kind in the log text; surface
		// it so callers can act on the specific failure.
		status := http.StatusBadGateway
		if strings.Contains(err.Error(), "rejected") || strings.Contains(err.Error(), "failed with code") {
			status = http.StatusUnprocessableEntity
		}
		s.writeError(w, status, err.Error())
		return
	}

	s.logger.Infof("API %s: broadcast tx %s", reqID, hash)
	s.writeJSON(w, http.StatusAccepted, map[string]string{"hash": hash})
}

// @Title: List Assets
// @Route: GET /api/assets
// @Description: All minted assets from the off-ledger index
// @Response: Array of asset records
func (s *Service) HandleAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := s.store.Assets()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list assets: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, assets)
}

// @Title: Get Asset
// @Route: GET /api/assets/{addr}
// @Description: One asset record, read from committed ledger state
// @Response: Asset record
func (s *Service) HandleAsset(w http.ResponseWriter, r *http.Request) {
	addr := r.PathValue("addr")
	asset, ok := s.reader.Asset(addr)
	if !ok {
		s.writeError(w, http.StatusNotFound, "Unknown asset")
		return
	}
	s.writeJSON(w, http.StatusOK, asset)
}

// @Title: List Asset Escrows
// @Route: GET /api/assets/{addr}/escrows
// @Description: All escrow records for an asset, read from committed ledger state
// @Response: Array of escrow records
func (s *Service) HandleEscrows(w http.ResponseWriter, r *http.Request) {
	addr := r.PathValue("addr")
	if _, ok := s.reader.Asset(addr); !ok {
		s.writeError(w, http.StatusNotFound, "Unknown asset")
		return
	}
	s.writeJSON(w, http.StatusOK, s.reader.EscrowsForAsset(addr))
}

// @Title: Get Balance
// @Route: GET /api/accounts/{id}/balance
// @Description: Spendable balance of an account in the smallest native unit
// @Response: {"account": "...", "balance": n}
func (s *Service) HandleBalance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"account": id,
		"balance": s.reader.Balance(id),
	})
}

// @Title: Get Logs
// @Route: GET /api/logs
// @Description: Recent node log messages, newest first. Optional ?n= limit.
// @Response: Array of log messages
func (s *Service) HandleLogs(w http.ResponseWriter, r *http.Request) {
	if nStr := r.URL.Query().Get("n"); nStr != "" {
		n, err := strconv.Atoi(nStr)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		s.writeJSON(w, http.StatusOK, s.logger.GetRecent(n))
		return
	}
	s.writeJSON(w, http.StatusOK, s.logger.GetAll())
}

// @Title: List Docs
// @Route: GET /api/docs
// @Description: Available reference documents
// @Response: Array of document names
func (s *Service) HandleDocList(w http.ResponseWriter, r *http.Request) {
	names, err := s.docs.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to list docs: %v", err))
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

// @Title: Get Doc
// @Route: GET /api/docs/{name}
// @Description: One reference document rendered to HTML
// @Response: HTML fragment
func (s *Service) HandleDoc(w http.ResponseWriter, r *http.Request) {
	html, err := s.docs.GetDoc(r.PathValue("name"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("Failed to render doc: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
