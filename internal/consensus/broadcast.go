package consensus

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"nftmarket.mini/nfm/internal/types"
)

// BroadcastClient submits signed transactions to Tendermint over its RPC
// endpoint.
type BroadcastClient struct {
	rpcAddr string
	client  *http.Client
}

// NewBroadcastClient creates a client for the given Tendermint RPC address
// (for example "http://localhost:26657").
func NewBroadcastClient(rpcAddr string) *BroadcastClient {
	if rpcAddr == "" {
		rpcAddr = "http://localhost:26657"
	}
	return &BroadcastClient{
		rpcAddr: rpcAddr,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// BroadcastTxSync broadcasts a transaction and returns once CheckTx passes,
// without waiting for the transaction to be committed. Callers that need
// proof of execution should poll with QueryTx or use BroadcastTxCommit.
func (bc *BroadcastClient) BroadcastTxSync(tx []byte) (string, error) {
	return bc.broadcast("broadcast_tx_sync", tx)
}

// BroadcastTxCommit broadcasts a transaction and waits for it to be included
// in a block. Slower, but the returned hash refers to a finalized operation;
// settlement submissions use this so sellers learn the definitive outcome.
func (bc *BroadcastClient) BroadcastTxCommit(tx []byte) (string, error) {
	return bc.broadcast("broadcast_tx_commit", tx)
}

// BroadcastSigned marshals a signed envelope and broadcasts it. waitCommit
// selects between the sync and commit variants.
func (bc *BroadcastClient) BroadcastSigned(stx *types.SignedTransaction, waitCommit bool) (string, error) {
	txBytes, err := json.Marshal(stx)
	if err != nil {
		return "", fmt.Errorf("failed to marshal transaction: %w", err)
	}
	if waitCommit {
		return bc.BroadcastTxCommit(txBytes)
	}
	return bc.BroadcastTxSync(txBytes)
}

func (bc *BroadcastClient) broadcast(method string, tx []byte) (string, error) {
	// Tendermint JSON-RPC expects the tx as a base64 string.
	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
		"params": map[string]string{
			"tx": base64.StdEncoding.EncodeToString(tx),
		},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	resp, err := bc.client.Post(bc.rpcAddr, "application/json", bytes.NewReader(reqBytes))
	if err != nil {
		return "", fmt.Errorf("failed to send RPC request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read RPC response: %w", err)
	}

	var rpcResp struct {
		Result struct {
			Code uint32 `json:"code"`
			Log  string `json:"log"`
			Hash string `json:"hash"`
			// broadcast_tx_commit reports CheckTx and DeliverTx separately.
			CheckTx struct {
				Code uint32 `json:"code"`
				Log  string `json:"log"`
			} `json:"check_tx"`
			DeliverTx struct {
				Code uint32 `json:"code"`
				Log  string `json:"log"`
			} `json:"deliver_tx"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    string `json:"data"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBytes, &rpcResp); err != nil {
		return "", fmt.Errorf("failed to parse RPC response: %w (body: %s)", err, string(respBytes))
	}
	if rpcResp.Error != nil {
		return "", fmt.Errorf("RPC error %d: %s (%s)", rpcResp.Error.Code, rpcResp.Error.Message, rpcResp.Error.Data)
	}
	if rpcResp.Result.Code != 0 {
		return "", fmt.Errorf("transaction rejected with code %d: %s", rpcResp.Result.Code, rpcResp.Result.Log)
	}
	if rpcResp.Result.CheckTx.Code != 0 {
		return "", fmt.Errorf("transaction rejected with code %d: %s", rpcResp.Result.CheckTx.Code, rpcResp.Result.CheckTx.Log)
	}
	if rpcResp.Result.DeliverTx.Code != 0 {
		return "", fmt.Errorf("transaction failed with code %d: %s", rpcResp.Result.DeliverTx.Code, rpcResp.Result.DeliverTx.Log)
	}

	return rpcResp.Result.Hash, nil
}

// QueryTx queries a committed transaction by hash.
func (bc *BroadcastClient) QueryTx(txHash string) (map[string]interface{}, error) {
	reqBody := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tx",
		"params": map[string]interface{}{
			"hash": txHash,
		},
	}

	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal RPC request: %w", err)
	}

	resp, err := bc.client.Post(bc.rpcAddr, "application/json", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to send RPC request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read RPC response: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(respBytes, &result); err != nil {
		return nil, fmt.Errorf("failed to parse RPC response: %w", err)
	}
	return result, nil
}
