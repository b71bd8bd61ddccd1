package types

import (
	"encoding/json"
	"time"

	"nftmarket.mini/nfm/internal/identity"
)

// Sign encodes the transaction and wraps it with the identity's signature.
// The returned envelope carries the exact bytes the signature covers.
func (t *Transaction) Sign(id *identity.Identity) (*SignedTransaction, error) {
	txBytes, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{
		Tx:        txBytes,
		Signature: id.Sign(txBytes),
		PublicKey: id.PublicKey(),
	}, nil
}

// NewTransaction builds a Transaction of the given type around a payload
// struct.
func NewTransaction(txType TxType, payload interface{}) (*Transaction, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Transaction{Type: txType, Timestamp: time.Now(), Payload: raw}, nil
}
