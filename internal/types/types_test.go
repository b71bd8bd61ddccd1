package types

import (
	"crypto/ed25519"
	"encoding/json"
	"testing"

	"nftmarket.mini/nfm/internal/identity"
)

func testIdentity(t *testing.T) *identity.Identity {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return identity.NewIdentity(priv)
}

func TestSignedTransactionRoundtrip(t *testing.T) {
	id := testIdentity(t)

	tx, err := NewTransaction(TxPlaceBid, PlaceBidPayload{Asset: "addr", Amount: 250})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	stx, err := tx.Sign(id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	// The envelope signature must verify over the exact encoded bytes.
	if !ed25519.Verify(ed25519.PublicKey(stx.PublicKey), stx.Tx, stx.Signature) {
		t.Fatal("signature does not verify over the envelope bytes")
	}

	// The envelope bytes decode back to the submitted transaction.
	var decoded Transaction
	if err := json.Unmarshal(stx.Tx, &decoded); err != nil {
		t.Fatalf("Unmarshal tx: %v", err)
	}
	if decoded.Type != TxPlaceBid {
		t.Errorf("type = %s, want %s", decoded.Type, TxPlaceBid)
	}
	var payload PlaceBidPayload
	if err := json.Unmarshal(decoded.Payload, &payload); err != nil {
		t.Fatalf("Unmarshal payload: %v", err)
	}
	if payload.Asset != "addr" || payload.Amount != 250 {
		t.Errorf("payload = %+v, want asset 'addr' amount 250", payload)
	}
}

func TestTamperedEnvelopeFailsVerification(t *testing.T) {
	id := testIdentity(t)
	tx, err := NewTransaction(TxMintAsset, MintAssetPayload{Seed: "s", MetadataRef: "uri://m"})
	if err != nil {
		t.Fatalf("NewTransaction: %v", err)
	}
	stx, err := tx.Sign(id)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tampered := append([]byte(nil), stx.Tx...)
	tampered[len(tampered)/2] ^= 0x01
	if ed25519.Verify(ed25519.PublicKey(stx.PublicKey), tampered, stx.Signature) {
		t.Error("signature verified over tampered bytes")
	}

	other := testIdentity(t)
	if ed25519.Verify(other.PublicKey(), stx.Tx, stx.Signature) {
		t.Error("signature verified under a different public key")
	}
}
