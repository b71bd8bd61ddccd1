// Package identity manages participant keypairs and signing utilities. Each
// marketplace participant holds a persistent ed25519 private key; the
// base58-encoded public key is the participant's canonical identifier in
// ledger records (asset owners, bidders, balance accounts). The package also
// provides the ed25519 implementation of the market engine's injected
// signature-verification capability.
package identity

import (
	"crypto/ed25519"

	"github.com/mr-tron/base58"
)

// Identity represents a participant's cryptographic identity.
type Identity struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	id         string
}

// NewIdentity creates an Identity from a private key.
func NewIdentity(privKey ed25519.PrivateKey) *Identity {
	pubKey := privKey.Public().(ed25519.PublicKey)
	return &Identity{
		privateKey: privKey,
		publicKey:  pubKey,
		id:         base58.Encode(pubKey),
	}
}

// Sign signs the provided message with the identity's private key.
func (i *Identity) Sign(message []byte) []byte {
	return ed25519.Sign(i.privateKey, message)
}

// Verify verifies a signature against a message using the identity's public key.
func (i *Identity) Verify(message, signature []byte) bool {
	return ed25519.Verify(i.publicKey, message, signature)
}

// PublicKey returns the raw public key.
func (i *Identity) PublicKey() ed25519.PublicKey {
	return i.publicKey
}

// PrivateKey returns the raw private key.
func (i *Identity) PrivateKey() ed25519.PrivateKey {
	return i.privateKey
}

// ID returns the base58-encoded public key string, the canonical participant
// identifier across the ledger.
func (i *Identity) ID() string {
	return i.id
}

// ID converts a raw public key to its canonical participant identifier.
func ID(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}

// Verifier is the ed25519 implementation of the market engine's signature
// verification capability. The identity string is decoded back to a public
// key, so authenticity never depends on a caller-supplied key object.
type Verifier struct{}

// Verify reports whether signature over payload was produced by the named
// identity.
func (Verifier) Verify(identity string, payload, signature []byte) bool {
	pub, err := base58.Decode(identity)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), payload, signature)
}
