// Package keys implements deterministic account address derivation for the
// marketplace ledger. Every persisted record lives at an address computed
// from its logical key (creator+seed for assets, asset+bidder for escrows,
// asset+holder for ownership-token accounts), so any party can re-derive and
// verify an address instead of trusting a pointer supplied by another party.
//
// Derivation is pure: SHA-256 over a kind-specific domain tag followed by
// length-prefixed key components, encoded as base58. The length prefixes keep
// distinct component lists from colliding under concatenation, and the domain
// tags keep the three address kinds in disjoint spaces.
package keys

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	tagAsset  = "nfm/asset/v1"
	tagEscrow = "nfm/escrow/v1"
	tagHolder = "nfm/holder/v1"
)

// DerivationError reports a malformed logical key component.
type DerivationError struct {
	Field string
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("address derivation: empty %s", e.Field)
}

// AssetAddress derives the address of the asset record minted by creatorID
// with the given mint seed. A fresh seed yields a fresh address; reusing a
// seed resolves to the same address, which the mint operation rejects as a
// duplicate.
func AssetAddress(creatorID, mintSeed string) (string, error) {
	if creatorID == "" {
		return "", &DerivationError{Field: "creator"}
	}
	if mintSeed == "" {
		return "", &DerivationError{Field: "seed"}
	}
	return derive(tagAsset, creatorID, mintSeed), nil
}

// EscrowAddress derives the address of the escrow record holding bidderID's
// offer on the asset at assetAddr. One pair, one address: a repeat bid from
// the same bidder lands on the same record.
func EscrowAddress(assetAddr, bidderID string) (string, error) {
	if assetAddr == "" {
		return "", &DerivationError{Field: "asset"}
	}
	if bidderID == "" {
		return "", &DerivationError{Field: "bidder"}
	}
	return derive(tagEscrow, assetAddr, bidderID), nil
}

// HolderAddress derives the address of holderID's ownership-token account for
// the asset at assetAddr.
func HolderAddress(assetAddr, holderID string) (string, error) {
	if assetAddr == "" {
		return "", &DerivationError{Field: "asset"}
	}
	if holderID == "" {
		return "", &DerivationError{Field: "holder"}
	}
	return derive(tagHolder, assetAddr, holderID), nil
}

func derive(tag string, components ...string) string {
	h := sha256.New()
	h.Write([]byte(tag))
	var n [4]byte
	for _, c := range components {
		binary.BigEndian.PutUint32(n[:], uint32(len(c)))
		h.Write(n[:])
		h.Write([]byte(c))
	}
	return base58.Encode(h.Sum(nil))
}
