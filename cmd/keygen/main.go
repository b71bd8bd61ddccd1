// Command keygen generates an ed25519 participant keypair and prints the
// base58 identifier used in ledger records.
package main

import (
	"fmt"
	"os"

	"nftmarket.mini/nfm/internal/identity"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <output-file>\n", os.Args[0])
		os.Exit(1)
	}

	outfile := os.Args[1]
	if _, err := os.Stat(outfile); err == nil {
		fmt.Fprintf(os.Stderr, "Refusing to overwrite existing key file %s\n", outfile)
		os.Exit(1)
	}

	id, err := identity.LoadOrCreateIdentity(outfile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Key written to %s\n", outfile)
	fmt.Printf("Participant ID: %s\n", id.ID())
}
