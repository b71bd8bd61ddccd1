// Package config centralizes runtime configuration for nfm. It loads a JSON
// configuration file and exposes a process-wide configuration with sensible
// defaults. Tests and development builds use defaults when the file is not
// present. Production operators should place a JSON file at
// /etc/nfm/config.json or specify a different path via the CONFIG_FILE env
// var.
package config

import (
	"encoding/json"
	"os"
)

// Config holds configurable options for the nfm node.
type Config struct {
	KeyFile       string `json:"key_file"`
	IndexDBFile   string `json:"index_db_file"`
	Port          int    `json:"port"`
	ABCISocket    string `json:"abci_socket"`
	TendermintRPC string `json:"tendermint_rpc"`
	GenesisFile   string `json:"genesis_file"`
	DocsDir       string `json:"docs_dir"`
	LogBuffer     int    `json:"log_buffer"`

	// RequireListing rejects bids on assets never explicitly listed. The
	// default treats the listing state as advisory and accepts bids either
	// way; both settings are supported and tested.
	RequireListing bool `json:"require_listing"`

	// EnableFaucet accepts deposit transactions crediting the signer.
	// Development networks only.
	EnableFaucet bool `json:"enable_faucet"`
}

var cfg *Config

// LoadConfig reads a JSON file at path. If the file does not exist or cannot
// be parsed, LoadConfig returns defaults (and no error) so that the node can
// run in development with minimal friction.
func LoadConfig(path string) (*Config, error) {
	def := &Config{
		KeyFile:        "nfm_key.pem",
		IndexDBFile:    "market.db",
		Port:           8080,
		ABCISocket:     "unix://nfm.sock",
		TendermintRPC:  "http://localhost:26657",
		GenesisFile:    "",
		DocsDir:        "docs",
		LogBuffer:      500,
		RequireListing: false,
		EnableFaucet:   false,
	}

	if path == "" {
		cfg = def
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		// file missing or unreadable -> use defaults
		cfg = def
		return cfg, nil
	}

	var c Config
	if err := json.Unmarshal(b, &c); err != nil {
		cfg = def
		return cfg, nil
	}

	// merge defaults for any zero-value fields
	if c.KeyFile == "" {
		c.KeyFile = def.KeyFile
	}
	if c.IndexDBFile == "" {
		c.IndexDBFile = def.IndexDBFile
	}
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.ABCISocket == "" {
		c.ABCISocket = def.ABCISocket
	}
	if c.TendermintRPC == "" {
		c.TendermintRPC = def.TendermintRPC
	}
	if c.DocsDir == "" {
		c.DocsDir = def.DocsDir
	}
	if c.LogBuffer == 0 {
		c.LogBuffer = def.LogBuffer
	}

	cfg = &c
	return cfg, nil
}

// Get returns the loaded configuration. If LoadConfig hasn't been called
// yet, it returns defaults.
func Get() *Config {
	if cfg == nil {
		LoadConfig("")
	}
	return cfg
}

// Genesis maps participant identities to initial spendable balances.
type Genesis struct {
	Balances map[string]uint64 `json:"balances"`
}

// LoadGenesis reads initial balances from a JSON file. A missing path means
// an empty genesis.
func LoadGenesis(path string) (*Genesis, error) {
	g := &Genesis{Balances: make(map[string]uint64)}
	if path == "" {
		return g, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, g); err != nil {
		return nil, err
	}
	if g.Balances == nil {
		g.Balances = make(map[string]uint64)
	}
	return g, nil
}
