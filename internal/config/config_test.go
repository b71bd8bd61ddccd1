package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	c, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Port != 8080 || c.KeyFile != "nfm_key.pem" || c.LogBuffer != 500 {
		t.Errorf("defaults = %+v", c)
	}
	if c.RequireListing || c.EnableFaucet {
		t.Error("policy flags must default to off")
	}
}

func TestLoadConfigMergesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"port": 9000, "require_listing": true}`), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Port != 9000 {
		t.Errorf("port = %d, want 9000", c.Port)
	}
	if !c.RequireListing {
		t.Error("require_listing not honored")
	}
	// Unset fields fall back to defaults.
	if c.TendermintRPC != "http://localhost:26657" {
		t.Errorf("tendermint_rpc = %s, want default", c.TendermintRPC)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	c, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if c.Port != 8080 {
		t.Errorf("port = %d, want default 8080", c.Port)
	}
}

func TestLoadGenesis(t *testing.T) {
	g, err := LoadGenesis("")
	if err != nil {
		t.Fatalf("empty path: %v", err)
	}
	if len(g.Balances) != 0 {
		t.Errorf("empty genesis has %d balances", len(g.Balances))
	}

	path := filepath.Join(t.TempDir(), "genesis.json")
	if err := os.WriteFile(path, []byte(`{"balances": {"alice": 1000, "bob": 500}}`), 0644); err != nil {
		t.Fatalf("write genesis: %v", err)
	}
	g, err = LoadGenesis(path)
	if err != nil {
		t.Fatalf("LoadGenesis: %v", err)
	}
	if g.Balances["alice"] != 1000 || g.Balances["bob"] != 500 {
		t.Errorf("balances = %v", g.Balances)
	}

	if _, err := LoadGenesis(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Error("missing genesis file must be an error, unlike missing config")
	}
}
