package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omnievm.json")
	raw := `{"evm": {"chain_config": "chains.yaml", "default_chain": "mainnet"}}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.EVM.ChainConfig != filepath.Join(dir, "chains.yaml") {
		t.Fatalf("chain_config not resolved: %s", cfg.EVM.ChainConfig)
	}
	if cfg.EVM.DefaultChain != "mainnet" {
		t.Fatalf("default_chain = %s", cfg.EVM.DefaultChain)
	}
	if cfg.Journal.Driver != "memory" {
		t.Fatalf("journal driver default = %s", cfg.Journal.Driver)
	}
	if cfg.Cache.TTLSeconds != 600 || cfg.Cache.Prefix == "" {
		t.Fatalf("cache defaults missing: %+v", cfg.Cache)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "json" || len(cfg.Log.OutputPaths) == 0 {
		t.Fatalf("log defaults missing: %+v", cfg.Log)
	}
	if cfg.Notify.Queue != "omnievm.tx-events" {
		t.Fatalf("notify queue default = %s", cfg.Notify.Queue)
	}
	if cfg.Runtime.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("data dir default = %s", cfg.Runtime.DataDir)
	}
}

func TestLoadParsesLogRotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "omnievm.json")
	raw := `{
		"log": {
			"output_paths": ["logs/omnievm.log"],
			"rotate": {"enabled": true, "max_size_mb": 64, "max_backups": 3, "max_age_days": 14}
		}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Log.Rotate.Enabled {
		t.Fatal("rotation not enabled")
	}
	if cfg.Log.Rotate.MaxSizeMB != 64 || cfg.Log.Rotate.MaxBackups != 3 || cfg.Log.Rotate.MaxAgeDays != 14 {
		t.Fatalf("rotation parameters lost: %+v", cfg.Log.Rotate)
	}
}

func TestLoadRejectsMissingAndMalformed(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
