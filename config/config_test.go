package config

import (
	"testing"
	"time"
)

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Contexts) != 0 || cfg.CurrentContext != "" {
		t.Errorf("cfg = %+v, want empty", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &Config{Contexts: make(map[string]Context)}
	cfg.Set("mainnet", Context{Endpoint: "https://bridge.example.com"})
	cfg.Set("staging", Context{Endpoint: "https://staging.example.com", PollInterval: 5 * time.Second})
	if err := cfg.Use("mainnet"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatal(err)
	}

	name, cur, ok := loaded.Current()
	if !ok || name != "mainnet" {
		t.Fatalf("current = %q, ok = %v", name, ok)
	}
	if cur.Endpoint != "https://bridge.example.com" {
		t.Errorf("endpoint = %q", cur.Endpoint)
	}
	if loaded.Contexts["staging"].PollInterval != 5*time.Second {
		t.Errorf("staging interval = %v", loaded.Contexts["staging"].PollInterval)
	}
}

func TestUseUnknownContext(t *testing.T) {
	cfg := &Config{Contexts: make(map[string]Context)}
	if err := cfg.Use("nope"); err == nil {
		t.Error("want error for unknown context")
	}
}

func TestRemoveClearsCurrent(t *testing.T) {
	cfg := &Config{Contexts: make(map[string]Context)}
	cfg.Set("dev", Context{Endpoint: "http://localhost:8080"})
	if err := cfg.Use("dev"); err != nil {
		t.Fatal(err)
	}
	if err := cfg.Remove("dev"); err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentContext != "" {
		t.Errorf("current = %q, want empty", cfg.CurrentContext)
	}
}
