package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSubstitutesEnv(t *testing.T) {
	t.Setenv("TEST_GENIUS_KEY", "sk-live")
	path := writeConfig(t, `{
		"server": {"port": 9000},
		"providers": [{"id": "main", "type": "anthropic", "api_key": "${TEST_GENIUS_KEY}"}],
		"database": {"postgres": {"dsn": "${TEST_GENIUS_DSN:postgres://localhost/genius}"}}
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Providers[0].APIKey != "sk-live" {
		t.Errorf("api key = %q", cfg.Providers[0].APIKey)
	}
	if cfg.Database.Postgres.DSN != "postgres://localhost/genius" {
		t.Errorf("dsn default = %q", cfg.Database.Postgres.DSN)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{}`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 8080 || cfg.DataDir != "data" {
		t.Errorf("defaults: %+v", cfg)
	}
	if cfg.Conversation.DefaultRounds != 6 || cfg.Pipeline.MaxRetries != 3 {
		t.Errorf("defaults: %+v", cfg)
	}
	policy := cfg.Pipeline.TensionPolicy()
	if policy.StressBonus != 20 || policy.ConfidenceFloor != 0.2 {
		t.Errorf("tension policy = %+v", policy)
	}
}

func TestLoadTensionOverride(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"pipeline": {"tension": {"confidence_floor": 0.5, "stress_bonus": 10, "jitter_range": 2, "learn_probability": 0.1, "phrase_window": 3}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	policy := cfg.Pipeline.TensionPolicy()
	if policy.StressBonus != 10 || policy.JitterRange != 2 {
		t.Errorf("policy = %+v", policy)
	}
}

func TestLoadAgentProviderRouting(t *testing.T) {
	cfg, err := Load(writeConfig(t, `{
		"agents": [
			{"name": "Morgan", "personality": "analytical", "provider": "main", "fallbacks": ["backup", "local"]},
			{"name": "Casey", "personality": "friendly"}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(cfg.Agents) != 2 {
		t.Fatalf("agents = %+v", cfg.Agents)
	}
	morgan := cfg.Agents[0]
	if morgan.Provider != "main" {
		t.Errorf("provider = %q", morgan.Provider)
	}
	if len(morgan.Fallbacks) != 2 || morgan.Fallbacks[0] != "backup" {
		t.Errorf("fallbacks = %v", morgan.Fallbacks)
	}
	if cfg.Agents[1].Fallbacks != nil {
		t.Errorf("fallbacks = %v, want none by default", cfg.Agents[1].Fallbacks)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error")
	}
}
