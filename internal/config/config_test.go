package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Knowledge.TopK != 3 {
		t.Errorf("Knowledge.TopK = %d, want 3", cfg.Knowledge.TopK)
	}
	if cfg.Mail.Subject != "Your Quotation from Justin" {
		t.Errorf("Mail.Subject = %q", cfg.Mail.Subject)
	}
	if cfg.Database.Driver != "" {
		t.Errorf("Database.Driver = %q, want disabled by default", cfg.Database.Driver)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[app]
port = 9000

[knowledge]
top_k = 5
index_path = "/srv/kb/index.bin"

[mail]
to = "file@example.com"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("QUOTE_TO_EMAIL", "env@example.com")
	t.Setenv("GOOGLE_API_KEY", "gemini-key")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 7070 {
		t.Errorf("App.Port = %d, want 7070", cfg.App.Port)
	}
	if cfg.Knowledge.TopK != 5 {
		t.Errorf("Knowledge.TopK = %d, want 5", cfg.Knowledge.TopK)
	}
	if cfg.Knowledge.IndexPath != "/srv/kb/index.bin" {
		t.Errorf("Knowledge.IndexPath = %q", cfg.Knowledge.IndexPath)
	}
	if cfg.Mail.To != "env@example.com" {
		t.Errorf("Mail.To = %q, want env override", cfg.Mail.To)
	}
	if cfg.LLM.APIKey != "gemini-key" {
		t.Errorf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	if !cfg.Redis.Enabled {
		t.Error("Redis.Enabled = false, want true")
	}
	if got := cfg.EmbeddingAPIKey(); got != "gemini-key" {
		t.Errorf("EmbeddingAPIKey() = %q, want chat key fallback", got)
	}
}

func TestLoad_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[app\nport = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail on malformed TOML")
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("CORS_ORIGINS", " http://a.test , ,http://b.test")
	got := getEnvAsList("CORS_ORIGINS", nil)
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Errorf("getEnvAsList = %v", got)
	}
}
