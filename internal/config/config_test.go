package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "configs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	uploads := filepath.Join(t.TempDir(), "uploads")
	dir := writeConfig(t, `
server:
  mode: debug
database:
  driver: sqlite
  path: test.db
jwt:
  secret: short
storage:
  local_path: `+uploads+`
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.JWT.ExpireTime != 24*time.Hour || cfg.JWT.RefreshExpireTime != 7*24*time.Hour {
		t.Errorf("unexpected token lifetimes %v / %v", cfg.JWT.ExpireTime, cfg.JWT.RefreshExpireTime)
	}
	if cfg.Payment.Currency != "NGN" || cfg.CBT.SessionCacheSeconds != 300 {
		t.Errorf("unexpected defaults %+v %+v", cfg.Payment, cfg.CBT)
	}
	if !strings.HasSuffix(cfg.ConfigFile, "config.yaml") {
		t.Errorf("expected config file recorded, got %q", cfg.ConfigFile)
	}
	if _, err := os.Stat(uploads); err != nil {
		t.Errorf("expected local upload dir created: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "debug with short secret",
			cfg:  Config{Server: ServerConfig{Mode: "debug"}, Database: DatabaseConfig{Driver: "mysql"}, JWT: JWTConfig{Secret: "x"}},
		},
		{
			name:    "release with short secret",
			cfg:     Config{Server: ServerConfig{Mode: "release"}, Database: DatabaseConfig{Driver: "mysql"}, JWT: JWTConfig{Secret: "x"}},
			wantErr: true,
		},
		{
			name: "release with long secret",
			cfg:  Config{Server: ServerConfig{Mode: "release"}, Database: DatabaseConfig{Driver: "postgres"}, JWT: JWTConfig{Secret: strings.Repeat("k", 32)}},
		},
		{
			name:    "unknown driver",
			cfg:     Config{Database: DatabaseConfig{Driver: "oracle"}},
			wantErr: true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
