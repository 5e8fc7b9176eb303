// ABOUTME: Tests for configuration loading
// ABOUTME: Covers env expansion, duration parsing, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const validConfig = `
server:
  http_addr: "127.0.0.1:8080"
database:
  path: "/tmp/notetaker.db"
provider:
  api_key: "key-123"
  base_url: "https://api.provider.example.com/v1"
recording:
  default_lead_minutes: 15
  poll_interval: "10s"
`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.HTTPAddr != "127.0.0.1:8080" {
		t.Errorf("HTTPAddr = %q", cfg.Server.HTTPAddr)
	}
	if cfg.Recording.DefaultLeadMinutes != 15 {
		t.Errorf("DefaultLeadMinutes = %d, want 15", cfg.Recording.DefaultLeadMinutes)
	}
	if cfg.Recording.PollInterval != 10*time.Second {
		t.Errorf("PollInterval = %v, want 10s", cfg.Recording.PollInterval)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "/tmp/notetaker.db"
provider:
  api_key: "key"
  base_url: "https://api.provider.example.com/v1"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.BotName != DefaultBotName {
		t.Errorf("BotName = %q, want default", cfg.Provider.BotName)
	}
	if cfg.Recording.DefaultLeadMinutes != DefaultLeadMinutes {
		t.Errorf("DefaultLeadMinutes = %d, want default", cfg.Recording.DefaultLeadMinutes)
	}
	if cfg.Recording.PollInterval != DefaultPollInterval {
		t.Errorf("PollInterval = %v, want default", cfg.Recording.PollInterval)
	}
	if cfg.Recording.JoinAheadThreshold != DefaultJoinAheadThreshold {
		t.Errorf("JoinAheadThreshold = %v, want default", cfg.Recording.JoinAheadThreshold)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_PROVIDER_KEY", "from-env")
	cfg, err := Load(writeConfig(t, `
server:
  http_addr: ":8080"
database:
  path: "/tmp/notetaker.db"
provider:
  api_key: "${TEST_PROVIDER_KEY}"
  base_url: "https://api.provider.example.com/v1"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.Provider.APIKey)
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"missing http_addr", `
database:
  path: "/tmp/db"
provider:
  api_key: "k"
  base_url: "https://x"
`},
		{"missing database path", `
server:
  http_addr: ":8080"
provider:
  api_key: "k"
  base_url: "https://x"
`},
		{"missing api key", `
server:
  http_addr: ":8080"
database:
  path: "/tmp/db"
provider:
  base_url: "https://x"
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_BadDuration(t *testing.T) {
	_, err := Load(writeConfig(t, validConfig+`  join_ahead_threshold: "not-a-duration"`))
	if err == nil {
		t.Error("expected duration parse error")
	}
}
