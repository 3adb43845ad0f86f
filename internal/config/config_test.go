package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  client_id: "11111111-2222-3333-4444-555555555555"
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.API.BaseURL != "https://api.powerbi.com/v1.0/myorg" {
		t.Errorf("unexpected base url: %s", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 120*time.Second {
		t.Errorf("expected 120s timeout, got %s", cfg.API.Timeout)
	}
	if cfg.Auth.Flow != FlowInteractive {
		t.Errorf("expected interactive flow, got %s", cfg.Auth.Flow)
	}
	if !cfg.Dataset.Create {
		t.Errorf("expected dataset creation to be enabled by default")
	}
	if cfg.Rows.Append {
		t.Errorf("expected row append to be disabled by default")
	}
	if cfg.Rows.BatchSize != 10000 {
		t.Errorf("expected batch size 10000, got %d", cfg.Rows.BatchSize)
	}
	if cfg.Rows.Inline != `[{"Id": 42, "Age": 33}]` {
		t.Errorf("unexpected inline rows: %s", cfg.Rows.Inline)
	}
	if len(cfg.Auth.Scopes) != 2 {
		t.Errorf("expected default scopes, got %v", cfg.Auth.Scopes)
	}
}

func TestLoadFileOverridesAndEnv(t *testing.T) {
	path := writeConfig(t, `
api:
  base_url: "http://localhost:9000/v1.0/myorg"
  timeout: 0s
auth:
  flow: static
  access_token: "from-file"
rows:
  append: true
  dataset_id: "cfb1bd8f-5f2c-4b9a-9d3c-0e5e1d6f3a10"
  table: "Names"
  inline: '[{"Id": 1, "Name": "Ada"}, {"Id": 2, "Name": "Grace"}]'
`)
	t.Setenv("PUBLISHER_AUTH_ACCESS_TOKEN", "from-env")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.API.Timeout != 0 {
		t.Errorf("expected zero timeout, got %s", cfg.API.Timeout)
	}
	if cfg.Auth.AccessToken != "from-env" {
		t.Errorf("expected env override, got %s", cfg.Auth.AccessToken)
	}
	if cfg.Rows.Table != "Names" {
		t.Errorf("unexpected rows table: %s", cfg.Rows.Table)
	}
	if !strings.Contains(cfg.Rows.Inline, `"Name": "Grace"`) {
		t.Errorf("inline rows should keep column case: %s", cfg.Rows.Inline)
	}
}

func TestLoadFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		field   string
	}{
		{
			name:    "unknown flow",
			content: "auth:\n  flow: password\n  client_id: x\n",
			field:   "Flow",
		},
		{
			name:    "client credentials without secret",
			content: "auth:\n  flow: client_credentials\n  client_id: x\n",
			field:   "ClientSecret",
		},
		{
			name:    "static without token",
			content: "auth:\n  flow: static\n",
			field:   "AccessToken",
		},
		{
			name:    "append without dataset id",
			content: "auth:\n  flow: static\n  access_token: t\ndataset:\n  create: false\nrows:\n  append: true\n",
			field:   "DatasetID",
		},
		{
			name:    "file source without path",
			content: "auth:\n  flow: static\n  access_token: t\nrows:\n  source: file\n",
			field:   "Path",
		},
		{
			name:    "inline rows not json",
			content: "auth:\n  flow: static\n  access_token: t\nrows:\n  inline: \"Id=1\"\n",
			field:   "Inline",
		},
		{
			name:    "interactive without client id",
			content: "auth:\n  flow: interactive\n",
			field:   "ClientID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("expected error to mention %s, got %v", tt.field, err)
			}
		})
	}
}

func TestAuthEndpoints(t *testing.T) {
	auth := AuthConfig{Authority: "https://login.microsoftonline.com/", Tenant: "contoso"}

	if auth.AuthURL() != "https://login.microsoftonline.com/contoso/oauth2/v2.0/authorize" {
		t.Errorf("unexpected auth url: %s", auth.AuthURL())
	}
	if auth.TokenURL() != "https://login.microsoftonline.com/contoso/oauth2/v2.0/token" {
		t.Errorf("unexpected token url: %s", auth.TokenURL())
	}

	auth.Tenant = ""
	if auth.DeviceAuthURL() != "https://login.microsoftonline.com/oauth2/v2.0/devicecode" {
		t.Errorf("unexpected device url: %s", auth.DeviceAuthURL())
	}
}

func TestAppendToDatasetCreatedInSameRun(t *testing.T) {
	path := writeConfig(t, `
auth:
  flow: static
  access_token: "t"
rows:
  append: true
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("expected append without dataset_id to be valid when creating, got %v", err)
	}
	if cfg.Rows.DatasetID != "" {
		t.Errorf("expected empty dataset id, got %s", cfg.Rows.DatasetID)
	}
}
