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
	path := filepath.Join(t.TempDir(), "tenantflow.yaml")
	requireNoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsAreValid(t *testing.T) {
	cfg, err := Load("")
	requireNoError(t, err)

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Saga.DNSVerifyRetry.MaxAttempts != 7 || cfg.Saga.DNSVerifyRetry.BaseDelay != 10*time.Second || cfg.Saga.DNSVerifyRetry.MaxDelay != 300*time.Second {
		t.Fatalf("unexpected dns verify retry %+v", cfg.Saga.DNSVerifyRetry)
	}
	if cfg.Saga.StepRetry.MaxAttempts != 3 || cfg.Saga.StepRetry.MaxDelay != 30*time.Second {
		t.Fatalf("unexpected step retry %+v", cfg.Saga.StepRetry)
	}
	if len(cfg.DNS.Resolvers) != 3 || cfg.DNS.Quorum != 2 {
		t.Fatalf("unexpected resolvers %v quorum %d", cfg.DNS.Resolvers, cfg.DNS.Quorum)
	}
	if cfg.Saga.InvitationTTL != 7*24*time.Hour {
		t.Fatalf("unexpected invitation ttl %s", cfg.Saga.InvitationTTL)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  mode: "debug"
dns:
  provider: "cloudflare"
  api_token: "cf-token"
  base_domain: "example.com"
  target: "edge.example.net"
  resolvers: ["10.0.0.1:53", "10.0.0.2:53"]
  quorum: 2
email:
  provider: "resend"
  api_key: "re_test"
  from: "Tenantflow <noreply@example.com>"
saga:
  poll_interval: "250ms"
`)
	t.Setenv("TENANTFLOW_SERVER__PORT", "9100")
	t.Setenv("TENANTFLOW_SAGA__STEP_RETRY__MAX_ATTEMPTS", "5")

	cfg, err := Load(path)
	requireNoError(t, err)

	if cfg.Server.Port != 9100 {
		t.Fatalf("expected env override port 9100, got %d", cfg.Server.Port)
	}
	if cfg.Server.Mode != "debug" {
		t.Fatalf("expected debug mode, got %q", cfg.Server.Mode)
	}
	if cfg.Saga.StepRetry.MaxAttempts != 5 {
		t.Fatalf("expected step retry attempts 5, got %d", cfg.Saga.StepRetry.MaxAttempts)
	}
	if cfg.Saga.PollInterval != 250*time.Millisecond {
		t.Fatalf("expected poll interval 250ms, got %s", cfg.Saga.PollInterval)
	}
	if cfg.DNS.Provider != "cloudflare" || cfg.DNS.BaseDomain != "example.com" || len(cfg.DNS.Resolvers) != 2 {
		t.Fatalf("unexpected dns config %+v", cfg.DNS)
	}
	if cfg.Email.Provider != "resend" || cfg.Email.APIKey != "re_test" {
		t.Fatalf("unexpected email config %+v", cfg.Email)
	}
}

func TestLoad_InvalidConfigFailsStartup(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "server port",
			body:    "server:\n  port: -1\n",
			wantErr: "invalid server.port",
		},
		{
			name:    "logging format",
			body:    "logging:\n  format: \"xml\"\n",
			wantErr: "invalid logging.format",
		},
		{
			name:    "cloudflare without token",
			body:    "dns:\n  provider: \"cloudflare\"\n  base_domain: \"example.com\"\n  target: \"edge.example.net\"\n",
			wantErr: "dns.api_token is required",
		},
		{
			name:    "quorum above resolver count",
			body:    "dns:\n  provider: \"cloudflare\"\n  api_token: \"t\"\n  base_domain: \"example.com\"\n  target: \"edge.example.net\"\n  quorum: 4\n",
			wantErr: "dns.quorum 4",
		},
		{
			name:    "unknown email provider",
			body:    "email:\n  provider: \"smtp\"\n",
			wantErr: "unsupported email.provider",
		},
		{
			name:    "retry without attempts",
			body:    "saga:\n  step_retry:\n    max_attempts: 0\n",
			wantErr: "saga.step_retry.max_attempts",
		},
		{
			name:    "relative invitation url",
			body:    "email:\n  invitation_base_url: \"/accept\"\n",
			wantErr: "email.invitation_base_url",
		},
		{
			name:    "notify without channel",
			body:    "notify:\n  enabled: true\n  channel: \"\"\n",
			wantErr: "notify.channel is required",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestLoad_MissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "failed to load config file") {
		t.Fatalf("expected file load error, got %v", err)
	}
}

func requireNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
