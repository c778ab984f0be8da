package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	registerDefaults()
	viper.SetEnvPrefix("PHISHFUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func TestLoadConfig_Defaults(t *testing.T) {
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Timeout != 5*time.Second {
		t.Errorf("expected default timeout 5s, got %v", cfg.HTTP.Timeout)
	}
	if cfg.Fusion.Tiers != 3 || !cfg.Fusion.Renormalize {
		t.Errorf("unexpected fusion defaults: %+v", cfg.Fusion)
	}
	if cfg.Ledger.Backend != "csv" {
		t.Errorf("expected csv ledger, got %s", cfg.Ledger.Backend)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("PHISHFUSE_LEDGER_BACKEND", "sqlite")
	t.Setenv("PHISHFUSE_FUSION_TIERS", "2")
	t.Setenv("PHISHFUSE_HTTP_TIMEOUT", "9s")
	resetViper(t)

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Ledger.Backend != "sqlite" {
		t.Errorf("expected sqlite from env, got %s", cfg.Ledger.Backend)
	}
	if cfg.Fusion.Tiers != 2 {
		t.Errorf("expected 2 tiers from env, got %d", cfg.Fusion.Tiers)
	}
	if cfg.HTTP.Timeout != 9*time.Second {
		t.Errorf("expected 9s timeout from env, got %v", cfg.HTTP.Timeout)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("PHISHFUSE_LEDGER_BACKEND", "mongo")
	resetViper(t)

	if _, err := loadConfig(); err == nil {
		t.Error("expected error for unknown ledger backend")
	}
}

func TestReportFileName(t *testing.T) {
	tests := []struct {
		pos  int
		url  string
		want string
	}{
		{0, "https://example.com/login?x=1", "0001_example.com_login_x_1.json"},
		{11, "http://a-b.example", "0012_a-b.example.json"},
	}
	for _, tt := range tests {
		if got := reportFileName(tt.pos, tt.url); got != tt.want {
			t.Errorf("reportFileName(%d, %q) = %q, want %q", tt.pos, tt.url, got, tt.want)
		}
	}

	long := reportFileName(0, "https://"+strings.Repeat("a", 200)+".example")
	if len(long) > len("0001_.json")+80 {
		t.Errorf("name not truncated: %d chars", len(long))
	}
}
