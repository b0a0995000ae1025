package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.MetricsNamespace != "webpilot" {
		t.Fatalf("MetricsNamespace = %q, want %q", cfg.MetricsNamespace, "webpilot")
	}
	if cfg.LLMTimeout != 60*time.Second {
		t.Fatalf("LLMTimeout = %v, want 60s", cfg.LLMTimeout)
	}
	if !cfg.SecurityLayerEnabled {
		t.Fatalf("SecurityLayerEnabled = false, want true by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_BIND_ADDR", ":9999")
	t.Setenv("LLM_REQUEST_TIMEOUT", "30s")
	t.Setenv("LLM_MAX_RETRIES", "5")
	t.Setenv("SECURITY_LAYER_ENABLED", "false")
	t.Setenv("SAFETY_EXTRA_KEYWORDS", "format disk, factory reset ,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":9999" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":9999")
	}
	if cfg.LLMTimeout != 30*time.Second {
		t.Fatalf("LLMTimeout = %v, want 30s", cfg.LLMTimeout)
	}
	if cfg.LLMMaxRetries != 5 {
		t.Fatalf("LLMMaxRetries = %d, want 5", cfg.LLMMaxRetries)
	}
	if cfg.SecurityLayerEnabled {
		t.Fatalf("SecurityLayerEnabled = true, want false")
	}
	if len(cfg.ExtraSafetyKeywords) != 2 {
		t.Fatalf("ExtraSafetyKeywords = %v, want 2 entries", cfg.ExtraSafetyKeywords)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LLM_REQUEST_TIMEOUT", "not-a-duration")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with bad duration did not fail")
	}
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("BROWSER_DRIVER", "quantum")
	if _, err := Load(); err == nil {
		t.Fatalf("Load() with unknown driver did not fail")
	}
}
