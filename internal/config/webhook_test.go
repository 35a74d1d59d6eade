package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWebhookConfigHolderFallsBackToEnvironmentConfig(t *testing.T) {
	appCfg := Config{
		WebhookSecret:    "whsec_env",
		WebhookPath:      "/webhooks/polar",
		WebhookTolerance: 5 * time.Minute,
	}

	holder, err := NewWebhookConfigHolder(appCfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new holder: %v", err)
	}

	got := holder.Get()
	if got.Secret != "whsec_env" {
		t.Fatalf("secret = %q", got.Secret)
	}
	if got.Path != "/webhooks/polar" {
		t.Fatalf("path = %q", got.Path)
	}
	if got.Tolerance != 5*time.Minute {
		t.Fatalf("tolerance = %v", got.Tolerance)
	}
}

func TestWebhookConfigHolderStoreSwapsAtomically(t *testing.T) {
	holder := &WebhookConfigHolder{}
	holder.Store(WebhookConfig{Secret: "one"})

	if holder.Get().Secret != "one" {
		t.Fatal("initial store not visible")
	}

	holder.Store(WebhookConfig{Secret: "two", SecretBase64: true})
	got := holder.Get()
	if got.Secret != "two" || !got.SecretBase64 {
		t.Fatalf("got %+v after swap", got)
	}
}
