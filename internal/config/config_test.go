package config

import "testing"

func TestValidate_RequiresSecretOutsideDev(t *testing.T) {
	cfg := &Config{Env: "production", TokenTTLHrs: 168}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing JWT_SECRET in production")
	}
}

func TestValidate_DevAllowsEmptySecret(t *testing.T) {
	cfg := &Config{Env: "development", TokenTTLHrs: 168}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_ShortSecret(t *testing.T) {
	cfg := &Config{Env: "production", JWTSecret: "short", TokenTTLHrs: 168}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short JWT_SECRET")
	}
}

func TestValidate_WhatsAppCredentialsTogether(t *testing.T) {
	cfg := &Config{
		Env:           "development",
		TokenTTLHrs:   168,
		WhatsAppToken: "provider-token",
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when WHATSAPP_PHONE_ID is missing")
	}

	cfg.WhatsAppPhoneID = "1234567890"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.WhatsAppEnabled() {
		t.Error("expected WhatsApp delivery to be enabled")
	}
}

func TestValidate_TokenTTL(t *testing.T) {
	cfg := &Config{Env: "development", TokenTTLHrs: 0}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for non-positive TOKEN_TTL_HOURS")
	}
}
