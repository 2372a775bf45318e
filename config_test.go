package goExpense

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{name: "defaults with keys", mutate: func(c *Config) {}, wantValid: true},
		{name: "jwt leeway valid", mutate: func(c *Config) { c.JWT.Leeway = 45 * time.Second }, wantValid: true},
		{name: "jwt leeway invalid", mutate: func(c *Config) { c.JWT.Leeway = 3 * time.Minute }, wantValid: false},
		{name: "access ttl zero", mutate: func(c *Config) { c.JWT.AccessTTL = 0 }, wantValid: false},
		{name: "refresh shorter than access", mutate: func(c *Config) { c.JWT.RefreshTTL = time.Minute }, wantValid: false},
		{name: "hs256 valid", mutate: func(c *Config) {
			c.JWT.SigningMethod = "hs256"
			c.JWT.PublicKey = nil
		}, wantValid: true},
		{name: "unknown signing method", mutate: func(c *Config) { c.JWT.SigningMethod = "rs256" }, wantValid: false},
		{name: "ed25519 missing public key", mutate: func(c *Config) { c.JWT.PublicKey = nil }, wantValid: false},
		{name: "empty prefix", mutate: func(c *Config) { c.Session.RedisPrefix = " " }, wantValid: false},
		{name: "prefix with colon", mutate: func(c *Config) { c.Session.RedisPrefix = "a:b" }, wantValid: false},
		{name: "zero login attempts", mutate: func(c *Config) { c.Security.MaxLoginAttempts = 0 }, wantValid: false},
		{name: "zero login cooldown", mutate: func(c *Config) { c.Security.LoginCooldownDuration = 0 }, wantValid: false},
		{name: "refresh throttle without budget", mutate: func(c *Config) { c.Security.MaxRefreshAttempts = 0 }, wantValid: false},
		{name: "refresh throttle off ignores budget", mutate: func(c *Config) {
			c.Security.EnableRefreshThrottle = false
			c.Security.MaxRefreshAttempts = 0
		}, wantValid: true},
		{name: "audit buffer zero", mutate: func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}, wantValid: false},
		{name: "jwt only mode", mutate: func(c *Config) { c.ValidationMode = ModeJWTOnly }, wantValid: true},
		{name: "inherit is not an engine mode", mutate: func(c *Config) { c.ValidationMode = ModeInherit }, wantValid: false},
		{name: "unknown mode", mutate: func(c *Config) { c.ValidationMode = ValidationMode(77) }, wantValid: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid config, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected invalid config")
			}
		})
	}
}

func TestDefaultConfigNeedsKeys(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Fatal("default config without keys must not validate")
	}
	if cfg.ValidationMode != ModeStrict || cfg.Session.SingleSession {
		t.Fatalf("unexpected defaults: mode=%v single=%v", cfg.ValidationMode, cfg.Session.SingleSession)
	}
}

func TestCloneConfigCopiesKeyMaterial(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWT.VerifyKeys = map[string][]byte{"k1": []byte("abc")}

	clone := cloneConfig(cfg)
	cfg.JWT.PrivateKey[0] ^= 0xff
	cfg.JWT.VerifyKeys["k1"][0] = 'z'

	if clone.JWT.PrivateKey[0] == cfg.JWT.PrivateKey[0] {
		t.Fatal("private key shares backing array")
	}
	if string(clone.JWT.VerifyKeys["k1"]) != "abc" {
		t.Fatal("verify keys share backing array")
	}
}

func TestParseValidationMode(t *testing.T) {
	tests := map[string]ValidationMode{
		"":         ModeStrict,
		"strict":   ModeStrict,
		" STRICT ": ModeStrict,
		"jwt_only": ModeJWTOnly,
		"jwt-only": ModeJWTOnly,
		"jwt":      ModeJWTOnly,
	}
	for in, want := range tests {
		got, err := ParseValidationMode(in)
		if err != nil || got != want {
			t.Fatalf("ParseValidationMode(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseValidationMode("hybrid"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if ModeStrict.String() != "strict" || ModeJWTOnly.String() != "jwt_only" || ModeInherit.String() != "inherit" {
		t.Fatal("unexpected mode strings")
	}
}
