package guardkit

import (
	"testing"
	"time"

	"github.com/guardkit/guardkit/captcha"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults valid",
			mutate:    func(c *Config) {},
			wantValid: true,
		},
		{
			name: "bearer bypass without key invalid",
			mutate: func(c *Config) {
				c.CSRF.BearerBypass = true
			},
			wantValid: false,
		},
		{
			name: "bearer bypass with key valid",
			mutate: func(c *Config) {
				c.CSRF.BearerBypass = true
				c.CSRF.BearerHMACKey = []byte("0123456789abcdef0123456789abcdef")
			},
			wantValid: true,
		},
		{
			name: "api max requests zero invalid",
			mutate: func(c *Config) {
				c.RateLimit.APIMaxRequests = 0
			},
			wantValid: false,
		},
		{
			name: "auth window negative invalid",
			mutate: func(c *Config) {
				c.RateLimit.AuthWindow = -time.Minute
			},
			wantValid: false,
		},
		{
			name: "sweep threshold negative invalid",
			mutate: func(c *Config) {
				c.RateLimit.SweepThreshold = -1
			},
			wantValid: false,
		},
		{
			name: "default provider custom valid",
			mutate: func(c *Config) {
				c.Captcha.DefaultProvider = captcha.TypeCustom
			},
			wantValid: true,
		},
		{
			name: "default provider unknown invalid",
			mutate: func(c *Config) {
				c.Captcha.DefaultProvider = "hcaptcha"
			},
			wantValid: false,
		},
		{
			name: "default provider v3 without site key invalid",
			mutate: func(c *Config) {
				c.Captcha.DefaultProvider = captcha.TypeRecaptchaV3
			},
			wantValid: false,
		},
		{
			name: "default provider v3 with site key valid",
			mutate: func(c *Config) {
				c.Captcha.DefaultProvider = captcha.TypeRecaptchaV3
				c.Captcha.V3SiteKey = "site-key"
			},
			wantValid: true,
		},
		{
			name: "default provider v2 without site key invalid",
			mutate: func(c *Config) {
				c.Captcha.DefaultProvider = captcha.TypeRecaptchaV2
			},
			wantValid: false,
		},
		{
			name: "min score above one invalid",
			mutate: func(c *Config) {
				c.Captcha.MinScore = 1.5
			},
			wantValid: false,
		},
		{
			name: "init timeout zero invalid",
			mutate: func(c *Config) {
				c.Captcha.InitTimeout = 0
			},
			wantValid: false,
		},
		{
			name: "answer length too short invalid",
			mutate: func(c *Config) {
				c.Challenge.AnswerLength = 3
			},
			wantValid: false,
		},
		{
			name: "answer length too long invalid",
			mutate: func(c *Config) {
				c.Challenge.AnswerLength = 13
			},
			wantValid: false,
		},
		{
			name: "answer length eight valid",
			mutate: func(c *Config) {
				c.Challenge.AnswerLength = 8
			},
			wantValid: true,
		},
		{
			name: "challenge ttl zero invalid",
			mutate: func(c *Config) {
				c.Challenge.TTL = 0
			},
			wantValid: false,
		},
		{
			name: "image width zero invalid",
			mutate: func(c *Config) {
				c.Challenge.ImageWidth = 0
			},
			wantValid: false,
		},
		{
			name: "audit enabled with zero buffer invalid",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tt.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCloneConfigIsolation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CSRF.ExemptPaths = []string{"/health"}
	cfg.CSRF.BearerHMACKey = []byte("secret-key")
	cfg.RateLimit.SensitivePaths = []string{"/auth/login"}

	clone := cloneConfig(cfg)

	cfg.CSRF.ExemptPaths[0] = "/mutated"
	cfg.CSRF.BearerHMACKey[0] = 'X'
	cfg.RateLimit.SensitivePaths[0] = "/mutated"

	if clone.CSRF.ExemptPaths[0] != "/health" {
		t.Fatal("exempt paths not deep-copied")
	}
	if clone.CSRF.BearerHMACKey[0] != 's' {
		t.Fatal("bearer key not deep-copied")
	}
	if clone.RateLimit.SensitivePaths[0] != "/auth/login" {
		t.Fatal("sensitive paths not deep-copied")
	}
}
