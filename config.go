package guardkit

import (
	"errors"
	"time"

	"github.com/guardkit/guardkit/captcha"
)

// Config defines a public type used by guardkit APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	CSRF      CSRFConfig
	RateLimit RateLimitConfig
	Captcha   CaptchaConfig
	Challenge ChallengeConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
CSRF CONFIG
====================================
*/

// CSRFConfig defines a public type used by guardkit APIs.
//
// CSRFConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CSRFConfig struct {
	CookieName  string
	HeaderName  string
	ExemptPaths []string

	// BearerBypass skips the double-submit check for requests carrying a
	// *valid* bearer token: bearer auth and cookie-session auth are treated
	// as mutually exclusive, and only the latter is CSRF-relevant. The token
	// is verified against BearerHMACKey before the bypass applies; a bare
	// "Authorization: Bearer" prefix is never enough.
	BearerBypass  bool
	BearerHMACKey []byte
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

// RateLimitConfig defines a public type used by guardkit APIs.
//
// RateLimitConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type RateLimitConfig struct {
	APIMaxRequests  int
	APIWindow       time.Duration
	AuthMaxRequests int
	AuthWindow      time.Duration

	// SensitivePaths selects the strict ceiling; matched with the same
	// normalization as CSRF exemptions.
	SensitivePaths []string

	// SweepThreshold bounds the in-memory counter table; ignored by the
	// Redis store, which expires keys natively.
	SweepThreshold int
}

/*
====================================
CAPTCHA CONFIG
====================================
*/

// CaptchaConfig defines a public type used by guardkit APIs.
//
// CaptchaConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CaptchaConfig struct {
	// DefaultProvider is the orchestrator's initial state; empty selects the
	// first configured provider in the standard chain.
	DefaultProvider captcha.ProviderType

	V3SiteKey string
	V3Secret  string
	V2SiteKey string
	V2Secret  string

	ScriptURL   string
	VerifyURL   string
	MinScore    float64
	InitTimeout time.Duration
	HTTPTimeout time.Duration
}

// ChallengeConfig defines a public type used by guardkit APIs.
//
// ChallengeConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ChallengeConfig struct {
	TTL          time.Duration
	AnswerLength int
	ImageWidth   int
	ImageHeight  int
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig defines a public type used by guardkit APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by guardkit APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		CSRF: CSRFConfig{
			CookieName:   "csrf-token",
			HeaderName:   "X-CSRF-Token",
			ExemptPaths:  nil, // csrf.DefaultExemptPaths
			BearerBypass: false,
		},
		RateLimit: RateLimitConfig{
			APIMaxRequests:  100,
			APIWindow:       time.Minute,
			AuthMaxRequests: 5,
			AuthWindow:      15 * time.Minute,
			SensitivePaths: []string{
				"/auth/login",
				"/auth/register",
				"/auth/reset-password",
			},
			SweepThreshold: 10_000,
		},
		Captcha: CaptchaConfig{
			DefaultProvider: "",
			MinScore:        0.5,
			InitTimeout:     5 * time.Second,
			HTTPTimeout:     10 * time.Second,
		},
		Challenge: ChallengeConfig{
			TTL:          5 * time.Minute,
			AnswerLength: 6,
			ImageWidth:   200,
			ImageHeight:  80,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg

	if cfg.CSRF.ExemptPaths != nil {
		out.CSRF.ExemptPaths = append([]string(nil), cfg.CSRF.ExemptPaths...)
	}
	if cfg.CSRF.BearerHMACKey != nil {
		out.CSRF.BearerHMACKey = append([]byte(nil), cfg.CSRF.BearerHMACKey...)
	}
	if cfg.RateLimit.SensitivePaths != nil {
		out.RateLimit.SensitivePaths = append([]string(nil), cfg.RateLimit.SensitivePaths...)
	}

	return out
}

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// CSRF
	if c.CSRF.BearerBypass && len(c.CSRF.BearerHMACKey) == 0 {
		return errors.New("CSRF BearerBypass requires BearerHMACKey")
	}

	// Rate limiting
	if c.RateLimit.APIMaxRequests <= 0 {
		return errors.New("RateLimit APIMaxRequests must be > 0")
	}
	if c.RateLimit.AuthMaxRequests <= 0 {
		return errors.New("RateLimit AuthMaxRequests must be > 0")
	}
	if c.RateLimit.APIWindow <= 0 {
		return errors.New("RateLimit APIWindow must be > 0")
	}
	if c.RateLimit.AuthWindow <= 0 {
		return errors.New("RateLimit AuthWindow must be > 0")
	}
	if c.RateLimit.SweepThreshold < 0 {
		return errors.New("RateLimit SweepThreshold must be >= 0")
	}

	// Captcha
	switch c.Captcha.DefaultProvider {
	case "", captcha.TypeRecaptchaV3, captcha.TypeRecaptchaV2, captcha.TypeCustom:
	default:
		return errors.New("unsupported Captcha DefaultProvider")
	}
	if c.Captcha.DefaultProvider == captcha.TypeRecaptchaV3 && c.Captcha.V3SiteKey == "" {
		return errors.New("Captcha DefaultProvider recaptcha-v3 requires V3SiteKey")
	}
	if c.Captcha.DefaultProvider == captcha.TypeRecaptchaV2 && c.Captcha.V2SiteKey == "" {
		return errors.New("Captcha DefaultProvider recaptcha-v2 requires V2SiteKey")
	}
	if c.Captcha.InitTimeout <= 0 {
		return errors.New("Captcha InitTimeout must be > 0")
	}
	if c.Captcha.HTTPTimeout <= 0 {
		return errors.New("Captcha HTTPTimeout must be > 0")
	}
	if c.Captcha.MinScore < 0 || c.Captcha.MinScore > 1 {
		return errors.New("Captcha MinScore must be within [0, 1]")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if c.Challenge.AnswerLength < 4 || c.Challenge.AnswerLength > 12 {
		return errors.New("Challenge AnswerLength must be within [4, 12]")
	}
	if c.Challenge.ImageWidth <= 0 || c.Challenge.ImageHeight <= 0 {
		return errors.New("Challenge image dimensions must be > 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
