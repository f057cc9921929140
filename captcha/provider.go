package captcha

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ProviderType identifies one verification strategy in the fallback chain.
type ProviderType string

const (
	// TypeRecaptchaV3 is an exported constant or variable used by the captcha subsystem.
	TypeRecaptchaV3 ProviderType = "recaptcha-v3"
	// TypeRecaptchaV2 is an exported constant or variable used by the captcha subsystem.
	TypeRecaptchaV2 ProviderType = "recaptcha-v2"
	// TypeCustom is an exported constant or variable used by the captcha subsystem.
	TypeCustom ProviderType = "custom"
)

var (
	// ErrNotConfigured is an exported constant or variable used by the captcha subsystem.
	ErrNotConfigured = errors.New("captcha provider not configured")
	// ErrUnavailable is an exported constant or variable used by the captcha subsystem.
	ErrUnavailable = errors.New("captcha provider unavailable")
	// ErrRejected is an exported constant or variable used by the captcha subsystem.
	ErrRejected = errors.New("captcha token rejected")
)

// EmitFunc delivers a verification token to the orchestrator. An empty token
// invalidates any prior verification.
type EmitFunc func(token string)

// Provider is one verification strategy. Initialize blocks until the provider
// is ready to verify or fails; the orchestrator bounds it with a timeout and
// falls back on error. Tokens flow out exclusively through the EmitFunc handed
// to Initialize, and only after Initialize has returned — emitting from inside
// Initialize is not allowed.
type Provider interface {
	Type() ProviderType

	// ID is the provider-specific identifier the client needs to render the
	// widget: the site key for reCAPTCHA, the current challenge id for the
	// custom provider.
	ID() string

	Initialize(ctx context.Context, emit EmitFunc) error
}

// DefaultScriptURL is the reCAPTCHA script endpoint probed during initialization.
const DefaultScriptURL = "https://www.google.com/recaptcha/api.js"

// RecaptchaConfig holds the per-variant settings for a reCAPTCHA provider.
type RecaptchaConfig struct {
	SiteKey   string
	ScriptURL string
	Client    *http.Client
}

// RecaptchaProvider wraps one reCAPTCHA variant (v3 or v2). Initialization
// probes the script endpoint; readiness without reachability is meaningless
// because the widget cannot load either.
type RecaptchaProvider struct {
	typ       ProviderType
	siteKey   string
	scriptURL string
	client    *http.Client

	emit EmitFunc
}

// NewRecaptchaV3 creates the score-based invisible variant.
func NewRecaptchaV3(cfg RecaptchaConfig) *RecaptchaProvider {
	return newRecaptcha(TypeRecaptchaV3, cfg)
}

// NewRecaptchaV2 creates the checkbox variant.
func NewRecaptchaV2(cfg RecaptchaConfig) *RecaptchaProvider {
	return newRecaptcha(TypeRecaptchaV2, cfg)
}

func newRecaptcha(typ ProviderType, cfg RecaptchaConfig) *RecaptchaProvider {
	if cfg.ScriptURL == "" {
		cfg.ScriptURL = DefaultScriptURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RecaptchaProvider{
		typ:       typ,
		siteKey:   cfg.SiteKey,
		scriptURL: cfg.ScriptURL,
		client:    cfg.Client,
	}
}

// Type implements [Provider].
func (p *RecaptchaProvider) Type() ProviderType { return p.typ }

// ID implements [Provider]: the site key the widget renders with.
func (p *RecaptchaProvider) ID() string { return p.siteKey }

// Configured reports whether a site key is present. Unconfigured variants are
// excluded from the chain instead of failing at runtime.
func (p *RecaptchaProvider) Configured() bool { return p.siteKey != "" }

// Initialize implements [Provider]: probes the script endpoint within the
// orchestrator's deadline. Transport errors and server-side failures both
// count as unavailable and trigger fallback.
func (p *RecaptchaProvider) Initialize(ctx context.Context, emit EmitFunc) error {
	if !p.Configured() {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.scriptURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: script endpoint returned %d", ErrUnavailable, resp.StatusCode)
	}

	p.emit = emit
	return nil
}

// Complete forwards the token the widget produced client-side. The provider
// does not inspect it; the server-side [Verifier] decides what it is worth.
func (p *RecaptchaProvider) Complete(token string) {
	if p.emit == nil || token == "" {
		return
	}
	p.emit(token)
}
