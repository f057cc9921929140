package captcha

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultInitTimeout bounds each provider's initialization; a provider that
// produces no ready signal within it is treated as failed and skipped.
const DefaultInitTimeout = 5 * time.Second

// VerifiedFunc receives the one opaque verification token the orchestrator
// exposes. An empty token revokes the previous one.
type VerifiedFunc func(token, providerID string, providerType ProviderType)

// OrchestratorConfig holds orchestrator tuning parameters.
type OrchestratorConfig struct {
	// Default selects the initial state; empty starts at the chain head.
	// Forms can override it per attempt.
	Default     ProviderType
	InitTimeout time.Duration

	// OnFallback is invoked after each downgrade, with the abandoned and the
	// newly active provider type. Called without the orchestrator lock held.
	OnFallback func(from, to ProviderType)
}

// Orchestrator walks an ordered provider chain, initializing each in turn and
// advancing on failure or timeout, until a provider is ready or the terminal
// provider fails too. It lives for the duration of one form submission attempt.
type Orchestrator struct {
	config   OrchestratorConfig
	onVerify VerifiedFunc

	mu       sync.Mutex
	chain    []Provider
	idx      int
	history  []ProviderType
	token    string
	verified bool
	ready    bool
}

// NewOrchestrator creates an orchestrator over the given chain. The chain is
// an explicit ordered list so adding a provider is a list edit, not new
// branching; the last entry is the terminal fallback.
func NewOrchestrator(chain []Provider, cfg OrchestratorConfig, onVerify VerifiedFunc) (*Orchestrator, error) {
	if len(chain) == 0 {
		return nil, errors.New("provider chain must not be empty")
	}
	if onVerify == nil {
		return nil, errors.New("onVerify callback required")
	}
	if cfg.InitTimeout <= 0 {
		cfg.InitTimeout = DefaultInitTimeout
	}

	idx := 0
	if cfg.Default != "" {
		found := false
		for i, p := range chain {
			if p.Type() == cfg.Default {
				idx, found = i, true
				break
			}
		}
		if !found {
			return nil, errors.New("default provider not in chain")
		}
	}

	return &Orchestrator{
		config:   cfg,
		onVerify: onVerify,
		chain:    chain,
		idx:      idx,
	}, nil
}

// Start initializes the active provider, falling back along the chain until a
// provider is ready. It returns [ErrUnavailable] only when the terminal
// provider also failed; callers then surface one consolidated "security check
// unavailable" message and offer [Retry].
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.startLocked(ctx)
}

func (o *Orchestrator) startLocked(ctx context.Context) error {
	for {
		provider := o.chain[o.idx]
		if err := o.initializeLocked(ctx, provider); err == nil {
			o.ready = true
			return nil
		}

		if o.idx == len(o.chain)-1 {
			o.ready = false
			return ErrUnavailable
		}
		o.advanceLocked()
	}
}

func (o *Orchestrator) initializeLocked(ctx context.Context, provider Provider) error {
	initCtx, cancel := context.WithTimeout(ctx, o.config.InitTimeout)
	defer cancel()
	return provider.Initialize(initCtx, o.emitFor(provider))
}

// advanceLocked moves to the next provider, recording the abandoned one and
// invalidating any token it emitted.
func (o *Orchestrator) advanceLocked() {
	abandoned := o.chain[o.idx]
	o.history = append(o.history, abandoned.Type())
	o.idx++
	next := o.chain[o.idx]
	o.invalidateLocked(abandoned)

	if cb := o.config.OnFallback; cb != nil {
		o.mu.Unlock()
		cb(abandoned.Type(), next.Type())
		o.mu.Lock()
	}
}

func (o *Orchestrator) invalidateLocked(abandoned Provider) {
	if o.token == "" && !o.verified {
		return
	}
	o.token = ""
	o.verified = false

	cb := o.onVerify
	o.mu.Unlock()
	cb("", abandoned.ID(), abandoned.Type())
	o.mu.Lock()
}

// ReportError signals a runtime failure of the active provider (script
// execution error, widget crash) and triggers the same fallback as an
// initialization failure.
func (o *Orchestrator) ReportError(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.idx == len(o.chain)-1 {
		// Terminal provider: no further fallback, callers reissue instead.
		// Whatever was verified before the failure is revoked the same way a
		// downgrade revokes it.
		o.ready = false
		o.invalidateLocked(o.chain[o.idx])
		return ErrUnavailable
	}
	o.advanceLocked()
	return o.startLocked(ctx)
}

// Retry re-initializes the active provider in place. This is the manual retry
// offered when even the terminal provider failed.
func (o *Orchestrator) Retry(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.initializeLocked(ctx, o.chain[o.idx]); err != nil {
		return err
	}
	o.ready = true
	return nil
}

// emitFor binds an EmitFunc to the provider it was handed to. Emissions from
// a provider that is no longer active are dropped: a widget completing late,
// after its provider was abandoned, must not re-verify the attempt.
func (o *Orchestrator) emitFor(provider Provider) EmitFunc {
	return func(token string) {
		o.mu.Lock()
		if o.chain[o.idx] != provider {
			o.mu.Unlock()
			return
		}
		o.token = token
		o.verified = token != ""
		cb := o.onVerify
		o.mu.Unlock()

		cb(token, provider.ID(), provider.Type())
	}
}

// State returns the active provider type.
func (o *Orchestrator) State() ProviderType {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain[o.idx].Type()
}

// Active returns the active provider.
func (o *Orchestrator) Active() Provider {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.chain[o.idx]
}

// History returns the provider types abandoned so far, in order.
func (o *Orchestrator) History() []ProviderType {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]ProviderType, len(o.history))
	copy(out, o.history)
	return out
}

// Verified reports whether a non-empty token is currently held.
func (o *Orchestrator) Verified() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.verified
}

// BuildChain assembles the standard fallback order from whatever is
// configured: v3 then v2 when their site keys exist, the custom provider
// always last. A missing v2 key therefore sends v3 failures straight to
// custom.
func BuildChain(v3, v2 *RecaptchaProvider, custom *CustomProvider) []Provider {
	var chain []Provider
	if v3 != nil && v3.Configured() {
		chain = append(chain, v3)
	}
	if v2 != nil && v2.Configured() {
		chain = append(chain, v2)
	}
	chain = append(chain, custom)
	return chain
}
