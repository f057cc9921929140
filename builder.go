package guardkit

import (
	"errors"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/guardkit/guardkit/captcha"
	"github.com/guardkit/guardkit/challenge"
	"github.com/guardkit/guardkit/csrf"
	internalaudit "github.com/guardkit/guardkit/internal/audit"
	"github.com/guardkit/guardkit/internal/rate"
	"github.com/guardkit/guardkit/internal/store"
)

// Builder defines a public type used by guardkit APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	counters       store.CounterStore
	challengeStore store.ChallengeStore

	auditSink  AuditSink
	httpClient *http.Client

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithCounterStore overrides the rate-limit counter backend. Takes precedence
// over WithRedis for counters.
//
// WithCounterStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCounterStore(s store.CounterStore) *Builder {
	b.counters = s
	return b
}

// WithChallengeStore overrides the challenge record backend. Takes precedence
// over WithRedis for challenges.
//
// WithChallengeStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithChallengeStore(s store.ChallengeStore) *Builder {
	b.challengeStore = s
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithHTTPClient sets the client used for outbound CAPTCHA verification calls.
//
// WithHTTPClient does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithHTTPClient(client *http.Client) *Builder {
	b.httpClient = client
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Pipeline, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- STORES --------
	counters := b.counters
	challenges := b.challengeStore

	if b.redis != nil {
		rs := store.NewRedis(b.redis, "gw", "gc")
		if counters == nil {
			counters = rs
		}
		if challenges == nil {
			challenges = rs
		}
	}
	if counters == nil || challenges == nil {
		mem := store.NewMemory(cfg.RateLimit.SweepThreshold)
		if counters == nil {
			counters = mem
		}
		if challenges == nil {
			challenges = mem
		}
	}

	httpClient := b.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Captcha.HTTPTimeout}
	}

	// -------- SENSITIVE PATH TABLE --------
	sensitive := make([]string, 0, len(cfg.RateLimit.SensitivePaths))
	for _, p := range cfg.RateLimit.SensitivePaths {
		if n := csrf.NormalizePath(p); n != "" {
			sensitive = append(sensitive, n)
		}
	}

	challengeService := challenge.NewService(challenges, challenge.Config{
		TTL:          cfg.Challenge.TTL,
		AnswerLength: cfg.Challenge.AnswerLength,
		ImageWidth:   cfg.Challenge.ImageWidth,
		ImageHeight:  cfg.Challenge.ImageHeight,
	})

	pipeline := &Pipeline{
		config: cfg,
		validator: csrf.NewValidator(csrf.Config{
			CookieName:  cfg.CSRF.CookieName,
			HeaderName:  cfg.CSRF.HeaderName,
			ExemptPaths: cfg.CSRF.ExemptPaths,
		}),
		limiter: rate.New(counters, rate.Config{
			APIMaxRequests:  cfg.RateLimit.APIMaxRequests,
			APIWindow:       cfg.RateLimit.APIWindow,
			AuthMaxRequests: cfg.RateLimit.AuthMaxRequests,
			AuthWindow:      cfg.RateLimit.AuthWindow,
		}),
		challenges: challengeService,
		verifier: captcha.NewVerifier(captcha.VerifierConfig{
			V3Secret:  cfg.Captcha.V3Secret,
			V2Secret:  cfg.Captcha.V2Secret,
			VerifyURL: cfg.Captcha.VerifyURL,
			MinScore:  cfg.Captcha.MinScore,
			Client:    httpClient,
		}, challengeService),
		httpClient:     httpClient,
		sensitivePaths: sensitive,
	}

	pipeline.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)
	pipeline.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return pipeline, nil
}
