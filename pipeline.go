package guardkit

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/guardkit/guardkit/captcha"
	"github.com/guardkit/guardkit/challenge"
	"github.com/guardkit/guardkit/csrf"
	internalaudit "github.com/guardkit/guardkit/internal/audit"
	"github.com/guardkit/guardkit/internal/rate"
)

// RateResult is the outcome of one rate-limit check.
type RateResult = rate.Result

// Pipeline defines a public type used by guardkit APIs.
//
// Pipeline instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Pipeline struct {
	config         Config
	validator      *csrf.Validator
	limiter        *rate.Limiter
	challenges     *challenge.Service
	verifier       *captcha.Verifier
	audit          *internalaudit.Dispatcher
	metrics        *Metrics
	httpClient     *http.Client
	sensitivePaths []string
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) Close() {
	if p == nil {
		return
	}
	if p.audit != nil {
		p.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) AuditDropped() uint64 {
	if p == nil || p.audit == nil {
		return 0
	}
	return p.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) MetricsSnapshot() MetricsSnapshot {
	if p == nil || p.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return p.metrics.Snapshot()
}

// Metrics exposes the live metrics registry for exporters.
//
// Metrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) Metrics() *Metrics {
	if p == nil {
		return nil
	}
	return p.metrics
}

func (p *Pipeline) metricInc(id MetricID) {
	if p == nil || p.metrics == nil {
		return
	}
	p.metrics.Inc(id)
}

// CSRFValidator exposes the configured double-submit validator.
//
// CSRFValidator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) CSRFValidator() *csrf.Validator {
	if p == nil {
		return nil
	}
	return p.validator
}

// Challenges exposes the self-hosted challenge service.
//
// Challenges does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) Challenges() *challenge.Service {
	if p == nil {
		return nil
	}
	return p.challenges
}

// GenerateCSRFToken mints a fresh double-submit secret. The caller sets it as
// the CSRF cookie; clients echo it back in the request header.
//
// GenerateCSRFToken may return an error when input validation, dependency calls, or security checks fail.
// GenerateCSRFToken does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) GenerateCSRFToken() (string, error) {
	if p == nil || p.validator == nil {
		return "", ErrPipelineNotReady
	}
	return p.validator.GenerateTokenPair()
}

// ValidateCSRF checks a cookie/header token pair and records the outcome.
//
// ValidateCSRF may return an error when input validation, dependency calls, or security checks fail.
// ValidateCSRF does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) ValidateCSRF(ctx context.Context, cookieToken, headerToken string) error {
	if p == nil || p.validator == nil {
		return ErrPipelineNotReady
	}

	err := p.validator.Validate(cookieToken, headerToken)
	if err == nil {
		p.metricInc(MetricCSRFPassed)
		return nil
	}

	method, path := requestInfoFromContext(ctx)
	ip := clientIPFromContext(ctx)

	var sentinel error
	switch {
	case errors.Is(err, csrf.ErrTokenMissing):
		sentinel = ErrCSRFMissing
		p.metricInc(MetricCSRFMissing)
	default:
		sentinel = ErrCSRFMismatch
		p.metricInc(MetricCSRFMismatch)
	}

	p.emitAudit(ctx, auditEventCSRFRejected, false, method, path, ip, "", "", sentinel, nil)

	return sentinel
}

// CSRFExempt reports whether path is exempt from double-submit validation and
// counts the exemption when it is.
//
// CSRFExempt does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) CSRFExempt(path string) bool {
	if p == nil || p.validator == nil {
		return false
	}
	if !p.validator.IsExempt(path) {
		return false
	}
	p.metricInc(MetricCSRFExempt)
	return true
}

// BearerBypassAllowed reports whether an Authorization header carries a valid
// bearer token that exempts the request from the double-submit check. A bare
// "Bearer" prefix is never enough: the token must verify against the
// configured HMAC key.
//
// BearerBypassAllowed may return an error when input validation, dependency calls, or security checks fail.
// BearerBypassAllowed does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) BearerBypassAllowed(ctx context.Context, authorization string) bool {
	if p == nil || !p.config.CSRF.BearerBypass {
		return false
	}

	token, ok := strings.CutPrefix(authorization, "Bearer ")
	if !ok || token == "" {
		return false
	}

	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		return p.config.CSRF.BearerHMACKey, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return false
	}

	p.metricInc(MetricCSRFBearerBypass)

	method, path := requestInfoFromContext(ctx)
	p.emitAudit(ctx, auditEventCSRFBearerBypass, true, method, path, clientIPFromContext(ctx), "", "", nil, nil)

	return true
}

// IsSensitivePath reports whether path falls under the strict auth-family
// rate ceiling.
//
// IsSensitivePath does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) IsSensitivePath(path string) bool {
	if p == nil {
		return false
	}

	normalized := csrf.NormalizePath(path)
	for _, s := range p.sensitivePaths {
		if normalized == s || strings.HasPrefix(normalized, s+"/") {
			return true
		}
	}
	return false
}

// CheckRate counts the request against the identifier's current window and
// reports whether it is within budget. Rejections are counted and audited;
// store failures surface as [ErrStoreUnavailable] so the caller chooses the
// failure mode.
//
// CheckRate may return an error when input validation, dependency calls, or security checks fail.
// CheckRate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) CheckRate(ctx context.Context, identifier string, sensitive bool) (RateResult, error) {
	if p == nil || p.limiter == nil {
		return RateResult{}, ErrPipelineNotReady
	}

	result, err := p.limiter.Check(ctx, identifier, sensitive)
	if err != nil {
		return RateResult{}, errors.Join(ErrStoreUnavailable, err)
	}

	if result.Allowed {
		p.metricInc(MetricRateAllowed)
		return result, nil
	}

	p.metricInc(MetricRateLimited)
	method, path := requestInfoFromContext(ctx)
	p.emitAudit(ctx, auditEventRateLimitTriggered, false, method, path, clientIPFromContext(ctx), identifier, "", ErrRateLimited, func() map[string]string {
		scope := "api"
		if sensitive {
			scope = "auth"
		}
		return map[string]string{
			"scope": scope,
		}
	})

	return result, nil
}

// IssueChallenge creates a single-use image challenge.
//
// IssueChallenge may return an error when input validation, dependency calls, or security checks fail.
// IssueChallenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) IssueChallenge(ctx context.Context) (*challenge.Issued, error) {
	if p == nil || p.challenges == nil {
		return nil, ErrPipelineNotReady
	}

	issued, err := p.challenges.Issue(ctx)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	p.metricInc(MetricChallengeIssued)
	p.emitAudit(ctx, auditEventChallengeIssued, true, "", "", clientIPFromContext(ctx), "", string(captcha.TypeCustom), nil, nil)

	return issued, nil
}

// VerifyChallenge consumes a challenge and checks the answer. The challenge is
// gone after this call regardless of outcome.
//
// VerifyChallenge may return an error when input validation, dependency calls, or security checks fail.
// VerifyChallenge does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) VerifyChallenge(ctx context.Context, id, answer string) error {
	if p == nil || p.challenges == nil {
		return ErrPipelineNotReady
	}

	ok, err := p.challenges.Verify(ctx, id, answer)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !ok {
		p.metricInc(MetricChallengeRejected)
		p.emitAudit(ctx, auditEventChallengeRejected, false, "", "", clientIPFromContext(ctx), "", string(captcha.TypeCustom), ErrCaptchaRejected, nil)
		return ErrCaptchaRejected
	}

	p.metricInc(MetricChallengeVerified)
	p.emitAudit(ctx, auditEventChallengeVerified, true, "", "", clientIPFromContext(ctx), "", string(captcha.TypeCustom), nil, nil)

	return nil
}

// VerifyCaptcha validates a submitted verification token for whichever
// provider produced it.
//
// VerifyCaptcha may return an error when input validation, dependency calls, or security checks fail.
// VerifyCaptcha does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) VerifyCaptcha(ctx context.Context, sub captcha.Submission) error {
	if p == nil || p.verifier == nil {
		return ErrPipelineNotReady
	}

	if p.metrics != nil && p.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() {
			p.metrics.Observe(MetricVerifyLatency, time.Since(start))
		}()
	}

	method, path := requestInfoFromContext(ctx)
	ip := clientIPFromContext(ctx)

	err := p.verifier.Verify(ctx, sub)
	if err == nil {
		p.metricInc(MetricCaptchaVerified)
		p.emitAudit(ctx, auditEventCaptchaVerified, true, method, path, ip, "", string(sub.Provider), nil, nil)
		return nil
	}

	var sentinel error
	switch {
	case errors.Is(err, captcha.ErrUnavailable), errors.Is(err, captcha.ErrNotConfigured):
		sentinel = ErrCaptchaUnavailable
		p.metricInc(MetricProviderUnavailable)
		p.emitAudit(ctx, auditEventProviderUnavailable, false, method, path, ip, "", string(sub.Provider), sentinel, nil)
	default:
		sentinel = ErrCaptchaRejected
		p.metricInc(MetricCaptchaRejected)
		p.emitAudit(ctx, auditEventCaptchaRejected, false, method, path, ip, "", string(sub.Provider), sentinel, nil)
	}

	return sentinel
}

// NewOrchestrator assembles the configured provider fallback chain and starts
// nothing: callers drive it with Start. The chain is built from configuration
// in standard order, score-based variant first, self-hosted challenge last.
//
// NewOrchestrator may return an error when input validation, dependency calls, or security checks fail.
// NewOrchestrator does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (p *Pipeline) NewOrchestrator(onVerify captcha.VerifiedFunc) (*captcha.Orchestrator, error) {
	if p == nil {
		return nil, ErrPipelineNotReady
	}

	var v3, v2 *captcha.RecaptchaProvider
	if p.config.Captcha.V3SiteKey != "" {
		v3 = captcha.NewRecaptchaV3(captcha.RecaptchaConfig{
			SiteKey:   p.config.Captcha.V3SiteKey,
			ScriptURL: p.config.Captcha.ScriptURL,
			Client:    p.httpClient,
		})
	}
	if p.config.Captcha.V2SiteKey != "" {
		v2 = captcha.NewRecaptchaV2(captcha.RecaptchaConfig{
			SiteKey:   p.config.Captcha.V2SiteKey,
			ScriptURL: p.config.Captcha.ScriptURL,
			Client:    p.httpClient,
		})
	}
	custom := captcha.NewCustomProvider(p.challenges)

	chain := captcha.BuildChain(v3, v2, custom)

	orch, err := captcha.NewOrchestrator(chain, captcha.OrchestratorConfig{
		Default:     p.config.Captcha.DefaultProvider,
		InitTimeout: p.config.Captcha.InitTimeout,
		OnFallback: func(from, to captcha.ProviderType) {
			p.metricInc(MetricCaptchaFallback)
			p.emitAudit(context.Background(), auditEventCaptchaFallback, false, "", "", "", "", string(from), nil, func() map[string]string {
				return map[string]string{
					"fallback_to": string(to),
				}
			})
		},
	}, onVerify)
	if err != nil {
		return nil, err
	}

	return orch, nil
}
