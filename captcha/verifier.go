package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guardkit/guardkit/challenge"
)

// DefaultVerifyURL is the reCAPTCHA siteverify endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// DefaultMinScore is the v3 score floor below which a token is rejected.
const DefaultMinScore = 0.5

// Submission is what forms attach alongside their normal payload when posting
// to a sensitive endpoint. ChallengeID is present only for the custom provider.
type Submission struct {
	Token       string       `json:"captchaToken"`
	ChallengeID string       `json:"captchaId,omitempty"`
	Provider    ProviderType `json:"captchaType"`
}

// VerifierConfig holds server-side verification settings.
type VerifierConfig struct {
	V3Secret  string
	V2Secret  string
	VerifyURL string
	MinScore  float64
	Client    *http.Client
}

// Verifier validates submitted verification tokens before business logic runs:
// remote siteverify calls for reCAPTCHA variants, single-use challenge
// consumption for the custom provider.
type Verifier struct {
	config     VerifierConfig
	client     *http.Client
	challenges *challenge.Service
}

// NewVerifier creates a [Verifier]. The challenge service may be nil when the
// custom provider is not deployed.
func NewVerifier(cfg VerifierConfig, challenges *challenge.Service) *Verifier {
	if cfg.VerifyURL == "" {
		cfg.VerifyURL = DefaultVerifyURL
	}
	if cfg.MinScore <= 0 {
		cfg.MinScore = DefaultMinScore
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Verifier{
		config:     cfg,
		client:     client,
		challenges: challenges,
	}
}

type siteverifyResponse struct {
	Success bool     `json:"success"`
	Score   float64  `json:"score"`
	Errors  []string `json:"error-codes"`
}

// Verify checks one submission. [ErrRejected] is the client-fixable outcome
// (retry with a fresh challenge); [ErrUnavailable] means the backend could not
// be asked and the caller should fall back, not blame the user.
func (v *Verifier) Verify(ctx context.Context, sub Submission) error {
	if sub.Token == "" {
		return ErrRejected
	}

	switch sub.Provider {
	case TypeCustom:
		return v.verifyChallenge(ctx, sub)
	case TypeRecaptchaV3:
		return v.verifyRemote(ctx, v.config.V3Secret, sub.Token, true)
	case TypeRecaptchaV2:
		return v.verifyRemote(ctx, v.config.V2Secret, sub.Token, false)
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrRejected, sub.Provider)
	}
}

func (v *Verifier) verifyChallenge(ctx context.Context, sub Submission) error {
	if v.challenges == nil {
		return ErrNotConfigured
	}

	ok, err := v.challenges.Verify(ctx, sub.ChallengeID, sub.Token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrRejected
	}
	return nil
}

func (v *Verifier) verifyRemote(ctx context.Context, secret, token string, scored bool) error {
	if secret == "" {
		return ErrNotConfigured
	}

	form := url.Values{}
	form.Set("secret", secret)
	form.Set("response", token)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.config.VerifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var decoded siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if !decoded.Success {
		return ErrRejected
	}
	if scored && decoded.Score < v.config.MinScore {
		return fmt.Errorf("%w: score %.2f below threshold", ErrRejected, decoded.Score)
	}
	return nil
}
