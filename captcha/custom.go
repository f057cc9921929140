package captcha

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/guardkit/guardkit/challenge"
)

// CustomProvider is the terminal, self-hosted fallback. It is always available
// as long as the challenge service is, and keeps a single live challenge per
// verification attempt.
//
// The provider tracks typed input against the expected answer shape: a token
// (the typed answer itself) is emitted only once input fully matches the
// format, and an empty token is emitted the instant input becomes malformed
// again, invalidating prior verification.
type CustomProvider struct {
	service *challenge.Service

	mu      sync.Mutex
	current *challenge.Issued
	emit    EmitFunc
	emitted bool
}

// NewCustomProvider creates the self-hosted provider over the given service.
func NewCustomProvider(service *challenge.Service) *CustomProvider {
	return &CustomProvider{service: service}
}

// Type implements [Provider].
func (p *CustomProvider) Type() ProviderType { return TypeCustom }

// ID implements [Provider]: the current challenge id, which the form submits
// as captchaId alongside the token.
func (p *CustomProvider) ID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return ""
	}
	return p.current.ID
}

// Current returns the live challenge, nil before initialization.
func (p *CustomProvider) Current() *challenge.Issued {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Initialize implements [Provider]: issues the first challenge.
func (p *CustomProvider) Initialize(ctx context.Context, emit EmitFunc) error {
	issued, err := p.service.Issue(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.mu.Lock()
	p.current = issued
	p.emit = emit
	p.emitted = false
	p.mu.Unlock()

	return nil
}

// Reissue replaces the live challenge. This is the explicit retry path when
// the challenge fails to load or the user gives up on the current image; it
// invalidates anything emitted for the old challenge.
func (p *CustomProvider) Reissue(ctx context.Context) error {
	issued, err := p.service.Issue(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	p.mu.Lock()
	emit, wasEmitted := p.emit, p.emitted
	p.current = issued
	p.emitted = false
	p.mu.Unlock()

	if wasEmitted && emit != nil {
		emit("")
	}
	return nil
}

// ObserveInput feeds the current typed answer. Emission is edge-triggered:
// one token when input becomes well-formed, one empty token when it stops
// being well-formed.
func (p *CustomProvider) ObserveInput(text string) {
	wellFormed := p.wellFormed(text)

	p.mu.Lock()
	emit := p.emit
	var fire func()
	switch {
	case wellFormed && !p.emitted:
		p.emitted = true
		fire = func() { emit(text) }
	case !wellFormed && p.emitted:
		p.emitted = false
		fire = func() { emit("") }
	}
	p.mu.Unlock()

	if fire != nil && emit != nil {
		fire()
	}
}

func (p *CustomProvider) wellFormed(text string) bool {
	if len(text) != p.service.AnswerLength() {
		return false
	}
	for _, r := range strings.ToUpper(text) {
		if !strings.ContainsRune(challenge.Alphabet, r) {
			return false
		}
	}
	return true
}
