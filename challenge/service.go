package challenge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/guardkit/guardkit/internal/secure"
	"github.com/guardkit/guardkit/internal/store"
)

// Alphabet is the challenge character set. Ambiguous glyphs (O/0, I/1) are
// excluded so rendered answers are unambiguous to a human reader.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// DefaultAnswerLength is an exported constant or variable used by the challenge service.
const DefaultAnswerLength = 6

// DefaultTTL is an exported constant or variable used by the challenge service.
const DefaultTTL = 5 * time.Minute

// ErrBackend is an exported constant or variable used by the challenge service.
var ErrBackend = errors.New("challenge backend unavailable")

// Config holds challenge service tuning parameters. Zero values select the
// defaults.
type Config struct {
	TTL          time.Duration
	AnswerLength int
	ImageWidth   int
	ImageHeight  int
}

// Issued is the client-facing view of a fresh challenge. The answer never
// leaves the server except rendered into the image.
type Issued struct {
	ID          string    `json:"captchaId"`
	ImageBase64 string    `json:"image"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Service issues and verifies single-use image challenges over a pluggable
// challenge store. Safe for concurrent use.
type Service struct {
	challenges store.ChallengeStore
	config     Config

	now func() time.Time
}

// NewService creates a [Service] over the given store.
func NewService(challenges store.ChallengeStore, cfg Config) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.AnswerLength <= 0 {
		cfg.AnswerLength = DefaultAnswerLength
	}
	if cfg.ImageWidth <= 0 {
		cfg.ImageWidth = defaultImageWidth
	}
	if cfg.ImageHeight <= 0 {
		cfg.ImageHeight = defaultImageHeight
	}
	return &Service{
		challenges: challenges,
		config:     cfg,
		now:        time.Now,
	}
}

// AnswerLength returns the expected answer length; the custom provider uses it
// to track typed-input shape client-side.
func (s *Service) AnswerLength() int { return s.config.AnswerLength }

// TTL returns the configured challenge lifetime.
func (s *Service) TTL() time.Duration { return s.config.TTL }

// Issue mints a new challenge: random answer, rendered image payload, hashed
// expected answer stored with a TTL.
func (s *Service) Issue(ctx context.Context) (*Issued, error) {
	answer, err := secure.RandomText(s.config.AnswerLength, Alphabet)
	if err != nil {
		return nil, err
	}

	image, err := renderImage(answer, s.config.ImageWidth, s.config.ImageHeight)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := now.Add(s.config.TTL)
	record := store.ChallengeRecord{
		AnswerHash: secure.HashAnswer(answer),
		IssuedAt:   now.Unix(),
		ExpiresAt:  expiresAt.Unix(),
	}

	id := uuid.NewString()
	if err := s.challenges.Put(ctx, id, record, s.config.TTL); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	return &Issued{
		ID:          id,
		ImageBase64: image,
		ExpiresAt:   expiresAt,
	}, nil
}

// Verify consumes the challenge and compares the candidate answer. False for
// unknown ids, repeated verifies, expired challenges, and wrong answers alike;
// the error return is reserved for backend failures.
func (s *Service) Verify(ctx context.Context, id, candidate string) (bool, error) {
	if id == "" {
		return false, nil
	}

	record, err := s.challenges.Consume(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrBackend, err)
	}

	// Expiry before comparison: a correct answer on a stale challenge fails.
	if s.now().Unix() > record.ExpiresAt {
		return false, nil
	}

	return secure.EqualHash(candidate, record.AnswerHash), nil
}
