package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is an exported constant or variable used by the defense pipeline stores.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is an exported constant or variable used by the defense pipeline stores.
	ErrUnavailable = errors.New("store unavailable")
)

// Window is the observable state of one fixed-window counter after an increment.
type Window struct {
	Count   int64
	ResetAt time.Time
}

// CounterStore increments fixed-window counters keyed by client identifier.
//
// Incr starts a fresh window with count 1 when no live window exists for key,
// otherwise increments the current window. Windows reset wholesale, never merge.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (Window, error)
}

// ChallengeRecord is the persisted form of an issued challenge. The answer is
// stored as a SHA-256 hash only.
type ChallengeRecord struct {
	AnswerHash [32]byte
	IssuedAt   int64
	ExpiresAt  int64
}

// ChallengeStore persists single-use challenge records with a TTL.
type ChallengeStore interface {
	Put(ctx context.Context, id string, record ChallengeRecord, ttl time.Duration) error

	// Consume removes and returns the record for id. The first call wins;
	// any later call returns ErrNotFound. Expiry of the returned record is
	// the caller's check: a consumed-but-expired record must still fail.
	Consume(ctx context.Context, id string) (ChallengeRecord, error)
}
