package store

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepThreshold is the entry count past which Incr opportunistically
// removes expired windows. Sweeps are amortized: the common path stays O(1).
const DefaultSweepThreshold = 10_000

type memoryWindow struct {
	count   int64
	resetAt time.Time
}

type memoryChallenge struct {
	record    ChallengeRecord
	expiresAt time.Time
}

// Memory is the in-process implementation of [CounterStore] and
// [ChallengeStore] for single-instance deployments. All state is
// mutex-guarded; nothing survives a restart.
type Memory struct {
	sweepThreshold int

	mu         sync.Mutex
	windows    map[string]memoryWindow
	challenges map[string]memoryChallenge

	now func() time.Time
}

// NewMemory creates a memory store. sweepThreshold <= 0 selects
// [DefaultSweepThreshold].
func NewMemory(sweepThreshold int) *Memory {
	if sweepThreshold <= 0 {
		sweepThreshold = DefaultSweepThreshold
	}
	return &Memory{
		sweepThreshold: sweepThreshold,
		windows:        make(map[string]memoryWindow),
		challenges:     make(map[string]memoryChallenge),
		now:            time.Now,
	}
}

// Incr implements [CounterStore].
func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (Window, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[key]
	if !ok || now.After(w.resetAt) {
		// Elapsed windows are replaced wholesale, never merged.
		w = memoryWindow{count: 1, resetAt: now.Add(window)}
	} else {
		w.count++
	}
	m.windows[key] = w

	if len(m.windows) > m.sweepThreshold {
		m.sweepLocked(now)
	}

	return Window{Count: w.count, ResetAt: w.resetAt}, nil
}

func (m *Memory) sweepLocked(now time.Time) {
	for k, w := range m.windows {
		if now.After(w.resetAt) {
			delete(m.windows, k)
		}
	}
	for id, c := range m.challenges {
		if now.After(c.expiresAt) {
			delete(m.challenges, id)
		}
	}
}

// Put implements [ChallengeStore]. Expired records are otherwise reclaimed
// only on Consume, so Put sweeps past the threshold too; issuance is the one
// path an anonymous client can grow the table through.
func (m *Memory) Put(_ context.Context, id string, record ChallengeRecord, ttl time.Duration) error {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.challenges[id] = memoryChallenge{
		record:    record,
		expiresAt: now.Add(ttl),
	}

	if len(m.challenges) > m.sweepThreshold {
		m.sweepLocked(now)
	}
	return nil
}

// Consume implements [ChallengeStore]. Destructive read: the record is gone
// after the first call whatever the verification outcome.
func (m *Memory) Consume(_ context.Context, id string) (ChallengeRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.challenges[id]
	if !ok {
		return ChallengeRecord{}, ErrNotFound
	}
	delete(m.challenges, id)
	return c.record, nil
}

// Len reports the current number of live counter windows. Test hook.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
