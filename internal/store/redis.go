package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const challengeRecordVersion1 = 1

// Redis implements [CounterStore] and [ChallengeStore] on a Redis backend for
// multi-instance deployments: atomic INCR with conditional EXPIRE for windows,
// SET-with-TTL plus GETDEL for single-use challenge records.
type Redis struct {
	client        redis.UniversalClient
	counterPrefix string
	recordPrefix  string
}

// NewRedis creates a Redis store. Empty prefixes default to "gw" and "gc".
func NewRedis(client redis.UniversalClient, counterPrefix, recordPrefix string) *Redis {
	if counterPrefix == "" {
		counterPrefix = "gw"
	}
	if recordPrefix == "" {
		recordPrefix = "gc"
	}
	return &Redis{
		client:        client,
		counterPrefix: counterPrefix,
		recordPrefix:  recordPrefix,
	}
}

func (r *Redis) counterKey(key string) string {
	return r.counterPrefix + ":" + key
}

func (r *Redis) recordKey(id string) string {
	return r.recordPrefix + ":" + id
}

// Incr implements [CounterStore] with fixed-window semantics: the TTL is set
// only for the first hit in a window, so the key itself is the window.
func (r *Redis) Incr(ctx context.Context, key string, window time.Duration) (Window, error) {
	k := r.counterKey(key)

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return Window{Count: count, ResetAt: time.Now().Add(window)}, nil
	}

	ttl, err := r.client.PTTL(ctx, k).Result()
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if ttl <= 0 {
		// Counter without expiry (lost between INCR and EXPIRE); restore it.
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return Window{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		ttl = window
	}

	return Window{Count: count, ResetAt: time.Now().Add(ttl)}, nil
}

// Put implements [ChallengeStore].
func (r *Redis) Put(ctx context.Context, id string, record ChallengeRecord, ttl time.Duration) error {
	encoded, err := encodeChallengeRecord(record)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.recordKey(id), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Consume implements [ChallengeStore]. GETDEL makes removal atomic with the
// read, so concurrent verify calls cannot both observe the record.
func (r *Redis) Consume(ctx context.Context, id string) (ChallengeRecord, error) {
	data, err := r.client.GetDel(ctx, r.recordKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ChallengeRecord{}, ErrNotFound
		}
		return ChallengeRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return decodeChallengeRecord(data)
}

func encodeChallengeRecord(record ChallengeRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(challengeRecordVersion1)
	buf.Write(record.AnswerHash[:])

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func decodeChallengeRecord(data []byte) (ChallengeRecord, error) {
	var record ChallengeRecord

	reader := bytes.NewReader(data)
	version, err := reader.ReadByte()
	if err != nil {
		return record, err
	}
	if version != challengeRecordVersion1 {
		return record, errors.New("invalid challenge record version")
	}

	if _, err := io.ReadFull(reader, record.AnswerHash[:]); err != nil {
		return record, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return record, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return record, err
	}

	return record, nil
}
