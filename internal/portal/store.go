// Package portal signs customers in with one-time email codes and keeps
// their sessions server-side in Redis.
package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crmdesk/crm-service/internal/domain"
)

// ErrNotFound is returned for missing or expired codes and sessions.
var ErrNotFound = errors.New("portal: not found")

// Store persists pending codes and live sessions. Entries expire on their own.
type Store interface {
	// SaveCode stores a hashed code for email and resets its attempt counter.
	SaveCode(ctx context.Context, email, hash string, ttl time.Duration) error
	LoadCode(ctx context.Context, email string) (hash string, attempts int, err error)
	IncrAttempts(ctx context.Context, email string) (int, error)
	DeleteCode(ctx context.Context, email string) error
	// CountIssued records one more code issued for email and returns how many
	// were issued in the current window. The window starts with the first code.
	CountIssued(ctx context.Context, email string, window time.Duration) (int, error)
	SaveSession(ctx context.Context, session domain.PortalSession, ttl time.Duration) error
	LoadSession(ctx context.Context, id string) (*domain.PortalSession, error)
	DeleteSession(ctx context.Context, id string) error
}

const (
	codeKeyPrefix    = "portal:code:"
	issuedKeyPrefix  = "portal:issued:"
	sessionKeyPrefix = "portal:session:"

	fieldHash     = "hash"
	fieldAttempts = "attempts"
)

// RedisStore keeps portal state in Redis hashes and strings.
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps a go-redis client.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func codeKey(email string) string { return codeKeyPrefix + email }

func issuedKey(email string) string { return issuedKeyPrefix + email }

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (s *RedisStore) SaveCode(ctx context.Context, email, hash string, ttl time.Duration) error {
	key := codeKey(email)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldHash, hash, fieldAttempts, 0)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save portal code: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadCode(ctx context.Context, email string) (string, int, error) {
	var entry struct {
		Hash     string `redis:"hash"`
		Attempts int    `redis:"attempts"`
	}
	res := s.client.HGetAll(ctx, codeKey(email))
	if err := res.Err(); err != nil {
		return "", 0, fmt.Errorf("load portal code: %w", err)
	}
	if len(res.Val()) == 0 {
		return "", 0, ErrNotFound
	}
	if err := res.Scan(&entry); err != nil {
		return "", 0, fmt.Errorf("scan portal code: %w", err)
	}
	return entry.Hash, entry.Attempts, nil
}

func (s *RedisStore) IncrAttempts(ctx context.Context, email string) (int, error) {
	n, err := s.client.HIncrBy(ctx, codeKey(email), fieldAttempts, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("count portal attempt: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) DeleteCode(ctx context.Context, email string) error {
	return s.client.Del(ctx, codeKey(email)).Err()
}

func (s *RedisStore) CountIssued(ctx context.Context, email string, window time.Duration) (int, error) {
	key := issuedKey(email)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("count portal codes: %w", err)
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("expire portal code counter: %w", err)
		}
	}
	return int(n), nil
}

func (s *RedisStore) SaveSession(ctx context.Context, session domain.PortalSession, ttl time.Duration) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, sessionKey(session.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("save portal session: %w", err)
	}
	return nil
}

func (s *RedisStore) LoadSession(ctx context.Context, id string) (*domain.PortalSession, error) {
	payload, err := s.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load portal session: %w", err)
	}
	var session domain.PortalSession
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("decode portal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}
