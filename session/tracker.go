package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrNotFound reports a refresh token hash that is not registered for the
	// user: either it was never issued, it expired, or it was rotated out and
	// is now being replayed.
	ErrNotFound = errors.New("refresh session not found")
	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// HashToken digests a raw refresh token for storage and lookup.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Tracker registers refresh token hashes per user. All operations are safe
// for concurrent use.
type Tracker struct {
	redis  redis.UniversalClient
	prefix string
}

// NewTracker creates a Tracker with the given key prefix.
func NewTracker(redisClient redis.UniversalClient, prefix string) *Tracker {
	if prefix == "" {
		prefix = "svcwatch"
	}
	return &Tracker{redis: redisClient, prefix: prefix}
}

func (t *Tracker) tokenKey(userID, hash string) string {
	return t.prefix + ":rt:" + userID + ":" + hash
}

func (t *Tracker) indexKey(userID string) string {
	return t.prefix + ":rtu:" + userID
}

// rotateScript atomically swaps the old hash for the new one. Returns 0 when
// the old hash is not registered, which the caller must treat as reuse.
var rotateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('SREM', KEYS[3], ARGV[1])
redis.call('SET', KEYS[2], ARGV[3], 'EX', ARGV[4])
redis.call('SADD', KEYS[3], ARGV[2])
redis.call('EXPIRE', KEYS[3], ARGV[4])
return 1
`)

// Save registers a freshly issued refresh token hash for the user.
func (t *Tracker) Save(ctx context.Context, userID, hash string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}

	_, err := t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, t.tokenKey(userID, hash), time.Now().Unix(), time.Duration(seconds)*time.Second)
		pipe.SAdd(ctx, t.indexKey(userID), hash)
		pipe.Expire(ctx, t.indexKey(userID), time.Duration(seconds)*time.Second)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Rotate atomically replaces oldHash with newHash. Returns [ErrNotFound]
// when oldHash is not registered; the caller decides whether that means
// expiry or replay.
func (t *Tracker) Rotate(ctx context.Context, userID, oldHash, newHash string, ttl time.Duration) error {
	seconds := int64(ttl / time.Second)
	if seconds <= 0 {
		seconds = 1
	}

	keys := []string{
		t.tokenKey(userID, oldHash),
		t.tokenKey(userID, newHash),
		t.indexKey(userID),
	}
	result, err := rotateScript.Run(ctx, t.redis, keys, oldHash, newHash, time.Now().Unix(), seconds).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if result == 0 {
		return ErrNotFound
	}
	return nil
}

// IsActive reports whether the hash is currently registered for the user.
func (t *Tracker) IsActive(ctx context.Context, userID, hash string) (bool, error) {
	n, err := t.redis.Exists(ctx, t.tokenKey(userID, hash)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Revoke drops a single refresh token hash. Unknown hashes are a no-op.
func (t *Tracker) Revoke(ctx context.Context, userID, hash string) error {
	_, err := t.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, t.tokenKey(userID, hash))
		pipe.SRem(ctx, t.indexKey(userID), hash)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// RevokeAll drops every registered refresh token for the user. Returns the
// number of tokens revoked. Used on password change, TOTP state change, and
// replay detection.
func (t *Tracker) RevokeAll(ctx context.Context, userID string) (int, error) {
	hashes, err := t.redis.SMembers(ctx, t.indexKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, t.tokenKey(userID, h))
	}
	keys = append(keys, t.indexKey(userID))

	if err := t.redis.Del(ctx, keys...).Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return len(hashes), nil
}

// Active returns the number of live refresh tokens for the user. Index
// entries whose token key has expired are not counted.
func (t *Tracker) Active(ctx context.Context, userID string) (int, error) {
	hashes, err := t.redis.SMembers(ctx, t.indexKey(userID)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	count := 0
	for _, h := range hashes {
		n, err := t.redis.Exists(ctx, t.tokenKey(userID, h)).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
		if n > 0 {
			count++
		}
	}
	return count, nil
}
