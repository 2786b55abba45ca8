// internal/lock/redis_lock.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned by Unlock when the token expired or was never held.
var ErrNotHeld = errors.New("lock: token no longer held")

// Token proves ownership of a key until it expires or is unlocked.
type Token struct {
	Key   string
	Value string
}

// Locker hands out short-lived exclusive tokens scoped to a key.
type Locker interface {
	TryLock(ctx context.Context, key string) (Token, bool, error)
	Unlock(ctx context.Context, t Token) error
}

// TokenLock is a single-attempt Redis lock. A contended key means another process is
// already doing the guarded work, so callers never wait for it. The TTL bounds how
// long a crashed holder keeps the key.
type TokenLock struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewTokenLock(rdb redis.Cmdable, ttl time.Duration) *TokenLock {
	return &TokenLock{rdb: rdb, ttl: ttl}
}

// TryLock claims key with a fresh token. ok is false when someone else holds it.
func (l *TokenLock) TryLock(ctx context.Context, key string) (Token, bool, error) {
	t := Token{Key: key, Value: uuid.NewString()}
	ok, err := l.rdb.SetNX(ctx, key, t.Value, l.ttl).Result()
	if err != nil {
		return Token{}, false, fmt.Errorf("lock %s: %w", key, err)
	}
	if !ok {
		return Token{}, false, nil
	}
	return t, true, nil
}

// Unlock frees the key if it still carries t. A token that lapsed is ErrNotHeld.
func (l *TokenLock) Unlock(ctx context.Context, t Token) error {
	if t.Key == "" || t.Value == "" {
		return ErrNotHeld
	}
	n, err := unlockLua.Run(ctx, l.rdb, []string{t.Key}, t.Value).Int()
	if err != nil {
		return fmt.Errorf("unlock %s: %w", t.Key, err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

var unlockLua = redis.NewScript(`
if redis.call("get", KEYS[1]) ~= ARGV[1] then return 0 end
redis.call("del", KEYS[1])
return 1
`)
