package lock

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	dErrors "carreg/pkg/domain-errors"
	"carreg/pkg/platform/sentinel"
)

const (
	keyPrefix          = "carreg:lock:vin:"
	defaultTTL         = 30 * time.Second
	defaultPollBackoff = 25 * time.Millisecond
)

// releaseScript deletes a lock only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// refreshScript extends a lock only while it still carries our token.
var refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker shares vehicle locks across instances. Each key is a SET NX
// with a TTL so a crashed holder cannot block a VIN forever. A live holder
// keeps extending the TTL until it releases.
type RedisLocker struct {
	client  *redis.Client
	ttl     time.Duration
	backoff time.Duration
	timeout time.Duration
}

type RedisOption func(*RedisLocker)

// WithTTL sets how long an unreleased lock survives.
func WithTTL(ttl time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

func WithPollBackoff(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.backoff = d
		}
	}
}

func WithRedisAcquireTimeout(d time.Duration) RedisOption {
	return func(l *RedisLocker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func NewRedisLocker(client *redis.Client, opts ...RedisOption) *RedisLocker {
	l := &RedisLocker{
		client:  client,
		ttl:     defaultTTL,
		backoff: defaultPollBackoff,
		timeout: defaultAcquireTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Acquire takes every key in sorted order, polling until ctx expires.
func (l *RedisLocker) Acquire(ctx context.Context, keys []string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock acquisition aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	token := uuid.NewString()
	sorted := sortedUnique(keys)
	held := make([]string, 0, len(sorted))
	releaseHeld := func() {
		// Release must work after the caller's ctx is gone.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for _, key := range held {
			_ = releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err()
		}
		held = held[:0]
	}

	for _, key := range sorted {
		redisKey := keyPrefix + key
		if err := l.acquireOne(ctx, redisKey, token); err != nil {
			releaseHeld()
			return nil, err
		}
		held = append(held, redisKey)
	}

	stop := make(chan struct{})
	go l.keepAlive(stop, append([]string(nil), held...), token)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			releaseHeld()
		})
	}, nil
}

// keepAlive pushes the expiry of keys forward every third of the TTL until
// stop closes. A key that changed owner is left alone.
func (l *RedisLocker) keepAlive(stop <-chan struct{}, keys []string, token string) {
	ticker := time.NewTicker(l.refreshInterval())
	defer ticker.Stop()
	ttl := strconv.FormatInt(l.ttl.Milliseconds(), 10)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		refreshCtx, cancel := context.WithTimeout(context.Background(), l.refreshInterval())
		for _, key := range keys {
			_ = refreshScript.Run(refreshCtx, l.client, []string{key}, token, ttl).Err()
		}
		cancel()
	}
}

func (l *RedisLocker) refreshInterval() time.Duration {
	if d := l.ttl / 3; d > 0 {
		return d
	}
	return time.Millisecond
}

func (l *RedisLocker) acquireOne(ctx context.Context, key, token string) error {
	ticker := time.NewTicker(l.backoff)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			return dErrors.Wrap(errors.Join(sentinel.ErrUnavailable, err), dErrors.CodeUnavailable, "lock store unavailable")
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return dErrors.Wrap(errors.Join(sentinel.ErrLockHeld, ctx.Err()), dErrors.CodeTimeout, "timed out waiting for vehicle lock")
		case <-ticker.C:
		}
	}
}

func sortedUnique(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
