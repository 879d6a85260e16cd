// Package lock serialises registration work on overlapping vehicle sets.
package lock

import (
	"context"
	"hash/fnv"
	"sort"
	"time"

	dErrors "carreg/pkg/domain-errors"
)

// numShards spreads VINs over a fixed set of locks. Two VINs that share a
// shard serialise each other, which is safe but never required.
const numShards = 128

// defaultAcquireTimeout bounds Acquire when ctx carries no deadline.
const defaultAcquireTimeout = 5 * time.Second

// MemoryLocker is a process-local Locker backed by sharded semaphores.
// Shards are always taken in ascending order, so overlapping acquisitions
// cannot deadlock.
type MemoryLocker struct {
	shards  [numShards]chan struct{}
	timeout time.Duration
}

type MemoryOption func(*MemoryLocker)

// WithAcquireTimeout sets the wait applied when ctx has no deadline.
func WithAcquireTimeout(d time.Duration) MemoryOption {
	return func(l *MemoryLocker) {
		if d > 0 {
			l.timeout = d
		}
	}
}

func NewMemoryLocker(opts ...MemoryOption) *MemoryLocker {
	l := &MemoryLocker{timeout: defaultAcquireTimeout}
	for i := range l.shards {
		l.shards[i] = make(chan struct{}, 1)
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Acquire locks every key. The returned release is idempotent.
func (l *MemoryLocker) Acquire(ctx context.Context, keys []string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeTimeout, "lock acquisition aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	shards := shardsFor(keys)
	held := make([]int, 0, len(shards))
	releaseHeld := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-l.shards[held[i]]
		}
		held = held[:0]
	}

	for _, shard := range shards {
		select {
		case l.shards[shard] <- struct{}{}:
			held = append(held, shard)
		case <-ctx.Done():
			releaseHeld()
			return nil, dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "timed out waiting for vehicle lock")
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		releaseHeld()
	}, nil
}

// shardsFor returns the distinct shards of keys in ascending order.
func shardsFor(keys []string) []int {
	seen := make(map[int]struct{}, len(keys))
	shards := make([]int, 0, len(keys))
	for _, key := range keys {
		shard := int(hashKey(key) % numShards)
		if _, ok := seen[shard]; ok {
			continue
		}
		seen[shard] = struct{}{}
		shards = append(shards, shard)
	}
	sort.Ints(shards)
	return shards
}

func hashKey(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}
