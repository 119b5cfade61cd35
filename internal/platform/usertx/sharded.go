package usertx

import (
	"context"
	"strconv"
	"sync"
	"time"

	id "trustcore/pkg/domain"
)

// numShards spreads users over a fixed set of mutexes so unrelated users
// rarely contend.
const numShards = 128

// DefaultTimeout bounds a user transaction when the caller set no deadline.
const DefaultTimeout = 5 * time.Second

// Sharded serializes per user with in-process sharded mutexes. Suitable for
// the in-memory stores or a single instance.
type Sharded struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

func NewSharded(timeout time.Duration) *Sharded {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Sharded{timeout: timeout}
}

func (s *Sharded) RunForUser(ctx context.Context, userID id.UserID, fn func(ctx context.Context) error) error {
	if err := ctxErr(ctx); err != nil {
		return err
	}

	shard := selectShard(userID.String())
	key := "shard:" + strconv.Itoa(shard)
	if holds(ctx, key) {
		return runWithHooks(ctx, fn)
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	s.shards[shard].Lock()
	defer s.shards[shard].Unlock()

	// Check again after acquiring lock
	if err := ctxErr(ctx); err != nil {
		return err
	}
	return runWithHooks(withHeld(ctx, key), fn)
}

func selectShard(userID string) int {
	return int(hashString(userID) % numShards)
}

// hashString is 32-bit FNV-1a.
func hashString(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
