package ratelimit

import (
	"strconv"
	"sync"
	"time"
)

// KeyedRateLimiter is implemented by rate limiters that track independent
// counts per key (e.g. remote address, account ID).
type KeyedRateLimiter interface {
	Check(key string, cost int) (bool, error)
}

// RateLimiter is implemented by rate limiters that track a single count.
type RateLimiter interface {
	Check(cost int) (bool, error)
}

// local implements a naïve single interval rate-limiter in process memory.
// It uses a counter for the current interval. This implementation is not
// ideal since it allows bursting within the interval. A better implementation
// could do a sliding window across multiple intervals.
type local struct {
	max int
	sec int
	now func() time.Time

	mu     sync.Mutex
	counts map[string]uint64
	iv     int64
}

// NewLocalKeyed returns an in-process keyed rate limiter allowing max cost
// units per sec second interval.
func NewLocalKeyed(max, sec int) KeyedRateLimiter {
	return &local{
		max:    max,
		sec:    sec,
		now:    time.Now,
		counts: make(map[string]uint64),
	}
}

func (rl *local) Check(prefix string, cost int) (bool, error) {
	if cost > rl.max {
		return false, nil
	}

	iv := rl.now().Unix() / int64(rl.sec)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if iv != rl.iv {
		rl.iv = iv
		rl.counts = make(map[string]uint64)
	}
	key := prefix + ":" + strconv.FormatInt(iv, 16)
	rl.counts[key] += uint64(cost)
	return rl.counts[key] <= uint64(rl.max), nil
}

type singleRateLimiter struct {
	kl  KeyedRateLimiter
	key string
}

// NewSingle wraps a keyed rate limiter fixing the key, for clients that
// only ever track one count.
func NewSingle(kl KeyedRateLimiter, key string) RateLimiter {
	return &singleRateLimiter{kl: kl, key: key}
}

func (s *singleRateLimiter) Check(cost int) (bool, error) {
	return s.kl.Check(s.key, cost)
}

// NullKeyed is a keyed rate limiter that never limits.
type NullKeyed struct{}

func (NullKeyed) Check(key string, cost int) (bool, error) {
	return true, nil
}
