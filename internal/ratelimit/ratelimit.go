package ratelimit

import (
	"math/rand"
	"sync"
	"time"
)

// HostLimiter enforces a minimum delay (plus jitter) between requests to
// the same listing site, so a run with many county pages on one platform
// doesn't hammer it.
type HostLimiter struct {
	minDelay time.Duration
	jitter   time.Duration

	mu   sync.Mutex
	last map[string]time.Time
}

// NewHostLimiter creates a limiter with the given base delay and jitter
func NewHostLimiter(minDelay, jitter time.Duration) *HostLimiter {
	return &HostLimiter{
		minDelay: minDelay,
		jitter:   jitter,
		last:     make(map[string]time.Time),
	}
}

// Wait blocks until the host's pacing window has passed, then records the
// request time
func (hl *HostLimiter) Wait(host string) {
	if hl.minDelay == 0 {
		return
	}

	hl.mu.Lock()
	lastReq, seen := hl.last[host]
	delay := hl.minDelay
	if hl.jitter > 0 {
		delay += time.Duration(rand.Int63n(int64(hl.jitter)))
	}
	var sleep time.Duration
	if seen {
		elapsed := time.Since(lastReq)
		if elapsed < delay {
			sleep = delay - elapsed
		}
	}
	hl.last[host] = time.Now().Add(sleep)
	hl.mu.Unlock()

	if sleep > 0 {
		time.Sleep(sleep)
	}
}
