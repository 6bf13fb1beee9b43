package memcache

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// limiterIdleTTL is how long a client's bucket survives without use.
	// A bucket idle for longer than one refill period is full again, so
	// dropping it loses nothing.
	limiterIdleTTL = time.Minute

	// limiterSweepEvery bounds how often idle buckets are pruned.
	limiterSweepEvery = 30 * time.Second
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client IP.
type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	perSec    int
	lastSweep time.Time
	now       func() time.Time
}

func newRateLimiter(requestsPerSecond int) *rateLimiter {
	return &rateLimiter{
		limiters:  make(map[string]*clientLimiter),
		perSec:    requestsPerSecond,
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

// allow reports whether one more command from ip may run now.
func (rl *rateLimiter) allow(ip string) bool {
	if rl == nil || rl.perSec <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= limiterSweepEvery {
		rl.sweep(now)
	}

	cl, ok := rl.limiters[ip]
	if !ok {
		// burst = rate
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(rl.perSec), rl.perSec)}
		rl.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// sweep drops buckets idle for longer than limiterIdleTTL.
func (rl *rateLimiter) sweep(now time.Time) {
	for ip, cl := range rl.limiters {
		if now.Sub(cl.lastSeen) > limiterIdleTTL {
			delete(rl.limiters, ip)
		}
	}
	rl.lastSweep = now
}

