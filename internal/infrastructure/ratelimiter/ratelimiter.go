package ratelimiter

import (
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultSourceKey = "X-RateLimit-Key"

// Limiter throttles Query API callers per source. Audit queries are dashboard
// driven and burst-prone, so a token bucket per caller keeps one noisy
// dashboard from starving the rest.
type Limiter interface {
	Allow(sourceKey string) bool
	GetSourceKey(r *http.Request) string
	Remaining(sourceKey string) int
	GetMaxBurst() int
}

type Options struct {
	MaxRatePerSecond int
	MaxBurst         int
	SourceHeaderKey  string
	IdleTTL          time.Duration
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

type RateLimiter struct {
	ratePerSecond   float64
	maxBurst        int
	sourceHeaderKey string
	idleTTL         time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket
}

func New(opts Options) *RateLimiter {
	if opts.MaxRatePerSecond <= 0 {
		opts.MaxRatePerSecond = 10
	}
	if opts.MaxBurst <= 0 {
		opts.MaxBurst = 20
	}
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 5 * time.Minute
	}

	rl := &RateLimiter{
		ratePerSecond:   float64(opts.MaxRatePerSecond),
		maxBurst:        opts.MaxBurst,
		sourceHeaderKey: opts.SourceHeaderKey,
		idleTTL:         opts.IdleTTL,
		buckets:         make(map[string]*bucket),
	}

	go rl.evictIdle()

	return rl
}

// GetSourceKey identifies the caller from the configured header, falling back
// to the remote address.
func (rl *RateLimiter) GetSourceKey(r *http.Request) string {
	header := rl.sourceHeaderKey
	if header == "" {
		header = defaultSourceKey
	}

	if v := r.Header.Get(header); v != "" {
		// First hop of a forwarded chain
		if i := strings.IndexByte(v, ','); i > 0 {
			return strings.TrimSpace(v[:i])
		}
		return v
	}

	return r.RemoteAddr
}

func (rl *RateLimiter) GetMaxBurst() int {
	return rl.maxBurst
}

func (rl *RateLimiter) Allow(sourceKey string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b := rl.refill(sourceKey)
	if b.tokens < 1 {
		return false
	}

	b.tokens--
	return true
}

func (rl *RateLimiter) Remaining(sourceKey string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	return int(rl.refill(sourceKey).tokens)
}

// refill must be called with the mutex held.
func (rl *RateLimiter) refill(sourceKey string) *bucket {
	now := time.Now()

	b, ok := rl.buckets[sourceKey]
	if !ok {
		b = &bucket{tokens: float64(rl.maxBurst), lastFill: now}
		rl.buckets[sourceKey] = b
		return b
	}

	elapsed := now.Sub(b.lastFill).Seconds()
	if elapsed > 0 {
		b.tokens += elapsed * rl.ratePerSecond
		if b.tokens > float64(rl.maxBurst) {
			b.tokens = float64(rl.maxBurst)
		}
		b.lastFill = now
	}

	return b
}

func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.idleTTL)

		rl.mu.Lock()
		for key, b := range rl.buckets {
			if b.lastFill.Before(cutoff) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}
