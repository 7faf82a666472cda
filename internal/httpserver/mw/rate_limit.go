package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/catalogd/internal/utils"
)

// RateLimitConfig configures a token bucket per key.
type RateLimitConfig struct {
	Burst        int // bucket capacity
	RefillPerMin int
	MaxEntries   int // buckets kept before idle ones are evicted early
	IdleTTL      time.Duration
	TrustProxy   bool
	// Key groups requests into buckets. Defaults to the client IP.
	Key func(r *http.Request, trustProxy bool) string
	Now func() time.Time
}

// ClientTenantKey buckets by client IP and tenant, so one tenant's bulk
// import does not starve another tenant behind the same proxy.
func ClientTenantKey(r *http.Request, trustProxy bool) string {
	return utils.ClientIP(r, trustProxy) + "|" + r.Header.Get(TenantHeader)
}

type bucket struct {
	tokens float64
	last   time.Time
}

type limiter struct {
	cfg      RateLimitConfig
	perSec   float64
	capacity float64

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerMin = max(cfg.RefillPerMin, 1)
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Key == nil {
		cfg.Key = utils.ClientIP
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &limiter{
		cfg:       cfg,
		perSec:    float64(cfg.RefillPerMin) / 60,
		capacity:  float64(cfg.Burst),
		buckets:   make(map[string]*bucket),
		lastSweep: cfg.Now(),
	}
}

// take spends one token for key. When the bucket is empty it reports how
// many seconds until a token is available.
func (l *limiter) take(key string) (ok bool, remaining, retryAfter int) {
	now := l.cfg.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= time.Minute || (l.cfg.MaxEntries > 0 && len(l.buckets) >= l.cfg.MaxEntries) {
		l.evictIdleLocked(now)
	}

	b, found := l.buckets[key]
	if !found {
		b = &bucket{tokens: l.capacity, last: now}
		l.buckets[key] = b
	}
	if dt := now.Sub(b.last).Seconds(); dt > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+dt*l.perSec)
	}
	b.last = now

	if b.tokens < 1 {
		return false, 0, max(1, int(math.Ceil((1-b.tokens)/l.perSec)))
	}
	b.tokens--
	return true, int(b.tokens), 0
}

func (l *limiter) evictIdleLocked(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.last) > l.cfg.IdleTTL {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// RateLimit rejects requests with 429 once their bucket is empty and
// reports the budget in X-RateLimit-* headers.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, retry := l.take(l.cfg.Key(r, l.cfg.TrustProxy))

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retry))
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
