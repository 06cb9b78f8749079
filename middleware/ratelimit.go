package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sfi2k7/blueroute"
)

// KeyFunc picks the bucket a request is counted against
type KeyFunc func(c *blueroute.Context) string

type RateLimitOption func(*rateLimitConfig)

type rateLimitConfig struct {
	rps     float64
	burst   int
	keyFunc KeyFunc
	ttl     time.Duration
	now     func() time.Time
}

// WithRPS sets the sustained requests per second per key. Defaults to 100.
func WithRPS(rps float64) RateLimitOption {
	return func(c *rateLimitConfig) {
		c.rps = rps
	}
}

// WithBurst sets how many requests a key may make at once. Defaults to 20.
func WithBurst(burst int) RateLimitOption {
	return func(c *rateLimitConfig) {
		c.burst = burst
	}
}

// WithKeyFunc replaces the default per client IP key
func WithKeyFunc(fn KeyFunc) RateLimitOption {
	return func(c *rateLimitConfig) {
		c.keyFunc = fn
	}
}

// WithLimiterTTL sets how long an idle key's limiter is kept
func WithLimiterTTL(ttl time.Duration) RateLimitOption {
	return func(c *rateLimitConfig) {
		c.ttl = ttl
	}
}

// ClientIP keys requests by the host part of the remote address
func ClientIP(c *blueroute.Context) string {
	host, _, err := net.SplitHostPort(c.RemoteIP())
	if err != nil {
		return c.RemoteIP()
	}
	return host
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiters struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	lastSweep time.Time
	cfg       *rateLimitConfig
}

func (l *limiters) get(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > l.cfg.ttl {
		for k, e := range l.entries {
			if now.Sub(e.lastSeen) > l.cfg.ttl {
				delete(l.entries, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(rate.Limit(l.cfg.rps), l.cfg.burst)}
		l.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// RateLimit answers 429 with a Retry-After header once a key runs out of
// tokens in its bucket.
func RateLimit(opts ...RateLimitOption) blueroute.Middleware {
	cfg := &rateLimitConfig{
		rps:     100,
		burst:   20,
		keyFunc: ClientIP,
		ttl:     5 * time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.burst < 1 {
		cfg.burst = 1
	}

	store := &limiters{entries: make(map[string]*limiterEntry), cfg: cfg, lastSweep: cfg.now()}

	return blueroute.MiddlewareFunc(func(c *blueroute.Context, next blueroute.Handler) (*blueroute.Response, error) {
		now := cfg.now()
		limiter := store.get(cfg.keyFunc(c), now)

		r := limiter.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			res := blueroute.Text(http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			res.SetHeader("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
			res.SetHeader("X-RateLimit-Limit", strconv.Itoa(cfg.burst))
			return res, nil
		}

		res, err := next.Handle(c)
		if res != nil {
			res.SetHeader("X-RateLimit-Limit", strconv.Itoa(cfg.burst))
			res.SetHeader("X-RateLimit-Remaining", strconv.Itoa(int(limiter.TokensAt(now))))
		}
		return res, err
	})
}
