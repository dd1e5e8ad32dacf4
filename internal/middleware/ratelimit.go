package middleware

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Strob0t/tenantdash/internal/config"
)

// RateLimiter is per-IP rate limiting middleware. It protects public
// endpoints such as login from request floods; it is not an account lockout
// and keeps no per-account state.
type RateLimiter struct {
	mu         sync.RWMutex
	clients    map[string]*client
	limit      rate.Limit
	burst      int
	maxClients int
	now        func() time.Time

	cleanupInterval time.Duration
	maxIdle         time.Duration
}

type client struct {
	lim      *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// NewRateLimiter creates a rate limiter from cfg.
func NewRateLimiter(cfg config.Rate) *RateLimiter {
	return &RateLimiter{
		clients:         make(map[string]*client),
		limit:           rate.Limit(cfg.RequestsPerSecond),
		burst:           cfg.Burst,
		maxClients:      100000,
		now:             time.Now,
		cleanupInterval: cfg.CleanupInterval,
		maxIdle:         cfg.MaxIdleTime,
	}
}

// Handler returns HTTP middleware that enforces per-IP rate limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		remaining, retryAfter, allowed := rl.allow(ip)
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			slog.WarnContext(r.Context(), "rate limit exceeded", "ip", ip, "path", r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(retrySeconds(retryAfter)))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// allow checks whether a request from ip is allowed. It returns the tokens
// left, the wait until the next request would pass, and the verdict. A
// denied request does not consume a token.
func (rl *RateLimiter) allow(ip string) (remaining int, retryAfter time.Duration, allowed bool) {
	now := rl.now()
	c, ok := rl.client(ip, now)
	if !ok {
		return 0, rl.interval(), false
	}

	res := c.lim.ReserveN(now, 1)
	if !res.OK() {
		return 0, rl.interval(), false
	}
	if d := res.DelayFrom(now); d > 0 {
		res.CancelAt(now)
		return 0, d, false
	}
	return int(c.lim.TokensAt(now)), 0, true
}

// client returns the limiter for ip, creating it unless maxClients IPs are
// already tracked.
func (rl *RateLimiter) client(ip string, now time.Time) (*client, bool) {
	// Limiters are safe for concurrent use; only the map needs the lock.
	rl.mu.RLock()
	c, ok := rl.clients[ip]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		c, ok = rl.clients[ip]
		if !ok {
			if len(rl.clients) >= rl.maxClients {
				rl.mu.Unlock()
				return nil, false
			}
			c = &client{lim: rate.NewLimiter(rl.limit, rl.burst)}
			rl.clients[ip] = c
		}
		rl.mu.Unlock()
	}

	c.lastSeen.Store(now.UnixNano())
	return c, true
}

// interval is the time between two tokens.
func (rl *RateLimiter) interval() time.Duration {
	if rl.limit <= 0 || rl.limit == rate.Inf {
		return time.Second
	}
	return time.Duration(float64(time.Second) / float64(rl.limit))
}

func retrySeconds(d time.Duration) int {
	return max(1, int(math.Ceil(d.Seconds())))
}

// StartCleanup removes idle limiters on the configured interval until ctx is
// done.
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	if rl.cleanupInterval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(rl.cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup()
			}
		}
	}()
}

// cleanup removes limiters that have been idle longer than maxIdle.
func (rl *RateLimiter) cleanup() {
	cutoff := rl.now().Add(-rl.maxIdle).UnixNano()
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for ip, c := range rl.clients {
		if c.lastSeen.Load() < cutoff {
			delete(rl.clients, ip)
		}
	}
}

// Len returns the number of tracked IPs.
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.clients)
}

// clientIP extracts the client IP from RemoteAddr. Proxy headers are not
// trusted; put the real IP into RemoteAddr at the edge if needed.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
