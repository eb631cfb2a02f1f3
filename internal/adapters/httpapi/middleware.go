package httpapi

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// requestLogger attaches a request-scoped logrus entry to the context and logs one line
// per completed request.
func requestLogger(base logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := base.WithFields(logrus.Fields{
				"request_id": middleware.GetReqID(r.Context()),
				"method":     r.Method,
				"path":       r.URL.Path,
			})
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(withLogger(r.Context(), entry)))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := logrus.Fields{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if status >= http.StatusInternalServerError {
				entry.WithFields(fields).Warn("request completed")
				return
			}
			entry.WithFields(fields).Info("request completed")
		})
	}
}

// RateLimit bounds requests per client IP with a token bucket.
type RateLimit struct {
	Requests int
	Window   time.Duration
	Burst    int
}

func (rl RateLimit) enabled() bool {
	return rl.Requests > 0 && rl.Window > 0
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientRateLimiter keeps one limiter per remote address. Idle entries are swept once the
// table grows past sweepThreshold.
type clientRateLimiter struct {
	cfg   RateLimit
	every rate.Limit
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*ipLimiter
}

const sweepThreshold = 4096

func newClientRateLimiter(cfg RateLimit) *clientRateLimiter {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &clientRateLimiter{
		cfg:     cfg,
		every:   rate.Every(cfg.Window / time.Duration(cfg.Requests)),
		now:     time.Now,
		clients: make(map[string]*ipLimiter),
	}
}

func (c *clientRateLimiter) reserve(key string) *rate.Reservation {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.clients) > sweepThreshold {
		for k, v := range c.clients {
			if now.Sub(v.lastSeen) > c.cfg.Window {
				delete(c.clients, k)
			}
		}
	}
	l, ok := c.clients[key]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(c.every, c.cfg.Burst)}
		c.clients[key] = l
	}
	l.lastSeen = now
	return l.limiter.ReserveN(now, 1)
}

func (c *clientRateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := c.reserve(clientIP(r))
		if delay := res.DelayFrom(c.now()); !res.OK() || delay > 0 {
			res.CancelAt(c.now())
			secs := int(math.Ceil(delay.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			writeError(w, r, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests, retry later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
