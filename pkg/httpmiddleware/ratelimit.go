package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Quota is a request budget per key.
type Quota struct {
	Max    int           `json:"max" yaml:"max"`
	Window time.Duration `json:"window" yaml:"window"`
}

// Verdict is the outcome of a single limiter check.
type Verdict struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Verdict, error)
}

// KeyFunc extracts the rate limit key from a request.
type KeyFunc func(*http.Request) string

// window tracks counts for two adjacent fixed windows; the effective count
// weights the previous one by its overlap with the sliding window.
type window struct {
	prevCount float64
	prevStart time.Time
	currCount float64
	currStart time.Time
}

// WindowLimiter is an in-process sliding window limiter.
type WindowLimiter struct {
	quota Quota
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

var _ Limiter = (*WindowLimiter)(nil)

// NewWindowLimiter creates an in-memory limiter.
func NewWindowLimiter(q Quota) *WindowLimiter {
	return &WindowLimiter{
		quota:   q,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// Allow implements Limiter.
func (l *WindowLimiter) Allow(_ context.Context, key string) (Verdict, error) {
	return l.allow(key, l.now()), nil
}

func (l *WindowLimiter) allow(key string, now time.Time) Verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := l.quota.Window
	w, ok := l.windows[key]
	if !ok {
		w = &window{currStart: now}
		l.windows[key] = w
	}
	if now.Sub(w.currStart) >= size {
		w.prevCount, w.prevStart = w.currCount, w.currStart
		w.currCount, w.currStart = 0, now.Truncate(size)
		if now.Sub(w.prevStart) >= 2*size {
			w.prevCount = 0
		}
	}

	overlap := max(1-now.Sub(w.currStart).Seconds()/size.Seconds(), 0)
	count := w.prevCount*overlap + w.currCount
	v := Verdict{Limit: l.quota.Max, ResetAt: w.currStart.Add(size)}
	if count >= float64(l.quota.Max) {
		return v
	}

	w.currCount++
	v.Allowed = true
	v.Remaining = max(int(float64(l.quota.Max)-count-1), 0)
	return v
}

// Sweep drops windows that can no longer affect a decision.
func (l *WindowLimiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.currStart) >= 2*l.quota.Window {
			delete(l.windows, key)
		}
	}
}

// Run sweeps expired windows until ctx is done.
func (l *WindowLimiter) Run(ctx context.Context) error {
	ticker := time.NewTicker(2 * l.quota.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.Sweep(now)
		}
	}
}

// RateLimit rejects requests over the limiter's budget with 429. Every
// response carries X-RateLimit-* headers. Limiter failures let the request
// through.
func RateLimit(l Limiter, key KeyFunc) Middleware {
	if key == nil {
		key = ClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := l.Allow(r.Context(), key(r))
			if err != nil {
				zctx.From(r.Context()).Warn("Rate limiter unavailable", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(v.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(v.Remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(v.ResetAt.Unix(), 10))
			if !v.Allowed {
				retry := max(time.Until(v.ResetAt), 0)
				h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP keys requests by the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
