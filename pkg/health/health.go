// Package health serves liveness and readiness probes.
//
// Checks run in the background on a fixed interval. A check turns unhealthy
// after FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive passes.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked dependency is usable.
type CheckFunc func(ctx context.Context) error

// Check describes one probe.
type Check struct {
	Name             string
	Timeout          time.Duration
	Func             CheckFunc
	FailureThreshold int
	SuccessThreshold int
}

func (c *Check) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
}

// probe is a registered Check plus its state. fails and passes are owned by
// the single goroutine calling run; healthy and lastErr are read by handlers.
type probe struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails  int
	passes int
}

func newProbe(c Check) *probe {
	c.setDefaults()
	p := &probe{Check: c}
	p.healthy.Store(true)
	return p
}

func (p *probe) err() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

func (p *probe) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	err := p.Func(ctx)
	p.lastErr.Store(&err)
	if err != nil {
		p.passes = 0
		p.fails++
		if p.fails >= p.FailureThreshold && p.healthy.Swap(false) {
			zctx.From(ctx).Warn("Health check failing", zap.String("check", p.Name), zap.Error(err))
		}
		return
	}
	p.fails = 0
	p.passes++
	if p.passes >= p.SuccessThreshold && !p.healthy.Swap(true) {
		zctx.From(ctx).Info("Health check recovered", zap.String("check", p.Name))
	}
}

// Health holds the probes of one process. It starts not ready.
type Health struct {
	ready atomic.Bool

	mu        sync.RWMutex
	liveness  []*probe
	readiness []*probe
}

// New creates an empty Health.
func New() *Health {
	return &Health{}
}

// Liveness registers a check that restarts the process when failing.
func (h *Health) Liveness(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newProbe(c))
}

// Readiness registers a check that withdraws the process from traffic when
// failing.
func (h *Health) Readiness(c Check) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newProbe(c))
}

func (h *Health) probes() (live, ready []*probe) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*probe(nil), h.liveness...), append([]*probe(nil), h.readiness...)
}

// Run polls every registered check each interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	live, ready := h.probes()
	g, ctx := errgroup.WithContext(ctx)
	for _, p := range append(live, ready...) {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				p.run(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

// SetReady marks the process as initialized or draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the process is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}
	_, ready := h.probes()
	return len(failures(ready)) == 0
}

// LiveEndpoint serves /livez.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	live, _ := h.probes()
	writeStatus(w, failures(live))
}

// ReadyEndpoint serves /readyz.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	_, ready := h.probes()
	failed := failures(ready)
	if !h.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeStatus(w, failed)
}

func failures(probes []*probe) map[string]string {
	out := make(map[string]string)
	for _, p := range probes {
		if p.healthy.Load() {
			continue
		}
		msg := "check is unhealthy"
		if err := p.err(); err != nil {
			msg = err.Error()
		}
		out[p.Name] = msg
	}
	return out
}

func writeStatus(w http.ResponseWriter, failed map[string]string) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	code := http.StatusOK
	e.ObjStart()
	if len(failed) == 0 {
		e.Field("status", func(e *jx.Encoder) { e.Str("ok") })
	} else {
		code = http.StatusServiceUnavailable
		names := make([]string, 0, len(failed))
		for name := range failed {
			names = append(names, name)
		}
		sort.Strings(names)

		e.Field("status", func(e *jx.Encoder) { e.Str("unhealthy") })
		e.Field("checks", func(e *jx.Encoder) {
			e.ObjStart()
			for _, name := range names {
				e.Field(name, func(e *jx.Encoder) { e.Str(failed[name]) })
			}
			e.ObjEnd()
		})
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
