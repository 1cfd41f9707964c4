package httpserver

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/Nguyentram30/activity-portal/internal/model"
	"golang.org/x/time/rate"
)

// ThrottleConfig sets per-user request budgets. Zero budgets disable throttling
// for that group.
type ThrottleConfig struct {
	StudentRPM int
	StaffRPM   int
	EntryTTL   time.Duration
}

type throttleEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type throttle struct {
	cfg     ThrottleConfig
	metrics *metrics
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*throttleEntry
}

func newThrottle(cfg ThrottleConfig, m *metrics) *throttle {
	if cfg.EntryTTL <= 0 {
		cfg.EntryTTL = 30 * time.Minute
	}
	return &throttle{cfg: cfg, metrics: m, now: time.Now, entries: map[string]*throttleEntry{}}
}

func (t *throttle) budget(role model.Role) int {
	if role == model.RoleStudent {
		return t.cfg.StudentRPM
	}
	return t.cfg.StaffRPM
}

// middleware throttles authenticated callers by user; anonymous requests pass.
func (t *throttle) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := ActorFromCtx(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		rpm := t.budget(actor.Role)
		if rpm <= 0 || t.allow(actor.ID.String()+"|"+string(actor.Role), rpm) {
			next.ServeHTTP(w, r)
			return
		}
		if t.metrics != nil {
			t.metrics.throttled.WithLabelValues(string(actor.Role)).Inc()
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rpm)))
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
	})
}

func (t *throttle) allow(key string, rpm int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.prune(now)

	e, ok := t.entries[key]
	if !ok {
		burst := rpm / 3
		if burst < 1 {
			burst = 1
		}
		e = &throttleEntry{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), burst)}
		t.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

func (t *throttle) prune(now time.Time) {
	for k, e := range t.entries {
		if now.Sub(e.lastSeen) > t.cfg.EntryTTL {
			delete(t.entries, k)
		}
	}
}

func retryAfterSeconds(rpm int) int {
	if rpm <= 0 {
		return 1
	}
	return int(math.Max(1, math.Ceil(60/float64(rpm))))
}
