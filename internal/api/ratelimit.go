package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

const (
	// limiterIdle is how long a tenant bucket may go unused before it is
	// dropped. A bucket idle this long has refilled, so a fresh one is
	// equivalent.
	limiterIdle = 10 * time.Minute
	// maxLimiters caps the buckets held at once.
	maxLimiters = 10000
)

type tenantBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// tenantLimiter keeps one token bucket per tenant. Idle buckets are swept
// and the map never holds more than max entries.
type tenantLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	max       int
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*tenantBucket
}

func newTenantLimiter(rps float64, burst int) *tenantLimiter {
	if burst <= 0 {
		burst = int(rps) + 1
	}
	idle := limiterIdle
	if rps > 0 {
		if refill := time.Duration(float64(burst) / rps * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &tenantLimiter{
		limit:     rate.Limit(rps),
		burst:     burst,
		idle:      idle,
		max:       maxLimiters,
		now:       time.Now,
		lastSweep: time.Now(),
		buckets:   make(map[string]*tenantBucket),
	}
}

func (t *tenantLimiter) allow(tenant string) bool {
	t.mu.Lock()
	now := t.now()
	if now.Sub(t.lastSweep) >= t.idle {
		t.sweep(now)
	}
	b, ok := t.buckets[tenant]
	if !ok {
		if len(t.buckets) >= t.max {
			t.evictOldest()
		}
		b = &tenantBucket{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.buckets[tenant] = b
	}
	b.lastSeen = now
	t.mu.Unlock()
	return b.limiter.AllowN(now, 1)
}

// sweep drops buckets unused for longer than t.idle. Callers hold t.mu.
func (t *tenantLimiter) sweep(now time.Time) {
	for k, b := range t.buckets {
		if now.Sub(b.lastSeen) > t.idle {
			delete(t.buckets, k)
		}
	}
	t.lastSweep = now
}

// evictOldest drops the least recently used bucket. Callers hold t.mu.
func (t *tenantLimiter) evictOldest() {
	var oldest string
	var seen time.Time
	for k, b := range t.buckets {
		if oldest == "" || b.lastSeen.Before(seen) {
			oldest, seen = k, b.lastSeen
		}
	}
	delete(t.buckets, oldest)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.allow(chi.URLParam(r, "escritorioID")) {
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorBody{
				Code:    codeRateLimited,
				Message: "too many requests for this escritorio",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
