package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"golang.org/x/time/rate"
)

// Limit is a token bucket: Requests tokens refill every Per, and at most
// Burst are held at once.
type Limit struct {
	Requests int
	Per      time.Duration
	Burst    int
}

// Limits are the profiles the routes draw from.
type Limits struct {
	Strict   Limit // credential and code checks, emails sent
	Lenient  Limit // health probes and session reads
	Generate Limit // generation proxy; each call spends provider quota
}

// DefaultLimits returns the production profiles.
func DefaultLimits() Limits {
	return Limits{
		Strict:   Limit{Requests: 5, Per: time.Minute, Burst: 5},
		Lenient:  Limit{Requests: 100, Per: time.Minute, Burst: 100},
		Generate: Limit{Requests: 30, Per: time.Minute, Burst: 10},
	}
}

// LimitsFromEnv applies RATELIMIT_<PROFILE>_{REQUESTS,WINDOW_SEC,BURST}
// overrides to the defaults, with PROFILE one of STRICT, LENIENT, GENERATE.
// Values that are not positive integers are ignored.
func LimitsFromEnv(getenv func(string) string) Limits {
	l := DefaultLimits()
	l.Strict = l.Strict.override("STRICT", getenv)
	l.Lenient = l.Lenient.override("LENIENT", getenv)
	l.Generate = l.Generate.override("GENERATE", getenv)
	return l
}

func (l Limit) override(profile string, getenv func(string) string) Limit {
	positive := func(field string) (int, bool) {
		n, err := strconv.Atoi(getenv("RATELIMIT_" + profile + "_" + field))
		return n, err == nil && n > 0
	}
	if n, ok := positive("REQUESTS"); ok {
		l.Requests = n
	}
	if n, ok := positive("WINDOW_SEC"); ok {
		l.Per = time.Duration(n) * time.Second
	}
	if n, ok := positive("BURST"); ok {
		l.Burst = n
	}
	return l
}

// KeyFunc names the bucket a request draws from. An empty key exempts the
// request.
type KeyFunc func(*http.Request) string

// ClientIP keys by the first X-Forwarded-For hop, then X-Real-IP, then the
// peer address.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AccountID keys by the authenticated account, or "" when anonymous.
func AccountID(r *http.Request) string {
	id, _ := AccountIDFromContext(r.Context())
	return id
}

// JSONField keys by a top-level string field of the JSON body, lowercased.
// The body is put back for the handler.
func JSONField(name string) KeyFunc {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[name], &v) != nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(v))
	}
}

// JoinKeys concatenates the non-empty keys with ":".
func JoinKeys(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(fns))
		for _, fn := range fns {
			if k := fn(r); k != "" {
				parts = append(parts, k)
			}
		}
		return strings.Join(parts, ":")
	}
}

// idleAfter is how long a bucket may go unused before it is dropped.
const idleAfter = 10 * time.Minute

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// buckets holds one limiter per key and drops idle ones on a sweep that
// runs at most once per idleAfter.
type buckets struct {
	mu        sync.Mutex
	limit     Limit
	byKey     map[string]*bucket
	lastSweep time.Time
}

func (b *buckets) get(key string, now time.Time) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastSweep) >= idleAfter {
		for k, e := range b.byKey {
			if now.Sub(e.lastSeen) >= idleAfter {
				delete(b.byKey, k)
			}
		}
		b.lastSweep = now
	}

	e, ok := b.byKey[key]
	if !ok {
		every := rate.Every(b.limit.Per / time.Duration(b.limit.Requests))
		e = &bucket{lim: rate.NewLimiter(every, b.limit.Burst)}
		b.byKey[key] = e
	}
	e.lastSeen = now
	return e.lim
}

// RateLimit rejects requests with 429 once the bucket for key(r) is empty.
func RateLimit(l Limit, key KeyFunc) Middleware {
	b := &buckets{limit: l, byKey: make(map[string]*bucket), lastSweep: time.Now()}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				next.ServeHTTP(w, r)
				return
			}

			now := time.Now()
			res := b.get(k, now).ReserveN(now, 1)
			wait := res.DelayFrom(now)
			if wait == 0 {
				next.ServeHTTP(w, r)
				return
			}
			res.CancelAt(now)

			secs := max(int((wait+time.Second-1)/time.Second), 1)
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.Requests))
			w.Header().Set("X-RateLimit-Window", l.Per.String())
			slogx.FromContext(r.Context()).Warn("rate limited", "key", k, "path", r.URL.Path, "retry_after", secs)
			WriteMessage(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		})
	}
}

// LimitByIP buckets by client IP.
func LimitByIP(l Limit) Middleware { return RateLimit(l, ClientIP) }

// LimitByAccount buckets by account and IP, so anonymous calls still share
// a per-IP bucket.
func LimitByAccount(l Limit) Middleware { return RateLimit(l, JoinKeys(AccountID, ClientIP)) }

// LimitByIPAndField buckets by client IP plus a JSON body field, e.g. email.
func LimitByIPAndField(l Limit, field string) Middleware {
	return RateLimit(l, JoinKeys(ClientIP, JSONField(field)))
}
