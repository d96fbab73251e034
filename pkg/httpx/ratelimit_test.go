package httpx_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveFrom(h http.Handler, remote string, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(http.MethodPost, "/", r)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"peer address", nil, "192.168.1.1"},
		{"first forwarded hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 192.168.1.1"}, "203.0.113.1"},
		{"real ip header", map[string]string{"X-Real-IP": " 203.0.113.2 "}, "203.0.113.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.168.1.1:12345"
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tc.want, httpx.ClientIP(req))
		})
	}
}

func TestJSONField(t *testing.T) {
	t.Run("lowercases and trims", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":" Alice@Example.com ","password":"x"}`))
		require.Equal(t, "alice@example.com", httpx.JSONField("email")(req))
	})

	t.Run("leaves the body readable", func(t *testing.T) {
		body := `{"email":"bob@example.com"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		_ = httpx.JSONField("email")(req)

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("empty for missing or non-string field", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"email":42}`, `not json`, ``} {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
			require.Empty(t, httpx.JSONField("email")(req), "body %q", body)
		}
	})
}

func TestJoinKeys(t *testing.T) {
	key := httpx.JoinKeys(httpx.ClientIP, httpx.JSONField("email"))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"alice@example.com"}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice@example.com", key(req))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1", key(req))
}

func TestRateLimit(t *testing.T) {
	perMinute := func(n int) httpx.Limit { return httpx.Limit{Requests: n, Per: time.Minute, Burst: n} }

	t.Run("burst then 429", func(t *testing.T) {
		h := httpx.LimitByIP(perMinute(3))(okHandler())
		for i := range 3 {
			require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:12345", "").Code, "request %d", i+1)
		}

		rec := serveFrom(h, "192.168.1.1:12345", "")
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.Equal(t, "20", rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Equal(t, "1m0s", rec.Header().Get("X-RateLimit-Window"))

		var body httpx.MessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.NotEmpty(t, body.Message)
	})

	t.Run("rejected calls do not spend tokens", func(t *testing.T) {
		h := httpx.LimitByIP(httpx.Limit{Requests: 1, Per: 200 * time.Millisecond, Burst: 1})(okHandler())
		require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:1", "").Code)
		for range 5 {
			require.Equal(t, http.StatusTooManyRequests, serveFrom(h, "192.168.1.1:1", "").Code)
		}
		time.Sleep(250 * time.Millisecond)
		require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:1", "").Code)
	})

	t.Run("keys are independent", func(t *testing.T) {
		h := httpx.LimitByIP(perMinute(2))(okHandler())
		for range 2 {
			require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:12345", "").Code)
		}
		require.Equal(t, http.StatusTooManyRequests, serveFrom(h, "192.168.1.1:12345", "").Code)
		require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.2:12345", "").Code)
	})

	t.Run("empty key is exempt", func(t *testing.T) {
		h := httpx.RateLimit(perMinute(1), func(*http.Request) string { return "" })(okHandler())
		for range 3 {
			require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:12345", "").Code)
		}
	})
}

func TestLimitByIPAndField(t *testing.T) {
	var seen []string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		seen = append(seen, body.Email)
		w.WriteHeader(http.StatusOK)
	})

	h := httpx.LimitByIPAndField(httpx.Limit{Requests: 2, Per: time.Minute, Burst: 2}, "email")(inner)

	alice := `{"email":"alice@example.com"}`
	for range 2 {
		require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:12345", alice).Code)
	}
	require.Equal(t, http.StatusTooManyRequests, serveFrom(h, "192.168.1.1:12345", alice).Code)

	// Same IP, different email.
	require.Equal(t, http.StatusOK, serveFrom(h, "192.168.1.1:12345", `{"email":"bob@example.com"}`).Code)
	require.Equal(t, []string{"alice@example.com", "alice@example.com", "bob@example.com"}, seen)
}

func TestLimitsFromEnv(t *testing.T) {
	env := map[string]string{}
	getenv := func(k string) string { return env[k] }

	require.Equal(t, httpx.DefaultLimits(), httpx.LimitsFromEnv(getenv))

	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_WINDOW_SEC"] = "30"
	env["RATELIMIT_STRICT_BURST"] = "250"
	env["RATELIMIT_GENERATE_BURST"] = "0"
	env["RATELIMIT_LENIENT_REQUESTS"] = "lots"

	l := httpx.LimitsFromEnv(getenv)
	require.Equal(t, httpx.Limit{Requests: 1000, Per: 30 * time.Second, Burst: 250}, l.Strict)
	require.Equal(t, httpx.DefaultLimits().Generate, l.Generate)
	require.Equal(t, httpx.DefaultLimits().Lenient, l.Lenient)

	def := httpx.DefaultLimits()
	require.Less(t, def.Strict.Requests, def.Generate.Requests)
	require.Less(t, def.Generate.Requests, def.Lenient.Requests)
}

func BenchmarkRateLimitManyIPs(b *testing.B) {
	h := httpx.LimitByIP(httpx.Limit{Requests: 1000000, Per: time.Minute, Burst: 1000})(okHandler())

	for i := 0; b.Loop(); i++ {
		serveFrom(h, fmt.Sprintf("192.168.%d.%d:12345", i%255, (i/255)%255), "")
	}
}
