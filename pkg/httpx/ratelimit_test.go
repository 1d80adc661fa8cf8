package httpx_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/max950509/web-admin-fullstack-template/pkg/httpx"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return req
}

func TestIPKeyExtractor(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, httpx.SetTrustedProxies(nil)) })

	t.Run("uses RemoteAddr", func(t *testing.T) {
		require.Equal(t, "192.168.1.1", httpx.IPKeyExtractor(requestFrom("192.168.1.1:12345")))
	})

	t.Run("ignores forwarding headers from untrusted peers", func(t *testing.T) {
		require.NoError(t, httpx.SetTrustedProxies(nil))
		req := requestFrom("198.51.100.7:4000")
		req.Header.Set("X-Forwarded-For", "203.0.113.1")
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "198.51.100.7", httpx.IPKeyExtractor(req))
	})

	t.Run("rotating the header does not change the key", func(t *testing.T) {
		require.NoError(t, httpx.SetTrustedProxies([]string{"10.0.0.0/8"}))
		keys := map[string]struct{}{}
		for _, spoofed := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
			req := requestFrom("198.51.100.7:4000")
			req.Header.Set("X-Forwarded-For", spoofed)
			keys[httpx.IPKeyExtractor(req)] = struct{}{}
		}
		require.Len(t, keys, 1)
	})

	t.Run("trusted proxy forwards the client", func(t *testing.T) {
		require.NoError(t, httpx.SetTrustedProxies([]string{"10.0.0.0/8", "192.168.1.1"}))

		req := requestFrom("10.0.0.5:12345")
		req.Header.Set("X-Forwarded-For", "203.0.113.1")
		require.Equal(t, "203.0.113.1", httpx.IPKeyExtractor(req))

		req = requestFrom("192.168.1.1:12345")
		req.Header.Set("X-Real-IP", "203.0.113.2")
		require.Equal(t, "203.0.113.2", httpx.IPKeyExtractor(req))
	})

	t.Run("client-prepended hops are skipped", func(t *testing.T) {
		require.NoError(t, httpx.SetTrustedProxies([]string{"10.0.0.0/8"}))
		req := requestFrom("10.0.0.5:12345")
		req.Header.Set("X-Forwarded-For", "1.2.3.4, 203.0.113.9, 10.0.0.6")
		require.Equal(t, "203.0.113.9", httpx.IPKeyExtractor(req))
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		require.Error(t, httpx.SetTrustedProxies([]string{"not-an-ip"}))
		require.Error(t, httpx.SetTrustedProxies([]string{"10.0.0.0/99"}))
	})
}

func TestJSONFieldKeyExtractor(t *testing.T) {
	t.Run("reads the field and restores the body", func(t *testing.T) {
		body := `{"username":" Alice ","password":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))

		require.Equal(t, "alice", httpx.JSONFieldKeyExtractor("username")(req))

		rest, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.Equal(t, body, string(rest))
	})

	t.Run("returns empty for non-string or missing fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":42}`))
		require.Empty(t, httpx.JSONFieldKeyExtractor("username")(req))

		req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`not json`))
		require.Empty(t, httpx.JSONFieldKeyExtractor("username")(req))
	})
}

func TestCompositeKeyExtractor(t *testing.T) {
	extract := httpx.CompositeKeyExtractor(":",
		httpx.IPKeyExtractor,
		httpx.JSONFieldKeyExtractor("username"),
	)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"Alice"}`))
	req.RemoteAddr = "192.168.1.1:12345"
	require.Equal(t, "192.168.1.1:alice", extract(req))

	require.Equal(t, "192.168.1.1", extract(requestFrom("192.168.1.1:12345")))
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("blocks once the burst is spent", func(t *testing.T) {
		limited := httpx.RateLimitByIP(httpx.RateLimitConfig{
			RequestsPerWindow: 3,
			Window:            time.Minute,
			Burst:             3,
		})(okHandler)

		for i := range 3 {
			rec := serve(limited, requestFrom("192.168.1.1:12345"))
			require.Equal(t, http.StatusOK, rec.Code, "request %d should succeed", i+1)
		}

		rec := serve(limited, requestFrom("192.168.1.1:12345"))
		require.Equal(t, http.StatusTooManyRequests, rec.Code)
		require.NotEmpty(t, rec.Header().Get("Retry-After"))
		require.Equal(t, "3", rec.Header().Get("X-RateLimit-Limit"))
		require.Contains(t, rec.Body.String(), "rate_limit_exceeded")

		// Other clients keep their own bucket.
		require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.2:12345")).Code)
	})

	t.Run("passes requests without a key", func(t *testing.T) {
		limited := httpx.RateLimitMiddleware(
			httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			func(*http.Request) string { return "" },
		)(okHandler)

		for range 3 {
			require.Equal(t, http.StatusOK, serve(limited, requestFrom("192.168.1.1:1")).Code)
		}
	})

	t.Run("login limiter keys on username", func(t *testing.T) {
		limited := httpx.RateLimitByIPAndJSONField(
			httpx.RateLimitConfig{RequestsPerWindow: 1, Window: time.Minute, Burst: 1},
			"username",
		)(okHandler)

		login := func(username string) int {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"username":"`+username+`"}`))
			req.RemoteAddr = "10.0.0.1:5000"
			return serve(limited, req).Code
		}

		require.Equal(t, http.StatusOK, login("alice"))
		require.Equal(t, http.StatusTooManyRequests, login("ALICE"))
		require.Equal(t, http.StatusOK, login("bob"))
	})
}

func TestParseRateLimitFromEnv(t *testing.T) {
	t.Setenv("RATELIMIT_TEST_REQUESTS", "42")
	t.Setenv("RATELIMIT_TEST_WINDOW_SEC", "10")
	t.Setenv("RATELIMIT_TEST_BURST", "-1")

	cfg := httpx.ParseRateLimitFromEnv("TEST", httpx.RateLimitConfig{
		RequestsPerWindow: 1,
		Window:            time.Minute,
		Burst:             7,
	})
	require.Equal(t, 42, cfg.RequestsPerWindow)
	require.Equal(t, 10*time.Second, cfg.Window)
	require.Equal(t, 7, cfg.Burst)
}

func TestRateLimitProfiles(t *testing.T) {
	require.Less(t, httpx.StrictLimit.RequestsPerWindow, httpx.ModerateLimit.RequestsPerWindow)
	require.Less(t, httpx.ModerateLimit.RequestsPerWindow, httpx.LenientLimit.RequestsPerWindow)
	require.Less(t, httpx.LenientLimit.RequestsPerWindow, httpx.PublicLimit.RequestsPerWindow)
}
