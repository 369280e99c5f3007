package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/menuimport/internal/config"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAPIKeyAuth(t *testing.T) {
	secured := config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}

	tests := []struct {
		name    string
		cfg     config.SecurityConfig
		headers map[string]string
		want    int
	}{
		{"disabled passes everything", config.SecurityConfig{}, nil, http.StatusOK},
		{"missing key", secured, nil, http.StatusUnauthorized},
		{"wrong key", secured, map[string]string{"X-API-Key": "nope"}, http.StatusForbidden},
		{"valid header key", secured, map[string]string{"X-API-Key": "k2"}, http.StatusOK},
		{"valid bearer token", secured, map[string]string{"Authorization": "Bearer k1"}, http.StatusOK},
		{"no keys configured", config.SecurityConfig{RequireAPIKey: true}, map[string]string{"X-API-Key": "k1"}, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/restaurants/import", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			APIKeyAuth(tt.cfg)(okHandler).ServeHTTP(rec, req)

			require.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestTrustedRealIP(t *testing.T) {
	var seen string
	h := TrustedRealIP([]string{"10.0.0.0/8", "192.168.1.5", "bogus"})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = r.RemoteAddr }),
	)

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"trusted proxy with X-Real-IP", "10.1.2.3:5555", map[string]string{"X-Real-IP": "203.0.113.9"}, "203.0.113.9"},
		{"trusted bare ip with XFF chain", "192.168.1.5:80", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.1.1.1"}, "198.51.100.7"},
		{"untrusted client spoofing", "203.0.113.50:1234", map[string]string{"X-Real-IP": "1.2.3.4"}, "203.0.113.50:1234"},
		{"trusted proxy with garbage header", "10.1.2.3:5555", map[string]string{"X-Real-IP": "not-an-ip"}, "10.1.2.3:5555"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, tt.want, seen)
		})
	}
}

func TestRateLimit(t *testing.T) {
	store := NewRateStore(context.Background(), config.RateLimitConfig{Storage: "memory"})
	h := RateLimit(store, "import", 2)(okHandler)

	call := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/restaurants/import", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call("198.51.100.1:1000").Code)
	require.Equal(t, http.StatusOK, call("198.51.100.1:1001").Code)

	limited := call("198.51.100.1:1002")
	require.Equal(t, http.StatusTooManyRequests, limited.Code)
	require.Equal(t, "60", limited.Header().Get("Retry-After"))
	require.JSONEq(t, `{"error":"rate limit exceeded","code":"RATE001"}`, limited.Body.String())

	require.Equal(t, http.StatusOK, call("198.51.100.2:1000").Code, "other clients keep their own budget")
}

func TestRateLimit_SeparateNamesShareStore(t *testing.T) {
	store := NewRateStore(context.Background(), config.RateLimitConfig{Storage: "memory"})
	global := RateLimit(store, "global", 1)(okHandler)
	imports := RateLimit(store, "import", 1)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.3:1"

	rec := httptest.NewRecorder()
	global.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	imports.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewRateStore_RedisFallsBackToMemory(t *testing.T) {
	store := NewRateStore(context.Background(), config.RateLimitConfig{
		Storage:  "redis",
		RedisURL: "://not a url",
	})
	require.NotNil(t, store)
}

func TestLogger_CapturesStatus(t *testing.T) {
	h := Logger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte("{}"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/restaurants/import", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, "{}", rec.Body.String())
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rec, status: http.StatusOK}

	ww.WriteHeader(http.StatusAccepted)
	ww.WriteHeader(http.StatusInternalServerError)
	n, err := ww.Write([]byte("abc"))

	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, http.StatusAccepted, ww.status)
	require.Equal(t, 3, ww.bytes)
}
