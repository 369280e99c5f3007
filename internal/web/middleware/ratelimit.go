package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"github.com/JonMunkholm/menuimport/internal/config"
)

const rateLimitPrefix = "menuimport:ratelimit"

// NewRateStore builds the limiter store selected by cfg.Storage. A redis
// store that cannot be reached falls back to memory with a warning.
func NewRateStore(ctx context.Context, cfg config.RateLimitConfig) limiter.Store {
	if cfg.Storage == "redis" {
		store, err := newRedisStore(ctx, cfg.RedisURL)
		if err == nil {
			return store
		}
		slog.Warn("ratelimit: redis store unavailable, falling back to memory", "error", err)
	}
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          rateLimitPrefix,
		CleanUpInterval: time.Minute,
	})
}

func newRedisStore(ctx context.Context, url string) (limiter.Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: rateLimitPrefix,
	})
}

// RateLimit limits each client IP to perMinute requests per minute. The
// name keeps separate limits apart when they share one store.
func RateLimit(store limiter.Store, name string, perMinute int) func(http.Handler) http.Handler {
	rate := limiter.Rate{Period: time.Minute, Limit: int64(perMinute)}
	l := limiter.New(store, rate)

	mw := stdlib.NewMiddleware(l,
		stdlib.WithKeyGetter(func(r *http.Request) string {
			return name + ":" + clientIP(r)
		}),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			slog.Warn("ratelimit: limit reached",
				"limit", name,
				"path", r.URL.Path,
				"ip", clientIP(r),
			)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(rate.Period.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"rate limit exceeded","code":"RATE001"}`))
		}),
		stdlib.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
			slog.Error("ratelimit: store error", "limit", name, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"error":"Internal server error"}`))
		}),
	)
	return mw.Handler
}

// clientIP is RemoteAddr without the port. TrustedRealIP runs first and
// has already replaced RemoteAddr for proxied requests.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
