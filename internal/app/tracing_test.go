package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/JonMunkholm/menuimport/internal/config"
)

func restoreTracerProvider(t *testing.T) {
	t.Helper()
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
}

func TestSetupTracing_DisabledKeepsGlobalProvider(t *testing.T) {
	restoreTracerProvider(t)
	before := otel.GetTracerProvider()

	stop, err := SetupTracing(context.Background(), config.Default().Tracing)
	require.NoError(t, err)
	require.NoError(t, stop(context.Background()))
	require.Equal(t, before, otel.GetTracerProvider())
}

func TestSetupTracing_ExportsSpansOnShutdown(t *testing.T) {
	restoreTracerProvider(t)

	var posts atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			posts.Add(1)
		}
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	cfg := config.Default().Tracing
	cfg.Enabled = true
	cfg.Endpoint = strings.TrimPrefix(collector.URL, "http://")

	ctx := context.Background()
	stop, err := SetupTracing(ctx, cfg)
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok, "global provider is %T", otel.GetTracerProvider())

	_, span := otel.Tracer("test").Start(ctx, "core.ImportRestaurants")
	span.End()

	require.NoError(t, stop(ctx))
	require.Equal(t, int32(1), posts.Load())
}
