package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	return rec
}

func TestServer_Probes(t *testing.T) {
	logger := zerolog.Nop()
	healthy := NewServer(pingerFunc(func(context.Context) error { return nil }), 0, &logger).Handler()
	broken := NewServer(pingerFunc(func(context.Context) error { return errors.New("connection refused") }), 0, &logger).Handler()

	assert.Equal(t, http.StatusOK, serve(t, healthy, http.MethodGet, "/healthz").Code)
	assert.Equal(t, http.StatusOK, serve(t, healthy, http.MethodGet, "/readyz").Code)

	rec := serve(t, broken, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")

	assert.Equal(t, http.StatusOK, serve(t, broken, http.MethodGet, "/healthz").Code, "liveness ignores the database")
}

func TestServer_Metrics(t *testing.T) {
	logger := zerolog.Nop()
	DedupChecks.WithLabelValues("none").Inc()

	rec := serve(t, NewServer(nil, 0, &logger).Handler(), http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dedup_checks_total")
}

func TestServer_ExtraRoutes(t *testing.T) {
	logger := zerolog.Nop()
	route := Route{
		Pattern: "/v1/detect",
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}),
	}

	rec := serve(t, NewServer(nil, 0, &logger, route).Handler(), http.MethodPost, "/v1/detect")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
