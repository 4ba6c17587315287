package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type panicMount struct{}

func (panicMount) Mount(r chi.Router) {
	r.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestNewRouter_StaticFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, LoginPage), []byte("<h1>login</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hunt.js"), []byte("let x = 1"), 0o644))

	h := NewRouter(zerolog.Nop(), RouterOptions{StaticDir: dir})

	rec := serve(h, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "login")

	rec = serve(h, "/hunt.js")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "let x = 1", rec.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(h, "/nope.css").Code)
}

func TestNewRouter_MissingLoginPage(t *testing.T) {
	h := NewRouter(zerolog.Nop(), RouterOptions{StaticDir: t.TempDir()})
	assert.Equal(t, http.StatusNotFound, serve(h, "/").Code)
}

func TestNewRouter_HealthReadinessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "hunt_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	h := NewRouter(zerolog.Nop(), RouterOptions{
		Gatherer: reg,
		Checks: map[string]Check{
			"redis":    func(context.Context) error { return nil },
			"postgres": func(context.Context) error { return errors.New("connection refused") },
		},
	})

	rec := serve(h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = serve(h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"service_unavailable","message":"dependency unavailable","details":{"redis":"ok","postgres":"down"}}`, rec.Body.String())

	rec = serve(h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hunt_test_total 1")
}

func TestNewRouter_RecoversPanics(t *testing.T) {
	h := NewRouter(zerolog.Nop(), RouterOptions{Mounts: []Mounter{panicMount{}}})
	rec := serve(h, "/boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
