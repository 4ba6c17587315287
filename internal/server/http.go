package server

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/photo-hunt/internal/config"
	"github.com/gokatarajesh/photo-hunt/internal/logging"
	httperrors "github.com/gokatarajesh/photo-hunt/pkg/http/errors"
)

// LoginPage is served at / from the static directory.
const LoginPage = "login.html"

// Mounter registers a component's routes.
type Mounter interface {
	Mount(r chi.Router)
}

// Check pings one dependency for /readyz.
type Check func(ctx context.Context) error

// RouterOptions collects everything NewRouter wires.
type RouterOptions struct {
	StaticDir string
	Gatherer  prometheus.Gatherer
	Checks    map[string]Check
	Mounts    []Mounter
}

// NewRouter builds the chi router: middleware, health, metrics, the API
// components and the static login page.
func NewRouter(logger zerolog.Logger, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", readiness(opts.Checks))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	for _, m := range opts.Mounts {
		m.Mount(r)
	}

	if opts.StaticDir != "" {
		mountStatic(r, opts.StaticDir)
	}
	return r
}

func mountStatic(r chi.Router, dir string) {
	files := http.FileServer(http.Dir(dir))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		path := filepath.Join(dir, LoginPage)
		if _, err := os.Stat(path); err != nil {
			httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "Not Found")
			return
		}
		http.ServeFile(w, req, path)
	})
	r.Get("/*", files.ServeHTTP)
}

func readiness(checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger := logging.FromContext(r.Context())
				logger.Error().Err(err).Str("dependency", name).Msg("dependency ping failed")
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "ok"
		}
		if !healthy {
			details := make(map[string]interface{}, len(status))
			for k, v := range status {
				details[k] = v
			}
			httperrors.RespondErrorWithDetails(w, http.StatusServiceUnavailable, httperrors.ErrCodeServiceUnavailable,
				"dependency unavailable", details)
			return
		}
		httperrors.RespondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "checks": status})
	}
}

// NewHTTPServer wraps handler with the configured address and timeouts.
func NewHTTPServer(cfg *config.App, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}
