// Package adminapi exposes a small read-only HTTP surface for operators:
// liveness, Prometheus metrics, account usage, and crawler progress. It
// is not the storage wire protocol (that is pkg/facade's concern, served
// over whatever RPC transport a caller wires up) — this is purely an
// operational surface, grounded on the teacher's pkg/api/router.go and
// pkg/controlplane/api/router.go chi setups.
package adminapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/public/tahoe-lafs/internal/logger"
	"github.com/public/tahoe-lafs/pkg/accountant"
	"github.com/public/tahoe-lafs/pkg/crawler"
)

// Deps are the components the admin surface reports on. Registry may be
// nil, in which case /metrics is not mounted.
type Deps struct {
	Accountant *accountant.Accountant
	Crawler    *crawler.Crawler
	Registry   *prometheus.Registry
}

// NewRouter builds the admin HTTP handler.
//
// Routes:
//   - GET /healthz          - liveness probe
//   - GET /metrics          - Prometheus exposition (omitted if Registry is nil)
//   - GET /accounts         - every known account and its current usage
//   - GET /crawler/status   - the accounting crawler's persisted progress
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", healthHandler)

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	h := &handlers{accountant: deps.Accountant, crawler: deps.Crawler}
	r.Get("/accounts", h.listAccounts)
	r.Get("/crawler/status", h.crawlerStatus)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// requestLogger mirrors the teacher's request-logging middleware, using
// this package's own logger rather than a per-request access log file.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Debug("adminapi: request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		)
	})
}
