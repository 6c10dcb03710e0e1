// Package server assembles the HTTP surface: Connect services mounted on a
// chi router, plus health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/housesplit/internal/api"
	"github.com/mmynk/housesplit/internal/events"
	"github.com/mmynk/housesplit/internal/guard"
	"github.com/mmynk/housesplit/internal/metrics"
	"github.com/mmynk/housesplit/internal/middleware"
	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/internal/projection"
	"github.com/mmynk/housesplit/internal/service"
	"github.com/mmynk/housesplit/internal/storage"
)

// Deps are the collaborators the router serves.
type Deps struct {
	Store     storage.Store
	Projector *projection.Projector
	Guard     *guard.Guard
	Metrics   *metrics.Metrics
	Publisher events.Publisher
	Roster    models.Roster
	Location  *time.Location
}

// pinger is implemented by stores with a remote connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter mounts every service. The result must be wrapped with H2C to
// serve gRPC clients over cleartext HTTP/2.
func NewRouter(d Deps) http.Handler {
	interceptors := []connect.Interceptor{middleware.LoggingInterceptor()}
	if d.Metrics != nil {
		interceptors = append(interceptors, middleware.MetricsInterceptor(d.Metrics))
	}
	interceptors = append(interceptors,
		middleware.DeleteCapability(d.Guard, api.ExpenseServiceDeleteExpenseProcedure))
	opts := connect.WithInterceptors(interceptors...)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(corsMiddleware)

	mount := func(path string, h http.Handler) {
		r.Handle(path+"*", h)
	}
	mount(api.NewExpenseServiceHandler(service.NewExpenseService(d.Store, d.Roster, d.Guard, d.Publisher, d.Location), opts))
	mount(api.NewBalanceServiceHandler(service.NewBalanceService(d.Projector, d.Store, d.Location), opts))
	mount(api.NewRosterServiceHandler(service.NewRosterService(d.Store, d.Roster), opts))

	r.Get("/healthz", healthHandler(d))
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	return r
}

// H2C wraps h for HTTP/2 without TLS.
func H2C(h http.Handler) http.Handler {
	return h2c.NewHandler(h, &http2.Server{})
}

type health struct {
	Status     string `json:"status"`
	Generation uint64 `json:"generation"`
	Error      string `json:"error,omitempty"`
}

func healthHandler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := health{Status: "ok", Generation: d.Projector.Generation()}
		code := http.StatusOK

		if p, ok := d.Store.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				slog.Warn("Health check failed", "error", err)
				resp.Status, resp.Error = "unavailable", err.Error()
				code = http.StatusServiceUnavailable
			}
		}
		if resp.Generation == 0 && code == http.StatusOK {
			resp.Status = "starting"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// corsMiddleware adds CORS headers for browser access
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Connect-Protocol-Version, Connect-Timeout-Ms")
		w.Header().Set("Access-Control-Expose-Headers", "Connect-Protocol-Version, Connect-Timeout-Ms")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
