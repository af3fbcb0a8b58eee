package api

import (
	"net/http"
	"strconv"
	"time"

	"onu-map/internal/domain"
	"onu-map/internal/metrics"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the HTTP boundary settings
type RouterConfig struct {
	CORSOrigins        []string
	RateLimitPerMinute int
}

// NewRouter wires every route of the map API. ws may be nil, in which case
// the live stream route is not served.
func NewRouter(handler *Handler, ws http.Handler, config RouterConfig, logger domain.Observability) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		if config.RateLimitPerMinute > 0 {
			r.Use(httprate.LimitByIP(config.RateLimitPerMinute, time.Minute))
		}

		r.Get("/onus", handler.ListDevices)
		r.Get("/onus/map", handler.ListMapDevices)
		r.Get("/onus/{id}", handler.GetDevice)
		r.Get("/odbs", handler.ListBoxes)
		r.Get("/stats", handler.Statistics)
		r.Get("/events", handler.RecentEvents)
		r.Get("/quota", handler.QuotaStatus)
		r.Get("/olts", handler.ListOLTs)

		r.Delete("/cache", handler.FlushCache)
		r.Delete("/cache/{key}", handler.InvalidateCache)

		if ws != nil {
			r.Get("/ws", ws.ServeHTTP)
		}
	})

	return r
}

// requestLogger logs and measures every request by its route pattern
func requestLogger(logger domain.Observability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			duration := time.Since(start)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}

			metrics.RecordAPIRequest(r.Method, route, strconv.Itoa(status), duration)
			logger.API(r.Method, r.URL.Path, r.RemoteAddr, status, duration)
		})
	}
}
