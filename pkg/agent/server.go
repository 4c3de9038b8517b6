package agent

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/caduceuspress/pulse/pkg/clientinfo"
	"github.com/caduceuspress/pulse/pkg/observability"
)

// Server routes the agent's HTTP surface.
type Server struct {
	router  *mux.Router
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewServer assembles the router: ingestion and dashboard endpoints plus
// the health and metrics probes. Any handler group may be nil, in which
// case its routes are not registered.
func NewServer(track *TrackHandlers, stats *StatsHandlers, health *observability.HealthChecker, metrics *observability.Metrics, logger *observability.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		metrics: metrics,
	}

	s.router.Use(s.requestLog)
	s.router.Use(clientContext)

	if track != nil {
		track.RegisterRoutes(s.router)
	}
	if stats != nil {
		stats.RegisterRoutes(s.router)
	}
	if health != nil {
		s.router.HandleFunc("/healthz", health.Liveness).Methods("GET")
		s.router.HandleFunc("/readyz", health.Readiness).Methods("GET")
	}
	if metrics != nil {
		s.router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// clientContext stores the posting client's snapshot in the request
// context for the collector to pick up.
func clientContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := clientinfo.NewContext(r.Context(), clientinfo.FromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   clientinfo.ClientIP(r),
		}).Debug("request handled")
	})
}
