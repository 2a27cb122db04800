package api

import (
	"encoding/json"
	"net/http"

	"github.com/patrickwarner/admediator/internal/mediation"
	"github.com/patrickwarner/admediator/internal/middleware"
	"github.com/patrickwarner/admediator/internal/observability"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// Server groups dependencies for HTTP handlers.
type Server struct {
	Logger      *zap.Logger
	Coordinator *mediation.Coordinator
	Metrics     observability.MetricsRegistry
}

// NewServer constructs a Server.
func NewServer(logger *zap.Logger, coordinator *mediation.Coordinator, metrics observability.MetricsRegistry) *Server {
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Server{
		Logger:      logger,
		Coordinator: coordinator,
		Metrics:     metrics,
	}
}

// Router registers every route on a gorilla/mux router.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.WithTraceLogger(s.Logger), middleware.AccessLog(s.Logger))

	r.HandleFunc("/health", s.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler())

	units := r.PathPrefix("/units").Subrouter()
	units.HandleFunc("", s.ListUnitsHandler).Methods("GET")
	units.HandleFunc("/{id}", s.GetUnitHandler).Methods("GET")
	units.HandleFunc("/{id}/request", s.RequestHandler).Methods("POST")
	units.HandleFunc("/{id}/show", s.ShowHandler).Methods("POST")
	units.HandleFunc("/{id}/destroy", s.DestroyHandler).Methods("POST")
	units.HandleFunc("/{id}/rewards", s.RewardsHandler).Methods("GET")
	units.HandleFunc("/{id}/reward", s.SelectRewardHandler).Methods("POST")
	return r
}

// Handler returns the router wrapped in OpenTelemetry instrumentation.
func (s *Server) Handler(serviceName string) http.Handler {
	return otelhttp.NewHandler(s.Router(), serviceName)
}

// helper function to write JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}
