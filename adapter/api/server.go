// Package api exposes the availability and booking engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	bookingApp "github.com/slotwise/slotwise/internal/booking/application"
	schedulingApp "github.com/slotwise/slotwise/internal/scheduling/application"
	"github.com/slotwise/slotwise/pkg/observability"
)

// Server is the public HTTP API server.
type Server struct {
	mux          *http.ServeMux
	server       *http.Server
	logger       *slog.Logger
	availability *AvailabilityHandler
	bookings     *BookingHandler
	metrics      observability.Metrics
	health       *observability.HealthRegistry
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "0.0.0.0:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig, availability *AvailabilityHandler, bookings *BookingHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	s := &Server{
		mux:          mux,
		logger:       logger,
		availability: availability,
		bookings:     bookings,
		metrics:      observability.NoopMetrics{},
	}
	s.registerRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      requestContext(logger, s.metrics, s.mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// SetMetrics replaces the metrics sink. Call before Start.
func (s *Server) SetMetrics(m observability.Metrics) {
	if m == nil {
		return
	}
	s.metrics = m
	s.server.Handler = requestContext(s.logger, m, s.mux)
}

// SetHealthRegistry enables dependency checks on the health endpoint.
func (s *Server) SetHealthRegistry(registry *observability.HealthRegistry) {
	s.health = registry
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/v1/availability", s.availability.GetAvailability)

	s.mux.HandleFunc("POST /api/v1/bookings", s.bookings.CreateBooking)
	s.mux.HandleFunc("GET /api/v1/bookings/upcoming", s.bookings.ListUpcoming)
	s.mux.HandleFunc("GET /api/v1/bookings/{token}", s.bookings.GetBooking)
	s.mux.HandleFunc("POST /api/v1/bookings/{token}/cancel", s.bookings.CancelBooking)
	s.mux.HandleFunc("POST /api/v1/bookings/{token}/reschedule", s.bookings.RescheduleBooking)
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health == nil {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	overall := s.health.GetOverallHealth(r.Context())
	status := http.StatusOK
	if overall.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, overall)
}

// Start starts the API server.
func (s *Server) Start() error {
	s.logger.Info("starting booking API server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down booking API server")
	return s.server.Shutdown(ctx)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", "error", err)
		}
	}
}

// errorBody is the uniform error envelope.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// writeTypedError maps the application error taxonomy onto HTTP statuses.
func writeTypedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, bookingApp.ErrValidation),
		errors.Is(err, schedulingApp.ErrUnknownTimezone):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation_error", Message: err.Error()})
	case errors.Is(err, bookingApp.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found", Message: err.Error()})
	case errors.Is(err, bookingApp.ErrSlotUnavailable):
		writeJSON(w, http.StatusConflict, errorBody{Error: "slot_unavailable", Message: err.Error()})
	case errors.Is(err, bookingApp.ErrRateLimited):
		writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate_limited", Message: err.Error()})
	default:
		// Never leak internals to the caller.
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal_error", Message: "internal error"})
	}
}

// clientIP extracts the originating address for rate limiting.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
