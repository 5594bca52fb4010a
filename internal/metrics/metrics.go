// Package metrics defines the Prometheus metrics and serves them.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Backup metrics
	BackupsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baralga_backups_created_total",
			Help: "Total backups written, by trigger",
		},
		[]string{"trigger"},
	)

	BackupsSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "baralga_backups_skipped_total",
			Help: "Backups skipped because the data file was unchanged",
		},
	)

	BackupFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baralga_backup_failures_total",
			Help: "Backup operations that failed",
		},
		[]string{"stage"},
	)

	BackupsPruned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "baralga_backups_pruned_total",
			Help: "Old backup files deleted by retention",
		},
	)

	BackupDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "baralga_backup_duration_seconds",
			Help:    "Time spent writing a backup",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)

	// Tracking metrics
	ActivitiesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "baralga_activities_recorded_total",
			Help: "Activities recorded",
		},
		[]string{"source"},
	)

	HoursRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "baralga_hours_recorded_total",
			Help: "Hours booked through recorded activities",
		},
	)

	ActivityRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "baralga_activity_running",
			Help: "1 while an activity is being tracked",
		},
	)
)

func init() {
	prometheus.MustRegister(
		BackupsCreated,
		BackupsSkipped,
		BackupFailures,
		BackupsPruned,
		BackupDuration,
		ActivitiesRecorded,
		HoursRecorded,
		ActivityRunning,
	)
}

// HealthCheck reports whether the service is healthy.
type HealthCheck func(ctx context.Context) error

// Server serves /metrics and /health.
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // pre-created by systemd socket activation
}

// NewServer creates a metrics server. check may be nil.
func NewServer(addr string, check HealthCheck, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start binds the listener and serves in the background. Bind errors are
// returned directly.
func (s *Server) Start() error {
	ln := s.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", s.server.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", s.server.Addr, err)
		}
	}

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Metrics server listening")
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop shuts the server down, waiting for in-flight scrapes.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Shutdown(ctx)
}
