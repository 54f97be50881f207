// Package metrics exports Prometheus metrics for the break scheduler.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"restbreak/internal/core/scheduler"
)

var (
	ModeTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "restbreak_mode_transitions_total",
			Help: "Presence mode transitions, labeled by the mode entered",
		},
		[]string{"mode"},
	)

	IdleResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "restbreak_idle_resets_total",
			Help: "Countdown resets triggered by user idleness",
		},
	)

	SnapshotFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "restbreak_snapshot_failures_total",
			Help: "State snapshot writes that failed",
		},
	)

	PresenceMode = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "restbreak_presence_mode",
			Help: "Current presence mode (1 for the active label, 0 otherwise)",
		},
		[]string{"mode"},
	)

	ElapsedActiveSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "restbreak_elapsed_active_seconds",
			Help: "Active time accumulated toward the next break",
		},
	)

	OverdueSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "restbreak_overdue_seconds",
			Help: "Time a due break has been suppressed by mute",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ModeTransitionsTotal,
		IdleResetsTotal,
		SnapshotFailuresTotal,
		PresenceMode,
		ElapsedActiveSeconds,
		OverdueSeconds,
	)
}

var allModes = []scheduler.ModeKind{
	scheduler.KindNormal,
	scheduler.KindPreBreak,
	scheduler.KindBreak,
	scheduler.KindSnoozed,
	scheduler.KindMuted,
}

// Recorder folds scheduler events into the exported metrics. It must
// be fed from a single goroutine.
type Recorder struct {
	lastMode scheduler.ModeKind
}

// NewRecorder creates a recorder primed with the starting mode so the
// first event does not count as a transition.
func NewRecorder(initial scheduler.ModeKind) *Recorder {
	recorder := &Recorder{lastMode: initial}
	recorder.setMode(initial)
	return recorder
}

// Observe records one scheduler event.
func (recorder *Recorder) Observe(event scheduler.Event) {
	mode := event.State.Mode.Kind()
	if mode != recorder.lastMode {
		ModeTransitionsTotal.WithLabelValues(string(mode)).Inc()
		recorder.setMode(mode)
		recorder.lastMode = mode
	}
	if event.Type == scheduler.EventIdleReset {
		IdleResetsTotal.Inc()
	}
	ElapsedActiveSeconds.Set(event.State.ElapsedActive.Seconds())
	OverdueSeconds.Set(event.State.Overdue.Seconds())
}

func (recorder *Recorder) setMode(mode scheduler.ModeKind) {
	for _, candidate := range allModes {
		value := 0.0
		if candidate == mode {
			value = 1.0
		}
		PresenceMode.WithLabelValues(string(candidate)).Set(value)
	}
}

// Server is the metrics HTTP server.
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a metrics server bound to addr.
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
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

// Start serves metrics in the background.
func (s *Server) Start() {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("metrics server error")
		}
	}()
}

// Stop shuts the metrics server down.
func (s *Server) Stop() error {
	s.logger.Info().Msg("stopping metrics server")
	return s.server.Close()
}
