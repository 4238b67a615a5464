package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ChatTurns counts processed chat turns by resolved intent.
	ChatTurns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_turns_total",
		Help: "Chat turns processed, labelled by resolved intent.",
	}, []string{"intent"})

	// ChatTurnDuration observes end-to-end turn latency by intent.
	ChatTurnDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_turn_duration_seconds",
		Help:    "End-to-end chat turn duration.",
		Buckets: prometheus.DefBuckets,
	}, []string{"intent"})

	// DetectAlerts counts alerts produced by the detection engine.
	DetectAlerts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detect_alerts_total",
		Help: "Alerts produced by the detection engine.",
	}, []string{"kind", "severity"})

	// DetectFallback counts detection passes that used the rule-based path.
	DetectFallback = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "detect_fallback_total",
		Help: "Detection passes that fell back to the rule-based path.",
	}, []string{"kind"})

	// StreamEvents counts events emitted by the agent stream client.
	StreamEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_events_total",
		Help: "Events emitted by the agent stream client.",
	}, []string{"type"})

	// WarehouseQueries counts warehouse queries by outcome.
	WarehouseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warehouse_queries_total",
		Help: "Warehouse queries, labelled ok, unavailable or retried.",
	}, []string{"outcome"})
)

// Server exposes the default Prometheus registry over HTTP.
type Server struct {
	srv *http.Server
}

// Serve starts the metrics listener on addr. It returns immediately; the
// listener runs until Shutdown is called.
func Serve(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	s := &Server{srv: &http.Server{Addr: addr, Handler: mux}}
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics.listener.failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("metrics.listener.start", "addr", addr)
	return s
}

// Shutdown stops the metrics listener.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
