// Package metrics exposes planner counters in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	Rollovers = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dailytasks",
		Name:      "rollovers_total",
		Help:      "Pending tasks whose deadline was moved to the next day.",
	})
	RecurrencesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dailytasks",
		Name:      "recurrences_generated_total",
		Help:      "Task instances created from recurrence templates.",
	})
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "dailytasks",
		Name:      "store_errors_total",
		Help:      "Failed persistence calls by operation.",
	}, []string{"op"})
	DailyRuns = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "dailytasks",
		Name:      "daily_runs_total",
		Help:      "Executions of the daily rollover and recurrence job.",
	})
)

// Handler serves /metrics from the default registry.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, log zerolog.Logger) error {
	srv := &http.Server{Addr: addr, Handler: Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Msg("metrics listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
