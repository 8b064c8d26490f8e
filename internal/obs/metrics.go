// Copyright 2025 James Ross
package obs

import (
	"fmt"
	"net/http"

	"github.com/flyingrobots/orizuru/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PayloadsProduced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orizuru_payloads_produced_total",
		Help: "Total number of payloads pushed onto source queues",
	})
	PayloadsClaimed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orizuru_payloads_claimed_total",
		Help: "Total number of payloads claimed by consumers via BRPOPLPUSH",
	})
	PayloadsAcked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orizuru_payloads_acked_total",
		Help: "Total number of payloads acknowledged",
	})
	PayloadsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orizuru_payloads_rejected_total",
		Help: "Total number of payloads rejected or auto-rescued into the unack queue",
	})
	DecodeErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orizuru_decode_errors_total",
		Help: "Total number of payloads that failed to decode",
	})
	GCRecovered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orizuru_gc_recovered_total",
		Help: "Total number of payloads moved from unacked back to processing by the GC",
	})
	CircuitBreakerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "orizuru_circuit_breaker_state",
		Help: "0 Closed, 1 HalfOpen, 2 Open",
	})
	QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "orizuru_queue_length",
		Help: "Current length of a managed Redis list",
	}, []string{"queue"})
)

func init() {
	prometheus.MustRegister(PayloadsProduced, PayloadsClaimed, PayloadsAcked, PayloadsRejected, DecodeErrors, GCRecovered, CircuitBreakerState, QueueLength)
}

// StartMetricsServer exposes /metrics and returns a server for controlled
// shutdown. Prefer StartHTTPServer, which also registers health endpoints.
func StartMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
