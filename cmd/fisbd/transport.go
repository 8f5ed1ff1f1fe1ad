package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fisbd/internal/capture"
)

// dialNATSSource wraps capture.DialNATS so runDaemon can treat the NATS
// fan-in path as just another capture.Source implementation.
func dialNATSSource(url, subject string) (*capture.NATSSource, error) {
	return capture.DialNATS(capture.NATSConfig{URL: url, Subject: subject})
}

// serveMetrics exposes the default Prometheus registry on addr until the
// process exits; fisbd registers every collector against
// prometheus.DefaultRegisterer via metrics.New, so this needs no reference
// to the *metrics.Metrics value itself.
func serveMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	return srv.ListenAndServe()
}
