package main

import (
	"log/slog"
	"net/http"

	"github.com/OCAP2/tactical/internal/monitor"
)

func serveMetrics(addr string, collector *monitor.Collector, log *slog.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn("metrics server exited", "error", err)
		}
	}()

	log.Info("serving Prometheus metrics", "addr", addr)
	return srv
}
