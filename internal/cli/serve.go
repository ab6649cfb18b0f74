package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ppiankov/pinwatch/internal/config"
	"github.com/ppiankov/pinwatch/internal/history"
	"github.com/ppiankov/pinwatch/internal/metrics"
	"github.com/ppiankov/pinwatch/internal/monitor"
	"github.com/ppiankov/pinwatch/internal/telemetry"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 120 * time.Second
	defaultConfigPath = "/etc/pinwatch/config.yaml"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a long-running service with /metrics",
	Long: `Start pinwatch as a long-running service.

Runs a background validation loop against every configured host and
serves results over HTTP.

Endpoints:
  /metrics           Prometheus scrape endpoint
  /healthz           Liveness probe (returns 503 if the last cycle is stale)
  /api/v1/status     JSON report of the latest validation cycle
  /api/v1/history    Recent validations (requires --history-db)
  /api/v1/trend      Trust-score trend for one host (requires --history-db)
  /api/v1/errors     Stored validation errors by kind (requires --history-db)`,
	Example: `  # Run with default config
  pinwatch serve

  # Run with custom config file
  pinwatch serve --config /etc/pinwatch/config.yaml

  # Override listen address
  pinwatch serve --listen :9090

  # Keep a validation history in SQLite
  pinwatch serve --history-db /var/lib/pinwatch/history.db

  # Run with JSON logging for log aggregation
  pinwatch serve --log-format json --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("config", defaultConfigPath, "Path to config file")
	serveCmd.Flags().String("listen", "", "Listen address (overrides config)")
	serveCmd.Flags().String("history-db", "", "Path to SQLite history database (enables /api/v1/history and /api/v1/trend)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	// Load config
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	cfg := config.Defaults()
	if cfgPath != "" {
		if _, statErr := os.Stat(cfgPath); statErr == nil {
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
		} else if cfgPath != defaultConfigPath {
			// Non-default path that doesn't exist is an error
			return fmt.Errorf("config file not found: %s", cfgPath)
		}
	}
	if len(cfg.Hosts) == 0 {
		return fmt.Errorf("no hosts configured in %s", cfgPath)
	}

	// Override listen addr from flag
	listenFlag, _ := cmd.Flags().GetString("listen") //nolint:errcheck // flag registered above
	if listenFlag != "" {
		cfg.ListenAddr = listenFlag
	}

	// Override history DB from flag
	historyDB, _ := cmd.Flags().GetString("history-db") //nolint:errcheck // flag registered above
	if historyDB != "" {
		cfg.HistoryDB = historyDB
	}

	// Open history store if configured
	var histStore *history.Store
	if cfg.HistoryDB != "" {
		var histErr error
		histStore, histErr = history.Open(cfg.HistoryDB)
		if histErr != nil {
			return fmt.Errorf("opening history database: %w", histErr)
		}
		defer histStore.Close() //nolint:errcheck // best-effort cleanup on shutdown
		slog.Info("history storage enabled", "path", cfg.HistoryDB)
	}

	// Initialize tracing
	otelEndpoint, _ := cmd.Flags().GetString("otel-endpoint") //nolint:errcheck // flag registered above
	tracer, tracerShutdown, tracerErr := telemetry.InitTracer(context.Background(), telemetry.Config{
		Endpoint:    otelEndpoint,
		Version:     version,
		Mode:        cfg.Mode,
		PinnedHosts: len(cfg.Hosts),
	})
	if tracerErr != nil {
		slog.Warn("initializing tracer", "err", tracerErr)
	} else {
		defer tracerShutdown(context.Background()) //nolint:errcheck // best-effort flush
	}

	v, err := buildValidator(cfg, tracer)
	if err != nil {
		return err
	}
	dialFn, err := buildDialer(cfg)
	if err != nil {
		return err
	}

	// Shared state: mutex-protected latest report
	var mu sync.RWMutex
	var current monitor.Report

	getReport := func() monitor.Report {
		mu.RLock()
		defer mu.RUnlock()
		return current
	}

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// HTTP server
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", healthzHandler(getReport, 2*cfg.RefreshEvery))
	mux.HandleFunc("/api/v1/status", statusHandler(getReport))
	if histStore != nil {
		mux.HandleFunc("/api/v1/history", historyHandler(histStore))
		mux.HandleFunc("/api/v1/trend", trendHandler(histStore))
		mux.HandleFunc("/api/v1/errors", errorKindsHandler(histStore))
	}
	mux.Handle(cfg.MetricsPath, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Background validation loop
	cycle := func() {
		start := time.Now()
		report := runAll(ctx, cfg, v, dialFn)
		duration := time.Since(start)

		mu.Lock()
		current = report
		mu.Unlock()

		collector.Update(v.Metrics())

		if histStore != nil {
			for i := range report.Results {
				if saveErr := histStore.Save(&report.Results[i]); saveErr != nil {
					slog.Error("saving validation history", "err", saveErr)
				}
			}
		}

		var failed int
		for i := range report.Results {
			if !report.Results[i].IsValid {
				failed++
			}
		}
		slog.Info("validation cycle complete", "hosts", len(cfg.Hosts),
			"failed", failed, "probe_errors", len(report.Errors),
			"duration", duration.Round(time.Millisecond))
	}

	// Run initial cycle
	cycle()

	// Start periodic validation loop
	go func() {
		ticker := time.NewTicker(cfg.RefreshEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("cycle panic recovered", "panic", r)
						}
					}()
					cycle()
				}()
			}
		}
	}()

	// Start HTTP server
	srvErr := make(chan error, 1)
	go func() {
		slog.Info("pinwatch serve listening", "version", version, "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		return err
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// healthzHandler reports 503 once the latest cycle is older than maxAge.
func healthzHandler(getReport func() monitor.Report, maxAge time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		r := getReport()
		if r.At.IsZero() || time.Since(r.At) > maxAge {
			http.Error(w, "validation cycle stale", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok")) //nolint:errcheck // best-effort health response
	}
}

func statusHandler(getReport func() monitor.Report) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		r := getReport()
		w.Header().Set("Content-Type", "application/json")
		if err := monitor.WriteJSON(w, r, monitor.ExitCode(r)); err != nil {
			slog.Error("writing status response", "err", err)
		}
	}
}

func historyHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		limit := queryLimit(req, 100)
		rows, err := hs.Recent(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, rows)
	}
}

func trendHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		hostname := req.URL.Query().Get("hostname")
		if hostname == "" {
			http.Error(w, "hostname query parameter is required", http.StatusBadRequest)
			return
		}
		limit := queryLimit(req, 50)
		points, err := hs.Trend(hostname, limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, points)
	}
}

// errorKindsHandler summarizes every stored validation error by kind.
func errorKindsHandler(hs *history.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		kinds, err := hs.ErrorKinds()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, kinds)
	}
}

func queryLimit(req *http.Request, def int) int {
	raw := req.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		slog.Error("encoding response", "err", err)
	}
}
