package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pinwatch/internal/config"
	"github.com/ppiankov/pinwatch/internal/monitor"
	"github.com/ppiankov/pinwatch/internal/telemetry"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Validate configured hosts and browse results in a TUI",
	Long: `Probe every configured host, validate the presented chain against the
configured pins, and browse the results interactively.

Keys:
  up/down  Move selection
  /        Filter by hostname
  q, esc   Quit`,
	Example: `  pinwatch monitor --config pins.yaml
  pinwatch monitor --config pins.yaml --check-revocation`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().String("config", "", "Path to config file (required)")
	monitorCmd.Flags().Bool("check-revocation", false, "Check certificate revocation via OCSP/CRL")
	_ = monitorCmd.MarkFlagRequired("config") //nolint:errcheck // flag registered above
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	revFlag, _ := cmd.Flags().GetBool("check-revocation") //nolint:errcheck // flag registered above
	if revFlag {
		cfg.CheckRevocation = true
	}

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

	report := runAll(context.Background(), cfg, v, dialFn)
	return monitor.Run(report)
}
