package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pinwatch/internal/config"
	"github.com/ppiankov/pinwatch/internal/engine"
	"github.com/ppiankov/pinwatch/internal/extract"
	"github.com/ppiankov/pinwatch/internal/monitor"
	"github.com/ppiankov/pinwatch/internal/telemetry"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate configured hosts once and exit with a code",
	Long: `Probe every configured host, validate the presented chain against the
configured pins, and exit with a code based on the outcome. Designed for
CI/CD pipelines and cron — no TUI, just validate → report → exit code.

Exit codes:
  0  Every host validated successfully
  1  At least one host failed pin validation
  3  Probe or chain-extraction errors prevented a complete run`,
	Example: `  # Validate all configured hosts
  pinwatch check --config pins.yaml

  # Validate a single host
  pinwatch check --config pins.yaml --host api.example.com

  # Validate a local PEM chain instead of probing
  pinwatch check --config pins.yaml --host api.example.com --pem chain.pem

  # JSON output for pipeline parsing
  pinwatch check --config pins.yaml -o json

  # Quiet mode — exit code only
  pinwatch check --config pins.yaml --quiet`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().String("config", "", "Path to config file (required)")
	checkCmd.Flags().String("host", "", "Validate only this configured hostname")
	checkCmd.Flags().String("pem", "", "Validate a PEM chain file instead of probing (requires --host)")
	checkCmd.Flags().String("mode", "", "Override decision mode: strict, anyPin, backup, graceful")
	checkCmd.Flags().Bool("check-revocation", false, "Check certificate revocation via OCSP/CRL")
	checkCmd.Flags().StringP("output", "o", "", "Output format: json, table (default: table)")
	checkCmd.Flags().BoolP("quiet", "q", false, "Suppress output, exit code only")
	_ = checkCmd.MarkFlagRequired("config") //nolint:errcheck // flag registered above
}

func runCheck(cmd *cobra.Command, _ []string) error {
	cfgPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	modeFlag, _ := cmd.Flags().GetString("mode") //nolint:errcheck // flag registered above
	if modeFlag != "" {
		cfg.Mode = modeFlag
		if _, err := cfg.ParseMode(); err != nil {
			return err
		}
	}
	revFlag, _ := cmd.Flags().GetBool("check-revocation") //nolint:errcheck // flag registered above
	if revFlag {
		cfg.CheckRevocation = true
	}

	hostFlag, _ := cmd.Flags().GetString("host") //nolint:errcheck // flag registered above
	if hostFlag != "" {
		var kept []config.Host
		for i := range cfg.Hosts {
			if cfg.Hosts[i].Hostname == hostFlag {
				kept = append(kept, cfg.Hosts[i])
			}
		}
		if len(kept) == 0 {
			return fmt.Errorf("host %q is not configured", hostFlag)
		}
		cfg.Hosts = kept
	}

	pemPath, _ := cmd.Flags().GetString("pem") //nolint:errcheck // flag registered above
	if pemPath != "" && hostFlag == "" {
		return fmt.Errorf("--pem requires --host")
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

	ctx := context.Background()
	var report monitor.Report
	if pemPath != "" {
		report = checkPEM(ctx, v, hostFlag, pemPath)
	} else {
		dialFn, dialErr := buildDialer(cfg)
		if dialErr != nil {
			return dialErr
		}
		report = runAll(ctx, cfg, v, dialFn)
	}

	exitCode := monitor.ExitCode(report)

	outputFlag, _ := cmd.Flags().GetString("output") //nolint:errcheck // flag registered above
	quiet, _ := cmd.Flags().GetBool("quiet")         //nolint:errcheck // flag registered above

	if outputFlag != "" && outputFlag != "json" && outputFlag != "table" {
		return fmt.Errorf("invalid --output value %q: must be json or table", outputFlag)
	}

	if !quiet {
		switch outputFlag {
		case "json":
			if err := monitor.WriteJSON(os.Stdout, report, exitCode); err != nil {
				return fmt.Errorf("writing JSON output: %w", err)
			}
		default:
			fmt.Print(monitor.PlainText(report))
		}
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

// checkPEM validates a local PEM chain file for one hostname.
func checkPEM(ctx context.Context, v *engine.Validator, hostname, pemPath string) monitor.Report {
	report := monitor.Report{At: time.Now(), Errors: make(map[string]string)}

	data, err := os.ReadFile(pemPath)
	if err != nil {
		report.Errors[hostname] = fmt.Sprintf("reading %s: %v", pemPath, err)
		return report
	}
	certs, err := extract.ParsePEMBundle(data)
	if err != nil {
		report.Errors[hostname] = err.Error()
		return report
	}

	result, err := v.ValidateCertificates(ctx, certs, hostname)
	if err != nil {
		report.Errors[hostname] = err.Error()
		return report
	}

	report.Results = append(report.Results, *result)
	report.Errors = nil
	return report
}
