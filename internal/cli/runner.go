package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ppiankov/pinwatch/internal/config"
	"github.com/ppiankov/pinwatch/internal/engine"
	"github.com/ppiankov/pinwatch/internal/extract"
	"github.com/ppiankov/pinwatch/internal/inspect"
	"github.com/ppiankov/pinwatch/internal/monitor"
	"github.com/ppiankov/pinwatch/internal/pinning"
	"github.com/ppiankov/pinwatch/internal/probe"
	"github.com/ppiankov/pinwatch/internal/revocation"
)

// buildValidator assembles the engine from a loaded config.
func buildValidator(cfg *config.Config, tracer trace.Tracer) (*engine.Validator, error) {
	store, err := cfg.BuildStore()
	if err != nil {
		return nil, fmt.Errorf("building pin store: %w", err)
	}

	mode, err := cfg.ParseMode()
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithMode(mode),
		engine.WithInspectOptions(inspect.Options{
			MaxChainLength:        cfg.MaxChainLength,
			ExpiryWarnDays:        cfg.ExpiryWarnDays,
			ValidateHostname:      cfg.ValidateHostname,
			AllowInvalidHostnames: cfg.AllowInvalidHostnames,
		}),
		engine.WithHookTimeout(cfg.HookTimeout),
	}
	if cfg.CheckRevocation {
		opts = append(opts, engine.WithRevocationHook(revocation.Hook(revocation.NewCRLCache())))
	}
	if tracer != nil {
		opts = append(opts, engine.WithTracer(tracer))
	}

	return engine.New(store, opts...)
}

// buildDialer returns the probe dial function, routed through a SOCKS5
// proxy when one is configured.
func buildDialer(cfg *config.Config) (probe.DialContextFunc, error) {
	if cfg.Proxy == "" {
		return nil, nil
	}
	return probe.SOCKS5Dialer(cfg.Proxy)
}

// runAll probes every configured host and validates the presented chain.
func runAll(ctx context.Context, cfg *config.Config, v *engine.Validator, dialFn probe.DialContextFunc) monitor.Report {
	report := monitor.Report{At: time.Now(), Errors: make(map[string]string)}

	for i := range cfg.Hosts {
		host := &cfg.Hosts[i]
		result, posture, err := runHost(ctx, host, v, dialFn)
		if err != nil {
			slog.Warn("host validation failed", "hostname", host.Hostname, "err", err)
			report.Errors[host.Hostname] = err.Error()
			continue
		}
		report.Results = append(report.Results, *result)
		if len(posture) > 0 {
			if report.Posture == nil {
				report.Posture = make(map[string][]string)
			}
			report.Posture[host.Hostname] = posture
		}
	}

	if len(report.Errors) == 0 {
		report.Errors = nil
	}
	return report
}

// runHost probes one host and returns the engine's result plus any
// handshake posture issues. Posture rides beside the result so the result
// itself stays exactly as the engine produced it.
func runHost(ctx context.Context, host *config.Host, v *engine.Validator, dialFn probe.DialContextFunc) (*pinning.ValidationResult, []string, error) {
	target := probe.FormatTarget(host.Hostname, host.Port)

	var res probe.Result
	if dialFn != nil {
		res = probe.ProbeWithDialer(ctx, target, host.SNI, dialFn)
	} else {
		res = probe.Probe(ctx, target, host.SNI)
	}
	if !res.ProbeOK {
		return nil, nil, fmt.Errorf("probing %s: %s", target, res.ProbeErr)
	}

	chain, err := extract.Chain(res.Chain)
	if err != nil {
		return nil, nil, fmt.Errorf("extracting chain from %s: %w", target, err)
	}

	result, err := v.ValidateServerTrust(ctx, chain, host.Hostname)
	if err != nil {
		return nil, nil, err
	}

	return result, probe.PostureIssues(res.TLSVersion, res.CipherSuite), nil
}
