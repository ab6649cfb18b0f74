// Package engine wires the validation pipeline: chain inspection, pin
// matching, external hooks, decision policy, trust scoring, and metrics.
package engine

import (
	"context"
	"crypto/x509"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ppiankov/pinwatch/internal/extract"
	"github.com/ppiankov/pinwatch/internal/inspect"
	"github.com/ppiankov/pinwatch/internal/match"
	"github.com/ppiankov/pinwatch/internal/metrics"
	"github.com/ppiankov/pinwatch/internal/pinning"
	"github.com/ppiankov/pinwatch/internal/pinstore"
	"github.com/ppiankov/pinwatch/internal/policy"
)

// DefaultHookTimeout bounds each revocation/custom-validator call.
const DefaultHookTimeout = 5 * time.Second

// RevocationHook checks revocation status for a presented chain. It may
// perform network I/O; the engine bounds it with the configured timeout.
type RevocationHook func(ctx context.Context, chain []pinning.CertificateInfo, hostname string) error

// CustomValidator is a caller-supplied validation step run after pin
// matching. Params carry closed tagged scalars, never untyped bags.
type CustomValidator struct {
	Name   string
	Params map[string]pinning.Value
	Fn     func(ctx context.Context, chain []pinning.CertificateInfo, hostname string) error
}

// Validator runs pin validations against a store.
type Validator struct {
	store       *pinstore.Store
	agg         *metrics.Aggregator
	mode        pinning.Mode
	inspectOpts inspect.Options
	hookTimeout time.Duration
	revocation  RevocationHook
	validators  []CustomValidator
	tracer      trace.Tracer
	now         func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithMode sets the decision mode. Default is strict.
func WithMode(mode pinning.Mode) Option {
	return func(v *Validator) { v.mode = mode }
}

// WithInspectOptions overrides the chain inspection options.
func WithInspectOptions(opts inspect.Options) Option {
	return func(v *Validator) { v.inspectOpts = opts }
}

// WithHookTimeout bounds each external hook call.
func WithHookTimeout(d time.Duration) Option {
	return func(v *Validator) { v.hookTimeout = d }
}

// WithRevocationHook installs a revocation checker.
func WithRevocationHook(hook RevocationHook) Option {
	return func(v *Validator) { v.revocation = hook }
}

// WithCustomValidators installs caller-supplied validation steps.
func WithCustomValidators(validators ...CustomValidator) Option {
	return func(v *Validator) { v.validators = append(v.validators, validators...) }
}

// WithTracer enables a span per validation.
func WithTracer(tracer trace.Tracer) Option {
	return func(v *Validator) { v.tracer = tracer }
}

// WithClock overrides the time source, used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(v *Validator) { v.now = now }
}

// New creates a Validator over the given store. A store with zero
// certificate and public-key pins anywhere is a configuration fault and
// fails construction.
func New(store *pinstore.Store, opts ...Option) (*Validator, error) {
	if store == nil || store.Empty() {
		return nil, pinning.ErrNoPinsConfigured
	}
	v := &Validator{
		store:       store,
		agg:         metrics.NewAggregator(),
		mode:        pinning.ModeStrict,
		inspectOpts: inspect.DefaultOptions(),
		hookTimeout: DefaultHookTimeout,
		tracer:      noop.NewTracerProvider().Tracer("pinwatch"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Store exposes the pin store for management calls.
func (v *Validator) Store() *pinstore.Store { return v.store }

// Mode returns the configured decision mode.
func (v *Validator) Mode() pinning.Mode { return v.mode }

// Metrics returns a snapshot of the running counters.
func (v *Validator) Metrics() metrics.Snapshot { return v.agg.Get() }

// ClearMetrics resets all running counters.
func (v *Validator) ClearMetrics() { v.agg.Clear() }

// ValidateServerTrust validates a presented chain (leaf first) for a
// hostname. All stage failures are accumulated into the result; the only
// error return is a cancelled context, in which case no metrics are
// recorded and no partial result is produced.
func (v *Validator) ValidateServerTrust(ctx context.Context, chain []pinning.CertificateInfo, hostname string) (*pinning.ValidationResult, error) {
	ctx, span := v.tracer.Start(ctx, "pinwatch.validate",
		trace.WithAttributes(
			attribute.String("hostname", hostname),
			attribute.Int("chain.length", len(chain)),
		))
	defer span.End()

	start := v.now()

	report := inspect.Inspect(chain, hostname, start, v.inspectOpts)
	errs := report.Errors

	certs, keys, emergency := v.store.Get(hostname)
	matchReport := match.Match(chain, hostname, match.Pins{
		Certificates: certs,
		PublicKeys:   keys,
		Emergency:    emergency,
	})
	errs = append(errs, matchReport.Errors...)

	if v.revocation != nil {
		if err := v.runHook(ctx, func(hctx context.Context) error {
			return v.revocation(hctx, chain, hostname)
		}); err != nil {
			errs = append(errs, pinning.ValidationError{
				Kind:          pinning.KindRevocationCheckFailed,
				Hostname:      hostname,
				ChainPosition: -1,
				Subsystem:     "revocation",
				Detail:        err.Error(),
			})
		}
	}

	for i := range v.validators {
		cv := &v.validators[i]
		if cv.Fn == nil {
			continue
		}
		if err := v.runHook(ctx, func(hctx context.Context) error {
			return cv.Fn(hctx, chain, hostname)
		}); err != nil {
			errs = append(errs, pinning.ValidationError{
				Kind:          pinning.KindCustomValidationFailed,
				Hostname:      hostname,
				ChainPosition: -1,
				Subsystem:     cv.Name,
				Detail:        err.Error(),
			})
		}
	}

	result := &pinning.ValidationResult{
		IsValid:     policy.Decide(v.mode, errs, matchReport.Matches),
		Hostname:    hostname,
		ValidatedAt: start,
		Duration:    v.now().Sub(start),
		Chain:       chain,
		Matches:     matchReport.Matches,
		Errors:      errs,
		Warnings:    report.Warnings,
		Mode:        v.mode,
		TrustScore:  policy.TrustScore(chain, matchReport.Matches, errs, start),
	}

	// Metrics are committed only for validations that ran to completion.
	// A cancelled call leaves the aggregator untouched.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	v.agg.Record(result)

	span.SetAttributes(
		attribute.Bool("valid", result.IsValid),
		attribute.Int("trust_score", result.TrustScore),
		attribute.Int("errors", len(result.Errors)),
		attribute.Int("matches", len(result.Matches)),
	)
	return result, nil
}

// ValidateCertificates extracts a parsed X.509 chain and validates it.
// Extraction failures surface as ErrMalformedCertificate — an integration
// fault, never a ValidationResult entry.
func (v *Validator) ValidateCertificates(ctx context.Context, certs []*x509.Certificate, hostname string) (*pinning.ValidationResult, error) {
	chain, err := extract.Chain(certs)
	if err != nil {
		return nil, err
	}
	return v.ValidateServerTrust(ctx, chain, hostname)
}

// runHook executes fn bounded by the hook timeout. The hook runs in its own
// goroutine so a hook that ignores its context cannot wedge the validation.
func (v *Validator) runHook(ctx context.Context, fn func(context.Context) error) error {
	hctx, cancel := context.WithTimeout(ctx, v.hookTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- fn(hctx) }()

	select {
	case err := <-done:
		return err
	case <-hctx.Done():
		return hctx.Err()
	}
}
