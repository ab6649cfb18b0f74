package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector translates an aggregator snapshot into Prometheus gauge values.
type Collector struct {
	validationsTotal *prometheus.GaugeVec
	matchesTotal     *prometheus.GaugeVec
	errorsTotal      *prometheus.GaugeVec
	hostValidations  *prometheus.GaugeVec
	avgDuration      prometheus.Gauge
	matchRate        prometheus.Gauge
	emergencyUsed    prometheus.Gauge
	backupUsed       prometheus.Gauge
	expiryWarnings   prometheus.Gauge
	mu               sync.Mutex
}

// NewCollector creates and registers metrics on the given registerer.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		validationsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "validations_total",
			Help:      "Total validations by outcome.",
		}, []string{"outcome"}),

		matchesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "match_outcomes_total",
			Help:      "Validations by whether any pin matched.",
		}, []string{"matched"}),

		errorsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "validation_errors_total",
			Help:      "Collected validation errors by kind.",
		}, []string{"kind"}),

		hostValidations: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "host_validations_total",
			Help:      "Validations per hostname.",
		}, []string{"hostname"}),

		avgDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "validation_duration_avg_seconds",
			Help:      "Running average validation duration in seconds.",
		}),

		matchRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "pin_match_rate",
			Help:      "Fraction of validations with at least one pin match.",
		}),

		emergencyUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "emergency_pin_uses_total",
			Help:      "Matches produced by emergency pins.",
		}),

		backupUsed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "backup_pin_uses_total",
			Help:      "Matches produced by backup pins.",
		}),

		expiryWarnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pinwatch",
			Name:      "expiry_warnings_total",
			Help:      "Certificates seen within the expiry warning horizon.",
		}),
	}

	reg.MustRegister(c.validationsTotal)
	reg.MustRegister(c.matchesTotal)
	reg.MustRegister(c.errorsTotal)
	reg.MustRegister(c.hostValidations)
	reg.MustRegister(c.avgDuration)
	reg.MustRegister(c.matchRate)
	reg.MustRegister(c.emergencyUsed)
	reg.MustRegister(c.backupUsed)
	reg.MustRegister(c.expiryWarnings)

	return c
}

// Update replaces all metric values from the given snapshot.
func (c *Collector) Update(snap Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.validationsTotal.Reset()
	c.matchesTotal.Reset()
	c.errorsTotal.Reset()
	c.hostValidations.Reset()

	c.validationsTotal.With(prometheus.Labels{"outcome": "valid"}).Set(float64(snap.Successful))
	c.validationsTotal.With(prometheus.Labels{"outcome": "invalid"}).Set(float64(snap.Failed))

	c.matchesTotal.With(prometheus.Labels{"matched": "true"}).Set(float64(snap.Matched))
	c.matchesTotal.With(prometheus.Labels{"matched": "false"}).Set(float64(snap.Unmatched))

	for kind, count := range snap.PerErrorKind {
		c.errorsTotal.With(prometheus.Labels{"kind": string(kind)}).Set(float64(count))
	}
	for host, count := range snap.PerHostname {
		c.hostValidations.With(prometheus.Labels{"hostname": host}).Set(float64(count))
	}

	c.avgDuration.Set(snap.AvgDuration.Seconds())
	c.matchRate.Set(snap.MatchRate())
	c.emergencyUsed.Set(float64(snap.EmergencyUsed))
	c.backupUsed.Set(float64(snap.BackupUsed))
	c.expiryWarnings.Set(float64(snap.ExpiryWarnings))
}
