package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

func TestUpdate_EmptySnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Update(Snapshot{})

	if got := testutil.ToFloat64(c.validationsTotal.With(prometheus.Labels{"outcome": "valid"})); got != 0 {
		t.Errorf("validations_total{valid} = %v, want 0", got)
	}
	if got := testutil.ToFloat64(c.matchRate); got != 0 {
		t.Errorf("pin_match_rate = %v, want 0", got)
	}
}

func TestUpdate_PopulatedSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	snap := Snapshot{
		Total:       4,
		Successful:  3,
		Failed:      1,
		Matched:     3,
		Unmatched:   1,
		AvgDuration: 250 * time.Millisecond,
		PerHostname: map[string]uint64{
			"api.example.com": 4,
		},
		PerErrorKind: map[pinning.ErrorKind]uint64{
			pinning.KindPinMismatch: 1,
		},
		EmergencyUsed:  1,
		BackupUsed:     2,
		ExpiryWarnings: 3,
	}
	c.Update(snap)

	if got := testutil.ToFloat64(c.validationsTotal.With(prometheus.Labels{"outcome": "valid"})); got != 3 {
		t.Errorf("validations_total{valid} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.validationsTotal.With(prometheus.Labels{"outcome": "invalid"})); got != 1 {
		t.Errorf("validations_total{invalid} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.matchesTotal.With(prometheus.Labels{"matched": "true"})); got != 3 {
		t.Errorf("match_outcomes_total{true} = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.errorsTotal.With(prometheus.Labels{"kind": "pinMismatch"})); got != 1 {
		t.Errorf("validation_errors_total{pinMismatch} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.hostValidations.With(prometheus.Labels{"hostname": "api.example.com"})); got != 4 {
		t.Errorf("host_validations_total = %v, want 4", got)
	}
	if got := testutil.ToFloat64(c.avgDuration); got != 0.25 {
		t.Errorf("validation_duration_avg_seconds = %v, want 0.25", got)
	}
	if got := testutil.ToFloat64(c.matchRate); got != 0.75 {
		t.Errorf("pin_match_rate = %v, want 0.75", got)
	}
	if got := testutil.ToFloat64(c.emergencyUsed); got != 1 {
		t.Errorf("emergency_pin_uses_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.backupUsed); got != 2 {
		t.Errorf("backup_pin_uses_total = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.expiryWarnings); got != 3 {
		t.Errorf("expiry_warnings_total = %v, want 3", got)
	}
}

func TestUpdate_StaleLabelsDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.Update(Snapshot{PerHostname: map[string]uint64{"gone.example.com": 5}})
	c.Update(Snapshot{PerHostname: map[string]uint64{"kept.example.com": 1}})

	// After a Reset-based Update the stale hostname series must be gone.
	if got := testutil.CollectAndCount(c.hostValidations); got != 1 {
		t.Errorf("host_validations_total series = %d, want 1", got)
	}
}
