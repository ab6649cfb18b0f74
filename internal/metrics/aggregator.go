// Package metrics tracks running counters over all validations performed
// and exposes them to Prometheus.
package metrics

import (
	"sync"
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Aggregator accumulates validation telemetry. All counters are monotonic
// until Clear; the average duration is an incremental mean. One mutex
// serializes updates so a validation's counters land atomically.
type Aggregator struct {
	mu sync.Mutex

	total      uint64
	successful uint64
	failed     uint64

	matched   uint64
	unmatched uint64

	avgDuration time.Duration

	perHostname    map[string]uint64
	perErrorKind   map[pinning.ErrorKind]uint64
	emergencyUsed  uint64
	backupUsed     uint64
	expiryWarnings uint64
}

// Snapshot is an immutable copy of the aggregator state.
type Snapshot struct {
	Total          uint64                       `json:"total"`
	Successful     uint64                       `json:"successful"`
	Failed         uint64                       `json:"failed"`
	Matched        uint64                       `json:"matched"`
	Unmatched      uint64                       `json:"unmatched"`
	AvgDuration    time.Duration                `json:"avgDuration"`
	PerHostname    map[string]uint64            `json:"perHostname"`
	PerErrorKind   map[pinning.ErrorKind]uint64 `json:"perErrorKind"`
	EmergencyUsed  uint64                       `json:"emergencyUsed"`
	BackupUsed     uint64                       `json:"backupUsed"`
	ExpiryWarnings uint64                       `json:"expiryWarnings"`
}

// MatchRate returns the fraction of validations with at least one match.
func (s Snapshot) MatchRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Total)
}

// SuccessRate returns the fraction of validations that passed.
func (s Snapshot) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successful) / float64(s.Total)
}

// NewAggregator creates an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		perHostname:  make(map[string]uint64),
		perErrorKind: make(map[pinning.ErrorKind]uint64),
	}
}

// Record folds one completed validation result into the counters.
func (a *Aggregator) Record(result *pinning.ValidationResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	old := float64(a.total)
	a.avgDuration = time.Duration((float64(a.avgDuration)*old + float64(result.Duration)) / (old + 1))
	a.total++

	if result.IsValid {
		a.successful++
	} else {
		a.failed++
	}

	if len(result.Matches) > 0 {
		a.matched++
	} else {
		a.unmatched++
	}

	a.perHostname[result.Hostname]++
	for i := range result.Errors {
		a.perErrorKind[result.Errors[i].Kind]++
	}

	for i := range result.Matches {
		if result.Matches[i].IsEmergencyPin {
			a.emergencyUsed++
		}
		if result.Matches[i].IsBackupPin {
			a.backupUsed++
		}
	}

	a.expiryWarnings += uint64(len(result.Warnings))
}

// Get returns a copy of the current state.
func (a *Aggregator) Get() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	perHost := make(map[string]uint64, len(a.perHostname))
	for k, v := range a.perHostname {
		perHost[k] = v
	}
	perKind := make(map[pinning.ErrorKind]uint64, len(a.perErrorKind))
	for k, v := range a.perErrorKind {
		perKind[k] = v
	}

	return Snapshot{
		Total:          a.total,
		Successful:     a.successful,
		Failed:         a.failed,
		Matched:        a.matched,
		Unmatched:      a.unmatched,
		AvgDuration:    a.avgDuration,
		PerHostname:    perHost,
		PerErrorKind:   perKind,
		EmergencyUsed:  a.emergencyUsed,
		BackupUsed:     a.backupUsed,
		ExpiryWarnings: a.expiryWarnings,
	}
}

// Clear resets every counter to zero.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.total = 0
	a.successful = 0
	a.failed = 0
	a.matched = 0
	a.unmatched = 0
	a.avgDuration = 0
	a.perHostname = make(map[string]uint64)
	a.perErrorKind = make(map[pinning.ErrorKind]uint64)
	a.emergencyUsed = 0
	a.backupUsed = 0
	a.expiryWarnings = 0
}
