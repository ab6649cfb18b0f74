package metrics

import (
	"testing"
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

func passResult(hostname string, d time.Duration) *pinning.ValidationResult {
	return &pinning.ValidationResult{
		IsValid:  true,
		Hostname: hostname,
		Duration: d,
		Matches:  []pinning.PinMatch{{Kind: pinning.MatchCertificate, MatchedHash: "aa"}},
	}
}

func failResult(hostname string) *pinning.ValidationResult {
	return &pinning.ValidationResult{
		IsValid:  false,
		Hostname: hostname,
		Errors: []pinning.ValidationError{
			pinning.NewError(pinning.KindPinMismatch, hostname, ""),
			pinning.NewError(pinning.KindCertificateExpired, hostname, ""),
		},
	}
}

func TestAggregator_Record(t *testing.T) {
	a := NewAggregator()
	a.Record(passResult("a.example.com", 10*time.Millisecond))
	a.Record(passResult("a.example.com", 30*time.Millisecond))
	a.Record(failResult("b.example.com"))

	snap := a.Get()
	if snap.Total != 3 || snap.Successful != 2 || snap.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", snap.Total, snap.Successful, snap.Failed)
	}
	if snap.Matched != 2 || snap.Unmatched != 1 {
		t.Errorf("matched/unmatched = %d/%d, want 2/1", snap.Matched, snap.Unmatched)
	}
	if snap.PerHostname["a.example.com"] != 2 || snap.PerHostname["b.example.com"] != 1 {
		t.Errorf("perHostname = %v", snap.PerHostname)
	}
	if snap.PerErrorKind[pinning.KindPinMismatch] != 1 || snap.PerErrorKind[pinning.KindCertificateExpired] != 1 {
		t.Errorf("perErrorKind = %v", snap.PerErrorKind)
	}
}

func TestAggregator_AverageDuration(t *testing.T) {
	a := NewAggregator()
	a.Record(passResult("h", 10*time.Millisecond))
	a.Record(passResult("h", 30*time.Millisecond))

	if got := a.Get().AvgDuration; got != 20*time.Millisecond {
		t.Errorf("AvgDuration = %s, want 20ms", got)
	}
}

func TestAggregator_SpecialPinCounters(t *testing.T) {
	a := NewAggregator()
	a.Record(&pinning.ValidationResult{
		IsValid:  true,
		Hostname: "h",
		Matches: []pinning.PinMatch{
			{Kind: pinning.MatchEmergency, IsEmergencyPin: true},
			{Kind: pinning.MatchCertificate, IsBackupPin: true},
		},
		Warnings: []string{"expires in 5 days"},
	})

	snap := a.Get()
	if snap.EmergencyUsed != 1 {
		t.Errorf("EmergencyUsed = %d, want 1", snap.EmergencyUsed)
	}
	if snap.BackupUsed != 1 {
		t.Errorf("BackupUsed = %d, want 1", snap.BackupUsed)
	}
	if snap.ExpiryWarnings != 1 {
		t.Errorf("ExpiryWarnings = %d, want 1", snap.ExpiryWarnings)
	}
}

func TestSnapshot_Rates(t *testing.T) {
	var empty Snapshot
	if empty.MatchRate() != 0 || empty.SuccessRate() != 0 {
		t.Error("rates over zero validations must be 0, not NaN")
	}

	a := NewAggregator()
	a.Record(passResult("h", time.Millisecond))
	a.Record(failResult("h"))
	snap := a.Get()
	if got := snap.MatchRate(); got != 0.5 {
		t.Errorf("MatchRate = %v, want 0.5", got)
	}
	if got := snap.SuccessRate(); got != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", got)
	}
}

func TestAggregator_Clear(t *testing.T) {
	a := NewAggregator()
	a.Record(passResult("h", time.Millisecond))
	a.Clear()

	snap := a.Get()
	if snap.Total != 0 || snap.AvgDuration != 0 || len(snap.PerHostname) != 0 {
		t.Errorf("snapshot after Clear = %+v, want zeroes", snap)
	}
}

func TestAggregator_GetReturnsCopies(t *testing.T) {
	a := NewAggregator()
	a.Record(passResult("h", time.Millisecond))

	snap := a.Get()
	snap.PerHostname["h"] = 99

	if a.Get().PerHostname["h"] != 1 {
		t.Error("mutating a snapshot leaked into the aggregator")
	}
}
