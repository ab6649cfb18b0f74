package pinning

import (
	"testing"
	"time"
)

func TestPinnedCertificate_IsValid(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		from time.Time
		to   time.Time
		want bool
	}{
		{"no window", time.Time{}, time.Time{}, true},
		{"inside window", now.Add(-time.Hour), now.Add(time.Hour), true},
		{"at lower bound", now, now.Add(time.Hour), true},
		{"before window", now.Add(time.Minute), now.Add(time.Hour), false},
		{"after window", now.Add(-2 * time.Hour), now.Add(-time.Hour), false},
		{"inverted window", now.Add(time.Hour), now.Add(-time.Hour), false},
		{"empty window", now, now, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pin := PinnedCertificate{ValidFrom: tt.from, ValidTo: tt.to}
			if got := pin.IsValid(now); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmergencyPin_Usable(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		until  time.Time
		active bool
		want   bool
	}{
		{"active and current", now.Add(time.Hour), true, true},
		{"active at deadline", now, true, true},
		{"active but expired", now.Add(-time.Second), true, false},
		{"inactive and current", now.Add(time.Hour), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pin := EmergencyPin{ValidUntil: tt.until, IsActive: tt.active}
			if got := pin.Usable(now); got != tt.want {
				t.Errorf("Usable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCertificateInfo_Temporal(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := CertificateInfo{
		NotBefore: now.Add(-24 * time.Hour),
		NotAfter:  now.Add(10 * 24 * time.Hour),
	}

	if c.IsExpired(now) {
		t.Error("IsExpired() = true for current certificate")
	}
	if c.IsNotYetValid(now) {
		t.Error("IsNotYetValid() = true for current certificate")
	}
	if got := c.DaysUntilExpiry(now); got != 10 {
		t.Errorf("DaysUntilExpiry() = %d, want 10", got)
	}

	expired := CertificateInfo{NotAfter: now.Add(-48 * time.Hour)}
	if !expired.IsExpired(now) {
		t.Error("IsExpired() = false for expired certificate")
	}
	if got := expired.DaysUntilExpiry(now); got != -2 {
		t.Errorf("DaysUntilExpiry() = %d, want -2", got)
	}

	future := CertificateInfo{NotBefore: now.Add(time.Hour), NotAfter: now.Add(48 * time.Hour)}
	if !future.IsNotYetValid(now) {
		t.Error("IsNotYetValid() = false for future certificate")
	}
}

func TestValidationResult_ErrorKinds(t *testing.T) {
	r := ValidationResult{Errors: []ValidationError{
		{Kind: KindEmptyChain},
		{Kind: KindPinMismatch},
	}}
	kinds := r.ErrorKinds()
	if len(kinds) != 2 || kinds[0] != KindEmptyChain || kinds[1] != KindPinMismatch {
		t.Errorf("ErrorKinds() = %v", kinds)
	}
	if r.HasMatch() {
		t.Error("HasMatch() = true with no matches")
	}
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{
		Kind:          KindCertificateExpired,
		Hostname:      "api.example.com",
		ChainPosition: 1,
		Detail:        "cert expired",
	}
	got := e.Error()
	want := "certificateExpired host=api.example.com position=1: cert expired"
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	nonPositional := NewError(KindEmptyChain, "api.example.com", "chain is empty")
	if nonPositional.ChainPosition != -1 {
		t.Errorf("NewError chainPosition = %d, want -1", nonPositional.ChainPosition)
	}
}
