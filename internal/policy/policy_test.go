package policy

import (
	"testing"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

func TestDecide(t *testing.T) {
	match := []pinning.PinMatch{{Kind: pinning.MatchCertificate, MatchedHash: "aa"}}
	verr := []pinning.ValidationError{pinning.NewError(pinning.KindCertificateExpired, "h", "")}

	tests := []struct {
		name    string
		mode    pinning.Mode
		errs    []pinning.ValidationError
		matches []pinning.PinMatch
		want    bool
	}{
		{"strict clean with match", pinning.ModeStrict, nil, match, true},
		{"strict clean without match", pinning.ModeStrict, nil, nil, false},
		{"strict errors with match", pinning.ModeStrict, verr, match, false},
		{"anyPin errors with match", pinning.ModeAnyPin, verr, match, true},
		{"anyPin clean without match", pinning.ModeAnyPin, nil, nil, false},
		{"backup behaves like anyPin", pinning.ModeBackup, verr, match, true},
		{"backup without match", pinning.ModeBackup, nil, nil, false},
		{"graceful errors without match", pinning.ModeGraceful, verr, nil, true},
		{"unknown mode fails closed", pinning.Mode("lenient"), nil, match, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.mode, tt.errs, tt.matches); got != tt.want {
				t.Errorf("Decide(%s) = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}
