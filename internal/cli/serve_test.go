package cli

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ppiankov/pinwatch/internal/history"
	"github.com/ppiankov/pinwatch/internal/monitor"
	"github.com/ppiankov/pinwatch/internal/pinning"
)

func TestHealthzHandler(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want int
	}{
		{"fresh report", time.Now(), http.StatusOK},
		{"stale report", time.Now().Add(-time.Hour), http.StatusServiceUnavailable},
		{"never ran", time.Time{}, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := healthzHandler(func() monitor.Report { return monitor.Report{At: tt.at} }, time.Minute)
			rec := httptest.NewRecorder()
			h(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestErrorKindsHandler(t *testing.T) {
	hs, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error = %v", err)
	}
	t.Cleanup(func() { hs.Close() }) //nolint:errcheck // test cleanup

	res := pinning.ValidationResult{
		Hostname:    "api.example.com",
		Mode:        pinning.ModeStrict,
		ValidatedAt: time.Now(),
		Errors: []pinning.ValidationError{
			pinning.NewError(pinning.KindPinMismatch, "api.example.com", "no pin matched"),
			pinning.NewError(pinning.KindPinMismatch, "api.example.com", "no pin matched"),
			pinning.NewError(pinning.KindCertificateExpired, "api.example.com", "leaf expired"),
		},
	}
	if err := hs.Save(&res); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec := httptest.NewRecorder()
	errorKindsHandler(hs)(rec, httptest.NewRequest(http.MethodGet, "/api/v1/errors", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var kinds map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &kinds); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if kinds["pinMismatch"] != 2 || kinds["certificateExpired"] != 1 {
		t.Errorf("kinds = %v, want pinMismatch=2 certificateExpired=1", kinds)
	}
}
