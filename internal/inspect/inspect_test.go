package inspect

import (
	"testing"
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func currentCert(subject string, sans ...string) pinning.CertificateInfo {
	return pinning.CertificateInfo{
		Subject:   subject,
		NotBefore: testNow.Add(-30 * 24 * time.Hour),
		NotAfter:  testNow.Add(90 * 24 * time.Hour),
		DNSNames:  sans,
	}
}

func kinds(errs []pinning.ValidationError) []pinning.ErrorKind {
	out := make([]pinning.ErrorKind, len(errs))
	for i := range errs {
		out[i] = errs[i].Kind
	}
	return out
}

func hasKind(errs []pinning.ValidationError, kind pinning.ErrorKind) bool {
	for i := range errs {
		if errs[i].Kind == kind {
			return true
		}
	}
	return false
}

func TestInspect_CleanChain(t *testing.T) {
	chain := []pinning.CertificateInfo{
		currentCert("api.example.com"),
		currentCert("Intermediate CA"),
	}
	report := Inspect(chain, "api.example.com", testNow, DefaultOptions())
	if len(report.Errors) != 0 {
		t.Errorf("errors = %v, want none", kinds(report.Errors))
	}
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", report.Warnings)
	}
	if !report.HostnameOK {
		t.Error("HostnameOK = false")
	}
}

func TestInspect_EmptyChain(t *testing.T) {
	report := Inspect(nil, "api.example.com", testNow, DefaultOptions())
	if !hasKind(report.Errors, pinning.KindEmptyChain) {
		t.Errorf("errors = %v, want emptyChain", kinds(report.Errors))
	}
	// An empty chain can never attest the hostname.
	if !hasKind(report.Errors, pinning.KindHostnameValidationFailed) {
		t.Errorf("errors = %v, want hostnameValidationFailed", kinds(report.Errors))
	}
}

func TestInspect_ChainTooLong(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChainLength = 2
	chain := []pinning.CertificateInfo{
		currentCert("api.example.com"),
		currentCert("Intermediate CA"),
		currentCert("Root CA"),
	}
	report := Inspect(chain, "api.example.com", testNow, opts)
	if !hasKind(report.Errors, pinning.KindChainTooLong) {
		t.Errorf("errors = %v, want chainTooLong", kinds(report.Errors))
	}
}

func TestInspect_ExpiredCertificate(t *testing.T) {
	chain := []pinning.CertificateInfo{
		currentCert("api.example.com"),
		{
			Subject:   "Old CA",
			NotBefore: testNow.Add(-2 * 365 * 24 * time.Hour),
			NotAfter:  testNow.Add(-24 * time.Hour),
		},
	}
	report := Inspect(chain, "api.example.com", testNow, DefaultOptions())
	if !hasKind(report.Errors, pinning.KindCertificateExpired) {
		t.Fatalf("errors = %v, want certificateExpired", kinds(report.Errors))
	}
	for i := range report.Errors {
		if report.Errors[i].Kind == pinning.KindCertificateExpired && report.Errors[i].ChainPosition != 1 {
			t.Errorf("expired error position = %d, want 1", report.Errors[i].ChainPosition)
		}
	}
}

func TestInspect_NotYetValid(t *testing.T) {
	chain := []pinning.CertificateInfo{{
		Subject:   "api.example.com",
		NotBefore: testNow.Add(24 * time.Hour),
		NotAfter:  testNow.Add(90 * 24 * time.Hour),
	}}
	report := Inspect(chain, "api.example.com", testNow, DefaultOptions())
	if !hasKind(report.Errors, pinning.KindCertificateNotYetValid) {
		t.Errorf("errors = %v, want certificateNotYetValid", kinds(report.Errors))
	}
}

func TestInspect_ExpiryWarning(t *testing.T) {
	chain := []pinning.CertificateInfo{{
		Subject:   "api.example.com",
		NotBefore: testNow.Add(-30 * 24 * time.Hour),
		NotAfter:  testNow.Add(10 * 24 * time.Hour),
	}}
	report := Inspect(chain, "api.example.com", testNow, DefaultOptions())
	if len(report.Errors) != 0 {
		t.Errorf("errors = %v, want none", kinds(report.Errors))
	}
	if len(report.Warnings) != 1 {
		t.Fatalf("warnings = %v, want one expiry warning", report.Warnings)
	}
}

func TestInspect_ExpiryWarningsDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.ExpiryWarnDays = 0
	chain := []pinning.CertificateInfo{{
		Subject:   "api.example.com",
		NotBefore: testNow.Add(-30 * 24 * time.Hour),
		NotAfter:  testNow.Add(10 * 24 * time.Hour),
	}}
	report := Inspect(chain, "api.example.com", testNow, opts)
	if len(report.Warnings) != 0 {
		t.Errorf("warnings = %v, want none with warnings disabled", report.Warnings)
	}
}

func TestInspect_HostnameMismatch(t *testing.T) {
	chain := []pinning.CertificateInfo{currentCert("other.example.com")}
	report := Inspect(chain, "api.example.com", testNow, DefaultOptions())
	if !hasKind(report.Errors, pinning.KindHostnameValidationFailed) {
		t.Errorf("errors = %v, want hostnameValidationFailed", kinds(report.Errors))
	}
	if report.HostnameOK {
		t.Error("HostnameOK = true for mismatched hostname")
	}
}

func TestInspect_HostnameViaSAN(t *testing.T) {
	chain := []pinning.CertificateInfo{currentCert("cdn-edge", "api.example.com", "www.example.com")}
	report := Inspect(chain, "API.EXAMPLE.COM", testNow, DefaultOptions())
	if !report.HostnameOK {
		t.Error("HostnameOK = false, want case-insensitive SAN match")
	}
}

func TestInspect_WildcardNotExpanded(t *testing.T) {
	chain := []pinning.CertificateInfo{currentCert("cdn-edge", "*.example.com")}
	report := Inspect(chain, "api.example.com", testNow, DefaultOptions())
	if report.HostnameOK {
		t.Error("HostnameOK = true, wildcard SANs must not match")
	}
}

func TestInspect_AllowInvalidHostnames(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowInvalidHostnames = true
	chain := []pinning.CertificateInfo{currentCert("other.example.com")}
	report := Inspect(chain, "api.example.com", testNow, opts)
	if hasKind(report.Errors, pinning.KindHostnameValidationFailed) {
		t.Error("hostnameValidationFailed recorded despite AllowInvalidHostnames")
	}
	// The observation is still available to callers.
	if report.HostnameOK {
		t.Error("HostnameOK = true for mismatched hostname")
	}
}

func TestInspect_AllChecksAccumulate(t *testing.T) {
	opts := DefaultOptions()
	opts.MaxChainLength = 1
	chain := []pinning.CertificateInfo{
		{
			Subject:   "other.example.com",
			NotBefore: testNow.Add(-2 * 365 * 24 * time.Hour),
			NotAfter:  testNow.Add(-24 * time.Hour),
		},
		currentCert("Intermediate CA"),
	}
	report := Inspect(chain, "api.example.com", testNow, opts)
	for _, want := range []pinning.ErrorKind{
		pinning.KindChainTooLong,
		pinning.KindCertificateExpired,
		pinning.KindHostnameValidationFailed,
	} {
		if !hasKind(report.Errors, want) {
			t.Errorf("errors = %v, missing %s", kinds(report.Errors), want)
		}
	}
}
