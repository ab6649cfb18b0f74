package pinning

import (
	"errors"
	"fmt"
	"strings"
)

// Fatal conditions. Everything else in the taxonomy is collected into
// ValidationResult.Errors instead of being returned.
var (
	// ErrMalformedCertificate indicates certificate data that could not be
	// extracted into CertificateInfo. This is an integration fault, not an
	// untrusted-peer condition, so it surfaces as a returned error.
	ErrMalformedCertificate = errors.New("pinning: malformed certificate data")

	// ErrNoPinsConfigured indicates the engine was constructed over a store
	// holding zero pins for any hostname.
	ErrNoPinsConfigured = errors.New("pinning: no pins configured in store")
)

// ErrorKind classifies a collected validation error.
type ErrorKind string

const (
	// Structural
	KindEmptyChain   ErrorKind = "emptyChain"
	KindChainTooLong ErrorKind = "chainTooLong"

	// Temporal (per certificate)
	KindCertificateExpired     ErrorKind = "certificateExpired"
	KindCertificateNotYetValid ErrorKind = "certificateNotYetValid"

	// Identity
	KindHostnameValidationFailed ErrorKind = "hostnameValidationFailed"

	// Trust
	KindNoPinsConfigured ErrorKind = "noPinsConfigured"
	KindPinMismatch      ErrorKind = "pinMismatch"

	// External
	KindRevocationCheckFailed  ErrorKind = "revocationCheckFailed"
	KindCustomValidationFailed ErrorKind = "customValidationFailed"
)

// ValidationError is one structured entry in a ValidationResult.
type ValidationError struct {
	Kind           ErrorKind `json:"kind"`
	Hostname       string    `json:"hostname,omitempty"`
	ChainPosition  int       `json:"chainPosition"` // -1 when not positional
	Subsystem      string    `json:"subsystem,omitempty"`
	Detail         string    `json:"detail,omitempty"`
	ExpectedHashes []string  `json:"expectedHashes,omitempty"`
}

// Error satisfies the error interface for logging and wrapping.
func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.Hostname != "" {
		fmt.Fprintf(&b, " host=%s", e.Hostname)
	}
	if e.ChainPosition >= 0 {
		fmt.Fprintf(&b, " position=%d", e.ChainPosition)
	}
	if e.Subsystem != "" {
		fmt.Fprintf(&b, " subsystem=%s", e.Subsystem)
	}
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %s", e.Detail)
	}
	if len(e.ExpectedHashes) > 0 {
		fmt.Fprintf(&b, " expected=[%s]", strings.Join(e.ExpectedHashes, ", "))
	}
	return b.String()
}

// NewError builds a non-positional error of the given kind.
func NewError(kind ErrorKind, hostname, detail string) ValidationError {
	return ValidationError{Kind: kind, Hostname: hostname, ChainPosition: -1, Detail: detail}
}
