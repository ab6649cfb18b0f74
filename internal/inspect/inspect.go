// Package inspect checks a presented certificate chain for structural,
// temporal, and hostname-identity issues. It is a pure function over
// already-extracted certificate facts; parsing lives in extract.
package inspect

import (
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// DefaultMaxChainLength bounds how many certificates a presented chain may
// carry before it is flagged as structurally suspect.
const DefaultMaxChainLength = 10

// DefaultExpiryWarnDays is the warning horizon for soon-to-expire certificates.
const DefaultExpiryWarnDays = 30

// Options tune the inspection.
type Options struct {
	MaxChainLength        int
	ExpiryWarnDays        int // 0 disables expiry warnings
	ValidateHostname      bool
	AllowInvalidHostnames bool
}

// DefaultOptions returns the inspection defaults: hostname validation on,
// invalid hostnames rejected.
func DefaultOptions() Options {
	return Options{
		MaxChainLength:   DefaultMaxChainLength,
		ExpiryWarnDays:   DefaultExpiryWarnDays,
		ValidateHostname: true,
	}
}

// Report holds the outcome of one chain inspection.
type Report struct {
	Errors     []pinning.ValidationError
	Warnings   []string
	HostnameOK bool
}

// Inspect examines chain (leaf first) against hostname at the given time.
// Every check runs; nothing short-circuits, so the report carries the
// complete picture even when the chain is empty.
func Inspect(chain []pinning.CertificateInfo, hostname string, now time.Time, opts Options) Report {
	report := Report{HostnameOK: matchesHostname(chain, hostname)}

	// Structural checks are independent: an empty chain and an over-long
	// chain are distinct defects and both may be reported.
	if len(chain) == 0 {
		report.Errors = append(report.Errors,
			pinning.NewError(pinning.KindEmptyChain, hostname, "certificate chain is empty"))
	}
	if opts.MaxChainLength > 0 && len(chain) > opts.MaxChainLength {
		report.Errors = append(report.Errors,
			pinning.NewError(pinning.KindChainTooLong, hostname,
				fmt.Sprintf("chain length %d exceeds maximum %d", len(chain), opts.MaxChainLength)))
	}

	for i := range chain {
		c := &chain[i]
		switch {
		case c.IsExpired(now):
			report.Errors = append(report.Errors, pinning.ValidationError{
				Kind:          pinning.KindCertificateExpired,
				Hostname:      hostname,
				ChainPosition: i,
				Detail:        fmt.Sprintf("%s expired %s", subjectName(c), c.NotAfter.UTC().Format(time.RFC3339)),
			})
		case c.IsNotYetValid(now):
			report.Errors = append(report.Errors, pinning.ValidationError{
				Kind:          pinning.KindCertificateNotYetValid,
				Hostname:      hostname,
				ChainPosition: i,
				Detail:        fmt.Sprintf("%s not valid before %s", subjectName(c), c.NotBefore.UTC().Format(time.RFC3339)),
			})
		default:
			if days := c.DaysUntilExpiry(now); opts.ExpiryWarnDays > 0 && days <= opts.ExpiryWarnDays {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("certificate %s at position %d expires in %d days", subjectName(c), i, days))
			}
		}
	}

	if !report.HostnameOK && opts.ValidateHostname && !opts.AllowInvalidHostnames {
		report.Errors = append(report.Errors,
			pinning.NewError(pinning.KindHostnameValidationFailed, hostname,
				fmt.Sprintf("hostname %q does not match leaf subject or SANs", hostname)))
	}

	return report
}

// matchesHostname reports whether hostname matches the leaf subject verbatim
// or any SAN entry. Comparison is case-insensitive exact string equality;
// wildcard SANs are not expanded.
func matchesHostname(chain []pinning.CertificateInfo, hostname string) bool {
	if len(chain) == 0 || hostname == "" {
		return false
	}
	leaf := &chain[0]
	if strings.EqualFold(leaf.Subject, hostname) {
		return true
	}
	for _, san := range leaf.DNSNames {
		if strings.EqualFold(san, hostname) {
			return true
		}
	}
	return false
}

func subjectName(c *pinning.CertificateInfo) string {
	if c.Subject != "" {
		return c.Subject
	}
	if c.Fingerprint != "" {
		return "fingerprint " + c.Fingerprint
	}
	return "(unknown subject)"
}
