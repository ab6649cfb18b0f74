// Package revocation checks certificate revocation status via OCSP and CRL
// and packages the check as a validation-engine hook.
package revocation

import (
	"context"
	"crypto/x509"
	"fmt"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Revocation status constants.
const (
	StatusRevoked       = "revoked"
	StatusUnreachable   = "unreachable"
	StatusStapleInvalid = "staple_invalid"
	StatusCRLStale      = "crl_stale"
)

// Result holds the outcome of a revocation check.
type Result struct {
	Status string
	Detail string
}

// Hook returns a revocation checker usable as the engine's RevocationHook.
// It verifies the leaf via OCSP (with the next chain entry as issuer) and
// CRL distribution points, caching CRLs across validations. Chains without
// DER bytes (synthetic test chains) are skipped.
func Hook(cache *CRLCache) func(ctx context.Context, chain []pinning.CertificateInfo, hostname string) error {
	return func(ctx context.Context, chain []pinning.CertificateInfo, _ string) error {
		if len(chain) == 0 || chain[0].Der == nil {
			return nil
		}
		leaf, err := x509.ParseCertificate(chain[0].Der)
		if err != nil {
			return fmt.Errorf("parsing leaf: %w", err)
		}

		var issuer *x509.Certificate
		if len(chain) > 1 && chain[1].Der != nil {
			issuer, err = x509.ParseCertificate(chain[1].Der)
			if err != nil {
				return fmt.Errorf("parsing issuer: %w", err)
			}
		}

		if r := Check(ctx, leaf, issuer, nil, cache); r != nil {
			return fmt.Errorf("%s: %s", r.Status, r.Detail)
		}
		return nil
	}
}

// Check runs OCSP and CRL checking on a certificate. Returns the first
// problem found, or nil when the certificate is not known revoked.
func Check(ctx context.Context, cert, issuer *x509.Certificate, ocspStaple []byte, cache *CRLCache) *Result {
	if cert == nil {
		return nil
	}

	// OCSP check (requires issuer)
	if issuer != nil {
		if r := CheckOCSP(ctx, cert, issuer, ocspStaple); r != nil {
			return r
		}
	}

	// CRL check
	if cache != nil {
		if r := CheckCRL(ctx, cert, cache); r != nil {
			return r
		}
	}

	return nil
}
