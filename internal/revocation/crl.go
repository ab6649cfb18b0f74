package revocation

import (
	"context"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"time"
)

// CheckCRL checks if a certificate's serial appears in any CRL distribution point.
func CheckCRL(ctx context.Context, cert *x509.Certificate, cache *CRLCache) *Result {
	if len(cert.CRLDistributionPoints) == 0 {
		return nil
	}

	for _, dp := range cert.CRLDistributionPoints {
		crl := cache.Get(dp)
		if crl == nil {
			var err error
			crl, err = fetchCRL(ctx, dp)
			if err != nil {
				return &Result{
					Status: StatusUnreachable,
					Detail: fmt.Sprintf("CRL fetch from %s: %v", dp, err),
				}
			}
			cache.Set(dp, crl)
		}

		// Check if CRL is stale
		if !crl.NextUpdate.IsZero() && crl.NextUpdate.Before(time.Now()) {
			return &Result{
				Status: StatusCRLStale,
				Detail: fmt.Sprintf("CRL from %s expired %s", dp, crl.NextUpdate.UTC().Format(time.RFC3339)),
			}
		}

		// Check if cert serial is in the revoked list
		for _, revoked := range crl.RevokedCertificateEntries {
			if cert.SerialNumber.Cmp(revoked.SerialNumber) == 0 {
				return &Result{
					Status: StatusRevoked,
					Detail: fmt.Sprintf("CRL from %s: certificate serial %s revoked", dp, cert.SerialNumber.Text(16)),
				}
			}
		}
	}

	return nil
}

func fetchCRL(ctx context.Context, url string) (*x509.RevocationList, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil) //nolint:gosec // CRL distribution points are from the certificate's X.509 extension
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck // read-only fetch

	data, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20)) // 10MB limit
	if err != nil {
		return nil, fmt.Errorf("reading CRL: %w", err)
	}

	return x509.ParseRevocationList(data)
}
