// Package extract converts parsed X.509 certificates into the flat
// CertificateInfo facts the validation engine operates on. It is the only
// package that touches crypto/x509 certificate structures on the input path.
package extract

import (
	"crypto/dsa" //nolint:staticcheck // DSA keys still appear in legacy pin sets
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"fmt"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Chain converts a presented chain (leaf first) into CertificateInfo facts.
// A nil certificate anywhere in the chain is malformed input.
func Chain(certs []*x509.Certificate) ([]pinning.CertificateInfo, error) {
	out := make([]pinning.CertificateInfo, 0, len(certs))
	for i, cert := range certs {
		info, err := Certificate(cert)
		if err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		out = append(out, info)
	}
	return out, nil
}

// Certificate extracts the facts for a single certificate.
func Certificate(cert *x509.Certificate) (pinning.CertificateInfo, error) {
	if cert == nil {
		return pinning.CertificateInfo{}, pinning.ErrMalformedCertificate
	}
	if len(cert.Raw) == 0 {
		return pinning.CertificateInfo{}, fmt.Errorf("%w: empty DER encoding", pinning.ErrMalformedCertificate)
	}

	return pinning.CertificateInfo{
		Subject:       cert.Subject.CommonName,
		Issuer:        cert.Issuer.CommonName,
		SerialNumber:  cert.SerialNumber.Text(16),
		NotBefore:     cert.NotBefore,
		NotAfter:      cert.NotAfter,
		Fingerprint:   Fingerprint(cert),
		PublicKeyHash: SPKIHash(cert),
		DNSNames:      cert.DNSNames,
		KeyUsages:     keyUsageNames(cert.KeyUsage),
		ExtKeyUsages:  extKeyUsageNames(cert.ExtKeyUsage),
		Der:           cert.Raw,
	}, nil
}

// Fingerprint returns the hex-encoded SHA-256 of the DER certificate.
func Fingerprint(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.Raw)
	return hex.EncodeToString(sum[:])
}

// SPKIHash returns the hex-encoded SHA-256 of the DER SubjectPublicKeyInfo.
func SPKIHash(cert *x509.Certificate) string {
	sum := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	return hex.EncodeToString(sum[:])
}

// KeyInfo reports the public-key algorithm and size in bits, for building
// public-key pins from an observed certificate.
func KeyInfo(cert *x509.Certificate) (pinning.KeyAlgorithm, int, error) {
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return pinning.KeyAlgorithmRSA, key.N.BitLen(), nil
	case *ecdsa.PublicKey:
		return pinning.KeyAlgorithmECDSA, key.Curve.Params().BitSize, nil
	case ed25519.PublicKey:
		return pinning.KeyAlgorithmEd25519, len(key) * 8, nil
	case *dsa.PublicKey:
		return pinning.KeyAlgorithmDSA, key.P.BitLen(), nil
	default:
		return "", 0, fmt.Errorf("%w: unsupported public key type %T", pinning.ErrMalformedCertificate, cert.PublicKey)
	}
}

// CertificatePin builds a pinned-certificate record from an observed
// certificate, carrying over its validity window and names.
func CertificatePin(cert *x509.Certificate, hostname string, isBackup bool, pinType pinning.PinType) (pinning.PinnedCertificate, error) {
	if cert == nil {
		return pinning.PinnedCertificate{}, pinning.ErrMalformedCertificate
	}
	if pinType == "" {
		pinType = pinning.PinTypeAny
	}
	return pinning.PinnedCertificate{
		Hostname:    hostname,
		Raw:         cert.Raw,
		Fingerprint: Fingerprint(cert),
		ValidFrom:   cert.NotBefore,
		ValidTo:     cert.NotAfter,
		Issuer:      cert.Issuer.CommonName,
		Subject:     cert.Subject.CommonName,
		IsBackup:    isBackup,
		PinType:     pinType,
	}, nil
}

// PublicKeyPin builds a pinned-public-key record from an observed certificate.
func PublicKeyPin(cert *x509.Certificate, hostname string, isBackup bool, pinType pinning.PinType) (pinning.PinnedPublicKey, error) {
	if cert == nil {
		return pinning.PinnedPublicKey{}, pinning.ErrMalformedCertificate
	}
	alg, size, err := KeyInfo(cert)
	if err != nil {
		return pinning.PinnedPublicKey{}, err
	}
	if pinType == "" {
		pinType = pinning.PinTypeAny
	}
	return pinning.PinnedPublicKey{
		Hostname:      hostname,
		PublicKeyHash: SPKIHash(cert),
		Algorithm:     alg,
		KeySize:       size,
		IsBackup:      isBackup,
		PinType:       pinType,
	}, nil
}

// ParsePEMBundle decodes all CERTIFICATE blocks from data, leaf first.
func ParsePEMBundle(data []byte) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: certificate at position %d: %v", pinning.ErrMalformedCertificate, len(certs), err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no PEM certificate blocks found", pinning.ErrMalformedCertificate)
	}
	return certs, nil
}

func keyUsageNames(ku x509.KeyUsage) []string {
	names := []struct {
		bit  x509.KeyUsage
		name string
	}{
		{x509.KeyUsageDigitalSignature, "digitalSignature"},
		{x509.KeyUsageContentCommitment, "contentCommitment"},
		{x509.KeyUsageKeyEncipherment, "keyEncipherment"},
		{x509.KeyUsageDataEncipherment, "dataEncipherment"},
		{x509.KeyUsageKeyAgreement, "keyAgreement"},
		{x509.KeyUsageCertSign, "certSign"},
		{x509.KeyUsageCRLSign, "crlSign"},
		{x509.KeyUsageEncipherOnly, "encipherOnly"},
		{x509.KeyUsageDecipherOnly, "decipherOnly"},
	}
	var out []string
	for _, n := range names {
		if ku&n.bit != 0 {
			out = append(out, n.name)
		}
	}
	return out
}

func extKeyUsageNames(ekus []x509.ExtKeyUsage) []string {
	var out []string
	for _, eku := range ekus {
		switch eku {
		case x509.ExtKeyUsageServerAuth:
			out = append(out, "serverAuth")
		case x509.ExtKeyUsageClientAuth:
			out = append(out, "clientAuth")
		case x509.ExtKeyUsageCodeSigning:
			out = append(out, "codeSigning")
		case x509.ExtKeyUsageEmailProtection:
			out = append(out, "emailProtection")
		case x509.ExtKeyUsageTimeStamping:
			out = append(out, "timeStamping")
		case x509.ExtKeyUsageOCSPSigning:
			out = append(out, "ocspSigning")
		default:
			out = append(out, fmt.Sprintf("extKeyUsage(%d)", eku))
		}
	}
	return out
}
