package extract

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

func selfSigned(t *testing.T, cn string, dnsNames []string) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		DNSNames:     dnsNames,
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}

func TestCertificate(t *testing.T) {
	cert := selfSigned(t, "api.example.com", []string{"api.example.com", "www.example.com"})

	info, err := Certificate(cert)
	if err != nil {
		t.Fatal(err)
	}
	if info.Subject != "api.example.com" {
		t.Errorf("Subject = %q", info.Subject)
	}
	if len(info.DNSNames) != 2 {
		t.Errorf("DNSNames = %v", info.DNSNames)
	}

	wantFP := sha256.Sum256(cert.Raw)
	if info.Fingerprint != hex.EncodeToString(wantFP[:]) {
		t.Error("Fingerprint is not SHA-256 of the DER certificate")
	}
	wantSPKI := sha256.Sum256(cert.RawSubjectPublicKeyInfo)
	if info.PublicKeyHash != hex.EncodeToString(wantSPKI[:]) {
		t.Error("PublicKeyHash is not SHA-256 of the DER SPKI")
	}
	if len(info.Der) == 0 {
		t.Error("Der not carried over")
	}

	var sawServerAuth bool
	for _, eku := range info.ExtKeyUsages {
		if eku == "serverAuth" {
			sawServerAuth = true
		}
	}
	if !sawServerAuth {
		t.Errorf("ExtKeyUsages = %v, want serverAuth", info.ExtKeyUsages)
	}
}

func TestCertificate_Malformed(t *testing.T) {
	if _, err := Certificate(nil); !errors.Is(err, pinning.ErrMalformedCertificate) {
		t.Errorf("Certificate(nil) error = %v, want ErrMalformedCertificate", err)
	}
	if _, err := Certificate(&x509.Certificate{}); !errors.Is(err, pinning.ErrMalformedCertificate) {
		t.Errorf("Certificate(empty raw) error = %v, want ErrMalformedCertificate", err)
	}
}

func TestChain(t *testing.T) {
	leaf := selfSigned(t, "api.example.com", nil)
	ca := selfSigned(t, "Test CA", nil)

	chain, err := Chain([]*x509.Certificate{leaf, ca})
	if err != nil {
		t.Fatal(err)
	}
	if len(chain) != 2 {
		t.Fatalf("chain length = %d, want 2", len(chain))
	}
	if chain[0].Subject != "api.example.com" || chain[1].Subject != "Test CA" {
		t.Error("chain order not preserved")
	}

	if _, err := Chain([]*x509.Certificate{leaf, nil}); !errors.Is(err, pinning.ErrMalformedCertificate) {
		t.Errorf("Chain with nil entry error = %v, want ErrMalformedCertificate", err)
	}
}

func TestKeyInfo(t *testing.T) {
	ecdsaCert := selfSigned(t, "ec", nil)
	alg, bits, err := KeyInfo(ecdsaCert)
	if err != nil {
		t.Fatal(err)
	}
	if alg != pinning.KeyAlgorithmECDSA || bits != 256 {
		t.Errorf("KeyInfo = %s/%d, want ECDSA/256", alg, bits)
	}

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "rsa"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &rsaKey.PublicKey, rsaKey)
	if err != nil {
		t.Fatal(err)
	}
	rsaCert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatal(err)
	}
	alg, bits, err = KeyInfo(rsaCert)
	if err != nil {
		t.Fatal(err)
	}
	if alg != pinning.KeyAlgorithmRSA || bits != 2048 {
		t.Errorf("KeyInfo = %s/%d, want RSA/2048", alg, bits)
	}
}

func TestCertificatePin(t *testing.T) {
	cert := selfSigned(t, "api.example.com", nil)
	pin, err := CertificatePin(cert, "api.example.com", true, "")
	if err != nil {
		t.Fatal(err)
	}
	if pin.Fingerprint != Fingerprint(cert) {
		t.Error("pin fingerprint mismatch")
	}
	if !pin.IsBackup {
		t.Error("IsBackup not carried")
	}
	if pin.PinType != pinning.PinTypeAny {
		t.Errorf("PinType = %s, want any default", pin.PinType)
	}
	if !pin.ValidFrom.Equal(cert.NotBefore) || !pin.ValidTo.Equal(cert.NotAfter) {
		t.Error("validity window not carried from certificate")
	}
}

func TestPublicKeyPin(t *testing.T) {
	cert := selfSigned(t, "api.example.com", nil)
	pin, err := PublicKeyPin(cert, "api.example.com", false, pinning.PinTypeLeaf)
	if err != nil {
		t.Fatal(err)
	}
	if pin.PublicKeyHash != SPKIHash(cert) {
		t.Error("pin SPKI hash mismatch")
	}
	if pin.Algorithm != pinning.KeyAlgorithmECDSA || pin.KeySize != 256 {
		t.Errorf("algorithm/size = %s/%d", pin.Algorithm, pin.KeySize)
	}
	if pin.PinType != pinning.PinTypeLeaf {
		t.Errorf("PinType = %s, want leaf", pin.PinType)
	}
}

func TestParsePEMBundle(t *testing.T) {
	leaf := selfSigned(t, "api.example.com", nil)
	ca := selfSigned(t, "Test CA", nil)

	var bundle []byte
	for _, c := range []*x509.Certificate{leaf, ca} {
		bundle = append(bundle, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	// A non-certificate block is skipped, not an error.
	bundle = append(bundle, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: []byte{0x01}})...)

	certs, err := ParsePEMBundle(bundle)
	if err != nil {
		t.Fatal(err)
	}
	if len(certs) != 2 {
		t.Fatalf("parsed %d certificates, want 2", len(certs))
	}
	if certs[0].Subject.CommonName != "api.example.com" {
		t.Error("bundle order not preserved")
	}

	if _, err := ParsePEMBundle([]byte("not pem")); !errors.Is(err, pinning.ErrMalformedCertificate) {
		t.Errorf("ParsePEMBundle(garbage) error = %v, want ErrMalformedCertificate", err)
	}
}
