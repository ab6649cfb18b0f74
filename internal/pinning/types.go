// Package pinning defines the shared domain types for certificate-pin
// validation: pin records, extracted certificate facts, match records,
// and the validation result produced by the engine.
package pinning

import "time"

// PinType records which chain position a pin was created for. It is
// descriptive provenance carried into match records; matching itself scans
// every chain position regardless of type.
type PinType string

const (
	PinTypeLeaf         PinType = "leaf"
	PinTypeIntermediate PinType = "intermediate"
	PinTypeRoot         PinType = "root"
	PinTypeAny          PinType = "any"
)

// KeyAlgorithm identifies the public-key algorithm of a pinned key.
type KeyAlgorithm string

const (
	KeyAlgorithmRSA     KeyAlgorithm = "RSA"
	KeyAlgorithmECDSA   KeyAlgorithm = "ECDSA"
	KeyAlgorithmEd25519 KeyAlgorithm = "Ed25519"
	KeyAlgorithmDSA     KeyAlgorithm = "DSA"
)

// Mode controls how errors and matches combine into a trust decision.
type Mode string

const (
	// ModeStrict requires an empty error list and at least one pin match.
	ModeStrict Mode = "strict"
	// ModeAnyPin requires at least one pin match; other errors do not block.
	ModeAnyPin Mode = "anyPin"
	// ModeBackup behaves like ModeAnyPin: backup matches already appear in
	// the match list, so a separate backup gate would be redundant.
	ModeBackup Mode = "backup"
	// ModeGraceful always trusts but still reports every error and warning.
	ModeGraceful Mode = "graceful"
)

// PinnedCertificate is a pre-shared expected certificate fingerprint.
type PinnedCertificate struct {
	Hostname    string           `json:"hostname"`
	Raw         []byte           `json:"-"`
	Fingerprint string           `json:"fingerprint"` // hex SHA-256 of the DER certificate
	ValidFrom   time.Time        `json:"validFrom"`
	ValidTo     time.Time        `json:"validTo"`
	Issuer      string           `json:"issuer,omitempty"`
	Subject     string           `json:"subject,omitempty"`
	IsBackup    bool             `json:"isBackup"`
	PinType     PinType          `json:"pinType"`
	Annotations map[string]Value `json:"annotations,omitempty"`
}

// IsValid reports whether the pin's validity window is non-empty and
// contains now. Pins without a window (zero times) are always valid.
func (p *PinnedCertificate) IsValid(now time.Time) bool {
	if p.ValidFrom.IsZero() && p.ValidTo.IsZero() {
		return true
	}
	if !p.ValidFrom.Before(p.ValidTo) {
		return false
	}
	return !now.Before(p.ValidFrom) && !now.After(p.ValidTo)
}

// PinnedPublicKey is a pre-shared expected SPKI hash.
type PinnedPublicKey struct {
	Hostname      string           `json:"hostname"`
	PublicKeyHash string           `json:"publicKeyHash"` // hex SHA-256 of the DER SPKI
	Algorithm     KeyAlgorithm     `json:"algorithm"`
	KeySize       int              `json:"keySize"`
	IsBackup      bool             `json:"isBackup"`
	PinType       PinType          `json:"pinType"`
	Annotations   map[string]Value `json:"annotations,omitempty"`
}

// EmergencyPin is a time-boxed out-of-band override pin used to recover
// trust without shipping new configuration.
type EmergencyPin struct {
	Hostname   string    `json:"hostname"`
	PinHash    string    `json:"pinHash"`
	ValidUntil time.Time `json:"validUntil"`
	Reason     string    `json:"reason"`
	IsActive   bool      `json:"isActive"`
}

// Usable reports whether the emergency pin may still produce matches.
// Expiry is evaluated at every call; it is never cached.
func (e *EmergencyPin) Usable(now time.Time) bool {
	return e.IsActive && !now.After(e.ValidUntil)
}

// CertificateInfo is the engine's view of one certificate in a presented
// chain, produced by the extract package. The engine never touches raw
// DER or a platform trust object.
type CertificateInfo struct {
	Subject       string    `json:"subject"`
	Issuer        string    `json:"issuer"`
	SerialNumber  string    `json:"serialNumber"`
	NotBefore     time.Time `json:"notBefore"`
	NotAfter      time.Time `json:"notAfter"`
	Fingerprint   string    `json:"fingerprint"`   // hex SHA-256 of the DER certificate
	PublicKeyHash string    `json:"publicKeyHash"` // hex SHA-256 of the DER SPKI
	DNSNames      []string  `json:"dnsNames,omitempty"`
	KeyUsages     []string  `json:"keyUsages,omitempty"`
	ExtKeyUsages  []string  `json:"extKeyUsages,omitempty"`

	// Der holds the original DER encoding when the chain came from a real
	// handshake or PEM file. Optional; hooks that need it (OCSP/CRL) must
	// tolerate nil for synthetic chains.
	Der []byte `json:"-"`
}

// IsExpired reports whether the certificate's notAfter has passed.
func (c *CertificateInfo) IsExpired(now time.Time) bool {
	return now.After(c.NotAfter)
}

// IsNotYetValid reports whether the certificate's notBefore is in the future.
func (c *CertificateInfo) IsNotYetValid(now time.Time) bool {
	return now.Before(c.NotBefore)
}

// DaysUntilExpiry returns whole days until notAfter, negative once expired.
func (c *CertificateInfo) DaysUntilExpiry(now time.Time) int {
	return int(c.NotAfter.Sub(now).Hours() / 24)
}

// MatchKind tags which pin class produced a match.
type MatchKind string

const (
	MatchCertificate MatchKind = "certificate"
	MatchPublicKey   MatchKind = "publicKey"
	MatchEmergency   MatchKind = "emergency"
)

// PinMatch records one pin that matched the presented chain.
type PinMatch struct {
	Kind           MatchKind `json:"kind"`
	MatchedHash    string    `json:"matchedHash"`
	ChainPosition  int       `json:"chainPosition"` // 0 = leaf
	IsBackupPin    bool      `json:"isBackupPin"`
	IsEmergencyPin bool      `json:"isEmergencyPin"`
}

// ValidationResult is the complete outcome of one validation attempt.
// It is created fresh per call and never mutated afterwards.
type ValidationResult struct {
	IsValid     bool              `json:"isValid"`
	Hostname    string            `json:"hostname"`
	ValidatedAt time.Time         `json:"validatedAt"`
	Duration    time.Duration     `json:"duration"`
	Chain       []CertificateInfo `json:"chain"`
	Matches     []PinMatch        `json:"matches"`
	Errors      []ValidationError `json:"errors"`
	Warnings    []string          `json:"warnings,omitempty"`
	Mode        Mode              `json:"mode"`
	TrustScore  int               `json:"trustScore"`
}

// HasMatch reports whether any pin matched.
func (r *ValidationResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// ErrorKinds returns the kind of every collected error, in order.
func (r *ValidationResult) ErrorKinds() []ErrorKind {
	kinds := make([]ErrorKind, len(r.Errors))
	for i := range r.Errors {
		kinds[i] = r.Errors[i].Kind
	}
	return kinds
}
