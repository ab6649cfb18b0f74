// Package match walks a presented chain against the pins configured for a
// hostname and produces the set of pin matches.
package match

import (
	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Report holds the outcome of one matching pass.
type Report struct {
	Matches []pinning.PinMatch
	Errors  []pinning.ValidationError
}

// Pins bundles the store state for one hostname. Emergency pins must
// already be filtered to usable entries (the store does this at read time).
type Pins struct {
	Certificates []pinning.PinnedCertificate
	PublicKeys   []pinning.PinnedPublicKey
	Emergency    []pinning.EmergencyPin
}

// Match compares every chain position against every configured pin.
//
// With zero certificate and public-key pins the hostname is simply not
// pinned: the report carries noPinsConfigured and no matches, and emergency
// pins are ignored — they recover a broken pin set, they do not substitute
// for configuration. Emergency pins are consulted only when the regular
// scan found nothing at all. Hash comparison is case-sensitive exact
// string equality.
func Match(chain []pinning.CertificateInfo, hostname string, pins Pins) Report {
	var report Report

	if len(pins.Certificates) == 0 && len(pins.PublicKeys) == 0 {
		report.Errors = append(report.Errors,
			pinning.NewError(pinning.KindNoPinsConfigured, hostname, "no certificate or public-key pins configured"))
		return report
	}

	for i := range chain {
		for j := range pins.Certificates {
			pin := &pins.Certificates[j]
			if chain[i].Fingerprint == pin.Fingerprint {
				report.Matches = append(report.Matches, pinning.PinMatch{
					Kind:          pinning.MatchCertificate,
					MatchedHash:   pin.Fingerprint,
					ChainPosition: i,
					IsBackupPin:   pin.IsBackup,
				})
			}
		}
		for j := range pins.PublicKeys {
			pin := &pins.PublicKeys[j]
			if chain[i].PublicKeyHash == pin.PublicKeyHash {
				report.Matches = append(report.Matches, pinning.PinMatch{
					Kind:          pinning.MatchPublicKey,
					MatchedHash:   pin.PublicKeyHash,
					ChainPosition: i,
					IsBackupPin:   pin.IsBackup,
				})
			}
		}
	}

	if len(report.Matches) == 0 {
		for i := range chain {
			for j := range pins.Emergency {
				pin := &pins.Emergency[j]
				if chain[i].Fingerprint == pin.PinHash {
					report.Matches = append(report.Matches, pinning.PinMatch{
						Kind:           pinning.MatchEmergency,
						MatchedHash:    pin.PinHash,
						ChainPosition:  i,
						IsEmergencyPin: true,
					})
				}
			}
		}
	}

	if len(report.Matches) == 0 {
		report.Errors = append(report.Errors, pinning.ValidationError{
			Kind:           pinning.KindPinMismatch,
			Hostname:       hostname,
			ChainPosition:  -1,
			Detail:         "no presented certificate matched a configured pin",
			ExpectedHashes: expectedHashes(pins),
		})
	}

	return report
}

// expectedHashes returns the union of configured certificate and public-key
// hashes for diagnostics. Emergency hashes are deliberately excluded so a
// mismatch report never leaks an out-of-band recovery pin.
func expectedHashes(pins Pins) []string {
	seen := make(map[string]struct{}, len(pins.Certificates)+len(pins.PublicKeys))
	var out []string
	for i := range pins.Certificates {
		if _, ok := seen[pins.Certificates[i].Fingerprint]; !ok {
			seen[pins.Certificates[i].Fingerprint] = struct{}{}
			out = append(out, pins.Certificates[i].Fingerprint)
		}
	}
	for i := range pins.PublicKeys {
		if _, ok := seen[pins.PublicKeys[i].PublicKeyHash]; !ok {
			seen[pins.PublicKeys[i].PublicKeyHash] = struct{}{}
			out = append(out, pins.PublicKeys[i].PublicKeyHash)
		}
	}
	return out
}
