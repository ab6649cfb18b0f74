// Package pinstore holds configured pins indexed by hostname.
package pinstore

import (
	"sync"
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Store is the mutable pin index. All access goes through one RWMutex; the
// engine's metrics carry their own lock, so validations for different
// hostnames only contend here for the duration of a map read.
type Store struct {
	mu        sync.RWMutex
	certs     map[string][]pinning.PinnedCertificate
	keys      map[string][]pinning.PinnedPublicKey
	emergency map[string][]pinning.EmergencyPin
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source, used by tests to pin "now".
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		certs:     make(map[string][]pinning.PinnedCertificate),
		keys:      make(map[string][]pinning.PinnedPublicKey),
		emergency: make(map[string][]pinning.EmergencyPin),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddCertificate registers a pinned certificate for its hostname.
func (s *Store) AddCertificate(pin pinning.PinnedCertificate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.certs[pin.Hostname] = append(s.certs[pin.Hostname], pin)
}

// AddPublicKey registers a pinned public key for its hostname.
func (s *Store) AddPublicKey(pin pinning.PinnedPublicKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[pin.Hostname] = append(s.keys[pin.Hostname], pin)
}

// AddEmergency registers an emergency pin for its hostname. Expired or
// inactive pins may be added; they are filtered out at read time.
func (s *Store) AddEmergency(pin pinning.EmergencyPin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergency[pin.Hostname] = append(s.emergency[pin.Hostname], pin)
}

// RemoveCertificate deletes certificate pins matching hostname+fingerprint.
// Returns the number of pins removed.
func (s *Store) RemoveCertificate(hostname, fingerprint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.certs[hostname][:0]
	removed := 0
	for _, pin := range s.certs[hostname] {
		if pin.Fingerprint == fingerprint {
			removed++
			continue
		}
		kept = append(kept, pin)
	}
	if len(kept) == 0 {
		delete(s.certs, hostname)
	} else {
		s.certs[hostname] = kept
	}
	return removed
}

// RemovePublicKey deletes public-key pins matching hostname+hash.
// Returns the number of pins removed.
func (s *Store) RemovePublicKey(hostname, hash string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.keys[hostname][:0]
	removed := 0
	for _, pin := range s.keys[hostname] {
		if pin.PublicKeyHash == hash {
			removed++
			continue
		}
		kept = append(kept, pin)
	}
	if len(kept) == 0 {
		delete(s.keys, hostname)
	} else {
		s.keys[hostname] = kept
	}
	return removed
}

// Certificates returns a copy of the certificate pins for hostname.
func (s *Store) Certificates(hostname string) []pinning.PinnedCertificate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pinning.PinnedCertificate, len(s.certs[hostname]))
	copy(out, s.certs[hostname])
	return out
}

// PublicKeys returns a copy of the public-key pins for hostname.
func (s *Store) PublicKeys(hostname string) []pinning.PinnedPublicKey {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]pinning.PinnedPublicKey, len(s.keys[hostname]))
	copy(out, s.keys[hostname])
	return out
}

// EmergencyPins returns the currently usable emergency pins for hostname.
// Expiry and the active flag are evaluated on every read.
func (s *Store) EmergencyPins(hostname string) []pinning.EmergencyPin {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []pinning.EmergencyPin
	for i := range s.emergency[hostname] {
		if s.emergency[hostname][i].Usable(now) {
			out = append(out, s.emergency[hostname][i])
		}
	}
	return out
}

// Get returns all pin classes for a hostname in one locked read: certificate
// pins, public-key pins, and the currently usable emergency pins.
func (s *Store) Get(hostname string) ([]pinning.PinnedCertificate, []pinning.PinnedPublicKey, []pinning.EmergencyPin) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certs := make([]pinning.PinnedCertificate, len(s.certs[hostname]))
	copy(certs, s.certs[hostname])
	keys := make([]pinning.PinnedPublicKey, len(s.keys[hostname]))
	copy(keys, s.keys[hostname])

	now := s.now()
	var emergency []pinning.EmergencyPin
	for i := range s.emergency[hostname] {
		if s.emergency[hostname][i].Usable(now) {
			emergency = append(emergency, s.emergency[hostname][i])
		}
	}
	return certs, keys, emergency
}

// Empty reports whether the store holds zero certificate and public-key pins
// across all hostnames. Emergency pins alone do not count as configuration.
func (s *Store) Empty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.certs) == 0 && len(s.keys) == 0
}

// Hostnames returns every hostname with at least one configured pin.
func (s *Store) Hostnames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.certs)+len(s.keys))
	for h := range s.certs {
		seen[h] = struct{}{}
	}
	for h := range s.keys {
		seen[h] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for h := range seen {
		out = append(out, h)
	}
	return out
}
