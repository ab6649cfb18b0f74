package config

import (
	"fmt"
	"os"

	"github.com/ppiankov/pinwatch/internal/extract"
	"github.com/ppiankov/pinwatch/internal/pinning"
	"github.com/ppiankov/pinwatch/internal/pinstore"
)

// BuildStore populates a pin store from the configured hosts. Hash-only
// certificate pins get no validity window; PEM-backed pins inherit the
// certificate's window and names.
func (c *Config) BuildStore() (*pinstore.Store, error) {
	store := pinstore.New()
	for i := range c.Hosts {
		if err := addHost(store, &c.Hosts[i]); err != nil {
			return nil, fmt.Errorf("hosts[%d] (%s): %w", i, c.Hosts[i].Hostname, err)
		}
	}
	return store, nil
}

func addHost(store *pinstore.Store, h *Host) error {
	for i := range h.Certificates {
		cp := &h.Certificates[i]
		pinType := pinning.PinType(cp.PinType)
		if pinType == "" {
			pinType = pinning.PinTypeAny
		}

		if cp.PEMFile != "" {
			data, err := os.ReadFile(cp.PEMFile)
			if err != nil {
				return fmt.Errorf("certificates[%d]: reading %s: %w", i, cp.PEMFile, err)
			}
			certs, err := extract.ParsePEMBundle(data)
			if err != nil {
				return fmt.Errorf("certificates[%d]: %w", i, err)
			}
			for _, cert := range certs {
				pin, err := extract.CertificatePin(cert, h.Hostname, cp.IsBackup, pinType)
				if err != nil {
					return fmt.Errorf("certificates[%d]: %w", i, err)
				}
				store.AddCertificate(pin)
			}
			continue
		}

		store.AddCertificate(pinning.PinnedCertificate{
			Hostname:    h.Hostname,
			Fingerprint: cp.Hash,
			IsBackup:    cp.IsBackup,
			PinType:     pinType,
		})
	}

	for i := range h.PublicKeys {
		kp := &h.PublicKeys[i]
		pinType := pinning.PinType(kp.PinType)
		if pinType == "" {
			pinType = pinning.PinTypeAny
		}
		store.AddPublicKey(pinning.PinnedPublicKey{
			Hostname:      h.Hostname,
			PublicKeyHash: kp.Hash,
			Algorithm:     pinning.KeyAlgorithm(kp.Algorithm),
			KeySize:       kp.KeySize,
			IsBackup:      kp.IsBackup,
			PinType:       pinType,
		})
	}

	for i := range h.Emergency {
		ep := &h.Emergency[i]
		active := true
		if ep.Active != nil {
			active = *ep.Active
		}
		store.AddEmergency(pinning.EmergencyPin{
			Hostname:   h.Hostname,
			PinHash:    ep.Hash,
			ValidUntil: ep.ValidUntil,
			Reason:     ep.Reason,
			IsActive:   active,
		})
	}

	return nil
}
