// Package config loads and validates pinwatch YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// CertificatePin configures one pinned certificate. Either a hex SHA-256
// hash or a PEM file path must be given; the PEM form also carries over the
// certificate's validity window and names.
type CertificatePin struct {
	Hash     string `yaml:"hash"`
	PEMFile  string `yaml:"pemFile"`
	IsBackup bool   `yaml:"isBackup"`
	PinType  string `yaml:"pinType"` // leaf, intermediate, root, any (default any)
}

// PublicKeyPin configures one pinned SPKI hash.
type PublicKeyPin struct {
	Hash      string `yaml:"hash"`
	Algorithm string `yaml:"algorithm"` // RSA, ECDSA, Ed25519, DSA
	KeySize   int    `yaml:"keySize"`
	IsBackup  bool   `yaml:"isBackup"`
	PinType   string `yaml:"pinType"`
}

// EmergencyPinConfig configures a time-boxed recovery pin.
type EmergencyPinConfig struct {
	Hash       string    `yaml:"hash"`
	ValidUntil time.Time `yaml:"validUntil"`
	Reason     string    `yaml:"reason"`
	Active     *bool     `yaml:"active"` // default true
}

// Host groups the pins and probe target for one hostname.
type Host struct {
	Hostname     string               `yaml:"hostname"`
	Port         int                  `yaml:"port"` // probe port, default 443
	SNI          string               `yaml:"sni"`
	Certificates []CertificatePin     `yaml:"certificates"`
	PublicKeys   []PublicKeyPin       `yaml:"publicKeys"`
	Emergency    []EmergencyPinConfig `yaml:"emergency"`
}

// Config holds pinwatch runtime configuration.
type Config struct {
	Mode                  string        `yaml:"mode"`                  // strict, anyPin, backup, graceful
	MaxChainLength        int           `yaml:"maxChainLength"`        // default 10
	ExpiryWarnDays        int           `yaml:"expiryWarnDays"`        // default 30, 0 disables warnings
	ValidateHostname      bool          `yaml:"validateHostname"`      // default true
	AllowInvalidHostnames bool          `yaml:"allowInvalidHostnames"` // default false
	HookTimeout           time.Duration `yaml:"hookTimeout"`           // default 5s
	CheckRevocation       bool          `yaml:"checkRevocation"`       // default false
	Proxy                 string        `yaml:"proxy"`                 // socks5://host:port

	ListenAddr   string        `yaml:"listenAddr"`   // default ":8080"
	MetricsPath  string        `yaml:"metricsPath"`  // default "/metrics"
	RefreshEvery time.Duration `yaml:"refreshEvery"` // default 2m
	HistoryDB    string        `yaml:"historyDB"`    // empty = no persistence

	Hosts []Host `yaml:"hosts"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Mode:             string(pinning.ModeStrict),
		MaxChainLength:   10,
		ExpiryWarnDays:   30,
		ValidateHostname: true,
		HookTimeout:      5 * time.Second,
		ListenAddr:       ":8080",
		MetricsPath:      "/metrics",
		RefreshEvery:     2 * time.Minute,
	}
}

// Load reads a YAML config file and merges with defaults.
func Load(path string) (*Config, error) {
	c := Defaults()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return c, nil
}

// ParseMode converts the configured mode string.
func (c *Config) ParseMode() (pinning.Mode, error) {
	switch pinning.Mode(c.Mode) {
	case pinning.ModeStrict, pinning.ModeAnyPin, pinning.ModeBackup, pinning.ModeGraceful:
		return pinning.Mode(c.Mode), nil
	default:
		return "", fmt.Errorf("invalid mode %q: must be strict, anyPin, backup, or graceful", c.Mode)
	}
}

// Validate checks that the config values are sane.
func (c *Config) Validate() error {
	if _, err := c.ParseMode(); err != nil {
		return err
	}
	if c.MaxChainLength <= 0 {
		return fmt.Errorf("maxChainLength must be positive, got %d", c.MaxChainLength)
	}
	if c.ExpiryWarnDays < 0 {
		return fmt.Errorf("expiryWarnDays must not be negative, got %d", c.ExpiryWarnDays)
	}
	if c.HookTimeout <= 0 {
		return fmt.Errorf("hookTimeout must be positive, got %s", c.HookTimeout)
	}
	if c.RefreshEvery < 30*time.Second {
		return fmt.Errorf("refreshEvery must be at least 30s, got %s", c.RefreshEvery)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listenAddr must not be empty")
	}

	for i := range c.Hosts {
		if err := c.Hosts[i].validate(); err != nil {
			return fmt.Errorf("hosts[%d]: %w", i, err)
		}
	}
	return nil
}

func (h *Host) validate() error {
	if h.Hostname == "" {
		return fmt.Errorf("hostname must not be empty")
	}
	if h.Port < 0 || h.Port > 65535 {
		return fmt.Errorf("port %d out of range", h.Port)
	}
	for i := range h.Certificates {
		p := &h.Certificates[i]
		if p.Hash == "" && p.PEMFile == "" {
			return fmt.Errorf("certificates[%d]: either hash or pemFile is required", i)
		}
		if err := validatePinType(p.PinType); err != nil {
			return fmt.Errorf("certificates[%d]: %w", i, err)
		}
	}
	for i := range h.PublicKeys {
		p := &h.PublicKeys[i]
		if p.Hash == "" {
			return fmt.Errorf("publicKeys[%d]: hash is required", i)
		}
		if err := validatePinType(p.PinType); err != nil {
			return fmt.Errorf("publicKeys[%d]: %w", i, err)
		}
		switch pinning.KeyAlgorithm(p.Algorithm) {
		case pinning.KeyAlgorithmRSA, pinning.KeyAlgorithmECDSA, pinning.KeyAlgorithmEd25519, pinning.KeyAlgorithmDSA, "":
		default:
			return fmt.Errorf("publicKeys[%d]: invalid algorithm %q", i, p.Algorithm)
		}
		if p.KeySize < 0 {
			return fmt.Errorf("publicKeys[%d]: keySize must not be negative", i)
		}
	}
	for i := range h.Emergency {
		p := &h.Emergency[i]
		if p.Hash == "" {
			return fmt.Errorf("emergency[%d]: hash is required", i)
		}
		if p.ValidUntil.IsZero() {
			return fmt.Errorf("emergency[%d]: validUntil is required", i)
		}
	}
	return nil
}

func validatePinType(s string) error {
	switch pinning.PinType(s) {
	case pinning.PinTypeLeaf, pinning.PinTypeIntermediate, pinning.PinTypeRoot, pinning.PinTypeAny, "":
		return nil
	default:
		return fmt.Errorf("invalid pinType %q", s)
	}
}
