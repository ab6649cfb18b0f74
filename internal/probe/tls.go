// Package probe performs TLS handshakes to obtain the certificate chain a
// server actually presents. Chain trust is deliberately not verified here;
// pin validation replaces it.
package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

// DialContextFunc is the signature used to establish TCP connections.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

const defaultTimeout = 5 * time.Second

// Result holds the outcome of a TLS probe.
type Result struct {
	Chain       []*x509.Certificate
	OCSPStaple  []byte
	TLSVersion  uint16
	CipherSuite uint16
	ProbeOK     bool
	ProbeErr    string
}

// Probe connects to hostport with the given SNI and returns the presented
// chain. An empty sni falls back to the host part of hostport.
func Probe(ctx context.Context, hostport, sni string) Result {
	return ProbeWithDialer(ctx, hostport, sni, (&net.Dialer{Timeout: defaultTimeout}).DialContext)
}

// ProbeWithDialer is like Probe but uses the provided dial function, which
// allows routing through a SOCKS5 proxy or any custom transport.
func ProbeWithDialer(ctx context.Context, hostport, sni string, dialFn DialContextFunc) Result {
	if sni == "" {
		sni = strings.Split(hostport, ":")[0]
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rawConn, err := dialFn(ctx, "tcp", hostport)
	if err != nil {
		return Result{ProbeErr: err.Error()}
	}

	tlsConn := tls.Client(rawConn, &tls.Config{
		ServerName:         sni,
		InsecureSkipVerify: true, // pins decide trust, not the system roots
	})

	if hsErr := tlsConn.HandshakeContext(ctx); hsErr != nil {
		rawConn.Close() //nolint:errcheck // best-effort cleanup on handshake failure
		return Result{ProbeErr: hsErr.Error()}
	}

	state := tlsConn.ConnectionState()
	tlsConn.Close() //nolint:errcheck // read-only probe, close error is unactionable

	if len(state.PeerCertificates) == 0 {
		return Result{ProbeErr: "no peer certificates presented"}
	}

	return Result{
		Chain:       state.PeerCertificates,
		OCSPStaple:  state.OCSPResponse,
		TLSVersion:  state.Version,
		CipherSuite: state.CipherSuite,
		ProbeOK:     true,
	}
}

// SOCKS5Dialer builds a dial function routed through a SOCKS5 proxy given
// as socks5://host:port (or bare host:port).
func SOCKS5Dialer(proxyAddr string) (DialContextFunc, error) {
	addr := proxyAddr
	if u, err := url.Parse(proxyAddr); err == nil && u.Scheme == "socks5" {
		addr = u.Host
	}
	d, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("building socks5 dialer: %w", err)
	}
	cd, ok := d.(proxy.ContextDialer)
	if !ok {
		return nil, fmt.Errorf("socks5 dialer does not support context dialing")
	}
	return cd.DialContext, nil
}

// FormatTarget builds a host:port target from a hostname and port,
// defaulting to 443.
func FormatTarget(hostname string, port int) string {
	if port == 0 {
		port = 443
	}
	return net.JoinHostPort(hostname, fmt.Sprintf("%d", port))
}
