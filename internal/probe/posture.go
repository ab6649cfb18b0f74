package probe

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// PostureIssues flags weak handshake parameters observed during a probe.
// These never influence the pin decision; they surface as warnings next to
// the validation result.
func PostureIssues(tlsVersion, cipherSuite uint16) []string {
	var issues []string

	switch tlsVersion {
	case tls.VersionSSL30: //nolint:staticcheck // deliberately checking deprecated version
		issues = append(issues, "weak TLS version: SSL 3.0")
	case tls.VersionTLS10:
		issues = append(issues, "weak TLS version: TLS 1.0")
	case tls.VersionTLS11:
		issues = append(issues, "weak TLS version: TLS 1.1")
	}

	if cipherSuite != 0 {
		name := tls.CipherSuiteName(cipherSuite)
		for _, cs := range tls.InsecureCipherSuites() {
			if cs.ID == cipherSuite {
				issues = append(issues, fmt.Sprintf("weak cipher: %s", name))
				return issues
			}
		}
		// CBC-mode ciphers are not in InsecureCipherSuites but are
		// vulnerable to padding oracle attacks
		if strings.Contains(name, "CBC") {
			issues = append(issues, fmt.Sprintf("CBC-mode cipher: %s", name))
		}
	}

	return issues
}
