// Package monitor renders validation outcomes for terminals and pipelines.
package monitor

import (
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Report is a point-in-time collection of validation outcomes. Handshake
// posture issues ride beside the results; they never enter the pin decision
// and validation results stay untouched after the engine produces them.
type Report struct {
	At      time.Time                  `json:"at"`
	Results []pinning.ValidationResult `json:"results"`
	Errors  map[string]string          `json:"errors,omitempty"`  // hostname → probe/extract error
	Posture map[string][]string        `json:"posture,omitempty"` // hostname → handshake posture issues
}

// ExitCode returns a process exit code for a completed report.
//
//	0 = every host validated successfully
//	1 = at least one host failed validation
//	3 = probe or extraction errors prevented a complete run
func ExitCode(r Report) int {
	if len(r.Errors) > 0 {
		return 3
	}
	for i := range r.Results {
		if !r.Results[i].IsValid {
			return 1
		}
	}
	return 0
}
