// Package policy turns accumulated validation facts into a trust decision
// and an advisory trust score.
package policy

import (
	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Decide computes the single pass/fail outcome for a validation. It is the
// only place the boolean is computed; every stage before it just accumulates
// facts.
func Decide(mode pinning.Mode, errs []pinning.ValidationError, matches []pinning.PinMatch) bool {
	switch mode {
	case pinning.ModeStrict:
		return len(errs) == 0 && len(matches) > 0
	case pinning.ModeAnyPin, pinning.ModeBackup:
		// Backup matches already appear in the match list, so backup mode
		// reduces to "match list non-empty", same as anyPin.
		return len(matches) > 0
	case pinning.ModeGraceful:
		return true
	default:
		// Unknown modes fail closed.
		return false
	}
}
