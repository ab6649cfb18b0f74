package policy

import (
	"time"

	"github.com/ppiankov/pinwatch/internal/pinning"
)

// Score components. The score is telemetry only and must never feed the
// pass/fail decision in Decide.
const (
	scoreChainPresent = 30
	scoreMatchFound   = 50
	scoreChainCurrent = 20
	scorePerError     = 10
)

// TrustScore computes the advisory 0-100 health score from the same facts
// the decision uses: chain presence, match presence, at least one
// currently-valid certificate, minus a penalty per collected error.
func TrustScore(chain []pinning.CertificateInfo, matches []pinning.PinMatch, errs []pinning.ValidationError, now time.Time) int {
	score := 0
	if len(chain) > 0 {
		score += scoreChainPresent
	}
	if len(matches) > 0 {
		score += scoreMatchFound
	}
	for i := range chain {
		if !chain[i].IsExpired(now) && !chain[i].IsNotYetValid(now) {
			score += scoreChainCurrent
			break
		}
	}
	score -= scorePerError * len(errs)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
