package ruleengine

import (
	"time"

	"github.com/skuld-io/skuld/internal/hashing"
)

// evalGradualRollout computes the admission threshold for the current
// instant and applies the exclusive bucket comparison to the user id.
//
// Threshold over time:
//   - before StartTime: StartPercentage
//   - after StartTime+Duration: EndPercentage
//   - in between: linear interpolation by elapsed milliseconds
//
// Because the same user id always hashes to the same bucket, a user who is
// admitted at threshold T stays admitted at every threshold above T: the
// rollout only ever adds users while the threshold grows.
func evalGradualRollout(r *GradualRollout, ctx Context, now time.Time) bool {
	userID, ok := ctx.String(CtxUserID)
	if !ok {
		return false
	}

	threshold := r.thresholdAt(now)
	return hashing.AdmittedExclusive(userID, threshold)
}

func (r *GradualRollout) thresholdAt(now time.Time) float64 {
	duration := r.Duration.Std()

	switch {
	case now.Before(r.StartTime):
		return r.StartPercentage
	case duration <= 0 || now.After(r.StartTime.Add(duration)):
		// Zero-length rollouts jump straight to the end percentage.
		return r.EndPercentage
	default:
		elapsed := now.Sub(r.StartTime)
		frac := float64(elapsed.Milliseconds()) / float64(duration.Milliseconds())
		return r.StartPercentage + (r.EndPercentage-r.StartPercentage)*frac
	}
}
