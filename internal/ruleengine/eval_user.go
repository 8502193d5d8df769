package ruleengine

import "github.com/skuld-io/skuld/internal/hashing"

// evalUserTargeting applies the list-then-rollout precedence:
//
//  1. Blacklist hit returns the mapped value immediately.
//  2. Whitelist hit returns the mapped value.
//  3. A targeted user inside the inclusive percentage bucket is admitted.
//  4. Everyone else gets DefaultValue.
//
// The mapped values make the lists overrides rather than pure deny/allow
// sets: a blacklist entry of true force-enables, which operators use to pin
// individual users during incident triage.
func evalUserTargeting(r *UserTargeting, ctx Context) bool {
	userID, ok := ctx.String(CtxUserID)
	if !ok {
		return false
	}

	if v, hit := r.Blacklist[userID]; hit {
		return v
	}

	if v, hit := r.Whitelist[userID]; hit {
		return v
	}

	if contains(r.TargetedIDs, userID) && hashing.AdmittedInclusive(userID, r.Percentage) {
		return true
	}

	return r.DefaultValue
}
