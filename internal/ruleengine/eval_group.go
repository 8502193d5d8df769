package ruleengine

import "github.com/skuld-io/skuld/internal/hashing"

// evalGroupTargeting admits a request only when its group id is listed AND
// the group hashes into the inclusive percentage bucket. Bucketing on the
// group id (not the user id) keeps whole groups consistent: either every
// member of a group sees the feature or none does.
func evalGroupTargeting(r *GroupTargeting, ctx Context) bool {
	groupID, ok := ctx.String(CtxGroupID)
	if !ok {
		return false
	}

	return contains(r.GroupIDs, groupID) && hashing.AdmittedInclusive(groupID, r.Percentage)
}
