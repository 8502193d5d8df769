package ruleengine

import "github.com/skuld-io/skuld/internal/hashing"

// evalABTesting returns true when the user hashes into VariantA's share of
// the distribution (exclusive bucket comparison). A true result means "serve
// variant A"; false means variant B, not "flag off". The labels themselves
// are surfaced through field extraction.
func evalABTesting(r *ABTesting, ctx Context) bool {
	userID, ok := ctx.String(CtxUserID)
	if !ok {
		return false
	}

	return hashing.AdmittedExclusive(userID, r.Distribution)
}
