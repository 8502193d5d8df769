package ruleengine

import "strings"

// evalCustomRules requires every configured key to be present in the context
// with a stringified value equal to the expected one, case-insensitively.
// A single absent or mismatched key fails the whole rule. An empty rule map
// is vacuously satisfied.
func evalCustomRules(r *CustomRules, ctx Context) bool {
	for key, expected := range r.Rules {
		actual, ok := ctx.Stringify(key)
		if !ok {
			return false
		}
		if !strings.EqualFold(actual, expected) {
			return false
		}
	}
	return true
}
