package ruleengine

import "time"

// Evaluate decides whether the rule admits the given context at the given
// instant. It is pure and side-effect free: safe for unbounded concurrent
// use with no locking.
//
// Every variant fails closed. A required context key that is missing or of
// the wrong type yields false, never a panic or an error; a bad evaluation
// must degrade a single decision, not take down the caller.
//
// The instant is injected rather than read from the wall clock so that the
// time-dependent variants (TimeBasedActivation, GradualRollout) are
// deterministic under test.
func Evaluate(r Rule, ctx Context, now time.Time) bool {
	switch v := r.(type) {
	case *UserTargeting:
		return evalUserTargeting(v, ctx)
	case *GroupTargeting:
		return evalGroupTargeting(v, ctx)
	case *TimeBasedActivation:
		return evalTimeBasedActivation(v, now)
	case *GradualRollout:
		return evalGradualRollout(v, ctx, now)
	case *ABTesting:
		return evalABTesting(v, ctx)
	case *VersionTargeting:
		return evalVersionTargeting(v, ctx)
	case *GeographicTargeting:
		return evalGeographicTargeting(v, ctx)
	case *DeviceTargeting:
		return evalDeviceTargeting(v, ctx)
	case *CustomRules:
		return evalCustomRules(v, ctx)
	}

	// Unknown variants cannot be admitted safely.
	return false
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
