package ruleengine

import "github.com/skuld-io/skuld/internal/errs"

// Validate checks a rule's field invariants. It is called at construction
// time, before anything is persisted; a flag never reaches the store with an
// out-of-domain rule. A nil rule (no targeting) is always valid.
//
// Only percentage-like fields are constrained. Degenerate but well-typed
// configurations (an activation window that already closed, an empty group
// list) are legal: they simply never admit anyone.
func Validate(r Rule) error {
	switch v := r.(type) {
	case nil:
		return nil
	case *UserTargeting:
		return validatePercentage("percentage", v.Percentage)
	case *GroupTargeting:
		return validatePercentage("percentage", v.Percentage)
	case *TimeBasedActivation:
		return nil
	case *GradualRollout:
		if err := validatePercentage("startPercentage", v.StartPercentage); err != nil {
			return err
		}
		return validatePercentage("endPercentage", v.EndPercentage)
	case *ABTesting:
		return validatePercentage("distribution", v.Distribution)
	case *VersionTargeting, *GeographicTargeting, *DeviceTargeting, *CustomRules:
		return nil
	}

	return errs.NewValidation("type", "unsupported rule type %T", r)
}

func validatePercentage(field string, value float64) error {
	if value < 0 || value > 100 {
		return errs.NewValidation(field, "must be between 0 and 100, got %g", value)
	}
	return nil
}
