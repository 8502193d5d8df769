package ruleengine

import "time"

// evalTimeBasedActivation is on strictly inside the window: an evaluation at
// exactly StartTime or EndTime is off. Context attributes play no role.
func evalTimeBasedActivation(r *TimeBasedActivation, now time.Time) bool {
	return now.After(r.StartTime) && now.Before(r.EndTime)
}
