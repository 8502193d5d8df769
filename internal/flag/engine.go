package flag

import (
	"time"

	"github.com/skuld-io/skuld/internal/ruleengine"
)

// Engine answers evaluation queries against a flag record. It is stateless
// apart from the clock, which is injectable so time-sensitive rules can be
// tested deterministically.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an engine on the wall clock.
func NewEngine() *Engine {
	return NewEngineWithClock(time.Now)
}

// NewEngineWithClock returns an engine whose notion of "now" comes from the
// given function. A nil clock falls back to time.Now.
func NewEngineWithClock(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now}
}

// IsEnabled reports whether the flag is on for the given context.
//
// A disabled flag is off for everyone; the rule is never consulted. An
// enabled flag with no rule is on for everyone. Otherwise the answer is the
// rule's verdict, which fails closed on missing or mistyped context values.
func (e *Engine) IsEnabled(rec *Record, ctx ruleengine.Context) bool {
	if rec == nil || !rec.Enabled {
		return false
	}
	if rec.Rule == nil {
		return true
	}
	return ruleengine.Evaluate(rec.Rule, ctx, e.now())
}

// ExtractField projects a single named field out of the flag's rule as a
// display string. The second result is false when the flag has no rule or
// the rule has no such field.
func (e *Engine) ExtractField(rec *Record, key string) (string, bool) {
	if rec == nil || rec.Rule == nil {
		return "", false
	}
	return ruleengine.ExtractField(rec.Rule, key)
}
