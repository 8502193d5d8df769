package flag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skuld-io/skuld/internal/ruleengine"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEngine_IsEnabled(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	admitU1 := &ruleengine.UserTargeting{TargetedIDs: []string{"u1"}, Percentage: 100}
	allowNobody := &ruleengine.UserTargeting{Percentage: 0}

	tests := []struct {
		name string
		rec  *Record
		ctx  ruleengine.Context
		want bool
	}{
		{
			name: "nil record is off",
			rec:  nil,
			ctx:  ruleengine.Context{ruleengine.CtxUserID: "u1"},
			want: false,
		},
		{
			name: "disabled flag is off even when the rule would admit",
			rec:  &Record{Enabled: false, Rule: admitU1},
			ctx:  ruleengine.Context{ruleengine.CtxUserID: "u1"},
			want: false,
		},
		{
			name: "enabled flag without a rule is on for everyone",
			rec:  &Record{Enabled: true},
			ctx:  ruleengine.Context{},
			want: true,
		},
		{
			name: "enabled flag without a rule is on for a nil context",
			rec:  &Record{Enabled: true},
			ctx:  nil,
			want: true,
		},
		{
			name: "enabled flag defers to the rule (admit)",
			rec:  &Record{Enabled: true, Rule: admitU1},
			ctx:  ruleengine.Context{ruleengine.CtxUserID: "u1"},
			want: true,
		},
		{
			name: "enabled flag defers to the rule (reject)",
			rec:  &Record{Enabled: true, Rule: allowNobody},
			ctx:  ruleengine.Context{ruleengine.CtxUserID: "u1"},
			want: false,
		},
		{
			name: "rule evaluation fails closed on a missing context key",
			rec:  &Record{Enabled: true, Rule: admitU1},
			ctx:  ruleengine.Context{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := NewEngineWithClock(fixedClock(now))
			assert.Equal(t, tt.want, e.IsEnabled(tt.rec, tt.ctx))
		})
	}
}

func TestEngine_IsEnabled_TimeWindowUsesInjectedClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	rec := &Record{
		Enabled: true,
		Rule:    &ruleengine.TimeBasedActivation{StartTime: start, EndTime: end},
	}

	inside := NewEngineWithClock(fixedClock(start.Add(24 * time.Hour)))
	assert.True(t, inside.IsEnabled(rec, ruleengine.Context{}))

	after := NewEngineWithClock(fixedClock(end.Add(time.Minute)))
	assert.False(t, after.IsEnabled(rec, ruleengine.Context{}))
}

func TestEngine_ExtractField(t *testing.T) {
	t.Parallel()

	e := NewEngine()

	rec := &Record{
		Enabled: true,
		Rule: &ruleengine.UserTargeting{
			TargetedIDs: []string{"u1", "u2"},
			Percentage:  50,
		},
	}

	got, ok := e.ExtractField(rec, "percentage")
	assert.True(t, ok)
	assert.Equal(t, "50.0", got)

	_, ok = e.ExtractField(rec, "no-such-field")
	assert.False(t, ok)

	_, ok = e.ExtractField(&Record{Enabled: true}, "percentage")
	assert.False(t, ok)

	_, ok = e.ExtractField(nil, "percentage")
	assert.False(t, ok)
}

func TestRecord_RuleKind(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ruleengine.Kind(""), (&Record{}).RuleKind())
	assert.Equal(t, ruleengine.KindGradualRollout,
		(&Record{Rule: &ruleengine.GradualRollout{}}).RuleKind())
}
