package ruleengine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/skuld-io/skuld/internal/hashing"
)

var evalNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEvaluate_UserTargeting(t *testing.T) {
	t.Parallel()

	rule := &UserTargeting{
		Whitelist:   map[string]bool{"vip": true, "banned-from-beta": false},
		Blacklist:   map[string]bool{"abuser": false, "pinned": true},
		TargetedIDs: []string{"u1", "u2"},
		Percentage:  100,
	}

	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{
			name: "Blacklist wins over everything and carries its mapped value",
			ctx:  Context{CtxUserID: "abuser"},
			want: false,
		},
		{
			name: "Blacklist entry can force-enable",
			ctx:  Context{CtxUserID: "pinned"},
			want: true,
		},
		{
			name: "Whitelist hit returns its mapped value",
			ctx:  Context{CtxUserID: "vip"},
			want: true,
		},
		{
			name: "Whitelist can force-disable",
			ctx:  Context{CtxUserID: "banned-from-beta"},
			want: false,
		},
		{
			name: "Targeted user at 100% is admitted",
			ctx:  Context{CtxUserID: "u1"},
			want: true,
		},
		{
			name: "Untargeted user falls back to default (false)",
			ctx:  Context{CtxUserID: "stranger"},
			want: false,
		},
		{
			name: "Missing userId fails closed",
			ctx:  Context{},
			want: false,
		},
		{
			name: "Wrong-typed userId fails closed",
			ctx:  Context{CtxUserID: 42},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(rule, tt.ctx, evalNow))
		})
	}
}

func TestEvaluate_UserTargeting_PercentageMatchesInclusiveConvention(t *testing.T) {
	t.Parallel()

	// A targeted user's admission must be exactly the inclusive bucket test
	// at the configured threshold; the rule adds nothing on top of it.
	rule := &UserTargeting{TargetedIDs: []string{"u1", "u2"}, Percentage: 73}

	for _, id := range []string{"u1", "u2"} {
		want := hashing.AdmittedInclusive(id, 73)
		got := Evaluate(rule, Context{CtxUserID: id}, evalNow)
		assert.Equal(t, want, got, "user %s diverged from inclusive bucket test", id)
	}
}

func TestEvaluate_UserTargeting_DefaultValueTrue(t *testing.T) {
	t.Parallel()

	rule := &UserTargeting{
		TargetedIDs:  []string{"u1"},
		Percentage:   0,
		DefaultValue: true,
	}

	// At 0% nobody passes the rollout, so even targeted users land on the
	// default.
	assert.True(t, Evaluate(rule, Context{CtxUserID: "u1"}, evalNow))
	assert.True(t, Evaluate(rule, Context{CtxUserID: "other"}, evalNow))

	// Missing identifier still fails closed regardless of the default.
	assert.False(t, Evaluate(rule, Context{}, evalNow))
}

func TestEvaluate_GroupTargeting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rule *GroupTargeting
		ctx  Context
		want bool
	}{
		{
			name: "Listed group at 100% is admitted",
			rule: &GroupTargeting{GroupIDs: []string{"g1", "g2"}, Percentage: 100},
			ctx:  Context{CtxGroupID: "g1"},
			want: true,
		},
		{
			name: "Unlisted group is rejected even at 100%",
			rule: &GroupTargeting{GroupIDs: []string{"g1"}, Percentage: 100},
			ctx:  Context{CtxGroupID: "g9"},
			want: false,
		},
		{
			name: "Listed group at 0% is rejected",
			rule: &GroupTargeting{GroupIDs: []string{"g1"}, Percentage: 0},
			ctx:  Context{CtxGroupID: "g1"},
			want: false,
		},
		{
			name: "Missing groupId fails closed",
			rule: &GroupTargeting{GroupIDs: []string{"g1"}, Percentage: 100},
			ctx:  Context{CtxUserID: "u1"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.rule, tt.ctx, evalNow))
		})
	}
}

func TestEvaluate_TimeBasedActivation(t *testing.T) {
	t.Parallel()

	rule := &TimeBasedActivation{
		StartTime: evalNow.Add(-time.Hour),
		EndTime:   evalNow.Add(time.Hour),
	}

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "Inside window", now: evalNow, want: true},
		{name: "Before window", now: evalNow.Add(-2 * time.Hour), want: false},
		{name: "After window", now: evalNow.Add(2 * time.Hour), want: false},
		{name: "Exactly at start is off (strict bound)", now: rule.StartTime, want: false},
		{name: "Exactly at end is off (strict bound)", now: rule.EndTime, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(rule, Context{}, tt.now))
		})
	}
}

func TestEvaluate_ABTesting(t *testing.T) {
	t.Parallel()

	t.Run("Admission matches the exclusive convention", func(t *testing.T) {
		rule := &ABTesting{VariantA: "checkout-v2", VariantB: "checkout-v1", Distribution: 40}

		for _, id := range []string{"u1", "u2", "u3", "u4"} {
			want := hashing.AdmittedExclusive(id, 40)
			assert.Equal(t, want, Evaluate(rule, Context{CtxUserID: id}, evalNow))
		}
	})

	t.Run("Missing userId fails closed", func(t *testing.T) {
		rule := &ABTesting{VariantA: "a", VariantB: "b", Distribution: 100}
		assert.False(t, Evaluate(rule, Context{}, evalNow))
	})
}

func TestEvaluate_VersionTargeting(t *testing.T) {
	t.Parallel()

	rule := &VersionTargeting{MinVersion: "1.0.0", MaxVersion: "2.0.0"}

	tests := []struct {
		version string
		want    bool
	}{
		{version: "1.5.0", want: true},
		{version: "1.0.0", want: true}, // inclusive lower bound
		{version: "2.0.0", want: true}, // inclusive upper bound
		{version: "0.9.9", want: false},
		{version: "2.0.1", want: false},
		{version: "1.5", want: true}, // short form still compares
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			got := Evaluate(rule, Context{CtxAppVersion: tt.version}, evalNow)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("Missing appVersion fails closed", func(t *testing.T) {
		assert.False(t, Evaluate(rule, Context{}, evalNow))
	})
}

func TestEvaluate_GeographicTargeting(t *testing.T) {
	t.Parallel()

	rule := &GeographicTargeting{
		Countries: []string{"US", "CA"},
		Regions:   []string{"west", "east"},
	}

	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{
			name: "Union: country alone matches",
			ctx:  Context{CtxCountry: "US"},
			want: true,
		},
		{
			name: "Union: region alone matches",
			ctx:  Context{CtxRegion: "west"},
			want: true,
		},
		{
			name: "Union: neither matches",
			ctx:  Context{CtxCountry: "BR", CtxRegion: "south"},
			want: false,
		},
		{
			name: "Intersection: both match",
			ctx:  Context{CtxCountry: "US", CtxRegion: "east", CtxCheckBoth: true},
			want: true,
		},
		{
			name: "Intersection: country matches but region absent",
			ctx:  Context{CtxCountry: "US", CtxCheckBoth: true},
			want: false,
		},
		{
			name: "Intersection: region mismatch",
			ctx:  Context{CtxCountry: "US", CtxRegion: "south", CtxCheckBoth: true},
			want: false,
		},
		{
			name: "Empty context fails closed",
			ctx:  Context{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(rule, tt.ctx, evalNow))
		})
	}
}

func TestEvaluate_DeviceTargeting(t *testing.T) {
	t.Parallel()

	rule := &DeviceTargeting{
		Platforms:   []string{"iOS", "Android"},
		DeviceTypes: []string{"Mobile", "Tablet"},
	}

	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{
			name: "Union: platform alone matches",
			ctx:  Context{CtxPlatform: "iOS"},
			want: true,
		},
		{
			name: "Union: device type alone matches",
			ctx:  Context{CtxDeviceType: "Tablet"},
			want: true,
		},
		{
			name: "Intersection requires both",
			ctx:  Context{CtxPlatform: "iOS", CtxCheckBoth: true},
			want: false,
		},
		{
			name: "Intersection: both present and listed",
			ctx:  Context{CtxPlatform: "Android", CtxDeviceType: "Mobile", CtxCheckBoth: true},
			want: true,
		},
		{
			name: "Unlisted platform, unlisted device",
			ctx:  Context{CtxPlatform: "Web", CtxDeviceType: "Desktop"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(rule, tt.ctx, evalNow))
		})
	}
}

func TestEvaluate_CustomRules(t *testing.T) {
	t.Parallel()

	rule := &CustomRules{Rules: map[string]string{
		"plan":   "premium",
		"region": "EU",
	}}

	tests := []struct {
		name string
		ctx  Context
		want bool
	}{
		{
			name: "All keys present and equal",
			ctx:  Context{"plan": "premium", "region": "EU"},
			want: true,
		},
		{
			name: "Comparison is case-insensitive",
			ctx:  Context{"plan": "PREMIUM", "region": "eu"},
			want: true,
		},
		{
			name: "Non-string context values are stringified",
			ctx:  Context{"plan": "premium", "region": "EU", "extra": 7},
			want: true,
		},
		{
			name: "One mismatched key fails the whole rule",
			ctx:  Context{"plan": "premium", "region": "US"},
			want: false,
		},
		{
			name: "Absent key fails closed",
			ctx:  Context{"plan": "premium"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(rule, tt.ctx, evalNow))
		})
	}

	t.Run("Empty rule map is vacuously satisfied", func(t *testing.T) {
		assert.True(t, Evaluate(&CustomRules{}, Context{}, evalNow))
	})

	t.Run("Numeric rule value matches stringified context number", func(t *testing.T) {
		r := &CustomRules{Rules: map[string]string{"retries": "3"}}
		assert.True(t, Evaluate(r, Context{"retries": 3}, evalNow))
		assert.False(t, Evaluate(r, Context{"retries": 4}, evalNow))
	})
}
