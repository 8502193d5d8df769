package ruleengine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-io/skuld/internal/errs"
)

func TestValidate_PercentageBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
		field   string
	}{
		{name: "Nil rule is valid", rule: nil},
		{name: "UserTargeting at lower bound", rule: &UserTargeting{Percentage: 0}},
		{name: "UserTargeting at upper bound", rule: &UserTargeting{Percentage: 100}},
		{
			name:    "UserTargeting above 100",
			rule:    &UserTargeting{Percentage: 100.01},
			wantErr: true,
			field:   "percentage",
		},
		{
			name:    "GroupTargeting negative",
			rule:    &GroupTargeting{GroupIDs: []string{"g"}, Percentage: -1},
			wantErr: true,
			field:   "percentage",
		},
		{
			name: "GradualRollout in bounds",
			rule: &GradualRollout{StartPercentage: 0, EndPercentage: 100},
		},
		{
			name:    "GradualRollout bad start",
			rule:    &GradualRollout{StartPercentage: -5, EndPercentage: 50},
			wantErr: true,
			field:   "startPercentage",
		},
		{
			name:    "GradualRollout bad end",
			rule:    &GradualRollout{StartPercentage: 5, EndPercentage: 101},
			wantErr: true,
			field:   "endPercentage",
		},
		{
			name:    "ABTesting distribution out of range",
			rule:    &ABTesting{VariantA: "a", VariantB: "b", Distribution: 150},
			wantErr: true,
			field:   "distribution",
		},
		{name: "VersionTargeting has no percentage fields", rule: &VersionTargeting{}},
		{name: "GeographicTargeting has no percentage fields", rule: &GeographicTargeting{}},
		{name: "DeviceTargeting has no percentage fields", rule: &DeviceTargeting{}},
		{name: "CustomRules has no percentage fields", rule: &CustomRules{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rule)

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}

			var vErr *errs.ValidationError
			require.True(t, errors.As(err, &vErr), "expected ValidationError, got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}
