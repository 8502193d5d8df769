package ruleengine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.5.0", "1.10.0", -1}, // numeric, not lexical: 5 < 10
		{"1.2", "1.2.0", 0},     // missing trailing segment counts as 0
		{"1.2", "1.2.1", -1},
		{"1.2.3.4", "1.2.3", 1}, // four segments are fine
		{"1.0.a", "1.0.b", -1},  // non-numeric segments compare lexically
		{"1.0.a", "1.0.a", 0},
		{"10", "9", 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s vs %s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, CompareVersions(tt.a, tt.b))

			// Antisymmetry: swapping the arguments must flip the sign.
			assert.Equal(t, -tt.want, CompareVersions(tt.b, tt.a))
		})
	}
}
