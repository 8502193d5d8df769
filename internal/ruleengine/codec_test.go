package ruleengine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTripPreservesVariantAndFields(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	rules := []Rule{
		&UserTargeting{
			Whitelist:   map[string]bool{"vip": true},
			Blacklist:   map[string]bool{"abuser": false},
			TargetedIDs: []string{"u1", "u2"},
			Percentage:  73,
		},
		&GroupTargeting{GroupIDs: []string{"g1"}, Percentage: 50},
		&TimeBasedActivation{StartTime: start, EndTime: start.Add(48 * time.Hour)},
		&GradualRollout{
			StartPercentage: 5,
			EndPercentage:   95,
			StartTime:       start,
			Duration:        DurationMillis(36 * time.Hour),
		},
		&ABTesting{VariantA: "new", VariantB: "old", Distribution: 25},
		&VersionTargeting{MinVersion: "1.0.0", MaxVersion: "2.0.0"},
		&GeographicTargeting{Countries: []string{"US"}, Regions: []string{"west"}},
		&DeviceTargeting{Platforms: []string{"iOS"}, DeviceTypes: []string{"Mobile"}},
		&CustomRules{Rules: map[string]string{"plan": "premium"}},
	}

	for _, original := range rules {
		t.Run(string(original.Kind()), func(t *testing.T) {
			data, err := Marshal(original)
			require.NoError(t, err)

			decoded, err := Unmarshal(data)
			require.NoError(t, err)

			require.Equal(t, original.Kind(), decoded.Kind())
			assert.Equal(t, original, decoded)
		})
	}
}

func TestCodec_WireFormatIsFlatDiscriminated(t *testing.T) {
	t.Parallel()

	data, err := Marshal(&GroupTargeting{GroupIDs: []string{"g1", "g2"}, Percentage: 50})
	require.NoError(t, err)

	// The variant fields must sit next to the tag, not nested under it.
	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))

	assert.Equal(t, "GROUP_TARGETING", flat["type"])
	assert.Equal(t, []any{"g1", "g2"}, flat["groupIds"])
	assert.Equal(t, float64(50), flat["percentage"])
}

func TestCodec_DurationSerializesAsMilliseconds(t *testing.T) {
	t.Parallel()

	rule := &GradualRollout{
		StartPercentage: 0,
		EndPercentage:   100,
		StartTime:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Duration:        DurationMillis(90 * time.Second),
	}

	data, err := Marshal(rule)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(data, &flat))
	assert.Equal(t, float64(90000), flat["duration"])
}

func TestCodec_UnknownFieldsAreIgnored(t *testing.T) {
	t.Parallel()

	// Payload written by a newer version with an extra field.
	payload := `{"type":"GROUP_TARGETING","groupIds":["g1"],"percentage":30,"rampUp":true}`

	decoded, err := Unmarshal([]byte(payload))
	require.NoError(t, err)

	rule, ok := decoded.(*GroupTargeting)
	require.True(t, ok)
	assert.Equal(t, []string{"g1"}, rule.GroupIDs)
	assert.Equal(t, float64(30), rule.Percentage)
}

func TestCodec_Errors(t *testing.T) {
	t.Parallel()

	t.Run("Unknown type tag is rejected", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"type":"SHOE_SIZE_TARGETING"}`))
		assert.ErrorContains(t, err, "unknown rule type")
	})

	t.Run("Missing type tag is rejected", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{"percentage":50}`))
		assert.Error(t, err)
	})

	t.Run("Malformed JSON is rejected", func(t *testing.T) {
		_, err := Unmarshal([]byte(`{`))
		assert.Error(t, err)
	})
}

func TestCodec_NilAndNull(t *testing.T) {
	t.Parallel()

	data, err := Marshal(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	decoded, err := Unmarshal([]byte("null"))
	require.NoError(t, err)
	assert.Nil(t, decoded)

	decoded, err = Unmarshal(nil)
	require.NoError(t, err)
	assert.Nil(t, decoded)
}
