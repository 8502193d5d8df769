package ruleengine

import (
	"sort"
	"strconv"
	"strings"
	"time"
)

// ExtractField projects one configured field of a rule as a stable string.
// It returns ("", false) for a nil rule or a key the variant does not
// expose. This is the second dispatch point of the sealed union and exists
// for introspection and debugging; evaluation never reads through it.
//
// Rendering is deterministic: list fields are comma-joined in configured
// order, map fields are sorted by key and joined as "key:value" pairs,
// numbers print like doubles (whole values keep ".0"), instants use
// RFC 3339.
func ExtractField(r Rule, key string) (string, bool) {
	switch v := r.(type) {
	case nil:
		return "", false
	case *UserTargeting:
		switch key {
		case "whitelistedUsers":
			return joinBoolMap(v.Whitelist), true
		case "blacklistedUsers":
			return joinBoolMap(v.Blacklist), true
		case "targetedUserIds":
			return strings.Join(v.TargetedIDs, ","), true
		case "percentage":
			return formatFloat(v.Percentage), true
		case "defaultValue":
			return strconv.FormatBool(v.DefaultValue), true
		}
	case *GroupTargeting:
		switch key {
		case "groupIds":
			return strings.Join(v.GroupIDs, ","), true
		case "percentage":
			return formatFloat(v.Percentage), true
		}
	case *TimeBasedActivation:
		switch key {
		case "startTime":
			return formatInstant(v.StartTime), true
		case "endTime":
			return formatInstant(v.EndTime), true
		}
	case *GradualRollout:
		switch key {
		case "startPercentage":
			return formatFloat(v.StartPercentage), true
		case "endPercentage":
			return formatFloat(v.EndPercentage), true
		case "startTime":
			return formatInstant(v.StartTime), true
		case "duration":
			return v.Duration.Std().String(), true
		}
	case *ABTesting:
		switch key {
		case "variantA":
			return v.VariantA, true
		case "variantB":
			return v.VariantB, true
		case "distribution":
			return formatFloat(v.Distribution), true
		}
	case *VersionTargeting:
		switch key {
		case "minVersion":
			return v.MinVersion, true
		case "maxVersion":
			return v.MaxVersion, true
		}
	case *GeographicTargeting:
		switch key {
		case "countries":
			return strings.Join(v.Countries, ","), true
		case "regions":
			return strings.Join(v.Regions, ","), true
		}
	case *DeviceTargeting:
		switch key {
		case "platforms":
			return strings.Join(v.Platforms, ","), true
		case "deviceTypes":
			return strings.Join(v.DeviceTypes, ","), true
		}
	case *CustomRules:
		val, ok := v.Rules[key]
		return val, ok
	}

	return "", false
}

func joinBoolMap(m map[string]bool) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+":"+strconv.FormatBool(m[k]))
	}
	return strings.Join(pairs, ",")
}

// formatFloat renders a number the way a double prints: whole values keep
// a trailing ".0" so "73" and 73.0 stay distinguishable to consumers.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
