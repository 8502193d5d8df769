// Package ruleengine provides the core logic for feature flag targeting.
// It defines the closed set of rule variants and evaluates them against a
// per-request context to decide whether a flag is on.
//
// Unlike an open plugin registry, the variant set is a sealed union: adding
// a targeting strategy is a deliberate extension point that requires a new
// type plus arms in the two dispatch switches (evaluate and field
// extraction). The compiler's exhaustiveness over the sealed interface is
// what keeps those two points in sync.
package ruleengine

import "time"

// Kind is the discriminator tag of a rule variant. It is persisted alongside
// the serialized rule and used by the store to filter flags by strategy.
type Kind string

const (
	KindUserTargeting       Kind = "USER_TARGETING"
	KindGroupTargeting      Kind = "GROUP_TARGETING"
	KindTimeBasedActivation Kind = "TIME_BASED_ACTIVATION"
	KindGradualRollout      Kind = "GRADUAL_ROLLOUT"
	KindABTesting           Kind = "AB_TESTING_CONFIG"
	KindVersionTargeting    Kind = "VERSION_TARGETING"
	KindGeographicTargeting Kind = "GEOGRAPHIC_TARGETING"
	KindDeviceTargeting     Kind = "DEVICE_TARGETING"
	KindCustomRules         Kind = "CUSTOM_RULES"
)

// Kinds lists every valid discriminator, in a stable order.
// Used for input validation at the API boundary.
func Kinds() []Kind {
	return []Kind{
		KindUserTargeting,
		KindGroupTargeting,
		KindTimeBasedActivation,
		KindGradualRollout,
		KindABTesting,
		KindVersionTargeting,
		KindGeographicTargeting,
		KindDeviceTargeting,
		KindCustomRules,
	}
}

// Rule is the sealed interface implemented by every targeting variant.
// The unexported marker method closes the set to this package.
type Rule interface {
	// Kind returns the variant's discriminator tag.
	Kind() Kind

	sealedRule()
}

// Compile-time anchor: every variant must satisfy Rule.
var (
	_ Rule = (*UserTargeting)(nil)
	_ Rule = (*GroupTargeting)(nil)
	_ Rule = (*TimeBasedActivation)(nil)
	_ Rule = (*GradualRollout)(nil)
	_ Rule = (*ABTesting)(nil)
	_ Rule = (*VersionTargeting)(nil)
	_ Rule = (*GeographicTargeting)(nil)
	_ Rule = (*DeviceTargeting)(nil)
	_ Rule = (*CustomRules)(nil)
)

// UserTargeting gates a flag on explicit user lists plus a percentage
// rollout over an opt-in set of user ids.
//
// Precedence: blacklist hit returns its mapped value, then whitelist hit
// returns its mapped value, then membership in TargetedIDs combined with the
// inclusive percentage bucket, and finally DefaultValue.
type UserTargeting struct {
	// Whitelist maps user ids to a forced decision, checked second.
	Whitelist map[string]bool `json:"whitelistedUsers,omitempty"`

	// Blacklist maps user ids to a forced decision, checked first.
	Blacklist map[string]bool `json:"blacklistedUsers,omitempty"`

	// TargetedIDs is the opt-in population eligible for the rollout.
	TargetedIDs []string `json:"targetedUserIds,omitempty"`

	// Percentage in [0,100] admits targeted users by hash bucket.
	Percentage float64 `json:"percentage"`

	// DefaultValue is returned when no list or rollout decision applies.
	DefaultValue bool `json:"defaultValue"`
}

func (r *UserTargeting) Kind() Kind  { return KindUserTargeting }
func (r *UserTargeting) sealedRule() {}

// GroupTargeting admits requests whose group id is listed AND falls inside
// the inclusive percentage bucket.
type GroupTargeting struct {
	GroupIDs   []string `json:"groupIds"`
	Percentage float64  `json:"percentage"`
}

func (r *GroupTargeting) Kind() Kind  { return KindGroupTargeting }
func (r *GroupTargeting) sealedRule() {}

// TimeBasedActivation turns the flag on strictly between two instants.
// Both bounds are exclusive.
type TimeBasedActivation struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
}

func (r *TimeBasedActivation) Kind() Kind  { return KindTimeBasedActivation }
func (r *TimeBasedActivation) sealedRule() {}

// GradualRollout linearly interpolates the admission threshold from
// StartPercentage to EndPercentage over Duration, starting at StartTime.
// Admission uses the exclusive bucket comparison on the userId context key.
type GradualRollout struct {
	StartPercentage float64        `json:"startPercentage"`
	EndPercentage   float64        `json:"endPercentage"`
	StartTime       time.Time      `json:"startTime"`
	Duration        DurationMillis `json:"duration"`
}

func (r *GradualRollout) Kind() Kind  { return KindGradualRollout }
func (r *GradualRollout) sealedRule() {}

// ABTesting splits the population into two labeled variants.
// Distribution is the percentage assigned to VariantA; the flag evaluates to
// true when the userId hashes into the VariantA share (exclusive bucket).
type ABTesting struct {
	VariantA string `json:"variantA"`
	VariantB string `json:"variantB"`

	// Distribution in [0,100] is VariantA's share; VariantB gets the rest.
	Distribution float64 `json:"distribution"`
}

func (r *ABTesting) Kind() Kind  { return KindABTesting }
func (r *ABTesting) sealedRule() {}

// VersionTargeting admits app versions inside [MinVersion, MaxVersion],
// inclusive, using dotted numeric-else-lexical segment comparison.
type VersionTargeting struct {
	MinVersion string `json:"minVersion"`
	MaxVersion string `json:"maxVersion"`
}

func (r *VersionTargeting) Kind() Kind  { return KindVersionTargeting }
func (r *VersionTargeting) sealedRule() {}

// GeographicTargeting admits by country and/or region membership. The
// checkBoth context flag switches between union (either set matches) and
// intersection (both must match).
type GeographicTargeting struct {
	Countries []string `json:"countries"`
	Regions   []string `json:"regions"`
}

func (r *GeographicTargeting) Kind() Kind  { return KindGeographicTargeting }
func (r *GeographicTargeting) sealedRule() {}

// DeviceTargeting admits by platform and/or device type membership, with the
// same union/intersection switch as GeographicTargeting.
type DeviceTargeting struct {
	// Platforms, e.g. "iOS", "Android", "Web".
	Platforms []string `json:"platforms"`

	// DeviceTypes, e.g. "Mobile", "Tablet", "Desktop".
	DeviceTypes []string `json:"deviceTypes"`
}

func (r *DeviceTargeting) Kind() Kind  { return KindDeviceTargeting }
func (r *DeviceTargeting) sealedRule() {}

// CustomRules admits a request only when every configured key is present in
// the context and its stringified value equals the expected value,
// case-insensitively. An absent key fails the whole rule (fail closed).
type CustomRules struct {
	Rules map[string]string `json:"rules"`
}

func (r *CustomRules) Kind() Kind  { return KindCustomRules }
func (r *CustomRules) sealedRule() {}
