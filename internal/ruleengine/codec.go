package ruleengine

import (
	"encoding/json"
	"fmt"
	"time"
)

// The wire format is a flat discriminated object: the variant's own fields
// plus a "type" tag, e.g.
//
//	{"type":"GROUP_TARGETING","groupIds":["g1"],"percentage":50}
//
// This is the self-describing form the store persists (jsonb) and the cache
// round-trips. Unknown or extra fields are ignored on decode so older
// binaries tolerate payloads written by newer ones; an unknown type tag is
// an error because there is no safe way to evaluate a rule we do not know.

// DurationMillis is a time.Duration that serializes as integer milliseconds,
// matching the persisted rollout format.
type DurationMillis time.Duration

// Std converts back to a standard time.Duration.
func (d DurationMillis) Std() time.Duration { return time.Duration(d) }

func (d DurationMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).Milliseconds())
}

func (d *DurationMillis) UnmarshalJSON(data []byte) error {
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return fmt.Errorf("duration must be integer milliseconds: %w", err)
	}
	*d = DurationMillis(time.Duration(ms) * time.Millisecond)
	return nil
}

// typeTag is the decode probe used to pick the concrete variant.
type typeTag struct {
	Type Kind `json:"type"`
}

// Marshal encodes a rule into its discriminated wire form.
// A nil rule encodes as JSON null.
func Marshal(r Rule) ([]byte, error) {
	if r == nil {
		return []byte("null"), nil
	}

	// Wrap each variant so the tag and the flat fields share one object.
	// The embedded pointer inlines the variant's fields next to "type".
	switch v := r.(type) {
	case *UserTargeting:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*UserTargeting
		}{r.Kind(), v})
	case *GroupTargeting:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*GroupTargeting
		}{r.Kind(), v})
	case *TimeBasedActivation:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*TimeBasedActivation
		}{r.Kind(), v})
	case *GradualRollout:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*GradualRollout
		}{r.Kind(), v})
	case *ABTesting:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*ABTesting
		}{r.Kind(), v})
	case *VersionTargeting:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*VersionTargeting
		}{r.Kind(), v})
	case *GeographicTargeting:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*GeographicTargeting
		}{r.Kind(), v})
	case *DeviceTargeting:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*DeviceTargeting
		}{r.Kind(), v})
	case *CustomRules:
		return json.Marshal(struct {
			Type Kind `json:"type"`
			*CustomRules
		}{r.Kind(), v})
	}

	return nil, fmt.Errorf("unsupported rule type %T", r)
}

// Unmarshal decodes a discriminated wire object into its concrete variant.
// JSON null decodes to (nil, nil), mirroring a flag with no targeting rule.
func Unmarshal(data []byte) (Rule, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("invalid rule payload: %w", err)
	}

	var (
		r   Rule
		err error
	)

	switch tag.Type {
	case KindUserTargeting:
		v := &UserTargeting{}
		err = json.Unmarshal(data, v)
		r = v
	case KindGroupTargeting:
		v := &GroupTargeting{}
		err = json.Unmarshal(data, v)
		r = v
	case KindTimeBasedActivation:
		v := &TimeBasedActivation{}
		err = json.Unmarshal(data, v)
		r = v
	case KindGradualRollout:
		v := &GradualRollout{}
		err = json.Unmarshal(data, v)
		r = v
	case KindABTesting:
		v := &ABTesting{}
		err = json.Unmarshal(data, v)
		r = v
	case KindVersionTargeting:
		v := &VersionTargeting{}
		err = json.Unmarshal(data, v)
		r = v
	case KindGeographicTargeting:
		v := &GeographicTargeting{}
		err = json.Unmarshal(data, v)
		r = v
	case KindDeviceTargeting:
		v := &DeviceTargeting{}
		err = json.Unmarshal(data, v)
		r = v
	case KindCustomRules:
		v := &CustomRules{}
		err = json.Unmarshal(data, v)
		r = v
	default:
		return nil, fmt.Errorf("unknown rule type %q", tag.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid %s rule payload: %w", tag.Type, err)
	}
	return r, nil
}
