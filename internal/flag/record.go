// Package flag defines the feature flag entity shared by the store, the
// cache and the registry, together with the evaluation engine that combines
// the master switch with the targeting rule.
package flag

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skuld-io/skuld/internal/ruleengine"
)

// Record is a persisted feature flag.
//
// Identity is two-fold: ID is the opaque surrogate assigned at creation,
// Code is the human-chosen lookup handle. Both are immutable; update
// operations only touch Name, Description, Enabled and Rule.
type Record struct {
	ID uuid.UUID

	// Code is the sole external lookup handle, unique among live records.
	// A tombstoned record releases its code for reuse.
	Code string

	Name        string
	Description string

	// Enabled is the master switch. When false the flag is off for every
	// context regardless of the rule.
	Enabled bool

	// Rule is the optional targeting rule. Nil means "on for everyone"
	// while the flag is enabled.
	Rule ruleengine.Rule

	CreatedAt time.Time

	// UpdatedAt is nil until the first mutation.
	UpdatedAt *time.Time

	// DeletedAt is the soft-delete tombstone. A non-nil value makes the
	// record invisible to every read path while the row is retained.
	DeletedAt *time.Time
}

// Deleted reports whether the record is tombstoned.
func (r *Record) Deleted() bool {
	return r.DeletedAt != nil
}

// RuleKind returns the rule's discriminator tag, or "" for an untargeted flag.
func (r *Record) RuleKind() ruleengine.Kind {
	if r.Rule == nil {
		return ""
	}
	return r.Rule.Kind()
}

// Draft is the caller-supplied portion of a new flag. The registry assigns
// identity and timestamps on creation.
type Draft struct {
	Code        string
	Name        string
	Description string
	Enabled     bool
	Rule        ruleengine.Rule
}

// Changes is a partial update. Nil fields are left untouched; the Rule
// pointer distinguishes "keep the current rule" (nil pointer) from "clear
// the rule" (pointer to a nil rule).
type Changes struct {
	Name        *string
	Description *string
	Enabled     *bool
	Rule        *ruleengine.Rule
}

// recordWire is the serialized shape shared by the cache and any transport
// that carries whole records. The rule travels in its discriminated
// envelope form so it round-trips through the union decoder.
type recordWire struct {
	ID          uuid.UUID       `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Enabled     bool            `json:"enabled"`
	Rule        json.RawMessage `json:"rule,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
	DeletedAt   *time.Time      `json:"deletedAt,omitempty"`
}

// MarshalJSON encodes the record with its rule in discriminated form.
func (r Record) MarshalJSON() ([]byte, error) {
	ruleJSON, err := ruleengine.Marshal(r.Rule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode rule for flag %q: %w", r.Code, err)
	}
	if string(ruleJSON) == "null" {
		ruleJSON = nil
	}

	return json.Marshal(recordWire{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
		Rule:        ruleJSON,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		DeletedAt:   r.DeletedAt,
	})
}

// UnmarshalJSON decodes the wire form, reconstructing the concrete rule
// variant from its type tag.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	rule, err := ruleengine.Unmarshal(w.Rule)
	if err != nil {
		return fmt.Errorf("failed to decode rule for flag %q: %w", w.Code, err)
	}

	*r = Record{
		ID:          w.ID,
		Code:        w.Code,
		Name:        w.Name,
		Description: w.Description,
		Enabled:     w.Enabled,
		Rule:        rule,
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
		DeletedAt:   w.DeletedAt,
	}
	return nil
}
