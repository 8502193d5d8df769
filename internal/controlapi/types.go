// Package controlapi implements the REST API of the flag registry.
// It handles HTTP routing, request decoding, validation, and response
// formatting.
package controlapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/render"

	"github.com/skuld-io/skuld/internal/errs"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/ruleengine"
)

// flagCodeRegex ensures codes are URL-safe slugs (lowercase, numbers,
// hyphens, underscores). Compiled once at package initialization.
var flagCodeRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

// validateFlagCode enforces the format and length rules for the natural key.
func validateFlagCode(code string) *ErrorResponse {
	if code == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Code is required",
		}
	}
	if len(code) > 255 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Code must be at most 255 characters",
		}
	}
	if !flagCodeRegex.MatchString(code) {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Code must contain only lowercase letters, numbers, hyphens, and underscores",
		}
	}
	return nil
}

// validateFlagName enforces rules for the human-readable name.
func validateFlagName(name string) *ErrorResponse {
	if name == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Name is required",
		}
	}
	if len(name) > 255 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Name must be at most 255 characters",
		}
	}
	return nil
}

// parseRule decodes a targeting rule envelope. An explicit JSON null yields a
// nil rule.
func parseRule(raw json.RawMessage) (ruleengine.Rule, *ErrorResponse) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	rule, err := ruleengine.Unmarshal(raw)
	if err != nil {
		return nil, &ErrorResponse{
			Code:    "ERR_INVALID_RULE",
			Message: "Invalid targeting rule: " + err.Error(),
		}
	}
	return rule, nil
}

// CreateFlagRequest defines the payload for creating a new flag.
type CreateFlagRequest struct {
	// Code is required and immutable. Matches '^[a-z0-9_-]+$'.
	Code string `json:"code"`

	// Name is required.
	Name string `json:"name"`

	// Description is optional.
	Description string `json:"description,omitempty"`

	// Enabled defaults to false if omitted (secure by default).
	Enabled bool `json:"enabled"`

	// Rule is the optional targeting rule envelope, discriminated by its
	// "type" field. Omitted or null means the flag is on for everyone
	// once enabled.
	Rule json.RawMessage `json:"rule,omitempty"`
}

// Sanitize cleans up input data by trimming whitespace and normalizing case.
func (r *CreateFlagRequest) Sanitize() {
	r.Code = strings.ToLower(strings.TrimSpace(r.Code))
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

// ToDraft validates the request and converts it to the domain draft.
// It returns a structured *ErrorResponse if validation fails.
func (r *CreateFlagRequest) ToDraft() (flag.Draft, *ErrorResponse) {
	if errResp := validateFlagCode(r.Code); errResp != nil {
		return flag.Draft{}, errResp
	}
	if errResp := validateFlagName(r.Name); errResp != nil {
		return flag.Draft{}, errResp
	}

	rule, errResp := parseRule(r.Rule)
	if errResp != nil {
		return flag.Draft{}, errResp
	}

	return flag.Draft{
		Code:        r.Code,
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
		Rule:        rule,
	}, nil
}

// UpdateFlagRequest defines the payload for partial updates (PATCH).
// Pointers distinguish "missing field" (keep current value) from an explicit
// update. For Rule, an explicit null clears the targeting rule.
type UpdateFlagRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Enabled     *bool            `json:"enabled,omitempty"`
	Rule        *json.RawMessage `json:"rule,omitempty"`
}

// ToChanges validates the provided fields and converts them to the domain
// change set.
func (r *UpdateFlagRequest) ToChanges() (flag.Changes, *ErrorResponse) {
	if r.Name != nil {
		trimmed := strings.TrimSpace(*r.Name)
		if errResp := validateFlagName(trimmed); errResp != nil {
			return flag.Changes{}, errResp
		}
		r.Name = &trimmed
	}

	ch := flag.Changes{
		Name:        r.Name,
		Description: r.Description,
		Enabled:     r.Enabled,
	}

	if r.Rule != nil {
		rule, errResp := parseRule(*r.Rule)
		if errResp != nil {
			return flag.Changes{}, errResp
		}
		ch.Rule = &rule
	}

	return ch, nil
}

// EvaluateRequest carries the evaluation context for a flag decision.
type EvaluateRequest struct {
	Context map[string]any `json:"context"`
}

// EvaluateResponse is the outcome of a flag decision.
type EvaluateResponse struct {
	Code    string `json:"code"`
	Enabled bool   `json:"enabled"`
}

// FieldResponse carries a single stringified rule field.
type FieldResponse struct {
	Code  string `json:"code"`
	Field string `json:"field"`
	Value string `json:"value"`
}

// PaginatedResponse is the standard wrapper for list endpoints.
type PaginatedResponse struct {
	// Data holds the page of flags.
	Data []*flag.Record `json:"data"`

	// Pagination contains the page metadata.
	Pagination Pagination `json:"pagination"`
}

// Pagination metadata for the frontend pager.
type Pagination struct {
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`
}

// renderDomainError maps registry errors onto HTTP status codes and the
// structured error body.
func renderDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *errs.ValidationError
		nerr *errs.NotFoundError
		derr *errs.DuplicateCodeError
	)

	switch {
	case errors.As(err, &verr):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: verr.Error(),
		})
	case errors.As(err, &nerr):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: "Feature flag not found: " + nerr.Code,
		})
	case errors.As(err, &derr):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_CONFLICT",
			Message: "A flag with this code already exists",
		})
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Internal server error",
		})
	}
}
