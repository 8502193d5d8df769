package controlapi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/skuld-io/skuld/internal/errs"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/ruleengine"
)

// Page size bounds for list endpoints. The hard cap prevents a single
// request from dragging the whole table through the connection.
const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// handleCreateFlag processes POST /api/v1/flags.
//
// The flow is decode, sanitize, validate, persist, respond. A duplicate live
// code yields 409. A notification failure after the commit is logged but does
// not fail the request, since the flag has already been created.
func (a *API) handleCreateFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateFlagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()

	draft, errResp := req.ToDraft()
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	rec, err := a.registry.Create(r.Context(), draft)
	if err != nil && !dismissNotifierError(log, err) {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, rec)
}

// handleListFlags processes GET /api/v1/flags. An optional "type" query
// parameter filters by rule discriminator (e.g. "AB_TESTING_CONFIG");
// "page" and "page_size" select the page. Out-of-bounds page values are
// silently clamped; malformed ones are a 400.
func (a *API) handleListFlags(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	page, err := parseOptionalInt(r, "page", 1)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	pageSize, err := parseOptionalInt(r, "page_size", defaultPageSize)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	offset := (page - 1) * pageSize

	var (
		flags []*flag.Record
		total int64
	)

	if kind := r.URL.Query().Get("type"); kind != "" {
		flags, total, err = a.registry.FindByRuleType(r.Context(), ruleengine.Kind(kind), pageSize, offset)
	} else {
		flags, total, err = a.registry.List(r.Context(), pageSize, offset)
	}
	if err != nil {
		var verr *errs.ValidationError
		if !errors.As(err, &verr) {
			log.Error("failed to list flags", slog.String("error", err.Error()))
		}
		renderDomainError(w, r, err)
		return
	}

	totalPages := 0
	if total > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedResponse{
		Data: flags,
		Pagination: Pagination{
			TotalItems:  total,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

// parseOptionalInt extracts an integer from the query string. A missing
// parameter yields defaultValue; a malformed one is an error.
func parseOptionalInt(r *http.Request, key string, defaultValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be an integer", key)
	}
	return val, nil
}

// handleGetFlag processes GET /api/v1/flags/{code}.
func (a *API) handleGetFlag(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	rec, err := a.registry.GetByCode(r.Context(), code)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, rec)
}

// handleUpdateFlag processes PATCH /api/v1/flags/{code}. Only the provided
// fields change; an explicit null rule clears targeting.
func (a *API) handleUpdateFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	code := chi.URLParam(r, "code")

	var req UpdateFlagRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	changes, errResp := req.ToChanges()
	if errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	rec, err := a.registry.Update(r.Context(), code, changes)
	if err != nil && !dismissNotifierError(log, err) {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, rec)
}

// handleDeleteFlag processes DELETE /api/v1/flags/{code}. The flag is
// tombstoned, releasing its code for reuse.
func (a *API) handleDeleteFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	code := chi.URLParam(r, "code")

	err := a.registry.Delete(r.Context(), code)
	if err != nil && !dismissNotifierError(log, err) {
		renderDomainError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

// handleEnableFlag processes POST /api/v1/flags/{code}/enable.
func (a *API) handleEnableFlag(w http.ResponseWriter, r *http.Request) {
	a.setEnabled(w, r, true)
}

// handleDisableFlag processes POST /api/v1/flags/{code}/disable.
func (a *API) handleDisableFlag(w http.ResponseWriter, r *http.Request) {
	a.setEnabled(w, r, false)
}

func (a *API) setEnabled(w http.ResponseWriter, r *http.Request, enabled bool) {
	log := logger.FromContext(r.Context())
	code := chi.URLParam(r, "code")

	rec, err := a.registry.SetEnabled(r.Context(), code, enabled)
	if err != nil && !dismissNotifierError(log, err) {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, rec)
}

// handleEvaluateFlag processes POST /api/v1/flags/{code}/evaluate. The body
// carries the evaluation context; the response is the boolean decision.
func (a *API) handleEvaluateFlag(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	code := chi.URLParam(r, "code")

	var req EvaluateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	on, err := a.registry.Evaluate(r.Context(), code, ruleengine.Context(req.Context))
	if err != nil {
		renderDomainError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, EvaluateResponse{Code: code, Enabled: on})
}

// handleGetFlagField processes GET /api/v1/flags/{code}/fields/{field},
// returning a single stringified field of the flag's targeting rule.
func (a *API) handleGetFlagField(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	field := chi.URLParam(r, "field")

	val, ok, err := a.registry.FieldValue(r.Context(), code, field)
	if err != nil {
		renderDomainError(w, r, err)
		return
	}
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: "Rule field not found: " + field,
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, FieldResponse{Code: code, Field: field, Value: val})
}

// handleClearCache processes POST /api/v1/cache/clear, flushing every cached
// flag. The store is untouched.
func (a *API) handleClearCache(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	if !a.registry.ClearCache(r.Context()) {
		log.Error("cache clear failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to clear the flag cache",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]string{"status": "cleared"})
}

// dismissNotifierError reports whether err is only a failed change
// announcement. The mutation itself has committed, so the request still
// succeeds; the failure is logged and counted by the notifier.
func dismissNotifierError(log *slog.Logger, err error) bool {
	var nerr *errs.NotifierError
	if !errors.As(err, &nerr) {
		return false
	}
	log.Warn("flag change notification failed",
		slog.String("event", nerr.Kind),
		slog.String("error", nerr.Err.Error()),
	)
	return true
}
