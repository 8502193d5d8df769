// Package registry implements the flag lifecycle and evaluation facade. It
// orchestrates the store (source of truth), the cache (read optimization)
// and the notifier (post-commit announcements).
//
// Consistency rules: the store is the arbiter of existence. Reads consult
// the cache first and fall through to the store; mutations hit the store
// first, then update the cache best-effort, then announce. A cache or
// notifier failure never undoes a committed mutation.
package registry

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/skuld-io/skuld/internal/cache"
	"github.com/skuld-io/skuld/internal/errs"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/logger"
	"github.com/skuld-io/skuld/internal/notifier"
	"github.com/skuld-io/skuld/internal/observability"
	"github.com/skuld-io/skuld/internal/ruleengine"
	"github.com/skuld-io/skuld/internal/store"
)

// Registry is the single entry point for flag management and evaluation.
type Registry struct {
	store    store.FlagRepository
	cache    cache.Service
	notifier notifier.Notifier
	engine   *flag.Engine
}

// New wires the registry. All dependencies are mandatory; pass
// notifier.Noop{} and a no-op cache rather than nil.
func New(st store.FlagRepository, ca cache.Service, no notifier.Notifier, en *flag.Engine) *Registry {
	if st == nil {
		panic("registry: store cannot be nil")
	}
	if ca == nil {
		panic("registry: cache cannot be nil")
	}
	if no == nil {
		panic("registry: notifier cannot be nil")
	}
	if en == nil {
		panic("registry: engine cannot be nil")
	}
	return &Registry{store: st, cache: ca, notifier: no, engine: en}
}

// opTimer feeds the per-operation latency histogram.
func opTimer(operation string) *prometheus.Timer {
	return prometheus.NewTimer(observability.RegistryOpDuration.WithLabelValues(operation))
}

// Create validates and persists a new flag, then announces it.
//
// Validation happens before anything is persisted. A duplicate live code
// surfaces as *errs.DuplicateCodeError from the store. A notification
// failure is returned alongside the created record.
func (r *Registry) Create(ctx context.Context, d flag.Draft) (*flag.Record, error) {
	defer opTimer("create").ObserveDuration()

	if d.Code == "" {
		return nil, errs.NewValidation("code", "code is required")
	}
	if d.Name == "" {
		return nil, errs.NewValidation("name", "name is required")
	}
	if err := ruleengine.Validate(d.Rule); err != nil {
		return nil, err
	}

	rec := &flag.Record{
		ID:          uuid.New(),
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Enabled:     d.Enabled,
		Rule:        d.Rule,
	}

	if err := r.store.Insert(ctx, rec); err != nil {
		return nil, err
	}

	r.cache.Set(ctx, rec)

	logger.FromContext(ctx).Info("flag created",
		slog.String("code", rec.Code),
		slog.String("rule_type", string(rec.RuleKind())),
		slog.Bool("enabled", rec.Enabled),
	)

	if err := r.notifier.Notify(ctx, notifier.ChangeCreated, rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// GetByCode returns a live flag, consulting the cache first. A cache hit
// never touches the store; a store hit repopulates the cache.
func (r *Registry) GetByCode(ctx context.Context, code string) (*flag.Record, error) {
	defer opTimer("get_by_code").ObserveDuration()

	if rec, ok := r.cache.Get(ctx, code); ok {
		return rec, nil
	}

	rec, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &errs.NotFoundError{Code: code}
	}

	r.cache.Set(ctx, rec)
	return rec, nil
}

// GetByID returns a live flag by its surrogate ID. The cache is keyed by
// code, so this always reads through to the store.
func (r *Registry) GetByID(ctx context.Context, id uuid.UUID) (*flag.Record, error) {
	defer opTimer("get_by_id").ObserveDuration()

	rec, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &errs.NotFoundError{Code: id.String()}
	}
	return rec, nil
}

// List returns a page of live flags, oldest first, plus the total live
// count. Listing bypasses the cache; it is an administrative read and must
// reflect the store exactly.
func (r *Registry) List(ctx context.Context, limit, offset int) ([]*flag.Record, int64, error) {
	defer opTimer("list").ObserveDuration()
	return r.store.List(ctx, limit, offset)
}

// FindByRuleType returns a page of live flags using the given targeting
// strategy, plus the total matching count.
func (r *Registry) FindByRuleType(ctx context.Context, kind ruleengine.Kind, limit, offset int) ([]*flag.Record, int64, error) {
	defer opTimer("find_by_rule_type").ObserveDuration()

	if !validKind(kind) {
		return nil, 0, errs.NewValidation("type", "unknown rule type %q", string(kind))
	}
	return r.store.FindByRuleType(ctx, kind, limit, offset)
}

// Update applies a partial update to a live flag, refreshes the cache and
// announces the change. The store decides existence; a tombstoned or absent
// code yields *errs.NotFoundError.
func (r *Registry) Update(ctx context.Context, code string, ch flag.Changes) (*flag.Record, error) {
	defer opTimer("update").ObserveDuration()

	current, err := r.store.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &errs.NotFoundError{Code: code}
	}

	if ch.Name != nil {
		if *ch.Name == "" {
			return nil, errs.NewValidation("name", "name cannot be empty")
		}
		current.Name = *ch.Name
	}
	if ch.Description != nil {
		current.Description = *ch.Description
	}
	if ch.Enabled != nil {
		current.Enabled = *ch.Enabled
	}
	if ch.Rule != nil {
		if err := ruleengine.Validate(*ch.Rule); err != nil {
			return nil, err
		}
		current.Rule = *ch.Rule
	}

	updated, err := r.store.Update(ctx, current)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Deleted between the read and the write.
		return nil, &errs.NotFoundError{Code: code}
	}

	r.cache.Set(ctx, updated)

	logger.FromContext(ctx).Info("flag updated",
		slog.String("code", updated.Code),
		slog.String("rule_type", string(updated.RuleKind())),
	)

	if err := r.notifier.Notify(ctx, notifier.ChangeUpdated, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// SetEnabled flips the master switch and announces the transition.
func (r *Registry) SetEnabled(ctx context.Context, code string, enabled bool) (*flag.Record, error) {
	defer opTimer("set_enabled").ObserveDuration()

	updated, err := r.store.UpdateEnabled(ctx, code, enabled)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, &errs.NotFoundError{Code: code}
	}

	r.cache.Set(ctx, updated)

	logger.FromContext(ctx).Info("flag toggled",
		slog.String("code", updated.Code),
		slog.Bool("enabled", enabled),
	)

	kind := notifier.ChangeDisabled
	if enabled {
		kind = notifier.ChangeEnabled
	}
	if err := r.notifier.Notify(ctx, kind, updated); err != nil {
		return updated, err
	}
	return updated, nil
}

// Delete tombstones a live flag, evicts it from the cache and announces the
// deletion. The code becomes reusable immediately.
func (r *Registry) Delete(ctx context.Context, code string) error {
	defer opTimer("delete").ObserveDuration()

	deleted, err := r.store.SoftDelete(ctx, code)
	if err != nil {
		return err
	}
	if deleted == nil {
		return &errs.NotFoundError{Code: code}
	}

	r.cache.Delete(ctx, code)

	logger.FromContext(ctx).Info("flag deleted", slog.String("code", code))

	return r.notifier.Notify(ctx, notifier.ChangeDeleted, deleted)
}

// Evaluate answers whether the flag is on for the given context. The flag
// is looked up through the cache; the verdict itself is computed in-process
// and fails closed on malformed context data.
func (r *Registry) Evaluate(ctx context.Context, code string, ectx ruleengine.Context) (bool, error) {
	defer opTimer("evaluate").ObserveDuration()

	rec, err := r.GetByCode(ctx, code)
	if err != nil {
		return false, err
	}

	evalTimer := prometheus.NewTimer(observability.EvaluationDuration)
	verdict := r.engine.IsEnabled(rec, ectx)
	evalTimer.ObserveDuration()

	ruleType := "none"
	if k := rec.RuleKind(); k != "" {
		ruleType = string(k)
	}
	result := "off"
	if verdict {
		result = "on"
	}
	observability.EvaluationsTotal.WithLabelValues(ruleType, result).Inc()

	return verdict, nil
}

// FieldValue projects a single rule field of a flag as a display string.
// The boolean reports whether the rule carries such a field.
func (r *Registry) FieldValue(ctx context.Context, code, key string) (string, bool, error) {
	defer opTimer("field_value").ObserveDuration()

	rec, err := r.GetByCode(ctx, code)
	if err != nil {
		return "", false, err
	}

	val, ok := r.engine.ExtractField(rec, key)
	return val, ok, nil
}

// ClearCache drops every cached flag. Used operationally after out-of-band
// data changes.
func (r *Registry) ClearCache(ctx context.Context) bool {
	defer opTimer("clear_cache").ObserveDuration()
	return r.cache.Clear(ctx)
}

func validKind(kind ruleengine.Kind) bool {
	for _, k := range ruleengine.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}
