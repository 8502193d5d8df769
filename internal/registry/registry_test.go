package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skuld-io/skuld/internal/errs"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/notifier"
	"github.com/skuld-io/skuld/internal/ruleengine"
)

// fakeStore is an in-memory FlagRepository that counts calls, so tests can
// prove which paths touched the source of truth.
type fakeStore struct {
	byCode map[string]*flag.Record

	insertCalls    int
	getByCodeCalls int

	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{byCode: map[string]*flag.Record{}}
}

func (s *fakeStore) Insert(_ context.Context, rec *flag.Record) error {
	s.insertCalls++
	if s.failWith != nil {
		return s.failWith
	}
	if _, exists := s.byCode[rec.Code]; exists {
		return &errs.DuplicateCodeError{Code: rec.Code}
	}
	rec.CreatedAt = time.Now().UTC()
	s.byCode[rec.Code] = rec
	return nil
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*flag.Record, error) {
	for _, rec := range s.byCode {
		if rec.ID == id {
			return rec, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetByCode(_ context.Context, code string) (*flag.Record, error) {
	s.getByCodeCalls++
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.byCode[code], nil
}

func (s *fakeStore) Update(_ context.Context, rec *flag.Record) (*flag.Record, error) {
	if _, exists := s.byCode[rec.Code]; !exists {
		return nil, nil
	}
	now := time.Now().UTC()
	rec.UpdatedAt = &now
	s.byCode[rec.Code] = rec
	return rec, nil
}

func (s *fakeStore) UpdateEnabled(_ context.Context, code string, enabled bool) (*flag.Record, error) {
	rec, exists := s.byCode[code]
	if !exists {
		return nil, nil
	}
	now := time.Now().UTC()
	rec.Enabled = enabled
	rec.UpdatedAt = &now
	return rec, nil
}

func (s *fakeStore) SoftDelete(_ context.Context, code string) (*flag.Record, error) {
	rec, exists := s.byCode[code]
	if !exists {
		return nil, nil
	}
	now := time.Now().UTC()
	rec.DeletedAt = &now
	delete(s.byCode, code)
	return rec, nil
}

func (s *fakeStore) List(_ context.Context, limit, offset int) ([]*flag.Record, int64, error) {
	out := []*flag.Record{}
	for _, rec := range s.byCode {
		out = append(out, rec)
	}
	return page(out, limit, offset), int64(len(out)), nil
}

func (s *fakeStore) FindByRuleType(_ context.Context, kind ruleengine.Kind, limit, offset int) ([]*flag.Record, int64, error) {
	out := []*flag.Record{}
	for _, rec := range s.byCode {
		if rec.RuleKind() == kind {
			out = append(out, rec)
		}
	}
	return page(out, limit, offset), int64(len(out)), nil
}

func page(recs []*flag.Record, limit, offset int) []*flag.Record {
	if offset >= len(recs) {
		return []*flag.Record{}
	}
	end := offset + limit
	if end > len(recs) {
		end = len(recs)
	}
	return recs[offset:end]
}

// fakeCache is an in-memory cache.Service. With degraded=true every
// operation reports failure, mimicking an unreachable backend.
type fakeCache struct {
	entries  map[string]*flag.Record
	degraded bool

	getCalls int
	setCalls int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[string]*flag.Record{}}
}

func (c *fakeCache) Get(_ context.Context, code string) (*flag.Record, bool) {
	c.getCalls++
	if c.degraded {
		return nil, false
	}
	rec, ok := c.entries[code]
	return rec, ok
}

func (c *fakeCache) Set(_ context.Context, rec *flag.Record) bool {
	c.setCalls++
	if c.degraded {
		return false
	}
	c.entries[rec.Code] = rec
	return true
}

func (c *fakeCache) Delete(_ context.Context, code string) bool {
	if c.degraded {
		return false
	}
	delete(c.entries, code)
	return true
}

func (c *fakeCache) Clear(_ context.Context) bool {
	if c.degraded {
		return false
	}
	c.entries = map[string]*flag.Record{}
	return true
}

func (c *fakeCache) HealthCheck(_ context.Context) error { return nil }
func (c *fakeCache) Close() error                        { return nil }

// fakeNotifier records announcements and can simulate delivery failure.
type fakeNotifier struct {
	events []notifier.ChangeKind
	fail   bool
}

func (n *fakeNotifier) Notify(_ context.Context, kind notifier.ChangeKind, rec *flag.Record) error {
	n.events = append(n.events, kind)
	if n.fail {
		return &errs.NotifierError{Kind: string(kind), Err: errors.New("webhook down")}
	}
	return nil
}

type fixture struct {
	store    *fakeStore
	cache    *fakeCache
	notifier *fakeNotifier
	registry *Registry
}

func newFixture() *fixture {
	st := newFakeStore()
	ca := newFakeCache()
	no := &fakeNotifier{}
	return &fixture{
		store:    st,
		cache:    ca,
		notifier: no,
		registry: New(st, ca, no, flag.NewEngine()),
	}
}

func TestRegistry_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("persists, caches and announces", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		rec, err := f.registry.Create(ctx, flag.Draft{
			Code:    "new-checkout",
			Name:    "New checkout",
			Enabled: true,
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, rec.ID)
		assert.Contains(t, f.store.byCode, "new-checkout")
		assert.Contains(t, f.cache.entries, "new-checkout")
		assert.Equal(t, []notifier.ChangeKind{notifier.ChangeCreated}, f.notifier.events)
	})

	t.Run("rejects invalid input before touching the store", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		cases := []flag.Draft{
			{Name: "No code"},
			{Code: "no-name"},
			{Code: "bad-rule", Name: "Bad rule", Rule: &ruleengine.UserTargeting{Percentage: 150}},
		}
		for _, d := range cases {
			_, err := f.registry.Create(ctx, d)
			var verr *errs.ValidationError
			assert.ErrorAs(t, err, &verr)
		}
		assert.Zero(t, f.store.insertCalls, "validation failures must not reach the store")
	})

	t.Run("surfaces duplicate live code", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{Code: "dup", Name: "First"})
		require.NoError(t, err)

		_, err = f.registry.Create(ctx, flag.Draft{Code: "dup", Name: "Second"})
		var derr *errs.DuplicateCodeError
		require.ErrorAs(t, err, &derr)
		assert.Equal(t, "dup", derr.Code)
	})

	t.Run("notifier failure is returned with the committed record", func(t *testing.T) {
		t.Parallel()
		f := newFixture()
		f.notifier.fail = true

		rec, err := f.registry.Create(ctx, flag.Draft{Code: "noisy", Name: "Noisy"})

		var nerr *errs.NotifierError
		require.ErrorAs(t, err, &nerr)
		require.NotNil(t, rec, "the mutation must survive a failed announcement")
		assert.Contains(t, f.store.byCode, "noisy")
	})
}

func TestRegistry_GetByCode(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("warm cache skips the store", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{Code: "hot", Name: "Hot"})
		require.NoError(t, err)

		before := f.store.getByCodeCalls
		rec, err := f.registry.GetByCode(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, "hot", rec.Code)
		assert.Equal(t, before, f.store.getByCodeCalls, "cache hit must not touch the store")
	})

	t.Run("cold cache reads through and repopulates", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{Code: "cold", Name: "Cold"})
		require.NoError(t, err)
		f.cache.Clear(ctx)

		rec, err := f.registry.GetByCode(ctx, "cold")
		require.NoError(t, err)
		assert.Equal(t, "cold", rec.Code)
		assert.Contains(t, f.cache.entries, "cold", "store hit should repopulate the cache")
	})

	t.Run("degraded cache falls through to the store", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{Code: "resilient", Name: "Resilient"})
		require.NoError(t, err)
		f.cache.degraded = true

		rec, err := f.registry.GetByCode(ctx, "resilient")
		require.NoError(t, err)
		assert.Equal(t, "resilient", rec.Code)
	})

	t.Run("absent code is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.GetByCode(ctx, "ghost")
		var nferr *errs.NotFoundError
		require.ErrorAs(t, err, &nferr)
		assert.Equal(t, "ghost", nferr.Code)
	})
}

func TestRegistry_Update(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("applies only the provided fields", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{
			Code:        "partial",
			Name:        "Original",
			Description: "Original description",
			Enabled:     true,
		})
		require.NoError(t, err)

		newName := "Renamed"
		updated, err := f.registry.Update(ctx, "partial", flag.Changes{Name: &newName})

		require.NoError(t, err)
		assert.Equal(t, "Renamed", updated.Name)
		assert.Equal(t, "Original description", updated.Description)
		assert.True(t, updated.Enabled)
		assert.NotNil(t, updated.UpdatedAt)
		assert.Equal(t, updated, f.cache.entries["partial"], "cache must hold the updated record")
		assert.Contains(t, f.notifier.events, notifier.ChangeUpdated)
	})

	t.Run("replaces and clears the rule", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{
			Code: "ruled",
			Name: "Ruled",
			Rule: &ruleengine.ABTesting{VariantA: "a", VariantB: "b", Distribution: 50},
		})
		require.NoError(t, err)

		var newRule ruleengine.Rule = &ruleengine.GroupTargeting{GroupIDs: []string{"g"}, Percentage: 100}
		updated, err := f.registry.Update(ctx, "ruled", flag.Changes{Rule: &newRule})
		require.NoError(t, err)
		assert.Equal(t, ruleengine.KindGroupTargeting, updated.RuleKind())

		var cleared ruleengine.Rule
		updated, err = f.registry.Update(ctx, "ruled", flag.Changes{Rule: &cleared})
		require.NoError(t, err)
		assert.Nil(t, updated.Rule)
	})

	t.Run("rejects an out-of-range replacement rule", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{Code: "strict", Name: "Strict"})
		require.NoError(t, err)

		var bad ruleengine.Rule = &ruleengine.GradualRollout{StartPercentage: -1, EndPercentage: 50}
		_, err = f.registry.Update(ctx, "strict", flag.Changes{Rule: &bad})

		var verr *errs.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("absent code is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		name := "x"
		_, err := f.registry.Update(ctx, "ghost", flag.Changes{Name: &name})
		var nferr *errs.NotFoundError
		assert.ErrorAs(t, err, &nferr)
	})
}

func TestRegistry_SetEnabled(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture()
	_, err := f.registry.Create(ctx, flag.Draft{Code: "switch", Name: "Switch"})
	require.NoError(t, err)

	rec, err := f.registry.SetEnabled(ctx, "switch", true)
	require.NoError(t, err)
	assert.True(t, rec.Enabled)
	assert.Contains(t, f.notifier.events, notifier.ChangeEnabled)

	rec, err = f.registry.SetEnabled(ctx, "switch", false)
	require.NoError(t, err)
	assert.False(t, rec.Enabled)
	assert.Contains(t, f.notifier.events, notifier.ChangeDisabled)

	_, err = f.registry.SetEnabled(ctx, "ghost", true)
	var nferr *errs.NotFoundError
	assert.ErrorAs(t, err, &nferr)
}

func TestRegistry_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("tombstones, evicts and announces", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		_, err := f.registry.Create(ctx, flag.Draft{Code: "doomed", Name: "Doomed"})
		require.NoError(t, err)

		require.NoError(t, f.registry.Delete(ctx, "doomed"))

		assert.NotContains(t, f.cache.entries, "doomed")
		assert.Contains(t, f.notifier.events, notifier.ChangeDeleted)

		_, err = f.registry.GetByCode(ctx, "doomed")
		var nferr *errs.NotFoundError
		assert.ErrorAs(t, err, &nferr)
	})

	t.Run("deleted code can be recreated", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		first, err := f.registry.Create(ctx, flag.Draft{Code: "phoenix", Name: "First"})
		require.NoError(t, err)
		require.NoError(t, f.registry.Delete(ctx, "phoenix"))

		second, err := f.registry.Create(ctx, flag.Draft{Code: "phoenix", Name: "Second"})
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("absent code is NotFound", func(t *testing.T) {
		t.Parallel()
		f := newFixture()

		err := f.registry.Delete(ctx, "ghost")
		var nferr *errs.NotFoundError
		assert.ErrorAs(t, err, &nferr)
	})
}

func TestRegistry_Evaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture()

	_, err := f.registry.Create(ctx, flag.Draft{
		Code:    "targeted",
		Name:    "Targeted",
		Enabled: true,
		Rule: &ruleengine.CustomRules{
			Rules: map[string]string{"tier": "gold"},
		},
	})
	require.NoError(t, err)

	on, err := f.registry.Evaluate(ctx, "targeted", ruleengine.Context{"tier": "gold"})
	require.NoError(t, err)
	assert.True(t, on)

	on, err = f.registry.Evaluate(ctx, "targeted", ruleengine.Context{"tier": "bronze"})
	require.NoError(t, err)
	assert.False(t, on)

	// Missing context key fails closed.
	on, err = f.registry.Evaluate(ctx, "targeted", ruleengine.Context{})
	require.NoError(t, err)
	assert.False(t, on)

	// A disabled flag is off regardless of rule or context.
	_, err = f.registry.SetEnabled(ctx, "targeted", false)
	require.NoError(t, err)
	on, err = f.registry.Evaluate(ctx, "targeted", ruleengine.Context{"tier": "gold"})
	require.NoError(t, err)
	assert.False(t, on)

	_, err = f.registry.Evaluate(ctx, "ghost", ruleengine.Context{})
	var nferr *errs.NotFoundError
	assert.ErrorAs(t, err, &nferr)
}

func TestRegistry_FieldValue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture()

	_, err := f.registry.Create(ctx, flag.Draft{
		Code:    "inspect",
		Name:    "Inspect",
		Enabled: true,
		Rule:    &ruleengine.ABTesting{VariantA: "control", VariantB: "test", Distribution: 30},
	})
	require.NoError(t, err)

	val, ok, err := f.registry.FieldValue(ctx, "inspect", "variantA")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "control", val)

	_, ok, err = f.registry.FieldValue(ctx, "inspect", "no-such-field")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_FindByRuleType(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture()

	_, err := f.registry.Create(ctx, flag.Draft{
		Code: "ab",
		Name: "AB",
		Rule: &ruleengine.ABTesting{VariantA: "a", VariantB: "b", Distribution: 50},
	})
	require.NoError(t, err)
	_, err = f.registry.Create(ctx, flag.Draft{Code: "plain", Name: "Plain"})
	require.NoError(t, err)

	flags, total, err := f.registry.FindByRuleType(ctx, ruleengine.KindABTesting, 10, 0)
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "ab", flags[0].Code)

	_, _, err = f.registry.FindByRuleType(ctx, ruleengine.Kind("NOT_A_RULE"), 10, 0)
	var verr *errs.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRegistry_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newFixture()

	for _, code := range []string{"one", "two", "three"} {
		_, err := f.registry.Create(ctx, flag.Draft{Code: code, Name: code})
		require.NoError(t, err)
	}

	flags, total, err := f.registry.List(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, flags, 2)
	assert.Equal(t, int64(3), total, "total must count beyond the page")

	flags, total, err = f.registry.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, flags, 1)
	assert.Equal(t, int64(3), total)
}
