// Package store provides the Data Access Layer (Repository) for feature
// flags. It handles all direct interactions with the PostgreSQL database
// using the pgx driver.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/skuld-io/skuld/internal/errs"
	"github.com/skuld-io/skuld/internal/flag"
	"github.com/skuld-io/skuld/internal/ruleengine"
	"github.com/skuld-io/skuld/internal/validation"
)

// Compile-time check to verify that PostgresStore implements FlagRepository.
// If the interface changes and the struct doesn't, the build fails here.
var _ FlagRepository = (*PostgresStore)(nil)

// FlagRepository defines the interface for flag persistence operations.
// Using an interface allows for dependency injection and easier mocking in
// tests.
//
// Lookups return (nil, nil) when no live record matches; callers decide
// whether a miss is an error. Every method ignores tombstoned rows.
type FlagRepository interface {
	// Insert persists a new flag and populates CreatedAt from the server
	// clock. A live flag with the same code yields *errs.DuplicateCodeError.
	Insert(ctx context.Context, rec *flag.Record) error

	// GetByID fetches a live flag by its surrogate ID.
	GetByID(ctx context.Context, id uuid.UUID) (*flag.Record, error)

	// GetByCode fetches a live flag by its code.
	GetByCode(ctx context.Context, code string) (*flag.Record, error)

	// Update overwrites the mutable fields (name, description, enabled,
	// rule) of the live flag with rec.Code and stamps UpdatedAt. The
	// returned record reflects the row after the write.
	Update(ctx context.Context, rec *flag.Record) (*flag.Record, error)

	// UpdateEnabled flips only the master switch.
	UpdateEnabled(ctx context.Context, code string, enabled bool) (*flag.Record, error)

	// SoftDelete tombstones the live flag, releasing its code for reuse.
	// The returned record carries the tombstone timestamp.
	SoftDelete(ctx context.Context, code string) (*flag.Record, error)

	// List retrieves a page of live flags ordered by creation time
	// ascending, along with the total live count for pagination metadata.
	List(ctx context.Context, limit, offset int) ([]*flag.Record, int64, error)

	// FindByRuleType retrieves a page of live flags whose rule carries the
	// given discriminator, ordered by creation time ascending, along with
	// the total matching count.
	FindByRuleType(ctx context.Context, kind ruleengine.Kind, limit, offset int) ([]*flag.Record, int64, error)
}

// PostgresStore is the implementation of FlagRepository backed by PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore creates a new repository instance with the given
// connection pool.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	validation.AssertNotNil(db, "database pool")
	return &PostgresStore{db: db}
}

// flagColumns is the SELECT list shared by every read query. Scan order must
// match scanRecord.
const flagColumns = `id, code, name, description, enabled, rule, rule_type, created_at, updated_at, deleted_at`

// Insert persists a new flag row.
func (s *PostgresStore) Insert(ctx context.Context, rec *flag.Record) error {
	ruleJSON, ruleType, err := encodeRule(rec.Rule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO feature_flags (id, code, name, description, enabled, rule, rule_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err = s.db.QueryRow(ctx, query,
		rec.ID,
		rec.Code,
		rec.Name,
		rec.Description,
		rec.Enabled,
		ruleJSON,
		ruleType,
	).Scan(&rec.CreatedAt)

	if err != nil {
		// Handle specific database errors explicitly.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// Error Code 23505: unique_violation. Only the partial index on
			// live codes can trip here, so this is always a live duplicate.
			if pgErr.Code == "23505" {
				return &errs.DuplicateCodeError{Code: rec.Code}
			}
		}
		return fmt.Errorf("failed to insert flag %q: %w", rec.Code, err)
	}

	return nil
}

// GetByID fetches a live flag by its surrogate ID.
func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*flag.Record, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM feature_flags
		WHERE id = $1 AND deleted_at IS NULL
	`
	return s.queryOne(ctx, query, id)
}

// GetByCode fetches a live flag by its code.
func (s *PostgresStore) GetByCode(ctx context.Context, code string) (*flag.Record, error) {
	query := `
		SELECT ` + flagColumns + `
		FROM feature_flags
		WHERE code = $1 AND deleted_at IS NULL
	`
	return s.queryOne(ctx, query, code)
}

// Update overwrites the mutable fields of the live flag with rec.Code.
func (s *PostgresStore) Update(ctx context.Context, rec *flag.Record) (*flag.Record, error) {
	ruleJSON, ruleType, err := encodeRule(rec.Rule)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE feature_flags
		SET name = $2, description = $3, enabled = $4, rule = $5, rule_type = $6, updated_at = now()
		WHERE code = $1 AND deleted_at IS NULL
		RETURNING ` + flagColumns + `
	`
	return s.queryOne(ctx, query, rec.Code, rec.Name, rec.Description, rec.Enabled, ruleJSON, ruleType)
}

// UpdateEnabled flips only the master switch of the live flag.
func (s *PostgresStore) UpdateEnabled(ctx context.Context, code string, enabled bool) (*flag.Record, error) {
	query := `
		UPDATE feature_flags
		SET enabled = $2, updated_at = now()
		WHERE code = $1 AND deleted_at IS NULL
		RETURNING ` + flagColumns + `
	`
	return s.queryOne(ctx, query, code, enabled)
}

// SoftDelete tombstones the live flag with the given code.
func (s *PostgresStore) SoftDelete(ctx context.Context, code string) (*flag.Record, error) {
	query := `
		UPDATE feature_flags
		SET deleted_at = now(), updated_at = now()
		WHERE code = $1 AND deleted_at IS NULL
		RETURNING ` + flagColumns + `
	`
	return s.queryOne(ctx, query, code)
}

// List retrieves a page of live flags, oldest first. It executes two
// queries: one for the total count and one for the page data.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*flag.Record, int64, error) {
	countQuery := `SELECT count(*) FROM feature_flags WHERE deleted_at IS NULL`

	query := `
		SELECT ` + flagColumns + `
		FROM feature_flags
		WHERE deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`
	return s.queryPage(ctx, countQuery, nil, query, []any{limit, offset})
}

// FindByRuleType retrieves a page of live flags carrying the given rule
// discriminator, oldest first.
func (s *PostgresStore) FindByRuleType(ctx context.Context, kind ruleengine.Kind, limit, offset int) ([]*flag.Record, int64, error) {
	countQuery := `SELECT count(*) FROM feature_flags WHERE rule_type = $1 AND deleted_at IS NULL`

	query := `
		SELECT ` + flagColumns + `
		FROM feature_flags
		WHERE rule_type = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`
	return s.queryPage(ctx, countQuery, []any{string(kind)}, query, []any{string(kind), limit, offset})
}

// queryOne runs a query expected to yield at most one row and maps it to a
// record. No row maps to (nil, nil).
func (s *PostgresStore) queryOne(ctx context.Context, query string, args ...any) (*flag.Record, error) {
	row := s.db.QueryRow(ctx, query, args...)

	rec, err := scanRecord(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

// queryPage runs a count query followed by a page query. A separate count
// query is preferred over window functions (COUNT(*) OVER()) for simplicity
// and predictable performance.
func (s *PostgresStore) queryPage(ctx context.Context, countQuery string, countArgs []any, query string, args []any) ([]*flag.Record, int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count flags: %w", err)
	}

	// Nothing matches: skip the second query.
	if total == 0 {
		return []*flag.Record{}, 0, nil
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list flags: %w", err)
	}
	// Ensure rows are closed to prevent connection leaks in the pool.
	defer rows.Close()

	recs := []*flag.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows iteration error: %w", err)
	}

	return recs, total, nil
}

// scanRecord maps one row onto a record, decoding the rule envelope back
// into its concrete variant. The rule_type column is derived from the rule
// at write time and only read back for filtering, so it is discarded here.
func scanRecord(scan func(...any) error) (*flag.Record, error) {
	var (
		rec      flag.Record
		ruleJSON []byte
		ruleType *string
	)

	if err := scan(
		&rec.ID,
		&rec.Code,
		&rec.Name,
		&rec.Description,
		&rec.Enabled,
		&ruleJSON,
		&ruleType,
		&rec.CreatedAt,
		&rec.UpdatedAt,
		&rec.DeletedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan flag row: %w", err)
	}

	rule, err := ruleengine.Unmarshal(ruleJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rule for flag %q: %w", rec.Code, err)
	}
	rec.Rule = rule

	return &rec, nil
}

// encodeRule serializes a rule for the jsonb column and derives the
// rule_type discriminator column. A nil rule stores SQL NULL in both.
func encodeRule(r ruleengine.Rule) ([]byte, *string, error) {
	if r == nil {
		return nil, nil, nil
	}

	data, err := ruleengine.Marshal(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode rule: %w", err)
	}

	kind := string(r.Kind())
	return data, &kind, nil
}
