package store

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"daytrader/errs"
)

// FeatureRow is one materialized row: a (date, stock) key plus the fixed-
// order feature vector (§4.5, §6 "Analytics store: per-feature-set table
// keyed by (date, stock_code) with one column per feature plus metadata").
type FeatureRow struct {
	Date   int
	Stock  string
	Vector []float64
	Label  float64 // next-day/target return, NaN if not yet known
}

// AnalyticsStore is the Postgres-backed table the Feature Materializer
// writes to and the training pipeline reads from. Its schema is derived
// from featureNames at construction time rather than hardcoded, since
// features.Names grows over time (§4.4/§4.5's append-only ordering rule).
// Grounded on the teacher's sqlite CRUD shape, retargeted to Postgres via
// jmoiron/sqlx. WriteBatch issues one positional-placeholder upsert per row
// inside a single transaction.
type AnalyticsStore struct {
	db           *sqlx.DB
	featureNames []string
	table        string
}

// NewAnalyticsStore opens dsn via lib/pq, ensures the table exists with one
// column per entry in featureNames, and returns the store. table is
// typically "feature_sets".
func NewAnalyticsStore(dsn string, table string, featureNames []string) (*AnalyticsStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, errs.New(errs.Io, "store.NewAnalyticsStore", err)
	}
	s := &AnalyticsStore{db: db, featureNames: featureNames, table: table}
	if err := s.initTable(); err != nil {
		return nil, errs.New(errs.Io, "store.NewAnalyticsStore", err)
	}
	return s, nil
}

func (s *AnalyticsStore) initTable() error {
	var cols strings.Builder
	for _, name := range s.featureNames {
		fmt.Fprintf(&cols, ", %s DOUBLE PRECISION", pqIdent(name))
	}
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			date INTEGER NOT NULL,
			stock_code TEXT NOT NULL,
			label DOUBLE PRECISION%s,
			PRIMARY KEY (date, stock_code)
		)
	`, pqIdent(s.table), cols.String())
	_, err := s.db.Exec(ddl)
	return err
}

// WriteBatch writes rows inside a single transaction (§5 "Writes to the
// analytics store are serialized through a single writer that batches
// transactions; readers see either pre-batch or post-batch state, never a
// partial batch"). Callers should chunk to 100-1000 rows per call per §5.
func (s *AnalyticsStore) WriteBatch(rows []FeatureRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return errs.New(errs.Io, "store.AnalyticsStore.WriteBatch", err)
	}

	cols := append([]string{"date", "stock_code", "label"}, s.featureNames...)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pqIdent(c)
	}
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	upsertCols := make([]string, 0, len(cols)-2)
	for _, c := range cols[2:] {
		upsertCols = append(upsertCols, fmt.Sprintf("%s = EXCLUDED.%s", pqIdent(c), pqIdent(c)))
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (date, stock_code) DO UPDATE SET %s",
		pqIdent(s.table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "), strings.Join(upsertCols, ", "),
	)

	for _, row := range rows {
		if len(row.Vector) != len(s.featureNames) {
			tx.Rollback()
			return errs.New(errs.Config, "store.AnalyticsStore.WriteBatch",
				fmt.Errorf("row for %s/%d has %d features, want %d", row.Stock, row.Date, len(row.Vector), len(s.featureNames)))
		}
		args := make([]interface{}, 0, len(cols))
		args = append(args, row.Date, row.Stock, row.Label)
		for _, v := range row.Vector {
			args = append(args, v)
		}
		if _, err := tx.Exec(stmt, args...); err != nil {
			tx.Rollback()
			return errs.New(errs.Io, "store.AnalyticsStore.WriteBatch", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return errs.New(errs.Io, "store.AnalyticsStore.WriteBatch", err)
	}
	return nil
}

// pqIdent lower-cases and guards a Go feature name into a safe, unquoted
// Postgres identifier — feature names are compile-time constants from
// features.Names, never user input, so this only needs to strip characters
// Postgres wouldn't accept unquoted.
func pqIdent(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Close releases the underlying connection pool.
func (s *AnalyticsStore) Close() error { return s.db.Close() }
