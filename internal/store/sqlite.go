package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/briefing-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS budgets (
	id            TEXT PRIMARY KEY,
	escritorio_id TEXT NOT NULL,
	codigo        TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'RASCUNHO',
	valor_total   REAL NOT NULL DEFAULT 0,
	budget        TEXT NOT NULL,
	fallback      TEXT,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS office_configs (
	escritorio_id TEXT PRIMARY KEY,
	config        TEXT NOT NULL,
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_budgets_escritorio ON budgets(escritorio_id, created_at);
CREATE INDEX IF NOT EXISTS idx_budgets_status ON budgets(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveBudget(ctx context.Context, rec *model.BudgetRecord) error {
	stamp(rec)
	budgetJSON, fallbackJSON, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal budget")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO budgets (id, escritorio_id, codigo, status, valor_total, budget, fallback, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			budget = excluded.budget,
			fallback = excluded.fallback,
			valor_total = excluded.valor_total,
			updated_at = excluded.updated_at`,
		rec.ID, rec.EscritorioID, rec.Budget.Codigo, string(rec.Status), rec.Budget.ValorTotal,
		string(budgetJSON), nullString(fallbackJSON), rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "sqlite: save budget %s", rec.ID)
}

func (s *SQLiteStore) GetBudget(ctx context.Context, id string) (*model.BudgetRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, escritorio_id, status, budget, fallback, created_at, updated_at FROM budgets WHERE id = ?`,
		id,
	)
	rec, err := scanBudget(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, budgetNotFound(id)
	}
	return rec, err
}

func (s *SQLiteStore) ListBudgets(ctx context.Context, filter BudgetFilter) ([]model.BudgetRecord, error) {
	query := `SELECT id, escritorio_id, status, budget, fallback, created_at, updated_at FROM budgets WHERE 1=1`
	var args []any

	if filter.EscritorioID != "" {
		query += ` AND escritorio_id = ?`
		args = append(args, filter.EscritorioID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list budgets")
	}
	defer rows.Close()

	var out []model.BudgetRecord
	for rows.Next() {
		rec, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list budgets iterate")
}

func (s *SQLiteStore) UpdateBudgetStatus(ctx context.Context, id string, to model.Status) (*model.BudgetRecord, error) {
	return transition(ctx, s, id, to, func(ctx context.Context, id string, from, to model.Status, at time.Time) (bool, error) {
		res, err := s.db.ExecContext(ctx,
			`UPDATE budgets SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
			string(to), at, id, string(from),
		)
		if err != nil {
			return false, eris.Wrapf(err, "sqlite: update budget status %s", id)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return false, eris.Wrap(err, "sqlite: rows affected")
		}
		return n > 0, nil
	})
}

func (s *SQLiteStore) GetOfficeConfig(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT config FROM office_configs WHERE escritorio_id = ?`, escritorioID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, configNotFound(escritorioID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get office config %s", escritorioID)
	}
	var cfg model.OfficeConfiguration
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal office config")
	}
	return &cfg, nil
}

func (s *SQLiteStore) SaveOfficeConfig(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal office config")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO office_configs (escritorio_id, config, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(escritorio_id) DO UPDATE SET config = excluded.config, updated_at = excluded.updated_at`,
		escritorioID, string(raw), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save office config %s", escritorioID)
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanBudget(row scannable) (*model.BudgetRecord, error) {
	var rec model.BudgetRecord
	var budgetJSON string
	var fallbackJSON sql.NullString

	err := row.Scan(&rec.ID, &rec.EscritorioID, &rec.Status, &budgetJSON, &fallbackJSON, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan budget")
	}
	var fb []byte
	if fallbackJSON.Valid {
		fb = []byte(fallbackJSON.String)
	}
	if err := unmarshalRecord(&rec, []byte(budgetJSON), fb); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal budget")
	}
	return &rec, nil
}

func marshalRecord(rec *model.BudgetRecord) (budget, fallback []byte, err error) {
	if budget, err = json.Marshal(rec.Budget); err != nil {
		return nil, nil, err
	}
	if rec.Fallback != nil {
		if fallback, err = json.Marshal(rec.Fallback); err != nil {
			return nil, nil, err
		}
	}
	return budget, fallback, nil
}

// unmarshalRecord decodes the JSON columns. The status column is
// authoritative over the status embedded in the budget document.
func unmarshalRecord(rec *model.BudgetRecord, budget, fallback []byte) error {
	if err := json.Unmarshal(budget, &rec.Budget); err != nil {
		return err
	}
	rec.Budget.Status = rec.Status
	if len(fallback) > 0 {
		rec.Fallback = &model.FallbackResult{}
		if err := json.Unmarshal(fallback, rec.Fallback); err != nil {
			return err
		}
	}
	return nil
}

func nullString(b []byte) sql.NullString {
	if b == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
