package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/briefing-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"get_budget":        `SELECT id, escritorio_id, status, budget, fallback, created_at, updated_at FROM budgets WHERE id = $1`,
	"get_office_config": `SELECT config FROM office_configs WHERE escritorio_id = $1`,
	"set_budget_status": `UPDATE budgets SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS budgets (
	id            TEXT PRIMARY KEY,
	escritorio_id TEXT NOT NULL,
	codigo        TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'RASCUNHO',
	valor_total   NUMERIC(14,2) NOT NULL DEFAULT 0,
	budget        JSONB NOT NULL,
	fallback      JSONB,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS office_configs (
	escritorio_id TEXT PRIMARY KEY,
	config        JSONB NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_budgets_escritorio ON budgets(escritorio_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_budgets_status ON budgets(status);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveBudget(ctx context.Context, rec *model.BudgetRecord) error {
	stamp(rec)
	budgetJSON, fallbackJSON, err := marshalRecord(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal budget")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO budgets (id, escritorio_id, codigo, status, valor_total, budget, fallback, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			budget = EXCLUDED.budget,
			fallback = EXCLUDED.fallback,
			valor_total = EXCLUDED.valor_total,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.EscritorioID, rec.Budget.Codigo, string(rec.Status), rec.Budget.ValorTotal,
		budgetJSON, fallbackJSON, rec.CreatedAt, rec.UpdatedAt,
	)
	return eris.Wrapf(err, "postgres: save budget %s", rec.ID)
}

func (s *PostgresStore) GetBudget(ctx context.Context, id string) (*model.BudgetRecord, error) {
	rec, err := scanPgBudget(s.pool.QueryRow(ctx,
		`SELECT id, escritorio_id, status, budget, fallback, created_at, updated_at FROM budgets WHERE id = $1`,
		id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, budgetNotFound(id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get budget %s", id)
	}
	return rec, nil
}

func (s *PostgresStore) ListBudgets(ctx context.Context, filter BudgetFilter) ([]model.BudgetRecord, error) {
	query := `SELECT id, escritorio_id, status, budget, fallback, created_at, updated_at FROM budgets WHERE true`
	args := []any{}
	argIdx := 1

	if filter.EscritorioID != "" {
		query += fmt.Sprintf(` AND escritorio_id = $%d`, argIdx)
		args = append(args, filter.EscritorioID)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, filter.limit())
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list budgets")
	}
	defer rows.Close()

	var out []model.BudgetRecord
	for rows.Next() {
		rec, err := scanPgBudget(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan budget")
		}
		out = append(out, *rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list budgets iterate")
}

func (s *PostgresStore) UpdateBudgetStatus(ctx context.Context, id string, to model.Status) (*model.BudgetRecord, error) {
	return transition(ctx, s, id, to, func(ctx context.Context, id string, from, to model.Status, at time.Time) (bool, error) {
		tag, err := s.pool.Exec(ctx,
			`UPDATE budgets SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
			string(to), at, id, string(from),
		)
		if err != nil {
			return false, eris.Wrapf(err, "postgres: update budget status %s", id)
		}
		return tag.RowsAffected() > 0, nil
	})
}

func (s *PostgresStore) GetOfficeConfig(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config FROM office_configs WHERE escritorio_id = $1`, escritorioID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, configNotFound(escritorioID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get office config %s", escritorioID)
	}
	var cfg model.OfficeConfiguration
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal office config")
	}
	return &cfg, nil
}

func (s *PostgresStore) SaveOfficeConfig(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal office config")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO office_configs (escritorio_id, config, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (escritorio_id) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`,
		escritorioID, raw, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save office config %s", escritorioID)
}

func scanPgBudget(row pgx.Row) (*model.BudgetRecord, error) {
	var rec model.BudgetRecord
	var status string
	var budgetJSON, fallbackJSON []byte

	if err := row.Scan(&rec.ID, &rec.EscritorioID, &status, &budgetJSON, &fallbackJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = model.Status(status)
	if err := unmarshalRecord(&rec, budgetJSON, fallbackJSON); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal budget")
	}
	return &rec, nil
}
