package store

import (
	"context"
	"time"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/model"
)

const defaultListLimit = 100

// BudgetFilter specifies criteria for listing budgets.
type BudgetFilter struct {
	EscritorioID string       `json:"escritorio_id,omitempty"`
	Status       model.Status `json:"status,omitempty"`
	Limit        int          `json:"limit,omitempty"`
	Offset       int          `json:"offset,omitempty"`
}

func (f BudgetFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for budgets and tenant
// configurations.
type Store interface {
	// Budgets
	SaveBudget(ctx context.Context, rec *model.BudgetRecord) error
	GetBudget(ctx context.Context, id string) (*model.BudgetRecord, error)
	ListBudgets(ctx context.Context, filter BudgetFilter) ([]model.BudgetRecord, error)
	UpdateBudgetStatus(ctx context.Context, id string, to model.Status) (*model.BudgetRecord, error)

	// Tenant configuration
	GetOfficeConfig(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error)
	SaveOfficeConfig(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// stamp fills the bookkeeping fields of a record about to be saved. A saved
// budget with the same id keeps its status and creation time.
func stamp(rec *model.BudgetRecord) {
	now := time.Now().UTC()
	if rec.ID == "" {
		rec.ID = rec.Budget.ID
	}
	if rec.Status == "" {
		rec.Status = rec.Budget.Status
	}
	if rec.Status == "" {
		rec.Status = model.StatusRascunho
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
}

// statusSetter applies from -> to only if the stored status is still from.
type statusSetter func(ctx context.Context, id string, from, to model.Status, at time.Time) (bool, error)

// transition validates and applies a status change with an optimistic check
// against concurrent writers.
func transition(ctx context.Context, s Store, id string, to model.Status, set statusSetter) (*model.BudgetRecord, error) {
	rec, err := s.GetBudget(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := model.CheckTransition(rec.Status, to); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	ok, err := set(ctx, id, rec.Status, to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &apperr.InvalidTransitionError{From: string(rec.Status), To: string(to)}
	}
	rec.Status = to
	rec.Budget.Status = to
	rec.UpdatedAt = now
	return rec, nil
}

func isNotFound(err error) bool {
	return apperr.CodeOf(err) == apperr.CodeNotFound
}

func budgetNotFound(id string) error {
	return &apperr.NotFoundError{Entity: "orcamento", ID: id}
}

func configNotFound(escritorioID string) error {
	return &apperr.NotFoundError{Entity: "configuracao", ID: escritorioID}
}
