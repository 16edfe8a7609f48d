package model

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/briefing-cli/internal/apperr"
)

// Status is the commercial lifecycle state of a budget.
type Status string

const (
	StatusRascunho  Status = "RASCUNHO"
	StatusEnviado   Status = "ENVIADO"
	StatusAprovado  Status = "APROVADO"
	StatusRejeitado Status = "REJEITADO"
)

var transicoes = map[Status][]Status{
	StatusRascunho:  {StatusEnviado},
	StatusEnviado:   {StatusAprovado, StatusRejeitado},
	StatusRejeitado: {StatusRascunho},
}

// ParseStatus resolves a status label.
func ParseStatus(s string) (Status, error) {
	switch st := Status(NormalizeKey(s)); st {
	case StatusRascunho, StatusEnviado, StatusAprovado, StatusRejeitado:
		return st, nil
	case "":
		return "", nil
	}
	return "", eris.Errorf("model: unknown status %q", s)
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, s := range transicoes[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an *apperr.InvalidTransitionError when from -> to
// is not allowed.
func CheckTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	return &apperr.InvalidTransitionError{From: string(from), To: string(to)}
}

// BudgetRecord is a persisted budget with its audit trail.
type BudgetRecord struct {
	ID           string          `json:"id"`
	EscritorioID string          `json:"escritorioId"`
	Status       Status          `json:"status"`
	Budget       BudgetResult    `json:"orcamento"`
	Fallback     *FallbackResult `json:"fallback,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}
