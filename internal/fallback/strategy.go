package fallback

import (
	"github.com/sells-group/briefing-cli/internal/model"
)

// Candidate is one estimated value with its confidence and reason.
type Candidate[T any] struct {
	Value     T
	Confianca model.Confianca
	Motivo    string
}

// Strategy estimates one field from the briefing as corrected so far. It
// reports false when it does not apply.
type Strategy[T any] struct {
	Name     string
	Estimate func(b model.BriefingExtraction) (Candidate[T], bool)
}

// Chain is an ordered list of strategies; the first that applies wins.
type Chain[T any] []Strategy[T]

// Resolve runs the chain and returns the winning candidate with the name of
// the strategy that produced it.
func (c Chain[T]) Resolve(b model.BriefingExtraction) (Candidate[T], string, bool) {
	for _, s := range c {
		if cand, ok := s.Estimate(b); ok {
			return cand, s.Name, true
		}
	}
	var zero Candidate[T]
	return zero, "", false
}
