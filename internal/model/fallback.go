package model

// FallbackAplicado records one field the fallback engine had to estimate.
type FallbackAplicado struct {
	Campo         string    `json:"campo"`
	ValorOriginal any       `json:"valorOriginal"`
	ValorFallback any       `json:"valorFallback"`
	Motivo        string    `json:"motivo"`
	Confianca     Confianca `json:"confianca"`
}

// FallbackResult is the outcome of one inference run. Callers must check
// Success before trusting DadosCorrigidos.
type FallbackResult struct {
	Success            bool               `json:"success"`
	DadosCorrigidos    BriefingExtraction `json:"dadosCorrigidos"`
	FallbacksAplicados []FallbackAplicado `json:"fallbacksAplicados"`
	ConfiancaGeral     Confianca          `json:"confiancaGeral"`
	Avisos             []string           `json:"avisos"`
	Recomendacoes      []string           `json:"recomendacoes"`
}

// Estimado reports whether campo was filled by the fallback engine.
func (r *FallbackResult) Estimado(campo string) bool {
	for _, f := range r.FallbacksAplicados {
		if f.Campo == campo {
			return true
		}
	}
	return false
}

// Fallback returns the audit entry for campo.
func (r *FallbackResult) Fallback(campo string) (FallbackAplicado, bool) {
	for _, f := range r.FallbacksAplicados {
		if f.Campo == campo {
			return f, true
		}
	}
	return FallbackAplicado{}, false
}
