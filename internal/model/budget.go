package model

// Equipe is the hour split of a discipline across the seniority bands.
type Equipe struct {
	Senior     int `json:"senior"`
	Pleno      int `json:"pleno"`
	Junior     int `json:"junior"`
	Estagiario int `json:"estagiario"`
}

// Horas returns the split ordered as Senioridades().
func (e Equipe) Horas() [4]int {
	return [4]int{e.Senior, e.Pleno, e.Junior, e.Estagiario}
}

// Total sums the four bands. It may differ from the discipline total by
// rounding drift.
func (e Equipe) Total() int {
	return e.Senior + e.Pleno + e.Junior + e.Estagiario
}

// EquipeFromHoras builds an Equipe from hours ordered as Senioridades().
func EquipeFromHoras(h [4]int) Equipe {
	return Equipe{Senior: h[0], Pleno: h[1], Junior: h[2], Estagiario: h[3]}
}

// EtapaDisciplina is one phase of a discipline's work.
type EtapaDisciplina struct {
	Nome           string   `json:"nome"`
	Percentual     float64  `json:"percentual"`
	HorasEstimadas int      `json:"horasEstimadas"`
	ValorEstimado  float64  `json:"valorEstimado"`
	Entregaveis    []string `json:"entregaveis"`
}

// DisciplineBudget is the per-discipline slice of a budget. Stages after the
// hour estimator never mutate a value they received; they return a new one.
type DisciplineBudget struct {
	Codigo         Disciplina        `json:"codigo"`
	Nome           string            `json:"nome"`
	HorasEstimadas int               `json:"horasEstimadas"`
	Equipe         Equipe            `json:"equipe"`
	ValorHora      float64           `json:"valorHora"`
	ValorTotal     float64           `json:"valorTotal"`
	Etapas         []EtapaDisciplina `json:"etapas"`
	Opcional       bool              `json:"opcional"`
}

// WithValores returns a copy carrying valuation fields; the receiver and its
// phase slice are left untouched.
func (d DisciplineBudget) WithValores(valorHora, valorTotal float64, valoresEtapa []float64) DisciplineBudget {
	out := d
	out.ValorHora = valorHora
	out.ValorTotal = valorTotal
	out.Etapas = make([]EtapaDisciplina, len(d.Etapas))
	for i, e := range d.Etapas {
		e.Entregaveis = append([]string(nil), e.Entregaveis...)
		if i < len(valoresEtapa) {
			e.ValorEstimado = valoresEtapa[i]
		}
		out.Etapas[i] = e
	}
	return out
}

// ComposicaoFinanceira is the financial roll-up of a budget.
type ComposicaoFinanceira struct {
	CustoTecnico    float64 `json:"custoTecnico"`
	CustosIndiretos float64 `json:"custosIndiretos"`
	Impostos        float64 `json:"impostos"`
	Contingencia    float64 `json:"contingencia"`
	Lucro           float64 `json:"lucro"`
}

// Total sums the five components.
func (c ComposicaoFinanceira) Total() float64 {
	return c.CustoTecnico + c.CustosIndiretos + c.Impostos + c.Contingencia + c.Lucro
}

// EtapaCronograma is one sequential stage of the schedule, in weeks from the
// project start.
type EtapaCronograma struct {
	Nome        string       `json:"nome"`
	Inicio      int          `json:"inicio"`
	Fim         int          `json:"fim"`
	Duracao     int          `json:"duracao"`
	Disciplinas []Disciplina `json:"disciplinas"`
	Marcos      []string     `json:"marcos"`
}

// Cronograma is the phased timeline of a budget.
type Cronograma struct {
	PrazoTotal int               `json:"prazoTotal"` // weeks
	Etapas     []EtapaCronograma `json:"etapas"`
}

// Proposta is the commercial text of a budget.
type Proposta struct {
	Escopo              string   `json:"escopo"`
	Premissas           []string `json:"premissas"`
	Exclusoes           []string `json:"exclusoes"`
	CondicoesComerciais []string `json:"condicoesComerciais"`
	FormasPagamento     []string `json:"formasPagamento"`
	ValidadeProposta    int      `json:"validadeProposta"` // days
}

// Fatores records the multipliers the hour estimator applied.
type Fatores struct {
	Tipologia    float64 `json:"tipologia"`
	Complexidade float64 `json:"complexidade"`
	HorasBaseM2  float64 `json:"horasBaseM2"`
	Escala       float64 `json:"escala"`
}

// BudgetResult is the complete output of one computation run. It is built
// once and never mutated after being returned.
type BudgetResult struct {
	ID        string `json:"id"`
	Codigo    string `json:"codigo"`
	Nome      string `json:"nome"`
	Descricao string `json:"descricao,omitempty"`
	Status    Status `json:"status"`

	AreaConstruida float64      `json:"areaConstruida"`
	AreaTerreno    float64      `json:"areaTerreno,omitempty"`
	Tipologia      Tipologia    `json:"tipologia"`
	Subtipo        string       `json:"subtipo,omitempty"`
	Padrao         Padrao       `json:"padrao,omitempty"`
	Complexidade   Complexidade `json:"complexidade"`
	Localizacao    string       `json:"localizacao,omitempty"`
	PrazoDesejado  int          `json:"prazoDesejado,omitempty"`

	ValorTotal     float64 `json:"valorTotal"`
	ValorPorM2     float64 `json:"valorPorM2"`
	ValorOpcionais float64 `json:"valorOpcionais"`

	Disciplinas          []DisciplineBudget   `json:"disciplinas"`
	DisciplinasOpcionais []DisciplineBudget   `json:"disciplinasOpcionais,omitempty"`
	ComposicaoFinanceira ComposicaoFinanceira `json:"composicaoFinanceira"`
	Cronograma           Cronograma           `json:"cronograma"`
	Proposta             Proposta             `json:"proposta"`
	Fatores              Fatores              `json:"fatores"`

	ConfiancaGeral Confianca `json:"confiancaGeral"`
	Avisos         []string  `json:"avisos,omitempty"`
}

// HorasTotais sums the estimated hours of the mandatory disciplines.
func (b *BudgetResult) HorasTotais() int {
	total := 0
	for _, d := range b.Disciplinas {
		total += d.HorasEstimadas
	}
	return total
}
