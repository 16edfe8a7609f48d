package model

import (
	"github.com/rotisserie/eris"
)

// Tipologia is the building category of a project.
type Tipologia string

const (
	TipologiaResidencial   Tipologia = "residencial"
	TipologiaComercial     Tipologia = "comercial"
	TipologiaIndustrial    Tipologia = "industrial"
	TipologiaInstitucional Tipologia = "institucional"
	TipologiaUrbano        Tipologia = "urbano"
	TipologiaMisto         Tipologia = "misto"
)

// TipologiaInfo holds the coefficients attached to a typology.
type TipologiaInfo struct {
	// TaxaOcupacao converts lot area into built area.
	TaxaOcupacao float64
	// AreaMediaHistorica is the typical built area for the typology, in m².
	AreaMediaHistorica float64
	// PontuacaoComplexidade feeds the complexity score model.
	PontuacaoComplexidade int
	// DisciplinasBase is the minimum discipline set a project of this type needs.
	DisciplinasBase []Disciplina
}

var tipologias = map[Tipologia]TipologiaInfo{
	TipologiaResidencial: {
		TaxaOcupacao: 0.6, AreaMediaHistorica: 180, PontuacaoComplexidade: 1,
		DisciplinasBase: []Disciplina{DisciplinaArquitetura, DisciplinaEstrutural, DisciplinaEletrica, DisciplinaHidraulica},
	},
	TipologiaComercial: {
		TaxaOcupacao: 0.8, AreaMediaHistorica: 500, PontuacaoComplexidade: 2,
		DisciplinasBase: []Disciplina{DisciplinaArquitetura, DisciplinaEstrutural, DisciplinaEletrica, DisciplinaHidraulica, DisciplinaClimatizacao},
	},
	TipologiaIndustrial: {
		TaxaOcupacao: 0.7, AreaMediaHistorica: 2000, PontuacaoComplexidade: 3,
		DisciplinasBase: []Disciplina{DisciplinaArquitetura, DisciplinaEstrutural, DisciplinaEletrica, DisciplinaHidraulica, DisciplinaIncendio},
	},
	TipologiaInstitucional: {
		TaxaOcupacao: 0.5, AreaMediaHistorica: 800, PontuacaoComplexidade: 3,
		DisciplinasBase: []Disciplina{DisciplinaArquitetura, DisciplinaEstrutural, DisciplinaEletrica, DisciplinaHidraulica, DisciplinaAcessibilidade},
	},
	TipologiaUrbano: {
		TaxaOcupacao: 0.3, AreaMediaHistorica: 5000, PontuacaoComplexidade: 4,
		DisciplinasBase: []Disciplina{DisciplinaUrbanismo, DisciplinaArquitetura, DisciplinaPaisagismo},
	},
	TipologiaMisto: {
		TaxaOcupacao: 0.6, AreaMediaHistorica: 400, PontuacaoComplexidade: 2,
		DisciplinasBase: []Disciplina{DisciplinaArquitetura, DisciplinaEstrutural, DisciplinaEletrica, DisciplinaHidraulica, DisciplinaClimatizacao},
	},
}

var tipologiaAliases = map[string]Tipologia{
	"RESIDENCIAL":   TipologiaResidencial,
	"RESIDENTIAL":   TipologiaResidencial,
	"COMERCIAL":     TipologiaComercial,
	"COMMERCIAL":    TipologiaComercial,
	"INDUSTRIAL":    TipologiaIndustrial,
	"INSTITUCIONAL": TipologiaInstitucional,
	"INSTITUTIONAL": TipologiaInstitucional,
	"URBANO":        TipologiaUrbano,
	"URBANISTICO":   TipologiaUrbano,
	"URBAN":         TipologiaUrbano,
	"MISTO":         TipologiaMisto,
	"MIXED":         TipologiaMisto,
}

// Tipologias lists every typology in declaration order.
func Tipologias() []Tipologia {
	return []Tipologia{TipologiaResidencial, TipologiaComercial, TipologiaIndustrial, TipologiaInstitucional, TipologiaUrbano, TipologiaMisto}
}

// ParseTipologia resolves a free-form label. An empty label yields the zero
// value with no error; unknown labels are rejected.
func ParseTipologia(s string) (Tipologia, error) {
	key := NormalizeKey(s)
	if key == "" {
		return "", nil
	}
	if t, ok := tipologiaAliases[key]; ok {
		return t, nil
	}
	return "", eris.Errorf("model: unknown tipologia %q", s)
}

// Info returns the coefficients of a known typology.
func (t Tipologia) Info() (TipologiaInfo, bool) {
	info, ok := tipologias[t]
	return info, ok
}

// Valid reports whether t is a known typology.
func (t Tipologia) Valid() bool {
	_, ok := tipologias[t]
	return ok
}

func (t Tipologia) String() string { return string(t) }

// Padrao is the quality/finish tier of a project.
type Padrao string

const (
	PadraoSimples Padrao = "SIMPLES"
	PadraoMedio   Padrao = "MEDIO"
	PadraoAlto    Padrao = "ALTO"
)

var padraoPontuacao = map[Padrao]int{
	PadraoSimples: 1,
	PadraoMedio:   2,
	PadraoAlto:    3,
}

var padraoAliases = map[string]Padrao{
	"SIMPLES": PadraoSimples,
	"BAIXO":   PadraoSimples,
	"MEDIO":   PadraoMedio,
	"NORMAL":  PadraoMedio,
	"ALTO":    PadraoAlto,
	"LUXO":    PadraoAlto,
}

// ParsePadrao resolves a free-form quality tier label.
func ParsePadrao(s string) (Padrao, error) {
	key := NormalizeKey(s)
	if key == "" {
		return "", nil
	}
	if p, ok := padraoAliases[key]; ok {
		return p, nil
	}
	return "", eris.Errorf("model: unknown padrao %q", s)
}

// Pontuacao is the padrão contribution to the complexity score.
func (p Padrao) Pontuacao() int { return padraoPontuacao[p] }

// Valid reports whether p is a known tier.
func (p Padrao) Valid() bool {
	_, ok := padraoPontuacao[p]
	return ok
}

func (p Padrao) String() string { return string(p) }

// Complexidade is the coarse difficulty tier of a project.
type Complexidade string

const (
	ComplexidadeBaixa     Complexidade = "BAIXA"
	ComplexidadeMedia     Complexidade = "MEDIA"
	ComplexidadeAlta      Complexidade = "ALTA"
	ComplexidadeMuitoAlta Complexidade = "MUITO_ALTA"
)

var complexidadePrazo = map[Complexidade]float64{
	ComplexidadeBaixa:     0.8,
	ComplexidadeMedia:     1.0,
	ComplexidadeAlta:      1.3,
	ComplexidadeMuitoAlta: 1.6,
}

// Complexidades lists every tier from lowest to highest.
func Complexidades() []Complexidade {
	return []Complexidade{ComplexidadeBaixa, ComplexidadeMedia, ComplexidadeAlta, ComplexidadeMuitoAlta}
}

// ParseComplexidade resolves a free-form complexity label.
func ParseComplexidade(s string) (Complexidade, error) {
	key := NormalizeKey(s)
	if key == "" {
		return "", nil
	}
	c := Complexidade(key)
	if _, ok := complexidadePrazo[c]; ok {
		return c, nil
	}
	return "", eris.Errorf("model: unknown complexidade %q", s)
}

// MultiplicadorPrazo scales schedules and deadlines.
func (c Complexidade) MultiplicadorPrazo() float64 {
	if m, ok := complexidadePrazo[c]; ok {
		return m
	}
	return 1.0
}

// Elevada reports whether c is ALTA or MUITO_ALTA.
func (c Complexidade) Elevada() bool {
	return c == ComplexidadeAlta || c == ComplexidadeMuitoAlta
}

// Valid reports whether c is a known tier.
func (c Complexidade) Valid() bool {
	_, ok := complexidadePrazo[c]
	return ok
}

func (c Complexidade) String() string { return string(c) }

// Categoria selects a slice of the tenant rate table.
type Categoria string

const (
	CategoriaArquitetura Categoria = "arquitetura"
	CategoriaEstrutural  Categoria = "estrutural"
	CategoriaInstalacoes Categoria = "instalacoes"
	CategoriaPaisagismo  Categoria = "paisagismo"
)

// Categorias lists every rate category.
func Categorias() []Categoria {
	return []Categoria{CategoriaArquitetura, CategoriaEstrutural, CategoriaInstalacoes, CategoriaPaisagismo}
}

// Senioridade is a staffing band.
type Senioridade string

const (
	SenioridadeSenior     Senioridade = "senior"
	SenioridadePleno      Senioridade = "pleno"
	SenioridadeJunior     Senioridade = "junior"
	SenioridadeEstagiario Senioridade = "estagiario"
)

// Senioridades lists the bands from most to least senior.
func Senioridades() []Senioridade {
	return []Senioridade{SenioridadeSenior, SenioridadePleno, SenioridadeJunior, SenioridadeEstagiario}
}

// Confianca tags how much an estimated value can be trusted.
type Confianca string

const (
	ConfiancaAlta  Confianca = "ALTA"
	ConfiancaMedia Confianca = "MEDIA"
	ConfiancaBaixa Confianca = "BAIXA"
)

// Peso maps a confidence label onto the 1..3 scale used for averaging.
func (c Confianca) Peso() float64 {
	switch c {
	case ConfiancaAlta:
		return 3
	case ConfiancaMedia:
		return 2
	default:
		return 1
	}
}

// ConfiancaFromPeso maps an averaged weight back onto a label.
func ConfiancaFromPeso(p float64) Confianca {
	switch {
	case p >= 2.5:
		return ConfiancaAlta
	case p >= 1.5:
		return ConfiancaMedia
	default:
		return ConfiancaBaixa
	}
}
