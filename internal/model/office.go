package model

import (
	"fmt"
	"sort"

	"github.com/sells-group/briefing-cli/internal/apperr"
)

// TabelaHoraria is the hourly rate of each seniority band for one category.
type TabelaHoraria struct {
	Senior     float64 `json:"senior" yaml:"senior"`
	Pleno      float64 `json:"pleno" yaml:"pleno"`
	Junior     float64 `json:"junior" yaml:"junior"`
	Estagiario float64 `json:"estagiario" yaml:"estagiario"`
}

// Taxas returns the rates ordered as Senioridades().
func (t TabelaHoraria) Taxas() [4]float64 {
	return [4]float64{t.Senior, t.Pleno, t.Junior, t.Estagiario}
}

// ParametroComplexidade holds the per-tier hour coefficients.
type ParametroComplexidade struct {
	Multiplicador float64 `json:"multiplicador" yaml:"multiplicador"`
	HorasBaseM2   float64 `json:"horasBaseM2" yaml:"horasBaseM2"`
}

// ConfiguracoesPadrao holds the financial ratios, all fractions in [0,1).
type ConfiguracoesPadrao struct {
	MargemLucro     float64 `json:"margem_lucro" yaml:"margem_lucro"`
	Impostos        float64 `json:"impostos" yaml:"impostos"`
	CustosIndiretos float64 `json:"custos_indiretos" yaml:"custos_indiretos"`
	Contingencia    float64 `json:"contingencia" yaml:"contingencia"`
}

// SubtipoPadrao is the multiplier key used when a subtype is unknown.
const SubtipoPadrao = "padrao"

// OfficeConfiguration is the immutable per-tenant pricing configuration.
// Nothing in the engine mutates it, so one value is shared across
// concurrent tasks without locking.
type OfficeConfiguration struct {
	TabelaPrecos           map[Categoria]TabelaHoraria            `json:"tabelaPrecos" yaml:"tabelaPrecos"`
	Multiplicadores        map[Tipologia]map[string]float64       `json:"multiplicadores" yaml:"multiplicadores"`
	ParametrosComplexidade map[Complexidade]ParametroComplexidade `json:"parametrosComplexidade" yaml:"parametrosComplexidade"`
	ConfiguracoesPadrao    ConfiguracoesPadrao                    `json:"configuracoesPadrao" yaml:"configuracoesPadrao"`
}

// Taxas returns the rate slice for a category, falling back to the
// architecture table when the tenant has no entry for it.
func (c *OfficeConfiguration) Taxas(cat Categoria) TabelaHoraria {
	if t, ok := c.TabelaPrecos[cat]; ok {
		return t
	}
	return c.TabelaPrecos[CategoriaArquitetura]
}

// MultiplicadorTipologia looks up typology × subtype, falling back to the
// typology's "padrao" entry, then to 1.0.
func (c *OfficeConfiguration) MultiplicadorTipologia(t Tipologia, subtipo string) float64 {
	subs, ok := c.Multiplicadores[t]
	if !ok {
		return 1.0
	}
	if subtipo != "" {
		if m, ok := subs[NormalizeSubtipo(subtipo)]; ok {
			return m
		}
	}
	if m, ok := subs[SubtipoPadrao]; ok {
		return m
	}
	return 1.0
}

// Complexidade returns the parameters of a tier.
func (c *OfficeConfiguration) Complexidade(cx Complexidade) (ParametroComplexidade, bool) {
	p, ok := c.ParametrosComplexidade[cx]
	return p, ok
}

// NormalizeSubtipo folds a subtype label into its multiplier-table key.
func NormalizeSubtipo(s string) string {
	key := NormalizeKey(s)
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		b := key[i]
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		out = append(out, b)
	}
	return string(out)
}

// Clone returns a deep copy.
func (c *OfficeConfiguration) Clone() *OfficeConfiguration {
	out := &OfficeConfiguration{
		TabelaPrecos:           make(map[Categoria]TabelaHoraria, len(c.TabelaPrecos)),
		Multiplicadores:        make(map[Tipologia]map[string]float64, len(c.Multiplicadores)),
		ParametrosComplexidade: make(map[Complexidade]ParametroComplexidade, len(c.ParametrosComplexidade)),
		ConfiguracoesPadrao:    c.ConfiguracoesPadrao,
	}
	for k, v := range c.TabelaPrecos {
		out.TabelaPrecos[k] = v
	}
	for tp, subs := range c.Multiplicadores {
		m := make(map[string]float64, len(subs))
		for k, v := range subs {
			m[k] = v
		}
		out.Multiplicadores[tp] = m
	}
	for k, v := range c.ParametrosComplexidade {
		out.ParametrosComplexidade[k] = v
	}
	return out
}

// Validate checks every numeric range. Hard violations come back as one
// *apperr.ConfigurationError; a broken seniority hierarchy is only a warning.
func (c *OfficeConfiguration) Validate() ([]string, error) {
	var violations, warnings []string

	if _, ok := c.TabelaPrecos[CategoriaArquitetura]; !ok {
		violations = append(violations, "tabelaPrecos.arquitetura is required")
	}
	for _, cat := range sortedCategorias(c.TabelaPrecos) {
		t := c.TabelaPrecos[cat]
		taxas := t.Taxas()
		for i, s := range Senioridades() {
			if taxas[i] <= 0 {
				violations = append(violations, fmt.Sprintf("tabelaPrecos.%s.%s must be > 0", cat, s))
			}
		}
		if !(t.Senior >= t.Pleno && t.Pleno >= t.Junior && t.Junior >= t.Estagiario) {
			warnings = append(warnings, fmt.Sprintf("tabelaPrecos.%s: rates should satisfy senior >= pleno >= junior >= estagiario", cat))
		}
	}

	for _, tp := range Tipologias() {
		subs, ok := c.Multiplicadores[tp]
		if !ok {
			continue
		}
		keys := make([]string, 0, len(subs))
		for k := range subs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if m := subs[k]; m < 0.1 || m > 5.0 {
				violations = append(violations, fmt.Sprintf("multiplicadores.%s.%s = %.2f outside [0.1, 5.0]", tp, k, m))
			}
		}
	}
	for tp := range c.Multiplicadores {
		if !tp.Valid() {
			violations = append(violations, fmt.Sprintf("multiplicadores: unknown tipologia %q", tp))
		}
	}

	for _, cx := range Complexidades() {
		p, ok := c.ParametrosComplexidade[cx]
		if !ok {
			violations = append(violations, fmt.Sprintf("parametrosComplexidade.%s is required", cx))
			continue
		}
		if p.Multiplicador < 0.1 || p.Multiplicador > 3.0 {
			violations = append(violations, fmt.Sprintf("parametrosComplexidade.%s.multiplicador = %.2f outside [0.1, 3.0]", cx, p.Multiplicador))
		}
		if p.HorasBaseM2 < 0.1 || p.HorasBaseM2 > 5.0 {
			violations = append(violations, fmt.Sprintf("parametrosComplexidade.%s.horasBaseM2 = %.2f outside [0.1, 5.0]", cx, p.HorasBaseM2))
		}
	}

	ratios := []struct {
		name string
		v    float64
	}{
		{"margem_lucro", c.ConfiguracoesPadrao.MargemLucro},
		{"impostos", c.ConfiguracoesPadrao.Impostos},
		{"custos_indiretos", c.ConfiguracoesPadrao.CustosIndiretos},
		{"contingencia", c.ConfiguracoesPadrao.Contingencia},
	}
	for _, r := range ratios {
		if r.v < 0 || r.v >= 1 {
			violations = append(violations, fmt.Sprintf("configuracoesPadrao.%s = %.2f outside [0, 1)", r.name, r.v))
		}
	}

	if len(violations) > 0 {
		return warnings, &apperr.ConfigurationError{Violations: violations}
	}
	return warnings, nil
}

func sortedCategorias(m map[Categoria]TabelaHoraria) []Categoria {
	cats := make([]Categoria, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// DefaultOfficeConfiguration is the configuration synthesized for a tenant
// on first use.
func DefaultOfficeConfiguration() *OfficeConfiguration {
	return &OfficeConfiguration{
		TabelaPrecos: map[Categoria]TabelaHoraria{
			CategoriaArquitetura: {Senior: 180, Pleno: 120, Junior: 80, Estagiario: 40},
			CategoriaEstrutural:  {Senior: 200, Pleno: 140, Junior: 90, Estagiario: 45},
			CategoriaInstalacoes: {Senior: 170, Pleno: 115, Junior: 75, Estagiario: 38},
			CategoriaPaisagismo:  {Senior: 150, Pleno: 100, Junior: 70, Estagiario: 35},
		},
		Multiplicadores: map[Tipologia]map[string]float64{
			TipologiaResidencial:   {SubtipoPadrao: 1.0, "unifamiliar": 1.0, "multifamiliar": 1.2, "condominio": 1.3},
			TipologiaComercial:     {SubtipoPadrao: 1.1, "loja": 1.0, "escritorio": 1.1, "shopping": 1.5},
			TipologiaIndustrial:    {SubtipoPadrao: 1.2, "galpao": 0.9, "fabrica": 1.3},
			TipologiaInstitucional: {SubtipoPadrao: 1.3, "escola": 1.2, "hospital": 1.8},
			TipologiaUrbano:        {SubtipoPadrao: 0.8, "loteamento": 0.7, "praca": 0.9},
			TipologiaMisto:         {SubtipoPadrao: 1.2},
		},
		ParametrosComplexidade: map[Complexidade]ParametroComplexidade{
			ComplexidadeBaixa:     {Multiplicador: 0.8, HorasBaseM2: 0.8},
			ComplexidadeMedia:     {Multiplicador: 1.0, HorasBaseM2: 1.0},
			ComplexidadeAlta:      {Multiplicador: 1.3, HorasBaseM2: 1.2},
			ComplexidadeMuitoAlta: {Multiplicador: 1.6, HorasBaseM2: 1.5},
		},
		ConfiguracoesPadrao: ConfiguracoesPadrao{
			MargemLucro:     0.20,
			Impostos:        0.15,
			CustosIndiretos: 0.25,
			Contingencia:    0.10,
		},
	}
}
