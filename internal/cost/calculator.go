// Package cost prices estimated hours against a tenant's rate table and rolls
// the technical cost up into the full commercial price.
package cost

import (
	"math"

	"github.com/sells-group/briefing-cli/internal/model"
)

// Calculator values disciplines with one tenant configuration. The
// configuration is read-only, so a Calculator is safe for concurrent use.
type Calculator struct {
	cfg *model.OfficeConfiguration
}

// NewCalculator creates a Calculator for the given configuration.
func NewCalculator(cfg *model.OfficeConfiguration) *Calculator {
	return &Calculator{cfg: cfg}
}

// Categoria returns the rate-table slice of a discipline. Unknown
// disciplines use the architecture table.
func Categoria(d model.Disciplina) model.Categoria {
	if info, ok := d.Info(); ok {
		return info.Categoria
	}
	return model.CategoriaArquitetura
}

// ValorHora is the hour-weighted average rate of a staffing split, rounded
// to cents. An empty split yields the senior rate.
func (c *Calculator) ValorHora(d model.Disciplina, equipe model.Equipe) float64 {
	tabela := c.cfg.Taxas(Categoria(d))
	taxas := tabela.Taxas()
	horas := equipe.Horas()

	var custo, total float64
	for i := range taxas {
		custo += float64(horas[i]) * taxas[i]
		total += float64(horas[i])
	}
	if total == 0 {
		return Round2(tabela.Senior)
	}
	return Round2(custo / total)
}

// Valorar returns a copy of d with valorHora, valorTotal and every phase
// valorEstimado filled. d itself is not modified.
func (c *Calculator) Valorar(d model.DisciplineBudget) model.DisciplineBudget {
	vh := c.ValorHora(d.Codigo, d.Equipe)
	fases := make([]float64, len(d.Etapas))
	for i, e := range d.Etapas {
		fases[i] = Round2(float64(e.HorasEstimadas) * vh)
	}
	return d.WithValores(vh, Round2(vh*float64(d.HorasEstimadas)), fases)
}

// Composicao is the financial roll-up of one budget.
type Composicao struct {
	Financeira     model.ComposicaoFinanceira
	ValorTotal     float64
	ValorPorM2     float64
	ValorOpcionais float64
}

// Compor rolls the mandatory disciplines up into the full price. Optional
// disciplines are summed apart and never enter the base price.
func (c *Calculator) Compor(disciplinas, opcionais []model.DisciplineBudget, area float64) Composicao {
	var custo float64
	for _, d := range disciplinas {
		custo += d.ValorTotal
	}
	r := c.cfg.ConfiguracoesPadrao
	fin := model.ComposicaoFinanceira{
		CustoTecnico:    custo,
		CustosIndiretos: Round2(custo * r.CustosIndiretos),
		Impostos:        Round2(custo * r.Impostos),
		Contingencia:    Round2(custo * r.Contingencia),
		Lucro:           Round2(custo * r.MargemLucro),
	}

	out := Composicao{Financeira: fin, ValorTotal: fin.Total()}
	if area > 0 {
		out.ValorPorM2 = Round2(out.ValorTotal / area)
	}
	for _, d := range opcionais {
		out.ValorOpcionais += d.ValorTotal
	}
	return out
}

// Round2 rounds a money value to cents.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
