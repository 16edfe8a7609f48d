// Package schedule lays a project out as four sequential stages measured in
// weeks from the start.
package schedule

import (
	"math"

	"github.com/sells-group/briefing-cli/internal/model"
)

const (
	// SemanasMinimas is the floor of every schedule.
	SemanasMinimas = 8
	// SemanasPorMes converts a client deadline in months to weeks.
	SemanasPorMes = 4.33
	// SemanasMaximas caps every schedule.
	SemanasMaximas = 5200
)

type etapa struct {
	nome        string
	percentual  float64
	minimo      int
	arquitetura bool
	marcos      []string
}

var etapas = []etapa{
	{
		nome: model.Fases[0], percentual: 0.10, minimo: 1, arquitetura: true,
		marcos: []string{"Reunião de briefing", "Levantamento aprovado"},
	},
	{
		nome: model.Fases[1], percentual: 0.25, minimo: 2, arquitetura: true,
		marcos: []string{"Apresentação do estudo preliminar", "Aprovação do partido arquitetônico"},
	},
	{
		nome: model.Fases[2], percentual: 0.25, minimo: 2,
		marcos: []string{"Entrega do anteprojeto", "Compatibilização entre disciplinas"},
	},
	{
		nome: model.Fases[3], percentual: 0.40, minimo: 3,
		marcos: []string{"Entrega do projeto executivo", "Aprovação final"},
	},
}

// PrazoSemanas is the total duration in weeks: sqrt(area)/5 scaled by the
// complexity multiplier, capped by the client deadline when one is given,
// never below SemanasMinimas nor above SemanasMaximas.
func PrazoSemanas(area float64, cx model.Complexidade, prazoDesejadoMeses int) int {
	calc := 0.0
	if area > 0 {
		calc = math.Sqrt(area) / 5 * cx.MultiplicadorPrazo()
	}
	calc = math.Max(calc, SemanasMinimas)
	if prazoDesejadoMeses > 0 {
		desejado := float64(prazoDesejadoMeses) * SemanasPorMes
		calc = math.Max(math.Min(calc, desejado), SemanasMinimas)
	}
	calc = math.Min(calc, SemanasMaximas)
	return int(math.Ceil(math.Round(calc*1e6) / 1e6))
}

// Build synthesizes the schedule. The first stages list the
// architecture-category disciplines; the later ones list every mandatory
// discipline.
func Build(area float64, cx model.Complexidade, prazoDesejadoMeses int, disciplinas []model.Disciplina) model.Cronograma {
	total := PrazoSemanas(area, cx, prazoDesejadoMeses)
	duracoes := Duracoes(total)

	arq := disciplinasArquitetura(disciplinas)
	todas := append([]model.Disciplina(nil), disciplinas...)

	out := model.Cronograma{PrazoTotal: total, Etapas: make([]model.EtapaCronograma, len(etapas))}
	inicio := 0
	for i, e := range etapas {
		ds := todas
		if e.arquitetura {
			ds = arq
		}
		out.Etapas[i] = model.EtapaCronograma{
			Nome:        e.nome,
			Inicio:      inicio,
			Fim:         inicio + duracoes[i],
			Duracao:     duracoes[i],
			Disciplinas: append([]model.Disciplina(nil), ds...),
			Marcos:      append([]string(nil), e.marcos...),
		}
		inicio += duracoes[i]
	}
	return out
}

// Duracoes splits total weeks across the stages: each stage gets its rounded
// share clamped to its minimum and the last one absorbs the remainder.
func Duracoes(total int) []int {
	d := make([]int, len(etapas))
	used := 0
	last := len(etapas) - 1
	for i, e := range etapas[:last] {
		d[i] = max(int(math.Round(float64(total)*e.percentual)), e.minimo)
		used += d[i]
	}
	d[last] = total - used

	// Give the last stage its minimum back from the longest earlier stage
	// that can spare a week.
	for d[last] < etapas[last].minimo {
		j := -1
		for i := 0; i < last; i++ {
			if d[i] > etapas[i].minimo && (j < 0 || d[i] > d[j]) {
				j = i
			}
		}
		if j < 0 {
			break
		}
		d[j]--
		d[last]++
	}
	return d
}

func disciplinasArquitetura(ds []model.Disciplina) []model.Disciplina {
	var out []model.Disciplina
	for _, d := range ds {
		if info, ok := d.Info(); ok && info.Categoria == model.CategoriaArquitetura {
			out = append(out, d)
		}
	}
	if len(out) == 0 {
		return append([]model.Disciplina(nil), ds...)
	}
	return out
}
