package schedule

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/briefing-cli/internal/model"
)

func TestPrazoSemanas(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		area  float64
		cx    model.Complexidade
		meses int
		want  int
	}{
		{"small project hits floor", 150, model.ComplexidadeMedia, 0, 8},
		{"zero area", 0, model.ComplexidadeMedia, 0, 8},
		// sqrt(10000)/5 = 20
		{"large project", 10000, model.ComplexidadeMedia, 0, 20},
		// 20 × 1.6 = 32
		{"very complex", 10000, model.ComplexidadeMuitoAlta, 0, 32},
		// 5 × 4.33 = 21.65
		{"client deadline shortens", 10000, model.ComplexidadeMuitoAlta, 5, 22},
		{"client deadline never below floor", 10000, model.ComplexidadeMedia, 1, 8},
		{"longer client deadline is ignored", 150, model.ComplexidadeMedia, 24, 8},
		{"huge area is capped", 1e20, model.ComplexidadeMuitoAlta, 0, SemanasMaximas},
		{"infinite area is capped", math.Inf(1), model.ComplexidadeMedia, 0, SemanasMaximas},
		{"NaN area hits floor", math.NaN(), model.ComplexidadeMedia, 0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PrazoSemanas(tt.area, tt.cx, tt.meses))
		})
	}
}

func TestBuild_Floor(t *testing.T) {
	t.Parallel()
	c := Build(150, model.ComplexidadeMedia, 0, []model.Disciplina{model.DisciplinaArquitetura})

	assert.Equal(t, 8, c.PrazoTotal)
	require.Len(t, c.Etapas, 4)
	assert.Equal(t, []int{1, 2, 2, 3}, []int{c.Etapas[0].Duracao, c.Etapas[1].Duracao, c.Etapas[2].Duracao, c.Etapas[3].Duracao})
	assert.Equal(t, "Levantamento", c.Etapas[0].Nome)
	assert.Equal(t, "Projeto Executivo", c.Etapas[3].Nome)
	assert.NotEmpty(t, c.Etapas[3].Marcos)
}

func TestBuild_ContiguousForAnyInput(t *testing.T) {
	t.Parallel()
	ds := []model.Disciplina{model.DisciplinaArquitetura, model.DisciplinaEstrutural}
	for _, cx := range model.Complexidades() {
		for area := 0.0; area <= 40000; area += 113 {
			for _, meses := range []int{0, 1, 3, 12} {
				c := Build(area, cx, meses, ds)
				require.GreaterOrEqual(t, c.PrazoTotal, SemanasMinimas)
				assert.Equal(t, 0, c.Etapas[0].Inicio)
				for i, e := range c.Etapas {
					assert.Equal(t, e.Inicio+e.Duracao, e.Fim)
					assert.GreaterOrEqual(t, e.Duracao, etapas[i].minimo, "stage %d of %d weeks", i, c.PrazoTotal)
					if i > 0 {
						assert.Equal(t, c.Etapas[i-1].Fim, e.Inicio)
						assert.GreaterOrEqual(t, e.Fim, c.Etapas[i-1].Fim)
					}
				}
				assert.Equal(t, c.PrazoTotal, c.Etapas[len(c.Etapas)-1].Fim)
			}
		}
	}
}

func TestDuracoes_SumToTotal(t *testing.T) {
	t.Parallel()
	for total := SemanasMinimas; total <= 200; total++ {
		sum := 0
		for _, d := range Duracoes(total) {
			sum += d
		}
		assert.Equal(t, total, sum, "total %d", total)
	}
}

func TestBuild_StageDisciplines(t *testing.T) {
	t.Parallel()
	ds := []model.Disciplina{model.DisciplinaArquitetura, model.DisciplinaEstrutural, model.DisciplinaInteriores}
	c := Build(400, model.ComplexidadeMedia, 0, ds)

	arq := []model.Disciplina{model.DisciplinaArquitetura, model.DisciplinaInteriores}
	assert.Equal(t, arq, c.Etapas[0].Disciplinas)
	assert.Equal(t, arq, c.Etapas[1].Disciplinas)
	assert.Equal(t, ds, c.Etapas[2].Disciplinas)
	assert.Equal(t, ds, c.Etapas[3].Disciplinas)

	only := Build(400, model.ComplexidadeMedia, 0, []model.Disciplina{model.DisciplinaEletrica})
	assert.Equal(t, []model.Disciplina{model.DisciplinaEletrica}, only.Etapas[0].Disciplinas)
}
