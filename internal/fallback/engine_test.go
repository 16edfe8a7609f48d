package fallback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/briefing-cli/internal/dispatch"
	"github.com/sells-group/briefing-cli/internal/model"
)

func complete() model.BriefingExtraction {
	return model.BriefingExtraction{
		AreaConstruida:         150,
		Tipologia:              model.TipologiaResidencial,
		Padrao:                 model.PadraoMedio,
		Complexidade:           model.ComplexidadeMedia,
		DisciplinasNecessarias: []model.Disciplina{model.DisciplinaArquitetura},
		PrazoDesejado:          6,
	}
}

func TestApply_CompleteBriefingIsUnchanged(t *testing.T) {
	t.Parallel()
	e := New(Options{}, nil)

	in := complete()
	res := e.Apply(in)

	assert.True(t, res.Success)
	assert.Empty(t, res.FallbacksAplicados)
	assert.Equal(t, in, res.DadosCorrigidos)
	assert.Equal(t, model.ConfiancaAlta, res.ConfiancaGeral)
	assert.Empty(t, res.Avisos)
	assert.Empty(t, res.Recomendacoes)

	again := e.Apply(res.DadosCorrigidos)
	assert.Equal(t, res, again)
}

func TestApply_LotAreaOnly(t *testing.T) {
	t.Parallel()
	e := New(Options{}, nil)

	res := e.Apply(model.BriefingExtraction{AreaTerreno: 1000})
	require.True(t, res.Success)

	d := res.DadosCorrigidos
	assert.InDelta(t, 600, d.AreaConstruida, 1e-9)
	area, ok := res.Fallback(model.CampoAreaConstruida)
	require.True(t, ok)
	assert.Equal(t, model.ConfiancaMedia, area.Confianca)
	assert.Nil(t, area.ValorOriginal)

	assert.Equal(t, model.TipologiaComercial, d.Tipologia)
	tip, ok := res.Fallback(model.CampoTipologia)
	require.True(t, ok)
	assert.Equal(t, model.ConfiancaBaixa, tip.Confianca)

	assert.Equal(t, model.PadraoAlto, d.Padrao)
	// 600 m² (3) + comercial (2) + ALTO (3) = 8
	assert.Equal(t, model.ComplexidadeAlta, d.Complexidade)
	assert.Equal(t, []model.Disciplina{
		model.DisciplinaArquitetura, model.DisciplinaEstrutural, model.DisciplinaEletrica,
		model.DisciplinaHidraulica, model.DisciplinaClimatizacao,
		model.DisciplinaIncendio, model.DisciplinaAcessibilidade,
	}, d.DisciplinasNecessarias)
	// 600×0.5×1.3 + 6×15 = 480 days, clamped to 365, 13 months
	assert.Equal(t, 13, d.PrazoDesejado)

	assert.Len(t, res.FallbacksAplicados, 6)
	assert.Equal(t, model.ConfiancaMedia, res.ConfiancaGeral)
	assert.Len(t, res.Avisos, 3)
	assert.Len(t, res.Recomendacoes, 2)
}

func TestApply_EmptyBriefing(t *testing.T) {
	t.Parallel()
	e := New(Options{}, nil)

	res := e.Apply(model.BriefingExtraction{})
	require.True(t, res.Success)

	d := res.DadosCorrigidos
	assert.Equal(t, DefaultArea, d.AreaConstruida)
	assert.Equal(t, model.TipologiaResidencial, d.Tipologia)
	assert.Equal(t, model.PadraoMedio, d.Padrao)
	assert.Equal(t, model.ComplexidadeMedia, d.Complexidade)
	assert.Equal(t, []model.Disciplina{
		model.DisciplinaArquitetura, model.DisciplinaEstrutural,
		model.DisciplinaEletrica, model.DisciplinaHidraulica,
	}, d.DisciplinasNecessarias)
	// 150×0.5 + 3×15 = 120 days
	assert.Equal(t, 4, d.PrazoDesejado)
	assert.Empty(t, d.MissingMandatory())

	order := make([]string, 0, len(res.FallbacksAplicados))
	for _, f := range res.FallbacksAplicados {
		order = append(order, f.Campo)
	}
	assert.Equal(t, []string{
		model.CampoAreaConstruida, model.CampoTipologia, model.CampoPadrao,
		model.CampoComplexidade, model.CampoDisciplinas, model.CampoPrazoDesejado,
	}, order)
}

func TestApply_ConfigurableDefaultArea(t *testing.T) {
	t.Parallel()
	e := New(Options{DefaultArea: 90}, nil)
	res := e.Apply(model.BriefingExtraction{})
	assert.Equal(t, 90.0, res.DadosCorrigidos.AreaConstruida)
	assert.Equal(t, model.PadraoSimples, res.DadosCorrigidos.Padrao)
}

func TestApply_TypologyAverageArea(t *testing.T) {
	t.Parallel()
	e := New(Options{}, nil)
	res := e.Apply(model.BriefingExtraction{Tipologia: model.TipologiaIndustrial})

	assert.Equal(t, 2000.0, res.DadosCorrigidos.AreaConstruida)
	f, ok := res.Fallback(model.CampoAreaConstruida)
	require.True(t, ok)
	assert.Equal(t, model.ConfiancaBaixa, f.Confianca)
	assert.False(t, res.Estimado(model.CampoTipologia))
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	e := New(Options{}, nil)

	in := model.BriefingExtraction{
		AreaConstruida:       400,
		Tipologia:            model.TipologiaResidencial,
		DisciplinasOpcionais: []model.Disciplina{model.DisciplinaPaisagismo, model.DisciplinaInteriores},
	}
	snapshot := in.Clone()

	res := e.Apply(in)
	assert.Equal(t, snapshot, in)

	// PAISAGISMO became mandatory for a 400 m² residence and leaves the optional list.
	assert.Contains(t, res.DadosCorrigidos.DisciplinasNecessarias, model.DisciplinaPaisagismo)
	assert.Equal(t, []model.Disciplina{model.DisciplinaInteriores}, res.DadosCorrigidos.DisciplinasOpcionais)
}

func TestApply_PanickingStrategyIsRecovered(t *testing.T) {
	t.Parallel()
	e := New(Options{}, nil)
	e.tipologia = Chain[model.Tipologia]{{Name: "broken", Estimate: func(model.BriefingExtraction) (Candidate[model.Tipologia], bool) {
		panic("lookup table missing")
	}}}

	res := e.Apply(model.BriefingExtraction{AreaConstruida: 150})

	assert.False(t, res.Success)
	require.NotEmpty(t, res.Avisos)
	assert.Contains(t, res.Avisos[0], "tipologia")
	assert.Contains(t, res.Avisos[0], "lookup table missing")
	assert.False(t, res.Estimado(model.CampoTipologia))

	// The remaining fields are still processed.
	d := res.DadosCorrigidos
	assert.Equal(t, model.PadraoMedio, d.Padrao)
	assert.Equal(t, model.ComplexidadeMedia, d.Complexidade)
	assert.Equal(t, []model.Disciplina{model.DisciplinaArquitetura}, d.DisciplinasNecessarias)
	assert.Positive(t, d.PrazoDesejado)
	assert.Equal(t, []string{model.CampoTipologia}, d.MissingMandatory())
}

func TestPontuacaoComplexidade(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   model.BriefingExtraction
		pts  int
		want model.Complexidade
	}{
		{"small simple house", model.BriefingExtraction{AreaConstruida: 80, Tipologia: model.TipologiaResidencial, Padrao: model.PadraoSimples}, 3, model.ComplexidadeBaixa},
		{"defaults", model.BriefingExtraction{AreaConstruida: 300}, 6, model.ComplexidadeMedia},
		{"big urban luxury", model.BriefingExtraction{AreaConstruida: 9000, Tipologia: model.TipologiaUrbano, Padrao: model.PadraoAlto}, 11, model.ComplexidadeMuitoAlta},
		{"institutional", model.BriefingExtraction{AreaConstruida: 1500, Tipologia: model.TipologiaInstitucional, Padrao: model.PadraoMedio}, 8, model.ComplexidadeAlta},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pts := PontuacaoComplexidade(tt.in)
			assert.Equal(t, tt.pts, pts)
			assert.Equal(t, tt.want, ComplexidadeFromPontuacao(pts))
		})
	}
}

func TestPrazoDias_Clamped(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 30, PrazoDias(model.BriefingExtraction{AreaConstruida: 10}))
	assert.Equal(t, 365, PrazoDias(model.BriefingExtraction{AreaConstruida: 10000, Complexidade: model.ComplexidadeMuitoAlta}))
	assert.Equal(t, 75, PrazoDias(model.BriefingExtraction{AreaConstruida: 150, DisciplinasNecessarias: []model.Disciplina{model.DisciplinaArquitetura}}))
}

func TestConfiancaGeral(t *testing.T) {
	t.Parallel()
	assert.Equal(t, model.ConfiancaAlta, ConfiancaGeral(nil))
	// (3×1 + 1×3) / 4 = 1.5
	assert.Equal(t, model.ConfiancaMedia, ConfiancaGeral([]model.FallbackAplicado{
		{Campo: model.CampoAreaConstruida, Confianca: model.ConfiancaBaixa},
		{Campo: model.CampoPadrao, Confianca: model.ConfiancaAlta},
	}))
	assert.Equal(t, model.ConfiancaBaixa, ConfiancaGeral([]model.FallbackAplicado{
		{Campo: model.CampoAreaConstruida, Confianca: model.ConfiancaBaixa},
		{Campo: model.CampoTipologia, Confianca: model.ConfiancaBaixa},
		{Campo: model.CampoPrazoDesejado, Confianca: model.ConfiancaMedia},
	}))
	assert.Equal(t, model.ConfiancaAlta, ConfiancaGeral([]model.FallbackAplicado{
		{Campo: model.CampoDisciplinas, Confianca: model.ConfiancaAlta},
	}))
}

func TestApplyBatch(t *testing.T) {
	pool := dispatch.New(dispatch.Config{Workers: 2, BatchTimeout: 5 * time.Second})
	require.NoError(t, pool.Start())
	defer func() { _ = pool.Shutdown(context.Background()) }()

	e := New(Options{}, pool)
	in := []model.BriefingExtraction{
		{AreaTerreno: 1000},
		complete(),
		{},
	}
	out, err := e.ApplyBatch(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, b := range in {
		assert.Equal(t, e.Apply(b), out[i])
	}

	seq, err := New(Options{}, nil).ApplyBatch(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, out, seq)
}
