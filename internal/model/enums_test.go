package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeKey(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want string
	}{
		{"Elétrica", "ELETRICA"},
		{"  climatização ", "CLIMATIZACAO"},
		{"muito alta", "MUITO_ALTA"},
		{"Muito-Alta", "MUITO_ALTA"},
		{"ar condicionado!", "AR_CONDICIONADO"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeKey(tt.in), tt.in)
	}
}

func TestParseTipologia(t *testing.T) {
	t.Parallel()

	tp, err := ParseTipologia("Residential")
	require.NoError(t, err)
	assert.Equal(t, TipologiaResidencial, tp)

	tp, err = ParseTipologia("")
	require.NoError(t, err)
	assert.Equal(t, Tipologia(""), tp)

	_, err = ParseTipologia("nave espacial")
	assert.Error(t, err)
}

func TestParseDisciplina_Aliases(t *testing.T) {
	t.Parallel()
	tests := map[string]Disciplina{
		"Hidrossanitária": DisciplinaHidraulica,
		"PPCI":            DisciplinaIncendio,
		"hvac":            DisciplinaClimatizacao,
		"Estrutura":       DisciplinaEstrutural,
		"Luminotécnico":   DisciplinaLuminotecnica,
	}
	for in, want := range tests {
		got, err := ParseDisciplina(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDisciplina("")
	assert.Error(t, err)
}

func TestEveryDisciplinaHasCoherentProfiles(t *testing.T) {
	t.Parallel()
	for code, info := range disciplinas {
		var fases, equipe float64
		for _, p := range info.Fases {
			fases += p
		}
		for _, p := range info.Equipe {
			equipe += p
		}
		assert.InDelta(t, 1.0, fases, 1e-9, "phase profile of %s", code)
		assert.InDelta(t, 1.0, equipe, 1e-9, "staffing profile of %s", code)
		assert.Greater(t, info.Fator, 0.0, code)
		assert.LessOrEqual(t, info.Fator, 1.0, code)
	}
}

func TestEveryTipologiaHasData(t *testing.T) {
	t.Parallel()
	for _, tp := range Tipologias() {
		info, ok := tp.Info()
		require.True(t, ok, tp)
		assert.NotEmpty(t, info.DisciplinasBase, tp)
		assert.Greater(t, info.TaxaOcupacao, 0.0, tp)
		for _, d := range info.DisciplinasBase {
			assert.True(t, d.Valid(), "%s lists unknown discipline %s", tp, d)
		}
	}
}

func TestConfiancaRoundTrip(t *testing.T) {
	t.Parallel()
	for _, c := range []Confianca{ConfiancaAlta, ConfiancaMedia, ConfiancaBaixa} {
		assert.Equal(t, c, ConfiancaFromPeso(c.Peso()))
	}
	assert.Equal(t, ConfiancaMedia, ConfiancaFromPeso(2.4))
	assert.Equal(t, ConfiancaBaixa, ConfiancaFromPeso(1.49))
}

func TestBriefingExtraction_DecodeRejectsUnknownEnum(t *testing.T) {
	t.Parallel()

	var b BriefingExtraction
	err := json.Unmarshal([]byte(`{"areaConstruida":120,"tipologia":"Residencial","complexidade":"média","disciplinasNecessarias":["Arquitetura","Elétrica"]}`), &b)
	require.NoError(t, err)
	assert.Equal(t, TipologiaResidencial, b.Tipologia)
	assert.Equal(t, ComplexidadeMedia, b.Complexidade)
	assert.Equal(t, []Disciplina{DisciplinaArquitetura, DisciplinaEletrica}, b.DisciplinasNecessarias)

	err = json.Unmarshal([]byte(`{"tipologia":"castelo"}`), &b)
	assert.Error(t, err)
	err = json.Unmarshal([]byte(`{"disciplinasNecessarias":["astrologia"]}`), &b)
	assert.Error(t, err)
}

func TestBriefingExtraction_CloneIsDeep(t *testing.T) {
	t.Parallel()
	orig := BriefingExtraction{DisciplinasNecessarias: []Disciplina{DisciplinaArquitetura}}
	c := orig.Clone()
	c.DisciplinasNecessarias[0] = DisciplinaEstrutural
	assert.Equal(t, DisciplinaArquitetura, orig.DisciplinasNecessarias[0])
}

func TestBriefingExtraction_Normalized(t *testing.T) {
	t.Parallel()
	b := BriefingExtraction{
		DisciplinasNecessarias: []Disciplina{DisciplinaArquitetura, DisciplinaEletrica, DisciplinaArquitetura},
		DisciplinasOpcionais:   []Disciplina{DisciplinaEletrica, DisciplinaPaisagismo, DisciplinaPaisagismo},
	}
	n := b.Normalized()
	assert.Equal(t, []Disciplina{DisciplinaArquitetura, DisciplinaEletrica}, n.DisciplinasNecessarias)
	assert.Equal(t, []Disciplina{DisciplinaPaisagismo}, n.DisciplinasOpcionais)
}

func TestMissingMandatory(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		[]string{CampoAreaConstruida, CampoTipologia, CampoComplexidade, CampoDisciplinas},
		BriefingExtraction{}.MissingMandatory())
	assert.Empty(t, BriefingExtraction{
		AreaConstruida:         10,
		Tipologia:              TipologiaMisto,
		Complexidade:           ComplexidadeBaixa,
		DisciplinasNecessarias: []Disciplina{DisciplinaArquitetura},
	}.MissingMandatory())
}

func TestStatusTransitions(t *testing.T) {
	t.Parallel()
	assert.True(t, CanTransition(StatusRascunho, StatusEnviado))
	assert.True(t, CanTransition(StatusEnviado, StatusAprovado))
	assert.True(t, CanTransition(StatusEnviado, StatusRejeitado))
	assert.True(t, CanTransition(StatusRejeitado, StatusRascunho))
	assert.False(t, CanTransition(StatusRascunho, StatusAprovado))
	assert.False(t, CanTransition(StatusAprovado, StatusRascunho))
	assert.Error(t, CheckTransition(StatusAprovado, StatusEnviado))
}
