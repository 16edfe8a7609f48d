package fallback

import (
	"fmt"
	"math"

	"github.com/sells-group/briefing-cli/internal/model"
)

// Thresholds and constants of the inference heuristics.
const (
	DefaultArea = 150.0

	defaultTaxaOcupacao       = 0.6
	defaultPontuacaoTipologia = 2
	defaultPontuacaoPadrao    = 2

	limiteResidencial = 200.0
	limiteComercial   = 1000.0

	limitePadraoSimples = 100.0
	limitePadraoAlto    = 500.0

	limiteDisciplinasExtras = 1000.0
	limitePaisagismo        = 300.0

	diasPorM2              = 0.5
	diasPorDisciplinaExtra = 15
	prazoMinimoDias        = 30
	prazoMaximoDias        = 365
	diasPorMes             = 30
)

func areaStrategies(defaultArea float64) Chain[float64] {
	return Chain[float64]{
		{Name: "lot-occupancy", Estimate: areaFromLot},
		{Name: "typology-average", Estimate: areaFromTypology},
		{Name: "default", Estimate: func(model.BriefingExtraction) (Candidate[float64], bool) {
			return Candidate[float64]{
				Value:     defaultArea,
				Confianca: model.ConfiancaBaixa,
				Motivo:    fmt.Sprintf("Área construída ausente; adotado valor padrão de %.0f m²", defaultArea),
			}, true
		}},
	}
}

func areaFromLot(b model.BriefingExtraction) (Candidate[float64], bool) {
	if b.AreaTerreno <= 0 {
		return Candidate[float64]{}, false
	}
	taxa := defaultTaxaOcupacao
	if info, ok := b.Tipologia.Info(); ok {
		taxa = info.TaxaOcupacao
	}
	area := math.Round(b.AreaTerreno*taxa*100) / 100
	return Candidate[float64]{
		Value:     area,
		Confianca: model.ConfiancaMedia,
		Motivo:    fmt.Sprintf("Área construída estimada pela área do terreno (%.0f m²) × taxa de ocupação %.2f", b.AreaTerreno, taxa),
	}, true
}

func areaFromTypology(b model.BriefingExtraction) (Candidate[float64], bool) {
	info, ok := b.Tipologia.Info()
	if !ok {
		return Candidate[float64]{}, false
	}
	return Candidate[float64]{
		Value:     info.AreaMediaHistorica,
		Confianca: model.ConfiancaBaixa,
		Motivo:    fmt.Sprintf("Área construída estimada pela média histórica da tipologia %s", b.Tipologia),
	}, true
}

func tipologiaStrategies() Chain[model.Tipologia] {
	return Chain[model.Tipologia]{
		{Name: "area-bracket", Estimate: tipologiaFromArea},
		{Name: "mixed", Estimate: func(model.BriefingExtraction) (Candidate[model.Tipologia], bool) {
			return Candidate[model.Tipologia]{
				Value:     model.TipologiaMisto,
				Confianca: model.ConfiancaBaixa,
				Motivo:    "Tipologia ausente e sem área para inferência; adotado uso misto",
			}, true
		}},
	}
}

func tipologiaFromArea(b model.BriefingExtraction) (Candidate[model.Tipologia], bool) {
	if b.AreaConstruida <= 0 {
		return Candidate[model.Tipologia]{}, false
	}
	c := Candidate[model.Tipologia]{Confianca: model.ConfiancaBaixa}
	switch {
	case b.AreaConstruida <= limiteResidencial:
		c.Value = model.TipologiaResidencial
		c.Confianca = model.ConfiancaMedia
	case b.AreaConstruida <= limiteComercial:
		c.Value = model.TipologiaComercial
	default:
		c.Value = model.TipologiaIndustrial
	}
	c.Motivo = fmt.Sprintf("Tipologia inferida pela faixa de área (%.0f m²)", b.AreaConstruida)
	return c, true
}

func padraoStrategies() Chain[model.Padrao] {
	return Chain[model.Padrao]{
		{Name: "small-residential", Estimate: func(b model.BriefingExtraction) (Candidate[model.Padrao], bool) {
			if b.Tipologia != model.TipologiaResidencial || b.AreaConstruida <= 0 || b.AreaConstruida > limitePadraoSimples {
				return Candidate[model.Padrao]{}, false
			}
			return Candidate[model.Padrao]{
				Value:     model.PadraoSimples,
				Confianca: model.ConfiancaMedia,
				Motivo:    "Residência de pequeno porte; padrão simples presumido",
			}, true
		}},
		{Name: "large-or-institutional", Estimate: func(b model.BriefingExtraction) (Candidate[model.Padrao], bool) {
			if b.AreaConstruida < limitePadraoAlto && b.Tipologia != model.TipologiaInstitucional {
				return Candidate[model.Padrao]{}, false
			}
			return Candidate[model.Padrao]{
				Value:     model.PadraoAlto,
				Confianca: model.ConfiancaBaixa,
				Motivo:    "Empreendimento de grande porte ou institucional; padrão alto presumido",
			}, true
		}},
		{Name: "default", Estimate: func(model.BriefingExtraction) (Candidate[model.Padrao], bool) {
			return Candidate[model.Padrao]{
				Value:     model.PadraoMedio,
				Confianca: model.ConfiancaBaixa,
				Motivo:    "Padrão ausente; adotado padrão médio",
			}, true
		}},
	}
}

func complexidadeStrategies() Chain[model.Complexidade] {
	return Chain[model.Complexidade]{
		{Name: "score", Estimate: func(b model.BriefingExtraction) (Candidate[model.Complexidade], bool) {
			pts := PontuacaoComplexidade(b)
			return Candidate[model.Complexidade]{
				Value:     ComplexidadeFromPontuacao(pts),
				Confianca: model.ConfiancaMedia,
				Motivo:    fmt.Sprintf("Complexidade estimada por pontuação (%d pontos: área, tipologia e padrão)", pts),
			}, true
		}},
	}
}

// PontuacaoComplexidade sums the area bracket, typology and padrão scores.
func PontuacaoComplexidade(b model.BriefingExtraction) int {
	pts := 0
	switch a := b.AreaConstruida; {
	case a <= 100:
		pts++
	case a <= 500:
		pts += 2
	case a <= 2000:
		pts += 3
	default:
		pts += 4
	}

	if info, ok := b.Tipologia.Info(); ok {
		pts += info.PontuacaoComplexidade
	} else {
		pts += defaultPontuacaoTipologia
	}

	if b.Padrao.Valid() {
		pts += b.Padrao.Pontuacao()
	} else {
		pts += defaultPontuacaoPadrao
	}
	return pts
}

// ComplexidadeFromPontuacao maps a score onto a tier.
func ComplexidadeFromPontuacao(pts int) model.Complexidade {
	switch {
	case pts <= 4:
		return model.ComplexidadeBaixa
	case pts <= 6:
		return model.ComplexidadeMedia
	case pts <= 8:
		return model.ComplexidadeAlta
	default:
		return model.ComplexidadeMuitoAlta
	}
}

func disciplinasStrategies() Chain[[]model.Disciplina] {
	return Chain[[]model.Disciplina]{
		{Name: "typology-rules", Estimate: disciplinasFromRules},
		{Name: "architecture-only", Estimate: func(model.BriefingExtraction) (Candidate[[]model.Disciplina], bool) {
			return Candidate[[]model.Disciplina]{
				Value:     []model.Disciplina{model.DisciplinaArquitetura},
				Confianca: model.ConfiancaBaixa,
				Motivo:    "Tipologia desconhecida; apenas arquitetura considerada",
			}, true
		}},
	}
}

func disciplinasFromRules(b model.BriefingExtraction) (Candidate[[]model.Disciplina], bool) {
	info, ok := b.Tipologia.Info()
	if !ok {
		return Candidate[[]model.Disciplina]{}, false
	}
	ds := model.AppendUnique(nil, info.DisciplinasBase...)
	if b.AreaConstruida > limiteDisciplinasExtras || b.Complexidade.Elevada() {
		ds = model.AppendUnique(ds, model.DisciplinaIncendio, model.DisciplinaAcessibilidade)
	}
	if b.Tipologia == model.TipologiaResidencial && b.AreaConstruida > limitePaisagismo {
		ds = model.AppendUnique(ds, model.DisciplinaPaisagismo)
	}
	return Candidate[[]model.Disciplina]{
		Value:     ds,
		Confianca: model.ConfiancaAlta,
		Motivo:    fmt.Sprintf("Disciplinas definidas pelas regras da tipologia %s", b.Tipologia),
	}, true
}

func prazoStrategies() Chain[int] {
	return Chain[int]{
		{Name: "area-complexity", Estimate: func(b model.BriefingExtraction) (Candidate[int], bool) {
			dias := PrazoDias(b)
			return Candidate[int]{
				Value:     int(math.Ceil(float64(dias) / diasPorMes)),
				Confianca: model.ConfiancaMedia,
				Motivo:    fmt.Sprintf("Prazo estimado em %d dias pela área, complexidade e número de disciplinas", dias),
			}, true
		}},
	}
}

// PrazoDias estimates the project duration in days, clamped to [30, 365].
func PrazoDias(b model.BriefingExtraction) int {
	dias := b.AreaConstruida * diasPorM2 * b.Complexidade.MultiplicadorPrazo()
	if n := len(b.DisciplinasNecessarias); n > 1 {
		dias += float64(diasPorDisciplinaExtra * (n - 1))
	}
	d := int(math.Ceil(dias))
	return max(prazoMinimoDias, min(prazoMaximoDias, d))
}
