// Package estimate turns a corrected briefing into per-discipline hours,
// split by project phase and by seniority band.
package estimate

import (
	"fmt"
	"math"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/model"
)

// FatorOpcional scales the hours of optional disciplines (reduced scope).
const FatorOpcional = 0.8

const (
	// AreaMaxima is the largest built area, in m², the estimator accepts.
	AreaMaxima = 1e7
	// horasMaximas bounds one discipline's hours so they stay representable.
	horasMaximas = 1e12
)

// entregaveis lists the deliverables of each phase, indexed like model.Fases.
var entregaveis = [model.NumFases][]string{
	{"Levantamento de dados e legislação", "Programa de necessidades"},
	{"Estudo preliminar", "Memorial justificativo"},
	{"Anteprojeto", "Compatibilização preliminar entre disciplinas"},
	{"Projeto executivo", "Detalhamentos", "Memorial descritivo"},
}

// Multipliers are the factors shared by every discipline of one computation.
type Multipliers struct {
	HorasBaseM2  float64
	Tipologia    float64
	Complexidade float64
	Escala       float64
}

// Fatores converts m into its audit record.
func (m Multipliers) Fatores() model.Fatores {
	return model.Fatores{
		Tipologia:    m.Tipologia,
		Complexidade: m.Complexidade,
		HorasBaseM2:  m.HorasBaseM2,
		Escala:       m.Escala,
	}
}

// limitesEscala are the area thresholds of FatorEscala, ascending.
var limitesEscala = []float64{1000, 2000, 5000}

// FatorEscala models economies of scale: a decreasing step function of area.
func FatorEscala(area float64) float64 {
	switch {
	case area > 5000:
		return 0.7
	case area > 2000:
		return 0.8
	case area > 1000:
		return 0.9
	default:
		return 1.0
	}
}

// EscalaEfetiva is the scale factor actually applied. Right above each
// threshold the scaled area plateaus at the threshold's own scaled area, so
// a larger project never gets fewer hours than a smaller one.
func EscalaEfetiva(area float64) float64 {
	if area <= 0 {
		return 1.0
	}
	scaled := area * FatorEscala(area)
	for _, t := range limitesEscala {
		if area > t {
			scaled = math.Max(scaled, t*FatorEscala(t))
		}
	}
	return scaled / area
}

// Precondition returns an *apperr.InsufficientDataError naming every
// mandatory field still missing.
func Precondition(b model.BriefingExtraction) error {
	if missing := b.MissingMandatory(); len(missing) > 0 {
		return &apperr.InsufficientDataError{Fields: missing}
	}
	if a := b.AreaConstruida; math.IsNaN(a) || a > AreaMaxima {
		return &apperr.InvalidInputError{
			Reason: fmt.Sprintf("%s %g m² outside (0, %.0f]", model.CampoAreaConstruida, a, AreaMaxima),
		}
	}
	return nil
}

// ComputeMultipliers resolves the tenant factors for a briefing.
func ComputeMultipliers(b model.BriefingExtraction, cfg *model.OfficeConfiguration) (Multipliers, error) {
	if err := Precondition(b); err != nil {
		return Multipliers{}, err
	}
	p, ok := cfg.Complexidade(b.Complexidade)
	if !ok {
		return Multipliers{}, &apperr.ConfigurationError{
			Violations: []string{"parametrosComplexidade." + string(b.Complexidade) + " is required"},
		}
	}
	return Multipliers{
		HorasBaseM2:  p.HorasBaseM2,
		Tipologia:    cfg.MultiplicadorTipologia(b.Tipologia, b.Subtipo),
		Complexidade: p.Multiplicador,
		Escala:       EscalaEfetiva(b.AreaConstruida),
	}, nil
}

// HorasDisciplina computes one discipline's budget without money fields.
// Phase and staffing splits are each ceil-rounded on their own, so their
// sums may exceed the discipline total by up to one hour per split.
func HorasDisciplina(b model.BriefingExtraction, cfg *model.OfficeConfiguration, d model.Disciplina, opcional bool) (model.DisciplineBudget, error) {
	m, err := ComputeMultipliers(b, cfg)
	if err != nil {
		return model.DisciplineBudget{}, err
	}
	return Build(b.AreaConstruida, d, opcional, m)
}

// Build applies precomputed multipliers to one discipline.
func Build(area float64, d model.Disciplina, opcional bool, m Multipliers) (model.DisciplineBudget, error) {
	info, ok := d.Info()
	if !ok {
		return model.DisciplineBudget{}, &apperr.InvalidInputError{Reason: "unknown discipline " + string(d)}
	}

	raw := area * m.HorasBaseM2 * m.Tipologia * m.Complexidade * info.Fator * m.Escala
	if opcional {
		raw *= FatorOpcional
	}
	if math.IsNaN(raw) || raw < 0 || raw > horasMaximas {
		return model.DisciplineBudget{}, &apperr.InvalidInputError{
			Reason: fmt.Sprintf("hours of %s out of range (%g)", d, raw),
		}
	}
	horas := ceil(raw)

	etapas := make([]model.EtapaDisciplina, model.NumFases)
	for i, pct := range info.Fases {
		etapas[i] = model.EtapaDisciplina{
			Nome:           model.Fases[i],
			Percentual:     math.Round(pct * 100),
			HorasEstimadas: ceil(float64(horas) * pct),
			Entregaveis:    append([]string(nil), entregaveis[i]...),
		}
	}

	var equipe [4]int
	for i, pct := range info.Equipe {
		equipe[i] = ceil(float64(horas) * pct)
	}

	return model.DisciplineBudget{
		Codigo:         d,
		Nome:           info.Nome,
		HorasEstimadas: horas,
		Equipe:         model.EquipeFromHoras(equipe),
		Etapas:         etapas,
		Opcional:       opcional,
	}, nil
}

// Hours is the full estimator output.
type Hours struct {
	Multipliers Multipliers
	Disciplinas []model.DisciplineBudget
	Opcionais   []model.DisciplineBudget
}

// Estimate runs the estimator for every mandatory and optional discipline
// of a corrected briefing.
func Estimate(b model.BriefingExtraction, cfg *model.OfficeConfiguration) (*Hours, error) {
	b = b.Normalized()
	m, err := ComputeMultipliers(b, cfg)
	if err != nil {
		return nil, err
	}

	out := &Hours{Multipliers: m}
	for _, d := range b.DisciplinasNecessarias {
		db, err := Build(b.AreaConstruida, d, false, m)
		if err != nil {
			return nil, err
		}
		out.Disciplinas = append(out.Disciplinas, db)
	}
	for _, d := range b.DisciplinasOpcionais {
		db, err := Build(b.AreaConstruida, d, true, m)
		if err != nil {
			return nil, err
		}
		out.Opcionais = append(out.Opcionais, db)
	}
	return out, nil
}

// Drift is the rounding slack of a discipline's splits: how many hours the
// phase and staffing sums exceed the discipline total.
type Drift struct {
	Fases  int `json:"fases"`
	Equipe int `json:"equipe"`
}

// DriftHoras reports the rounding drift of d.
func DriftHoras(d model.DisciplineBudget) Drift {
	fases := 0
	for _, e := range d.Etapas {
		fases += e.HorasEstimadas
	}
	return Drift{
		Fases:  fases - d.HorasEstimadas,
		Equipe: d.Equipe.Total() - d.HorasEstimadas,
	}
}

// ceil rounds up after trimming float noise below a millionth of an hour.
func ceil(x float64) int {
	return int(math.Ceil(math.Round(x*1e6) / 1e6))
}
