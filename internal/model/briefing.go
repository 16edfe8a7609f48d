package model

// BriefingExtraction holds the facts distilled from a client intake
// questionnaire. Zero values mean "absent": areas and deadline are only
// meaningful when > 0, enumerations when non-empty.
type BriefingExtraction struct {
	AreaConstruida         float64      `json:"areaConstruida,omitempty" yaml:"areaConstruida,omitempty"`
	AreaTerreno            float64      `json:"areaTerreno,omitempty" yaml:"areaTerreno,omitempty"`
	Tipologia              Tipologia    `json:"tipologia,omitempty" yaml:"tipologia,omitempty"`
	Subtipo                string       `json:"subtipo,omitempty" yaml:"subtipo,omitempty"`
	Padrao                 Padrao       `json:"padrao,omitempty" yaml:"padrao,omitempty"`
	Complexidade           Complexidade `json:"complexidade,omitempty" yaml:"complexidade,omitempty"`
	DisciplinasNecessarias []Disciplina `json:"disciplinasNecessarias,omitempty" yaml:"disciplinasNecessarias,omitempty"`
	DisciplinasOpcionais   []Disciplina `json:"disciplinasOpcionais,omitempty" yaml:"disciplinasOpcionais,omitempty"`
	Localizacao            string       `json:"localizacao,omitempty" yaml:"localizacao,omitempty"`
	PrazoDesejado          int          `json:"prazoDesejado,omitempty" yaml:"prazoDesejado,omitempty"` // months
}

// Clone returns a deep copy; the discipline slices are not shared.
func (b BriefingExtraction) Clone() BriefingExtraction {
	c := b
	if b.DisciplinasNecessarias != nil {
		c.DisciplinasNecessarias = append([]Disciplina(nil), b.DisciplinasNecessarias...)
	}
	if b.DisciplinasOpcionais != nil {
		c.DisciplinasOpcionais = append([]Disciplina(nil), b.DisciplinasOpcionais...)
	}
	return c
}

// Normalized returns a copy with duplicate disciplines removed (first
// occurrence wins) and optional disciplines that are already mandatory dropped.
func (b BriefingExtraction) Normalized() BriefingExtraction {
	c := b.Clone()
	if len(c.DisciplinasNecessarias) > 0 {
		c.DisciplinasNecessarias = AppendUnique(nil, c.DisciplinasNecessarias...)
	}
	if len(c.DisciplinasOpcionais) > 0 {
		var opt []Disciplina
		for _, d := range c.DisciplinasOpcionais {
			if !ContainsDisciplina(c.DisciplinasNecessarias, d) {
				opt = AppendUnique(opt, d)
			}
		}
		c.DisciplinasOpcionais = opt
	}
	return c
}

// MissingMandatory lists the fields the hour estimator cannot work without.
func (b BriefingExtraction) MissingMandatory() []string {
	var missing []string
	if b.AreaConstruida <= 0 {
		missing = append(missing, CampoAreaConstruida)
	}
	if !b.Tipologia.Valid() {
		missing = append(missing, CampoTipologia)
	}
	if !b.Complexidade.Valid() {
		missing = append(missing, CampoComplexidade)
	}
	if len(b.DisciplinasNecessarias) == 0 {
		missing = append(missing, CampoDisciplinas)
	}
	return missing
}

// Field names used in audit trails and error details.
const (
	CampoAreaConstruida = "areaConstruida"
	CampoTipologia      = "tipologia"
	CampoPadrao         = "padrao"
	CampoComplexidade   = "complexidade"
	CampoDisciplinas    = "disciplinasNecessarias"
	CampoPrazoDesejado  = "prazoDesejado"
)
