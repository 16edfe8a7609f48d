package model

// UnmarshalText makes JSON/YAML decoding go through ParseTipologia so unknown
// labels fail at decode time.
func (t *Tipologia) UnmarshalText(b []byte) error {
	v, err := ParseTipologia(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (p *Padrao) UnmarshalText(b []byte) error {
	v, err := ParsePadrao(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (c *Complexidade) UnmarshalText(b []byte) error {
	v, err := ParseComplexidade(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (d *Disciplina) UnmarshalText(b []byte) error {
	v, err := ParseDisciplina(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
