package model

import (
	"github.com/rotisserie/eris"
)

// Disciplina is a professional specialty contributing to a project.
type Disciplina string

const (
	DisciplinaArquitetura    Disciplina = "ARQUITETURA"
	DisciplinaEstrutural     Disciplina = "ESTRUTURAL"
	DisciplinaEletrica       Disciplina = "ELETRICA"
	DisciplinaHidraulica     Disciplina = "HIDRAULICA"
	DisciplinaClimatizacao   Disciplina = "CLIMATIZACAO"
	DisciplinaIncendio       Disciplina = "INCENDIO"
	DisciplinaAcessibilidade Disciplina = "ACESSIBILIDADE"
	DisciplinaPaisagismo     Disciplina = "PAISAGISMO"
	DisciplinaLuminotecnica  Disciplina = "LUMINOTECNICA"
	DisciplinaAcustica       Disciplina = "ACUSTICA"
	DisciplinaUrbanismo      Disciplina = "URBANISMO"
	DisciplinaInteriores     Disciplina = "INTERIORES"
)

// NumFases is the number of fixed project phases every discipline is split into.
const NumFases = 4

// Fases names the fixed project phases in order.
var Fases = [NumFases]string{"Levantamento", "Estudo Preliminar", "Anteprojeto", "Projeto Executivo"}

// PerfilFases is a per-phase share of a discipline's hours.
type PerfilFases [NumFases]float64

var (
	perfilFasesPadrao   = PerfilFases{0.10, 0.25, 0.25, 0.40}
	perfilFasesTecnicas = PerfilFases{0.05, 0.15, 0.30, 0.50}
)

// PerfilEquipe is the share of a discipline's hours per seniority band,
// ordered as Senioridades().
type PerfilEquipe [4]float64

var (
	perfilEquipeArquitetura = PerfilEquipe{0.30, 0.40, 0.20, 0.10}
	perfilEquipePadrao      = PerfilEquipe{0.20, 0.40, 0.30, 0.10}
)

// DisciplinaInfo holds the data attached to a discipline.
type DisciplinaInfo struct {
	Nome      string
	Fator     float64
	Categoria Categoria
	Fases     PerfilFases
	Equipe    PerfilEquipe
}

var disciplinas = map[Disciplina]DisciplinaInfo{
	DisciplinaArquitetura:    {Nome: "Arquitetura", Fator: 1.0, Categoria: CategoriaArquitetura, Fases: perfilFasesPadrao, Equipe: perfilEquipeArquitetura},
	DisciplinaUrbanismo:      {Nome: "Urbanismo", Fator: 0.9, Categoria: CategoriaArquitetura, Fases: perfilFasesPadrao, Equipe: perfilEquipeArquitetura},
	DisciplinaEstrutural:     {Nome: "Estrutural", Fator: 0.8, Categoria: CategoriaEstrutural, Fases: perfilFasesTecnicas, Equipe: perfilEquipePadrao},
	DisciplinaInteriores:     {Nome: "Interiores", Fator: 0.7, Categoria: CategoriaArquitetura, Fases: perfilFasesPadrao, Equipe: perfilEquipeArquitetura},
	DisciplinaEletrica:       {Nome: "Elétrica", Fator: 0.6, Categoria: CategoriaInstalacoes, Fases: perfilFasesTecnicas, Equipe: perfilEquipePadrao},
	DisciplinaHidraulica:     {Nome: "Hidrossanitária", Fator: 0.6, Categoria: CategoriaInstalacoes, Fases: perfilFasesTecnicas, Equipe: perfilEquipePadrao},
	DisciplinaClimatizacao:   {Nome: "Climatização", Fator: 0.5, Categoria: CategoriaInstalacoes, Fases: perfilFasesTecnicas, Equipe: perfilEquipePadrao},
	DisciplinaIncendio:       {Nome: "Prevenção e Combate a Incêndio", Fator: 0.4, Categoria: CategoriaInstalacoes, Fases: perfilFasesTecnicas, Equipe: perfilEquipePadrao},
	DisciplinaPaisagismo:     {Nome: "Paisagismo", Fator: 0.4, Categoria: CategoriaPaisagismo, Fases: perfilFasesPadrao, Equipe: perfilEquipePadrao},
	DisciplinaLuminotecnica:  {Nome: "Luminotécnica", Fator: 0.35, Categoria: CategoriaArquitetura, Fases: perfilFasesPadrao, Equipe: perfilEquipePadrao},
	DisciplinaAcessibilidade: {Nome: "Acessibilidade", Fator: 0.3, Categoria: CategoriaArquitetura, Fases: perfilFasesPadrao, Equipe: perfilEquipePadrao},
	DisciplinaAcustica:       {Nome: "Acústica", Fator: 0.3, Categoria: CategoriaArquitetura, Fases: perfilFasesPadrao, Equipe: perfilEquipePadrao},
}

var disciplinaAliases = map[string]Disciplina{
	"ARQUITETURA":       DisciplinaArquitetura,
	"ARQUITETONICO":     DisciplinaArquitetura,
	"ESTRUTURAL":        DisciplinaEstrutural,
	"ESTRUTURA":         DisciplinaEstrutural,
	"ELETRICA":          DisciplinaEletrica,
	"ELETRICO":          DisciplinaEletrica,
	"HIDRAULICA":        DisciplinaHidraulica,
	"HIDROSSANITARIA":   DisciplinaHidraulica,
	"HIDROSSANITARIO":   DisciplinaHidraulica,
	"CLIMATIZACAO":      DisciplinaClimatizacao,
	"AR_CONDICIONADO":   DisciplinaClimatizacao,
	"HVAC":              DisciplinaClimatizacao,
	"INCENDIO":          DisciplinaIncendio,
	"PPCI":              DisciplinaIncendio,
	"ACESSIBILIDADE":    DisciplinaAcessibilidade,
	"PAISAGISMO":        DisciplinaPaisagismo,
	"LUMINOTECNICA":     DisciplinaLuminotecnica,
	"LUMINOTECNICO":     DisciplinaLuminotecnica,
	"ACUSTICA":          DisciplinaAcustica,
	"URBANISMO":         DisciplinaUrbanismo,
	"INTERIORES":        DisciplinaInteriores,
	"DESIGN_INTERIORES": DisciplinaInteriores,
}

// ParseDisciplina resolves a free-form discipline label into its code.
func ParseDisciplina(s string) (Disciplina, error) {
	key := NormalizeKey(s)
	if d, ok := disciplinaAliases[key]; ok {
		return d, nil
	}
	return "", eris.Errorf("model: unknown disciplina %q", s)
}

// Info returns the data attached to a known discipline.
func (d Disciplina) Info() (DisciplinaInfo, bool) {
	info, ok := disciplinas[d]
	return info, ok
}

// Nome returns the display name, or the code itself for unknown values.
func (d Disciplina) Nome() string {
	if info, ok := disciplinas[d]; ok {
		return info.Nome
	}
	return string(d)
}

// Valid reports whether d is a known discipline.
func (d Disciplina) Valid() bool {
	_, ok := disciplinas[d]
	return ok
}

func (d Disciplina) String() string { return string(d) }

// AppendUnique appends ds to list, skipping entries already present.
func AppendUnique(list []Disciplina, ds ...Disciplina) []Disciplina {
	for _, d := range ds {
		if !ContainsDisciplina(list, d) {
			list = append(list, d)
		}
	}
	return list
}

// ContainsDisciplina reports whether d is in list.
func ContainsDisciplina(list []Disciplina, d Disciplina) bool {
	for _, x := range list {
		if x == d {
			return true
		}
	}
	return false
}
