// Package export renders budgets as spreadsheets and publishes them to an
// S3-compatible bucket.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/proposal"
)

// Sheet names, in workbook order.
const (
	SheetResumo      = "Resumo"
	SheetDisciplinas = "Disciplinas"
	SheetComposicao  = "Composicao"
	SheetCronograma  = "Cronograma"
	SheetFallbacks   = "Fallbacks"
)

const moneyFormat = "#,##0.00"

var brl = proposal.NewComposer()

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// FileName returns the workbook name for a budget.
func FileName(rec *model.BudgetRecord) string {
	name := rec.Budget.Codigo
	if name == "" {
		name = rec.ID
	}
	return name + ".xlsx"
}

// Workbook builds the spreadsheet of a stored budget. The Fallbacks sheet is
// only present when the record carries an audit trail with entries.
func Workbook(rec *model.BudgetRecord) (*xlsx.File, error) {
	if rec == nil {
		return nil, eris.New("export: nil budget record")
	}
	f := xlsx.NewFile()
	b := &rec.Budget

	builders := []struct {
		name  string
		build func(*xlsx.Sheet)
	}{
		{SheetResumo, func(s *xlsx.Sheet) { resumo(s, rec) }},
		{SheetDisciplinas, func(s *xlsx.Sheet) { disciplinas(s, b) }},
		{SheetComposicao, func(s *xlsx.Sheet) { composicao(s, b) }},
		{SheetCronograma, func(s *xlsx.Sheet) { cronograma(s, b) }},
	}
	if rec.Fallback != nil && len(rec.Fallback.FallbacksAplicados) > 0 {
		builders = append(builders, struct {
			name  string
			build func(*xlsx.Sheet)
		}{SheetFallbacks, func(s *xlsx.Sheet) { fallbacks(s, rec.Fallback) }})
	}

	for _, sb := range builders {
		sheet, err := f.AddSheet(sb.name)
		if err != nil {
			return nil, eris.Wrapf(err, "export: add sheet %s", sb.name)
		}
		sb.build(sheet)
	}
	return f, nil
}

// WriteXLSX streams the workbook of rec to w.
func WriteXLSX(w io.Writer, rec *model.BudgetRecord) error {
	f, err := Workbook(rec)
	if err != nil {
		return err
	}
	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

func header(s *xlsx.Sheet, cols ...string) {
	row := s.AddRow()
	for _, c := range cols {
		cell := row.AddCell()
		cell.SetString(c)
		cell.GetStyle().Font.Bold = true
	}
}

func text(row *xlsx.Row, v string) { row.AddCell().SetString(v) }
func integer(row *xlsx.Row, v int) { row.AddCell().SetInt(v) }
func money(row *xlsx.Row, v float64) {
	row.AddCell().SetFloatWithFormat(v, moneyFormat)
}

func pair(s *xlsx.Sheet, label string, fill func(*xlsx.Row)) {
	row := s.AddRow()
	text(row, label)
	fill(row)
}

func resumo(s *xlsx.Sheet, rec *model.BudgetRecord) {
	b := &rec.Budget
	header(s, "Campo", "Valor")
	pair(s, "Codigo", func(r *xlsx.Row) { text(r, b.Codigo) })
	pair(s, "Nome", func(r *xlsx.Row) { text(r, b.Nome) })
	pair(s, "Escritorio", func(r *xlsx.Row) { text(r, rec.EscritorioID) })
	pair(s, "Status", func(r *xlsx.Row) { text(r, string(rec.Status)) })
	pair(s, "Area construida (m2)", func(r *xlsx.Row) { r.AddCell().SetFloat(b.AreaConstruida) })
	pair(s, "Tipologia", func(r *xlsx.Row) { text(r, string(b.Tipologia)) })
	pair(s, "Complexidade", func(r *xlsx.Row) { text(r, string(b.Complexidade)) })
	pair(s, "Horas totais", func(r *xlsx.Row) { integer(r, b.HorasTotais()) })
	pair(s, "Valor total", func(r *xlsx.Row) {
		money(r, b.ValorTotal)
		text(r, brl.Money(b.ValorTotal))
	})
	pair(s, "Valor por m2", func(r *xlsx.Row) { money(r, b.ValorPorM2) })
	pair(s, "Valor opcionais", func(r *xlsx.Row) { money(r, b.ValorOpcionais) })
	pair(s, "Prazo (semanas)", func(r *xlsx.Row) { integer(r, b.Cronograma.PrazoTotal) })
	pair(s, "Validade (dias)", func(r *xlsx.Row) { integer(r, b.Proposta.ValidadeProposta) })
	pair(s, "Confianca", func(r *xlsx.Row) { text(r, string(b.ConfiancaGeral)) })
	if len(b.Avisos) > 0 {
		pair(s, "Avisos", func(r *xlsx.Row) { text(r, strings.Join(b.Avisos, "; ")) })
	}
}

func disciplinas(s *xlsx.Sheet, b *model.BudgetResult) {
	header(s, "Disciplina", "Nome", "Opcional", "Horas", "Senior", "Pleno", "Junior", "Estagiario", "Valor hora", "Valor total")
	all := append(append([]model.DisciplineBudget(nil), b.Disciplinas...), b.DisciplinasOpcionais...)
	for _, d := range all {
		row := s.AddRow()
		text(row, string(d.Codigo))
		text(row, d.Nome)
		row.AddCell().SetBool(d.Opcional)
		integer(row, d.HorasEstimadas)
		for _, h := range d.Equipe.Horas() {
			integer(row, h)
		}
		money(row, d.ValorHora)
		money(row, d.ValorTotal)
	}
}

func composicao(s *xlsx.Sheet, b *model.BudgetResult) {
	c := b.ComposicaoFinanceira
	header(s, "Componente", "Valor")
	pair(s, "Custo tecnico", func(r *xlsx.Row) { money(r, c.CustoTecnico) })
	pair(s, "Custos indiretos", func(r *xlsx.Row) { money(r, c.CustosIndiretos) })
	pair(s, "Impostos", func(r *xlsx.Row) { money(r, c.Impostos) })
	pair(s, "Contingencia", func(r *xlsx.Row) { money(r, c.Contingencia) })
	pair(s, "Lucro", func(r *xlsx.Row) { money(r, c.Lucro) })
	pair(s, "Total", func(r *xlsx.Row) { money(r, b.ValorTotal) })

	s.AddRow()
	header(s, "Categoria", "Horas", "Custo tecnico")
	for _, cat := range model.Categorias() {
		horas, valor := subtotal(b.Disciplinas, cat)
		row := s.AddRow()
		text(row, string(cat))
		integer(row, horas)
		money(row, valor)
	}
}

// subtotal sums the hours and cost of the disciplines priced under cat.
func subtotal(ds []model.DisciplineBudget, cat model.Categoria) (int, float64) {
	var horas int
	var valor float64
	for _, d := range ds {
		if info, ok := d.Codigo.Info(); ok && info.Categoria == cat {
			horas += d.HorasEstimadas
			valor += d.ValorTotal
		}
	}
	return horas, valor
}

func cronograma(s *xlsx.Sheet, b *model.BudgetResult) {
	header(s, "Etapa", "Inicio", "Fim", "Duracao", "Disciplinas", "Marcos")
	for _, e := range b.Cronograma.Etapas {
		row := s.AddRow()
		text(row, e.Nome)
		integer(row, e.Inicio)
		integer(row, e.Fim)
		integer(row, e.Duracao)
		codes := make([]string, len(e.Disciplinas))
		for i, d := range e.Disciplinas {
			codes[i] = string(d)
		}
		text(row, strings.Join(codes, ", "))
		text(row, strings.Join(e.Marcos, "; "))
	}
}

func fallbacks(s *xlsx.Sheet, fb *model.FallbackResult) {
	header(s, "Campo", "Valor estimado", "Motivo", "Confianca")
	for _, f := range fb.FallbacksAplicados {
		row := s.AddRow()
		text(row, f.Campo)
		text(row, fmt.Sprint(f.ValorFallback))
		text(row, f.Motivo)
		text(row, string(f.Confianca))
	}
}
