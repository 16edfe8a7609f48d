// Package proposal renders the commercial text of a computed budget.
package proposal

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/briefing-cli/internal/model"
)

// ValidadeDias is how long a proposal stays valid.
const ValidadeDias = 30

var (
	premissas = []string{
		"Informações fornecidas pelo cliente no briefing são consideradas verdadeiras e completas",
		"Levantamento topográfico e sondagem do terreno fornecidos pelo cliente",
		"Até duas rodadas de revisão por etapa estão incluídas",
		"Aprovações em órgãos públicos dependem dos prazos de cada órgão",
	}
	exclusoes = []string{
		"Taxas e emolumentos de órgãos públicos",
		"Acompanhamento de obra e fiscalização",
		"Maquetes físicas e renderizações além das previstas",
		"Disciplinas não listadas no escopo",
	}
	condicoesComerciais = []string{
		"Valores em reais (BRL), com impostos inclusos",
		"Reajuste anual pelo INCC",
		"Alterações de escopo após aprovação do estudo preliminar serão orçadas à parte",
	}
	formasPagamento = []string{
		"30% na assinatura do contrato",
		"30% na entrega do estudo preliminar",
		"20% na entrega do anteprojeto",
		"20% na entrega do projeto executivo",
	}
)

// Composer formats proposals in Brazilian Portuguese.
type Composer struct {
	lang language.Tag
}

// NewComposer creates a pt-BR Composer.
func NewComposer() *Composer {
	return &Composer{lang: language.BrazilianPortuguese}
}

// Compose builds the proposal from the computed budget. It reads b and never
// modifies it.
func (c *Composer) Compose(b *model.BudgetResult) model.Proposta {
	p := message.NewPrinter(c.lang)
	nomes := make([]string, 0, len(b.Disciplinas))
	for _, d := range b.Disciplinas {
		nomes = append(nomes, d.Nome)
	}

	escopo := p.Sprintf(
		"Elaboração dos projetos de %s para edificação %s de %.0f m², com valor total de %s (%s/m²) e prazo de %d semanas.",
		joinNomes(nomes), b.Tipologia, b.AreaConstruida,
		money(p, b.ValorTotal), money(p, b.ValorPorM2), b.Cronograma.PrazoTotal,
	)

	cond := append([]string(nil), condicoesComerciais...)
	if len(b.DisciplinasOpcionais) > 0 {
		opt := make([]string, 0, len(b.DisciplinasOpcionais))
		for _, d := range b.DisciplinasOpcionais {
			opt = append(opt, d.Nome)
		}
		cond = append(cond, p.Sprintf("Disciplinas opcionais (%s) orçadas à parte: %s",
			joinNomes(opt), money(p, b.ValorOpcionais)))
	}

	return model.Proposta{
		Escopo:              escopo,
		Premissas:           append([]string(nil), premissas...),
		Exclusoes:           append([]string(nil), exclusoes...),
		CondicoesComerciais: cond,
		FormasPagamento:     append([]string(nil), formasPagamento...),
		ValidadeProposta:    ValidadeDias,
	}
}

// Money formats v as BRL, e.g. "R$ 31.110,00".
func (c *Composer) Money(v float64) string {
	return money(message.NewPrinter(c.lang), v)
}

func money(p *message.Printer, v float64) string {
	return p.Sprintf("R$ %.2f", v)
}

func joinNomes(nomes []string) string {
	switch len(nomes) {
	case 0:
		return ""
	case 1:
		return nomes[0]
	}
	return strings.Join(nomes[:len(nomes)-1], ", ") + " e " + nomes[len(nomes)-1]
}
