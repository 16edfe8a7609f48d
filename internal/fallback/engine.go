// Package fallback fills missing briefing fields with confidence-tagged
// estimates so the budget pipeline can run on incomplete input.
package fallback

import (
	"context"
	"fmt"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/dispatch"
	"github.com/sells-group/briefing-cli/internal/model"
)

// maxEstimadosSemAviso is the number of estimated fields tolerated before a
// warning is added.
const maxEstimadosSemAviso = 3

// pesos weighs each field in the overall confidence.
var pesos = map[string]float64{
	model.CampoAreaConstruida: 3,
	model.CampoTipologia:      3,
	model.CampoComplexidade:   2,
	model.CampoDisciplinas:    2,
	model.CampoPadrao:         1,
	model.CampoPrazoDesejado:  1,
}

// Options tunes the engine.
type Options struct {
	// DefaultArea is the built area assumed when nothing else is known.
	DefaultArea float64
}

// Engine applies the inference chains. It holds no mutable state and is safe
// for concurrent use.
type Engine struct {
	pool *dispatch.Pool

	area         Chain[float64]
	tipologia    Chain[model.Tipologia]
	padrao       Chain[model.Padrao]
	complexidade Chain[model.Complexidade]
	disciplinas  Chain[[]model.Disciplina]
	prazo        Chain[int]
}

// New builds an engine. pool is only used by ApplyBatch and may be nil.
func New(opts Options, pool *dispatch.Pool) *Engine {
	if opts.DefaultArea <= 0 {
		opts.DefaultArea = DefaultArea
	}
	return &Engine{
		pool:         pool,
		area:         areaStrategies(opts.DefaultArea),
		tipologia:    tipologiaStrategies(),
		padrao:       padraoStrategies(),
		complexidade: complexidadeStrategies(),
		disciplinas:  disciplinasStrategies(),
		prazo:        prazoStrategies(),
	}
}

type run struct {
	dados model.BriefingExtraction
	res   model.FallbackResult
}

// Apply returns a corrected copy of dados with every absent field estimated.
// It never fails for missing data; an estimator that breaks is reported in
// Avisos and flips Success to false while the remaining fields still run.
// The input is never modified.
func (e *Engine) Apply(dados model.BriefingExtraction) model.FallbackResult {
	r := &run{
		dados: dados.Clone(),
		res:   model.FallbackResult{Success: true, FallbacksAplicados: []model.FallbackAplicado{}},
	}

	if r.dados.AreaConstruida <= 0 {
		resolve(r, model.CampoAreaConstruida, e.area, func(v float64) { r.dados.AreaConstruida = v })
	}
	if !r.dados.Tipologia.Valid() {
		resolve(r, model.CampoTipologia, e.tipologia, func(v model.Tipologia) { r.dados.Tipologia = v })
	}
	if !r.dados.Padrao.Valid() {
		resolve(r, model.CampoPadrao, e.padrao, func(v model.Padrao) { r.dados.Padrao = v })
	}
	if !r.dados.Complexidade.Valid() {
		resolve(r, model.CampoComplexidade, e.complexidade, func(v model.Complexidade) { r.dados.Complexidade = v })
	}
	if len(r.dados.DisciplinasNecessarias) == 0 {
		resolve(r, model.CampoDisciplinas, e.disciplinas, func(v []model.Disciplina) {
			r.dados.DisciplinasNecessarias = slices.Clone(v)
			r.dados.DisciplinasOpcionais = slices.DeleteFunc(slices.Clone(r.dados.DisciplinasOpcionais), func(d model.Disciplina) bool {
				return model.ContainsDisciplina(v, d)
			})
		})
	}
	if r.dados.PrazoDesejado <= 0 {
		resolve(r, model.CampoPrazoDesejado, e.prazo, func(v int) { r.dados.PrazoDesejado = v })
	}

	r.finish()
	return r.res
}

// resolve runs one field's chain and records the audit entry. A panic inside
// a strategy becomes an EstimationError warning.
func resolve[T any](r *run, campo string, chain Chain[T], set func(T)) {
	defer func() {
		if rec := recover(); rec != nil {
			err := &apperr.EstimationError{Field: campo, Err: eris.Errorf("%v", rec)}
			r.res.Success = false
			r.res.Avisos = append(r.res.Avisos, fmt.Sprintf("Falha ao estimar %s: %v", campo, err))
			zap.L().Warn("fallback: estimator failed", zap.String("campo", campo), zap.Error(err))
		}
	}()

	cand, strategy, ok := chain.Resolve(r.dados)
	if !ok {
		r.res.Avisos = append(r.res.Avisos, fmt.Sprintf("Nenhuma estratégia conseguiu estimar %s", campo))
		return
	}
	set(cand.Value)
	r.res.FallbacksAplicados = append(r.res.FallbacksAplicados, model.FallbackAplicado{
		Campo:         campo,
		ValorOriginal: nil,
		ValorFallback: cand.Value,
		Motivo:        cand.Motivo,
		Confianca:     cand.Confianca,
	})
	zap.L().Debug("fallback: field estimated",
		zap.String("campo", campo),
		zap.String("strategy", strategy),
		zap.String("confianca", string(cand.Confianca)),
	)
}

func (r *run) finish() {
	r.res.DadosCorrigidos = r.dados
	r.res.ConfiancaGeral = ConfiancaGeral(r.res.FallbacksAplicados)

	if n := len(r.res.FallbacksAplicados); n > maxEstimadosSemAviso {
		r.res.Avisos = append(r.res.Avisos,
			fmt.Sprintf("%d campos foram estimados automaticamente; revise o briefing com o cliente", n))
	}
	for _, f := range r.res.FallbacksAplicados {
		if f.Confianca == model.ConfiancaBaixa {
			r.res.Avisos = append(r.res.Avisos,
				fmt.Sprintf("Campo %s estimado com confiança BAIXA: %s", f.Campo, f.Motivo))
		}
	}

	if r.res.Estimado(model.CampoAreaConstruida) {
		r.res.Recomendacoes = append(r.res.Recomendacoes,
			"Confirme a área construída com o cliente: ela determina diretamente as horas e os valores do orçamento")
	}
	if r.res.Estimado(model.CampoTipologia) {
		r.res.Recomendacoes = append(r.res.Recomendacoes,
			"Confirme a tipologia do projeto: ela define os multiplicadores e as disciplinas necessárias")
	}
}

// ConfiancaGeral is the weighted mean confidence of the estimated fields, or
// ALTA when nothing was estimated.
func ConfiancaGeral(fs []model.FallbackAplicado) model.Confianca {
	var soma, total float64
	for _, f := range fs {
		w, ok := pesos[f.Campo]
		if !ok {
			w = 1
		}
		soma += w * f.Confianca.Peso()
		total += w
	}
	if total == 0 {
		return model.ConfiancaAlta
	}
	return model.ConfiancaFromPeso(soma / total)
}

// ApplyBatch runs Apply for every briefing as one dispatcher batch. Results
// keep the input order.
func (e *Engine) ApplyBatch(ctx context.Context, briefings []model.BriefingExtraction) ([]model.FallbackResult, error) {
	if e.pool == nil {
		out := make([]model.FallbackResult, len(briefings))
		for i, b := range briefings {
			out[i] = e.Apply(b)
		}
		return out, nil
	}

	tasks := make([]dispatch.Task, len(briefings))
	for i, b := range briefings {
		b := b
		tasks[i] = dispatch.Task{
			ID:   fmt.Sprintf("fallback-%d", i),
			Kind: dispatch.KindFallback,
			Run: func(context.Context) (any, error) {
				return e.Apply(b), nil
			},
		}
	}

	results, err := e.pool.ProcessBatch(ctx, tasks)
	if err != nil {
		return nil, err
	}
	if err := dispatch.FirstFailure(results); err != nil {
		return nil, eris.Wrap(err, "fallback: batch")
	}
	out, err := dispatch.Values[model.FallbackResult](dispatch.Merge(results), dispatch.KindFallback)
	if err != nil {
		return nil, eris.Wrap(err, "fallback: collect batch")
	}
	zap.L().Info("fallback: batch applied", zap.Int("briefings", len(out)))
	return out, nil
}
