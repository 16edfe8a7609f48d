// Package budget orchestrates the briefing-to-budget pipeline: fallback,
// hours, valuation, financial composition, schedule and proposal.
package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/cost"
	"github.com/sells-group/briefing-cli/internal/dispatch"
	"github.com/sells-group/briefing-cli/internal/estimate"
	"github.com/sells-group/briefing-cli/internal/fallback"
	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/proposal"
	"github.com/sells-group/briefing-cli/internal/schedule"
)

// Dispatcher runs a batch of independent tasks.
type Dispatcher interface {
	ProcessBatch(ctx context.Context, tasks []dispatch.Task) ([]dispatch.Result, error)
}

// ConfigSource supplies validated tenant configurations.
type ConfigSource interface {
	Get(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error)
}

// Deps are the collaborators of an Engine.
type Deps struct {
	Dispatcher Dispatcher
	Configs    ConfigSource
	Fallback   *fallback.Engine
	Composer   *proposal.Composer
}

// Request is one budget computation.
type Request struct {
	EscritorioID string                   `json:"escritorioId" yaml:"escritorioId"`
	Nome         string                   `json:"nome,omitempty" yaml:"nome,omitempty"`
	Descricao    string                   `json:"descricao,omitempty" yaml:"descricao,omitempty"`
	Briefing     model.BriefingExtraction `json:"briefing" yaml:"briefing"`
	// Config overrides the tenant configuration when set. It is validated
	// before use.
	Config *model.OfficeConfiguration `json:"-" yaml:"-"`
}

// Outcome is a computed budget plus the audit data of the run.
type Outcome struct {
	Budget   model.BudgetResult
	Fallback model.FallbackResult
	Drift    map[model.Disciplina]estimate.Drift
}

// Engine computes budgets. It holds no per-request state.
type Engine struct {
	deps Deps
}

// New creates an Engine. Fallback and Composer default when nil.
func New(deps Deps) *Engine {
	if deps.Fallback == nil {
		deps.Fallback = fallback.New(fallback.Options{}, nil)
	}
	if deps.Composer == nil {
		deps.Composer = proposal.NewComposer()
	}
	return &Engine{deps: deps}
}

// Fallback returns the inference engine used by the pipeline.
func (e *Engine) Fallback() *fallback.Engine { return e.deps.Fallback }

// Calculate runs the whole pipeline. The result is a pure function of the
// briefing and the tenant configuration. Any failed or timed-out task fails
// the computation; partial budgets are never returned.
func (e *Engine) Calculate(ctx context.Context, req Request) (*Outcome, error) {
	start := time.Now()
	log := zap.L().With(zap.String("escritorio", req.EscritorioID))

	cfg, err := e.config(ctx, req)
	if err != nil {
		return nil, err
	}

	fb := e.deps.Fallback.Apply(req.Briefing)
	if len(fb.FallbacksAplicados) > 0 {
		log.Info("budget: fallbacks applied",
			zap.Int("fields", len(fb.FallbacksAplicados)),
			zap.String("confianca", string(fb.ConfiancaGeral)),
			zap.Bool("success", fb.Success),
		)
	}

	dados := fb.DadosCorrigidos.Normalized()
	if err := estimate.Precondition(dados); err != nil {
		return nil, err
	}

	// Only a deadline the client gave caps the schedule.
	prazoCliente := dados.PrazoDesejado
	if fb.Estimado(model.CampoPrazoDesejado) {
		prazoCliente = 0
	}

	first, err := e.estimate(ctx, dados, cfg, prazoCliente)
	if err != nil {
		return nil, err
	}

	calc := cost.NewCalculator(cfg)
	valued, err := e.value(ctx, calc, append(append([]model.DisciplineBudget(nil), first.disciplinas...), first.opcionais...))
	if err != nil {
		return nil, err
	}
	disciplinas := valued[:len(first.disciplinas)]
	opcionais := valued[len(first.disciplinas):]

	comp := calc.Compor(disciplinas, opcionais, dados.AreaConstruida)

	id := BudgetID(req.EscritorioID, dados, cfg)
	res := model.BudgetResult{
		ID:        id.String(),
		Codigo:    Codigo(id),
		Nome:      req.Nome,
		Descricao: req.Descricao,
		Status:    model.StatusRascunho,

		AreaConstruida: dados.AreaConstruida,
		AreaTerreno:    dados.AreaTerreno,
		Tipologia:      dados.Tipologia,
		Subtipo:        dados.Subtipo,
		Padrao:         dados.Padrao,
		Complexidade:   dados.Complexidade,
		Localizacao:    dados.Localizacao,
		PrazoDesejado:  dados.PrazoDesejado,

		ValorTotal:     comp.ValorTotal,
		ValorPorM2:     comp.ValorPorM2,
		ValorOpcionais: comp.ValorOpcionais,

		Disciplinas:          disciplinas,
		DisciplinasOpcionais: opcionais,
		ComposicaoFinanceira: comp.Financeira,
		Cronograma:           first.cronograma,
		Fatores:              first.multipliers.Fatores(),

		ConfiancaGeral: fb.ConfiancaGeral,
		Avisos:         append([]string(nil), fb.Avisos...),
	}
	if res.Nome == "" {
		res.Nome = fmt.Sprintf("Orçamento %s %.0f m²", dados.Tipologia, dados.AreaConstruida)
	}
	res.Proposta = e.deps.Composer.Compose(&res)

	drift := make(map[model.Disciplina]estimate.Drift, len(disciplinas))
	for _, d := range first.disciplinas {
		drift[d.Codigo] = estimate.DriftHoras(d)
	}

	log.Info("budget: computed",
		zap.String("codigo", res.Codigo),
		zap.Float64("valor_total", res.ValorTotal),
		zap.Int("disciplinas", len(disciplinas)),
		zap.Int("prazo_semanas", res.Cronograma.PrazoTotal),
		zap.Duration("elapsed", time.Since(start)),
	)
	return &Outcome{Budget: res, Fallback: fb, Drift: drift}, nil
}

func (e *Engine) config(ctx context.Context, req Request) (*model.OfficeConfiguration, error) {
	if req.Config != nil {
		warnings, err := req.Config.Validate()
		if err != nil {
			return nil, err
		}
		for _, w := range warnings {
			zap.L().Warn("budget: configuration warning", zap.String("warning", w))
		}
		return req.Config, nil
	}
	if e.deps.Configs == nil {
		return nil, eris.New("budget: no configuration source")
	}
	cfg, err := e.deps.Configs.Get(ctx, req.EscritorioID)
	if err != nil {
		return nil, eris.Wrapf(err, "budget: configuration for %s", req.EscritorioID)
	}
	return cfg, nil
}

// firstBatch holds the outputs of the hours/multipliers/timeline batch.
type firstBatch struct {
	disciplinas []model.DisciplineBudget
	opcionais   []model.DisciplineBudget
	multipliers estimate.Multipliers
	cronograma  model.Cronograma
}

func (e *Engine) estimate(ctx context.Context, dados model.BriefingExtraction, cfg *model.OfficeConfiguration, prazoCliente int) (*firstBatch, error) {
	var tasks []dispatch.Task
	addHours := func(d model.Disciplina, opcional bool) {
		id := string(dispatch.KindHours) + ":" + string(d)
		if opcional {
			id += ":opcional"
		}
		tasks = append(tasks, dispatch.Task{
			ID:       id,
			Kind:     dispatch.KindHours,
			Priority: dispatch.PriorityHigh,
			Run: func(context.Context) (any, error) {
				return estimate.HorasDisciplina(dados, cfg, d, opcional)
			},
		})
	}
	for _, d := range dados.DisciplinasNecessarias {
		addHours(d, false)
	}
	for _, d := range dados.DisciplinasOpcionais {
		addHours(d, true)
	}
	tasks = append(tasks,
		dispatch.Task{
			ID:   string(dispatch.KindMultipliers),
			Kind: dispatch.KindMultipliers,
			Run: func(context.Context) (any, error) {
				return estimate.ComputeMultipliers(dados, cfg)
			},
		},
		dispatch.Task{
			ID:   string(dispatch.KindTimeline),
			Kind: dispatch.KindTimeline,
			Run: func(context.Context) (any, error) {
				return schedule.Build(dados.AreaConstruida, dados.Complexidade, prazoCliente, dados.DisciplinasNecessarias), nil
			},
		},
	)

	merged, err := e.run(ctx, tasks)
	if err != nil {
		return nil, err
	}

	hours, err := dispatch.Values[model.DisciplineBudget](merged, dispatch.KindHours)
	if err != nil {
		return nil, eris.Wrap(err, "budget: hours")
	}
	out := &firstBatch{}
	for _, h := range hours {
		if h.Opcional {
			out.opcionais = append(out.opcionais, h)
		} else {
			out.disciplinas = append(out.disciplinas, h)
		}
	}
	if out.multipliers, err = dispatch.Single[estimate.Multipliers](merged, dispatch.KindMultipliers); err != nil {
		return nil, eris.Wrap(err, "budget: multipliers")
	}
	if out.cronograma, err = dispatch.Single[model.Cronograma](merged, dispatch.KindTimeline); err != nil {
		return nil, eris.Wrap(err, "budget: timeline")
	}
	return out, nil
}

func (e *Engine) value(ctx context.Context, calc *cost.Calculator, ds []model.DisciplineBudget) ([]model.DisciplineBudget, error) {
	tasks := make([]dispatch.Task, len(ds))
	for i, d := range ds {
		id := string(dispatch.KindValues) + ":" + string(d.Codigo)
		if d.Opcional {
			id += ":opcional"
		}
		tasks[i] = dispatch.Task{
			ID:   id,
			Kind: dispatch.KindValues,
			Run: func(context.Context) (any, error) {
				return calc.Valorar(d), nil
			},
		}
	}

	merged, err := e.run(ctx, tasks)
	if err != nil {
		return nil, err
	}
	out, err := dispatch.Values[model.DisciplineBudget](merged, dispatch.KindValues)
	if err != nil {
		return nil, eris.Wrap(err, "budget: values")
	}
	return out, nil
}

func (e *Engine) run(ctx context.Context, tasks []dispatch.Task) (dispatch.Merged, error) {
	if e.deps.Dispatcher == nil {
		return nil, eris.New("budget: no dispatcher")
	}
	results, err := e.deps.Dispatcher.ProcessBatch(ctx, tasks)
	if err != nil {
		return nil, err
	}
	merged := dispatch.Merge(results)
	if failed := merged.Failures(); len(failed) > 0 {
		for _, r := range failed {
			zap.L().Warn("budget: task failed",
				zap.String("task", r.TaskID),
				zap.String("kind", string(r.Kind)),
				zap.Error(r.Err),
			)
		}
		return nil, dispatch.FirstFailure(results)
	}
	return merged, nil
}

// BudgetID derives a stable id from the tenant, the corrected briefing and
// the configuration it was priced with.
func BudgetID(escritorioID string, dados model.BriefingExtraction, cfg *model.OfficeConfiguration) uuid.UUID {
	payload, err := json.Marshal(struct {
		EscritorioID string                     `json:"e"`
		Dados        model.BriefingExtraction   `json:"d"`
		Config       *model.OfficeConfiguration `json:"c"`
	}{escritorioID, dados, cfg})
	if err != nil {
		payload = []byte(fmt.Sprintf("%s|%+v|%+v", escritorioID, dados, cfg))
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, append([]byte("briefing-cli/orcamento:"), payload...))
}

// Codigo is the human-facing code of a budget, e.g. "ORC-1A2B3C4D".
func Codigo(id uuid.UUID) string {
	return "ORC-" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
}
