package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/briefing-cli/internal/budget"
	"github.com/sells-group/briefing-cli/internal/dispatch"
	"github.com/sells-group/briefing-cli/internal/fallback"
	"github.com/sells-group/briefing-cli/internal/model"
	"github.com/sells-group/briefing-cli/internal/officecfg"
	"github.com/sells-group/briefing-cli/internal/resilience"
	"github.com/sells-group/briefing-cli/internal/store"
)

// appEnv holds the long-lived collaborators shared by the commands.
type appEnv struct {
	Store   store.Store
	Pool    *dispatch.Pool
	Configs *officecfg.Provider
	Engine  *budget.Engine
}

// initEnv opens the store, starts the dispatcher and wires the engine.
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}

	configs := officecfg.NewProvider(st)
	if cfg.Office.DefaultsFile != "" {
		defaults, warnings, err := officecfg.LoadFile(cfg.Office.DefaultsFile)
		if err != nil {
			st.Close() //nolint:errcheck
			return nil, eris.Wrap(err, "load office defaults")
		}
		for _, w := range warnings {
			zap.L().Warn("office defaults warning", zap.String("warning", w))
		}
		configs.WithDefaults(defaults)
	}

	pool := dispatch.New(dispatch.Config{
		Workers:        cfg.Dispatch.Workers,
		BatchTimeout:   cfg.Dispatch.BatchTimeout(),
		RestartBackoff: cfg.Dispatch.RestartBackoff(),
	})
	if err := pool.Start(); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "start dispatcher")
	}

	engine := budget.New(budget.Deps{
		Dispatcher: pool,
		Configs:    configs,
		Fallback:   fallback.New(fallback.Options{DefaultArea: cfg.Fallback.DefaultArea}, pool),
	})

	zap.L().Debug("environment ready",
		zap.String("store", cfg.Store.Driver),
		zap.Int("workers", pool.Config().Workers),
	)
	return &appEnv{Store: st, Pool: pool, Configs: configs, Engine: engine}, nil
}

// Close stops the dispatcher and closes the store.
func (e *appEnv) Close() {
	if err := e.Pool.Shutdown(context.Background()); err != nil {
		zap.L().Warn("dispatcher shutdown", zap.Error(err))
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close", zap.Error(err))
	}
}

// saveOutcome persists a computed budget and returns the stored record.
func (e *appEnv) saveOutcome(ctx context.Context, escritorioID string, out *budget.Outcome) (*model.BudgetRecord, error) {
	fb := out.Fallback
	rec := &model.BudgetRecord{
		EscritorioID: escritorioID,
		Budget:       out.Budget,
		Fallback:     &fb,
	}
	if err := e.Store.SaveBudget(ctx, rec); err != nil {
		return nil, eris.Wrap(err, "save budget")
	}
	return e.Store.GetBudget(ctx, rec.ID)
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "briefing.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		retry := resilience.DefaultRetryConfig()
		retry.OnRetry = resilience.RetryLogger("postgres", "connect")
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (store.Store, error) {
			return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
				MaxConns: cfg.Store.MaxConns,
				MinConns: cfg.Store.MinConns,
			})
		})
	case "dynamodb":
		d := cfg.Store.Dynamo
		return store.NewDynamo(ctx, store.DynamoConfig{
			Region:       d.Region,
			Endpoint:     d.Endpoint,
			AccessKey:    d.AccessKey,
			SecretKey:    d.SecretKey,
			BudgetsTable: d.BudgetsTable,
			ConfigsTable: d.ConfigsTable,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
