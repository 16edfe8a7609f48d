// Package officecfg supplies validated per-tenant pricing configurations.
package officecfg

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/briefing-cli/internal/apperr"
	"github.com/sells-group/briefing-cli/internal/model"
)

// Store persists tenant configurations.
type Store interface {
	GetOfficeConfig(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error)
	SaveOfficeConfig(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) error
}

// Provider caches configurations in memory. The first request for a tenant
// without a stored configuration persists the default one; concurrent first
// requests share a single load.
type Provider struct {
	store    Store
	defaults func() *model.OfficeConfiguration

	mu    sync.RWMutex
	cache map[string]*model.OfficeConfiguration
	group singleflight.Group
}

// NewProvider creates a Provider. A nil store keeps everything in memory.
func NewProvider(store Store) *Provider {
	return &Provider{
		store:    store,
		defaults: model.DefaultOfficeConfiguration,
		cache:    make(map[string]*model.OfficeConfiguration),
	}
}

// WithDefaults replaces the configuration synthesized for new tenants.
func (p *Provider) WithDefaults(cfg *model.OfficeConfiguration) *Provider {
	p.defaults = cfg.Clone
	return p
}

// Get returns the tenant configuration. The returned value is shared and
// must not be modified.
func (p *Provider) Get(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error) {
	escritorioID = strings.TrimSpace(escritorioID)
	if escritorioID == "" {
		return nil, &apperr.InvalidInputError{Reason: "escritorioId is required"}
	}
	if cfg, ok := p.cached(escritorioID); ok {
		return cfg, nil
	}

	// The load is shared, so it runs detached from any one caller's
	// cancellation. Each caller still stops waiting when its own ctx ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan(escritorioID, func() (any, error) {
		if cfg, ok := p.cached(escritorioID); ok {
			return cfg, nil
		}
		cfg, err := p.load(loadCtx, escritorioID)
		if err != nil {
			return nil, err
		}
		p.mu.Lock()
		p.cache[escritorioID] = cfg
		p.mu.Unlock()
		return cfg, nil
	})
	select {
	case <-ctx.Done():
		return nil, eris.Wrapf(ctx.Err(), "officecfg: get %s", escritorioID)
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*model.OfficeConfiguration), nil
	}
}

// Put validates and stores a tenant configuration, returning the
// non-blocking warnings.
func (p *Provider) Put(ctx context.Context, escritorioID string, cfg *model.OfficeConfiguration) ([]string, error) {
	escritorioID = strings.TrimSpace(escritorioID)
	if escritorioID == "" {
		return nil, &apperr.InvalidInputError{Reason: "escritorioId is required"}
	}
	if cfg == nil {
		return nil, &apperr.InvalidInputError{Reason: "configuration is required"}
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return warnings, err
	}

	own := cfg.Clone()
	if p.store != nil {
		if err := p.store.SaveOfficeConfig(ctx, escritorioID, own); err != nil {
			return warnings, eris.Wrapf(err, "officecfg: save %s", escritorioID)
		}
	}
	p.mu.Lock()
	p.cache[escritorioID] = own
	p.mu.Unlock()

	zap.L().Info("officecfg: configuration updated",
		zap.String("escritorio", escritorioID),
		zap.Int("warnings", len(warnings)),
	)
	return warnings, nil
}

// Invalidate drops a tenant from the cache.
func (p *Provider) Invalidate(escritorioID string) {
	p.mu.Lock()
	delete(p.cache, escritorioID)
	p.mu.Unlock()
}

func (p *Provider) cached(escritorioID string) (*model.OfficeConfiguration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cfg, ok := p.cache[escritorioID]
	return cfg, ok
}

func (p *Provider) load(ctx context.Context, escritorioID string) (*model.OfficeConfiguration, error) {
	if p.store == nil {
		return p.defaults(), nil
	}

	cfg, err := p.store.GetOfficeConfig(ctx, escritorioID)
	switch {
	case err == nil:
		warnings, verr := cfg.Validate()
		if verr != nil {
			return nil, eris.Wrapf(verr, "officecfg: stored configuration for %s", escritorioID)
		}
		for _, w := range warnings {
			zap.L().Warn("officecfg: configuration warning", zap.String("escritorio", escritorioID), zap.String("warning", w))
		}
		return cfg, nil
	case apperr.CodeOf(err) != apperr.CodeNotFound:
		return nil, eris.Wrapf(err, "officecfg: load %s", escritorioID)
	}

	cfg = p.defaults()
	if err := p.store.SaveOfficeConfig(ctx, escritorioID, cfg); err != nil {
		return nil, eris.Wrapf(err, "officecfg: persist default for %s", escritorioID)
	}
	zap.L().Info("officecfg: default configuration created", zap.String("escritorio", escritorioID))
	return cfg, nil
}
