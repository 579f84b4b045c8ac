package trading

import (
	"context"
	"fmt"
	"sync"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
)

// ModeController owns the "single active configuration" invariant as a
// process-wide registry guarded by its own lock. All reads of the active
// configuration go through the registry, never through ad hoc queries, so at
// most one configuration is active at a time regardless of what rows say.
type ModeController struct {
	store   store.Store
	gateway Gateway

	mu     sync.RWMutex
	active *model.TradingConfigModel
}

func NewModeController(st store.Store, gw Gateway) *ModeController {
	return &ModeController{store: st, gateway: gw}
}

// LoadActive hydrates the registry from the database and binds the gateway.
// When multiple rows carry the active flag, the lowest id wins and the rest
// are deactivated.
func (m *ModeController) LoadActive(ctx context.Context) error {
	uow, err := m.store.Begin(ctx)
	if err != nil {
		return err
	}
	cfg, err := uow.Configs().FindActive(ctx)
	if err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}
	if cfg == nil {
		logger.Warnf("mode: no active trading configuration")
		return nil
	}

	m.mu.Lock()
	m.active = cfg
	m.mu.Unlock()

	if err := m.connectGateway(ctx, cfg); err != nil {
		logger.Warnf("mode: gateway connect failed for %s: %v", cfg.TradeMode, err)
	}
	return nil
}

// Active returns a copy of the active configuration.
func (m *ModeController) Active() (model.TradingConfigModel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return model.TradingConfigModel{}, ErrNoActiveConfiguration
	}
	return *m.active, nil
}

// Mode returns the current trade mode. Paper is the fallback when no
// configuration is active; nothing can be placed in that state anyway.
func (m *ModeController) Mode() model.TradeMode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return model.TradeModePaper
	}
	return m.active.TradeMode
}

// SwitchMode flips the active configuration between paper and live in place.
// Prior orders and holdings keep the mode they were created under. Switching
// to live requires both credential fields on the active configuration.
func (m *ModeController) SwitchMode(ctx context.Context, target model.TradeMode) error {
	if !target.Valid() {
		return fmt.Errorf("%w: unknown trade mode %q", ErrValidation, target)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return ErrNoActiveConfiguration
	}
	if target == model.TradeModeLive && !m.active.HasCredentials() {
		return ErrMissingCredentials
	}

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return err
	}
	cfg, err := uow.Configs().FindByID(ctx, m.active.ID)
	if err != nil {
		uow.Rollback()
		return err
	}
	if cfg == nil {
		uow.Rollback()
		return ErrNoActiveConfiguration
	}
	cfg.TradeMode = target
	if err := uow.Configs().Save(ctx, cfg); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	m.active = cfg
	logger.Infof("mode: switched to %s (config %q)", target, cfg.Name)

	// Rebind the gateway for the new mode. Connectivity failures here are
	// recoverable; the switch itself already took effect.
	if err := m.connectGateway(ctx, cfg); err != nil {
		logger.Warnf("mode: gateway reconnect failed after switch to %s: %v", target, err)
	}
	return nil
}

// Activate marks one configuration active and clears the flag everywhere
// else, then rebinds the gateway to it.
func (m *ModeController) Activate(ctx context.Context, configID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	uow, err := m.store.Begin(ctx)
	if err != nil {
		return err
	}
	cfg, err := uow.Configs().FindByID(ctx, configID)
	if err != nil {
		uow.Rollback()
		return err
	}
	if cfg == nil {
		uow.Rollback()
		return fmt.Errorf("%w: config %d not found", ErrValidation, configID)
	}
	if m.active != nil && m.active.ID != cfg.ID {
		prev, err := uow.Configs().FindByID(ctx, m.active.ID)
		if err != nil {
			uow.Rollback()
			return err
		}
		if prev != nil {
			prev.IsActive = false
			if err := uow.Configs().Save(ctx, prev); err != nil {
				uow.Rollback()
				return err
			}
		}
	}
	cfg.IsActive = true
	if err := uow.Configs().Save(ctx, cfg); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}

	m.active = cfg
	if err := m.connectGateway(ctx, cfg); err != nil {
		logger.Warnf("mode: gateway connect failed for config %q: %v", cfg.Name, err)
	}
	return nil
}

func (m *ModeController) connectGateway(ctx context.Context, cfg *model.TradingConfigModel) error {
	if m.gateway == nil {
		return nil
	}
	return m.gateway.Connect(ctx, Credentials{
		Mode:      cfg.TradeMode,
		AppKey:    cfg.AppKey,
		AppSecret: cfg.AppSecret,
		AccountNo: cfg.AccountNo,
	})
}
