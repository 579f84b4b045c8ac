// Package app wires the engine together: store, bridge client, trading
// services, and the HTTP surface.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/condition"
	cfgpkg "github.com/londonerlim84/unomatix-kiwoomapi/internal/config"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/gateway/kiwoom"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/sqlite"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/trading"
	httpapi "github.com/londonerlim84/unomatix-kiwoomapi/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg     *cfgpkg.Config
	cfgPath string

	store  store.Store
	server *httpapi.Server
	modes  *trading.ModeController
}

// NewApp builds the application from a loaded configuration. cfgPath is the
// file the config came from; it is watched for log-level changes at runtime.
func NewApp(cfg *cfgpkg.Config, cfgPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	if dir := filepath.Dir(cfg.Database.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory failed: %w", err)
		}
	}
	st, err := sqlite.NewSqliteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store failed: %w", err)
	}

	client, err := kiwoom.NewClient(kiwoom.Config{
		URL:            cfg.Bridge.URL,
		TimeoutSeconds: cfg.Bridge.TimeoutSeconds,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("building bridge client failed: %w", err)
	}

	ctx := context.Background()
	if err := seedBootstrap(ctx, st, cfg.Bootstrap); err != nil {
		st.Close()
		return nil, fmt.Errorf("seeding trading config failed: %w", err)
	}

	modes := trading.NewModeController(st, client)
	if err := modes.LoadActive(ctx); err != nil {
		st.Close()
		return nil, fmt.Errorf("loading active config failed: %w", err)
	}

	ledger := trading.NewLedger(st, client, modes)
	orders := trading.NewManager(st, client, modes, ledger)
	trigger := trading.NewTrigger(st, client, modes, orders)
	conditions := condition.NewService(st, client, trigger)

	server, err := httpapi.NewServer(httpapi.ServerConfig{
		Addr:     cfg.Server.Addr,
		Handlers: httpapi.NewHandlers(st, orders, trigger, ledger, modes, conditions),
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		cfgPath: cfgPath,
		store:   st,
		server:  server,
		modes:   modes,
	}, nil
}

// Run serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}

	if a.cfgPath != "" {
		if err := cfgpkg.Watch(a.cfgPath, func(next *cfgpkg.Config) {
			logger.SetLevel(next.App.LogLevel)
			logger.Infof("app: log level now %s", next.App.LogLevel)
		}); err != nil {
			logger.Warnf("app: config watch disabled: %v", err)
		}
	}

	logger.Infof("app: engine starting (mode=%s)", a.modes.Mode())

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := a.server.Run(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	err := group.Wait()
	if closeErr := a.store.Close(); closeErr != nil {
		logger.Warnf("app: store close failed: %v", closeErr)
	}
	return err
}

// seedBootstrap inserts the initial trading configuration when the database
// has no active one. Existing configurations are left untouched.
func seedBootstrap(ctx context.Context, st store.Store, bc cfgpkg.BootstrapConfig) error {
	uow, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	existing, err := uow.Configs().FindActive(ctx)
	if err != nil {
		uow.Rollback()
		return err
	}
	if existing != nil {
		uow.Rollback()
		return nil
	}
	seed := &model.TradingConfigModel{
		Name:                bc.Name,
		TradeMode:           model.TradeMode(bc.TradeMode),
		AccountNo:           bc.AccountNo,
		AppKey:              bc.AppKey,
		AppSecret:           bc.AppSecret,
		IsActive:            true,
		MaxBuyAmount:        bc.MaxBuyAmount,
		MaxBuyPerInstrument: bc.MaxBuyPerInstrument,
	}
	if seed.TradeMode == model.TradeModeLive && !seed.HasCredentials() {
		uow.Rollback()
		return fmt.Errorf("%w: live bootstrap requires app_key and app_secret", trading.ErrMissingCredentials)
	}
	if err := uow.Configs().Save(ctx, seed); err != nil {
		uow.Rollback()
		return err
	}
	if err := uow.Commit(); err != nil {
		return err
	}
	logger.Infof("app: seeded trading config %q (mode=%s)", seed.Name, seed.TradeMode)
	return nil
}
