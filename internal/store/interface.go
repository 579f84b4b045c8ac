package store

import (
	"context"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
)

// UnitOfWork defines a transaction scope. All mutations inside a unit either
// commit together or roll back together.
type UnitOfWork interface {
	// Commit commits the transaction.
	Commit() error
	// Rollback rolls back the transaction.
	Rollback() error

	// Instruments returns the instrument repository within this transaction.
	Instruments() InstrumentRepository
	// Configs returns the trading-config repository within this transaction.
	Configs() ConfigRepository
	// Signals returns the signal repository within this transaction.
	Signals() SignalRepository
	// Matches returns the signal-match repository within this transaction.
	Matches() MatchRepository
	// Orders returns the order repository within this transaction.
	Orders() OrderRepository
	// Holdings returns the holding repository within this transaction.
	Holdings() HoldingRepository
	// Fills returns the fill repository within this transaction.
	Fills() FillRepository
}

// Store is the entry point for database access.
type Store interface {
	// Begin starts a new UnitOfWork (transaction).
	Begin(ctx context.Context) (UnitOfWork, error)
	// Close closes the store connection.
	Close() error
}

type InstrumentRepository interface {
	Save(ctx context.Context, inst *model.InstrumentModel) error
	FindByID(ctx context.Context, id int64) (*model.InstrumentModel, error)
	FindByCode(ctx context.Context, code string) (*model.InstrumentModel, error)
	List(ctx context.Context) ([]model.InstrumentModel, error)
}

type ConfigRepository interface {
	Save(ctx context.Context, cfg *model.TradingConfigModel) error
	FindActive(ctx context.Context) (*model.TradingConfigModel, error)
	FindByID(ctx context.Context, id int64) (*model.TradingConfigModel, error)
}

type SignalRepository interface {
	Save(ctx context.Context, sig *model.SignalModel) error
	FindByID(ctx context.Context, id int64) (*model.SignalModel, error)
	FindByIdentity(ctx context.Context, index int, name string) (*model.SignalModel, error)
	List(ctx context.Context) ([]model.SignalModel, error)
}

// MatchRepository is append-only: matches are audit facts and never updated.
type MatchRepository interface {
	Insert(ctx context.Context, match *model.SignalMatchModel) error
	ListBySignal(ctx context.Context, signalID int64, kind model.MatchKind, limit int) ([]model.SignalMatchModel, error)
}

type OrderRepository interface {
	Save(ctx context.Context, order *model.OrderModel) error
	FindByID(ctx context.Context, id int64) (*model.OrderModel, error)
	FindByRef(ctx context.Context, ref string) (*model.OrderModel, error)
	FindOpenBySide(ctx context.Context, instrumentID int64, mode model.TradeMode, side model.OrderSide) (*model.OrderModel, error)
	ListRecent(ctx context.Context, limit int) ([]model.OrderModel, error)
}

type HoldingRepository interface {
	Save(ctx context.Context, holding *model.HoldingModel) error
	Find(ctx context.Context, instrumentID int64, mode model.TradeMode) (*model.HoldingModel, error)
	ListByMode(ctx context.Context, mode model.TradeMode) ([]model.HoldingModel, error)
}

// FillRepository is append-only: one row per fill notification received.
type FillRepository interface {
	Insert(ctx context.Context, fill *model.FillModel) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.FillModel, error)
	ListRecent(ctx context.Context, limit int) ([]model.FillModel, error)
}
