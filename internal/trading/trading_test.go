package trading

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/sqlite"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGateway struct {
	mock.Mock
}

func (g *MockGateway) Connect(ctx context.Context, creds Credentials) error {
	args := g.Called(ctx, creds)
	return args.Error(0)
}

func (g *MockGateway) QuotePrice(ctx context.Context, instrumentCode string) (int64, error) {
	args := g.Called(ctx, instrumentCode)
	return args.Get(0).(int64), args.Error(1)
}

func (g *MockGateway) InstrumentInfo(ctx context.Context, instrumentCode string) (InstrumentInfo, error) {
	args := g.Called(ctx, instrumentCode)
	return args.Get(0).(InstrumentInfo), args.Error(1)
}

func (g *MockGateway) SubmitOrder(ctx context.Context, req SubmitRequest) (string, error) {
	args := g.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (g *MockGateway) CancelOrder(ctx context.Context, orderRef, instrumentCode string, quantity int64) error {
	args := g.Called(ctx, orderRef, instrumentCode, quantity)
	return args.Error(0)
}

func (g *MockGateway) HoldingsSnapshot(ctx context.Context, accountNo string) ([]HoldingSnapshot, error) {
	args := g.Called(ctx, accountNo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]HoldingSnapshot), args.Error(1)
}

type testEngine struct {
	store   store.Store
	gw      *MockGateway
	modes   *ModeController
	ledger  *Ledger
	orders  *Manager
	trigger *Trigger
}

func newTestEngine(t *testing.T) *testEngine {
	t.Helper()
	st, err := sqlite.NewSqliteStore(filepath.Join(t.TempDir(), "engine.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	gw := new(MockGateway)
	gw.On("Connect", mock.Anything, mock.Anything).Return(nil).Maybe()

	modes := NewModeController(st, gw)
	ledger := NewLedger(st, gw, modes)
	orders := NewManager(st, gw, modes, ledger)
	trigger := NewTrigger(st, gw, modes, orders)
	return &testEngine{
		store:   st,
		gw:      gw,
		modes:   modes,
		ledger:  ledger,
		orders:  orders,
		trigger: trigger,
	}
}

func (e *testEngine) seedConfig(t *testing.T, mode model.TradeMode, withCredentials bool) *model.TradingConfigModel {
	t.Helper()
	cfg := &model.TradingConfigModel{
		Name:                "test",
		TradeMode:           mode,
		AccountNo:           "8012345-01",
		IsActive:            true,
		MaxBuyAmount:        1_000_000,
		MaxBuyPerInstrument: 500_000,
	}
	if withCredentials {
		cfg.AppKey = "key"
		cfg.AppSecret = "secret"
	}
	ctx := context.Background()
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Configs().Save(ctx, cfg))
	require.NoError(t, uow.Commit())
	require.NoError(t, e.modes.LoadActive(ctx))
	return cfg
}

func (e *testEngine) seedInstrument(t *testing.T, code, name string) *model.InstrumentModel {
	t.Helper()
	inst := &model.InstrumentModel{Code: code, Name: name, Market: model.MarketKospi, IsActive: true}
	ctx := context.Background()
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Instruments().Save(ctx, inst))
	require.NoError(t, uow.Commit())
	return inst
}

func (e *testEngine) seedHolding(t *testing.T, instrumentID int64, mode model.TradeMode, quantity, avgPrice int64) {
	t.Helper()
	ctx := context.Background()
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Holdings().Save(ctx, &model.HoldingModel{
		InstrumentID: instrumentID,
		TradeMode:    mode,
		Quantity:     quantity,
		AvgPrice:     avgPrice,
	}))
	require.NoError(t, uow.Commit())
}

func (e *testEngine) seedSignal(t *testing.T, index int, name string, autoTrade bool) *model.SignalModel {
	t.Helper()
	sig := &model.SignalModel{
		ConditionIndex: index,
		ConditionName:  name,
		IsRealtime:     true,
		AutoTrade:      autoTrade,
		Status:         model.SignalStatusActive,
	}
	ctx := context.Background()
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Signals().Save(ctx, sig))
	require.NoError(t, uow.Commit())
	return sig
}

func (e *testEngine) holding(t *testing.T, instrumentID int64, mode model.TradeMode) *model.HoldingModel {
	t.Helper()
	ctx := context.Background()
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	holding, err := uow.Holdings().Find(ctx, instrumentID, mode)
	require.NoError(t, err)
	return holding
}

func (e *testEngine) orderByID(t *testing.T, id int64) *model.OrderModel {
	t.Helper()
	ctx := context.Background()
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	order, err := uow.Orders().FindByID(ctx, id)
	require.NoError(t, err)
	return order
}
