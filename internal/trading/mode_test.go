package trading

import (
	"context"
	"testing"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeFallsBackToPaper(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, model.TradeModePaper, e.modes.Mode())

	_, err := e.modes.Active()
	assert.ErrorIs(t, err, ErrNoActiveConfiguration)
}

func TestSwitchModeValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	t.Run("unknown mode", func(t *testing.T) {
		err := e.modes.SwitchMode(ctx, "dry-run")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no active configuration", func(t *testing.T) {
		err := e.modes.SwitchMode(ctx, model.TradeModeLive)
		assert.ErrorIs(t, err, ErrNoActiveConfiguration)
	})
}

func TestSwitchToLiveRequiresCredentials(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, false)

	err := e.modes.SwitchMode(context.Background(), model.TradeModeLive)
	assert.ErrorIs(t, err, ErrMissingCredentials)
	assert.Equal(t, model.TradeModePaper, e.modes.Mode())
}

func TestSwitchModePersists(t *testing.T) {
	e := newTestEngine(t)
	e.seedConfig(t, model.TradeModePaper, true)
	ctx := context.Background()

	require.NoError(t, e.modes.SwitchMode(ctx, model.TradeModeLive))
	assert.Equal(t, model.TradeModeLive, e.modes.Mode())

	// Survives a registry rehydration.
	require.NoError(t, e.modes.LoadActive(ctx))
	assert.Equal(t, model.TradeModeLive, e.modes.Mode())

	require.NoError(t, e.modes.SwitchMode(ctx, model.TradeModePaper))
	assert.Equal(t, model.TradeModePaper, e.modes.Mode())
}

func TestActivateSwapsActiveFlag(t *testing.T) {
	e := newTestEngine(t)
	first := e.seedConfig(t, model.TradeModePaper, false)
	ctx := context.Background()

	second := &model.TradingConfigModel{
		Name:                "secondary",
		TradeMode:           model.TradeModePaper,
		MaxBuyAmount:        2_000_000,
		MaxBuyPerInstrument: 800_000,
	}
	uow, err := e.store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, uow.Configs().Save(ctx, second))
	require.NoError(t, uow.Commit())

	require.NoError(t, e.modes.Activate(ctx, second.ID))

	active, err := e.modes.Active()
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	uow, err = e.store.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	prev, err := uow.Configs().FindByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.False(t, prev.IsActive)

	t.Run("activate unknown config", func(t *testing.T) {
		err := e.modes.Activate(ctx, 9_999)
		assert.ErrorIs(t, err, ErrValidation)
	})
}
