package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"gorm.io/gorm"
)

// holdingRepository implements the HoldingRepository interface.
type holdingRepository struct {
	db *gorm.DB
}

func NewHoldingRepo(db *gorm.DB) *holdingRepository {
	return &holdingRepository{db: db}
}

func (r *holdingRepository) Save(ctx context.Context, holding *model.HoldingModel) error {
	if holding == nil {
		return errors.New("holding cannot be nil")
	}
	holding.UpdatedAtUnix = time.Now().Unix()
	return r.db.WithContext(ctx).Save(holding).Error
}

// Find returns the holding row for one (instrument, mode) pair, or nil when
// the pair has never traded.
func (r *holdingRepository) Find(ctx context.Context, instrumentID int64, mode model.TradeMode) (*model.HoldingModel, error) {
	var holding model.HoldingModel
	err := r.db.WithContext(ctx).
		Where("instrument_id = ? AND trade_mode = ?", instrumentID, mode).
		First(&holding).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &holding, nil
}

func (r *holdingRepository) ListByMode(ctx context.Context, mode model.TradeMode) ([]model.HoldingModel, error) {
	var holdings []model.HoldingModel
	if err := r.db.WithContext(ctx).
		Where("trade_mode = ?", mode).
		Order("instrument_id ASC").
		Find(&holdings).Error; err != nil {
		return nil, err
	}
	return holdings, nil
}

// fillRepository implements the FillRepository interface.
type fillRepository struct {
	db *gorm.DB
}

func NewFillRepo(db *gorm.DB) *fillRepository {
	return &fillRepository{db: db}
}

func (r *fillRepository) Insert(ctx context.Context, fill *model.FillModel) error {
	if fill == nil {
		return errors.New("fill cannot be nil")
	}
	if fill.TradedAtUnix == 0 {
		fill.TradedAtUnix = time.Now().Unix()
	}
	return r.db.WithContext(ctx).Create(fill).Error
}

func (r *fillRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.FillModel, error) {
	var fills []model.FillModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("traded_at ASC, id ASC").
		Find(&fills).Error; err != nil {
		return nil, err
	}
	return fills, nil
}

func (r *fillRepository) ListRecent(ctx context.Context, limit int) ([]model.FillModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var fills []model.FillModel
	if err := r.db.WithContext(ctx).
		Order("traded_at DESC, id DESC").
		Limit(limit).
		Find(&fills).Error; err != nil {
		return nil, err
	}
	return fills, nil
}
