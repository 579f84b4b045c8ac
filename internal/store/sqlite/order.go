package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"gorm.io/gorm"
)

// orderRepository implements the OrderRepository interface.
type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) *orderRepository {
	return &orderRepository{db: db}
}

// Save creates or updates an order row.
func (r *orderRepository) Save(ctx context.Context, order *model.OrderModel) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	now := time.Now().Unix()
	if order.CreatedAtUnix == 0 {
		order.CreatedAtUnix = now
	}
	order.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*model.OrderModel, error) {
	var order model.OrderModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByRef finds an order by its broker-assigned reference.
func (r *orderRepository) FindByRef(ctx context.Context, ref string) (*model.OrderModel, error) {
	var order model.OrderModel
	err := r.db.WithContext(ctx).Where("order_ref = ?", ref).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOpenBySide returns a non-terminal order for the (instrument, mode,
// side) triple, or nil when none is in flight.
func (r *orderRepository) FindOpenBySide(ctx context.Context, instrumentID int64, mode model.TradeMode, side model.OrderSide) (*model.OrderModel, error) {
	var order model.OrderModel
	err := r.db.WithContext(ctx).
		Where("instrument_id = ? AND trade_mode = ? AND side = ? AND status IN ?",
			instrumentID, mode, side,
			[]model.OrderStatus{model.OrderStatusPending, model.OrderStatusSubmitted, model.OrderStatusPartial}).
		Order("id ASC").
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListRecent(ctx context.Context, limit int) ([]model.OrderModel, error) {
	if limit <= 0 {
		limit = 100
	}
	var orders []model.OrderModel
	if err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}
