package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"gorm.io/gorm"
)

// configRepository implements the ConfigRepository interface.
type configRepository struct {
	db *gorm.DB
}

func NewConfigRepo(db *gorm.DB) *configRepository {
	return &configRepository{db: db}
}

func (r *configRepository) Save(ctx context.Context, cfg *model.TradingConfigModel) error {
	if cfg == nil {
		return errors.New("config cannot be nil")
	}
	now := time.Now().Unix()
	if cfg.CreatedAtUnix == 0 {
		cfg.CreatedAtUnix = now
	}
	cfg.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Save(cfg).Error
}

// FindActive returns the single active config, or nil when none is marked
// active. Uniqueness of the active flag is owned by the mode controller, not
// by this query.
func (r *configRepository) FindActive(ctx context.Context) (*model.TradingConfigModel, error) {
	var cfg model.TradingConfigModel
	err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("id ASC").First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *configRepository) FindByID(ctx context.Context, id int64) (*model.TradingConfigModel, error) {
	var cfg model.TradingConfigModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
