package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"gorm.io/gorm"
)

// instrumentRepository implements the InstrumentRepository interface.
type instrumentRepository struct {
	db *gorm.DB
}

func NewInstrumentRepo(db *gorm.DB) *instrumentRepository {
	return &instrumentRepository{db: db}
}

func (r *instrumentRepository) Save(ctx context.Context, inst *model.InstrumentModel) error {
	if inst == nil {
		return errors.New("instrument cannot be nil")
	}
	now := time.Now().Unix()
	if inst.CreatedAtUnix == 0 {
		inst.CreatedAtUnix = now
	}
	inst.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Save(inst).Error
}

func (r *instrumentRepository) FindByID(ctx context.Context, id int64) (*model.InstrumentModel, error) {
	var inst model.InstrumentModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *instrumentRepository) FindByCode(ctx context.Context, code string) (*model.InstrumentModel, error) {
	var inst model.InstrumentModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

func (r *instrumentRepository) List(ctx context.Context) ([]model.InstrumentModel, error) {
	var insts []model.InstrumentModel
	if err := r.db.WithContext(ctx).Order("code ASC").Find(&insts).Error; err != nil {
		return nil, err
	}
	return insts, nil
}
