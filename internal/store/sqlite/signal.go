package sqlite

import (
	"context"
	"errors"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"

	"gorm.io/gorm"
)

// signalRepository implements the SignalRepository interface.
type signalRepository struct {
	db *gorm.DB
}

func NewSignalRepo(db *gorm.DB) *signalRepository {
	return &signalRepository{db: db}
}

func (r *signalRepository) Save(ctx context.Context, sig *model.SignalModel) error {
	if sig == nil {
		return errors.New("signal cannot be nil")
	}
	now := time.Now().Unix()
	if sig.CreatedAtUnix == 0 {
		sig.CreatedAtUnix = now
	}
	sig.UpdatedAtUnix = now
	return r.db.WithContext(ctx).Save(sig).Error
}

func (r *signalRepository) FindByID(ctx context.Context, id int64) (*model.SignalModel, error) {
	var sig model.SignalModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

// FindByIdentity looks a signal up by its composite (condition_index,
// condition_name) key.
func (r *signalRepository) FindByIdentity(ctx context.Context, index int, name string) (*model.SignalModel, error) {
	var sig model.SignalModel
	err := r.db.WithContext(ctx).
		Where("condition_index = ? AND condition_name = ?", index, name).
		First(&sig).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sig, nil
}

func (r *signalRepository) List(ctx context.Context) ([]model.SignalModel, error) {
	var sigs []model.SignalModel
	if err := r.db.WithContext(ctx).Order("condition_index ASC").Find(&sigs).Error; err != nil {
		return nil, err
	}
	return sigs, nil
}

// matchRepository implements the MatchRepository interface.
type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepo(db *gorm.DB) *matchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Insert(ctx context.Context, match *model.SignalMatchModel) error {
	if match == nil {
		return errors.New("match cannot be nil")
	}
	if match.MatchedAtUnix == 0 {
		match.MatchedAtUnix = time.Now().Unix()
	}
	return r.db.WithContext(ctx).Create(match).Error
}

func (r *matchRepository) ListBySignal(ctx context.Context, signalID int64, kind model.MatchKind, limit int) ([]model.SignalMatchModel, error) {
	if limit <= 0 {
		limit = 100
	}
	q := r.db.WithContext(ctx).Where("signal_id = ?", signalID)
	if kind != "" {
		q = q.Where("match_kind = ?", kind)
	}
	var matches []model.SignalMatchModel
	if err := q.Order("matched_at DESC, id DESC").Limit(limit).Find(&matches).Error; err != nil {
		return nil, err
	}
	return matches, nil
}
