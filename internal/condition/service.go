// Package condition manages condition-search rules: loading the list from
// the bridge, starting/stopping realtime searches, and routing their matches
// into the auto-trade trigger.
package condition

import (
	"context"
	"fmt"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/gateway/kiwoom"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/store/model"
	"github.com/londonerlim84/unomatix-kiwoomapi/internal/trading"
)

// Bridge is the subset of the bridge API this service needs.
type Bridge interface {
	ConditionList(ctx context.Context) ([]kiwoom.ConditionInfo, error)
	StartCondition(ctx context.Context, screenNo, name string, index int, realtime bool) ([]string, error)
	StopCondition(ctx context.Context, screenNo, name string, index int) error
}

type Service struct {
	store   store.Store
	bridge  Bridge
	trigger *trading.Trigger
}

func NewService(st store.Store, bridge Bridge, trigger *trading.Trigger) *Service {
	return &Service{store: st, bridge: bridge, trigger: trigger}
}

// LoadList pulls the condition-search rules from the terminal and upserts
// them by their (index, name) identity. Auto-trade and status flags on
// already-known rules are preserved.
func (s *Service) LoadList(ctx context.Context) ([]model.SignalModel, error) {
	conds, err := s.bridge.ConditionList(ctx)
	if err != nil {
		return nil, err
	}

	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	saved := make([]model.SignalModel, 0, len(conds))
	for _, cond := range conds {
		sig, err := uow.Signals().FindByIdentity(ctx, cond.Index, cond.Name)
		if err != nil {
			uow.Rollback()
			return nil, err
		}
		if sig == nil {
			sig = &model.SignalModel{
				ConditionIndex: cond.Index,
				ConditionName:  cond.Name,
				IsRealtime:     true,
				Status:         model.SignalStatusStopped,
			}
			if err := uow.Signals().Save(ctx, sig); err != nil {
				uow.Rollback()
				return nil, err
			}
		}
		saved = append(saved, *sig)
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}
	logger.Infof("condition: loaded %d rules from bridge", len(saved))
	return saved, nil
}

// Start begins a condition search. The initially matched instruments are
// replayed through the trigger as "entered" events; failures there are
// logged per instrument and do not abort the start.
func (s *Service) Start(ctx context.Context, signalID int64, realtime bool) error {
	sig, err := s.findSignal(ctx, signalID)
	if err != nil {
		return err
	}

	codes, err := s.bridge.StartCondition(ctx, screenNo(sig.ConditionIndex), sig.ConditionName, sig.ConditionIndex, realtime)
	if err != nil {
		sig.Status = model.SignalStatusError
		if saveErr := s.saveSignal(ctx, sig); saveErr != nil {
			logger.Warnf("condition: status update failed for %d: %v", sig.ID, saveErr)
		}
		return err
	}

	sig.Status = model.SignalStatusActive
	sig.IsRealtime = realtime
	if err := s.saveSignal(ctx, sig); err != nil {
		return err
	}
	logger.Infof("condition: [%s] started, %d initial matches", sig.ConditionName, len(codes))

	for _, code := range codes {
		if _, err := s.trigger.OnSignalMatch(ctx, sig.ID, code, model.MatchKindEntered); err != nil {
			logger.Warnf("condition: initial match %s failed: %v", code, err)
		}
	}
	return nil
}

// Stop halts a realtime condition search. The rule is marked stopped even
// when the bridge call fails; a dead bridge is not emitting matches anyway.
func (s *Service) Stop(ctx context.Context, signalID int64) error {
	sig, err := s.findSignal(ctx, signalID)
	if err != nil {
		return err
	}
	if err := s.bridge.StopCondition(ctx, screenNo(sig.ConditionIndex), sig.ConditionName, sig.ConditionIndex); err != nil {
		logger.Warnf("condition: stop request for [%s] failed: %v", sig.ConditionName, err)
	}
	sig.Status = model.SignalStatusStopped
	return s.saveSignal(ctx, sig)
}

// SetAutoTrade toggles automatic trading for one rule.
func (s *Service) SetAutoTrade(ctx context.Context, signalID int64, enabled bool) error {
	sig, err := s.findSignal(ctx, signalID)
	if err != nil {
		return err
	}
	sig.AutoTrade = enabled
	if err := s.saveSignal(ctx, sig); err != nil {
		return err
	}
	logger.Infof("condition: [%s] auto-trade=%v", sig.ConditionName, enabled)
	return nil
}

// List returns all known rules.
func (s *Service) List(ctx context.Context) ([]model.SignalModel, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Signals().List(ctx)
}

// Matches returns recent match audit rows for one rule.
func (s *Service) Matches(ctx context.Context, signalID int64, kind model.MatchKind, limit int) ([]model.SignalMatchModel, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	return uow.Matches().ListBySignal(ctx, signalID, kind, limit)
}

func (s *Service) findSignal(ctx context.Context, signalID int64) (*model.SignalModel, error) {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback()
	sig, err := uow.Signals().FindByID(ctx, signalID)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, fmt.Errorf("%w: signal %d not found", trading.ErrValidation, signalID)
	}
	return sig, nil
}

func (s *Service) saveSignal(ctx context.Context, sig *model.SignalModel) error {
	uow, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	if err := uow.Signals().Save(ctx, sig); err != nil {
		uow.Rollback()
		return err
	}
	return uow.Commit()
}

// screenNo derives the terminal screen number for a condition index.
func screenNo(index int) string {
	return fmt.Sprintf("09%02d", index)
}
