package sync

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"
)

// Офлайн-смены приходят только с плейсхолдером вместо id и могут
// повторяться при ретраях, поэтому создание дедуплицируется по
// временному окну, а закрытие ищет цель каскадом стратегий.

// createShift применяет CREATE_SHIFT с эвристикой дедупликации:
// уже привязанный плейсхолдер — короткое замыкание; затем поиск
// существующей смены того же кассира со стартом в пределах окна;
// только потом создание новой строки.
func (s *Service) createShift(ctx context.Context, bc *batchContext, p *CreateShiftPayload) error {
	if p.CashierID == "" {
		return requiredField("cashierId")
	}

	start, err := parseClientTime(p.StartTime)
	if err != nil {
		return NewDomainError(errBadPayload, "startTime does not parse: %v", err)
	}

	if p.ID != "" && IsTempID(p.ID) {
		if _, ok := bc.temps.Bound(p.ID); ok {
			// смена уже создана ранее в этом пакете
			return nil
		}
	}

	existing, err := s.store.FindShiftNear(ctx, bc.branchID, p.CashierID, start, s.config.ShiftDedupWindow)
	if err == nil {
		if p.ID != "" && IsTempID(p.ID) {
			bc.temps.Bind(p.ID, existing.ID)
		}
		s.log.Debug("shift create deduplicated",
			"shift_id", existing.ID, "cashier_id", p.CashierID)
		return nil
	}
	if !errors.Is(err, ErrEntityNotFound) {
		return fmt.Errorf("find shift near start: %w", err)
	}

	shift := &Shift{
		ID:          bc.durableID(p.ID),
		BranchID:    bc.branchID,
		CashierID:   p.CashierID,
		StartTime:   start,
		OpeningCash: p.OpeningCash,
		UpdatedAt:   time.Now(),
	}
	if err := s.store.CreateShift(ctx, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}

	return nil
}

func (s *Service) updateShift(ctx context.Context, bc *batchContext, p *UpdateShiftPayload, op SyncOperation) error {
	id, err := bc.resolveTarget(p.ID)
	if err != nil {
		return err
	}

	shift, err := s.store.GetShift(ctx, id)
	if err != nil {
		return fmt.Errorf("get shift %s: %w", id, err)
	}

	s.noteConflict(ctx, bc, "shifts", id, op, shift, shift.UpdatedAt)

	if p.OpeningCash != nil {
		shift.OpeningCash = *p.OpeningCash
	}
	if p.Notes != nil {
		shift.Notes = *p.Notes
	}
	shift.UpdatedAt = time.Now()

	if err := s.store.UpdateShift(ctx, shift); err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return nil
}

// closeShift применяет CLOSE_SHIFT. Цель ищется упорядоченным каскадом
// стратегий — от точной привязки пакета к все более терпимым
// совпадениям: закрытие смены питает инкассацию, потерять его хуже,
// чем ошибиться в точности.
func (s *Service) closeShift(ctx context.Context, bc *batchContext, p *CloseShiftPayload) error {
	end, err := parseClientTime(p.EndTime)
	if err != nil {
		return NewDomainError(errBadPayload, "endTime does not parse: %v", err)
	}

	shift, err := s.resolveCloseTarget(ctx, bc, p, end)
	if err != nil {
		return err
	}

	if shift.IsClosed {
		// повторное закрытие — no-op: агрегаты не пересчитываются
		s.log.Debug("close of already closed shift ignored", "shift_id", shift.ID)
		return nil
	}

	// агрегаты закрытия — снимок на момент закрытия; задним числом
	// не пересчитываются, даже если заказы смены потом изменятся
	settlement, err := s.store.ShiftSettlement(ctx, shift.ID)
	if err != nil {
		return fmt.Errorf("shift settlement: %w", err)
	}

	shift.EndTime = &end
	shift.IsClosed = true
	shift.ClosingOrders = settlement.Orders
	shift.ClosingRevenue = settlement.Subtotal - settlement.LoyaltyDiscounts
	if p.ClosingCash != nil {
		shift.ClosingCash = *p.ClosingCash
	}
	if p.Notes != nil {
		shift.Notes = *p.Notes
	}
	shift.UpdatedAt = time.Now()

	if err := s.store.UpdateShift(ctx, shift); err != nil {
		return fmt.Errorf("close shift: %w", err)
	}

	return nil
}

// resolveCloseTarget — каскад поиска закрываемой смены:
//  1. привязка плейсхолдера в этом пакете;
//  2. открытая смена кассира в пределах окна от момента закрытия;
//  3. последняя открытая смена кассира без ограничения по времени;
//  4. последняя смена кассира в любом состоянии в пределах допуска.
//
// Каждая стратегия независима и возвращает первую найденную смену.
func (s *Service) resolveCloseTarget(ctx context.Context, bc *batchContext, p *CloseShiftPayload, end time.Time) (*Shift, error) {
	type strategy func(context.Context) (*Shift, error)

	strategies := []strategy{
		func(ctx context.Context) (*Shift, error) {
			if p.ID == "" {
				return nil, ErrEntityNotFound
			}
			id, ok := bc.temps.Resolve(p.ID)
			if !ok {
				return nil, ErrEntityNotFound
			}
			return s.store.GetShift(ctx, id)
		},
		func(ctx context.Context) (*Shift, error) {
			if p.CashierID == "" {
				return nil, ErrEntityNotFound
			}
			return s.store.FindOpenShiftNear(ctx, bc.branchID, p.CashierID, end, s.config.ShiftCloseWindow)
		},
		func(ctx context.Context) (*Shift, error) {
			if p.CashierID == "" {
				return nil, ErrEntityNotFound
			}
			return s.store.LatestOpenShift(ctx, bc.branchID, p.CashierID)
		},
		func(ctx context.Context) (*Shift, error) {
			if p.CashierID == "" {
				return nil, ErrEntityNotFound
			}
			return s.store.LatestShiftWithin(ctx, bc.branchID, p.CashierID, end, s.config.ShiftCloseFallback)
		},
	}

	for _, try := range strategies {
		shift, err := try(ctx)
		if err == nil {
			return shift, nil
		}
		if !errors.Is(err, ErrEntityNotFound) {
			return nil, fmt.Errorf("resolve close target: %w", err)
		}
	}

	return nil, NewDomainError(ErrEntityNotFound,
		"no shift found to close for cashier %q", p.CashierID)
}

// createDailyExpense применяет CREATE_DAILY_EXPENSE. Расходы категории
// "Loyalty Discounts" уменьшают выручку закрытия смены.
func (s *Service) createDailyExpense(ctx context.Context, bc *batchContext, p *CreateDailyExpensePayload) error {
	if p.Category == "" {
		return requiredField("category")
	}

	expense := &DailyExpense{
		ID:          bc.durableID(p.ID),
		BranchID:    bc.branchID,
		ShiftID:     bc.temps.ResolveRef(p.ShiftID),
		Category:    p.Category,
		Description: p.Description,
		Amount:      p.Amount,
		CreatedAt:   time.Now(),
	}

	if err := s.store.CreateDailyExpense(ctx, expense); err != nil {
		return fmt.Errorf("create daily expense: %w", err)
	}
	return nil
}

// parseClientTime принимает клиентские метки времени: RFC3339 либо
// unix-миллисекунды строкой
func parseClientTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms > 0 {
		return time.UnixMilli(ms), nil
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp %q", raw)
}
