package sync

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/exp/slog"
)

// Servicer интерфейс движка синхронизации
type Servicer interface {
	// ProcessBatchPush применяет пакет офлайн-операций филиала
	ProcessBatchPush(ctx context.Context, req BatchPushRequest) (*BatchPushResponse, error)

	// Changes возвращает изменения для инкрементального pull
	Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error)

	// Conflicts возвращает конфликты филиала
	Conflicts(ctx context.Context, branchID string, limit int) ([]*Conflict, error)

	// ConflictStatistics возвращает агрегированную статистику конфликтов
	ConflictStatistics(ctx context.Context) (*ConflictStats, error)

	// ResolveConflict разрешает конфликт указанной стратегией
	ResolveConflict(ctx context.Context, id string, strategy ConflictStrategy, resolvedBy string) (*Conflict, error)

	// History возвращает журнал пакетов филиала
	History(ctx context.Context, branchID string, limit int) ([]*SyncHistoryEntry, error)

	// SyncStates возвращает pull-состояние по типам сущностей
	SyncStates(ctx context.Context, branchID string) ([]*EntitySyncState, error)
}

// ServiceConfig конфигурация движка
type ServiceConfig struct {
	// OperationTimeout ограничивает выполнение одной операции;
	// таймаут становится ошибкой операции, пакет продолжается
	OperationTimeout time.Duration
	// ShiftDedupWindow — окно совпадения стартов при дедупликации смен
	ShiftDedupWindow time.Duration
	// ShiftCloseWindow — окно поиска открытой смены при закрытии
	ShiftCloseWindow time.Duration
	// ShiftCloseFallback — допуск последнего шага каскада закрытия
	ShiftCloseFallback time.Duration
}

// Compile-time проверка реализации интерфейса
var _ Servicer = (*Service)(nil)

// Service — оркестратор batch-push синхронизации
type Service struct {
	store     Store
	guard     *IdempotencyGuard
	conflicts *ConflictManager
	history   *HistoryRecorder
	tracker   *StateTracker
	loyalty   LoyaltyService
	audit     Auditor
	log       *slog.Logger
	config    *ServiceConfig
}

// NewService создает движок синхронизации
func NewService(store Store, loyalty LoyaltyService, auditor Auditor, log *slog.Logger, config *ServiceConfig) *Service {
	if config == nil {
		config = &ServiceConfig{}
	}
	if config.OperationTimeout <= 0 {
		config.OperationTimeout = 15 * time.Second
	}
	if config.ShiftDedupWindow <= 0 {
		config.ShiftDedupWindow = 60 * time.Second
	}
	if config.ShiftCloseWindow <= 0 {
		config.ShiftCloseWindow = 30 * time.Second
	}
	if config.ShiftCloseFallback <= 0 {
		config.ShiftCloseFallback = 5 * time.Minute
	}

	return &Service{
		store:     store,
		guard:     NewIdempotencyGuard(store, log),
		conflicts: NewConflictManager(store, log),
		history:   NewHistoryRecorder(store, log),
		tracker:   NewStateTracker(store, log),
		loyalty:   loyalty,
		audit:     auditor,
		log:       log.With("component", "sync_service"),
		config:    config,
	}
}

// batchContext — состояние одного выполнения пакета. Живет ровно один
// запрос; таблица привязок уничтожается вместе с ним, в том числе
// при ошибке.
type batchContext struct {
	branchID          string
	temps             *TempIDTable
	conflictsDetected int
}

// ProcessBatchPush применяет пакет офлайн-операций филиала.
// Операции выполняются строго последовательно: resolver требует
// каузального порядка. Ошибка операции не прерывает пакет.
func (s *Service) ProcessBatchPush(ctx context.Context, req BatchPushRequest) (*BatchPushResponse, error) {
	if req.BranchID == "" {
		return nil, NewValidationError("branchId is required")
	}
	if req.Operations == nil {
		return nil, NewValidationError("operations is required")
	}

	exists, err := s.store.BranchExists(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("check branch: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, req.BranchID)
	}

	startedAt := time.Now()
	bc := &batchContext{
		branchID: req.BranchID,
		temps:    NewTempIDTable(),
	}

	var (
		processed int
		failed    int
		failedIDs = make([]string, 0)
		opErrors  = make([]OperationError, 0)
	)

	for i, op := range req.Operations {
		// уже примененная операция помечается как пропущенная и
		// считается processed: клиент должен снять ее с ретраев
		if op.IdempotencyKey != "" && s.guard.Check(ctx, op.IdempotencyKey) {
			s.log.Debug("operation skipped by idempotency key",
				"index", i, "key", op.IdempotencyKey)
			processed++
			continue
		}

		mark := bc.temps.Checkpoint()
		if err := s.dispatchWithTimeout(ctx, bc, op); err != nil {
			// привязки проваленной операции снимаются: поздние ссылки
			// на её плейсхолдер обнуляются, а не виснут на
			// несуществующей строке
			bc.temps.Rollback(mark)
			failed++
			failedIDs = append(failedIDs, operationRef(i, op))
			opErrors = append(opErrors, OperationError{
				Index:       i,
				OperationID: op.OperationID,
				Type:        op.Type,
				Message:     err.Error(),
			})
			s.log.Warn("operation failed",
				"index", i, "type", op.Type, "error", err)
			continue
		}

		s.guard.Record(ctx, op.IdempotencyKey, req.BranchID)
		processed++
	}

	resolved, err := s.conflicts.AutoResolveConflicts(ctx)
	if err != nil {
		s.log.Warn("auto-resolve conflicts failed", "error", err)
	}

	status := SyncSuccess
	switch {
	case processed == 0 && failed == len(req.Operations) && failed > 0:
		status = SyncFailed
	case failed > 0 || bc.conflictsDetected > 0:
		status = SyncPartial
	}

	if processed > 0 {
		if err := s.history.RecordBatch(ctx, req.BranchID, DirectionUp, processed, startedAt, status, opErrors); err != nil {
			s.log.Warn("failed to record sync history", "error", err)
		}
	}

	stats, err := s.conflicts.Stats(ctx)
	if err != nil {
		s.log.Warn("failed to get conflict stats", "error", err)
	}

	return &BatchPushResponse{
		Success:           failed == 0,
		Processed:         processed,
		Failed:            failed,
		FailedIDs:         failedIDs,
		Errors:            opErrors,
		ConflictsDetected: bc.conflictsDetected,
		ConflictsResolved: resolved,
		ConflictStats:     stats,
	}, nil
}

// dispatchWithTimeout ограничивает выполнение операции таймаутом:
// зависший обработчик не должен блокировать остаток пакета навсегда
func (s *Service) dispatchWithTimeout(ctx context.Context, bc *batchContext, op SyncOperation) error {
	opCtx, cancel := context.WithTimeout(ctx, s.config.OperationTimeout)
	defer cancel()

	return s.dispatch(opCtx, bc, op)
}

// Changes возвращает изменения для инкрементального pull
func (s *Service) Changes(ctx context.Context, req ChangesRequest) (*ChangesResponse, error) {
	if req.BranchID == "" {
		return nil, NewValidationError("branchId is required")
	}

	exists, err := s.store.BranchExists(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("check branch: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrBranchNotFound, req.BranchID)
	}

	startedAt := time.Now()
	records, state, err := s.tracker.Changes(ctx, req.BranchID, req.EntityType, req.Since, req.Limit)
	if err != nil {
		return nil, err
	}

	if len(records) > 0 {
		if err := s.history.RecordBatch(ctx, req.BranchID, DirectionDown, len(records), startedAt, SyncSuccess, nil); err != nil {
			s.log.Warn("failed to record sync history", "error", err)
		}
	}

	limit := req.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	return &ChangesResponse{
		Records:    records,
		HasMore:    len(records) >= limit,
		ServerTime: time.Now(),
		State:      state,
	}, nil
}

// Conflicts возвращает конфликты филиала
func (s *Service) Conflicts(ctx context.Context, branchID string, limit int) ([]*Conflict, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.conflicts.AllConflicts(ctx, branchID, limit)
}

// ConflictStatistics возвращает агрегированную статистику конфликтов
func (s *Service) ConflictStatistics(ctx context.Context) (*ConflictStats, error) {
	return s.conflicts.Stats(ctx)
}

// ResolveConflict разрешает конфликт указанной стратегией
func (s *Service) ResolveConflict(ctx context.Context, id string, strategy ConflictStrategy, resolvedBy string) (*Conflict, error) {
	return s.conflicts.ResolveConflict(ctx, id, strategy, resolvedBy)
}

// History возвращает журнал пакетов филиала
func (s *Service) History(ctx context.Context, branchID string, limit int) ([]*SyncHistoryEntry, error) {
	return s.history.History(ctx, branchID, limit)
}

// SyncStates возвращает pull-состояние по типам сущностей
func (s *Service) SyncStates(ctx context.Context, branchID string) ([]*EntitySyncState, error) {
	return s.tracker.States(ctx, branchID)
}

// operationRef — идентификатор операции в failedIds: клиентский
// operationId, если он есть, иначе позиция в пакете
func operationRef(index int, op SyncOperation) string {
	if op.OperationID != "" {
		return op.OperationID
	}
	return fmt.Sprintf("op-%d", index)
}
