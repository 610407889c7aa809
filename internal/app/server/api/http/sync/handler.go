package sync

import (
	"context"
	"errors"

	"possync/internal/domain/sync"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

type Handler struct {
	service    sync.Servicer
	log        *slog.Logger
	middleware huma.Middlewares
}

func NewHandler(service sync.Servicer, log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		service:    service,
		log:        log,
		middleware: middleware,
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.batchPushOp(), h.batchPush)
	huma.Register(api, h.changesOp(), h.changes)
	huma.Register(api, h.conflictsOp(), h.conflicts)
	huma.Register(api, h.conflictStatsOp(), h.conflictStats)
	huma.Register(api, h.resolveConflictOp(), h.resolveConflict)
	huma.Register(api, h.historyOp(), h.history)
	huma.Register(api, h.statesOp(), h.states)
}

func (h *Handler) batchPush(ctx context.Context, input *batchPushInput) (*batchPushOutput, error) {
	response, err := h.service.ProcessBatchPush(ctx, input.Body)
	if err != nil {
		return nil, mapError(err)
	}

	return &batchPushOutput{
		Body: *response,
	}, nil
}

func (h *Handler) changes(ctx context.Context, input *changesInput) (*changesOutput, error) {
	response, err := h.service.Changes(ctx, input.Body)
	if err != nil {
		return nil, mapError(err)
	}

	return &changesOutput{
		Body: *response,
	}, nil
}

func (h *Handler) conflicts(ctx context.Context, input *conflictsInput) (*conflictsOutput, error) {
	conflicts, err := h.service.Conflicts(ctx, input.BranchID, input.Limit)
	if err != nil {
		return nil, mapError(err)
	}

	return &conflictsOutput{
		Body: ConflictsResponse{Conflicts: conflicts},
	}, nil
}

func (h *Handler) conflictStats(ctx context.Context, _ *conflictStatsInput) (*conflictStatsOutput, error) {
	stats, err := h.service.ConflictStatistics(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	return &conflictStatsOutput{
		Body: *stats,
	}, nil
}

func (h *Handler) resolveConflict(ctx context.Context, input *resolveConflictInput) (*resolveConflictOutput, error) {
	strategy := sync.ConflictStrategy(input.Body.Strategy)
	if strategy == "" {
		strategy = sync.StrategyLastWriteWins
	}

	conflict, err := h.service.ResolveConflict(ctx, input.ID, strategy, input.Body.ResolvedBy)
	if err != nil {
		return nil, mapError(err)
	}

	return &resolveConflictOutput{
		Body: *conflict,
	}, nil
}

func (h *Handler) history(ctx context.Context, input *historyInput) (*historyOutput, error) {
	entries, err := h.service.History(ctx, input.BranchID, input.Limit)
	if err != nil {
		return nil, mapError(err)
	}

	return &historyOutput{
		Body: HistoryResponse{History: entries},
	}, nil
}

func (h *Handler) states(ctx context.Context, input *statesInput) (*statesOutput, error) {
	states, err := h.service.SyncStates(ctx, input.BranchID)
	if err != nil {
		return nil, mapError(err)
	}

	return &statesOutput{
		Body: StatesResponse{States: states},
	}, nil
}

// mapError переводит ошибки домена в HTTP статусы: некорректный
// запрос — 400, неизвестный филиал или конфликт — 404, остальное — 500
func mapError(err error) error {
	var ve *sync.ValidationError
	if errors.As(err, &ve) {
		return huma.Error400BadRequest(ve.Message)
	}
	if errors.Is(err, sync.ErrBranchNotFound) || errors.Is(err, sync.ErrConflictNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError("internal server error", err)
}
