package sync

import (
	"possync/internal/domain/sync"
)

// Request/Response структуры для BatchPush
type batchPushInput struct {
	Body sync.BatchPushRequest
}

type batchPushOutput struct {
	Body sync.BatchPushResponse
}

// Request/Response структуры для Changes
type changesInput struct {
	Body sync.ChangesRequest
}

type changesOutput struct {
	Body sync.ChangesResponse
}

// Request/Response структуры для Conflicts
type conflictsInput struct {
	BranchID string `query:"branchId" required:"false" doc:"Фильтр по филиалу"`
	Limit    int    `query:"limit" required:"false" minimum:"1" maximum:"500" doc:"Максимум записей"`
}

type conflictsOutput struct {
	Body ConflictsResponse
}

type ConflictsResponse struct {
	Conflicts []*sync.Conflict `json:"conflicts"`
}

// Request/Response структуры для ConflictStats
type conflictStatsInput struct{}

type conflictStatsOutput struct {
	Body sync.ConflictStats
}

// Request/Response структуры для ResolveConflict
type resolveConflictInput struct {
	ID   string `path:"id" doc:"Идентификатор конфликта"`
	Body ResolveConflictRequest
}

type resolveConflictOutput struct {
	Body sync.Conflict
}

type ResolveConflictRequest struct {
	Strategy   string `json:"strategy" enum:"LAST_WRITE_WINS" default:"LAST_WRITE_WINS"`
	ResolvedBy string `json:"resolvedBy,omitempty"`
}

// Request/Response структуры для History
type historyInput struct {
	BranchID string `query:"branchId" required:"false" doc:"Фильтр по филиалу"`
	Limit    int    `query:"limit" required:"false" minimum:"1" maximum:"500" doc:"Максимум записей"`
}

type historyOutput struct {
	Body HistoryResponse
}

type HistoryResponse struct {
	History []*sync.SyncHistoryEntry `json:"history"`
}

// Request/Response структуры для SyncStates
type statesInput struct {
	BranchID string `query:"branchId" doc:"Филиал"`
}

type statesOutput struct {
	Body StatesResponse
}

type StatesResponse struct {
	States []*sync.EntitySyncState `json:"states"`
}
