package sync

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"possync/internal/domain/audit"
	"possync/internal/domain/loyalty"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

type fakeLoyalty struct {
	awards       []string
	transactions []*loyalty.Transaction
}

func (f *fakeLoyalty) AwardPoints(_ context.Context, customerID, _ string, subtotal float64) (*loyalty.Award, error) {
	f.awards = append(f.awards, customerID)
	return &loyalty.Award{PointsEarned: int64(subtotal)}, nil
}

func (f *fakeLoyalty) RecordTransaction(_ context.Context, tx *loyalty.Transaction) error {
	f.transactions = append(f.transactions, tx)
	return nil
}

type fakeAuditor struct {
	events []audit.Event
}

func (f *fakeAuditor) Record(_ context.Context, event audit.Event) error {
	f.events = append(f.events, event)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *memStore) (*Service, *fakeLoyalty, *fakeAuditor) {
	lp := &fakeLoyalty{}
	aud := &fakeAuditor{}
	svc := NewService(store, lp, aud, testLogger(), nil)
	return svc, lp, aud
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func op(t *testing.T, typ OperationType, data any) SyncOperation {
	t.Helper()
	return SyncOperation{
		Type:      typ,
		Data:      mustJSON(t, data),
		Timestamp: time.Now().UnixMilli(),
	}
}

func TestProcessBatchPush_Validation(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)

	_, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.ProcessBatchPush(context.Background(), BatchPushRequest{BranchID: "b1"})
	require.ErrorAs(t, err, &ve)
}

func TestProcessBatchPush_UnknownBranch(t *testing.T) {
	store := newMemStore()
	svc, _, _ := newTestService(store)

	_, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID:   "missing",
		Operations: []SyncOperation{},
	})
	require.ErrorIs(t, err, ErrBranchNotFound)
	assert.Empty(t, store.history, "failed batch must not create a history entry")
}

func TestProcessBatchPush_EmptyBatchSucceeds(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID:   "b1",
		Operations: []SyncOperation{},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Zero(t, resp.Processed)
	assert.Empty(t, store.history, "history is written only when something was applied")
}

func TestProcessBatchPush_TempIDResolution(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	shiftRef := "temp_shift_1"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateShift, CreateShiftPayload{
				ID:        "temp_shift_1",
				CashierID: "cashier-1",
				StartTime: time.Now().Format(time.RFC3339),
			}),
			op(t, OpCreateOrder, CreateOrderPayload{
				ID:       "local_order_1",
				ShiftID:  &shiftRef,
				Subtotal: 100,
				Total:    100,
				Items: []OrderItemPayload{
					{MenuItemID: "m1", Name: "Coffee", Quantity: 2, UnitPrice: 50},
				},
			}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Processed)
	require.True(t, resp.Success)

	require.Len(t, store.shifts, 1)
	require.Len(t, store.orders, 1)
	for _, order := range store.orders {
		require.NotNil(t, order.ShiftID)
		for _, shift := range store.shifts {
			assert.Equal(t, shift.ID, *order.ShiftID,
				"order must point at the durable shift id, not the placeholder")
			assert.False(t, IsTempID(order.ID))
			assert.False(t, IsTempID(*order.ShiftID))
		}
	}
}

func TestProcessBatchPush_UnresolvedRefNulled(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	ghost := "temp_shift_never_created"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateOrder, CreateOrderPayload{
				ID:       "local_order_1",
				ShiftID:  &ghost,
				Subtotal: 40,
				Total:    40,
			}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Processed)

	for _, order := range store.orders {
		assert.Nil(t, order.ShiftID, "unresolved placeholder must become a null link")
	}
}

func TestProcessBatchPush_PartialFailure(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	ops := []SyncOperation{
		op(t, OpCreateCustomer, CreateCustomerPayload{ID: "temp_c1", Name: "A", Phone: "100"}),
		op(t, OpCreateCustomer, CreateCustomerPayload{ID: "temp_c2", Name: "B", Phone: "200"}),
		// нет телефона — операционная ошибка
		op(t, OpCreateCustomer, CreateCustomerPayload{ID: "temp_c3", Name: "C"}),
		op(t, OpCreateCustomer, CreateCustomerPayload{ID: "temp_c4", Name: "D", Phone: "400"}),
		op(t, OpCreateCustomer, CreateCustomerPayload{ID: "temp_c5", Name: "E", Phone: "500"}),
	}
	ops[2].OperationID = "client-op-3"

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID:   "b1",
		Operations: ops,
	})
	require.NoError(t, err, "operation failure must not abort the batch")

	assert.False(t, resp.Success)
	assert.Equal(t, 4, resp.Processed)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 2, resp.Errors[0].Index)
	assert.Equal(t, OpCreateCustomer, resp.Errors[0].Type)
	assert.Equal(t, []string{"client-op-3"}, resp.FailedIDs)

	require.Len(t, store.history, 1)
	assert.Equal(t, SyncPartial, store.history[0].Status)
	assert.Equal(t, 4, store.history[0].OperationCount)
}

func TestProcessBatchPush_AllFailed(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateCustomer, CreateCustomerPayload{Name: "no phone"}),
			{Type: "TOTALLY_UNKNOWN", Data: json.RawMessage(`{}`), Timestamp: time.Now().UnixMilli()},
		},
	})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Zero(t, resp.Processed)
	assert.Equal(t, 2, resp.Failed)
	assert.Equal(t, []string{"op-0", "op-1"}, resp.FailedIDs)
	assert.Empty(t, store.history, "fully failed batch applies nothing and records nothing")
}

func TestProcessBatchPush_IdempotentResubmission(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	batch := BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			{
				Type: OpCreateCustomer,
				Data: mustJSON(t, CreateCustomerPayload{
					ID: "temp_c1", Name: "Guest", Phone: "555-0001",
				}),
				Timestamp:      time.Now().UnixMilli(),
				IdempotencyKey: "key-1",
			},
		},
	}

	first, err := svc.ProcessBatchPush(context.Background(), batch)
	require.NoError(t, err)
	require.Equal(t, 1, first.Processed)
	require.Len(t, store.customers, 1)

	second, err := svc.ProcessBatchPush(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Processed, "skipped operation still counts as processed")
	assert.Zero(t, second.Failed)
	assert.Len(t, store.customers, 1, "resubmission must not create a second row")
}

func TestProcessBatchPush_IdempotencyFailOpen(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	store.checkIdemErr = assert.AnError
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			{
				Type:           OpCreateCustomer,
				Data:           mustJSON(t, CreateCustomerPayload{Name: "G", Phone: "1"}),
				Timestamp:      time.Now().UnixMilli(),
				IdempotencyKey: "key-x",
			},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Processed, "guard degrades open: operation is applied")
}

func TestProcessBatchPush_ShiftDedupWindow(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	start := time.Now()
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateShift, CreateShiftPayload{
				ID: "temp_s1", CashierID: "cashier-1",
				StartTime: start.Format(time.RFC3339),
			}),
			// ретрай с другим плейсхолдером и стартом на 10 секунд позже
			op(t, OpCreateShift, CreateShiftPayload{
				ID: "temp_s2", CashierID: "cashier-1",
				StartTime: start.Add(10 * time.Second).Format(time.RFC3339),
			}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Processed)
	assert.Len(t, store.shifts, 1, "shifts within the dedup window collapse into one")
}

func TestProcessBatchPush_ShiftDedupDifferentCashiers(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	start := time.Now()
	_, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateShift, CreateShiftPayload{
				ID: "temp_s1", CashierID: "cashier-1",
				StartTime: start.Format(time.RFC3339),
			}),
			op(t, OpCreateShift, CreateShiftPayload{
				ID: "temp_s2", CashierID: "cashier-2",
				StartTime: start.Format(time.RFC3339),
			}),
		},
	})
	require.NoError(t, err)
	assert.Len(t, store.shifts, 2, "dedup never crosses cashier boundaries")
}

func TestProcessBatchPush_ShiftLifecycleSettlement(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	start := time.Now().Add(-8 * time.Hour)
	shiftRef := "temp_shift"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateShift, CreateShiftPayload{
				ID: shiftRef, CashierID: "cashier-1",
				StartTime: start.Format(time.RFC3339), OpeningCash: 500,
			}),
			op(t, OpCreateOrder, CreateOrderPayload{
				ID: "temp_o1", ShiftID: &shiftRef, Subtotal: 120, Total: 120,
			}),
			op(t, OpCreateOrder, CreateOrderPayload{
				ID: "temp_o2", ShiftID: &shiftRef, Subtotal: 80, Total: 80,
			}),
			op(t, OpCreateDailyExpense, CreateDailyExpensePayload{
				ID: "temp_e1", ShiftID: &shiftRef,
				Category: "Loyalty Discounts", Amount: 30,
			}),
			op(t, OpCloseShift, CloseShiftPayload{
				ID: shiftRef, CashierID: "cashier-1",
				EndTime: time.Now().Format(time.RFC3339),
			}),
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, 5, resp.Processed)

	require.Len(t, store.shifts, 1)
	for _, shift := range store.shifts {
		assert.True(t, shift.IsClosed)
		assert.Equal(t, 2, shift.ClosingOrders)
		assert.InDelta(t, 170.0, shift.ClosingRevenue, 1e-9,
			"closing revenue is subtotal sum minus loyalty discounts")
		require.NotNil(t, shift.EndTime)
	}
}

func TestProcessBatchPush_CloseAlreadyClosedShiftIsNoop(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	end := time.Now()
	closed := &Shift{
		ID: "s1", BranchID: "b1", CashierID: "cashier-1",
		StartTime: end.Add(-time.Hour), IsClosed: true,
		ClosingOrders: 7, ClosingRevenue: 999,
		UpdatedAt: end,
	}
	require.NoError(t, store.CreateShift(context.Background(), closed))

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCloseShift, CloseShiftPayload{
				ID: "s1", CashierID: "cashier-1",
				EndTime: end.Format(time.RFC3339),
			}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Processed, "re-close is a successful no-op")

	shift, err := store.GetShift(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 7, shift.ClosingOrders, "aggregates are never recomputed")
	assert.InDelta(t, 999.0, shift.ClosingRevenue, 1e-9)
}

func TestProcessBatchPush_CloseShiftCascadeFallsBackToOpenShift(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	// открытая смена далеко за пределами окна закрытия
	open := &Shift{
		ID: "s-open", BranchID: "b1", CashierID: "cashier-1",
		StartTime: time.Now().Add(-26 * time.Hour),
		UpdatedAt: time.Now().Add(-26 * time.Hour),
	}
	require.NoError(t, store.CreateShift(context.Background(), open))

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCloseShift, CloseShiftPayload{
				CashierID: "cashier-1",
				EndTime:   time.Now().Format(time.RFC3339),
			}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Processed)

	shift, err := store.GetShift(context.Background(), "s-open")
	require.NoError(t, err)
	assert.True(t, shift.IsClosed, "latest open shift is closed by the fallback strategy")
}

func TestProcessBatchPush_CloseShiftNoTarget(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCloseShift, CloseShiftPayload{
				CashierID: "nobody",
				EndTime:   time.Now().Format(time.RFC3339),
			}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed, "close with no target is an operation error, not a batch error")
}

func TestProcessBatchPush_CustomerPhoneDedup(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateCustomer, CreateCustomerPayload{
				ID: "temp_c1", Name: "Guest", Phone: "555-7777",
			}),
			op(t, OpCreateCustomer, CreateCustomerPayload{
				ID: "temp_c2", Name: "Guest Again", Phone: "555-7777",
			}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Processed)
	assert.Len(t, store.customers, 1, "same phone within a branch reuses the row")
}

func TestProcessBatchPush_InsufficientStockFailsOperation(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateIngredient(context.Background(), &Ingredient{
		ID: "ing-1", BranchID: "b1", Name: "Beans", Stock: 5,
	}))
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateOrder, CreateOrderPayload{
				ID: "temp_o1", Subtotal: 10, Total: 10,
				Items: []OrderItemPayload{{
					MenuItemID: "m1", Name: "Espresso", Quantity: 3, UnitPrice: 10,
					Ingredients: []IngredientUsage{{IngredientID: "ing-1", Quantity: 2}},
				}},
			}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Empty(t, store.orders, "order row must not appear when stock deduction fails")

	ing, err := store.GetIngredient(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.InDelta(t, 5.0, ing.Stock, 1e-9)
}

func TestProcessBatchPush_OrderDeductsStockAndAwardsPoints(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateIngredient(context.Background(), &Ingredient{
		ID: "ing-1", BranchID: "b1", Name: "Beans", Stock: 100,
	}))
	require.NoError(t, store.CreateCustomer(context.Background(), &Customer{
		ID: "cust-1", BranchID: "b1", Phone: "1", CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	svc, lp, aud := newTestService(store)

	custRef := "cust-1"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateOrder, CreateOrderPayload{
				ID: "temp_o1", CustomerID: &custRef, Subtotal: 60, Total: 60,
				Items: []OrderItemPayload{{
					MenuItemID: "m1", Name: "Espresso", Quantity: 2, UnitPrice: 30,
					Ingredients: []IngredientUsage{{IngredientID: "ing-1", Quantity: 7}},
				}},
			}),
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success)

	ing, err := store.GetIngredient(context.Background(), "ing-1")
	require.NoError(t, err)
	assert.InDelta(t, 86.0, ing.Stock, 1e-9, "usage is per unit: 7 * quantity 2")
	require.Len(t, store.ledger, 1)
	assert.InDelta(t, -14.0, store.ledger[0].Delta, 1e-9)

	assert.Equal(t, []string{"cust-1"}, lp.awards)
	require.NotEmpty(t, aud.events)
	assert.Equal(t, "order.created", aud.events[0].Action)
}

func TestProcessBatchPush_ConflictDetectedAndAutoResolved(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateCustomer(context.Background(), &Customer{
		ID: "cust-1", BranchID: "b1", Name: "Server Name", Phone: "1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	svc, _, _ := newTestService(store)

	name := "Offline Name"
	update := SyncOperation{
		Type:      OpUpdateCustomer,
		Data:      mustJSON(t, UpdateCustomerPayload{ID: "cust-1", Name: &name}),
		Timestamp: time.Now().Add(-time.Hour).UnixMilli(), // правка устаревшей версии
	}

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID:   "b1",
		Operations: []SyncOperation{update},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Processed, "conflicting update is still applied")
	assert.Equal(t, 1, resp.ConflictsDetected)
	assert.Equal(t, 1, resp.ConflictsResolved, "pending conflicts are swept at batch end")

	customer, err := store.GetCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "Offline Name", customer.Name, "last write wins")

	require.NotNil(t, resp.ConflictStats)
	assert.Equal(t, 1, resp.ConflictStats.Resolved)
	assert.Zero(t, resp.ConflictStats.Pending)

	require.Len(t, store.history, 1)
	assert.Equal(t, SyncPartial, store.history[0].Status,
		"a batch with conflicts completes as partial")
}

func TestProcessBatchPush_NoConflictWhenClientIsCurrent(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateCustomer(context.Background(), &Customer{
		ID: "cust-1", BranchID: "b1", Name: "Server Name", Phone: "1",
		CreatedAt: time.Now().Add(-time.Hour), UpdatedAt: time.Now().Add(-time.Hour),
	}))
	svc, _, _ := newTestService(store)

	name := "Fresh Edit"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{{
			Type:      OpUpdateCustomer,
			Data:      mustJSON(t, UpdateCustomerPayload{ID: "cust-1", Name: &name}),
			Timestamp: time.Now().UnixMilli(),
		}},
	})
	require.NoError(t, err)
	assert.Zero(t, resp.ConflictsDetected, "editing the current version is not a conflict")
	assert.True(t, resp.Success)
}

func TestProcessBatchPush_SequentialUpdatesLastWins(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateCustomer(context.Background(), &Customer{
		ID: "cust-1", BranchID: "b1", Name: "A", Phone: "1",
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}))
	svc, _, _ := newTestService(store)

	nameB, nameC := "B", "C"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			{
				Type:      OpUpdateCustomer,
				Data:      mustJSON(t, UpdateCustomerPayload{ID: "cust-1", Name: &nameB}),
				Timestamp: time.Now().UnixMilli(),
			},
			{
				Type:      OpUpdateCustomer,
				Data:      mustJSON(t, UpdateCustomerPayload{ID: "cust-1", Name: &nameC}),
				Timestamp: time.Now().UnixMilli(),
			},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Processed)

	customer, err := store.GetCustomer(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.Equal(t, "C", customer.Name, "array order decides: the later write wins")
}

func TestProcessBatchPush_PromoCodeLifecycle(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreatePromoCode, CreatePromoCodePayload{
				ID: "temp_p1", Code: "WELCOME", Discount: 10, MaxUses: 1,
			}),
			op(t, OpUsePromoCode, UsePromoCodePayload{Code: "WELCOME"}),
			// второй расход превышает лимит
			op(t, OpUsePromoCode, UsePromoCodePayload{Code: "WELCOME"}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Processed)
	assert.Equal(t, 1, resp.Failed, "exhausted promo code is an operation error")

	for _, promo := range store.promos {
		assert.Equal(t, 1, promo.UsedCount)
	}
}

func TestProcessBatchPush_ReceiptSettingsSingleton(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateReceiptSettings, CreateReceiptSettingsPayload{
				ID: "temp_rs1", Header: "First",
			}),
			op(t, OpCreateReceiptSettings, CreateReceiptSettingsPayload{
				ID: "temp_rs2", Header: "Second",
			}),
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Processed)
	assert.Len(t, store.receipts, 1, "receipt settings are one row per branch")
}

func TestChanges_ValidatesAndAdvancesState(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	store.changedByType["orders"] = []json.RawMessage{
		json.RawMessage(`{"id":"o1"}`),
		json.RawMessage(`{"id":"o2"}`),
	}
	svc, _, _ := newTestService(store)

	_, err := svc.Changes(context.Background(), ChangesRequest{
		BranchID: "b1", EntityType: "no_such_table",
	})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)

	resp, err := svc.Changes(context.Background(), ChangesRequest{
		BranchID: "b1", EntityType: "orders",
	})
	require.NoError(t, err)
	assert.Len(t, resp.Records, 2)
	require.NotNil(t, resp.State)
	assert.Equal(t, int64(2), resp.State.TotalCount)
	assert.False(t, resp.State.LastSyncTimestamp.IsZero())

	require.Len(t, store.history, 1)
	assert.Equal(t, DirectionDown, store.history[0].Direction)
}

func TestChanges_DisabledEntityReturnsNothing(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	store.changedByType["orders"] = []json.RawMessage{json.RawMessage(`{"id":"o1"}`)}
	require.NoError(t, store.UpsertEntitySyncState(context.Background(), &EntitySyncState{
		BranchID: "b1", EntityType: "orders", SyncEnabled: false,
	}))
	svc, _, _ := newTestService(store)

	resp, err := svc.Changes(context.Background(), ChangesRequest{
		BranchID: "b1", EntityType: "orders",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Records)
	assert.Empty(t, store.history, "a pull that returned nothing leaves no trace")
}

func TestResolveConflict_AlreadyResolvedIsNoop(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	now := time.Now()
	seeded := &Conflict{
		ID: "conf-1", EntityType: "orders", EntityID: "o1", BranchID: "b1",
		IncomingPayload: json.RawMessage(`{"status":"refunded"}`),
		StoredSnapshot:  json.RawMessage(`{"status":"completed"}`),
		DetectedAt:      now, Status: ConflictResolved,
		Strategy: StrategyLastWriteWins, ResolvedBy: "auto", ResolvedAt: &now,
	}
	require.NoError(t, store.SaveConflict(context.Background(), seeded))

	resolved, err := svc.ResolveConflict(context.Background(), "conf-1", StrategyLastWriteWins, "manual")
	require.NoError(t, err)
	assert.Equal(t, "auto", resolved.ResolvedBy, "resolution is not overwritten")
}

func TestProcessBatchPush_StockExhaustionLeavesNoPartialDeduction(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateIngredient(context.Background(), &Ingredient{
		ID: "ing-a", BranchID: "b1", Name: "Beans", Stock: 100,
	}))
	require.NoError(t, store.CreateIngredient(context.Background(), &Ingredient{
		ID: "ing-b", BranchID: "b1", Name: "Milk", Stock: 1,
	}))
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateOrder, CreateOrderPayload{
				ID: "temp_o1", Subtotal: 10, Total: 10,
				Items: []OrderItemPayload{{
					MenuItemID: "m1", Name: "Latte", Quantity: 1, UnitPrice: 10,
					Ingredients: []IngredientUsage{
						{IngredientID: "ing-a", Quantity: 5},
						{IngredientID: "ing-b", Quantity: 5},
					},
				}},
			}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	assert.Empty(t, store.orders)

	// отказ второго списания откатывает первое вместе с проводкой:
	// ретрай операции не спишет ing-a второй раз
	ingA, err := store.GetIngredient(context.Background(), "ing-a")
	require.NoError(t, err)
	assert.InDelta(t, 100.0, ingA.Stock, 1e-9)
	assert.Empty(t, store.ledger)
}

func TestProcessBatchPush_FailedCreateUnbindsPlaceholder(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	require.NoError(t, store.CreateIngredient(context.Background(), &Ingredient{
		ID: "ing-1", BranchID: "b1", Name: "Beans", Stock: 1,
	}))
	svc, _, _ := newTestService(store)

	orderRef := "temp_o1"
	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			op(t, OpCreateOrder, CreateOrderPayload{
				ID: "temp_o1", Subtotal: 10, Total: 10,
				Items: []OrderItemPayload{{
					MenuItemID: "m1", Name: "Espresso", Quantity: 1, UnitPrice: 10,
					Ingredients: []IngredientUsage{{IngredientID: "ing-1", Quantity: 5}},
				}},
			}),
			op(t, OpCreateVoidedItem, CreateVoidedItemPayload{
				ID: "temp_v1", OrderID: &orderRef, Quantity: 1, Reason: "spill",
			}),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Processed)
	assert.Equal(t, 1, resp.Failed)

	// плейсхолдер проваленного заказа не должен разрешаться: ссылка
	// обнуляется, а не виснет на id несуществующей строки
	require.Len(t, store.voided, 1)
	for _, v := range store.voided {
		assert.Nil(t, v.OrderID)
	}
}

func TestProcessBatchPush_UnknownOperationType(t *testing.T) {
	store := newMemStore()
	store.addBranch("b1")
	svc, _, _ := newTestService(store)

	resp, err := svc.ProcessBatchPush(context.Background(), BatchPushRequest{
		BranchID: "b1",
		Operations: []SyncOperation{
			{Type: OperationType("DROP_BRANCH"), Data: json.RawMessage(`{}`)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "unknown operation type")
}
