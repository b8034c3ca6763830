package services

import (
	"context"
	"testing"
	"time"

	"scadenze/internal/core"
	"scadenze/internal/storage/memory"
)

func seedMonthlyObligation(t *testing.T, store *memory.Store, next core.Date) core.Obligation {
	t.Helper()
	ob := core.Obligation{
		ID:         "ob-1",
		Name:       "rent",
		Kind:       core.KindBill,
		Frequency:  core.Monthly,
		DueDay:     15,
		Amount:     core.Money{Cents: 90000},
		AnchorDate: core.NewDate(2024, 1, 15),
		IsActive:   true,
	}
	ob.NextDueDate = next.Ptr()
	if err := store.CreateObligation(context.Background(), ob); err != nil {
		t.Fatal(err)
	}
	return ob
}

func TestProcessOverdueCreatesMissedInstances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ob := seedMonthlyObligation(t, store, core.NewDate(2024, 1, 15))
	proc := NewOverdueProcessor(store, nil)

	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	created, err := proc.ProcessOverdue(ctx, now)
	if err != nil {
		t.Fatalf("ProcessOverdue: %v", err)
	}
	if created != 3 {
		t.Fatalf("created = %d, want 3", created)
	}

	payments, err := store.PaymentsForObligation(ctx, ob.ID)
	if err != nil {
		t.Fatal(err)
	}
	wantDues := []core.Date{
		core.NewDate(2024, 1, 15),
		core.NewDate(2024, 2, 15),
		core.NewDate(2024, 3, 15),
	}
	if len(payments) != len(wantDues) {
		t.Fatalf("payments = %d, want %d", len(payments), len(wantDues))
	}
	for i, p := range payments {
		if !p.DueDate.Equal(wantDues[i]) {
			t.Errorf("payment %d due = %s, want %s", i, p.DueDate, wantDues[i])
		}
		if p.Status != core.StatusOverdue {
			t.Errorf("payment %d status = %s, want overdue", i, p.Status)
		}
		if p.Amount.Cents != ob.Amount.Cents {
			t.Errorf("payment %d amount = %d, want %d", i, p.Amount.Cents, ob.Amount.Cents)
		}
	}

	got, err := store.GetObligation(ctx, ob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextDueDate == nil || !got.NextDueDate.Equal(core.NewDate(2024, 4, 15)) {
		t.Errorf("nextDueDate = %v, want 2024-04-15", got.NextDueDate)
	}
}

func TestProcessOverdueIdempotent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedMonthlyObligation(t, store, core.NewDate(2024, 1, 15))
	proc := NewOverdueProcessor(store, nil)

	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	if _, err := proc.ProcessOverdue(ctx, now); err != nil {
		t.Fatal(err)
	}
	created, err := proc.ProcessOverdue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Errorf("second run created = %d, want 0", created)
	}
}

func TestProcessOverdueSkipsRecordedInstances(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	ob := seedMonthlyObligation(t, store, core.NewDate(2024, 1, 15))
	proc := NewOverdueProcessor(store, nil)

	// February was paid early; the scan must not duplicate it but still
	// move the schedule past it.
	paid := core.Payment{
		ID:           "p-feb",
		ObligationID: ob.ID,
		Amount:       ob.Amount,
		PaidDate:     core.NewDate(2024, 2, 10),
		DueDate:      core.NewDate(2024, 2, 15),
		Status:       core.StatusPaid,
	}
	if err := store.CreatePayment(ctx, paid); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	created, err := proc.ProcessOverdue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if created != 2 {
		t.Fatalf("created = %d, want 2", created)
	}

	got, err := store.GetObligation(ctx, ob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.NextDueDate == nil || !got.NextDueDate.Equal(core.NewDate(2024, 4, 15)) {
		t.Errorf("nextDueDate = %v, want 2024-04-15", got.NextDueDate)
	}
}

func TestProcessOverdueIgnoresCurrentAndInactive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	current := seedMonthlyObligation(t, store, core.NewDate(2024, 4, 15))

	inactive := core.Obligation{
		ID:         "ob-2",
		Name:       "old gym",
		Kind:       core.KindBill,
		Frequency:  core.Monthly,
		DueDay:     1,
		Amount:     core.Money{Cents: 4500},
		AnchorDate: core.NewDate(2023, 1, 1),
		IsActive:   false,
	}
	next := core.NewDate(2024, 1, 1)
	inactive.NextDueDate = next.Ptr()
	if err := store.CreateObligation(ctx, inactive); err != nil {
		t.Fatal(err)
	}

	now := time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC)
	created, err := NewOverdueProcessor(store, nil).ProcessOverdue(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if created != 0 {
		t.Errorf("created = %d, want 0", created)
	}

	for _, id := range []string{current.ID, inactive.ID} {
		payments, err := store.PaymentsForObligation(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if len(payments) != 0 {
			t.Errorf("obligation %s gained %d payments", id, len(payments))
		}
	}
}
