package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"scadenze/internal/core"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testObligation(id string) core.Obligation {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	next := core.NewDate(2024, 3, 15)
	return core.Obligation{
		ID:          id,
		Name:        "internet bill",
		Kind:        core.KindBill,
		Frequency:   core.Monthly,
		DueDay:      15,
		Amount:      core.Money{Cents: 2999},
		AnchorDate:  core.NewDate(2024, 1, 15),
		NextDueDate: next.Ptr(),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestSQLiteObligationRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	ob := testObligation("ob-1")
	if err := repo.CreateObligation(ctx, ob); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetObligation(ctx, "ob-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != ob.Name || got.Kind != ob.Kind || got.Frequency != ob.Frequency {
		t.Errorf("got %+v, want %+v", got, ob)
	}
	if got.Amount.Cents != ob.Amount.Cents {
		t.Errorf("amount = %d, want %d", got.Amount.Cents, ob.Amount.Cents)
	}
	if !got.AnchorDate.Equal(ob.AnchorDate) {
		t.Errorf("anchor = %s, want %s", got.AnchorDate, ob.AnchorDate)
	}
	if got.NextDueDate == nil || !got.NextDueDate.Equal(*ob.NextDueDate) {
		t.Errorf("nextDueDate = %v, want %v", got.NextDueDate, ob.NextDueDate)
	}
	if got.LastPaidDate != nil {
		t.Errorf("lastPaidDate = %v, want nil", got.LastPaidDate)
	}
}

func TestSQLiteGetObligationNotFound(t *testing.T) {
	repo := newTestRepository(t)
	if _, err := repo.GetObligation(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteUpdateObligationSchedule(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	if err := repo.CreateObligation(ctx, testObligation("ob-1")); err != nil {
		t.Fatal(err)
	}

	next := core.NewDate(2024, 4, 15)
	paid := core.NewDate(2024, 3, 14)
	if err := repo.UpdateObligationSchedule(ctx, "ob-1", next.Ptr(), paid.Ptr()); err != nil {
		t.Fatalf("update schedule: %v", err)
	}

	got, err := repo.GetObligation(ctx, "ob-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.NextDueDate == nil || !got.NextDueDate.Equal(next) {
		t.Errorf("nextDueDate = %v, want %s", got.NextDueDate, next)
	}
	if got.LastPaidDate == nil || !got.LastPaidDate.Equal(paid) {
		t.Errorf("lastPaidDate = %v, want %s", got.LastPaidDate, paid)
	}

	// Clearing both fields stores NULLs.
	if err := repo.UpdateObligationSchedule(ctx, "ob-1", nil, nil); err != nil {
		t.Fatal(err)
	}
	got, err = repo.GetObligation(ctx, "ob-1")
	if err != nil {
		t.Fatal(err)
	}
	if got.NextDueDate != nil || got.LastPaidDate != nil {
		t.Errorf("schedule not cleared: %v / %v", got.NextDueDate, got.LastPaidDate)
	}

	if err := repo.UpdateObligationSchedule(ctx, "missing", nil, nil); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("missing id err = %v, want ErrNotFound", err)
	}
}

func TestSQLitePaymentRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	if err := repo.CreateObligation(ctx, testObligation("ob-1")); err != nil {
		t.Fatal(err)
	}

	p := core.Payment{
		ID:           "p-1",
		ObligationID: "ob-1",
		Amount:       core.Money{Cents: 2999},
		PaidDate:     core.NewDate(2024, 3, 14),
		DueDate:      core.NewDate(2024, 3, 15),
		Status:       core.StatusPaid,
		Note:         "paid via bank transfer",
		CreatedAt:    time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	if err := repo.CreatePayment(ctx, p); err != nil {
		t.Fatalf("create payment: %v", err)
	}

	got, err := repo.GetPayment(ctx, "p-1")
	if err != nil {
		t.Fatalf("get payment: %v", err)
	}
	if got.Status != p.Status || got.Note != p.Note || got.Amount.Cents != p.Amount.Cents {
		t.Errorf("got %+v, want %+v", got, p)
	}
	if !got.PaidDate.Equal(p.PaidDate) || !got.DueDate.Equal(p.DueDate) {
		t.Errorf("dates = %s/%s, want %s/%s", got.PaidDate, got.DueDate, p.PaidDate, p.DueDate)
	}
}

func TestSQLitePaymentZeroPaidDateStoredAsNull(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	if err := repo.CreateObligation(ctx, testObligation("ob-1")); err != nil {
		t.Fatal(err)
	}

	p := core.Payment{
		ID:           "p-1",
		ObligationID: "ob-1",
		Amount:       core.Money{Cents: 2999},
		DueDate:      core.NewDate(2024, 3, 15),
		Status:       core.StatusOverdue,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreatePayment(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetPayment(ctx, "p-1")
	if err != nil {
		t.Fatal(err)
	}
	if !got.PaidDate.IsZero() {
		t.Errorf("paidDate = %s, want zero", got.PaidDate)
	}
}

func TestSQLiteDeleteObligationCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	if err := repo.CreateObligation(ctx, testObligation("ob-1")); err != nil {
		t.Fatal(err)
	}
	p := core.Payment{
		ID:           "p-1",
		ObligationID: "ob-1",
		Amount:       core.Money{Cents: 2999},
		DueDate:      core.NewDate(2024, 3, 15),
		Status:       core.StatusOverdue,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreatePayment(ctx, p); err != nil {
		t.Fatal(err)
	}

	if err := repo.DeleteObligation(ctx, "ob-1"); err != nil {
		t.Fatalf("delete obligation: %v", err)
	}
	if _, err := repo.GetPayment(ctx, "p-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("payment survived cascade: %v", err)
	}
}

func TestSQLiteDeletePayment(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)
	if err := repo.CreateObligation(ctx, testObligation("ob-1")); err != nil {
		t.Fatal(err)
	}
	p := core.Payment{
		ID:           "p-1",
		ObligationID: "ob-1",
		Amount:       core.Money{Cents: 2999},
		DueDate:      core.NewDate(2024, 3, 15),
		Status:       core.StatusCancelled,
		CreatedAt:    time.Now().UTC(),
	}
	if err := repo.CreatePayment(ctx, p); err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.DeletePayment(ctx, "p-1")
	if err != nil || !deleted {
		t.Fatalf("delete = (%v, %v), want (true, nil)", deleted, err)
	}
	deleted, err = repo.DeletePayment(ctx, "p-1")
	if err != nil || deleted {
		t.Fatalf("second delete = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestSQLiteListDueObligations(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t)

	mk := func(id string, next *core.Date, active bool) {
		ob := testObligation(id)
		ob.NextDueDate = next
		ob.IsActive = active
		if err := repo.CreateObligation(ctx, ob); err != nil {
			t.Fatal(err)
		}
	}
	mk("due-1", core.NewDate(2024, 2, 15).Ptr(), true)
	mk("due-2", core.NewDate(2024, 3, 15).Ptr(), true)
	mk("future", core.NewDate(2024, 8, 15).Ptr(), true)
	mk("inactive", core.NewDate(2024, 2, 15).Ptr(), false)
	mk("unscheduled", nil, true)

	got, err := repo.ListDueObligations(ctx, core.NewDate(2024, 4, 1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].ID != "due-1" || got[1].ID != "due-2" {
		t.Errorf("order = %s, %s; want due-1, due-2", got[0].ID, got[1].ID)
	}
}
