package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scadenze/internal/core"
)

// Store is the narrow persistence contract the reconciler operates through.
// UpdateObligationSchedule must write both schedule fields in a single
// atomic operation; readers never observe one field updated without the
// other.
type Store interface {
	GetObligation(ctx context.Context, id string) (*core.Obligation, error)
	UpdateObligationSchedule(ctx context.Context, id string, next, lastPaid *core.Date) error
	PaymentsForObligation(ctx context.Context, obligationID string) ([]core.Payment, error)
}

// State is the schedule outcome of a reconciliation. Nil means "no date".
type State struct {
	NextDue  *core.Date
	LastPaid *core.Date
}

// Reconciler recomputes an obligation's nextDueDate and lastPaidDate when
// payments are recorded, edited or deleted. Payments referencing a deleted,
// inactive or one_time obligation are silent no-ops, never errors: the
// payment record itself remains valid standalone data.
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// PaymentRecorded advances the schedule after a paid payment was inserted.
// The next occurrence resumes the cycle from the day after the due-date
// instance the payment satisfied. Returns the persisted state and whether an
// update was applied.
func (r *Reconciler) PaymentRecorded(ctx context.Context, p core.Payment) (State, bool, error) {
	if p.Status != core.StatusPaid {
		return State{}, false, nil
	}

	ob, err := r.store.GetObligation(ctx, p.ObligationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("get obligation %s: %w", p.ObligationID, err)
	}
	if exempt(ob) {
		return currentState(ob), false, nil
	}

	// Payments can be backfilled for instances earlier than one already
	// paid; the paid payment with the latest due date anchors the cycle,
	// never the most recently inserted row.
	latest := &p
	payments, err := r.store.PaymentsForObligation(ctx, ob.ID)
	if err != nil {
		return State{}, false, fmt.Errorf("list payments for %s: %w", ob.ID, err)
	}
	if lp := latestPaid(payments); lp != nil && lp.DueDate.After(p.DueDate) {
		latest = lp
	}

	anchor := latest.DueDate.AddDays(1)
	st := State{LastPaid: latest.PaidDate.Ptr()}
	if next, ok := NextDueDate(ob.Frequency, ob.DueDay, anchor, anchor); ok {
		st.NextDue = next.Ptr()
	}

	if err := r.persist(ctx, ob.ID, st); err != nil {
		return State{}, false, err
	}
	slog.InfoContext(ctx, "Schedule advanced after payment",
		"obligation_id", ob.ID,
		"paid_due_date", p.DueDate.String(),
		"next_due", dateString(st.NextDue))
	return st, true, nil
}

// PaymentStatusChanged reconciles a status edit. A payment leaving paid
// status no longer counts, so the schedule is rebuilt from the remaining
// history; a payment entering paid status is treated as freshly recorded.
func (r *Reconciler) PaymentStatusChanged(ctx context.Context, p core.Payment, oldStatus, newStatus core.PaymentStatus, today core.Date) (State, bool, error) {
	switch {
	case oldStatus == core.StatusPaid && newStatus != core.StatusPaid:
		return r.Rebuild(ctx, p.ObligationID, today)
	case oldStatus != core.StatusPaid && newStatus == core.StatusPaid:
		return r.PaymentRecorded(ctx, p)
	default:
		// Transitions between non-paid statuses never affected the schedule.
		return State{}, false, nil
	}
}

// PaymentDeleted reconciles after a payment row was removed. Only paid
// payments ever contributed schedule state, so deleting an overdue or
// cancelled record is a no-op.
func (r *Reconciler) PaymentDeleted(ctx context.Context, deleted core.Payment, today core.Date) (State, bool, error) {
	if deleted.Status != core.StatusPaid {
		return State{}, false, nil
	}
	return r.Rebuild(ctx, deleted.ObligationID, today)
}

// Rebuild derives schedule state fresh from the complete current payment set
// rather than reversing a specific mutation: payment edits can arrive out of
// order, and only the surviving history determines the cycle position. With
// paid payments remaining, the one with the latest due date anchors the
// cycle; with none, the obligation returns to its pristine never-paid state.
func (r *Reconciler) Rebuild(ctx context.Context, obligationID string, today core.Date) (State, bool, error) {
	ob, err := r.store.GetObligation(ctx, obligationID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return State{}, false, nil
		}
		return State{}, false, fmt.Errorf("get obligation %s: %w", obligationID, err)
	}
	if exempt(ob) {
		return currentState(ob), false, nil
	}

	payments, err := r.store.PaymentsForObligation(ctx, ob.ID)
	if err != nil {
		return State{}, false, fmt.Errorf("list payments for %s: %w", ob.ID, err)
	}

	var st State
	if latest := latestPaid(payments); latest != nil {
		anchor := latest.DueDate.AddDays(1)
		st.LastPaid = latest.PaidDate.Ptr()
		if next, ok := NextDueDate(ob.Frequency, ob.DueDay, anchor, anchor); ok {
			st.NextDue = next.Ptr()
		}
	} else if next, ok := NextDueDate(ob.Frequency, ob.DueDay, ob.AnchorDate, today); ok {
		st.NextDue = next.Ptr()
	}

	if err := r.persist(ctx, ob.ID, st); err != nil {
		return State{}, false, err
	}
	slog.InfoContext(ctx, "Schedule rebuilt from payment history",
		"obligation_id", ob.ID,
		"next_due", dateString(st.NextDue),
		"last_paid", dateString(st.LastPaid))
	return st, true, nil
}

func (r *Reconciler) persist(ctx context.Context, obligationID string, st State) error {
	if err := r.store.UpdateObligationSchedule(ctx, obligationID, st.NextDue, st.LastPaid); err != nil {
		return fmt.Errorf("update schedule for %s: %w", obligationID, err)
	}
	return nil
}

// exempt reports whether the obligation carries no recurrence schedule.
func exempt(ob *core.Obligation) bool {
	return !ob.IsActive || !ob.Frequency.Recurring()
}

func currentState(ob *core.Obligation) State {
	return State{NextDue: ob.NextDueDate, LastPaid: ob.LastPaidDate}
}

// latestPaid returns the paid payment with the greatest due date, nil if
// none. The due date, not the paid date, determines cycle position.
func latestPaid(payments []core.Payment) *core.Payment {
	var best *core.Payment
	for i := range payments {
		p := &payments[i]
		if p.Status != core.StatusPaid {
			continue
		}
		if best == nil || p.DueDate.After(best.DueDate) {
			best = p
		}
	}
	return best
}

func dateString(d *core.Date) string {
	if d == nil {
		return "none"
	}
	return d.String()
}
