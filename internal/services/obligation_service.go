package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scadenze/internal/amqp"
	"scadenze/internal/core"
	"scadenze/internal/schedule"
)

// ObligationService owns obligation CRUD and keeps derived schedule state
// consistent across edits. The clock is injected so tests can supply fixed
// dates.
type ObligationService struct {
	store      Store
	amqpClient *amqp.Client
	reconciler *schedule.Reconciler
	now        func() time.Time
}

func NewObligationService(store Store, amqpClient *amqp.Client) *ObligationService {
	return &ObligationService{
		store:      store,
		amqpClient: amqpClient,
		reconciler: schedule.NewReconciler(store),
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *ObligationService) WithClock(now func() time.Time) *ObligationService {
	s.now = now
	return s
}

type CreateObligationInput struct {
	Name       string
	Kind       core.ObligationKind
	Frequency  core.Frequency
	DueDay     int
	Amount     core.Money
	AnchorDate core.Date // zero means "today"
}

// Create validates and stores a new obligation, initializing NextDueDate to
// the first recurrence on or after today.
func (s *ObligationService) Create(ctx context.Context, in CreateObligationInput) (core.Obligation, error) {
	now := s.now()
	today := core.DateOf(now)

	anchor := in.AnchorDate
	if anchor.IsZero() {
		anchor = today
	}

	ob := core.Obligation{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Kind:       in.Kind,
		Frequency:  in.Frequency,
		DueDay:     in.DueDay,
		Amount:     in.Amount,
		AnchorDate: anchor,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := ob.Validate(); err != nil {
		return core.Obligation{}, err
	}

	if next, ok := schedule.NextDueDate(ob.Frequency, ob.DueDay, ob.AnchorDate, today); ok {
		ob.NextDueDate = next.Ptr()
	}

	if err := s.store.CreateObligation(ctx, ob); err != nil {
		return core.Obligation{}, fmt.Errorf("save obligation: %w", err)
	}

	s.publish(ctx, amqp.EventObligationCreated, ob.ID, "")
	slog.InfoContext(ctx, "Obligation created",
		"id", ob.ID,
		"name", ob.Name,
		"frequency", string(ob.Frequency),
		"next_due", nextDueString(ob.NextDueDate))
	return ob, nil
}

func (s *ObligationService) Get(ctx context.Context, id string) (*core.Obligation, error) {
	return s.store.GetObligation(ctx, id)
}

func (s *ObligationService) List(ctx context.Context) ([]core.Obligation, error) {
	return s.store.ListObligations(ctx)
}

// UpdateObligationInput carries partial edits; nil fields stay unchanged.
type UpdateObligationInput struct {
	Name       *string
	Kind       *core.ObligationKind
	Frequency  *core.Frequency
	DueDay     *int
	Amount     *core.Money
	AnchorDate *core.Date
	IsActive   *bool
}

// Update applies the edits and, when a schedule-affecting field changed
// (frequency, dueDay, anchor, isActive), re-derives NextDueDate and
// LastPaidDate from the obligation's full payment history. Deactivated and
// one_time obligations carry no next due date.
func (s *ObligationService) Update(ctx context.Context, id string, in UpdateObligationInput) (*core.Obligation, error) {
	ob, err := s.store.GetObligation(ctx, id)
	if err != nil {
		return nil, err
	}

	scheduleDirty := false
	if in.Name != nil {
		ob.Name = *in.Name
	}
	if in.Kind != nil {
		ob.Kind = *in.Kind
	}
	if in.Frequency != nil && *in.Frequency != ob.Frequency {
		ob.Frequency = *in.Frequency
		scheduleDirty = true
	}
	if in.DueDay != nil && *in.DueDay != ob.DueDay {
		ob.DueDay = *in.DueDay
		scheduleDirty = true
	}
	if in.Amount != nil {
		ob.Amount = *in.Amount
	}
	if in.AnchorDate != nil && !in.AnchorDate.Equal(ob.AnchorDate) {
		ob.AnchorDate = *in.AnchorDate
		scheduleDirty = true
	}
	if in.IsActive != nil && *in.IsActive != ob.IsActive {
		ob.IsActive = *in.IsActive
		scheduleDirty = true
	}

	if err := ob.Validate(); err != nil {
		return nil, err
	}
	ob.UpdatedAt = s.now()

	if err := s.store.UpdateObligation(ctx, *ob); err != nil {
		return nil, fmt.Errorf("update obligation: %w", err)
	}

	if scheduleDirty {
		if ob.IsActive && ob.Frequency.Recurring() {
			st, changed, err := s.reconciler.Rebuild(ctx, ob.ID, s.today())
			if err != nil {
				return nil, fmt.Errorf("rebuild schedule: %w", err)
			}
			if changed {
				ob.NextDueDate = st.NextDue
				ob.LastPaidDate = st.LastPaid
			}
		} else {
			// Inactive and one_time obligations never owe a next occurrence;
			// lastPaidDate stays derived from the payment history.
			if err := s.store.UpdateObligationSchedule(ctx, ob.ID, nil, ob.LastPaidDate); err != nil {
				return nil, fmt.Errorf("clear schedule: %w", err)
			}
			ob.NextDueDate = nil
		}
	}

	slog.InfoContext(ctx, "Obligation updated", "id", ob.ID, "schedule_recomputed", scheduleDirty)
	return ob, nil
}

// Delete removes the obligation and all payments recorded against it.
func (s *ObligationService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteObligation(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, amqp.EventObligationDeleted, id, "")
	slog.InfoContext(ctx, "Obligation deleted", "id", id)
	return nil
}

func (s *ObligationService) today() core.Date {
	return core.DateOf(s.now())
}

func (s *ObligationService) publish(ctx context.Context, t amqp.EventType, obligationID, paymentID string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishScheduleEvent(ctx, amqp.NewScheduleEvent(t, obligationID, paymentID)); err != nil {
		// The write already succeeded locally; never fail the request over
		// a notification.
		slog.ErrorContext(ctx, "Failed to publish schedule event",
			"type", string(t), "obligation_id", obligationID, "error", err)
	}
}

func nextDueString(d *core.Date) string {
	if d == nil {
		return "none"
	}
	return d.String()
}
