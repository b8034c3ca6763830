// Package services provides the business logic orchestrating storage, the
// schedule engine and event publishing.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"scadenze/internal/amqp"
	"scadenze/internal/core"
	"scadenze/internal/schedule"
)

// PaymentService handles payment mutations and triggers schedule
// reconciliation on the ones that affect derived state.
type PaymentService struct {
	store      Store
	amqpClient *amqp.Client
	reconciler *schedule.Reconciler
	now        func() time.Time
}

func NewPaymentService(store Store, amqpClient *amqp.Client) *PaymentService {
	return &PaymentService{
		store:      store,
		amqpClient: amqpClient,
		reconciler: schedule.NewReconciler(store),
		now:        time.Now,
	}
}

// WithClock overrides the service clock. Test hook.
func (s *PaymentService) WithClock(now func() time.Time) *PaymentService {
	s.now = now
	return s
}

type RecordPaymentInput struct {
	ObligationID string
	Amount       core.Money
	PaidDate     core.Date
	DueDate      core.Date
	Status       core.PaymentStatus
	Note         string
}

// Record inserts a payment and, when it is paid, advances the obligation's
// schedule past the satisfied due-date instance.
func (s *PaymentService) Record(ctx context.Context, in RecordPaymentInput) (core.Payment, error) {
	p := core.Payment{
		ID:           uuid.NewString(),
		ObligationID: in.ObligationID,
		Amount:       in.Amount,
		PaidDate:     in.PaidDate,
		DueDate:      in.DueDate,
		Status:       in.Status,
		Note:         in.Note,
		CreatedAt:    s.now(),
	}
	if err := p.Validate(); err != nil {
		return core.Payment{}, err
	}

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return core.Payment{}, fmt.Errorf("save payment: %w", err)
	}

	if p.Status == core.StatusPaid {
		if _, _, err := s.reconciler.PaymentRecorded(ctx, p); err != nil {
			return core.Payment{}, fmt.Errorf("reconcile schedule: %w", err)
		}
	}

	s.publish(ctx, amqp.EventPaymentRecorded, p.ObligationID, p.ID)
	return p, nil
}

// UpdatePaymentInput carries partial edits; nil fields stay unchanged.
type UpdatePaymentInput struct {
	Amount   *core.Money
	PaidDate *core.Date
	DueDate  *core.Date
	Status   *core.PaymentStatus
	Note     *string
}

// Update applies the edits and reconciles the schedule when the status
// crossed the paid boundary, or when the dates of a still-paid payment
// moved (the cycle position may have shifted).
func (s *PaymentService) Update(ctx context.Context, id string, in UpdatePaymentInput) (*core.Payment, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	oldStatus := p.Status
	datesDirty := false

	if in.Amount != nil {
		p.Amount = *in.Amount
	}
	if in.PaidDate != nil && !in.PaidDate.Equal(p.PaidDate) {
		p.PaidDate = *in.PaidDate
		datesDirty = true
	}
	if in.DueDate != nil && !in.DueDate.Equal(p.DueDate) {
		p.DueDate = *in.DueDate
		datesDirty = true
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	if in.Note != nil {
		p.Note = *in.Note
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePayment(ctx, *p); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}

	switch {
	case oldStatus != p.Status:
		if _, _, err := s.reconciler.PaymentStatusChanged(ctx, *p, oldStatus, p.Status, s.today()); err != nil {
			return nil, fmt.Errorf("reconcile schedule: %w", err)
		}
	case p.Status == core.StatusPaid && datesDirty:
		if _, _, err := s.reconciler.Rebuild(ctx, p.ObligationID, s.today()); err != nil {
			return nil, fmt.Errorf("reconcile schedule: %w", err)
		}
	}

	s.publish(ctx, amqp.EventPaymentUpdated, p.ObligationID, p.ID)
	return p, nil
}

// Delete removes the payment and restores the obligation to the state it
// would be in had the payment never existed. Returns false when the payment
// was already gone.
func (s *PaymentService) Delete(ctx context.Context, id string) (bool, error) {
	p, err := s.store.GetPayment(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.store.DeletePayment(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete payment: %w", err)
	}
	if !deleted {
		return false, nil
	}

	if _, _, err := s.reconciler.PaymentDeleted(ctx, *p, s.today()); err != nil {
		return true, fmt.Errorf("reconcile schedule: %w", err)
	}

	s.publish(ctx, amqp.EventPaymentDeleted, p.ObligationID, p.ID)
	slog.InfoContext(ctx, "Payment deleted", "id", id, "obligation_id", p.ObligationID)
	return true, nil
}

func (s *PaymentService) Get(ctx context.Context, id string) (*core.Payment, error) {
	return s.store.GetPayment(ctx, id)
}

// ListForObligation returns all payments attributed to the obligation,
// ordered by due date.
func (s *PaymentService) ListForObligation(ctx context.Context, obligationID string) ([]core.Payment, error) {
	return s.store.PaymentsForObligation(ctx, obligationID)
}

func (s *PaymentService) today() core.Date {
	return core.DateOf(s.now())
}

func (s *PaymentService) publish(ctx context.Context, t amqp.EventType, obligationID, paymentID string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishScheduleEvent(ctx, amqp.NewScheduleEvent(t, obligationID, paymentID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish schedule event",
			"type", string(t), "obligation_id", obligationID, "error", err)
	}
}
