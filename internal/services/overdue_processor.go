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

// maxCatchUpInstances caps how many missed occurrences one scan will
// materialize per obligation, so an obligation dormant for years cannot
// flood the payment table in a single pass.
const maxCatchUpInstances = 48

// OverdueProcessor materializes overdue payment records for due-date
// instances that passed without a payment, and advances the obligation's
// schedule past them. Runs from the overdue-worker binary.
type OverdueProcessor struct {
	store      Store
	amqpClient *amqp.Client
}

func NewOverdueProcessor(store Store, amqpClient *amqp.Client) *OverdueProcessor {
	return &OverdueProcessor{store: store, amqpClient: amqpClient}
}

// ProcessOverdue scans active obligations whose next due date lies before
// today and creates an overdue payment for each missed instance that has no
// payment record yet. Returns the number of overdue records created.
func (p *OverdueProcessor) ProcessOverdue(ctx context.Context, now time.Time) (int, error) {
	today := core.DateOf(now)

	obligations, err := p.store.ListDueObligations(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("list due obligations: %w", err)
	}

	slog.InfoContext(ctx, "Processing overdue obligations",
		"total_due", len(obligations),
		"processing_date", today.String())

	created := 0
	for _, ob := range obligations {
		n, err := p.processObligation(ctx, ob, today, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to process overdue obligation",
				"id", ob.ID, "error", err)
			continue
		}
		created += n
	}

	slog.InfoContext(ctx, "Overdue processing complete",
		"created", created,
		"total_checked", len(obligations))
	return created, nil
}

func (p *OverdueProcessor) processObligation(ctx context.Context, ob core.Obligation, today core.Date, now time.Time) (int, error) {
	payments, err := p.store.PaymentsForObligation(ctx, ob.ID)
	if err != nil {
		return 0, fmt.Errorf("list payments: %w", err)
	}
	recorded := make(map[string]bool, len(payments))
	for _, pay := range payments {
		recorded[pay.DueDate.String()] = true
	}

	created := 0
	next := ob.NextDueDate
	for i := 0; i < maxCatchUpInstances && next != nil && next.Before(today); i++ {
		due := *next

		// An instance with any existing record (paid early, cancelled,
		// already marked) is skipped but the schedule still moves past it.
		if !recorded[due.String()] {
			pay := core.Payment{
				ID:           uuid.NewString(),
				ObligationID: ob.ID,
				Amount:       ob.Amount,
				DueDate:      due,
				Status:       core.StatusOverdue,
				CreatedAt:    now,
			}
			if err := p.store.CreatePayment(ctx, pay); err != nil {
				return created, fmt.Errorf("create overdue payment: %w", err)
			}
			p.publish(ctx, ob.ID, pay.ID)
			created++
			slog.InfoContext(ctx, "Marked due date as overdue",
				"obligation_id", ob.ID,
				"due_date", due.String(),
				"amount_cents", ob.Amount.Cents)
		}

		anchor := due.AddDays(1)
		if n, ok := schedule.NextDueDate(ob.Frequency, ob.DueDay, anchor, anchor); ok {
			next = n.Ptr()
		} else {
			next = nil
		}
	}

	if !sameDate(next, ob.NextDueDate) {
		if err := p.store.UpdateObligationSchedule(ctx, ob.ID, next, ob.LastPaidDate); err != nil {
			return created, fmt.Errorf("advance schedule: %w", err)
		}
	}
	return created, nil
}

func (p *OverdueProcessor) publish(ctx context.Context, obligationID, paymentID string) {
	if p.amqpClient == nil {
		return
	}
	ev := amqp.NewScheduleEvent(amqp.EventPaymentOverdue, obligationID, paymentID)
	if err := p.amqpClient.PublishScheduleEvent(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to publish overdue event",
			"obligation_id", obligationID, "error", err)
	}
}

func sameDate(a, b *core.Date) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
