package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names the schedule mutations published to the exchange.
type EventType string

const (
	EventObligationCreated EventType = "obligation.created"
	EventObligationDeleted EventType = "obligation.deleted"
	EventPaymentRecorded   EventType = "payment.recorded"
	EventPaymentUpdated    EventType = "payment.updated"
	EventPaymentDeleted    EventType = "payment.deleted"
	EventPaymentOverdue    EventType = "payment.overdue"
)

// ScheduleEvent notifies downstream consumers that an obligation's schedule
// state may have changed. Consumers re-read authoritative state; the event
// carries identifiers only.
type ScheduleEvent struct {
	Type         EventType `json:"type"`
	ObligationID string    `json:"obligation_id"`
	PaymentID    string    `json:"payment_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewScheduleEvent(t EventType, obligationID, paymentID string) ScheduleEvent {
	return ScheduleEvent{
		Type:         t,
		ObligationID: obligationID,
		PaymentID:    paymentID,
		OccurredAt:   time.Now().UTC(),
	}
}

func (e ScheduleEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func ScheduleEventFromJSON(data []byte) (*ScheduleEvent, error) {
	var e ScheduleEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal schedule event: %w", err)
	}
	if e.Type == "" || e.ObligationID == "" {
		return nil, fmt.Errorf("schedule event missing type or obligation id")
	}
	return &e, nil
}
