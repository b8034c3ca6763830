package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly    Frequency = "monthly"
	Quarterly  Frequency = "quarterly"
	HalfYearly Frequency = "half_yearly"
	Yearly     Frequency = "yearly"
	OneTime    Frequency = "one_time"
)

const (
	StatusPaid      PaymentStatus = "paid"
	StatusOverdue   PaymentStatus = "overdue"
	StatusCancelled PaymentStatus = "cancelled"
)

const (
	KindInvestment ObligationKind = "investment"
	KindBill       ObligationKind = "bill"
)

type (
	// Frequency is the recurrence cycle of an obligation.
	Frequency string

	// PaymentStatus tracks whether a payment record counts toward the schedule.
	PaymentStatus string

	// ObligationKind distinguishes the two obligation families of the tracker.
	ObligationKind string

	Money struct {
		Cents int64 `json:"cents"`
	}

	// Obligation is a recurring or one-time financial commitment with a
	// due-date schedule. NextDueDate and LastPaidDate are derived state owned
	// by the schedule engine; nil means "no date".
	Obligation struct {
		ID           string         `json:"id"`
		Name         string         `json:"name"`
		Kind         ObligationKind `json:"kind"`
		Frequency    Frequency      `json:"frequency"`
		DueDay       int            `json:"dueDay,omitempty"`
		Amount       Money          `json:"amount"`
		AnchorDate   Date           `json:"anchorDate"`
		NextDueDate  *Date          `json:"nextDueDate"`
		LastPaidDate *Date          `json:"lastPaidDate"`
		IsActive     bool           `json:"isActive"`
		CreatedAt    time.Time      `json:"createdAt"`
		UpdatedAt    time.Time      `json:"updatedAt"`
	}

	// Payment is a record attributed to an obligation. DueDate is the schedule
	// instance the payment satisfies; PaidDate stays zero until the payment is
	// actually made (overdue and cancelled records).
	Payment struct {
		ID           string        `json:"id"`
		ObligationID string        `json:"obligationId"`
		Amount       Money         `json:"amount"`
		PaidDate     Date          `json:"paidDate"`
		DueDate      Date          `json:"dueDate"`
		Status       PaymentStatus `json:"status"`
		Note         string        `json:"note,omitempty"`
		CreatedAt    time.Time     `json:"createdAt"`
	}
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidKind      = errors.New("invalid obligation kind")
	ErrMissingDueDay    = errors.New("missing due day")
	ErrInvalidDueDay    = errors.New("invalid due day")
	ErrInvalidStatus    = errors.New("invalid payment status")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
)

func (f Frequency) Valid() bool {
	switch f {
	case Monthly, Quarterly, HalfYearly, Yearly, OneTime:
		return true
	default:
		return false
	}
}

// Recurring reports whether f produces a due-date schedule.
func (f Frequency) Recurring() bool {
	return f.Valid() && f != OneTime
}

func (s PaymentStatus) Valid() bool {
	switch s {
	case StatusPaid, StatusOverdue, StatusCancelled:
		return true
	default:
		return false
	}
}

func (k ObligationKind) Valid() bool {
	switch k {
	case KindInvestment, KindBill:
		return true
	default:
		return false
	}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (o Obligation) Validate() error {
	if len(strings.TrimSpace(o.Name)) == 0 {
		return ErrEmptyName
	}
	if len(o.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	if !o.Kind.Valid() {
		return ErrInvalidKind
	}
	if !o.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	if o.Frequency.Recurring() {
		if o.DueDay == 0 {
			return ErrMissingDueDay
		}
		if o.DueDay < 1 || o.DueDay > 31 {
			return ErrInvalidDueDay
		}
	}
	if err := o.AnchorDate.Validate(); err != nil {
		return errors.New("invalid anchor date: " + err.Error())
	}
	return o.Amount.Validate()
}

func (p Payment) Validate() error {
	if strings.TrimSpace(p.ObligationID) == "" {
		return errors.New("missing obligation id")
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if err := p.DueDate.Validate(); err != nil {
		return errors.New("invalid due date: " + err.Error())
	}
	if p.Status == StatusPaid && p.PaidDate.IsZero() {
		return errors.New("paid payment requires a paid date")
	}
	if len(p.Note) > 200 {
		return errors.New("note too long (max 200 characters)")
	}
	return p.Amount.Validate()
}
