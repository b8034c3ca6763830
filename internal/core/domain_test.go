package core

import (
	"errors"
	"testing"
)

func validObligation() Obligation {
	return Obligation{
		ID:         "ob-1",
		Name:       "internet bill",
		Kind:       KindBill,
		Frequency:  Monthly,
		DueDay:     15,
		Amount:     Money{Cents: 2999},
		AnchorDate: NewDate(2024, 1, 15),
		IsActive:   true,
	}
}

func TestObligationValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Obligation)
		wantErr error
	}{
		{"valid", func(o *Obligation) {}, nil},
		{"empty name", func(o *Obligation) { o.Name = "  " }, ErrEmptyName},
		{"invalid kind", func(o *Obligation) { o.Kind = "subscription" }, ErrInvalidKind},
		{"invalid frequency", func(o *Obligation) { o.Frequency = "weekly" }, ErrInvalidFrequency},
		{"recurring without due day", func(o *Obligation) { o.DueDay = 0 }, ErrMissingDueDay},
		{"due day out of range", func(o *Obligation) { o.DueDay = 32 }, ErrInvalidDueDay},
		{"zero amount", func(o *Obligation) { o.Amount = Money{} }, ErrInvalidAmount},
		{"one_time needs no due day", func(o *Obligation) {
			o.Frequency = OneTime
			o.DueDay = 0
		}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ob := validObligation()
			tt.mutate(&ob)
			err := ob.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestObligationValidateAnchorRequired(t *testing.T) {
	ob := validObligation()
	ob.AnchorDate = Date{}
	if err := ob.Validate(); err == nil {
		t.Error("expected error for zero anchor date")
	}
}

func TestPaymentValidate(t *testing.T) {
	valid := Payment{
		ID:           "p-1",
		ObligationID: "ob-1",
		Amount:       Money{Cents: 2999},
		PaidDate:     NewDate(2024, 1, 16),
		DueDate:      NewDate(2024, 1, 15),
		Status:       StatusPaid,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid payment rejected: %v", err)
	}

	t.Run("missing obligation id", func(t *testing.T) {
		p := valid
		p.ObligationID = ""
		if err := p.Validate(); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("invalid status", func(t *testing.T) {
		p := valid
		p.Status = "pending"
		if !errors.Is(p.Validate(), ErrInvalidStatus) {
			t.Error("expected ErrInvalidStatus")
		}
	})
	t.Run("paid without paid date", func(t *testing.T) {
		p := valid
		p.PaidDate = Date{}
		if err := p.Validate(); err == nil {
			t.Error("expected error")
		}
	})
	t.Run("overdue without paid date is fine", func(t *testing.T) {
		p := valid
		p.Status = StatusOverdue
		p.PaidDate = Date{}
		if err := p.Validate(); err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
	})
	t.Run("missing due date", func(t *testing.T) {
		p := valid
		p.DueDate = Date{}
		if err := p.Validate(); err == nil {
			t.Error("expected error")
		}
	})
}

func TestFrequencyRecurring(t *testing.T) {
	recurring := []Frequency{Monthly, Quarterly, HalfYearly, Yearly}
	for _, f := range recurring {
		if !f.Recurring() {
			t.Errorf("%s must be recurring", f)
		}
	}
	if OneTime.Recurring() {
		t.Error("one_time must not be recurring")
	}
	if Frequency("weekly").Recurring() {
		t.Error("unknown frequency must not be recurring")
	}
}
