package services

import (
	"context"

	"scadenze/internal/core"
	"scadenze/internal/schedule"
)

// Store is the persistence contract the services require. It subsumes the
// reconciler's narrower schedule.Store; both the SQLite repository and the
// in-memory store implement it.
type Store interface {
	schedule.Store

	CreateObligation(ctx context.Context, ob core.Obligation) error
	ListObligations(ctx context.Context) ([]core.Obligation, error)
	ListDueObligations(ctx context.Context, before core.Date) ([]core.Obligation, error)
	UpdateObligation(ctx context.Context, ob core.Obligation) error
	DeleteObligation(ctx context.Context, id string) error

	CreatePayment(ctx context.Context, p core.Payment) error
	GetPayment(ctx context.Context, id string) (*core.Payment, error)
	UpdatePayment(ctx context.Context, p core.Payment) error
	DeletePayment(ctx context.Context, id string) (bool, error)
}
