// Package memory provides a map-backed store for development and tests. It
// implements the same contract as the SQLite repository, guarded by a
// read-write mutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"scadenze/internal/core"
)

type Store struct {
	mu          sync.RWMutex
	obligations map[string]core.Obligation
	payments    map[string]core.Payment
}

func NewStore() *Store {
	return &Store{
		obligations: make(map[string]core.Obligation),
		payments:    make(map[string]core.Payment),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateObligation(_ context.Context, ob core.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.obligations[ob.ID]; exists {
		return fmt.Errorf("obligation %s already exists", ob.ID)
	}
	s.obligations[ob.ID] = cloneObligation(ob)
	return nil
}

func (s *Store) GetObligation(_ context.Context, id string) (*core.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ob, ok := s.obligations[id]
	if !ok {
		return nil, fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	out := cloneObligation(ob)
	return &out, nil
}

func (s *Store) ListObligations(_ context.Context) ([]core.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Obligation, 0, len(s.obligations))
	for _, ob := range s.obligations {
		out = append(out, cloneObligation(ob))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListDueObligations(_ context.Context, before core.Date) ([]core.Obligation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Obligation
	for _, ob := range s.obligations {
		if ob.IsActive && ob.NextDueDate != nil && ob.NextDueDate.Before(before) {
			out = append(out, cloneObligation(ob))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NextDueDate.Equal(*out[j].NextDueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].NextDueDate.Before(*out[j].NextDueDate)
	})
	return out, nil
}

func (s *Store) UpdateObligation(_ context.Context, ob core.Obligation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[ob.ID]; !ok {
		return fmt.Errorf("obligation %s: %w", ob.ID, core.ErrNotFound)
	}
	s.obligations[ob.ID] = cloneObligation(ob)
	return nil
}

func (s *Store) UpdateObligationSchedule(_ context.Context, id string, next, lastPaid *core.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ob, ok := s.obligations[id]
	if !ok {
		return fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	ob.NextDueDate = cloneDate(next)
	ob.LastPaidDate = cloneDate(lastPaid)
	s.obligations[id] = ob
	return nil
}

func (s *Store) DeleteObligation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.obligations[id]; !ok {
		return fmt.Errorf("obligation %s: %w", id, core.ErrNotFound)
	}
	delete(s.obligations, id)
	// Payments cascade, matching the SQLite foreign key.
	for pid, p := range s.payments {
		if p.ObligationID == id {
			delete(s.payments, pid)
		}
	}
	return nil
}

func (s *Store) CreatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.payments[p.ID]; exists {
		return fmt.Errorf("payment %s already exists", p.ID)
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) GetPayment(_ context.Context, id string) (*core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", id, core.ErrNotFound)
	}
	return &p, nil
}

func (s *Store) UpdatePayment(_ context.Context, p core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[p.ID]; !ok {
		return fmt.Errorf("payment %s: %w", p.ID, core.ErrNotFound)
	}
	s.payments[p.ID] = p
	return nil
}

func (s *Store) DeletePayment(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.payments[id]; !ok {
		return false, nil
	}
	delete(s.payments, id)
	return true, nil
}

func (s *Store) PaymentsForObligation(_ context.Context, obligationID string) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []core.Payment
	for _, p := range s.payments {
		if p.ObligationID == obligationID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.Before(out[j].DueDate)
	})
	return out, nil
}

// cloneObligation copies the struct including its pointer-typed schedule
// fields, so callers can never mutate stored state through a returned value.
func cloneObligation(ob core.Obligation) core.Obligation {
	out := ob
	out.NextDueDate = cloneDate(ob.NextDueDate)
	out.LastPaidDate = cloneDate(ob.LastPaidDate)
	return out
}

func cloneDate(d *core.Date) *core.Date {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
