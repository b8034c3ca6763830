package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"scadenze/internal/core"
	"scadenze/internal/services"
)

type createObligationRequest struct {
	Name       string     `json:"name"`
	Kind       string     `json:"kind"`
	Frequency  string     `json:"frequency"`
	DueDay     int        `json:"dueDay"`
	Amount     string     `json:"amount"`
	AnchorDate *core.Date `json:"anchorDate"`
}

type updateObligationRequest struct {
	Name       *string    `json:"name"`
	Kind       *string    `json:"kind"`
	Frequency  *string    `json:"frequency"`
	DueDay     *int       `json:"dueDay"`
	Amount     *string    `json:"amount"`
	AnchorDate *core.Date `json:"anchorDate"`
	IsActive   *bool      `json:"isActive"`
}

func (s *Server) handleListObligations(w http.ResponseWriter, r *http.Request) {
	items, err := s.obligations.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Obligation{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateObligation(w http.ResponseWriter, r *http.Request) {
	var req createObligationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid amount: " + err.Error()})
		return
	}

	in := services.CreateObligationInput{
		Name:      sanitizeInput(req.Name),
		Kind:      core.ObligationKind(req.Kind),
		Frequency: core.Frequency(req.Frequency),
		DueDay:    req.DueDay,
		Amount:    core.Money{Cents: cents},
	}
	if req.AnchorDate != nil {
		in.AnchorDate = *req.AnchorDate
	}

	ob, err := s.obligations.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ob)
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	ob, err := s.obligations.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ob)
}

func (s *Server) handleUpdateObligation(w http.ResponseWriter, r *http.Request) {
	var req updateObligationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	in := services.UpdateObligationInput{
		DueDay:     req.DueDay,
		AnchorDate: req.AnchorDate,
		IsActive:   req.IsActive,
	}
	if req.Name != nil {
		name := sanitizeInput(*req.Name)
		in.Name = &name
	}
	if req.Kind != nil {
		kind := core.ObligationKind(*req.Kind)
		in.Kind = &kind
	}
	if req.Frequency != nil {
		freq := core.Frequency(*req.Frequency)
		in.Frequency = &freq
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid amount: " + err.Error()})
			return
		}
		in.Amount = &core.Money{Cents: cents}
	}

	ob, err := s.obligations.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ob)
}

func (s *Server) handleDeleteObligation(w http.ResponseWriter, r *http.Request) {
	if err := s.obligations.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
