package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"scadenze/internal/core"
	"scadenze/internal/services"
)

type recordPaymentRequest struct {
	Amount   string    `json:"amount"`
	PaidDate core.Date `json:"paidDate"`
	DueDate  core.Date `json:"dueDate"`
	Status   string    `json:"status"`
	Note     string    `json:"note"`
}

type updatePaymentRequest struct {
	Amount   *string    `json:"amount"`
	PaidDate *core.Date `json:"paidDate"`
	DueDate  *core.Date `json:"dueDate"`
	Status   *string    `json:"status"`
	Note     *string    `json:"note"`
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	obligationID := mux.Vars(r)["id"]
	if _, err := s.obligations.Get(r.Context(), obligationID); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := s.payments.ListForObligation(r.Context(), obligationID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []core.Payment{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	obligationID := mux.Vars(r)["id"]
	if _, err := s.obligations.Get(r.Context(), obligationID); err != nil {
		writeError(w, r, err)
		return
	}

	var req recordPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid amount: " + err.Error()})
		return
	}

	status := core.PaymentStatus(req.Status)
	if req.Status == "" {
		status = core.StatusPaid
	}

	p, err := s.payments.Record(r.Context(), services.RecordPaymentInput{
		ObligationID: obligationID,
		Amount:       core.Money{Cents: cents},
		PaidDate:     req.PaidDate,
		DueDate:      req.DueDate,
		Status:       status,
		Note:         sanitizeInput(req.Note),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.payments.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req updatePaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	in := services.UpdatePaymentInput{
		PaidDate: req.PaidDate,
		DueDate:  req.DueDate,
	}
	if req.Amount != nil {
		cents, err := core.ParseDecimalToCents(*req.Amount)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid amount: " + err.Error()})
			return
		}
		in.Amount = &core.Money{Cents: cents}
	}
	if req.Status != nil {
		status := core.PaymentStatus(*req.Status)
		in.Status = &status
	}
	if req.Note != nil {
		note := sanitizeInput(*req.Note)
		in.Note = &note
	}

	p, err := s.payments.Update(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	deleted, err := s.payments.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "payment not found"})
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
