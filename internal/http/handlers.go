package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"caja/internal/services"
)

// Handler carries the collaborators every route needs.
type Handler struct {
	svc    *services.LedgerService
	parser *RequestParser
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Summary())
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Members())
}

func (h *Handler) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	var req createMemberRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	m, err := h.svc.AddMember(r.Context(), req.Name, decimal.NewFromFloat(req.WeeklyGoal))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var req updateMemberRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	if err := h.svc.UpdateMember(r.Context(), r.PathValue("memberID"), req.Name, decimal.NewFromFloat(req.WeeklyGoal)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMember(r.Context(), r.PathValue("memberID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleCreateDeposit(w http.ResponseWriter, r *http.Request) {
	var req createDepositRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	d, err := h.svc.AddDeposit(r.Context(), r.PathValue("memberID"), req.WeekNumber, decimal.NewFromFloat(req.Penalty))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleUpdateDeposit(w http.ResponseWriter, r *http.Request) {
	var req updateDepositRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	err := h.svc.UpdateDeposit(r.Context(), r.PathValue("memberID"), r.PathValue("depositID"), decimal.NewFromFloat(req.Penalty))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleDeleteDeposit(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDeposit(r.Context(), r.PathValue("memberID"), r.PathValue("depositID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleListLoans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Loans())
}

func (h *Handler) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	loan, err := h.svc.AddLoan(r.Context(), req.MemberID, decimal.NewFromFloat(req.PrincipalAmount))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

func (h *Handler) handleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLoan(r.Context(), r.PathValue("loanID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	p, err := h.svc.RecordLoanPayment(r.Context(), r.PathValue("loanID"), decimal.NewFromFloat(req.Amount))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := h.parser.Decode(r, &req); err != nil {
		writeBadRequest(w, err)
		return
	}
	err := h.svc.UpdateLoanPayment(r.Context(), r.PathValue("loanID"), r.PathValue("paymentID"), decimal.NewFromFloat(req.Amount))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLoanPayment(r.Context(), r.PathValue("loanID"), r.PathValue("paymentID")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := h.svc.ExportWorkbook(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		// Client went away mid-download, nothing to recover.
		return
	}
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 32<<20))
	if err != nil {
		writeBadRequest(w, fmt.Errorf("reading workbook body: %w", err))
		return
	}
	if err := h.svc.ImportWorkbook(r.Context(), data); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *Handler) handleDeleteAllData(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAllData(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
