// Package http exposes the ledger as a JSON API.
package http

import (
	"net/http"

	"caja/internal/services"
)

// NewServer builds the HTTP server with all API routes registered.
func NewServer(addr string, svc *services.LedgerService) *http.Server {
	h := &Handler{
		svc:    svc,
		parser: NewRequestParser(),
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.handleHealth)
	mux.HandleFunc("GET /api/summary", h.handleSummary)

	mux.HandleFunc("GET /api/members", h.handleListMembers)
	mux.HandleFunc("POST /api/members", h.handleCreateMember)
	mux.HandleFunc("PUT /api/members/{memberID}", h.handleUpdateMember)
	mux.HandleFunc("DELETE /api/members/{memberID}", h.handleDeleteMember)

	mux.HandleFunc("POST /api/members/{memberID}/deposits", h.handleCreateDeposit)
	mux.HandleFunc("PUT /api/members/{memberID}/deposits/{depositID}", h.handleUpdateDeposit)
	mux.HandleFunc("DELETE /api/members/{memberID}/deposits/{depositID}", h.handleDeleteDeposit)

	mux.HandleFunc("GET /api/loans", h.handleListLoans)
	mux.HandleFunc("POST /api/loans", h.handleCreateLoan)
	mux.HandleFunc("DELETE /api/loans/{loanID}", h.handleDeleteLoan)

	mux.HandleFunc("POST /api/loans/{loanID}/payments", h.handleCreatePayment)
	mux.HandleFunc("PUT /api/loans/{loanID}/payments/{paymentID}", h.handleUpdatePayment)
	mux.HandleFunc("DELETE /api/loans/{loanID}/payments/{paymentID}", h.handleDeletePayment)

	mux.HandleFunc("GET /api/export", h.handleExport)
	mux.HandleFunc("POST /api/import", h.handleImport)
	mux.HandleFunc("DELETE /api/data", h.handleDeleteAllData)

	return &http.Server{
		Addr:    addr,
		Handler: withRequestLogging(mux),
	}
}
