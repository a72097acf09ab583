package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"caja/internal/core"
	"caja/internal/storage"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	if v == nil {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeError maps domain errors onto HTTP statuses and a stable error code.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal_error"

	var (
		malformed  *core.MalformedImportError
		storageErr *storage.Error
		fieldErrs  validator.ValidationErrors
	)
	switch {
	case errors.Is(err, core.ErrUnknownMember):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrDuplicateDeposit):
		status, code = http.StatusConflict, "duplicate_deposit"
	case errors.Is(err, core.ErrOverpayment):
		status, code = http.StatusConflict, "overpayment"
	case errors.Is(err, core.ErrInsufficientFunds):
		status, code = http.StatusConflict, "insufficient_funds"
	case errors.Is(err, core.ErrMemberHasLoans):
		status, code = http.StatusConflict, "member_has_loans"
	case errors.As(err, &malformed):
		status, code = http.StatusBadRequest, "malformed_import"
	case errors.As(err, &fieldErrs):
		status, code = http.StatusUnprocessableEntity, "validation_error"
	case core.IsValidationError(err):
		status, code = http.StatusUnprocessableEntity, "validation_error"
	case errors.As(err, &storageErr):
		status, code = http.StatusInternalServerError, "storage_error"
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: err.Error()}})
}

func writeBadRequest(w http.ResponseWriter, err error) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: errorBody{Code: "validation_error", Message: err.Error()}})
		return
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{Code: "bad_request", Message: err.Error()}})
}
