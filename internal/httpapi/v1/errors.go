package v1

import (
	"errors"
	"net/http"

	"github.com/tinoosan/atmledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Applied bool   `json:"applied,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, http.StatusBadRequest, msg, "bad_request")
}

func unprocessable(w http.ResponseWriter, msg, code string) {
	writeErr(w, http.StatusUnprocessableEntity, msg, code)
}

// writeServiceErr maps the ledger error taxonomy onto HTTP statuses.
func writeServiceErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrIO):
		// the mutation is live in memory even though it may not be durable
		var ioe *errs.IOError
		applied := errors.As(err, &ioe) && ioe.Applied
		toJSON(w, http.StatusInternalServerError, errorResponse{Error: "storage_failure", Code: "io_failure", Applied: applied})
	case errors.Is(err, errs.ErrInvalidAmount):
		unprocessable(w, err.Error(), "invalid_amount")
	case errors.Is(err, errs.ErrSameAccount):
		unprocessable(w, err.Error(), "same_account")
	case errors.Is(err, errs.ErrInvalid):
		unprocessable(w, err.Error(), "validation_error")
	case errors.Is(err, errs.ErrInsufficientFunds):
		writeErr(w, http.StatusConflict, err.Error(), "insufficient_funds")
	case errors.Is(err, errs.ErrInsufficientPoolCash):
		writeErr(w, http.StatusConflict, err.Error(), "insufficient_pool_cash")
	case errors.Is(err, errs.ErrDuplicateID):
		writeErr(w, http.StatusConflict, err.Error(), "duplicate_id")
	case errors.Is(err, errs.ErrNotFound):
		writeErr(w, http.StatusNotFound, "not_found", "not_found")
	case errors.Is(err, errs.ErrAuthFailure):
		writeErr(w, http.StatusUnauthorized, "invalid account id or pin", "auth_failure")
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, "forbidden", "forbidden")
	default:
		writeErr(w, http.StatusInternalServerError, "internal_error", "internal_error")
	}
}
