// Customer handlers: session check, withdraw, deposit and transfer. Every call
// carries the account id and PIN; credentials are checked before the operation.

package v1

import (
	"context"
	"net/http"

	"github.com/govalues/money"

	"github.com/tinoosan/atmledger/internal/ledger"
)

func (s *Server) postSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	acc, err := s.svc.Authenticate(r.Context(), req.AccountID, req.PIN)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (s *Server) postWithdraw(w http.ResponseWriter, r *http.Request) {
	s.cashOperation(w, r, s.svc.Withdraw)
}

func (s *Server) postDeposit(w http.ResponseWriter, r *http.Request) {
	s.cashOperation(w, r, s.svc.Deposit)
}

type cashFunc func(ctx context.Context, id string, amount money.Amount) (ledger.Account, error)

func (s *Server) cashOperation(w http.ResponseWriter, r *http.Request, op cashFunc) {
	var req cashRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := s.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if _, err := s.svc.Authenticate(r.Context(), req.AccountID, req.PIN); err != nil {
		writeServiceErr(w, err)
		return
	}
	acc, err := op(r.Context(), req.AccountID, amount)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

func (s *Server) postTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ToAccountID == "" {
		badRequest(w, "to_account_id is required")
		return
	}
	amount, ok := s.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	if _, err := s.svc.Authenticate(r.Context(), req.AccountID, req.PIN); err != nil {
		writeServiceErr(w, err)
		return
	}
	acc, err := s.svc.Transfer(r.Context(), req.AccountID, req.ToAccountID, amount)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}

// parseAmount accepts positive decimal amounts with at most two fractional digits.
func (s *Server) parseAmount(w http.ResponseWriter, raw string) (money.Amount, bool) {
	amount, err := ledger.ParsePositiveAmount(s.curr, raw)
	if err != nil {
		unprocessable(w, err.Error(), "invalid_amount")
		return money.Amount{}, false
	}
	return amount, true
}
