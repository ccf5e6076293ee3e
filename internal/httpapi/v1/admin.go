// Admin handlers: account registry, cash pool and audit log. The actor is
// resolved by adminAuth.

package v1

import (
	"net/http"
	"strings"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/tinoosan/atmledger/internal/ledger"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	accs, err := s.svc.ListAccounts(r.Context(), actor)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	reserve, err := s.svc.PoolReserve(r.Context(), actor)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	out := listAccountsResponse{Accounts: make([]accountResponse, 0, len(accs)), CashPool: ledger.FormatAmount(reserve)}
	for _, a := range accs {
		out.Accounts = append(out.Accounts, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, out)
}

func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	var req postAccountRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	raw := req.InitialBalance
	if strings.TrimSpace(raw) == "" {
		raw = "0"
	}
	bal, err := ledger.ParseAmount(s.curr, raw)
	if err != nil {
		unprocessable(w, err.Error(), "invalid_amount")
		return
	}
	in := ledger.Account{ID: req.AccountID, PIN: req.PIN, Name: req.Name, Balance: bal}
	acc, err := s.svc.AddAccount(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

func (s *Server) deleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.RemoveAccount(r.Context(), actorFrom(r.Context()), id); err != nil {
		writeServiceErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getPool(w http.ResponseWriter, r *http.Request) {
	reserve, err := s.svc.PoolReserve(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	minor, _ := reserve.MinorUnits()
	toJSON(w, http.StatusOK, poolResponse{Available: ledger.FormatAmount(reserve), AvailableMinor: minor})
}

func (s *Server) postRefill(w http.ResponseWriter, r *http.Request) {
	var req refillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	amount, ok := s.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	reserve, err := s.svc.RefillPool(r.Context(), actorFrom(r.Context()), amount)
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	minor, _ := reserve.MinorUnits()
	toJSON(w, http.StatusOK, poolResponse{Available: ledger.FormatAmount(reserve), AvailableMinor: minor})
}

// getLog returns the raw audit lines and, for each line that parses, its structured form.
func (s *Server) getLog(w http.ResponseWriter, r *http.Request) {
	lines, err := s.svc.ReadLog(r.Context(), actorFrom(r.Context()))
	if err != nil {
		writeServiceErr(w, err)
		return
	}
	out := logResponse{Lines: lines, Records: make([]logRecord, 0, len(lines))}
	for _, line := range lines {
		rec, err := ledger.ParseLogLine(s.curr, line, time.Local)
		if err != nil {
			s.log.Warn("unparseable audit line", "line", line, "err", err)
			continue
		}
		out.Records = append(out.Records, logRecord{
			Time:   rec.Time,
			Actor:  string(rec.Actor),
			Kind:   string(rec.Kind),
			Target: rec.Target,
			Amount: ledger.FormatAmount(rec.Amount),
		})
	}
	toJSON(w, http.StatusOK, out)
}
