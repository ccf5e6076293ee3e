// Package dictionary lists the operation kinds that appear in the audit log.
package dictionary

import "github.com/tinoosan/atmledger/internal/ledger"

type OperationDef struct {
	Code           ledger.OperationKind `json:"code"`
	Label          string               `json:"label"`
	Administrative bool                 `json:"administrative"`
	Persisted      bool                 `json:"persisted"`
}

var curated = []OperationDef{
	{Code: ledger.OpWithdraw, Label: "Cash Withdrawal", Persisted: true},
	{Code: ledger.OpDeposit, Label: "Deposit", Persisted: true},
	{Code: ledger.OpTransfer, Label: "Transfer", Persisted: true},
	{Code: ledger.OpAddAccount, Label: "Add Account", Administrative: true, Persisted: true},
	{Code: ledger.OpRemoveAccount, Label: "Remove Account", Administrative: true, Persisted: true},
	// the pool is not part of the account snapshot
	{Code: ledger.OpRefill, Label: "Refill ATM", Administrative: true},
}

// Operations returns the catalog, optionally filtered to administrative kinds.
func Operations(adminOnly bool) []OperationDef {
	out := make([]OperationDef, 0, len(curated))
	for _, d := range curated {
		if adminOnly && !d.Administrative {
			continue
		}
		out = append(out, d)
	}
	return out
}

func IsAdministrative(k ledger.OperationKind) bool {
	for _, d := range curated {
		if d.Code == k {
			return d.Administrative
		}
	}
	return false
}
