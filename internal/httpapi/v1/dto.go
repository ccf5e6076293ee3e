package v1

import (
	"time"

	"github.com/tinoosan/atmledger/internal/ledger"
)

// Customer

type sessionRequest struct {
	AccountID string `json:"account_id"`
	PIN       string `json:"pin"`
}

type cashRequest struct {
	AccountID string `json:"account_id"`
	PIN       string `json:"pin"`
	Amount    string `json:"amount"`
}

type transferRequest struct {
	AccountID   string `json:"account_id"`
	PIN         string `json:"pin"`
	ToAccountID string `json:"to_account_id"`
	Amount      string `json:"amount"`
}

type accountResponse struct {
	AccountID    string `json:"account_id"`
	Name         string `json:"name"`
	Balance      string `json:"balance"`
	BalanceMinor int64  `json:"balance_minor"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	minor, _ := a.Balance.MinorUnits()
	return accountResponse{AccountID: a.ID, Name: a.Name, Balance: ledger.FormatAmount(a.Balance), BalanceMinor: minor}
}

// Admin

type postAccountRequest struct {
	AccountID      string `json:"account_id"`
	PIN            string `json:"pin"`
	Name           string `json:"name"`
	InitialBalance string `json:"initial_balance"`
}

type listAccountsResponse struct {
	Accounts []accountResponse `json:"accounts"`
	CashPool string            `json:"cash_pool"`
}

type refillRequest struct {
	Amount string `json:"amount"`
}

type poolResponse struct {
	Available      string `json:"available"`
	AvailableMinor int64  `json:"available_minor"`
}

type logRecord struct {
	Time   time.Time `json:"time"`
	Actor  string    `json:"actor"`
	Kind   string    `json:"kind"`
	Target string    `json:"target"`
	Amount string    `json:"amount"`
}

type logResponse struct {
	Lines   []string    `json:"lines"`
	Records []logRecord `json:"records"`
}
