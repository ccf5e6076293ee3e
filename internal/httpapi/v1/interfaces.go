package v1

import (
	"context"

	"github.com/govalues/money"

	"github.com/tinoosan/atmledger/internal/ledger"
)

// Teller is the ledger facade the handlers drive. *teller.Service satisfies it.
type Teller interface {
	Authenticate(ctx context.Context, id, pin string) (ledger.Account, error)
	Withdraw(ctx context.Context, id string, amount money.Amount) (ledger.Account, error)
	Deposit(ctx context.Context, id string, amount money.Amount) (ledger.Account, error)
	Transfer(ctx context.Context, fromID, toID string, amount money.Amount) (ledger.Account, error)

	AddAccount(ctx context.Context, actor ledger.Actor, a ledger.Account) (ledger.Account, error)
	RemoveAccount(ctx context.Context, actor ledger.Actor, id string) error
	RefillPool(ctx context.Context, actor ledger.Actor, amount money.Amount) (money.Amount, error)
	PoolReserve(ctx context.Context, actor ledger.Actor) (money.Amount, error)
	ListAccounts(ctx context.Context, actor ledger.Actor) ([]ledger.Account, error)
	ReadLog(ctx context.Context, actor ledger.Actor) ([]string, error)
}

// ReadyChecker is optionally implemented by storage backends to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
