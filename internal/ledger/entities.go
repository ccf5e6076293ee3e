package ledger

import (
	"strings"
	"time"

	"github.com/govalues/money"
)

// Actor identifies who performed a state change: an account id or an administrative role.
type Actor string

const (
	// ActorAdmin performs account administration (add/remove).
	ActorAdmin Actor = "ADMIN"
	// ActorTech services the dispenser (refills).
	ActorTech Actor = "TECH"
)

// IsAdministrative reports whether the actor is one of the operator roles.
func (a Actor) IsAdministrative() bool {
	return a == ActorAdmin || a == ActorTech
}

// OperationKind enumerates the audited state changes.
type OperationKind string

const (
	OpWithdraw      OperationKind = "WITHDRAW"
	OpDeposit       OperationKind = "DEPOSIT"
	OpTransfer      OperationKind = "TRANSFER"
	OpAddAccount    OperationKind = "ADD_ACCOUNT"
	OpRemoveAccount OperationKind = "REMOVE_ACCOUNT"
	OpRefill        OperationKind = "REFILL_ATM"
)

// PoolTarget is the audit target recorded for dispenser refills.
const PoolTarget = "ATM"

// Account is a customer account. Balance never goes negative.
type Account struct {
	ID      string
	PIN     string
	Name    string
	Balance money.Amount
}

// Public returns a copy with the PIN cleared, safe to hand to display code.
func (a Account) Public() Account {
	a.PIN = ""
	return a
}

// TransactionRecord is one audit log entry. Records are immutable once written.
type TransactionRecord struct {
	Time   time.Time
	Actor  Actor
	Kind   OperationKind
	Target string
	Amount money.Amount
}

// SanitizeName strips characters that would break the line-oriented record shape.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ',', '\n', '\r':
			return -1
		}
		return r
	}, strings.TrimSpace(name))
}

// ValidKey reports whether s can be used as an account id or pin in a persisted record.
func ValidKey(s string) bool {
	return s != "" && strings.TrimSpace(s) == s && !strings.ContainsAny(s, ",\n\r")
}
