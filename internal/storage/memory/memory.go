// Package memory holds the in-memory account registry. It owns every Account
// record and exposes only atomic primitives; callers receive value copies.
package memory

import (
	"crypto/subtle"
	"fmt"
	"sort"
	"sync"

	"github.com/govalues/money"
	"github.com/tinoosan/atmledger/internal/errs"
	"github.com/tinoosan/atmledger/internal/ledger"
)

// Store is the account registry. It is guarded by an RWMutex so it is safe on
// its own; composite operations are serialized one level up by the teller.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]ledger.Account
}

// New constructs an empty store.
func New() *Store {
	return &Store{accounts: make(map[string]ledger.Account)}
}

// Replace swaps the whole registry for the given accounts (load time).
func (s *Store) Replace(accs []ledger.Account) {
	m := make(map[string]ledger.Account, len(accs))
	for _, a := range accs {
		m[a.ID] = a
	}
	s.mu.Lock()
	s.accounts = m
	s.mu.Unlock()
}

// Lookup returns a copy of the account or errs.ErrNotFound.
func (s *Store) Lookup(id string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	return a, nil
}

// Authenticate matches id and pin exactly. Unknown ids and wrong pins fail
// the same way.
func (s *Store) Authenticate(id, pin string) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok || subtle.ConstantTimeCompare([]byte(a.PIN), []byte(pin)) != 1 {
		return ledger.Account{}, errs.ErrAuthFailure
	}
	return a, nil
}

// Withdraw debits exactly amount from the account.
func (s *Store) Withdraw(id string, amount money.Amount) (ledger.Account, error) {
	if !amount.IsPos() {
		return ledger.Account{}, errs.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	next, err := debit(a.Balance, amount)
	if err != nil {
		return ledger.Account{}, err
	}
	a.Balance = next
	s.accounts[id] = a
	return a, nil
}

// Deposit credits exactly amount to the account.
func (s *Store) Deposit(id string, amount money.Amount) (ledger.Account, error) {
	if !amount.IsPos() {
		return ledger.Account{}, errs.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	next, err := a.Balance.Add(amount)
	if err != nil {
		return ledger.Account{}, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	a.Balance = next
	s.accounts[id] = a
	return a, nil
}

// Transfer moves amount from one account to another. Both balances change or
// neither does. A transfer to the same account is rejected with errs.ErrSameAccount.
func (s *Store) Transfer(fromID, toID string, amount money.Amount) (from, to ledger.Account, err error) {
	if !amount.IsPos() {
		return from, to, errs.ErrInvalidAmount
	}
	if fromID == toID {
		return from, to, errs.ErrSameAccount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok1 := s.accounts[fromID]
	dst, ok2 := s.accounts[toID]
	if !ok1 || !ok2 {
		return from, to, errs.ErrNotFound
	}
	srcBal, err := debit(src.Balance, amount)
	if err != nil {
		return from, to, err
	}
	dstBal, err := dst.Balance.Add(amount)
	if err != nil {
		return from, to, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	// both sides computed; apply together
	src.Balance, dst.Balance = srcBal, dstBal
	s.accounts[fromID] = src
	s.accounts[toID] = dst
	return src, dst, nil
}

// AddAccount inserts a new account. The name is sanitized for the record format.
func (s *Store) AddAccount(a ledger.Account) (ledger.Account, error) {
	if !ledger.ValidKey(a.ID) || !ledger.ValidKey(a.PIN) {
		return ledger.Account{}, fmt.Errorf("%w: id and pin must be non-empty and free of commas or line breaks", errs.ErrInvalid)
	}
	if a.Balance.IsNeg() {
		return ledger.Account{}, errs.ErrInvalidAmount
	}
	a.Name = ledger.SanitizeName(a.Name)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.ID]; exists {
		return ledger.Account{}, errs.ErrDuplicateID
	}
	s.accounts[a.ID] = a
	return a, nil
}

// RemoveAccount deletes the account and returns its last state.
func (s *Store) RemoveAccount(id string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return ledger.Account{}, errs.ErrNotFound
	}
	delete(s.accounts, id)
	return a, nil
}

// ListAccounts returns a point-in-time copy sorted by id.
func (s *Store) ListAccounts() []ledger.Account {
	s.mu.RLock()
	out := make([]ledger.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// debit returns bal-amount, refusing to go below zero.
func debit(bal, amount money.Amount) (money.Amount, error) {
	c, err := bal.Cmp(amount)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	if c < 0 {
		return money.Amount{}, errs.ErrInsufficientFunds
	}
	next, err := bal.Sub(amount)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	return next, nil
}
