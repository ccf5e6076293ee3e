// Package teller is the single entry point to the ledger. Every mutating
// operation runs Validate → Mutate → Persist → Log under one mutex, and is
// reported successful only after both durable writes complete.
package teller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/atmledger/internal/errs"
	"github.com/tinoosan/atmledger/internal/ledger"
)

// AccountStore is the account registry the service mutates.
type AccountStore interface {
	Replace(accs []ledger.Account)
	Lookup(id string) (ledger.Account, error)
	Authenticate(id, pin string) (ledger.Account, error)
	Withdraw(id string, amount money.Amount) (ledger.Account, error)
	Deposit(id string, amount money.Amount) (ledger.Account, error)
	Transfer(fromID, toID string, amount money.Amount) (ledger.Account, ledger.Account, error)
	AddAccount(a ledger.Account) (ledger.Account, error)
	RemoveAccount(id string) (ledger.Account, error)
	ListAccounts() []ledger.Account
}

// CashPool is the dispenser reserve.
type CashPool interface {
	Reserve() money.Amount
	TryDispense(amount money.Amount) error
	Refill(amount money.Amount) error
	Restore(amount money.Amount) error
}

// Snapshots loads and fully replaces the persisted account set.
type Snapshots interface {
	Load(ctx context.Context) ([]ledger.Account, error)
	Save(ctx context.Context, accs []ledger.Account) error
}

// AuditLog is the append-only record of state changes.
type AuditLog interface {
	Append(ctx context.Context, rec ledger.TransactionRecord) error
	ReadAll(ctx context.Context) ([]string, error)
}

// Service composes the store, pool and the two durable sinks.
type Service struct {
	mu    sync.Mutex
	store AccountStore
	pool  CashPool
	snaps Snapshots
	audit AuditLog
	log   *slog.Logger
	now   func() time.Time
}

// New constructs the service. Call Open before serving requests.
func New(store AccountStore, pool CashPool, snaps Snapshots, audit AuditLog, logger *slog.Logger) *Service {
	s := &Service{store: store, pool: pool, snaps: snaps, audit: audit, log: logger, now: time.Now}
	poolAvailable.Set(amountFloat(pool.Reserve()))
	return s
}

// Open loads the persisted accounts into the store, seeding when storage is empty.
func (s *Service) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	accs, err := s.snaps.Load(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}
	s.store.Replace(accs)
	s.log.Info("ledger opened", "accounts", len(accs), "cash_pool", ledger.FormatAmount(s.pool.Reserve()))
	return nil
}

// Authenticate checks credentials and returns the account without its PIN.
func (s *Service) Authenticate(_ context.Context, id, pin string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.store.Authenticate(id, pin)
	if err != nil {
		s.log.Info("authentication failed", "account_id", id)
		return ledger.Account{}, err
	}
	return a.Public(), nil
}

// Account returns the current state of one account without its PIN.
func (s *Service) Account(_ context.Context, id string) (ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.store.Lookup(id)
	if err != nil {
		return ledger.Account{}, err
	}
	return a.Public(), nil
}

// Withdraw dispenses cash from the pool and debits the account. If the
// account debit fails after the pool was debited, the pool is restored before
// the error is returned.
func (s *Service) Withdraw(ctx context.Context, id string, amount money.Amount) (acc ledger.Account, err error) {
	op := s.begin(ledger.OpWithdraw, "account_id", id, "amount", ledger.FormatAmount(amount))
	defer func() { s.finish(op, ledger.OpWithdraw, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !amount.IsPos() {
		return acc, errs.ErrInvalidAmount
	}
	if _, err := s.store.Lookup(id); err != nil {
		return acc, err
	}
	if err := s.pool.TryDispense(amount); err != nil {
		return acc, err
	}
	acc, err = s.store.Withdraw(id, amount)
	if err != nil {
		rerr := s.pool.Restore(amount)
		poolAvailable.Set(amountFloat(s.pool.Reserve()))
		if rerr != nil {
			op.Error("cash pool compensation failed", "err", rerr)
			return ledger.Account{}, errors.Join(err, rerr)
		}
		op.Info("cash pool compensated", "amount", ledger.FormatAmount(amount))
		return ledger.Account{}, err
	}
	poolAvailable.Set(amountFloat(s.pool.Reserve()))
	rec := s.record(ledger.Actor(id), ledger.OpWithdraw, id, amount)
	if err := s.commit(ctx, rec, true); err != nil {
		return acc.Public(), err
	}
	return acc.Public(), nil
}

// Deposit credits the account.
func (s *Service) Deposit(ctx context.Context, id string, amount money.Amount) (acc ledger.Account, err error) {
	op := s.begin(ledger.OpDeposit, "account_id", id, "amount", ledger.FormatAmount(amount))
	defer func() { s.finish(op, ledger.OpDeposit, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err = s.store.Deposit(id, amount)
	if err != nil {
		return ledger.Account{}, err
	}
	rec := s.record(ledger.Actor(id), ledger.OpDeposit, id, amount)
	if err := s.commit(ctx, rec, true); err != nil {
		return acc.Public(), err
	}
	return acc.Public(), nil
}

// Transfer moves amount between two accounts. The lock spans lookup and
// mutation of both sides, so a destination removed beforehand is ErrNotFound.
// Source and destination must differ.
func (s *Service) Transfer(ctx context.Context, fromID, toID string, amount money.Amount) (from ledger.Account, err error) {
	op := s.begin(ledger.OpTransfer, "account_id", fromID, "to_account_id", toID, "amount", ledger.FormatAmount(amount))
	defer func() { s.finish(op, ledger.OpTransfer, err) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	from, _, err = s.store.Transfer(fromID, toID, amount)
	if err != nil {
		return ledger.Account{}, err
	}
	rec := s.record(ledger.Actor(fromID), ledger.OpTransfer, toID, amount)
	if err := s.commit(ctx, rec, true); err != nil {
		return from.Public(), err
	}
	return from.Public(), nil
}

// AddAccount creates an account on behalf of an administrative actor.
func (s *Service) AddAccount(ctx context.Context, actor ledger.Actor, a ledger.Account) (acc ledger.Account, err error) {
	op := s.begin(ledger.OpAddAccount, "actor", actor, "account_id", a.ID)
	defer func() { s.finish(op, ledger.OpAddAccount, err) }()

	if !actor.IsAdministrative() {
		return acc, errs.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, err = s.store.AddAccount(a)
	if err != nil {
		return ledger.Account{}, err
	}
	rec := s.record(actor, ledger.OpAddAccount, acc.ID, acc.Balance)
	if err := s.commit(ctx, rec, true); err != nil {
		return acc.Public(), err
	}
	return acc.Public(), nil
}

// RemoveAccount deletes an account on behalf of an administrative actor.
func (s *Service) RemoveAccount(ctx context.Context, actor ledger.Actor, id string) (err error) {
	op := s.begin(ledger.OpRemoveAccount, "actor", actor, "account_id", id)
	defer func() { s.finish(op, ledger.OpRemoveAccount, err) }()

	if !actor.IsAdministrative() {
		return errs.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed, err := s.store.RemoveAccount(id)
	if err != nil {
		return err
	}
	rec := s.record(actor, ledger.OpRemoveAccount, id, ledger.Zero(removed.Balance.Curr().Code()))
	return s.commit(ctx, rec, true)
}

// RefillPool adds cash to the dispenser. The pool is not part of the account
// snapshot, so only the audit line is written.
func (s *Service) RefillPool(ctx context.Context, actor ledger.Actor, amount money.Amount) (reserve money.Amount, err error) {
	op := s.begin(ledger.OpRefill, "actor", actor, "amount", ledger.FormatAmount(amount))
	defer func() { s.finish(op, ledger.OpRefill, err) }()

	if !actor.IsAdministrative() {
		return reserve, errs.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.pool.Refill(amount); err != nil {
		return reserve, err
	}
	reserve = s.pool.Reserve()
	poolAvailable.Set(amountFloat(reserve))
	rec := s.record(actor, ledger.OpRefill, ledger.PoolTarget, amount)
	if err := s.commit(ctx, rec, false); err != nil {
		return reserve, err
	}
	return reserve, nil
}

// PoolReserve returns the cash currently in the dispenser.
func (s *Service) PoolReserve(_ context.Context, actor ledger.Actor) (money.Amount, error) {
	if !actor.IsAdministrative() {
		return money.Amount{}, errs.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pool.Reserve(), nil
}

// ListAccounts returns a point-in-time copy of all accounts, sorted by id, PINs cleared.
func (s *Service) ListAccounts(_ context.Context, actor ledger.Actor) ([]ledger.Account, error) {
	if !actor.IsAdministrative() {
		return nil, errs.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	accs := s.store.ListAccounts()
	for i := range accs {
		accs[i] = accs[i].Public()
	}
	return accs, nil
}

// ReadLog returns the raw audit lines in append order.
func (s *Service) ReadLog(ctx context.Context, actor ledger.Actor) ([]string, error) {
	if !actor.IsAdministrative() {
		return nil, errs.ErrForbidden
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audit.ReadAll(ctx)
}

// commit runs Persist (when asked) then Log. Caller holds s.mu and has
// already applied the mutation.
func (s *Service) commit(ctx context.Context, rec ledger.TransactionRecord, persist bool) error {
	if persist {
		if err := s.snaps.Save(ctx, s.store.ListAccounts()); err != nil {
			return applied("persist accounts", err)
		}
	}
	if err := s.audit.Append(ctx, rec); err != nil {
		return applied("append log", err)
	}
	return nil
}

func (s *Service) record(actor ledger.Actor, kind ledger.OperationKind, target string, amount money.Amount) ledger.TransactionRecord {
	return ledger.TransactionRecord{Time: s.now(), Actor: actor, Kind: kind, Target: target, Amount: amount}
}

func (s *Service) begin(kind ledger.OperationKind, attrs ...any) *slog.Logger {
	op := s.log.With("op_id", uuid.NewString(), "kind", string(kind))
	op.Debug("operation started", attrs...)
	return op
}

func (s *Service) finish(op *slog.Logger, kind ledger.OperationKind, err error) {
	outcome := outcomeOf(err)
	operationsTotal.WithLabelValues(string(kind), outcome).Inc()
	switch {
	case err == nil:
		op.Info("operation committed")
	case errors.Is(err, errs.ErrIO):
		op.Error("operation applied but not durable", "err", err)
	default:
		op.Info("operation aborted", "outcome", outcome, "err", err)
	}
}

// applied marks a durable-write failure as happening after the in-memory mutation.
func applied(op string, err error) error {
	var ioe *errs.IOError
	if errors.As(err, &ioe) {
		out := *ioe
		out.Op = op + ": " + ioe.Op
		out.Applied = true
		return &out
	}
	return &errs.IOError{Op: op, Applied: true, Err: err}
}
