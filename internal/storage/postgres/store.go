// Package postgres provides a pgx-backed persistence backend. It stores the
// account snapshot in one table and the audit trail in another, and renders
// audit rows in the same line format as the flat-file backend.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/atmledger/internal/errs"
	"github.com/tinoosan/atmledger/internal/ledger"
)

//go:embed schema.sql
var schema string

// Store holds a pgx connection pool. All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
	curr string
	loc  *time.Location
}

// Open establishes a pgx pool using the provided connection string.
func Open(ctx context.Context, dsn, currency string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, curr: currency, loc: time.Local}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate creates the tables when they do not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const initializedKey = "initialized_at"

// Load returns every account ordered by id. The demo accounts are seeded only
// when the store has never held a snapshot; an emptied table stays empty.
func (s *Store) Load(ctx context.Context) ([]ledger.Account, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &errs.IOError{Op: "load accounts", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `select id, pin, name, balance_minor from accounts order by id`)
	if err != nil {
		return nil, &errs.IOError{Op: "load accounts", Err: err}
	}
	out := make([]ledger.Account, 0)
	for rows.Next() {
		var a ledger.Account
		var minor int64
		if err := rows.Scan(&a.ID, &a.PIN, &a.Name, &minor); err != nil {
			rows.Close()
			return nil, &errs.IOError{Op: "load accounts", Err: err}
		}
		bal, err := money.NewAmountFromMinorUnits(s.curr, minor)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("account %s: %w", a.ID, err)
		}
		a.Balance = bal
		out = append(out, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &errs.IOError{Op: "load accounts", Err: err}
	}

	var initialized bool
	if err := tx.QueryRow(ctx, `select exists(select 1 from ledger_meta where key = $1)`, initializedKey).Scan(&initialized); err != nil {
		return nil, &errs.IOError{Op: "load accounts", Err: err}
	}
	if initialized {
		return out, nil
	}
	if len(out) == 0 {
		out = ledger.SeedAccounts(s.curr)
		if err := insertAccounts(ctx, tx, out); err != nil {
			return nil, &errs.IOError{Op: "seed accounts", Err: err}
		}
	}
	// tables populated before the marker existed are adopted as-is
	if err := markInitialized(ctx, tx); err != nil {
		return nil, &errs.IOError{Op: "seed accounts", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, &errs.IOError{Op: "seed accounts", Err: err}
	}
	return out, nil
}

// Save replaces the full account set in one transaction.
func (s *Store) Save(ctx context.Context, accs []ledger.Account) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if _, err := tx.Exec(ctx, `delete from accounts`); err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	if err := insertAccounts(ctx, tx, accs); err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	if err := markInitialized(ctx, tx); err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	return nil
}

// Append inserts one audit row.
func (s *Store) Append(ctx context.Context, rec ledger.TransactionRecord) error {
	minor, _ := rec.Amount.MinorUnits()
	_, err := s.pool.Exec(ctx, `
		insert into audit_log (at, actor, kind, target, amount_minor)
		values ($1,$2,$3,$4,$5)
	`, rec.Time, string(rec.Actor), string(rec.Kind), rec.Target, minor)
	if err != nil {
		return &errs.IOError{Op: "append log", Err: err}
	}
	return nil
}

// ReadAll returns the audit rows in insertion order, formatted as log lines.
func (s *Store) ReadAll(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		select at, actor, kind, target, amount_minor
		from audit_log
		order by seq asc
	`)
	if err != nil {
		return nil, &errs.IOError{Op: "read log", Err: err}
	}
	defer rows.Close()
	lines := make([]string, 0)
	for rows.Next() {
		var rec ledger.TransactionRecord
		var actor, kind string
		var minor int64
		if err := rows.Scan(&rec.Time, &actor, &kind, &rec.Target, &minor); err != nil {
			return nil, &errs.IOError{Op: "read log", Err: err}
		}
		amt, err := money.NewAmountFromMinorUnits(s.curr, minor)
		if err != nil {
			return nil, fmt.Errorf("audit row: %w", err)
		}
		rec.Time = rec.Time.In(s.loc)
		rec.Actor, rec.Kind, rec.Amount = ledger.Actor(actor), ledger.OperationKind(kind), amt
		lines = append(lines, ledger.FormatLogLine(rec))
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.IOError{Op: "read log", Err: err}
	}
	return lines, nil
}

func markInitialized(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		insert into ledger_meta (key, value) values ($1, now()::text)
		on conflict (key) do nothing
	`, initializedKey)
	return err
}

func insertAccounts(ctx context.Context, tx pgx.Tx, accs []ledger.Account) error {
	if len(accs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range accs {
		minor, _ := a.Balance.MinorUnits()
		batch.Queue(`insert into accounts (id, pin, name, balance_minor) values ($1,$2,$3,$4)`,
			a.ID, a.PIN, ledger.SanitizeName(a.Name), minor)
	}
	br := tx.SendBatch(ctx, batch)
	for range accs {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("insert account: %w", err)
		}
	}
	return br.Close()
}
