package teller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/govalues/money"
	dto "github.com/prometheus/client_model/go"

	"github.com/tinoosan/atmledger/internal/cashpool"
	"github.com/tinoosan/atmledger/internal/errs"
	"github.com/tinoosan/atmledger/internal/ledger"
	"github.com/tinoosan/atmledger/internal/storage/file"
	"github.com/tinoosan/atmledger/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func amt(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := ledger.ParseAmount(ledger.DefaultCurrency, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return a
}

type fixture struct {
	svc      *Service
	pool     *cashpool.Pool
	accounts string
	txlog    string
}

func setup(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{accounts: filepath.Join(dir, "accounts.txt"), txlog: filepath.Join(dir, "transactions.txt")}
	pool, err := cashpool.New(amt(t, "10000.00"))
	if err != nil {
		t.Fatal(err)
	}
	f.pool = pool
	f.svc = New(memory.New(), pool,
		file.NewSnapshots(f.accounts, ledger.DefaultCurrency, testLogger()),
		file.NewAuditLog(f.txlog), testLogger())
	f.svc.now = func() time.Time { return time.Date(2026, 10, 14, 12, 0, 0, 0, time.Local) }
	if err := f.svc.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	return f
}

func (f fixture) balance(t *testing.T, id string) string {
	t.Helper()
	a, err := f.svc.Account(context.Background(), id)
	if err != nil {
		t.Fatalf("account %s: %v", id, err)
	}
	return ledger.FormatAmount(a.Balance)
}

func (f fixture) logLines(t *testing.T) []string {
	t.Helper()
	lines, err := f.svc.ReadLog(context.Background(), ledger.ActorAdmin)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	return lines
}

func TestOpen_SeedsFreshStore(t *testing.T) {
	f := setup(t)
	accs, err := f.svc.ListAccounts(context.Background(), ledger.ActorAdmin)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []struct{ id, bal string }{{"1001", "15000.00"}, {"1002", "30000.00"}, {"1003", "10000.00"}}
	if len(accs) != len(want) {
		t.Fatalf("expected %d accounts, got %d", len(want), len(accs))
	}
	for i, w := range want {
		if accs[i].ID != w.id || ledger.FormatAmount(accs[i].Balance) != w.bal {
			t.Fatalf("account %d = %s %s, want %s %s", i, accs[i].ID, ledger.FormatAmount(accs[i].Balance), w.id, w.bal)
		}
		if accs[i].PIN != "" {
			t.Fatalf("pin leaked in listing")
		}
	}
	if lines := f.logLines(t); len(lines) != 0 {
		t.Fatalf("seeding should not log, got %v", lines)
	}
}

func TestWithdraw_Scenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	acc, err := f.svc.Withdraw(ctx, "1001", amt(t, "500.00"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if ledger.FormatAmount(acc.Balance) != "14500.00" {
		t.Fatalf("balance = %s", ledger.FormatAmount(acc.Balance))
	}
	if got := ledger.FormatAmount(f.pool.Reserve()); got != "9500.00" {
		t.Fatalf("pool = %s", got)
	}
	lines := f.logLines(t)
	if len(lines) != 1 || lines[0] != "2026-10-14 12:00:00 | 1001 | WITHDRAW | target:1001 | 500.00" {
		t.Fatalf("unexpected log: %v", lines)
	}
	b, _ := os.ReadFile(f.accounts)
	if !strings.Contains(string(b), "1001,1234,vignesh reddy,14500.00\n") {
		t.Fatalf("withdrawal not persisted:\n%s", b)
	}
}

func TestWithdraw_InvalidAmount(t *testing.T) {
	f := setup(t)
	for _, s := range []string{"0", "-10"} {
		if _, err := f.svc.Withdraw(context.Background(), "1001", amt(t, s)); !errors.Is(err, errs.ErrInvalidAmount) {
			t.Fatalf("withdraw %s err = %v", s, err)
		}
	}
	if f.balance(t, "1001") != "15000.00" || ledger.FormatAmount(f.pool.Reserve()) != "10000.00" {
		t.Fatalf("state changed on invalid amount")
	}
	if len(f.logLines(t)) != 0 {
		t.Fatalf("aborted operation logged")
	}
}

func TestWithdraw_InsufficientFundsCompensatesPool(t *testing.T) {
	f := setup(t)
	// 1003 holds 10000.00; the pool covers 10000.00, so the pool debit succeeds
	// and the account debit must fail and be compensated.
	if _, err := f.svc.Withdraw(context.Background(), "1003", amt(t, "10000.01")); !errors.Is(err, errs.ErrInsufficientPoolCash) {
		t.Fatalf("pool should refuse first: %v", err)
	}
	if _, err := f.svc.RefillPool(context.Background(), ledger.ActorTech, amt(t, "50000")); err != nil {
		t.Fatalf("refill: %v", err)
	}
	before := ledger.FormatAmount(f.pool.Reserve())
	if _, err := f.svc.Withdraw(context.Background(), "1003", amt(t, "10000.01")); !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("withdraw err = %v", err)
	}
	if got := ledger.FormatAmount(f.pool.Reserve()); got != before {
		t.Fatalf("pool = %s, want %s (compensation)", got, before)
	}
	if f.balance(t, "1003") != "10000.00" {
		t.Fatalf("balance changed")
	}
	if lines := f.logLines(t); len(lines) != 1 || !strings.Contains(lines[0], "| TECH | REFILL_ATM | target:ATM | 50000.00") {
		t.Fatalf("unexpected log: %v", lines)
	}
}

func TestWithdraw_UnknownAccountLeavesPool(t *testing.T) {
	f := setup(t)
	if _, err := f.svc.Withdraw(context.Background(), "4040", amt(t, "1")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
	if ledger.FormatAmount(f.pool.Reserve()) != "10000.00" {
		t.Fatalf("pool changed")
	}
}

func TestDepositAndTransfer_Scenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if _, err := f.svc.Deposit(ctx, "1002", amt(t, "0")); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("zero deposit err = %v", err)
	}
	from, err := f.svc.Transfer(ctx, "1001", "1002", amt(t, "1000.00"))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if ledger.FormatAmount(from.Balance) != "14000.00" || f.balance(t, "1002") != "31000.00" {
		t.Fatalf("unexpected balances %s / %s", ledger.FormatAmount(from.Balance), f.balance(t, "1002"))
	}
	if _, err := f.svc.Deposit(ctx, "1002", amt(t, "0.50")); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	lines := f.logLines(t)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %v", lines)
	}
	if lines[0] != "2026-10-14 12:00:00 | 1001 | TRANSFER | target:1002 | 1000.00" {
		t.Fatalf("transfer line = %q", lines[0])
	}
	if lines[1] != "2026-10-14 12:00:00 | 1002 | DEPOSIT | target:1002 | 0.50" {
		t.Fatalf("deposit line = %q", lines[1])
	}
}

func TestTransfer_SelfAndMissing(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	if _, err := f.svc.Transfer(ctx, "1001", "1001", amt(t, "1")); !errors.Is(err, errs.ErrSameAccount) {
		t.Fatalf("self transfer err = %v", err)
	}
	if err := f.svc.RemoveAccount(ctx, ledger.ActorAdmin, "1003"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := f.svc.Transfer(ctx, "1001", "1003", amt(t, "1")); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("vanished target err = %v", err)
	}
	if f.balance(t, "1001") != "15000.00" {
		t.Fatalf("source changed")
	}
}

func TestTransfer_ConcurrentOverdrawExactlyOneWins(t *testing.T) {
	for round := 0; round < 20; round++ {
		f := setup(t)
		ctx := context.Background()
		// 1003 holds 10000.00; each transfer alone succeeds, both together overdraw.
		a := amt(t, "6000")
		var wg sync.WaitGroup
		results := make([]error, 2)
		targets := []string{"1001", "1002"}
		for i := range targets {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = f.svc.Transfer(ctx, "1003", targets[i], a)
			}(i)
		}
		wg.Wait()
		okCount, insufficient := 0, 0
		for _, err := range results {
			switch {
			case err == nil:
				okCount++
			case errors.Is(err, errs.ErrInsufficientFunds):
				insufficient++
			default:
				t.Fatalf("unexpected err: %v", err)
			}
		}
		if okCount != 1 || insufficient != 1 {
			t.Fatalf("round %d: ok=%d insufficient=%d", round, okCount, insufficient)
		}
		if f.balance(t, "1003") != "4000.00" {
			t.Fatalf("balance = %s", f.balance(t, "1003"))
		}
		if n := len(f.logLines(t)); n != 1 {
			t.Fatalf("expected 1 log line, got %d", n)
		}
	}
}

func TestConcurrentMixedOperations_LogMatchesCommits(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	var wg sync.WaitGroup
	var mu sync.Mutex
	committed := 0
	one := amt(t, "100")
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			switch i % 4 {
			case 0:
				_, err = f.svc.Withdraw(ctx, "1001", one)
			case 1:
				_, err = f.svc.Deposit(ctx, "1002", one)
			case 2:
				_, err = f.svc.Transfer(ctx, "1002", "1003", one)
			case 3:
				_, err = f.svc.Transfer(ctx, "1003", "1001", one)
			}
			if err == nil {
				mu.Lock()
				committed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	if n := len(f.logLines(t)); n != committed {
		t.Fatalf("log lines = %d, committed = %d", n, committed)
	}
	accs, _ := f.svc.ListAccounts(ctx, ledger.ActorAdmin)
	for _, a := range accs {
		if a.Balance.IsNeg() {
			t.Fatalf("negative balance on %s", a.ID)
		}
	}
}

func TestAdmin_AddRemoveRefill(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	before, _ := os.ReadFile(f.accounts)

	if _, err := f.svc.AddAccount(ctx, ledger.ActorAdmin, ledger.Account{ID: "1001", PIN: "1", Name: "x", Balance: amt(t, "0")}); !errors.Is(err, errs.ErrDuplicateID) {
		t.Fatalf("duplicate err = %v", err)
	}
	after, _ := os.ReadFile(f.accounts)
	if string(before) != string(after) {
		t.Fatalf("duplicate add rewrote accounts file")
	}
	if len(f.logLines(t)) != 0 {
		t.Fatalf("duplicate add logged")
	}

	if _, err := f.svc.AddAccount(ctx, ledger.Actor("1001"), ledger.Account{ID: "2000", PIN: "1", Balance: amt(t, "0")}); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("customer add err = %v", err)
	}
	acc, err := f.svc.AddAccount(ctx, ledger.ActorAdmin, ledger.Account{ID: "1004", PIN: "4567", Name: "new, person", Balance: amt(t, "250")})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if acc.PIN != "" || acc.Name != "new person" {
		t.Fatalf("unexpected added account: %+v", acc)
	}
	if _, err := f.svc.Authenticate(ctx, "1004", "4567"); err != nil {
		t.Fatalf("new account cannot authenticate: %v", err)
	}
	if err := f.svc.RemoveAccount(ctx, ledger.ActorAdmin, "1004"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := f.svc.RemoveAccount(ctx, ledger.ActorAdmin, "1004"); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("double remove err = %v", err)
	}
	if _, err := f.svc.RefillPool(ctx, ledger.ActorTech, amt(t, "0")); !errors.Is(err, errs.ErrInvalidAmount) {
		t.Fatalf("zero refill err = %v", err)
	}
	reserve, err := f.svc.RefillPool(ctx, ledger.ActorTech, amt(t, "500"))
	if err != nil || ledger.FormatAmount(reserve) != "10500.00" {
		t.Fatalf("refill = %v %v", reserve, err)
	}
	lines := f.logLines(t)
	want := []string{
		"| ADMIN | ADD_ACCOUNT | target:1004 | 250.00",
		"| ADMIN | REMOVE_ACCOUNT | target:1004 | 0.00",
		"| TECH | REFILL_ATM | target:ATM | 500.00",
	}
	if len(lines) != len(want) {
		t.Fatalf("log = %v", lines)
	}
	for i := range want {
		if !strings.HasSuffix(lines[i], want[i]) {
			t.Fatalf("line %d = %q, want suffix %q", i, lines[i], want[i])
		}
	}
	if _, err := f.svc.ReadLog(ctx, ledger.Actor("1001")); !errors.Is(err, errs.ErrForbidden) {
		t.Fatalf("customer log read err = %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	acc, err := f.svc.Authenticate(ctx, "1002", "2345")
	if err != nil || acc.Name != "tripuresh" || acc.PIN != "" {
		t.Fatalf("auth = %+v %v", acc, err)
	}
	if _, err := f.svc.Authenticate(ctx, "1002", "0000"); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("bad pin err = %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, "9999", "2345"); !errors.Is(err, errs.ErrAuthFailure) {
		t.Fatalf("bad id err = %v", err)
	}
}

type failingSnapshots struct {
	Snapshots
	fail bool
}

func (f *failingSnapshots) Save(ctx context.Context, accs []ledger.Account) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Snapshots.Save(ctx, accs)
}

type failingLog struct {
	AuditLog
	fail bool
}

func (f *failingLog) Append(ctx context.Context, rec ledger.TransactionRecord) error {
	if f.fail {
		return errors.New("log device gone")
	}
	return f.AuditLog.Append(ctx, rec)
}

func TestDurableWriteFailuresAreReported(t *testing.T) {
	dir := t.TempDir()
	pool, _ := cashpool.New(amt(t, "10000"))
	snaps := &failingSnapshots{Snapshots: file.NewSnapshots(filepath.Join(dir, "accounts.txt"), ledger.DefaultCurrency, testLogger())}
	audit := &failingLog{AuditLog: file.NewAuditLog(filepath.Join(dir, "transactions.txt"))}
	svc := New(memory.New(), pool, snaps, audit, testLogger())
	ctx := context.Background()
	if err := svc.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}

	snaps.fail = true
	_, err := svc.Deposit(ctx, "1001", amt(t, "10"))
	var ioe *errs.IOError
	if !errors.Is(err, errs.ErrIO) || !errors.As(err, &ioe) || !ioe.Applied {
		t.Fatalf("persist failure err = %v", err)
	}
	// in-memory state is authoritative
	a, _ := svc.Account(ctx, "1001")
	if ledger.FormatAmount(a.Balance) != "15010.00" {
		t.Fatalf("balance = %s", ledger.FormatAmount(a.Balance))
	}
	lines, _ := svc.ReadLog(ctx, ledger.ActorAdmin)
	if len(lines) != 0 {
		t.Fatalf("log written after failed persist: %v", lines)
	}

	snaps.fail = false
	audit.fail = true
	if _, err := svc.RefillPool(ctx, ledger.ActorTech, amt(t, "1")); !errors.Is(err, errs.ErrIO) {
		t.Fatalf("log failure err = %v", err)
	}
}

type stuckPool struct {
	*cashpool.Pool
}

func (p stuckPool) Restore(money.Amount) error { return errors.New("dispenser jammed") }

func gaugeValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	if err := poolAvailable.Write(&m); err != nil {
		t.Fatalf("read gauge: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestWithdraw_FailedCompensationRefreshesPoolGauge(t *testing.T) {
	dir := t.TempDir()
	inner, _ := cashpool.New(amt(t, "60000"))
	svc := New(memory.New(), stuckPool{inner},
		file.NewSnapshots(filepath.Join(dir, "accounts.txt"), ledger.DefaultCurrency, testLogger()),
		file.NewAuditLog(filepath.Join(dir, "transactions.txt")), testLogger())
	ctx := context.Background()
	if err := svc.Open(ctx); err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err := svc.Withdraw(ctx, "1003", amt(t, "20000"))
	if !errors.Is(err, errs.ErrInsufficientFunds) {
		t.Fatalf("err = %v", err)
	}
	if got := gaugeValue(t); got != 40000 {
		t.Fatalf("gauge = %v, want 40000 (pool after failed restore)", got)
	}
}

func TestReopen_KeepsAccountWithLongName(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	long := strings.Repeat("x", 70000)
	if _, err := f.svc.AddAccount(ctx, ledger.ActorAdmin, ledger.Account{ID: "1001x", PIN: "1", Name: long, Balance: amt(t, "0")}); err != nil {
		t.Fatalf("add: %v", err)
	}
	pool, _ := cashpool.New(amt(t, "10000"))
	again := New(memory.New(), pool,
		file.NewSnapshots(f.accounts, ledger.DefaultCurrency, testLogger()),
		file.NewAuditLog(f.txlog), testLogger())
	if err := again.Open(ctx); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	accs, _ := again.ListAccounts(ctx, ledger.ActorAdmin)
	ids := make([]string, 0, len(accs))
	for _, a := range accs {
		ids = append(ids, a.ID)
	}
	if strings.Join(ids, " ") != "1001 1001x 1002 1003" {
		t.Fatalf("reload lost accounts: got %v", ids)
	}
	if lines, err := again.ReadLog(ctx, ledger.ActorAdmin); err != nil || len(lines) != 1 {
		t.Fatalf("log after reopen: %d lines, %v", len(lines), err)
	}
}
