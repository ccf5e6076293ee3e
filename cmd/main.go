package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/govalues/money"

	"github.com/tinoosan/atmledger/internal/cashpool"
	"github.com/tinoosan/atmledger/internal/config"
	httpapi "github.com/tinoosan/atmledger/internal/httpapi/v1"
	"github.com/tinoosan/atmledger/internal/ledger"
	"github.com/tinoosan/atmledger/internal/service/teller"
	"github.com/tinoosan/atmledger/internal/storage/file"
	"github.com/tinoosan/atmledger/internal/storage/memory"
	pgstore "github.com/tinoosan/atmledger/internal/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Resolve(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}

	// Logger (slog to stdout). Level via LOG_LEVEL; format via LOG_FORMAT (json|text, default json)
	logger := buildLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	curr := cfg.Ledger.Currency
	initial, err := ledger.ParseAmount(curr, cfg.Ledger.InitialCash)
	if err != nil {
		logger.Error("invalid initial cash", "err", err)
		os.Exit(1)
	}
	pool, err := cashpool.New(initial)
	if err != nil {
		logger.Error("invalid initial cash", "err", err)
		os.Exit(1)
	}

	var (
		snaps   teller.Snapshots
		audit   teller.AuditLog
		ready   httpapi.ReadyChecker
		closeFn func()
	)
	if dsn := cfg.Storage.DatabaseURL; dsn != "" {
		pg, err := pgstore.Open(ctx, dsn, curr)
		if err != nil {
			logger.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
		if err := pg.Migrate(ctx); err != nil {
			logger.Error("failed to apply schema", "err", err)
			pg.Close()
			os.Exit(1)
		}
		snaps, audit, ready = pg, pg, pg
		closeFn = pg.Close
		logger.Info("storage backend: postgres")
	} else {
		snaps = file.NewSnapshots(cfg.Storage.AccountsFile, curr, logger)
		audit = file.NewAuditLog(cfg.Storage.TransactionsFile)
		logger.Info("storage backend: file", "accounts_file", cfg.Storage.AccountsFile, "transactions_file", cfg.Storage.TransactionsFile)
	}

	svc := teller.New(memory.New(), pool, snaps, audit, logger)
	if err := svc.Open(ctx); err != nil {
		logger.Error("failed to load accounts", "err", err)
		os.Exit(1)
	}
	if accs, err := svc.ListAccounts(ctx, ledger.ActorAdmin); err == nil {
		printBanner(accs, pool.Reserve(), cfg.Server.AdminJWTSecret != "")
	}

	h := httpapi.New(svc, httpapi.Options{
		Currency:       curr,
		AdminJWTSecret: cfg.Server.AdminJWTSecret,
		Ready:          ready,
	}, logger).Handler()

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           h,
		ReadTimeout:       5 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("atm ledger listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error("server shutdown error", "err", err)
		}
	case err := <-errCh:
		logger.Error("server error", "err", err)
	}
	if closeFn != nil {
		closeFn()
	}
}

// printBanner prints the loaded account ids for easy copy/paste when testing locally.
func printBanner(accs []ledger.Account, reserve money.Amount, jwtEnabled bool) {
	fmt.Println("==================== ATM LEDGER ====================")
	for _, a := range accs {
		fmt.Printf("account %s  %-20s %s\n", a.ID, a.Name, ledger.FormatAmount(a.Balance))
	}
	fmt.Printf("cash pool: %s\n", ledger.FormatAmount(reserve))
	if !jwtEnabled {
		fmt.Println("admin routes are open (ADMIN_JWT_SECRET not set)")
	}
	fmt.Println("====================================================")
}

// parseLogLevel maps config values to slog.Leveler
func parseLogLevel(s string) slog.Leveler {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func buildLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	if strings.ToLower(strings.TrimSpace(format)) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	// default to JSON
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
