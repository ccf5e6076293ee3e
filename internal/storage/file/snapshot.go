// Package file provides the flat-file persistence backend: a whole-file
// account snapshot and an append-only audit log.
package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tinoosan/atmledger/internal/errs"
	"github.com/tinoosan/atmledger/internal/ledger"
)

// Snapshots persists the account set as one `id,pin,name,balance` line per account.
type Snapshots struct {
	path string
	curr string
	log  *slog.Logger
}

// NewSnapshots returns a snapshot store backed by path.
func NewSnapshots(path, currency string, logger *slog.Logger) *Snapshots {
	return &Snapshots{path: path, curr: currency, log: logger}
}

// Path returns the snapshot file location.
func (s *Snapshots) Path() string { return s.path }

// Load reads every well-formed account line. When the file does not exist the
// seed dataset is written first and returned.
func (s *Snapshots) Load(ctx context.Context) ([]ledger.Account, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		seed := ledger.SeedAccounts(s.curr)
		if err := s.Save(ctx, seed); err != nil {
			return nil, err
		}
		s.log.Info("accounts file missing; seeded demo accounts", "path", s.path, "count", len(seed))
		return seed, nil
	}
	if err != nil {
		return nil, &errs.IOError{Op: "read accounts", Err: err}
	}
	return s.parse(b), nil
}

// parse splits on newlines with no line length limit.
func (s *Snapshots) parse(b []byte) []ledger.Account {
	out := make([]ledger.Account, 0)
	seen := make(map[string]struct{})
	for i, raw := range strings.Split(string(b), "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		a, err := decodeAccount(s.curr, line)
		if err != nil {
			s.log.Warn("skipping account line", "path", s.path, "line", i+1, "err", err)
			continue
		}
		if _, dup := seen[a.ID]; dup {
			s.log.Warn("skipping duplicate account id", "path", s.path, "line", i+1, "id", a.ID)
			continue
		}
		seen[a.ID] = struct{}{}
		out = append(out, a)
	}
	return out
}

// Save replaces the snapshot atomically: write a temp file in the same
// directory, fsync, then rename over the old file.
func (s *Snapshots) Save(_ context.Context, accs []ledger.Account) error {
	sorted := make([]ledger.Account, len(accs))
	copy(sorted, accs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var buf bytes.Buffer
	for _, a := range sorted {
		buf.WriteString(encodeAccount(a))
		buf.WriteByte('\n')
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		cleanup()
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return &errs.IOError{Op: "save accounts", Err: err}
	}
	return nil
}

func encodeAccount(a ledger.Account) string {
	return a.ID + "," + a.PIN + "," + ledger.SanitizeName(a.Name) + "," + ledger.FormatAmount(a.Balance)
}

func decodeAccount(curr, line string) (ledger.Account, error) {
	p := strings.Split(line, ",")
	if len(p) != 4 {
		return ledger.Account{}, fmt.Errorf("expected 4 fields, got %d", len(p))
	}
	id, pin := strings.TrimSpace(p[0]), strings.TrimSpace(p[1])
	if id == "" || pin == "" {
		return ledger.Account{}, errors.New("empty id or pin")
	}
	bal, err := ledger.ParseAmount(curr, p[3])
	if err != nil {
		return ledger.Account{}, err
	}
	if bal.IsNeg() {
		return ledger.Account{}, errors.New("negative balance")
	}
	return ledger.Account{ID: id, PIN: pin, Name: strings.TrimSpace(p[2]), Balance: bal}, nil
}
