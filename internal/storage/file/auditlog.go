package file

import (
	"bufio"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tinoosan/atmledger/internal/errs"
	"github.com/tinoosan/atmledger/internal/ledger"
)

// AuditLog appends one line per record and never rewrites earlier lines.
type AuditLog struct {
	path string
}

// NewAuditLog returns an audit log backed by path.
func NewAuditLog(path string) *AuditLog { return &AuditLog{path: path} }

// Path returns the log file location.
func (l *AuditLog) Path() string { return l.path }

// Append writes the record and fsyncs before returning.
func (l *AuditLog) Append(_ context.Context, rec ledger.TransactionRecord) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return &errs.IOError{Op: "append log", Err: err}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &errs.IOError{Op: "append log", Err: err}
	}
	if _, err := f.WriteString(ledger.FormatLogLine(rec) + "\n"); err != nil {
		f.Close()
		return &errs.IOError{Op: "append log", Err: err}
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return &errs.IOError{Op: "append log", Err: err}
	}
	if err := f.Close(); err != nil {
		return &errs.IOError{Op: "append log", Err: err}
	}
	return nil
}

// ReadAll returns the raw lines in append order, without a line length limit.
// A missing file is an empty log.
func (l *AuditLog) ReadAll(_ context.Context) ([]string, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, &errs.IOError{Op: "read log", Err: err}
	}
	defer f.Close()
	lines := make([]string, 0)
	rd := bufio.NewReader(f)
	for {
		line, err := rd.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			lines = append(lines, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &errs.IOError{Op: "read log", Err: err}
		}
	}
	return lines, nil
}
