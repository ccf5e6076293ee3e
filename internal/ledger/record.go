package ledger

import (
	"errors"
	"strings"
	"time"
)

// TimestampLayout is second-resolution and sorts lexically.
const TimestampLayout = "2006-01-02 15:04:05"

const (
	logSep       = " | "
	targetPrefix = "target:"
)

// FormatLogLine renders a record as
// `<timestamp> | <actor> | <kind> | target:<id> | <amount>`.
func FormatLogLine(r TransactionRecord) string {
	var b strings.Builder
	b.WriteString(r.Time.Format(TimestampLayout))
	b.WriteString(logSep)
	b.WriteString(string(r.Actor))
	b.WriteString(logSep)
	b.WriteString(string(r.Kind))
	b.WriteString(logSep)
	b.WriteString(targetPrefix)
	b.WriteString(r.Target)
	b.WriteString(logSep)
	b.WriteString(FormatAmount(r.Amount))
	return b.String()
}

// ParseLogLine is the inverse of FormatLogLine. The timestamp is read in loc.
func ParseLogLine(curr, line string, loc *time.Location) (TransactionRecord, error) {
	parts := strings.Split(line, logSep)
	if len(parts) != 5 {
		return TransactionRecord{}, errors.New("log line: expected 5 fields")
	}
	ts, err := time.ParseInLocation(TimestampLayout, parts[0], loc)
	if err != nil {
		return TransactionRecord{}, errors.New("log line: bad timestamp")
	}
	if !strings.HasPrefix(parts[3], targetPrefix) {
		return TransactionRecord{}, errors.New("log line: missing target prefix")
	}
	amount, err := ParseAmount(curr, parts[4])
	if err != nil {
		return TransactionRecord{}, err
	}
	return TransactionRecord{
		Time:   ts,
		Actor:  Actor(parts[1]),
		Kind:   OperationKind(parts[2]),
		Target: strings.TrimPrefix(parts[3], targetPrefix),
		Amount: amount,
	}, nil
}
