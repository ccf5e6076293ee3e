package ledger

import (
	"fmt"
	"strings"

	"github.com/govalues/money"
	"github.com/tinoosan/atmledger/internal/errs"
)

// DefaultCurrency is used when no currency is configured.
const DefaultCurrency = "INR"

// Zero returns a zero amount in curr.
func Zero(curr string) money.Amount {
	a, err := money.NewAmountFromMinorUnits(curr, 0)
	if err != nil {
		panic(err)
	}
	return a
}

// ParseAmount parses a decimal string into an amount normalized to the
// currency's minor units. More fractional digits than the currency allows
// are rejected instead of rounded. Sign is not checked here.
func ParseAmount(curr, s string) (money.Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return money.Amount{}, fmt.Errorf("%w: empty amount", errs.ErrInvalidAmount)
	}
	a, err := money.ParseAmount(curr, s)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	units, ok := a.MinorUnits()
	if !ok {
		return money.Amount{}, fmt.Errorf("%w: amount out of range", errs.ErrInvalidAmount)
	}
	norm, err := money.NewAmountFromMinorUnits(curr, units)
	if err != nil {
		return money.Amount{}, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	if c, err := norm.Cmp(a); err != nil || c != 0 {
		return money.Amount{}, fmt.Errorf("%w: too many fractional digits", errs.ErrInvalidAmount)
	}
	return norm, nil
}

// ParsePositiveAmount is ParseAmount plus the amount > 0 rule applied to user input.
func ParsePositiveAmount(curr, s string) (money.Amount, error) {
	a, err := ParseAmount(curr, s)
	if err != nil {
		return a, err
	}
	if !a.IsPos() {
		return money.Amount{}, fmt.Errorf("%w: amount must be > 0", errs.ErrInvalidAmount)
	}
	return a, nil
}

// FormatAmount renders a with exactly two fractional digits and no currency code.
func FormatAmount(a money.Amount) string {
	units, _ := a.MinorUnits()
	neg := units < 0
	if neg {
		units = -units
	}
	s := fmt.Sprintf("%d.%02d", units/100, units%100)
	if neg {
		s = "-" + s
	}
	return s
}

// CheckCurrency verifies curr is a known currency with two-digit minor units,
// which is what the persisted record format assumes.
func CheckCurrency(curr string) error {
	cent, err := money.NewAmountFromMinorUnits(curr, 1)
	if err != nil {
		return fmt.Errorf("%w: currency %q: %v", errs.ErrInvalid, curr, err)
	}
	want, err := money.ParseAmount(curr, "0.01")
	if err != nil {
		return fmt.Errorf("%w: currency %q: %v", errs.ErrInvalid, curr, err)
	}
	if c, err := cent.Cmp(want); err != nil || c != 0 {
		return fmt.Errorf("%w: currency %q must use two fractional digits", errs.ErrInvalid, curr)
	}
	return nil
}
