package teller

import (
	"errors"

	"github.com/govalues/money"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/atmledger/internal/errs"
)

var (
	operationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "atm_ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)
	poolAvailable = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "atm_ledger",
			Name:      "cash_pool_available",
			Help:      "Cash currently available in the dispenser, in major units",
		},
	)
)

// outcomeOf maps an operation error onto a bounded label set.
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errs.ErrIO):
		return "io_failure"
	case errors.Is(err, errs.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, errs.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, errs.ErrInsufficientPoolCash):
		return "insufficient_pool_cash"
	case errors.Is(err, errs.ErrDuplicateID):
		return "duplicate_id"
	case errors.Is(err, errs.ErrNotFound):
		return "not_found"
	case errors.Is(err, errs.ErrSameAccount):
		return "same_account"
	case errors.Is(err, errs.ErrForbidden):
		return "forbidden"
	case errors.Is(err, errs.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

func amountFloat(a money.Amount) float64 {
	units, _ := a.MinorUnits()
	return float64(units) / 100
}
