package errs

import "errors"

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrInvalid   = errors.New("invalid")
	// ErrInvalidAmount is returned for amounts that are zero, negative or malformed.
	ErrInvalidAmount = errors.New("invalid_amount")
	// ErrInsufficientFunds means the account balance does not cover the amount.
	ErrInsufficientFunds = errors.New("insufficient_funds")
	// ErrInsufficientPoolCash means the dispenser does not hold enough cash.
	ErrInsufficientPoolCash = errors.New("insufficient_pool_cash")
	// ErrDuplicateID indicates an account with the same id already exists.
	ErrDuplicateID = errors.New("duplicate_id")
	// ErrAuthFailure is the uniform credential failure; it never says which half was wrong.
	ErrAuthFailure = errors.New("auth_failure")
	// ErrSameAccount rejects a transfer whose source and destination are the same account.
	ErrSameAccount = errors.New("same_account")
	// ErrIO marks a persistence or audit write failure.
	ErrIO = errors.New("io_failure")
)

// IOError reports a failed durable write. Applied is true when the in-memory
// mutation had already been committed, so the change is live but may not be durable.
type IOError struct {
	Op      string
	Applied bool
	Err     error
}

func (e *IOError) Error() string {
	msg := "io_failure: " + e.Op
	if e.Applied {
		msg += " (mutation applied in memory, may not be durable)"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IOError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrIO) match any IOError.
func (e *IOError) Is(target error) bool { return target == ErrIO }
