// Package cashpool tracks the physical cash available in the dispenser.
package cashpool

import (
	"fmt"
	"sync"

	"github.com/govalues/money"
	"github.com/tinoosan/atmledger/internal/errs"
)

// Pool is the process-wide dispenser reserve. Available never goes negative.
type Pool struct {
	mu        sync.Mutex
	available money.Amount
}

// New returns a pool holding initial. A negative initial reserve is rejected.
func New(initial money.Amount) (*Pool, error) {
	if initial.IsNeg() {
		return nil, errs.ErrInvalidAmount
	}
	return &Pool{available: initial}, nil
}

// Reserve returns the cash currently available.
func (p *Pool) Reserve() money.Amount {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available
}

// TryDispense takes amount out of the pool only if the pool covers it.
func (p *Pool) TryDispense(amount money.Amount) error {
	if !amount.IsPos() {
		return errs.ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	c, err := p.available.Cmp(amount)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	if c < 0 {
		return errs.ErrInsufficientPoolCash
	}
	next, err := p.available.Sub(amount)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	p.available = next
	return nil
}

// Refill adds cash loaded by a technician.
func (p *Pool) Refill(amount money.Amount) error {
	if !amount.IsPos() {
		return errs.ErrInvalidAmount
	}
	return p.credit(amount)
}

// Restore credits back an amount taken by a successful TryDispense whose
// withdrawal failed further on. It is the exact inverse of that dispense.
func (p *Pool) Restore(amount money.Amount) error {
	return p.credit(amount)
}

func (p *Pool) credit(amount money.Amount) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next, err := p.available.Add(amount)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	p.available = next
	return nil
}
