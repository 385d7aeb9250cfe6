// Package ledger provides the value-transfer collaborator the raffle core
// moves funds through. Transfers are all-or-nothing: either both balances
// change or neither does.
package ledger

import (
	"errors"
	"sync"
)

var (
	// ErrInsufficientFunds is returned when the source account cannot
	// cover the transfer.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrSameAccount rejects a transfer from an account to itself.
	ErrSameAccount = errors.New("transfer to same account")
)

// Ledger moves value between accounts atomically.
type Ledger interface {
	Transfer(from, to string, amount uint64) error
	Balance(account string) uint64
}

// Book is an in-memory account ledger. Escrow accounts live here alongside
// user accounts; only the raffle service holds escrow account names, so
// escrow is debited exclusively through raffle operations.
type Book struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewBook returns an empty account book.
func NewBook() *Book {
	return &Book{balances: make(map[string]uint64)}
}

// Deposit credits an account. Used to fund buyers (dev faucet) and by
// tests.
func (b *Book) Deposit(account string, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[account] += amount
}

// Balance returns the current balance of an account.
func (b *Book) Balance(account string) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[account]
}

// Transfer moves amount from one account to another, failing without any
// change if funds are short.
func (b *Book) Transfer(from, to string, amount uint64) error {
	if from == to {
		return ErrSameAccount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[from] < amount {
		return ErrInsufficientFunds
	}
	b.balances[from] -= amount
	b.balances[to] += amount
	return nil
}
