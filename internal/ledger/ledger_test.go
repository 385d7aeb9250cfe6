package ledger

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransfer(t *testing.T) {
	b := NewBook()
	b.Deposit("alice", 100)

	require.NoError(t, b.Transfer("alice", "bob", 40))
	require.Equal(t, uint64(60), b.Balance("alice"))
	require.Equal(t, uint64(40), b.Balance("bob"))
}

func TestTransferInsufficientFundsChangesNothing(t *testing.T) {
	b := NewBook()
	b.Deposit("alice", 10)

	err := b.Transfer("alice", "bob", 11)
	require.ErrorIs(t, err, ErrInsufficientFunds)
	require.Equal(t, uint64(10), b.Balance("alice"))
	require.Equal(t, uint64(0), b.Balance("bob"))
}

func TestTransferSameAccount(t *testing.T) {
	b := NewBook()
	b.Deposit("alice", 10)
	require.ErrorIs(t, b.Transfer("alice", "alice", 5), ErrSameAccount)
	require.Equal(t, uint64(10), b.Balance("alice"))
}

func TestConcurrentTransfersConserveValue(t *testing.T) {
	b := NewBook()
	b.Deposit("pool", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = b.Transfer("pool", "sink", 1)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, uint64(1000), b.Balance("pool")+b.Balance("sink"))
	require.Equal(t, uint64(100), b.Balance("sink"))
}
