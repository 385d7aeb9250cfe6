package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"raffle/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testRaffle(name string) *models.Raffle {
	return &models.Raffle{
		Authority:   "auth",
		Name:        name,
		TicketPrice: 10,
		MinPot:      100,
		EndTime:     time.Now().Add(time.Hour),
		Status:      models.StatusActive,
		CreatedAt:   time.Now(),
	}
}

func TestCreateAndLoadRaffle(t *testing.T) {
	s := openTestStore(t)
	r := testRaffle("summer")
	require.NoError(t, s.Update(func(tx *Tx) error { return tx.CreateRaffle(r) }))

	got, err := s.Raffle(r.Key())
	require.NoError(t, err)
	require.Equal(t, r.Name, got.Name)
	require.Equal(t, models.StatusActive, got.Status)

	err = s.Update(func(tx *Tx) error { return tx.CreateRaffle(r) })
	require.ErrorIs(t, err, ErrRaffleExists)

	_, err = s.Raffle("auth/missing")
	require.ErrorIs(t, err, ErrRaffleNotFound)
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := openTestStore(t)
	r := testRaffle("summer")
	require.NoError(t, s.Update(func(tx *Tx) error { return tx.CreateRaffle(r) }))

	boom := errors.New("boom")
	err := s.Update(func(tx *Tx) error {
		r.TotalTickets = 99
		r.TotalPot = 990
		if err := tx.PutRaffle(r); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Raffle(r.Key())
	require.NoError(t, err)
	require.Equal(t, uint32(0), got.TotalTickets, "failed transaction must leave no counter change")
	require.Equal(t, uint64(0), got.TotalPot)
}

func TestEntriesOrderedByStartIndex(t *testing.T) {
	s := openTestStore(t)
	r := testRaffle("summer")
	require.NoError(t, s.Update(func(tx *Tx) error { return tx.CreateRaffle(r) }))

	// Written out of purchase order on purpose.
	entries := []*models.Entry{
		{Raffle: r.Key(), Buyer: "carol", StartTicketIndex: 8, NumTickets: 2},
		{Raffle: r.Key(), Buyer: "alice", StartTicketIndex: 0, NumTickets: 5},
		{Raffle: r.Key(), Buyer: "bob", StartTicketIndex: 5, NumTickets: 3},
	}
	require.NoError(t, s.Update(func(tx *Tx) error {
		for _, e := range entries {
			if err := tx.PutEntry(e); err != nil {
				return err
			}
		}
		return nil
	}))

	got, err := s.Entries(r.Key())
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, "alice", got[0].Buyer)
	require.Equal(t, "bob", got[1].Buyer)
	require.Equal(t, "carol", got[2].Buyer)

	_, err = s.Entry(r.Key(), "dave")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestEntriesScopedToRaffle(t *testing.T) {
	s := openTestStore(t)
	r1 := testRaffle("one")
	r2 := testRaffle("two")
	require.NoError(t, s.Update(func(tx *Tx) error {
		if err := tx.CreateRaffle(r1); err != nil {
			return err
		}
		if err := tx.CreateRaffle(r2); err != nil {
			return err
		}
		if err := tx.PutEntry(&models.Entry{Raffle: r1.Key(), Buyer: "alice", NumTickets: 1}); err != nil {
			return err
		}
		return tx.PutEntry(&models.Entry{Raffle: r2.Key(), Buyer: "bob", NumTickets: 2})
	}))

	got, err := s.Entries(r1.Key())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "alice", got[0].Buyer)
}

func TestRafflesNewestFirst(t *testing.T) {
	s := openTestStore(t)
	older := testRaffle("older")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := testRaffle("newer")
	require.NoError(t, s.Update(func(tx *Tx) error {
		if err := tx.CreateRaffle(older); err != nil {
			return err
		}
		return tx.CreateRaffle(newer)
	}))

	got, err := s.Raffles()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "newer", got[0].Name)
}
