// Package store persists raffles and entries in bbolt. Every lifecycle
// operation runs inside a single write transaction, so the
// read-modify-write over a raffle and its entries is serialized and
// all-or-nothing.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"

	"raffle/internal/models"
)

var (
	// ErrRaffleNotFound is returned when no raffle exists under a key.
	ErrRaffleNotFound = errors.New("raffle not found")
	// ErrEntryNotFound is returned when a buyer has no entry in a raffle.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrRaffleExists rejects creating a second raffle under the same
	// (authority, name).
	ErrRaffleExists = errors.New("raffle already exists")
)

var (
	rafflesBucket = []byte("raffles")
	entriesBucket = []byte("entries")
)

// Store wraps the bolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(rafflesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(entriesBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// Tx exposes raffle and entry access inside one bolt transaction.
// Mutations made through a Tx persist only if the enclosing closure
// returns nil.
type Tx struct {
	raffles *bolt.Bucket
	entries *bolt.Bucket
}

func newTx(btx *bolt.Tx) *Tx {
	return &Tx{
		raffles: btx.Bucket(rafflesBucket),
		entries: btx.Bucket(entriesBucket),
	}
}

// Update runs fn in a write transaction. A non-nil error from fn rolls
// back every mutation made through the Tx.
func (s *Store) Update(fn func(*Tx) error) error {
	return s.db.Update(func(btx *bolt.Tx) error {
		return fn(newTx(btx))
	})
}

// View runs fn in a read-only transaction.
func (s *Store) View(fn func(*Tx) error) error {
	return s.db.View(func(btx *bolt.Tx) error {
		return fn(newTx(btx))
	})
}

// Raffle loads one raffle by key.
func (t *Tx) Raffle(key string) (*models.Raffle, error) {
	raw := t.raffles.Get([]byte(key))
	if raw == nil {
		return nil, ErrRaffleNotFound
	}
	var r models.Raffle
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// PutRaffle writes a raffle record.
func (t *Tx) PutRaffle(r *models.Raffle) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return t.raffles.Put([]byte(r.Key()), raw)
}

// CreateRaffle writes a raffle only if its key is unused.
func (t *Tx) CreateRaffle(r *models.Raffle) error {
	if t.raffles.Get([]byte(r.Key())) != nil {
		return ErrRaffleExists
	}
	return t.PutRaffle(r)
}

func entryKey(raffleKey, buyer string) []byte {
	return []byte(raffleKey + "#" + buyer)
}

// Entry loads one buyer's entry in a raffle.
func (t *Tx) Entry(raffleKey, buyer string) (*models.Entry, error) {
	raw := t.entries.Get(entryKey(raffleKey, buyer))
	if raw == nil {
		return nil, ErrEntryNotFound
	}
	var e models.Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// PutEntry writes an entry record.
func (t *Tx) PutEntry(e *models.Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return t.entries.Put(entryKey(e.Raffle, e.Buyer), raw)
}

// Entries returns all entries of a raffle ordered by start ticket index,
// i.e. in purchase order.
func (t *Tx) Entries(raffleKey string) ([]*models.Entry, error) {
	prefix := []byte(raffleKey + "#")
	var out []*models.Entry
	c := t.entries.Cursor()
	for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
		var e models.Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartTicketIndex < out[j].StartTicketIndex
	})
	return out, nil
}

// Raffle loads one raffle outside any caller-held transaction.
func (s *Store) Raffle(key string) (*models.Raffle, error) {
	var r *models.Raffle
	err := s.View(func(t *Tx) error {
		var err error
		r, err = t.Raffle(key)
		return err
	})
	return r, err
}

// Raffles lists every raffle, newest first.
func (s *Store) Raffles() ([]*models.Raffle, error) {
	var out []*models.Raffle
	err := s.View(func(t *Tx) error {
		return t.raffles.ForEach(func(_, v []byte) error {
			var r models.Raffle
			if err := json.Unmarshal(v, &r); err != nil {
				return err
			}
			out = append(out, &r)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Entries lists a raffle's entries outside any caller-held transaction.
func (s *Store) Entries(raffleKey string) ([]*models.Entry, error) {
	var out []*models.Entry
	err := s.View(func(t *Tx) error {
		var err error
		out, err = t.Entries(raffleKey)
		return err
	})
	return out, err
}

// Entry loads one entry outside any caller-held transaction.
func (s *Store) Entry(raffleKey, buyer string) (*models.Entry, error) {
	var e *models.Entry
	err := s.View(func(t *Tx) error {
		var err error
		e, err = t.Entry(raffleKey, buyer)
		return err
	})
	return e, err
}
