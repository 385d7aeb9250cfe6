// Package oracle defines the commit/reveal randomness contract consumed by
// the raffle core, plus a local beacon implementation for single-node
// deployments. A commitment binds a seed to a slot before the seed's value
// is knowable; once the bound slot has passed the value can be revealed,
// and the consumer verifies the reveal against the exact commitment it
// stored.
package oracle

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"sync"
	"time"
)

var (
	// ErrUnknownRef is returned for a commitment reference the oracle
	// never issued.
	ErrUnknownRef = errors.New("unknown randomness commitment")
	// ErrNotYetRevealed is returned when the bound slot has not passed,
	// so the seed value is not yet derivable.
	ErrNotYetRevealed = errors.New("randomness not yet revealable")
)

// CommitState describes one commitment as seen by a consumer deciding
// whether it is safe to bind a draw to it.
type CommitState struct {
	SeedSlot uint64
	Revealed bool
}

// Oracle is the two-phase randomness source. CommitState is read at
// commit_draw time to check freshness; RevealValue is called at settle_draw
// time and fails until the bound slot has passed.
type Oracle interface {
	CommitState(ref string) (CommitState, error)
	RevealValue(ref string, currentSlot uint64) (uint64, error)
}

// Clock maps wall time onto execution slots. Slot numbers only move
// forward.
type Clock interface {
	Now() time.Time
	Slot() uint64
}

// WallClock derives slots from real time at a fixed slot duration.
type WallClock struct {
	Epoch   time.Time
	SlotDur time.Duration
}

func (c WallClock) Now() time.Time { return time.Now() }

func (c WallClock) Slot() uint64 {
	d := time.Since(c.Epoch)
	if d < 0 {
		return 0
	}
	return uint64(d / c.SlotDur)
}

// Beacon is an in-process commit/reveal oracle. Commit binds a fresh
// reference to the next slot; the value for that slot is derived from the
// beacon secret and is not handed out until the slot has passed. A real
// deployment would point the consumer at an external VRF with the same
// contract.
type Beacon struct {
	mu      sync.Mutex
	clock   Clock
	secret  []byte
	commits map[string]*commitment
}

type commitment struct {
	seedSlot uint64
	revealed bool
}

// NewBeacon returns a beacon deriving seeds from secret. An empty secret is
// replaced by a random one.
func NewBeacon(clock Clock, secret []byte) *Beacon {
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			panic(err)
		}
	}
	return &Beacon{
		clock:   clock,
		secret:  secret,
		commits: make(map[string]*commitment),
	}
}

// Commit issues a new commitment bound to the slot after the current one,
// so the committed seed depends on entropy not yet fixed. Returns the
// commitment reference.
func (b *Beacon) Commit() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	ref := hex.EncodeToString(buf)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.commits[ref] = &commitment{seedSlot: b.clock.Slot() + 1}
	return ref, nil
}

// CommitState reports the slot binding and reveal state of a commitment.
func (b *Beacon) CommitState(ref string) (CommitState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.commits[ref]
	if !ok {
		return CommitState{}, ErrUnknownRef
	}
	return CommitState{SeedSlot: c.seedSlot, Revealed: c.revealed}, nil
}

// RevealValue produces the committed seed once its bound slot has passed,
// and marks the commitment revealed. The value is deterministic per
// (secret, ref, slot), so repeated reveals agree.
func (b *Beacon) RevealValue(ref string, currentSlot uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.commits[ref]
	if !ok {
		return 0, ErrUnknownRef
	}
	if currentSlot <= c.seedSlot {
		return 0, ErrNotYetRevealed
	}
	c.revealed = true
	return b.derive(ref, c.seedSlot), nil
}

func (b *Beacon) derive(ref string, slot uint64) uint64 {
	h := sha256.New()
	h.Write(b.secret)
	h.Write([]byte(ref))
	var sb [8]byte
	binary.LittleEndian.PutUint64(sb[:], slot)
	h.Write(sb[:])
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum[:8])
}
