package services

import (
	"encoding/binary"
	"errors"
	"strings"
	"time"

	"github.com/google/logger"

	"raffle/internal/accounting"
	"raffle/internal/ledger"
	"raffle/internal/models"
	"raffle/internal/oracle"
	"raffle/internal/store"
)

// RaffleService owns the raffle lifecycle. Every operation runs as one
// store transaction over the raffle and entry it names; the ledger transfer
// is the last step inside the transaction, so a failed transfer rolls back
// every counter and status change with it.
type RaffleService struct {
	store  *store.Store
	ledger ledger.Ledger
	oracle oracle.Oracle
	clock  oracle.Clock
	feeBps uint64
}

// NewRaffleService creates and initializes a new RaffleService.
func NewRaffleService(st *store.Store, lg ledger.Ledger, or oracle.Oracle, clock oracle.Clock, feeBps uint64) *RaffleService {
	return &RaffleService{
		store:  st,
		ledger: lg,
		oracle: or,
		clock:  clock,
		feeBps: feeBps,
	}
}

// validIdentity rejects authority and buyer identities containing the
// store-key delimiters, which would let crafted identities alias another
// raffle's entry records.
func validIdentity(id string) bool {
	return id != "" && !strings.ContainsAny(id, "/#")
}

// CreateRaffle opens a new raffle owned by authority. The name must be
// non-empty, at most 32 bytes and unique per authority.
func (s *RaffleService) CreateRaffle(authority, name, mint, feeRecipient string, ticketPrice, minPot uint64, maxPerWallet uint32, endTime time.Time) (*models.Raffle, error) {
	if !endTime.After(s.clock.Now()) {
		return nil, ErrInvalidEndTime
	}
	if ticketPrice == 0 {
		return nil, ErrInvalidTicketPrice
	}
	if minPot == 0 || minPot < ticketPrice {
		return nil, ErrInvalidMinPot
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	if len(name) > models.MaxNameLen {
		return nil, ErrNameTooLong
	}
	// '/' and '#' delimit store keys.
	if strings.ContainsAny(name, "/#") {
		return nil, ErrInvalidName
	}
	if !validIdentity(authority) {
		return nil, ErrInvalidIdentity
	}

	r := &models.Raffle{
		Authority:    authority,
		Name:         name,
		Mint:         mint,
		Escrow:       "escrow/" + models.Key(authority, name),
		FeeRecipient: feeRecipient,
		TicketPrice:  ticketPrice,
		MinPot:       minPot,
		MaxPerWallet: maxPerWallet,
		EndTime:      endTime,
		Status:       models.StatusActive,
		CreatedAt:    s.clock.Now(),
	}
	err := s.store.Update(func(tx *store.Tx) error {
		return tx.CreateRaffle(r)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("raffle created: %s (price=%d minPot=%d end=%s)", r.Key(), ticketPrice, minPot, endTime.Format(time.RFC3339))
	return r, nil
}

// BuyTickets purchases count tickets for buyer. The buyer's entry extends
// from the raffle's ticket counter before the purchase, so entry ranges
// partition [0, totalTickets) in purchase order.
func (s *RaffleService) BuyTickets(raffleKey, buyer string, count uint32) (*models.Entry, error) {
	if count == 0 {
		return nil, ErrInvalidTicketCount
	}
	if !validIdentity(buyer) {
		return nil, ErrInvalidIdentity
	}
	var entry *models.Entry
	err := s.store.Update(func(tx *store.Tx) error {
		r, err := tx.Raffle(raffleKey)
		if err != nil {
			return err
		}
		if r.Status != models.StatusActive {
			return ErrRaffleNotActive
		}
		if !s.clock.Now().Before(r.EndTime) {
			return ErrRaffleClosed
		}

		entry, err = tx.Entry(raffleKey, buyer)
		if errors.Is(err, store.ErrEntryNotFound) {
			entry = &models.Entry{
				Raffle:           raffleKey,
				Buyer:            buyer,
				StartTicketIndex: r.TotalTickets,
			}
		} else if err != nil {
			return err
		}

		newNum, err := accounting.Add32(entry.NumTickets, count)
		if err != nil {
			return err
		}
		if r.MaxPerWallet > 0 && newNum > r.MaxPerWallet {
			return ErrMaxPerWallet
		}
		cost, err := accounting.Mul64(r.TicketPrice, uint64(count))
		if err != nil {
			return err
		}
		newPot, err := accounting.Add64(r.TotalPot, cost)
		if err != nil {
			return err
		}
		newTotal, err := accounting.Add32(r.TotalTickets, count)
		if err != nil {
			return err
		}

		entry.NumTickets = newNum
		r.TotalTickets = newTotal
		r.TotalPot = newPot
		if err := tx.PutEntry(entry); err != nil {
			return err
		}
		if err := tx.PutRaffle(r); err != nil {
			return err
		}
		// Last fallible step: a failed transfer rolls back the puts above.
		return s.ledger.Transfer(buyer, r.Escrow, cost)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("%s bought %d tickets in %s", buyer, count, raffleKey)
	return entry, nil
}

// CommitDraw binds the raffle to a randomness commitment after the
// deadline. The commitment must be unrevealed and freshly slot-bound, so
// nobody can pick an already-known seed.
func (s *RaffleService) CommitDraw(raffleKey, oracleRef string) (*models.Raffle, error) {
	var r *models.Raffle
	err := s.store.Update(func(tx *store.Tx) error {
		var err error
		r, err = tx.Raffle(raffleKey)
		if err != nil {
			return err
		}
		if r.Status != models.StatusActive {
			return ErrRaffleNotActive
		}
		if s.clock.Now().Before(r.EndTime) {
			return ErrRaffleNotEnded
		}
		if r.TotalTickets == 0 {
			return ErrNoTickets
		}
		if r.TotalPot < r.MinPot {
			return ErrPotBelowMinimum
		}

		state, err := s.oracle.CommitState(oracleRef)
		if err != nil {
			return err
		}
		if state.Revealed {
			return ErrAlreadyRevealed
		}
		// Fresh means bound within one slot of now, either side.
		if state.SeedSlot+1 < s.clock.Slot() {
			return ErrStaleCommitment
		}
		if state.SeedSlot > s.clock.Slot()+1 {
			return ErrFutureCommitment
		}

		r.OracleRef = oracleRef
		slot := state.SeedSlot
		r.CommitSlot = &slot
		r.Status = models.StatusDrawCommitted
		return tx.PutRaffle(r)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("draw committed for %s (ref=%s slot=%d)", raffleKey, oracleRef, *r.CommitSlot)
	return r, nil
}

// SettleDraw reveals the committed randomness and derives the winning
// ticket. The oracle reference and seed slot must match what CommitDraw
// recorded; a substituted commitment is rejected.
func (s *RaffleService) SettleDraw(raffleKey, oracleRef string) (*models.Raffle, error) {
	var r *models.Raffle
	err := s.store.Update(func(tx *store.Tx) error {
		var err error
		r, err = tx.Raffle(raffleKey)
		if err != nil {
			return err
		}
		if r.Status != models.StatusDrawCommitted {
			return ErrDrawNotCommitted
		}
		if oracleRef != r.OracleRef {
			return ErrOracleMismatch
		}
		state, err := s.oracle.CommitState(oracleRef)
		if err != nil {
			return err
		}
		if r.CommitSlot == nil || state.SeedSlot != *r.CommitSlot {
			return ErrOracleMismatch
		}

		value, err := s.oracle.RevealValue(oracleRef, s.clock.Slot())
		if err != nil {
			return err
		}

		winning := uint32(value % uint64(r.TotalTickets))
		r.WinningTicket = &winning
		r.Randomness = make([]byte, 8)
		binary.LittleEndian.PutUint64(r.Randomness, value)
		r.Status = models.StatusDrawComplete
		return tx.PutRaffle(r)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("draw settled for %s: winning ticket %d of %d", raffleKey, *r.WinningTicket, r.TotalTickets)
	return r, nil
}

// CancelRaffle moves an active raffle to Cancelled. The authority may
// cancel at any time before the draw is committed; anyone may cancel once
// the deadline has passed with the pot below the minimum.
func (s *RaffleService) CancelRaffle(raffleKey, caller string) (*models.Raffle, error) {
	var r *models.Raffle
	err := s.store.Update(func(tx *store.Tx) error {
		var err error
		r, err = tx.Raffle(raffleKey)
		if err != nil {
			return err
		}
		if r.Status != models.StatusActive {
			return ErrRaffleNotActive
		}
		if caller != r.Authority {
			if s.clock.Now().Before(r.EndTime) || r.TotalPot >= r.MinPot {
				return ErrNotAuthority
			}
		}
		r.Status = models.StatusCancelled
		return tx.PutRaffle(r)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("raffle cancelled: %s (by %s)", raffleKey, caller)
	return r, nil
}

// ClaimPrize pays out a settled raffle: the platform fee goes to the fee
// recipient and the rest of the pot to the holder of the winning ticket.
// Exactly one claim can succeed.
func (s *RaffleService) ClaimPrize(raffleKey, winner string) (*models.Raffle, error) {
	var r *models.Raffle
	err := s.store.Update(func(tx *store.Tx) error {
		var err error
		r, err = tx.Raffle(raffleKey)
		if err != nil {
			return err
		}
		if r.Status != models.StatusDrawComplete {
			return ErrDrawNotComplete
		}
		entry, err := tx.Entry(raffleKey, winner)
		if errors.Is(err, store.ErrEntryNotFound) {
			return ErrNotWinner
		} else if err != nil {
			return err
		}
		if r.WinningTicket == nil || !entry.Holds(*r.WinningTicket) {
			return ErrNotWinner
		}

		fee, net, err := accounting.SplitFee(r.TotalPot, s.feeBps)
		if err != nil {
			return err
		}
		r.Winner = winner
		r.Status = models.StatusClaimed
		if err := tx.PutRaffle(r); err != nil {
			return err
		}
		if err := s.ledger.Transfer(r.Escrow, winner, net); err != nil {
			return err
		}
		if fee > 0 {
			if err := s.ledger.Transfer(r.Escrow, r.FeeRecipient, fee); err != nil {
				if cerr := s.ledger.Transfer(winner, r.Escrow, net); cerr != nil {
					logger.Errorf("escrow short for %s: prize leg of %d could not be unwound: %v", raffleKey, net, cerr)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("prize claimed for %s by %s", raffleKey, winner)
	return r, nil
}

// ClaimRefund returns a buyer's full stake from a cancelled raffle. Each
// entry refunds at most once; the raffle stays Cancelled throughout.
func (s *RaffleService) ClaimRefund(raffleKey, buyer string) (*models.Entry, error) {
	var entry *models.Entry
	err := s.store.Update(func(tx *store.Tx) error {
		r, err := tx.Raffle(raffleKey)
		if err != nil {
			return err
		}
		if r.Status != models.StatusCancelled {
			return ErrRaffleNotCancelled
		}
		entry, err = tx.Entry(raffleKey, buyer)
		if err != nil {
			return err
		}
		if entry.Refunded {
			return ErrAlreadyRefunded
		}
		amount, err := accounting.Mul64(r.TicketPrice, uint64(entry.NumTickets))
		if err != nil {
			return err
		}
		entry.Refunded = true
		if err := tx.PutEntry(entry); err != nil {
			return err
		}
		return s.ledger.Transfer(r.Escrow, buyer, amount)
	})
	if err != nil {
		return nil, err
	}
	logger.Infof("refund claimed for %s by %s (%d tickets)", raffleKey, buyer, entry.NumTickets)
	return entry, nil
}

// Raffle returns one raffle by key.
func (s *RaffleService) Raffle(key string) (*models.Raffle, error) {
	return s.store.Raffle(key)
}

// Raffles lists all raffles, newest first.
func (s *RaffleService) Raffles() ([]*models.Raffle, error) {
	return s.store.Raffles()
}

// Entries lists a raffle's entries in purchase order.
func (s *RaffleService) Entries(raffleKey string) ([]*models.Entry, error) {
	return s.store.Entries(raffleKey)
}

// Entry returns one buyer's entry in a raffle.
func (s *RaffleService) Entry(raffleKey, buyer string) (*models.Entry, error) {
	return s.store.Entry(raffleKey, buyer)
}
