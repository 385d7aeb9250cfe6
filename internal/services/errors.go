package services

import "errors"

// Validation errors: rejected before any state is touched.
var (
	ErrInvalidEndTime     = errors.New("end time must be in the future")
	ErrInvalidTicketPrice = errors.New("ticket price must be greater than 0")
	ErrInvalidMinPot      = errors.New("minimum pot must be at least the ticket price")
	ErrEmptyName          = errors.New("raffle name must not be empty")
	ErrNameTooLong        = errors.New("raffle name too long")
	ErrInvalidName        = errors.New("raffle name contains reserved characters")
	ErrInvalidIdentity    = errors.New("identity contains reserved characters")
	ErrInvalidTicketCount = errors.New("ticket count must be greater than 0")
)

// State errors: the operation does not fit the raffle's current lifecycle
// status or deadline.
var (
	ErrRaffleNotActive    = errors.New("raffle is not active")
	ErrRaffleClosed       = errors.New("raffle has ended")
	ErrRaffleNotEnded     = errors.New("raffle has not ended yet")
	ErrNoTickets          = errors.New("no tickets sold")
	ErrPotBelowMinimum    = errors.New("pot below minimum threshold")
	ErrDrawNotCommitted   = errors.New("draw has not been committed")
	ErrDrawNotComplete    = errors.New("draw has not been settled")
	ErrRaffleNotCancelled = errors.New("raffle is not cancelled")
	ErrMaxPerWallet       = errors.New("per-wallet ticket limit exceeded")
	ErrAlreadyRefunded    = errors.New("entry already refunded")
)

// Authorization errors.
var (
	ErrNotAuthority = errors.New("caller is not the raffle authority")
	ErrNotWinner    = errors.New("caller does not hold the winning ticket")
)

// Randomness errors: the raffle stays in its prior status so the operation
// can be retried with a valid oracle state.
var (
	ErrStaleCommitment  = errors.New("randomness commitment is stale")
	ErrFutureCommitment = errors.New("randomness commitment bound too far ahead")
	ErrAlreadyRevealed  = errors.New("randomness already revealed at commit time")
	ErrOracleMismatch   = errors.New("randomness source does not match commitment")
)
