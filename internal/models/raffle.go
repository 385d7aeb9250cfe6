package models

import "time"

// Status tracks a raffle through its lifecycle. Transitions only move
// forward: Active -> DrawCommitted -> DrawComplete -> Claimed, or
// Active -> Cancelled.
type Status string

const (
	StatusActive        Status = "active"
	StatusDrawCommitted Status = "draw_committed"
	StatusDrawComplete  Status = "draw_complete"
	StatusClaimed       Status = "claimed"
	StatusCancelled     Status = "cancelled"
)

// MaxNameLen bounds the raffle name in bytes.
const MaxNameLen = 32

// Raffle is one campaign: its own escrow account, deadline, pot and draw.
// The pair (Authority, Name) identifies it uniquely.
type Raffle struct {
	Authority    string `json:"authority"`
	Name         string `json:"name"`
	Mint         string `json:"mint"`
	Escrow       string `json:"escrow"`
	FeeRecipient string `json:"feeRecipient"`

	TicketPrice  uint64    `json:"ticketPrice"`
	MinPot       uint64    `json:"minPot"`
	MaxPerWallet uint32    `json:"maxPerWallet"` // 0 = unlimited
	EndTime      time.Time `json:"endTime"`

	TotalTickets uint32 `json:"totalTickets"`
	TotalPot     uint64 `json:"totalPot"`

	Status        Status  `json:"status"`
	Winner        string  `json:"winner,omitempty"`
	WinningTicket *uint32 `json:"winningTicket,omitempty"`
	Randomness    []byte  `json:"randomness,omitempty"`

	// Set at commit_draw, checked again at settle_draw.
	OracleRef  string  `json:"oracleRef,omitempty"`
	CommitSlot *uint64 `json:"commitSlot,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Key returns the store key for a raffle owned by authority with the
// given name.
func Key(authority, name string) string {
	return authority + "/" + name
}

// Key returns the raffle's store key.
func (r *Raffle) Key() string {
	return Key(r.Authority, r.Name)
}

// Terminal reports whether the raffle accepts no further lifecycle
// transitions. Cancelled raffles still accept per-entry refunds.
func (r *Raffle) Terminal() bool {
	return r.Status == StatusClaimed || r.Status == StatusCancelled
}

// Entry is one buyer's cumulative position in a raffle. The buyer owns the
// half-open ticket range [StartTicketIndex, StartTicketIndex+NumTickets).
// StartTicketIndex is fixed at the first purchase; later purchases only
// extend NumTickets.
type Entry struct {
	Raffle           string `json:"raffle"`
	Buyer            string `json:"buyer"`
	StartTicketIndex uint32 `json:"startTicketIndex"`
	NumTickets       uint32 `json:"numTickets"`
	Refunded         bool   `json:"refunded"`
}

// Holds reports whether the entry's ticket range contains the given index.
func (e *Entry) Holds(ticket uint32) bool {
	return ticket >= e.StartTicketIndex && ticket < e.StartTicketIndex+e.NumTickets
}
