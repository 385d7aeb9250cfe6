package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"raffle/internal/accounting"
	"raffle/internal/ledger"
	"raffle/internal/models"
	"raffle/internal/oracle"
	"raffle/internal/services"
	"raffle/internal/store"
)

// HTTPHandler holds the dependencies for the HTTP handlers.
type HTTPHandler struct {
	service *services.RaffleService
	book    *ledger.Book
	beacon  *oracle.Beacon
	devMode bool
}

// NewHTTPHandler creates a new HTTPHandler. devMode enables the deposit
// faucet used for local demos.
func NewHTTPHandler(service *services.RaffleService, book *ledger.Book, beacon *oracle.Beacon, devMode bool) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		book:    book,
		beacon:  beacon,
		devMode: devMode,
	}
}

// RegisterRoutes registers all the application routes.
func (h *HTTPHandler) RegisterRoutes(router *gin.Engine) {
	router.POST("/raffles", h.CreateRaffle)
	router.GET("/raffles", h.ListRaffles)
	router.GET("/raffles/:authority/:name", h.GetRaffle)
	router.GET("/raffles/:authority/:name/entries", h.ListEntries)
	router.GET("/raffles/:authority/:name/entries/:buyer", h.GetEntry)
	router.POST("/raffles/:authority/:name/tickets", h.BuyTickets)
	router.POST("/raffles/:authority/:name/commit", h.CommitDraw)
	router.POST("/raffles/:authority/:name/settle", h.SettleDraw)
	router.POST("/raffles/:authority/:name/cancel", h.CancelRaffle)
	router.POST("/raffles/:authority/:name/claim", h.ClaimPrize)
	router.POST("/raffles/:authority/:name/refund", h.ClaimRefund)
	router.POST("/oracle/commitments", h.CreateCommitment)
	router.GET("/accounts/:id/balance", h.GetBalance)
	if h.devMode {
		router.POST("/accounts/:id/deposit", h.Deposit)
	}
}

func raffleKey(c *gin.Context) string {
	return models.Key(c.Param("authority"), c.Param("name"))
}

// fail maps service errors onto HTTP status codes and writes the error
// body.
func fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrRaffleNotFound),
		errors.Is(err, store.ErrEntryNotFound),
		errors.Is(err, oracle.ErrUnknownRef):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrRaffleExists):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNotAuthority),
		errors.Is(err, services.ErrNotWinner):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrInvalidEndTime),
		errors.Is(err, services.ErrInvalidTicketPrice),
		errors.Is(err, services.ErrInvalidMinPot),
		errors.Is(err, services.ErrEmptyName),
		errors.Is(err, services.ErrNameTooLong),
		errors.Is(err, services.ErrInvalidName),
		errors.Is(err, services.ErrInvalidIdentity),
		errors.Is(err, services.ErrInvalidTicketCount),
		errors.Is(err, accounting.ErrOverflow):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrRaffleNotActive),
		errors.Is(err, services.ErrRaffleClosed),
		errors.Is(err, services.ErrRaffleNotEnded),
		errors.Is(err, services.ErrNoTickets),
		errors.Is(err, services.ErrPotBelowMinimum),
		errors.Is(err, services.ErrDrawNotCommitted),
		errors.Is(err, services.ErrDrawNotComplete),
		errors.Is(err, services.ErrRaffleNotCancelled),
		errors.Is(err, services.ErrMaxPerWallet),
		errors.Is(err, services.ErrAlreadyRefunded),
		errors.Is(err, services.ErrStaleCommitment),
		errors.Is(err, services.ErrFutureCommitment),
		errors.Is(err, services.ErrAlreadyRevealed),
		errors.Is(err, services.ErrOracleMismatch),
		errors.Is(err, oracle.ErrNotYetRevealed),
		errors.Is(err, ledger.ErrInsufficientFunds):
		status = http.StatusConflict
	default:
		logger.Errorf("internal error: %v", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type createRaffleReq struct {
	Authority    string `json:"authority" binding:"required"`
	Name         string `json:"name"`
	Mint         string `json:"mint"`
	FeeRecipient string `json:"feeRecipient" binding:"required"`
	TicketPrice  uint64 `json:"ticketPrice"`
	MinPot       uint64 `json:"minPot"`
	MaxPerWallet uint32 `json:"maxPerWallet"`
	EndTime      int64  `json:"endTime" binding:"required"` // unix seconds
}

// CreateRaffle handles POST /raffles.
func (h *HTTPHandler) CreateRaffle(c *gin.Context) {
	var req createRaffleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.service.CreateRaffle(req.Authority, req.Name, req.Mint, req.FeeRecipient,
		req.TicketPrice, req.MinPot, req.MaxPerWallet, time.Unix(req.EndTime, 0))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListRaffles handles GET /raffles.
func (h *HTTPHandler) ListRaffles(c *gin.Context) {
	raffles, err := h.service.Raffles()
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, raffles)
}

// GetRaffle handles GET /raffles/:authority/:name.
func (h *HTTPHandler) GetRaffle(c *gin.Context) {
	r, err := h.service.Raffle(raffleKey(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ListEntries handles GET /raffles/:authority/:name/entries.
func (h *HTTPHandler) ListEntries(c *gin.Context) {
	entries, err := h.service.Entries(raffleKey(c))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetEntry handles GET /raffles/:authority/:name/entries/:buyer.
func (h *HTTPHandler) GetEntry(c *gin.Context) {
	e, err := h.service.Entry(raffleKey(c), c.Param("buyer"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type buyTicketsReq struct {
	Buyer string `json:"buyer" binding:"required"`
	Count uint32 `json:"count"`
}

// BuyTickets handles POST /raffles/:authority/:name/tickets.
func (h *HTTPHandler) BuyTickets(c *gin.Context) {
	var req buyTicketsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.service.BuyTickets(raffleKey(c), req.Buyer, req.Count)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

type oracleRefReq struct {
	OracleRef string `json:"oracleRef" binding:"required"`
}

// CommitDraw handles POST /raffles/:authority/:name/commit.
func (h *HTTPHandler) CommitDraw(c *gin.Context) {
	var req oracleRefReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.service.CommitDraw(raffleKey(c), req.OracleRef)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// SettleDraw handles POST /raffles/:authority/:name/settle.
func (h *HTTPHandler) SettleDraw(c *gin.Context) {
	var req oracleRefReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.service.SettleDraw(raffleKey(c), req.OracleRef)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type callerReq struct {
	Caller string `json:"caller" binding:"required"`
}

// CancelRaffle handles POST /raffles/:authority/:name/cancel.
func (h *HTTPHandler) CancelRaffle(c *gin.Context) {
	var req callerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.service.CancelRaffle(raffleKey(c), req.Caller)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ClaimPrize handles POST /raffles/:authority/:name/claim.
func (h *HTTPHandler) ClaimPrize(c *gin.Context) {
	var req callerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	r, err := h.service.ClaimPrize(raffleKey(c), req.Caller)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ClaimRefund handles POST /raffles/:authority/:name/refund.
func (h *HTTPHandler) ClaimRefund(c *gin.Context) {
	var req callerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e, err := h.service.ClaimRefund(raffleKey(c), req.Caller)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// CreateCommitment handles POST /oracle/commitments: it asks the beacon
// for a fresh slot-bound commitment to drive a draw with.
func (h *HTTPHandler) CreateCommitment(c *gin.Context) {
	ref, err := h.beacon.Commit()
	if err != nil {
		fail(c, err)
		return
	}
	state, err := h.beacon.CommitState(ref)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"oracleRef": ref, "seedSlot": state.SeedSlot})
}

// GetBalance handles GET /accounts/:id/balance.
func (h *HTTPHandler) GetBalance(c *gin.Context) {
	id := c.Param("id")
	c.JSON(http.StatusOK, gin.H{"account": id, "balance": h.book.Balance(id)})
}

type depositReq struct {
	Amount uint64 `json:"amount" binding:"required"`
}

// Deposit handles POST /accounts/:id/deposit (dev mode only).
func (h *HTTPHandler) Deposit(c *gin.Context) {
	var req depositReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.book.Deposit(c.Param("id"), req.Amount)
	c.JSON(http.StatusOK, gin.H{"account": c.Param("id"), "balance": h.book.Balance(c.Param("id"))})
}
