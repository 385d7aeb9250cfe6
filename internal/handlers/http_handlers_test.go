package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"

	"raffle/internal/ledger"
	"raffle/internal/models"
	"raffle/internal/oracle"
	"raffle/internal/services"
	"raffle/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	lg := logger.Init("handlers-test", false, false, io.Discard)
	code := m.Run()
	lg.Close()
	os.Exit(code)
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "raffle.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clock := oracle.WallClock{Epoch: time.Now(), SlotDur: time.Second}
	beacon := oracle.NewBeacon(clock, []byte("test-secret"))
	book := ledger.NewBook()
	svc := services.NewRaffleService(st, book, beacon, clock, 500)

	r := gin.New()
	NewHTTPHandler(svc, book, beacon, true).RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func createTestRaffle(t *testing.T, router *gin.Engine) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/raffles", gin.H{
		"authority":    "operator",
		"name":         "summer",
		"mint":         "credits",
		"feeRecipient": "treasury",
		"ticketPrice":  10,
		"minPot":       100,
		"endTime":      time.Now().Add(time.Hour).Unix(),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create raffle: status %d, body %s", w.Code, w.Body.String())
	}
}

func TestCreateAndGetRaffle(t *testing.T) {
	router := newTestRouter(t)
	createTestRaffle(t, router)

	w := doJSON(t, router, http.MethodGet, "/raffles/operator/summer", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get raffle: status %d", w.Code)
	}
	var r models.Raffle
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatal(err)
	}
	if r.Status != models.StatusActive || r.TicketPrice != 10 {
		t.Fatalf("unexpected raffle: %+v", r)
	}

	w = doJSON(t, router, http.MethodGet, "/raffles", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list raffles: status %d", w.Code)
	}
}

func TestCreateRaffleRejectsBadParams(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodPost, "/raffles", gin.H{
		"authority":    "operator",
		"name":         "summer",
		"feeRecipient": "treasury",
		"ticketPrice":  0,
		"minPot":       100,
		"endTime":      time.Now().Add(time.Hour).Unix(),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetMissingRaffleIs404(t *testing.T) {
	router := newTestRouter(t)
	w := doJSON(t, router, http.MethodGet, "/raffles/operator/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestBuyTicketsOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	createTestRaffle(t, router)

	// Fund alice through the dev faucet, then buy.
	w := doJSON(t, router, http.MethodPost, "/accounts/alice/deposit", gin.H{"amount": 1000})
	if w.Code != http.StatusOK {
		t.Fatalf("deposit: status %d", w.Code)
	}
	w = doJSON(t, router, http.MethodPost, "/raffles/operator/summer/tickets", gin.H{"buyer": "alice", "count": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("buy: status %d, body %s", w.Code, w.Body.String())
	}
	var e models.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &e); err != nil {
		t.Fatal(err)
	}
	if e.StartTicketIndex != 0 || e.NumTickets != 5 {
		t.Fatalf("entry = [%d,+%d), want [0,+5)", e.StartTicketIndex, e.NumTickets)
	}

	w = doJSON(t, router, http.MethodGet, "/accounts/alice/balance", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("balance: status %d", w.Code)
	}
	var bal struct {
		Balance uint64 `json:"balance"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &bal); err != nil {
		t.Fatal(err)
	}
	if bal.Balance != 950 {
		t.Fatalf("alice balance = %d, want 950", bal.Balance)
	}
}

func TestBuyWithoutFundsIsConflict(t *testing.T) {
	router := newTestRouter(t)
	createTestRaffle(t, router)
	w := doJSON(t, router, http.MethodPost, "/raffles/operator/summer/tickets", gin.H{"buyer": "pauper", "count": 1})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", w.Code, w.Body.String())
	}
}

func TestCommitBeforeDeadlineIsConflict(t *testing.T) {
	router := newTestRouter(t)
	createTestRaffle(t, router)

	w := doJSON(t, router, http.MethodPost, "/oracle/commitments", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("create commitment: status %d", w.Code)
	}
	var commit struct {
		OracleRef string `json:"oracleRef"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &commit); err != nil {
		t.Fatal(err)
	}
	if commit.OracleRef == "" {
		t.Fatal("empty oracle reference")
	}

	w = doJSON(t, router, http.MethodPost, "/raffles/operator/summer/commit", gin.H{"oracleRef": commit.OracleRef})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (%s)", w.Code, w.Body.String())
	}
}
