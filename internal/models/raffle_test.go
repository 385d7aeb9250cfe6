package models

import "testing"

func TestEntryHolds(t *testing.T) {
	e := &Entry{StartTicketIndex: 5, NumTickets: 3}
	for ticket, want := range map[uint32]bool{4: false, 5: true, 7: true, 8: false} {
		if got := e.Holds(ticket); got != want {
			t.Errorf("Holds(%d) = %v, want %v", ticket, got, want)
		}
	}
}

func TestKey(t *testing.T) {
	r := &Raffle{Authority: "operator", Name: "summer"}
	if r.Key() != "operator/summer" || r.Key() != Key("operator", "summer") {
		t.Fatalf("key = %q", r.Key())
	}
}
