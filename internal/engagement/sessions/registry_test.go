package sessions

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRegistryOpenGetClose(t *testing.T) {
	r := NewRegistry(time.Hour)
	s := Session{
		ProviderCallID: "call-abc",
		LeadID:         uuid.New(),
		ContactID:      uuid.New(),
		AttemptNumber:  1,
		CallType:       "new_lead",
	}
	r.Open(s)

	got, ok := r.Get("call-abc")
	if !ok {
		t.Fatal("session not found after Open")
	}
	if got.LeadID != s.LeadID || got.AttemptNumber != 1 {
		t.Fatalf("got %+v, want %+v", got, s)
	}
	if got.StartedAt.IsZero() {
		t.Fatal("StartedAt not stamped")
	}

	r.Close("call-abc")
	if _, ok := r.Get("call-abc"); ok {
		t.Fatal("session still present after Close")
	}
}

func TestRegistrySweepDropsStale(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	r := NewRegistry(30 * time.Minute).WithClock(func() time.Time { return now })

	r.Open(Session{ProviderCallID: "stale", StartedAt: now.Add(-time.Hour)})
	r.Open(Session{ProviderCallID: "fresh", StartedAt: now.Add(-time.Minute)})

	if removed := r.Sweep(); removed != 1 {
		t.Fatalf("Sweep removed %d, want 1", removed)
	}
	if _, ok := r.Get("stale"); ok {
		t.Fatal("stale session survived sweep")
	}
	if _, ok := r.Get("fresh"); !ok {
		t.Fatal("fresh session removed by sweep")
	}
}
