package domain

import (
	"testing"
	"time"
)

func TestMergeTimelineOrdersByTimestamp(t *testing.T) {
	now := time.Now()
	messages := []MessageRecord{
		{Timestamp: now.Add(3 * time.Minute), FromLead: true, DeliveryStatus: "delivered"},
		{Timestamp: now, FromLead: false, DeliveryStatus: "failed"},
	}
	calls := []CallRecord{
		{Timestamp: now.Add(time.Minute), FromLead: false, Status: "no-answer"},
		{Timestamp: now.Add(2 * time.Minute), FromLead: false, Status: "completed"},
	}

	timeline := MergeTimeline(messages, calls)
	if len(timeline) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(timeline))
	}
	for i := 1; i < len(timeline); i++ {
		if timeline[i].Timestamp.Before(timeline[i-1].Timestamp) {
			t.Fatalf("timeline out of order at index %d", i)
		}
	}
	if !timeline[0].Failed {
		t.Fatalf("expected failed message first")
	}
	if !timeline[1].Failed {
		t.Fatalf("expected no-answer call to count as failed")
	}
	if timeline[2].Failed {
		t.Fatalf("expected completed call to count as success")
	}
	if !timeline[3].FromLead {
		t.Fatalf("expected lead reply last")
	}
}

func TestCallFailedClassification(t *testing.T) {
	for _, status := range []string{"failed", "busy", "no-answer", "canceled"} {
		if !CallFailed(status) {
			t.Fatalf("expected %q to be a failed outcome", status)
		}
	}
	for _, status := range []string{"completed", "in-progress", "ringing"} {
		if CallFailed(status) {
			t.Fatalf("expected %q not to be a failed outcome", status)
		}
	}
}
