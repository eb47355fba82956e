package domain

import (
	"sort"
	"time"
)

// Channel identifies the communication channel of a contact.
type Channel string

const (
	ChannelCall    Channel = "call"
	ChannelMessage Channel = "message"
)

// Call fallback variants sent after the new-lead call funnel resolves
// without a live answer.
const (
	FallbackVoicemail = "voicemail_2calls"
	FallbackMissed    = "missed_2calls"
)

// Call types within the engagement funnel.
const (
	CallTypeNewLead      = "new_lead"
	CallTypeFollowUp     = "follow_up"
	CallTypeReactivation = "reactivation"
)

// MessageRecord is one SMS in a lead's history.
type MessageRecord struct {
	Timestamp      time.Time
	FromLead       bool
	DeliveryStatus string
}

// CallRecord is one phone call in a lead's history.
type CallRecord struct {
	Timestamp time.Time
	FromLead  bool
	Status    string
}

// Entry is the shared projection of a message or call used by the status
// derivation walk: when it happened, who originated it, and whether it failed.
type Entry struct {
	Timestamp time.Time
	FromLead  bool
	Failed    bool
}

// failedCallStatuses are the provider call outcomes counted as failures.
var failedCallStatuses = map[string]bool{
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// CallFailed reports whether a provider call status counts as a failed contact.
func CallFailed(status string) bool {
	return failedCallStatuses[status]
}

func messageEntry(m MessageRecord) Entry {
	return Entry{
		Timestamp: m.Timestamp,
		FromLead:  m.FromLead,
		Failed:    m.DeliveryStatus == "failed",
	}
}

func callEntry(c CallRecord) Entry {
	return Entry{
		Timestamp: c.Timestamp,
		FromLead:  c.FromLead,
		Failed:    CallFailed(c.Status),
	}
}

// MergeTimeline merges messages and calls into one chronological timeline
// of shared projections, ordered by timestamp ascending.
func MergeTimeline(messages []MessageRecord, calls []CallRecord) []Entry {
	entries := make([]Entry, 0, len(messages)+len(calls))
	for _, m := range messages {
		entries = append(entries, messageEntry(m))
	}
	for _, c := range calls {
		entries = append(entries, callEntry(c))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})

	return entries
}
