// Package domain holds the lead lifecycle model: statuses, the merged
// communication timeline, and the pure status derivation rules. Services
// persist and react; everything in this package is side-effect free.
package domain

// Status is a lead's lifecycle status.
type Status string

const (
	StatusNew            Status = "new"
	StatusInConversation Status = "in_conversation"
	StatusQualified      Status = "qualified"
	StatusAppointmentSet Status = "appointment_set"
	StatusConverted      Status = "converted"
	StatusInactive       Status = "inactive"
)

// inactivityThreshold is the number of consecutive unanswered or failed
// agent-originated communications after which a lead is written off.
const inactivityThreshold = 10

// IsTerminal reports whether the status can never be changed automatically.
// Converted leads stay converted; only a human can touch them.
func IsTerminal(s Status) bool {
	return s == StatusConverted
}

// IsConversationTrack reports whether the status belongs to the active
// conversation track. Qualified and appointment_set are manually-set
// sub-states of that track and are preserved by automatic evaluation.
func IsConversationTrack(s Status) bool {
	return s == StatusInConversation || s == StatusQualified || s == StatusAppointmentSet
}

// Valid reports whether s is a known lifecycle status.
func Valid(s Status) bool {
	switch s {
	case StatusNew, StatusInConversation, StatusQualified, StatusAppointmentSet, StatusConverted, StatusInactive:
		return true
	}
	return false
}

// DeriveStatus computes the lead's status from its merged communication
// timeline. It returns the derived status and whether it differs from
// current. The function is idempotent: the same current status and timeline
// always produce the same result.
//
// Rules, in order:
//  1. A converted lead is never changed; the caller logs the refusal.
//  2. Ten or more consecutive unanswered agent contacts, or a trailing run
//     of ten or more failed agent contacts, force the lead inactive.
//  3. Any response from the lead puts it on the conversation track; manual
//     sub-states (qualified, appointment_set) are preserved there.
//  4. Otherwise the lead is still new.
func DeriveStatus(current Status, timeline []Entry) (Status, bool) {
	if IsTerminal(current) {
		return current, false
	}

	leadResponded := false
	for _, e := range timeline {
		if e.FromLead {
			leadResponded = true
			break
		}
	}

	noResponse := consecutiveNoResponse(timeline)
	failures := consecutiveFailures(timeline)

	var derived Status
	switch {
	case noResponse >= inactivityThreshold || failures >= inactivityThreshold:
		derived = StatusInactive
	case leadResponded:
		if IsConversationTrack(current) {
			derived = current
		} else {
			derived = StatusInConversation
		}
	default:
		derived = StatusNew
	}

	return derived, derived != current
}

// consecutiveNoResponse counts agent-originated entries after the lead's
// last response, or all agent entries if the lead never responded.
func consecutiveNoResponse(timeline []Entry) int {
	count := 0
	for i := len(timeline) - 1; i >= 0; i-- {
		if timeline[i].FromLead {
			break
		}
		count++
	}
	return count
}

// consecutiveFailures measures the trailing run of failed agent-originated
// entries. A lead response or a successful agent contact breaks the run.
func consecutiveFailures(timeline []Entry) int {
	count := 0
	for i := len(timeline) - 1; i >= 0; i-- {
		if timeline[i].FromLead || !timeline[i].Failed {
			break
		}
		count++
	}
	return count
}
