// Package policy maps lead statuses to follow-up intervals from the
// account's communication policy. Pure functions only.
package policy

import (
	"time"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
)

// FollowUpInterval returns how many days must elapse before the next contact
// attempt for a lead in the given status. Unknown statuses fall back to the
// conversation interval; the second return value is false so the caller can
// log a warning.
func FollowUpInterval(status domain.Status, p repository.AccountPolicy) (int, bool) {
	switch status {
	case domain.StatusNew:
		return p.FollowUpNewDays, true
	case domain.StatusInConversation:
		return p.FollowUpConversationDays, true
	case domain.StatusQualified, domain.StatusAppointmentSet:
		return p.FollowUpQualifiedDays, true
	case domain.StatusInactive:
		return p.FollowUpInactiveDays, true
	default:
		return p.FollowUpConversationDays, false
	}
}

// NextContactAt computes the due time of the next follow-up from now.
func NextContactAt(now time.Time, status domain.Status, p repository.AccountPolicy) (time.Time, bool) {
	days, known := FollowUpInterval(status, p)
	return now.AddDate(0, 0, days), known
}
