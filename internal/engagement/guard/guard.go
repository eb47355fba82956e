// Package guard enforces the account's contact limits before anything is
// dispatched: calling hours, call spacing, and the quarterly reactivation
// cap. Quota enforcement after plan downgrades lives in quota.go.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/logger"
)

// Decision is the guard's ruling on a contact attempt.
type Decision int

const (
	// DecisionAllow lets the contact proceed now.
	DecisionAllow Decision = iota
	// DecisionDefer leaves the contact scheduled for a later tick.
	DecisionDefer
	// DecisionSuppress cancels the contact for good.
	DecisionSuppress
)

// Verdict pairs a decision with a reason for the audit log.
type Verdict struct {
	Decision Decision
	Reason   string
}

func allowed() Verdict                { return Verdict{Decision: DecisionAllow, Reason: "ok"} }
func deferred(reason string) Verdict  { return Verdict{Decision: DecisionDefer, Reason: reason} }
func suppressed(reason string) Verdict { return Verdict{Decision: DecisionSuppress, Reason: reason} }

// Repository is the data access slice the guard needs.
type Repository interface {
	repository.PolicyReader
	CountCallsSince(ctx context.Context, leadID uuid.UUID, since time.Time) (int, error)
}

// Guard evaluates contact attempts against account policy.
type Guard struct {
	repo Repository
	log  *logger.Logger
	now  func() time.Time
}

// New creates a guard.
func New(repo Repository, log *logger.Logger) *Guard {
	return &Guard{repo: repo, log: log, now: time.Now}
}

// WithClock overrides the guard clock. Test hook.
func (g *Guard) WithClock(now func() time.Time) *Guard {
	g.now = now
	return g
}

// New-lead calls are limited to one per day; the funnel's immediate second
// attempt bypasses the guard, so this only throttles re-dispatch.
const newLeadCallSpacing = 24 * time.Hour

// AllowCall rules on an outbound call attempt. Deferrals keep the contact
// queued for a later tick; suppressions retire it.
func (g *Guard) AllowCall(ctx context.Context, lead repository.Lead, callType string) (Verdict, error) {
	policy, err := g.repo.GetPolicy(ctx, lead.AccountID)
	if err != nil {
		return Verdict{}, err
	}

	now := g.now()
	if v := g.checkCallingWindow(now, policy); v.Decision != DecisionAllow {
		return v, nil
	}

	if lead.LastCallAttempt != nil {
		spacing := time.Duration(policy.MinCallSpacingHours) * time.Hour
		if callType == domain.CallTypeNewLead && newLeadCallSpacing > spacing {
			spacing = newLeadCallSpacing
		}
		if now.Sub(*lead.LastCallAttempt) < spacing {
			return deferred("call_spacing"), nil
		}
	}

	if callType == domain.CallTypeReactivation {
		count, err := g.repo.CountCallsSince(ctx, lead.ID, quarterStart(now))
		if err != nil {
			return Verdict{}, err
		}
		if count >= policy.QuarterlyCallLimit {
			return suppressed("quarterly_call_limit"), nil
		}
	}

	return allowed(), nil
}

// checkCallingWindow applies the account-local calling window. The window is
// half-open: a 11-19 window allows 11:00 through 18:59.
func (g *Guard) checkCallingWindow(now time.Time, policy repository.AccountPolicy) Verdict {
	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		g.log.Warn("guard: invalid policy timezone, using UTC", "timezone", policy.Timezone)
		loc = time.UTC
	}
	local := now.In(loc)

	if !containsDay(policy.CallingDays, int(local.Weekday())) {
		return deferred("outside_calling_days")
	}
	if h := local.Hour(); h < policy.CallingStartHour || h >= policy.CallingEndHour {
		return deferred(fmt.Sprintf("outside_calling_hours_%02d-%02d", policy.CallingStartHour, policy.CallingEndHour))
	}
	return allowed()
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}

// quarterStart returns the first instant of the quarter containing t.
func quarterStart(t time.Time) time.Time {
	month := time.Month(((int(t.Month())-1)/3)*3 + 1)
	return time.Date(t.Year(), month, 1, 0, 0, 0, 0, t.Location())
}
