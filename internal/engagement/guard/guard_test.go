package guard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/logger"
)

type fakeGuardRepo struct {
	policy    repository.AccountPolicy
	callCount int
}

func (f *fakeGuardRepo) GetPolicy(_ context.Context, _ uuid.UUID) (repository.AccountPolicy, error) {
	return f.policy, nil
}

func (f *fakeGuardRepo) CountCallsSince(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return f.callCount, nil
}

func newGuard(repo *fakeGuardRepo, now time.Time) *Guard {
	return New(repo, logger.New("test")).WithClock(func() time.Time { return now })
}

func guardLead() repository.Lead {
	return repository.Lead{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		PhoneNumber: "+14155550123",
		Status:      domain.StatusNew,
		AIEnabled:   true,
	}
}

// Monday 2026-03-02.
func at(hour int) time.Time {
	return time.Date(2026, 3, 2, hour, 30, 0, 0, time.UTC)
}

func TestAllowCallWithinWindow(t *testing.T) {
	repo := &fakeGuardRepo{policy: repository.DefaultPolicy(uuid.New())}
	g := newGuard(repo, at(14))

	v, err := g.AllowCall(context.Background(), guardLead(), domain.CallTypeFollowUp)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionAllow {
		t.Fatalf("decision = %v (%s), want allow", v.Decision, v.Reason)
	}
}

func TestCallingWindowBoundaries(t *testing.T) {
	cases := []struct {
		hour int
		want Decision
	}{
		{10, DecisionDefer},
		{11, DecisionAllow},
		{18, DecisionAllow},
		{19, DecisionDefer},
		{22, DecisionDefer},
	}
	repo := &fakeGuardRepo{policy: repository.DefaultPolicy(uuid.New())}
	for _, tc := range cases {
		g := newGuard(repo, at(tc.hour))
		v, err := g.AllowCall(context.Background(), guardLead(), domain.CallTypeFollowUp)
		if err != nil {
			t.Fatalf("hour %d: %v", tc.hour, err)
		}
		if v.Decision != tc.want {
			t.Fatalf("hour %d: decision = %v (%s), want %v", tc.hour, v.Decision, v.Reason, tc.want)
		}
	}
}

func TestCallingWindowUsesPolicyTimezone(t *testing.T) {
	policy := repository.DefaultPolicy(uuid.New())
	policy.Timezone = "America/New_York"
	repo := &fakeGuardRepo{policy: policy}

	// 17:30 UTC is 12:30 in New York: inside the window there, before it in UTC terms.
	g := newGuard(repo, at(17))
	v, err := g.AllowCall(context.Background(), guardLead(), domain.CallTypeFollowUp)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionAllow {
		t.Fatalf("decision = %v (%s), want allow", v.Decision, v.Reason)
	}

	// 14:30 UTC is 09:30 in New York: before the local window opens.
	g = newGuard(repo, at(14))
	v, err = g.AllowCall(context.Background(), guardLead(), domain.CallTypeFollowUp)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionDefer {
		t.Fatalf("decision = %v (%s), want defer", v.Decision, v.Reason)
	}
}

func TestCallingDaysDefer(t *testing.T) {
	policy := repository.DefaultPolicy(uuid.New())
	policy.CallingDays = []int{1, 2, 3, 4, 5} // weekdays only
	repo := &fakeGuardRepo{policy: policy}

	sunday := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)
	g := newGuard(repo, sunday)
	v, err := g.AllowCall(context.Background(), guardLead(), domain.CallTypeFollowUp)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionDefer || v.Reason != "outside_calling_days" {
		t.Fatalf("verdict = %+v, want defer outside_calling_days", v)
	}
}

func TestCallSpacing(t *testing.T) {
	repo := &fakeGuardRepo{policy: repository.DefaultPolicy(uuid.New())}
	now := at(14)
	g := newGuard(repo, now)

	lead := guardLead()
	recent := now.Add(-time.Hour)
	lead.LastCallAttempt = &recent

	// An hour since the last attempt defers everything.
	v, err := g.AllowCall(context.Background(), lead, domain.CallTypeFollowUp)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionDefer || v.Reason != "call_spacing" {
		t.Fatalf("verdict = %+v, want defer call_spacing", v)
	}

	// Follow-up calls only need the policy's short spacing.
	threeHoursAgo := now.Add(-3 * time.Hour)
	lead.LastCallAttempt = &threeHoursAgo
	v, err = g.AllowCall(context.Background(), lead, domain.CallTypeFollowUp)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionAllow {
		t.Fatalf("verdict = %+v, want allow after spacing elapsed", v)
	}

	// New-lead calls are one per day.
	v, err = g.AllowCall(context.Background(), lead, domain.CallTypeNewLead)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionDefer || v.Reason != "call_spacing" {
		t.Fatalf("verdict = %+v, want defer for new-lead within 24h", v)
	}

	twoDaysAgo := now.Add(-48 * time.Hour)
	lead.LastCallAttempt = &twoDaysAgo
	v, err = g.AllowCall(context.Background(), lead, domain.CallTypeNewLead)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionAllow {
		t.Fatalf("verdict = %+v, want allow after a full day", v)
	}
}

func TestQuarterlyReactivationCap(t *testing.T) {
	repo := &fakeGuardRepo{policy: repository.DefaultPolicy(uuid.New()), callCount: 1}
	g := newGuard(repo, at(14))

	v, err := g.AllowCall(context.Background(), guardLead(), domain.CallTypeReactivation)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionSuppress || v.Reason != "quarterly_call_limit" {
		t.Fatalf("verdict = %+v, want suppress quarterly_call_limit", v)
	}

	repo.callCount = 0
	v, err = g.AllowCall(context.Background(), guardLead(), domain.CallTypeReactivation)
	if err != nil {
		t.Fatalf("AllowCall: %v", err)
	}
	if v.Decision != DecisionAllow {
		t.Fatalf("verdict = %+v, want allow under the cap", v)
	}
}

func TestQuarterStart(t *testing.T) {
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{time.Date(2026, 2, 15, 9, 0, 0, 0, time.UTC), time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, 12, 31, 23, 59, 0, 0, time.UTC), time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		if got := quarterStart(tc.in); !got.Equal(tc.want) {
			t.Fatalf("quarterStart(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
