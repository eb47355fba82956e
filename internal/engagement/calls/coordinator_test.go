package calls

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/content"
	"nurture_backend/internal/engagement/sessions"
	"nurture_backend/internal/gateway"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	platformevents "nurture_backend/platform/events"
	"nurture_backend/platform/logger"
)

type fakeRepo struct {
	lead            repository.Lead
	calls           []repository.CreateCallParams
	lastCallAttempt *time.Time
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	if id != f.lead.ID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return f.lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status domain.Status) (repository.Lead, error) {
	f.lead.Status = status
	return f.lead, nil
}

func (f *fakeRepo) SetLastCallAttempt(_ context.Context, _ uuid.UUID, at time.Time) error {
	f.lastCallAttempt = &at
	return nil
}

func (f *fakeRepo) CreateCall(_ context.Context, params repository.CreateCallParams) (repository.Call, error) {
	f.calls = append(f.calls, params)
	return repository.Call{ID: uuid.New(), LeadID: params.LeadID, Status: params.Status}, nil
}

func (f *fakeRepo) CreateMessage(_ context.Context, params repository.CreateMessageParams) (repository.Message, error) {
	return repository.Message{ID: uuid.New(), LeadID: params.LeadID}, nil
}

func (f *fakeRepo) UpdateMessageDeliveryStatus(_ context.Context, _, _ string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

type fakePlacer struct {
	placed []gateway.PlaceCallParams
	err    error
}

func (f *fakePlacer) PlaceCall(_ context.Context, params gateway.PlaceCallParams) (gateway.CallRef, error) {
	if f.err != nil {
		return gateway.CallRef{}, f.err
	}
	f.placed = append(f.placed, params)
	return gateway.CallRef{ProviderCallID: "call-2"}, nil
}

type fakeFallback struct {
	scheduled []string
}

func (f *fakeFallback) ScheduleFallbackText(_ context.Context, _ repository.Lead, fallbackType string) error {
	f.scheduled = append(f.scheduled, fallbackType)
	return nil
}

type fakeEval struct {
	evaluated []uuid.UUID
}

func (f *fakeEval) Evaluate(_ context.Context, leadID uuid.UUID) error {
	f.evaluated = append(f.evaluated, leadID)
	return nil
}

type fixture struct {
	coord    *Coordinator
	registry *sessions.Registry
	repo     *fakeRepo
	placer   *fakePlacer
	fallback *fakeFallback
	eval     *fakeEval
}

func newFixture() *fixture {
	log := logger.New("test")
	repo := &fakeRepo{lead: repository.Lead{
		ID:                  uuid.New(),
		AccountID:           uuid.New(),
		PhoneNumber:         "+14155550123",
		Status:              domain.StatusNew,
		AIEnabled:           true,
		VoiceCallingEnabled: true,
	}}
	registry := sessions.NewRegistry(time.Hour)
	placer := &fakePlacer{}
	fallback := &fakeFallback{}
	eval := &fakeEval{}
	coord := New(registry, repo, placer, fallback, eval, content.NewStaticGenerator(), platformevents.NewInMemoryBus(log), log)
	return &fixture{coord: coord, registry: registry, repo: repo, placer: placer, fallback: fallback, eval: eval}
}

func (fx *fixture) openAttempt(attempt int) {
	fx.registry.Open(sessions.Session{
		ProviderCallID: "call-1",
		LeadID:         fx.repo.lead.ID,
		ContactID:      uuid.New(),
		AttemptNumber:  attempt,
		CallType:       domain.CallTypeNewLead,
	})
}

func TestLiveAnswerEndsFunnel(t *testing.T) {
	fx := newFixture()
	fx.openAttempt(1)

	err := fx.coord.OnCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID:  "call-1",
		Status:          "completed",
		DurationSeconds: 95,
	})
	if err != nil {
		t.Fatalf("OnCallCompleted: %v", err)
	}

	if len(fx.placer.placed) != 0 {
		t.Fatalf("placed %d calls, want 0", len(fx.placer.placed))
	}
	if len(fx.fallback.scheduled) != 0 {
		t.Fatalf("scheduled %d fallbacks, want 0", len(fx.fallback.scheduled))
	}
	if len(fx.repo.calls) != 1 || fx.repo.calls[0].Status != "completed" {
		t.Fatalf("recorded calls = %+v", fx.repo.calls)
	}
	if len(fx.eval.evaluated) != 1 {
		t.Fatalf("evaluations = %d, want 1", len(fx.eval.evaluated))
	}
	if fx.registry.Len() != 0 {
		t.Fatal("session not closed")
	}
}

func TestVoicemailSkipsSecondCall(t *testing.T) {
	fx := newFixture()
	fx.openAttempt(1)

	err := fx.coord.OnCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID: "call-1",
		Status:         "completed",
		IsVoicemail:    true,
	})
	if err != nil {
		t.Fatalf("OnCallCompleted: %v", err)
	}

	if len(fx.placer.placed) != 0 {
		t.Fatalf("placed %d calls, want 0", len(fx.placer.placed))
	}
	if len(fx.fallback.scheduled) != 1 || fx.fallback.scheduled[0] != domain.FallbackVoicemail {
		t.Fatalf("fallbacks = %v, want [%s]", fx.fallback.scheduled, domain.FallbackVoicemail)
	}
}

func TestMissedFirstCallPlacesSecondImmediately(t *testing.T) {
	fx := newFixture()
	fx.openAttempt(1)

	err := fx.coord.OnCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID: "call-1",
		Status:         "no-answer",
	})
	if err != nil {
		t.Fatalf("OnCallCompleted: %v", err)
	}

	if len(fx.placer.placed) != 1 {
		t.Fatalf("placed %d calls, want 1", len(fx.placer.placed))
	}
	p := fx.placer.placed[0]
	if p.AttemptNumber != 2 || p.CallType != domain.CallTypeNewLead {
		t.Fatalf("second placement = %+v", p)
	}
	if len(fx.fallback.scheduled) != 0 {
		t.Fatalf("fallbacks = %v, want none yet", fx.fallback.scheduled)
	}
	sess, ok := fx.registry.Get("call-2")
	if !ok || sess.AttemptNumber != 2 {
		t.Fatalf("second attempt session = %+v (ok=%v)", sess, ok)
	}
	if fx.repo.lastCallAttempt == nil {
		t.Fatal("last call attempt not recorded")
	}
}

func TestSecondMissAndSecondVoicemailFallbacks(t *testing.T) {
	cases := []struct {
		name       string
		completion gateway.CallCompletion
		want       string
	}{
		{"missed twice", gateway.CallCompletion{ProviderCallID: "call-1", Status: "busy"}, domain.FallbackMissed},
		{"voicemail on retry", gateway.CallCompletion{ProviderCallID: "call-1", Status: "completed", IsVoicemail: true}, domain.FallbackVoicemail},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fx := newFixture()
			fx.openAttempt(2)

			if err := fx.coord.OnCallCompleted(context.Background(), tc.completion); err != nil {
				t.Fatalf("OnCallCompleted: %v", err)
			}
			if len(fx.placer.placed) != 0 {
				t.Fatalf("placed %d calls, want 0", len(fx.placer.placed))
			}
			if len(fx.fallback.scheduled) != 1 || fx.fallback.scheduled[0] != tc.want {
				t.Fatalf("fallbacks = %v, want [%s]", fx.fallback.scheduled, tc.want)
			}
		})
	}
}

func TestPlacementFailureFallsBackToText(t *testing.T) {
	fx := newFixture()
	fx.placer.err = errors.New("bridge unavailable")
	fx.openAttempt(1)

	err := fx.coord.OnCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID: "call-1",
		Status:         "no-answer",
	})
	if err != nil {
		t.Fatalf("OnCallCompleted: %v", err)
	}
	if len(fx.fallback.scheduled) != 1 || fx.fallback.scheduled[0] != domain.FallbackMissed {
		t.Fatalf("fallbacks = %v, want [%s]", fx.fallback.scheduled, domain.FallbackMissed)
	}
}

func TestUnknownSessionDropped(t *testing.T) {
	fx := newFixture()

	err := fx.coord.OnCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID: "never-placed",
		Status:         "completed",
	})
	if err != nil {
		t.Fatalf("OnCallCompleted: %v", err)
	}
	if len(fx.repo.calls) != 0 {
		t.Fatalf("recorded %d calls, want 0", len(fx.repo.calls))
	}
	if len(fx.eval.evaluated) != 0 {
		t.Fatal("evaluated lead for unroutable completion")
	}
}

func TestFollowUpCallNeverEntersFunnel(t *testing.T) {
	fx := newFixture()
	fx.registry.Open(sessions.Session{
		ProviderCallID: "call-1",
		LeadID:         fx.repo.lead.ID,
		AttemptNumber:  1,
		CallType:       domain.CallTypeFollowUp,
	})

	err := fx.coord.OnCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID: "call-1",
		Status:         "no-answer",
	})
	if err != nil {
		t.Fatalf("OnCallCompleted: %v", err)
	}
	if len(fx.placer.placed) != 0 || len(fx.fallback.scheduled) != 0 {
		t.Fatalf("follow-up call triggered funnel: placed=%d fallbacks=%d",
			len(fx.placer.placed), len(fx.fallback.scheduled))
	}
	if len(fx.eval.evaluated) != 1 {
		t.Fatalf("evaluations = %d, want 1", len(fx.eval.evaluated))
	}
}
