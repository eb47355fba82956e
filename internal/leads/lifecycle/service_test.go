package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	platformevents "nurture_backend/platform/events"
	"nurture_backend/platform/logger"
)

type fakeRepo struct {
	lead     repository.Lead
	messages []domain.MessageRecord
	calls    []domain.CallRecord
	updates  []domain.Status
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	if id != f.lead.ID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return f.lead, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, _ uuid.UUID, status domain.Status) (repository.Lead, error) {
	f.lead.Status = status
	f.updates = append(f.updates, status)
	return f.lead, nil
}

func (f *fakeRepo) SetLastCallAttempt(_ context.Context, _ uuid.UUID, _ time.Time) error {
	return nil
}

func (f *fakeRepo) GetTimeline(_ context.Context, _ uuid.UUID) ([]domain.MessageRecord, []domain.CallRecord, error) {
	return f.messages, f.calls, nil
}

func (f *fakeRepo) CountCallsSince(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return 0, nil
}

func (f *fakeRepo) LatestInboundMessageID(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	return uuid.Nil, repository.ErrNotFound
}

type fakeScheduler struct {
	scheduled     []repository.Lead
	callSchedules []repository.Lead
}

func (f *fakeScheduler) ScheduleNextFollowUp(_ context.Context, lead repository.Lead) error {
	f.scheduled = append(f.scheduled, lead)
	return nil
}

func (f *fakeScheduler) ScheduleFollowUpCalls(_ context.Context, lead repository.Lead) error {
	f.callSchedules = append(f.callSchedules, lead)
	return nil
}

func newService(repo *fakeRepo, sched *fakeScheduler) *Service {
	log := logger.New("test")
	return New(repo, sched, platformevents.NewInMemoryBus(log), log)
}

func ts(minute int) time.Time {
	return time.Date(2026, 3, 2, 12, minute, 0, 0, time.UTC)
}

func TestEvaluateMovesLeadToConversationOnReply(t *testing.T) {
	repo := &fakeRepo{lead: repository.Lead{ID: uuid.New(), Status: domain.StatusNew, AIEnabled: true, PhoneNumber: "+14155550123"}}
	repo.messages = []domain.MessageRecord{
		{Timestamp: ts(0), FromLead: false, DeliveryStatus: "sent"},
		{Timestamp: ts(5), FromLead: true, DeliveryStatus: "received"},
	}
	sched := &fakeScheduler{}

	if err := newService(repo, sched).Evaluate(context.Background(), repo.lead.ID); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if repo.lead.Status != domain.StatusInConversation {
		t.Fatalf("status = %s, want in_conversation", repo.lead.Status)
	}
	if len(sched.scheduled) != 1 {
		t.Fatalf("follow-ups scheduled = %d, want 1", len(sched.scheduled))
	}
	// The scheduler must see the lead's post-transition status.
	if sched.scheduled[0].Status != domain.StatusInConversation {
		t.Fatalf("scheduled with status %s, want in_conversation", sched.scheduled[0].Status)
	}
}

func TestEvaluateIdempotentWithoutChange(t *testing.T) {
	repo := &fakeRepo{lead: repository.Lead{ID: uuid.New(), Status: domain.StatusNew, AIEnabled: true, PhoneNumber: "+14155550123"}}
	repo.messages = []domain.MessageRecord{
		{Timestamp: ts(0), FromLead: false, DeliveryStatus: "sent"},
	}
	sched := &fakeScheduler{}
	svc := newService(repo, sched)

	for i := 0; i < 3; i++ {
		if err := svc.Evaluate(context.Background(), repo.lead.ID); err != nil {
			t.Fatalf("Evaluate %d: %v", i, err)
		}
	}

	if len(repo.updates) != 0 {
		t.Fatalf("status updates = %v, want none", repo.updates)
	}
	if len(sched.scheduled) != 3 {
		t.Fatalf("follow-ups scheduled = %d, want 3", len(sched.scheduled))
	}
}

func TestEvaluateWritesOffUnresponsiveLead(t *testing.T) {
	repo := &fakeRepo{lead: repository.Lead{ID: uuid.New(), Status: domain.StatusNew, AIEnabled: true, PhoneNumber: "+14155550123"}}
	for i := 0; i < 10; i++ {
		repo.messages = append(repo.messages, domain.MessageRecord{
			Timestamp: ts(i), FromLead: false, DeliveryStatus: "sent",
		})
	}
	sched := &fakeScheduler{}

	if err := newService(repo, sched).Evaluate(context.Background(), repo.lead.ID); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if repo.lead.Status != domain.StatusInactive {
		t.Fatalf("status = %s, want inactive", repo.lead.Status)
	}
}

func TestEvaluateRefusesConvertedLead(t *testing.T) {
	repo := &fakeRepo{lead: repository.Lead{ID: uuid.New(), Status: domain.StatusConverted, AIEnabled: true, PhoneNumber: "+14155550123"}}
	sched := &fakeScheduler{}

	if err := newService(repo, sched).Evaluate(context.Background(), repo.lead.ID); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(repo.updates) != 0 {
		t.Fatalf("status updates = %v, want none", repo.updates)
	}
	if len(sched.scheduled) != 0 {
		t.Fatal("scheduled follow-up for converted lead")
	}
}

func TestEvaluateSkipsArchivedLead(t *testing.T) {
	archivedAt := ts(0)
	repo := &fakeRepo{lead: repository.Lead{ID: uuid.New(), Status: domain.StatusInactive, ArchivedAt: &archivedAt}}
	sched := &fakeScheduler{}

	if err := newService(repo, sched).Evaluate(context.Background(), repo.lead.ID); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(sched.scheduled) != 0 {
		t.Fatal("scheduled follow-up for archived lead")
	}
}
