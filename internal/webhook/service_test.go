package webhook

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"nurture_backend/internal/content"
	"nurture_backend/internal/gateway"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	platformevents "nurture_backend/platform/events"
	"nurture_backend/platform/logger"
)

type fakeRepo struct {
	lead          repository.Lead
	messages      []repository.CreateMessageParams
	deliveryLead  uuid.UUID
	deliverySeen  []string
	unknownUpdate bool
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	if id != f.lead.ID {
		return repository.Lead{}, repository.ErrNotFound
	}
	return f.lead, nil
}

func (f *fakeRepo) CreateMessage(_ context.Context, params repository.CreateMessageParams) (repository.Message, error) {
	f.messages = append(f.messages, params)
	return repository.Message{ID: uuid.New(), LeadID: params.LeadID}, nil
}

func (f *fakeRepo) CreateCall(_ context.Context, params repository.CreateCallParams) (repository.Call, error) {
	return repository.Call{ID: uuid.New(), LeadID: params.LeadID}, nil
}

func (f *fakeRepo) UpdateMessageDeliveryStatus(_ context.Context, _, status string) (uuid.UUID, error) {
	if f.unknownUpdate {
		return uuid.Nil, repository.ErrNotFound
	}
	f.deliverySeen = append(f.deliverySeen, status)
	return f.deliveryLead, nil
}

type fakeCompleter struct {
	completions []gateway.CallCompletion
}

func (f *fakeCompleter) OnCallCompleted(_ context.Context, c gateway.CallCompletion) error {
	f.completions = append(f.completions, c)
	return nil
}

type fakeEval struct{ evaluated []uuid.UUID }

func (f *fakeEval) Evaluate(_ context.Context, id uuid.UUID) error {
	f.evaluated = append(f.evaluated, id)
	return nil
}

type fakeCanceller struct{ cancelled []uuid.UUID }

func (f *fakeCanceller) CancelPendingMessages(_ context.Context, id uuid.UUID) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeReplies struct{ scheduled []uuid.UUID }

func (f *fakeReplies) ScheduleAutoReply(_ context.Context, leadID, _ uuid.UUID) error {
	f.scheduled = append(f.scheduled, leadID)
	return nil
}

type fakeSender struct{ sent []gateway.SendMessageParams }

func (f *fakeSender) SendMessage(_ context.Context, p gateway.SendMessageParams) (gateway.MessageRef, error) {
	f.sent = append(f.sent, p)
	return gateway.MessageRef{ProviderMessageID: "out-1"}, nil
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	completer *fakeCompleter
	eval      *fakeEval
	canceller *fakeCanceller
	replies   *fakeReplies
	sender    *fakeSender
}

func newFixture() *fixture {
	log := logger.New("test")
	repo := &fakeRepo{lead: repository.Lead{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		FirstName:   "Sam",
		PhoneNumber: "+14155550123",
		Status:      domain.StatusNew,
		AIEnabled:   true,
	}}
	completer := &fakeCompleter{}
	eval := &fakeEval{}
	canceller := &fakeCanceller{}
	replies := &fakeReplies{}
	sender := &fakeSender{}
	svc := NewService(repo, completer, eval, canceller, replies, content.NewStaticGenerator(), sender, platformevents.NewInMemoryBus(log), log)
	return &fixture{svc: svc, repo: repo, completer: completer, eval: eval, canceller: canceller, replies: replies, sender: sender}
}

func TestInboundMessageFlow(t *testing.T) {
	fx := newFixture()

	err := fx.svc.HandleInboundMessage(context.Background(), InboundMessage{
		LeadID:            fx.repo.lead.ID,
		Body:              "yes, still interested",
		ProviderMessageID: "in-1",
	})
	if err != nil {
		t.Fatalf("HandleInboundMessage: %v", err)
	}

	if len(fx.repo.messages) != 1 || fx.repo.messages[0].Direction != repository.DirectionLead {
		t.Fatalf("recorded messages = %+v", fx.repo.messages)
	}
	if len(fx.canceller.cancelled) != 1 {
		t.Fatal("pending messages not cancelled on reply")
	}
	if len(fx.eval.evaluated) != 1 {
		t.Fatal("lead not re-evaluated on reply")
	}
	if len(fx.replies.scheduled) != 1 {
		t.Fatal("auto-reply not scheduled")
	}
}

func TestInboundSkipsAutoReplyWhenAIDisabled(t *testing.T) {
	fx := newFixture()
	fx.repo.lead.AIEnabled = false

	err := fx.svc.HandleInboundMessage(context.Background(), InboundMessage{
		LeadID: fx.repo.lead.ID,
		Body:   "stop",
	})
	if err != nil {
		t.Fatalf("HandleInboundMessage: %v", err)
	}
	if len(fx.replies.scheduled) != 0 {
		t.Fatal("auto-reply scheduled for AI-disabled lead")
	}
}

func TestDeliveryFailureTriggersEvaluation(t *testing.T) {
	fx := newFixture()
	fx.repo.deliveryLead = fx.repo.lead.ID

	err := fx.svc.HandleMessageDelivery(context.Background(), gateway.MessageDelivery{
		ProviderMessageID: "out-9",
		Status:            repository.DeliveryFailed,
	})
	if err != nil {
		t.Fatalf("HandleMessageDelivery: %v", err)
	}
	if len(fx.eval.evaluated) != 1 || fx.eval.evaluated[0] != fx.repo.lead.ID {
		t.Fatalf("evaluations = %v", fx.eval.evaluated)
	}

	// A plain delivered report does not re-evaluate.
	if err := fx.svc.HandleMessageDelivery(context.Background(), gateway.MessageDelivery{
		ProviderMessageID: "out-10",
		Status:            "delivered",
	}); err != nil {
		t.Fatalf("HandleMessageDelivery: %v", err)
	}
	if len(fx.eval.evaluated) != 1 {
		t.Fatalf("evaluations = %v, want only the failure", fx.eval.evaluated)
	}
}

func TestCallCompletionForwarded(t *testing.T) {
	fx := newFixture()

	err := fx.svc.HandleCallCompleted(context.Background(), gateway.CallCompletion{
		ProviderCallID: "prov-1",
		Status:         "no-answer",
		CompletedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("HandleCallCompleted: %v", err)
	}
	if len(fx.completer.completions) != 1 {
		t.Fatalf("completions = %d, want 1", len(fx.completer.completions))
	}
}

func TestAutoReplyDueSendsAndRecords(t *testing.T) {
	fx := newFixture()

	if err := fx.svc.HandleAutoReplyDue(context.Background(), fx.repo.lead.ID); err != nil {
		t.Fatalf("HandleAutoReplyDue: %v", err)
	}
	if len(fx.sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(fx.sender.sent))
	}
	if len(fx.repo.messages) != 1 || fx.repo.messages[0].Direction != repository.DirectionAgent {
		t.Fatalf("recorded messages = %+v", fx.repo.messages)
	}
}
