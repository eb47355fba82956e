package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/domain"
	"nurture_backend/internal/leads/repository"
	platformevents "nurture_backend/platform/events"
	"nurture_backend/platform/logger"
)

type fakeTimeline struct {
	latest uuid.UUID
}

func (f *fakeTimeline) GetTimeline(_ context.Context, _ uuid.UUID) ([]domain.MessageRecord, []domain.CallRecord, error) {
	return nil, nil, nil
}

func (f *fakeTimeline) CountCallsSince(_ context.Context, _ uuid.UUID, _ time.Time) (int, error) {
	return 0, nil
}

func (f *fakeTimeline) LatestInboundMessageID(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	if f.latest == uuid.Nil {
		return uuid.Nil, repository.ErrNotFound
	}
	return f.latest, nil
}

func newTestWorker(t *testing.T, timeline *fakeTimeline) (*Worker, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	log := logger.New("test")
	bus := platformevents.NewInMemoryBus(log)
	fired := 0
	bus.Subscribe(events.AutoReplyDue{}.EventName(), events.HandlerFunc(func(_ context.Context, _ events.Event) error {
		fired++
		return nil
	}))

	return &Worker{
		timeline: timeline,
		redis:    rdb,
		bus:      bus,
		log:      log,
	}, &fired
}

func autoReplyTask(t *testing.T, leadID, messageID uuid.UUID) *asynq.Task {
	t.Helper()
	task, err := NewAutoReplyTask(AutoReplyPayload{
		LeadID:    leadID.String(),
		MessageID: messageID.String(),
	})
	if err != nil {
		t.Fatalf("NewAutoReplyTask: %v", err)
	}
	return task
}

func TestAutoReplyFiresForLatestMessage(t *testing.T) {
	leadID, messageID := uuid.New(), uuid.New()
	w, fired := newTestWorker(t, &fakeTimeline{latest: messageID})

	if err := w.handleAutoReply(context.Background(), autoReplyTask(t, leadID, messageID)); err != nil {
		t.Fatalf("handleAutoReply: %v", err)
	}
	if *fired != 1 {
		t.Fatalf("replies fired = %d, want 1", *fired)
	}
}

func TestAutoReplySkippedWhenSuperseded(t *testing.T) {
	leadID := uuid.New()
	w, fired := newTestWorker(t, &fakeTimeline{latest: uuid.New()})

	if err := w.handleAutoReply(context.Background(), autoReplyTask(t, leadID, uuid.New())); err != nil {
		t.Fatalf("handleAutoReply: %v", err)
	}
	if *fired != 0 {
		t.Fatalf("replies fired = %d, want 0 for superseded message", *fired)
	}
}

func TestAutoReplyRetryDoesNotDoubleSend(t *testing.T) {
	leadID, messageID := uuid.New(), uuid.New()
	w, fired := newTestWorker(t, &fakeTimeline{latest: messageID})
	task := autoReplyTask(t, leadID, messageID)

	for i := 0; i < 3; i++ {
		if err := w.handleAutoReply(context.Background(), task); err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if *fired != 1 {
		t.Fatalf("replies fired = %d, want 1 despite retries", *fired)
	}
}
