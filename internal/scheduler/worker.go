package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"nurture_backend/internal/events"
	"nurture_backend/internal/leads/repository"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
)

// replyMarkerTTL bounds the dedupe marker so a retried task within the
// retention window still cannot double-send.
const replyMarkerTTL = time.Hour

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	timeline repository.TimelineReader
	redis    *redis.Client
	bus      events.Bus
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, timeline repository.TimelineReader, redisClient *redis.Client, bus events.Bus, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		timeline: timeline,
		redis:    redisClient,
		bus:      bus,
		log:      log,
	}

	mux.HandleFunc(TaskAutoReply, w.handleAutoReply)

	return w, nil
}

// handleAutoReply fires the delayed reply, unless a newer inbound message
// superseded this one. The superseding message carries its own task, so
// exactly one reply goes out per burst.
func (w *Worker) handleAutoReply(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAutoReplyPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	messageID, err := uuid.Parse(payload.MessageID)
	if err != nil {
		return err
	}

	latest, err := w.timeline.LatestInboundMessageID(ctx, leadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	if latest != messageID {
		w.log.Info("scheduler: reply superseded by newer message",
			"leadId", leadID, "messageId", messageID, "latest", latest)
		return nil
	}

	marker := fmt.Sprintf("autoreply:sent:%s:%s", leadID, messageID)
	set, err := w.redis.SetNX(ctx, marker, 1, replyMarkerTTL).Result()
	if err != nil {
		return err
	}
	if !set {
		// A retried delivery of the same task already sent this reply.
		return nil
	}

	return w.bus.PublishSync(ctx, events.AutoReplyDue{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		MessageID: messageID,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
