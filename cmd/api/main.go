package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"nurture_backend/internal/content"
	"nurture_backend/internal/dispatch"
	"nurture_backend/internal/engagement/calls"
	"nurture_backend/internal/engagement/guard"
	engagementscheduler "nurture_backend/internal/engagement/scheduler"
	"nurture_backend/internal/engagement/sessions"
	"nurture_backend/internal/events"
	"nurture_backend/internal/gateway/bridge"
	apphttp "nurture_backend/internal/http"
	"nurture_backend/internal/http/router"
	"nurture_backend/internal/leads"
	"nurture_backend/internal/leads/lifecycle"
	leadrepo "nurture_backend/internal/leads/repository"
	"nurture_backend/internal/scheduler"
	"nurture_backend/internal/webhook"
	"nurture_backend/platform/config"
	"nurture_backend/platform/db"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/validator"
)

// Call sessions older than this are swept; their completion webhooks are
// dropped as stale.
const sessionMaxAge = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	taskClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize task scheduler client", "error", err)
		panic("failed to initialize task scheduler client: " + err.Error())
	}
	defer func() { _ = taskClient.Close() }()

	redisClient, err := scheduler.NewRedisClient(cfg)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	defer func() { _ = redisClient.Close() }()

	// ========================================================================
	// Domain Services (Composition Root)
	// ========================================================================

	repo := leadrepo.New(pool)

	contactScheduler := engagementscheduler.New(repo, log)
	lifecycleSvc := lifecycle.New(repo, contactScheduler, eventBus, log)
	callGuard := guard.New(repo, log)
	quotaEnforcer := guard.NewQuotaEnforcer(repo, eventBus, log)

	// The registry ties outbound calls to their completion webhooks. It is
	// in-memory, which is why the dispatcher and the webhook surface run in
	// the same process.
	registry := sessions.NewRegistry(sessionMaxAge)

	bridgeClient := bridge.NewClient(cfg, log)
	if bridgeClient == nil {
		log.Warn("BRIDGE_URL not configured; outbound calls and messages disabled")
	}

	generator := initContentGenerator(ctx, cfg, log)

	coordinator := calls.New(registry, repo, bridgeClient, contactScheduler, lifecycleSvc, generator, eventBus, log)

	webhookSvc := webhook.NewService(repo, coordinator, lifecycleSvc, contactScheduler, taskClient, generator, bridgeClient, eventBus, log)
	webhookSvc.SubscribeAutoReplies(eventBus)

	worker, err := scheduler.NewWorker(cfg, repo, redisClient, eventBus, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	dispatcher := dispatch.New(repo, callGuard, bridgeClient, generator, registry, lifecycleSvc, eventBus, cfg, log)

	leadsModule := leads.NewModule(repo, contactScheduler, quotaEnforcer, eventBus, val, log)
	webhookModule := webhook.NewModule(webhookSvc, cfg, val)

	// ========================================================================
	// HTTP Layer + Background Loops
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			webhookModule,
		},
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router.New(app),
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		dispatcher.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		runGraceSweep(groupCtx, quotaEnforcer, cfg.GetGraceSweepInterval(), log)
		return nil
	})

	group.Go(func() error {
		worker.Run(groupCtx)
		return nil
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
	log.Info("shutdown complete")
}

// initContentGenerator prefers Gemini and falls back to the static templates
// when no API key is configured or the client cannot be built.
func initContentGenerator(ctx context.Context, cfg config.ContentConfig, log *logger.Logger) content.Generator {
	if cfg.GetGeminiAPIKey() == "" {
		log.Warn("GEMINI_API_KEY not configured; using static message templates")
		return content.NewStaticGenerator()
	}

	gen, err := content.NewGeminiGenerator(ctx, cfg.GetGeminiAPIKey(), cfg.GetContentModel(), log)
	if err != nil {
		log.Error("failed to initialize gemini generator, using static templates", "error", err)
		return content.NewStaticGenerator()
	}
	return gen
}

func runGraceSweep(ctx context.Context, enforcer *guard.QuotaEnforcer, interval time.Duration, log *logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := enforcer.SweepExpiredGrace(ctx); err != nil {
				log.Error("quota grace sweep failed", "error", err)
			}
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
