package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/crmdesk/crm-service/internal/api/http"
	"github.com/crmdesk/crm-service/internal/api/http/handlers"
	"github.com/crmdesk/crm-service/internal/assistant"
	"github.com/crmdesk/crm-service/internal/auth"
	"github.com/crmdesk/crm-service/internal/cache"
	"github.com/crmdesk/crm-service/internal/config"
	"github.com/crmdesk/crm-service/internal/events"
	"github.com/crmdesk/crm-service/internal/observability"
	"github.com/crmdesk/crm-service/internal/persistence"
	"github.com/crmdesk/crm-service/internal/portal"
	"github.com/crmdesk/crm-service/internal/repository"
	"github.com/crmdesk/crm-service/internal/service"
	"github.com/crmdesk/crm-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	agentRepo := repository.NewAgentRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	leadRepo := repository.NewLeadRepository(pool)
	referralRepo := repository.NewReferralRepository(pool)
	activityRepo := repository.NewActivityRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	knowledgeRepo := repository.NewKnowledgeRepository(pool)
	proposalRepo := repository.NewProposalRepository(pool)
	customerRepo := repository.NewCustomerRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	agentCache := cache.NewAgentCache(agentRepo, cfg.Auth.AgentCacheSize, time.Duration(cfg.Auth.AgentCacheTTLSeconds)*time.Second)

	dispatcher := events.NewInMemoryDispatcher(logger)
	forwarder := events.NewKafkaForwarder(cfg.Kafka, logger)
	forwarder.Attach(dispatcher)
	defer forwarder.Close() //nolint:errcheck

	var scheduler worker.Scheduler
	var jobs *worker.Server
	if cfg.Jobs.Enabled {
		server, client := worker.NewServer(cfg.Redis, cfg.Jobs, logger)
		scheduler = worker.NewAsynqScheduler(client, cfg.Jobs.SLARiskWindow())
		if err := server.Start(worker.NewSLAProcessor(ticketRepo, dispatcher, logger)); err != nil {
			logger.Fatal("failed to start sla worker", zap.Error(err))
		}
		jobs = server
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.AccessTokenTTLMinutes)*time.Minute)
	intakeTokens := auth.NewTokenManager(cfg.Intake.WhatsAppSecret, cfg.Intake.TokenTTL())

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		QueueRepo:  queueRepo,
		AgentRepo:  agentRepo,
		Scheduler:  scheduler,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo:    ticketRepo,
		AgentRepo:     agentRepo,
		QueueRepo:     queueRepo,
		TicketService: ticketService,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	pipelineService := service.NewPipelineService(service.PipelineDependencies{
		LeadRepo:     leadRepo,
		ReferralRepo: referralRepo,
		ActivityRepo: activityRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	proposalService := service.NewProposalService(service.ProposalDependencies{
		ProposalRepo:    proposalRepo,
		LeadRepo:        leadRepo,
		PipelineService: pipelineService,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	activityService := service.NewActivityService(service.ActivityDependencies{
		ActivityRepo: activityRepo,
		TicketRepo:   ticketRepo,
		LeadRepo:     leadRepo,
		ReferralRepo: referralRepo,
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	notificationService := service.NewNotificationService(notificationRepo, dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	authService := service.NewAuthService(agentRepo, tokens, logger)
	agentService := service.NewAgentService(agentRepo, agentCache, cfg.Auth.BcryptCost, logger)
	settingsService := service.NewSettingsService(settingsRepo, logger)
	queueService := service.NewQueueService(queueRepo, logger)
	reportService := service.NewReportService(ticketRepo, leadRepo, referralRepo, cfg.Jobs.SLARiskWindow(), logger)
	knowledgeService := service.NewKnowledgeService(knowledgeRepo, logger)
	copilotService := service.NewCopilotService(ticketService, activityRepo, assistant.New(cfg.AI, logger), logger)
	customerService := service.NewCustomerPortalService(customerRepo, ticketRepo, ticketService, logger)
	intakeService := service.NewIntakeService(intakeTokens, customerRepo, ticketService, logger)
	portalService := portal.NewService(portal.NewRedisStore(redis.Client), customerRepo, portal.LogSender{Logger: logger}, cfg.Portal, cfg.Auth.BcryptCost, logger)

	metrics := observability.NewMetrics()
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler(logger, metrics),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:     cfg.App.RequestTimeout(),
		CORSOrigins: cfg.App.CORSOrigins,
	})

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth:             handlers.NewAuthHandler(authService),
		Agents:           handlers.NewAgentsHandler(agentService, settingsService),
		Tickets:          handlers.NewTicketsHandler(ticketService, assignmentService, queueService),
		Pipeline:         handlers.NewPipelineHandler(pipelineService, proposalService),
		Workspace:        handlers.NewWorkspaceHandler(activityService, notificationService, reportService),
		Knowledge:        handlers.NewKnowledgeHandler(knowledgeService, copilotService),
		Portal:           handlers.NewPortalHandler(portalService, customerService, intakeService),
		AuthMiddleware:   auth.NewAuthMiddleware(tokens, agentCache),
		PortalMiddleware: auth.PortalMiddleware(portalService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if jobs != nil {
		jobs.Stop()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
