package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/employee-service/internal/api/http"
	"github.com/spec-kit/employee-service/internal/api/http/handlers"
	"github.com/spec-kit/employee-service/internal/auth"
	"github.com/spec-kit/employee-service/internal/config"
	"github.com/spec-kit/employee-service/internal/events"
	"github.com/spec-kit/employee-service/internal/identity"
	"github.com/spec-kit/employee-service/internal/messaging"
	"github.com/spec-kit/employee-service/internal/observability"
	"github.com/spec-kit/employee-service/internal/persistence"
	"github.com/spec-kit/employee-service/internal/repository"
	"github.com/spec-kit/employee-service/internal/service"
	"github.com/spec-kit/employee-service/internal/worker"
	"github.com/spec-kit/employee-service/pkg/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()

	pool := pg.PoolHandle()
	employeeRepo := repository.NewEmployeeRepository(pool)
	departmentRepo := repository.NewDepartmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	identities := identity.NewRedisStore(redis.Client, redis.IdentityPrefix)

	var locker service.Locker
	if err := redis.Ping(ctx); err == nil {
		locker = redis.NewLocker(cfg.Transition.LockTTL(), cfg.Transition.LockWait())
	} else {
		logger.Warn("redis unavailable; transitions serialized in-process only", zap.Error(err))
		locker = persistence.NewKeyedMutex(cfg.Transition.LockWait())
	}

	var (
		rabbit  *messaging.RabbitQueue
		retries messaging.MirrorRetryQueue
	)
	if cfg.Messaging.AMQPURL != "" {
		rabbit, err = messaging.NewRabbitQueue(cfg.Messaging.AMQPURL, cfg.Messaging.MirrorRetryQueue)
		if err != nil {
			logger.Warn("rabbitmq unavailable; metadata mirror failures will not be retried", zap.Error(err))
		} else {
			retries = rabbit
			defer rabbit.Close()
		}
	}

	notificationService := service.NewNotificationService(notificationRepo, dispatcher, logger)
	relay := service.NewRealtimeRelay(redis.Client, cfg.Notification.ChannelPrefix, logger)
	worker.StartNotificationWorker(dispatcher, notificationService, relay)

	transitionService := service.NewTransitionService(service.TransitionDependencies{
		EmployeeRepo: employeeRepo,
		Mirror:       identities,
		Notifier:     notificationService,
		Locker:       locker,
		Retries:      retries,
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
		NotifyActor:  cfg.Transition.NotifyActor,
	})
	setupService := service.NewSetupService(employeeRepo, identities, retries, logger)
	authService := service.NewAuthService(*cfg, identities)
	employeeService := service.NewEmployeeService(service.OrgDependencies{
		EmployeeRepo:   employeeRepo,
		DepartmentRepo: departmentRepo,
	})
	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), employeeRepo)

	if rabbit != nil {
		mirrorWorker := worker.NewMirrorWorker(rabbit, rabbit, employeeRepo, identities,
			cfg.Messaging.MirrorMaxAttempts, cfg.Messaging.RetryDelay(), logger)
		go func() {
			if err := mirrorWorker.Run(ctx); err != nil {
				logger.Error("mirror worker stopped", zap.Error(err))
			}
		}()
	}

	v := validator.NewValidator()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth:           handlers.NewAuthHandler(authService, v),
		Employees:      handlers.NewEmployeesHandler(setupService, employeeService, v),
		Transitions:    handlers.NewTransitionsHandler(transitionService, v),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
