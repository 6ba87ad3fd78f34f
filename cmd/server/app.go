package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/wizone/it-support-api/internal/auth"
	"github.com/wizone/it-support-api/internal/config"
	"github.com/wizone/it-support-api/internal/constants"
	"github.com/wizone/it-support-api/internal/database"
	"github.com/wizone/it-support-api/internal/events"
	"github.com/wizone/it-support-api/internal/logging"
	"github.com/wizone/it-support-api/internal/notify"
	"github.com/wizone/it-support-api/internal/observability"
	"github.com/wizone/it-support-api/internal/repository"
	"github.com/wizone/it-support-api/internal/services"
)

// app holds the wired dependencies shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	redis   *redis.Client
	metrics *observability.Metrics
	tokens  *auth.TokenManager

	authService       *services.AuthService
	userService       *services.UserService
	customerService   *services.CustomerService
	taskService       *services.TaskService
	assignmentService *services.AssignmentService
	triageService     *services.TriageService
}

func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()

	logger, err := logging.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	db, err := database.Connect(cfg, logger)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr()))
	}

	dispatcher := events.NewInMemoryDispatcher(logger)
	notify.NewNotifier(client, constants.NotificationChannel, logger).Register(dispatcher)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTLMinutes)
	userRepo := repository.NewUserRepository(db)
	customerRepo := repository.NewCustomerRepository(db)

	taskService := services.NewTaskService(services.TaskServiceDeps{
		Tasks:             repository.NewTaskRepository(db),
		Updates:           repository.NewTaskUpdateRepository(db),
		Users:             userRepo,
		Customers:         customerRepo,
		Dispatcher:        dispatcher,
		Logger:            logger,
		AutoCompleteDelay: cfg.AutoCompleteDelay,
	})

	return &app{
		cfg:               cfg,
		logger:            logger,
		db:                db,
		redis:             client,
		metrics:           observability.NewMetrics(),
		tokens:            tokens,
		authService:       services.NewAuthService(userRepo, tokens),
		userService:       services.NewUserService(userRepo, cfg.BcryptCost),
		customerService:   services.NewCustomerService(customerRepo, tokens, cfg.BcryptCost),
		taskService:       taskService,
		assignmentService: services.NewAssignmentService(taskService),
		triageService:     services.NewTriageService(cfg.OpenAIAPIKey),
	}, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	_ = a.logger.Sync()
}
