package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wizone/it-support-api/internal/database"
	"github.com/wizone/it-support-api/internal/handlers"
	"github.com/wizone/it-support-api/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the auto-close sweeper",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not run migrations on startup")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	gin.SetMode(a.cfg.GinMode)

	if !skipMigrate {
		if err := database.Migrate(a.db, a.logger); err != nil {
			return err
		}
	}

	// Setup session middleware with Redis
	store, err := redisStore.NewStore(
		10, // Redis pool size
		"tcp",
		a.cfg.RedisAddr(),
		a.cfg.RedisPassword,
		[]byte(a.cfg.SessionSecret),
	)
	if err != nil {
		return err
	}
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   a.cfg.SessionSecure || a.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:            a.logger,
		Metrics:           a.metrics,
		SessionStore:      store,
		Tokens:            a.tokens,
		RequestTimeout:    a.cfg.RequestTimeout(),
		AuthService:       a.authService,
		UserService:       a.userService,
		CustomerService:   a.customerService,
		TaskService:       a.taskService,
		AssignmentService: a.assignmentService,
		TriageService:     a.triageService,
	})

	sweeper := worker.NewSweeper(a.taskService, worker.NewRedisLocker(a.redis), a.metrics, a.logger, a.cfg.SweepInterval)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
