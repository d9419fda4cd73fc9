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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lunara/internal/access"
	"lunara/internal/config"
	"lunara/internal/database"
	"lunara/internal/handlers"
	"lunara/internal/kidsession"
	"lunara/internal/logging"
	"lunara/internal/security"
	"lunara/internal/service"
)

const (
	cleanupInterval   = time.Hour
	loginAttempts     = 10
	loginWindow       = time.Minute
	limiterSweepEvery = 5 * time.Minute
	shutdownTimeout   = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lunara: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	base, err := logging.Init(logging.Config{Level: cfg.LogLevel, Dev: cfg.LogDev, File: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer base.Sync()
	logger := base.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()
	logger.Infow("database connection established", "type", cfg.DatabaseType)

	applied, err := db.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	logger.Infow("migrations completed", "applied", applied)

	clock := service.SystemClock(cfg.Location)
	cookies := security.CookieOptions{Production: cfg.IsProduction()}

	// Initialize services
	mailer, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, logger)
	if err != nil {
		return err
	}
	authService := service.NewAuthService(db, cfg.SessionDuration, clock, logger)
	familyService := service.NewFamilyService(db, clock, logger)
	moonService := service.NewMoonService(db, clock, logger)
	scheduleService := service.NewScheduleService(db, moonService, clock, logger)
	shopService := service.NewShopService(db, logger)
	inviteService := service.NewInviteService(db, mailer, clock, logger)
	holidayService := service.NewHolidayService(db)

	kidSessions, err := kidsession.NewStore(cfg.SessionSecret, cfg.KidSessionMaxAge, cookies)
	if err != nil {
		return fmt.Errorf("failed to create kid session store: %w", err)
	}
	csrf := security.NewCSRFGenerator(cfg.CSRFSecret)
	limiter := security.NewRateLimiter(loginAttempts, loginWindow)

	oauthProviders := map[string]handlers.OAuthProvider{}
	if google, ok := handlers.GoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret); ok {
		oauthProviders[google.Name] = google
	}

	// Initialize handlers
	handler := handlers.NewRouter(handlers.Router{
		Middleware:   handlers.NewMiddleware(access.NewResolver(authService, kidSessions), kidSessions, csrf, logger),
		Auth:         handlers.NewAuthHandler(authService, cookies, csrf, oauthProviders, cfg.AppBaseURL, logger),
		Kid:          handlers.NewKidHandler(familyService, scheduleService, moonService, shopService, kidSessions, logger),
		Parent:       handlers.NewParentHandler(familyService, inviteService, holidayService, logger),
		Schedule:     handlers.NewScheduleHandler(scheduleService, moonService, logger),
		Shop:         handlers.NewShopHandler(shopService, logger),
		LoginLimiter: limiter,
		Logger:       logger,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Infow("server starting", "addr", server.Addr, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return limiter.Run(gctx, limiterSweepEvery)
	})

	g.Go(func() error {
		cleanupLoop(gctx, authService, inviteService, logger)
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// cleanupLoop periodically removes expired parent sessions and stale invites
func cleanupLoop(ctx context.Context, auth *service.AuthService, invites *service.InviteService, logger *zap.SugaredLogger) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if n, err := auth.CleanupExpiredSessions(ctx); err != nil {
			logger.Errorw("failed to clean up expired sessions", "error", err)
		} else if n > 0 {
			logger.Infow("expired parent sessions cleaned up", "count", n)
		}

		if n, err := invites.ExpireStale(ctx); err != nil {
			logger.Errorw("failed to expire stale invites", "error", err)
		} else if n > 0 {
			logger.Infow("stale invites expired", "count", n)
		}
	}
}
