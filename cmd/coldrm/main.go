package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
	"golang.org/x/sync/errgroup"

	githubadapter "github.com/coldrm/coldrm/internal/adapter/driven/github"
	smtpadapter "github.com/coldrm/coldrm/internal/adapter/driven/smtp"
	sqliteadapter "github.com/coldrm/coldrm/internal/adapter/driven/sqlite"
	httphandler "github.com/coldrm/coldrm/internal/adapter/driving/http"
	webhandler "github.com/coldrm/coldrm/internal/adapter/driving/web"
	"github.com/coldrm/coldrm/internal/application"
	"github.com/coldrm/coldrm/internal/config"
	"github.com/coldrm/coldrm/internal/crypto"
	"github.com/coldrm/coldrm/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("COLDRM_LOG_LEVEL: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"csrf_mode", cfg.CSRFMode,
		"smtp_addr", cfg.SMTPAddr(),
		"admins", len(cfg.AdminUserIDs),
		"enrollment_enabled", cfg.EnrollmentRecipient != "",
		"feedback_channel", cfg.HasFeedbackChannel(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	logger.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer, logger); err != nil {
		return err
	}
	logger.Info("migrations complete")

	// 5. Wire driven adapters.
	profileStore := sqliteadapter.NewProfileRepo(db)
	sendLogStore := sqliteadapter.NewSendLogRepo(db)
	contactStore := sqliteadapter.NewContactRepo(db)
	referralStore := sqliteadapter.NewReferralRepo(db)
	feedbackStore := sqliteadapter.NewFeedbackRepo(db)

	cipher, err := crypto.NewCipher(cfg.EncryptionKey)
	if err != nil {
		return err
	}

	mailer := smtpadapter.NewMailer(cfg.SMTPAddr(), cfg.SMTPImplicitTLS, cfg.SMTPTimeout, logger)

	// 6. Create the feedback channel (nil when not configured).
	var feedbackChannel driven.FeedbackChannel
	if cfg.HasFeedbackChannel() {
		ghClient, err := githubadapter.NewClient(cfg.FeedbackGitHubToken, cfg.FeedbackGitHubRepo)
		if err != nil {
			return err
		}
		feedbackChannel = ghClient
		logger.Info("feedback channel enabled", "repo", cfg.FeedbackGitHubRepo)
	}

	// 7. Create application services.
	admins := application.NewAdminSet(cfg.AdminUserIDs)
	limiter := application.NewRateLimiter(sendLogStore, admins, cfg.RateLimitMax, cfg.RateLimitWindow)
	quotas := application.NewQuotaPolicy(profileStore, sendLogStore, contactStore, admins, cfg.EmailQuota, cfg.ContactQuota)

	profileSvc := application.NewProfileService(profileStore, quotas, cipher, logger)
	contactSvc := application.NewContactService(contactStore, sendLogStore, quotas, logger)
	feedbackSvc := application.NewFeedbackService(feedbackStore, feedbackChannel, logger)
	svc := httphandler.Services{
		Limiter:    limiter,
		Dispatch:   application.NewDispatchService(limiter, quotas, profileStore, sendLogStore, cipher, mailer, logger),
		Enrollment: application.NewEnrollmentService(limiter, profileStore, sendLogStore, cipher, mailer, cfg.EnrollmentRecipient, logger),
		Profiles:   profileSvc,
		Feedback:   feedbackSvc,
		Referrals:  application.NewReferralService(profileStore, referralStore, logger),
		Contacts:   contactSvc,
	}

	// 8. Create HTTP handler and register API routes.
	guard := httphandler.NewForgeryGuard(cfg.CSRFMode, cfg.CSRFToken, cfg.EncryptionKey)
	apiHandler := httphandler.NewHandler(svc, guard, admins, logger)
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	// 9. Create web handler and register HTML routes.
	webHandler := webhandler.NewHandler(contactSvc, feedbackSvc, logger)
	webhandler.RegisterRoutes(mux, webHandler, httphandler.RequireAdmin(admins))

	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.SMTPTimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		// 10. Wait for shutdown signal or a server failure.
		<-gctx.Done()
		logger.Info("shutting down")

		// 11. Graceful shutdown with 10s timeout to drain in-flight sends.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		return nil
	})

	logger.Info("coldrm started", "listen_addr", cfg.ListenAddr)

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
