package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hours-watch/internal/config"
	"github.com/cmlabs-hris/hours-watch/internal/domain/tracker"
	appHTTP "github.com/cmlabs-hris/hours-watch/internal/handler/http"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/cron"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/database"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/jwt"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/slack"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/sse"
	"github.com/cmlabs-hris/hours-watch/internal/pkg/storage"
	"github.com/cmlabs-hris/hours-watch/internal/repository/postgresql"
	serviceAuth "github.com/cmlabs-hris/hours-watch/internal/service/auth"
	"github.com/cmlabs-hris/hours-watch/internal/service/file"
	trackerService "github.com/cmlabs-hris/hours-watch/internal/service/tracker"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(!cfg.IsProduction())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       parseLevel(cfg.App.LogLevel),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "hours-watch"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Run history is optional; leave the repository nil when no database is configured.
	var runRepo tracker.RunRepository
	if cfg.Database.Enabled() {
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()
		if err := postgresql.Migrate(ctx, db); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		runRepo = postgresql.NewRunRepository(db)
		slog.Info("Run history enabled")
	}

	hub := sse.NewHub()
	observers := tracker.Observers{trackerService.NewHubObserver(hub)}

	var artifactStore storage.FileStorage
	if cfg.App.DebugArtifactsDir != "" {
		local, err := storage.NewLocalStorage(cfg.App.DebugArtifactsDir)
		if err != nil {
			return fmt.Errorf("init artifact storage: %w", err)
		}
		artifactStore = local
		observers = append(observers, trackerService.NewArtifactObserver(local))
		slog.Info("Failure artifacts enabled", "dir", cfg.App.DebugArtifactsDir)
	}

	trackerSvc := trackerService.NewFromConfig(cfg, runRepo, observers)
	credentials := trackerService.Credentials(cfg)

	notifier := slack.NewNotifier(cfg.Slack.WebhookURL, cfg.Report.AbsenceWorkdays)
	hoursJobs := cron.NewHoursJobs(trackerSvc, notifier, cron.HoursConfig{
		Credentials:     credentials,
		AbsenceWorkdays: cfg.Report.AbsenceWorkdays,
		CheckHour:       cfg.Cron.CheckHour,
	})

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	authService := serviceAuth.NewAuthService(JWTService, cfg.Admin.Email, cfg.Admin.PasswordHash)
	runService := trackerService.NewRunService(runRepo)
	fileService := file.NewFileService(artifactStore)

	router := appHTTP.NewRouter(appHTTP.RouterConfig{
		Logger:         logger,
		AllowedOrigins: strings.Split(cfg.App.FrontendURL, ","),
		APISecret:      cfg.App.APISecret,
		JWTService:     JWTService,
		AuthHandler:    appHTTP.NewAuthHandler(authService),
		TrackerHandler: appHTTP.NewTrackerHandler(trackerSvc, credentials, appHTTP.TrackerDefaults{
			AbsenceWorkdays: cfg.Report.AbsenceWorkdays,
			ContextDays:     cfg.Report.ContextDays,
		}, notifier),
		RunHandler:  appHTTP.NewRunHandler(runService, fileService, authService, JWTService, hub),
		CronHandler: appHTTP.NewCronHandler(hoursJobs),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.Cron.Enabled {
		scheduler := cron.NewScheduler(gctx)
		hoursJobs.RegisterJobs(scheduler)
		g.Go(func() error {
			scheduler.Start()
			scheduler.Wait()
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}
