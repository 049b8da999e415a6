package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"remindd/internal/auth"
	"remindd/internal/config"
	"remindd/internal/db"
	httpx "remindd/internal/http"
	"remindd/internal/jobs"
	"remindd/internal/mail"
	"remindd/internal/notify"
	"remindd/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database connect", "error", err)
		os.Exit(1)
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		logger.Error("database migrate", "error", err)
		os.Exit(1)
	}

	var mailer mail.Mailer
	if cfg.SMTPHost != "" {
		mailer = &mail.SMTPMailer{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUser,
			Password:    cfg.SMTPPassword,
			ImplicitTLS: cfg.SMTPImplicit,
		}
	} else {
		logger.Info("no SMTP host configured; logging emails to stdout")
		mailer = &mail.ConsoleMailer{Log: logger}
	}

	prefs := &notify.PreferenceStore{DB: gdb, DailyCap: cfg.DailyReminderCap}
	trackers := &notify.TrackerStore{DB: gdb}
	renderer := &notify.Renderer{SiteName: cfg.SiteName, SiteURL: cfg.SiteURL}

	gateway := &notify.Gateway{
		DB:        gdb,
		Prefs:     prefs,
		Trackers:  trackers,
		Render:    renderer,
		Mailer:    mailer,
		Log:       logger,
		FromEmail: cfg.FromEmail,
		Location:  cfg.Location,
	}

	svc := &notify.Service{
		DB:          gdb,
		Prefs:       prefs,
		Gateway:     gateway,
		Render:      renderer,
		Log:         logger,
		Location:    cfg.Location,
		WeekendDays: cfg.WeekendDays,
	}

	jobsRepo := &jobs.Repo{DB: gdb}

	evaluator := &notify.Evaluator{
		DB:          gdb,
		Prefs:       prefs,
		Trackers:    trackers,
		Dispatch:    jobsRepo,
		Log:         logger,
		Location:    cfg.Location,
		WeekendDays: cfg.WeekendDays,
		DailyCap:    cfg.DailyReminderCap,
		CatchUp:     cfg.CatchUp,
	}

	ctx, cancel := context.WithCancel(context.Background())

	worker := &jobs.Worker{
		ID:      "worker-1",
		Repo:    jobsRepo,
		Gateway: gateway,
		Service: svc,
		Log:     logger.With("component", "worker"),
	}
	go worker.Run(ctx)

	sched := &scheduler.Scheduler{
		Evaluator:        evaluator,
		Service:          svc,
		Trackers:         trackers,
		Log:              logger.With("component", "scheduler"),
		Location:         cfg.Location,
		PassTimes:        cfg.PassTimes,
		OverdueTime:      cfg.OverdueTime,
		LogRetentionDays: cfg.LogRetentionDays,
	}
	go sched.Run(ctx)

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, httpx.Deps{
		DB:        gdb,
		JWT:       jwtSvc,
		Prefs:     prefs,
		Trackers:  trackers,
		Evaluator: evaluator,
		Service:   svc,
		Log:       logger,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", "error", err)
			os.Exit(1)
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
