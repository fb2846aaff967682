package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CatalogSync/internal/config"
	"CatalogSync/internal/handoff"
	"CatalogSync/internal/logger"
	"CatalogSync/internal/notifier"
	"CatalogSync/internal/pipeline"
	"CatalogSync/internal/platform"
	"CatalogSync/internal/recorder"
	"CatalogSync/internal/scheduler"
	"CatalogSync/internal/server"
	"CatalogSync/internal/staging"
	"CatalogSync/internal/supplier"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("load config")
	}

	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	log.Info().Str("integration", cfg.App.IntegrationName).Str("staging", cfg.Staging.Mode).Msg("CatalogSync starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Supplier
	signer := supplier.NewSigner(cfg.Vendor.AppID, cfg.Vendor.SecretKey)
	catalog := supplier.NewClient(cfg.Vendor.BaseURL, signer, cfg.Vendor.Timeout, cfg.Vendor.RateLimit, log)

	// Platform: staging + handoff share credentials
	pc := platform.NewClient(cfg.Platform.BaseURL, cfg.Platform.StoreKey, cfg.Platform.BearerToken, cfg.Platform.Timeout, log)
	uploader, err := staging.New(ctx, cfg, pc, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init staging")
	}
	ho := handoff.New(pc, log)

	var nt notifier.Notifier = notifier.Noop{}
	if cfg.SMTPEnabled() {
		nt = notifier.NewEmailNotifier(notifier.EmailConfig{
			Host:            cfg.SMTP.Host,
			Port:            cfg.SMTP.Port,
			Username:        cfg.SMTP.Username,
			Password:        cfg.SMTP.Password,
			UseSSL:          cfg.SMTP.UseSSL,
			From:            cfg.SMTP.From,
			To:              cfg.SMTP.To,
			Cc:              cfg.SMTP.Cc,
			Bcc:             cfg.SMTP.Bcc,
			IntegrationName: cfg.App.IntegrationName,
		}, log)
	} else {
		log.Warn().Msg("SMTP not configured, email notifications disabled")
	}

	orch := pipeline.New(catalog, uploader, ho, nt, pipeline.Options{
		Channel:               cfg.Pricing.InventoryChannel,
		FileName:              cfg.Staging.FileName,
		DirectPayloadFallback: cfg.Handoff.DirectPayloadFallback,
	}, log)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	sched := scheduler.New(ctx, orch, rec, log)
	if cfg.Schedule.Disabled {
		log.Info().Msg("internal scheduler disabled, runs are triggered externally")
	} else {
		if err := sched.Register(scheduler.Schedule{Cron: cfg.Schedule.Cron, Every: cfg.Schedule.Every}); err != nil {
			log.Fatal().Err(err).Msg("register schedule")
		}
		sched.Start()
	}

	srv := server.New(cfg.App.HTTPAddr, cfg.App.IntegrationName, sched, nt, log)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			log.Error().Err(err).Msg("http server")
			cancel()
		}
	}()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running sync now")
		go func() {
			if _, err := sched.RunNow(ctx); err != nil {
				log.Error().Err(err).Msg("startup run")
			}
		}()
	}

	log.Info().Msg("CatalogSync is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		log.Info().Msg("shutdown signal received, stopping...")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	cancel()
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("scheduler shutdown")
	}
	log.Info().Msg("CatalogSync stopped")
}
