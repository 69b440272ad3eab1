package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/digkill/resumegate/internal/api"
	"github.com/digkill/resumegate/internal/config"
	"github.com/digkill/resumegate/internal/database"
	"github.com/digkill/resumegate/internal/events"
	"github.com/digkill/resumegate/internal/gemini"
	"github.com/digkill/resumegate/internal/identity"
	"github.com/digkill/resumegate/internal/razorpay"
	"github.com/digkill/resumegate/internal/repository"
	"github.com/digkill/resumegate/internal/service"
	"github.com/digkill/resumegate/internal/storage"
	"github.com/digkill/resumegate/internal/telegram"
	"github.com/digkill/resumegate/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logr := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hasher, err := identity.NewHasher(cfg.HashSalt)
	if err != nil {
		log.Fatalf("identity hasher: %v", err)
	}

	rdb, err := repository.ConnectRedis(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	entitlements := repository.NewEntitlementRepository(rdb)
	rp := razorpay.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, cfg.ProviderTimeout, logr)
	generator := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GenerationTimeout, logr)

	limits := service.Limits{
		MaxExperience:    cfg.MaxExperienceItems,
		MaxEducation:     cfg.MaxEducationItems,
		MaxSkills:        cfg.MaxSkills,
		MaxFreeTextRunes: cfg.MaxFreeTextRunes,
	}

	verifier := service.NewVerificationService(logr, hasher, entitlements, rp, cfg.RazorpayKeySecret).
		WithStatusFallback(cfg.StatusFallback)
	gateway := service.NewGenerationService(logr, hasher, entitlements, generator, cfg.GenerationTimeout, limits)

	if cfg.LedgerEnabled() {
		db, err := database.Connect(cfg.MySQLDSN)
		if err != nil {
			log.Fatalf("database connect: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("database migrate: %v", err)
		}
		verifier.WithLedger(repository.NewPaymentRepository(db))
		gateway.WithLedger(repository.NewGenerationRepository(db))
		logr.Info("payment ledger enabled")
	}

	if cfg.ArchiveEnabled() {
		archive, err := storage.NewArchive(storage.Config{
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			Bucket:       cfg.S3Bucket,
			UsePathStyle: cfg.S3UsePathStyle,
			Prefix:       cfg.S3Prefix,
		})
		if err != nil {
			log.Fatalf("storage archive: %v", err)
		}
		gateway.WithArchive(archive)
		logr.Info("document archive enabled", "bucket", cfg.S3Bucket)
	}

	var sinks events.Fanout
	if cfg.AMQPURL != "" {
		publisher := events.NewPublisher(cfg.AMQPURL, cfg.EventsQueue, logr)
		defer publisher.Close()
		sinks = append(sinks, publisher)
	}
	if cfg.AlertsEnabled() {
		notifier, err := telegram.Connect(cfg.TelegramBotToken, cfg.TelegramAlertChatID, logr)
		if err != nil {
			logr.Error("telegram alerts disabled", "err", err)
		} else {
			sinks = append(sinks, notifier)
		}
	}
	if len(sinks) > 0 {
		dispatcher := events.NewDispatcher(sinks, 256, 10*time.Second, logr)
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := dispatcher.Close(drainCtx); err != nil {
				logr.Warn("event queue not drained", "err", err)
			}
		}()
		verifier.WithEvents(dispatcher)
		gateway.WithEvents(dispatcher)
	}

	var limiter *api.RateLimiter
	if cfg.RateLimitEnabled {
		limiter = api.NewRateLimiter(rdb, cfg.RateLimitCapacity, cfg.RateLimitRefill)
	}

	server := api.NewServer(api.Options{
		Addr:            cfg.ListenAddr,
		EnforceOrigin:   cfg.EnforceOrigin,
		MaxPayloadBytes: cfg.MaxPayloadBytes,
		Limits:          limits,
		AdminUsername:   cfg.AdminUsername,
		AdminPassword:   cfg.AdminPassword,
		WriteTimeout:    cfg.GenerationTimeout + cfg.ProviderTimeout,
	}, logr, verifier, gateway, service.NewPlanService(), service.NewEntitlementService(hasher, entitlements), entitlements, limiter)

	logr.Info("resumegate starting",
		"env", cfg.AppEnv,
		"enforce_origin", cfg.EnforceOrigin,
		"status_fallback", cfg.StatusFallback,
		"rate_limit", cfg.RateLimitEnabled,
	)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logr.Error("http server stopped", "err", err)
	}
}
