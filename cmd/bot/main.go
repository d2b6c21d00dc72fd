package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/servis/recharge-bot/internal/config"
	"github.com/servis/recharge-bot/internal/domain/identity"
	"github.com/servis/recharge-bot/internal/domain/intent"
	"github.com/servis/recharge-bot/internal/domain/ledger"
	"github.com/servis/recharge-bot/internal/domain/recharge"
	"github.com/servis/recharge-bot/internal/pkg/creditapi"
	"github.com/servis/recharge-bot/internal/pkg/database"
	"github.com/servis/recharge-bot/internal/pkg/events"
	"github.com/servis/recharge-bot/internal/pkg/jwt"
	"github.com/servis/recharge-bot/internal/pkg/keylock"
	"github.com/servis/recharge-bot/internal/pkg/logger"
	"github.com/servis/recharge-bot/internal/pkg/telegram"
)

const (
	shutdownTimeout = 30 * time.Second
	opsTokenTTL     = 12 * time.Hour
)

func main() {
	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Int("admins", len(cfg.Admins)).
		Msg("Starting recharge bot")

	if cfg.BotToken == "" {
		log.Fatal().Msg("BOT_TOKEN is required")
	}
	if len(cfg.Admins) == 0 {
		log.Warn().Msg("ADMINS is empty, /ok and /reject will reject everyone")
	}
	if cfg.StaffChatID == "" {
		log.Warn().Msg("STAFF_CHAT_ID is empty, payment proofs will not be forwarded")
	}
	if cfg.CreditAPISecret == "" {
		log.Warn().Msg("API_SECRET is empty, credit gateway calls will likely be refused")
	}

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(rdb)

	nc, err := database.NewNats(cfg.NatsURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to NATS")
	}
	defer database.CloseNats(nc)

	// ---------- Repositories ----------
	linkRepo := identity.NewRepository(db)
	intentRepo := intent.NewRepository(db)
	ledgerRepo := ledger.NewRepository(db)

	var locker keylock.Locker = keylock.NewLocal()
	if rdb != nil {
		locker = keylock.NewRedis(rdb, "recharge:lock:")
	}

	// ---------- Telegram ----------
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram bot")
	}
	bot.Debug = cfg.BotDebug
	log.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")

	engine := recharge.NewEngine(recharge.Deps{
		Links:     linkRepo,
		Intents:   intentRepo,
		Ledger:    ledgerRepo,
		Notifier:  telegram.NewNotifier(bot),
		Gateway:   creditapi.NewClient(cfg.CreditAPIBaseURL, cfg.CreditAPIPath, cfg.CreditAPISecret, cfg.CreditAPITimeout),
		Locker:    locker,
		Publisher: events.NewPublisher(nc),
	}, recharge.Options{
		Admins:         cfg.Admins,
		StaffChatID:    cfg.StaffChatID,
		CurrencySymbol: cfg.CurrencySymbol,
		GatewayTimeout: cfg.CreditAPITimeout,
	})

	poller := telegram.NewPoller(bot, engine, cfg.BotMaxConcurrency)

	// ---------- Ops HTTP ----------
	var jwtService *jwt.Service
	if cfg.OpsJWTSecret != "" {
		jwtService = jwt.NewService(cfg.OpsJWTSecret, opsTokenTTL)
	} else {
		log.Warn().Msg("OPS_JWT_SECRET is empty, ledger API disabled")
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newRouter(cfg, db, ledger.NewHandler(ledgerRepo), jwtService),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := poller.Run(gctx); err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errors.New("telegram update channel closed")
		}
		return nil
	})

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("Bot stopped with error")
	}
	log.Info().Msg("Bot exited properly")
}
