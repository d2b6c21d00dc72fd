package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/servis/recharge-bot/internal/config"
	"github.com/servis/recharge-bot/internal/pkg/database"
	"github.com/servis/recharge-bot/internal/pkg/logger"
	"github.com/servis/recharge-bot/migrations"
)

func main() {
	flag.Usage = func() {
		log.Info().Msg("usage: migrate [up|down|status|version|redo|reset]")
	}
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.Load()
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := migrations.Run(ctx, db.DB, command, flag.Args()[min(1, flag.NArg()):]...); err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("Migration failed")
	}
	log.Info().Str("command", command).Msg("Migrations done")
}
