package main

import (
	"context"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/apps/go-server/assets"
	"github.com/robalobadob/bullscows/apps/go-server/internal/config"
	"github.com/robalobadob/bullscows/apps/go-server/internal/db"
	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
	"github.com/robalobadob/bullscows/apps/go-server/internal/httpserver"
	"github.com/robalobadob/bullscows/apps/go-server/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	conn, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("failed to open database")
	}
	defer conn.Close()
	if err := db.Migrate(conn, assets.Migrations()); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	var opts []httpserver.Option
	if cfg.GameSeed != 0 {
		log.Warn().Uint64("seed", cfg.GameSeed).Msg("using seeded secrets; do not use in production")
		opts = append(opts, httpserver.WithSource(game.NewSeededSource(cfg.GameSeed)))
	}
	srv := httpserver.New(cfg, store.NewMemoryStore(), conn, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go srv.RunJanitor(ctx, cfg.SweepInterval)

	log.Info().Str("port", cfg.Port).Msg("starting bullscows server")
	if err := srv.Start(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
