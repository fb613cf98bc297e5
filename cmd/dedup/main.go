package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/app"
	"github.com/lueurxax/news-dedup/internal/core/domain"
	"github.com/lueurxax/news-dedup/internal/platform/config"
	db "github.com/lueurxax/news-dedup/internal/storage"
)

const (
	modeServe   = "serve"
	modeCheck   = "check"
	modeMigrate = "migrate"
)

type checkFlags struct {
	title     string
	content   string
	sourceID  string
	sourceURL string
}

func main() {
	mode := flag.String("mode", modeServe, "Service mode (serve, check, migrate)")

	var post checkFlags

	flag.StringVar(&post.title, "title", "", "Post title (check mode)")
	flag.StringVar(&post.content, "content", "", "Post content (check mode)")
	flag.StringVar(&post.sourceID, "source-id", "", "Origin identifier, e.g. channel:message (check mode)")
	flag.StringVar(&post.sourceURL, "source-url", "", "Origin URL (check mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbOpts := db.DefaultOptions()
	dbOpts.Pool = db.PoolOptions{
		MaxConns:          cfg.Database.MaxConnections,
		MinConns:          cfg.Database.MinConnections,
		MaxConnIdleTime:   cfg.Database.MaxConnIdleTime,
		MaxConnLifetime:   cfg.Database.MaxConnLifetime,
		HealthCheckPeriod: cfg.Database.HealthCheckPeriod,
	}
	dbOpts.MinRelevance = cfg.Dedup.MinRelevance

	database, err := db.Open(ctx, cfg.Database.PostgresDSN, dbOpts, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	version, err := database.Migrate(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	logger.Info().Int64("schema_version", version).Msg("database ready")

	application := app.New(cfg, database, &logger)

	if err := runMode(ctx, application, *mode, post); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == config.AppEnvLocal {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, post checkFlags) error {
	switch mode {
	case modeServe:
		return application.RunServe(ctx)
	case modeCheck:
		outcome, err := application.RunCheck(ctx, domain.Post{
			SourceID:  post.sourceID,
			SourceURL: post.sourceURL,
			Title:     post.title,
			Content:   post.content,
		})
		if err != nil {
			return err
		}

		return json.NewEncoder(os.Stdout).Encode(outcome)
	case modeMigrate:
		return nil
	default:
		log.Fatalf("Usage: %s --mode=[serve|check|migrate]", os.Args[0])

		return nil
	}
}
