// AroundMe discovery server - fuses place providers into ranked,
// requirement-matched local search results.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/aroundme/aroundme/pkg/api"
	"github.com/aroundme/aroundme/pkg/config"
	"github.com/aroundme/aroundme/pkg/database"
	"github.com/aroundme/aroundme/pkg/fusion"
	"github.com/aroundme/aroundme/pkg/llm"
	"github.com/aroundme/aroundme/pkg/pipeline"
	"github.com/aroundme/aroundme/pkg/providers"
	"github.com/aroundme/aroundme/pkg/resultstore"
	"github.com/aroundme/aroundme/pkg/services"
	"github.com/aroundme/aroundme/pkg/version"
)

func main() {
	envFile := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("Warning: could not load %s: %v", *envFile, err)
		log.Printf("Continuing with existing environment variables...")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.LogLevel)
	gin.SetMode(os.Getenv("GIN_MODE"))

	slog.Info("starting aroundme",
		"version", version.Version,
		"http_port", cfg.HTTPPort,
		"agent_mode", cfg.AgentMode)

	ctx := context.Background()

	// Result store: Redis in production, in-memory when Redis is absent.
	var store resultstore.Store
	redisStore, err := resultstore.NewRedisStore(ctx, resultstore.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		slog.Warn("redis unavailable, using in-memory result store", "error", err)
		store = resultstore.NewMemoryStore()
	} else {
		store = redisStore
	}
	defer store.Close()
	results := resultstore.NewResultStore(store, cfg.ConversationTTL)

	// Relational persistence is optional; the engine runs without it.
	var dbClient *database.Client
	var profileSvc *services.ProfileService
	var feedbackSvc *services.FeedbackService
	var prefSource services.PreferenceSource
	var searchLogs services.SearchLogger

	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		log.Fatalf("Failed to load database config: %v", err)
	}
	dbClient, err = database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Warn("database unavailable, profiles and search logs disabled", "error", err)
		dbClient = nil
	} else {
		defer dbClient.Close()
		profileStore := database.NewProfileStore(dbClient)
		profileSvc = services.NewProfileService(profileStore)
		feedbackSvc = services.NewFeedbackService(database.NewFeedbackStore(dbClient))
		prefSource = profileStore
		searchLogs = database.NewSearchLogStore(dbClient)
		slog.Info("connected to postgres", "host", dbConfig.Host, "database", dbConfig.Database)
	}

	// Providers.
	provs := []providers.SearchProvider{
		providers.NewGoogleProvider(cfg.GooglePlacesAPIKey, cfg.ProviderTimeout, cfg.ProviderMaxRetries),
		providers.NewYelpProvider(cfg.YelpAPIKey, cfg.ProviderTimeout, cfg.ProviderMaxRetries),
	}

	// AI collaborators, all optional.
	completer := llm.NewClient(cfg.OpenAIAPIKey)
	extractor := llm.NewExtractor(completer)
	deterministic := llm.NewDeterministic()
	embedder := llm.NewOpenAIEmbedder(cfg.OpenAIAPIKey)
	responder := llm.NewResponder(completer)

	// A nil *OpenAIEmbedder must stay a nil interface so the matcher
	// degrades to its synchronous methods.
	var pipelineEmbedder fusion.Embedder
	if embedder != nil {
		pipelineEmbedder = embedder
	}

	pipe := pipeline.New(cfg, provs, extractor, deterministic, pipelineEmbedder)

	var followups services.FollowupParser = extractor
	if cfg.AgentMode == "deterministic" {
		followups = deterministic
	}

	searchSvc := services.NewSearchService(
		pipe, results, followups, responder, prefSource, searchLogs, cfg.CacheTTL)

	server := api.NewServer(searchSvc)
	if profileSvc != nil {
		server.SetProfileService(profileSvc)
	}
	if feedbackSvc != nil {
		server.SetFeedbackService(feedbackSvc)
	}
	if dbClient != nil {
		server.SetDatabaseClient(dbClient)
	}

	// Serve until signalled, then drain.
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(":" + cfg.HTTPPort)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("HTTP server failed: %v", err)
		}
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToUpper(level) {
	case "DEBUG":
		lvl = slog.LevelDebug
	case "WARN":
		lvl = slog.LevelWarn
	case "ERROR":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
