package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/catalog"
	"github.com/tutorlab/videoquiz/internal/config"
	"github.com/tutorlab/videoquiz/internal/db/repository"
	"github.com/tutorlab/videoquiz/internal/logging"
	"github.com/tutorlab/videoquiz/internal/pack"
	"github.com/tutorlab/videoquiz/internal/prep"
	"github.com/tutorlab/videoquiz/internal/provider"
	"github.com/tutorlab/videoquiz/internal/quiz"
	"github.com/tutorlab/videoquiz/internal/rag"
	"github.com/tutorlab/videoquiz/internal/server"
	"github.com/tutorlab/videoquiz/internal/transcript"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server)
// and the nightly catalog scheduler.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool      *pgxpool.Pool
	redis     *redis.Client
	http      *http.Server
	scheduler *catalog.Scheduler
	gemini    *provider.Gemini
}

// New bootstraps config, logger, Postgres, Redis, providers and the HTTP
// server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	quizRepo := repository.NewQuizRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	packRepo := repository.NewPackRepository(pool)

	// Providers are bound once at startup; nothing switches them per call.
	var (
		embeddings provider.Embeddings
		generator  provider.QuestionGenerator
		gemini     *provider.Gemini
	)
	needGemini := cfg.Providers.Embeddings == "gemini" || cfg.Providers.Generator == "gemini"
	if needGemini {
		if cfg.Providers.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY must be configured for the gemini provider")
		}
		gemini, err = provider.NewGemini(ctx, cfg.Providers.GeminiAPIKey, cfg.Providers.GeminiModel, cfg.Providers.EmbeddingModel, logger)
		if err != nil {
			return nil, fmt.Errorf("init gemini: %w", err)
		}
	}
	switch cfg.Providers.Embeddings {
	case "gemini":
		embeddings = gemini
	case "offline":
		embeddings = provider.OfflineEmbeddings{}
		logger.Warn().Msg("using offline embeddings provider")
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Providers.Embeddings)
	}
	switch cfg.Providers.Generator {
	case "gemini":
		generator = gemini
	case "offline":
		generator = provider.OfflineGenerator{}
		logger.Warn().Msg("using offline question generator")
	default:
		return nil, fmt.Errorf("unknown generator provider %q", cfg.Providers.Generator)
	}

	transcripts := transcript.NewCache(cfg.Transcript.Dir, provider.NewYouTubeTranscripts(logger), logger)
	metadata := provider.NewYouTubeMetadata(logger)

	index := rag.NewIndex(chunkRepo, embeddings, rag.Options{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
	}, logger)
	snippets := rag.NewSnippets(index, cfg.RAG.SnippetLen)

	packCache := pack.NewCache(redisClient, cfg.Redis.PackTTL)
	packSvc := pack.NewService(packRepo, packCache, generator, logger)

	quizSvc := quiz.NewService(quizRepo, catalogRepo, packSvc, transcripts, metadata, generator, index, quiz.Options{
		MaxVideoSeconds: cfg.Video.MaxSeconds,
		EnforceLimit:    cfg.Video.EnforceLimit,
		DefaultSize:     cfg.Prep.DefaultSize,
	}, logger)

	coordinator := prep.NewCoordinator(quizSvc, cfg.Prep.Workers, cfg.Prep.Timeout, logger)

	prewarmer := catalog.NewPrewarmer(catalogRepo, transcripts, index, cfg.Prewarm.BatchLimit, logger)
	packJob := pack.NewJob(catalogRepo, packSvc, cfg.Packs.Sizes, cfg.Packs.Cap, logger)
	scheduler, err := catalog.NewScheduler(catalog.ScheduleConfig{
		PrewarmEnabled: cfg.Prewarm.Enabled,
		PrewarmCron:    cfg.Prewarm.Cron,
		PackEnabled:    cfg.Packs.Enabled,
		PackCron:       cfg.Packs.Cron,
	}, prewarmer, packJob, logger)
	if err != nil {
		return nil, err
	}

	handlers := server.NewHandlers(quizSvc, coordinator, snippets)
	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, handlers)

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		scheduler: scheduler,
		gemini:    gemini,
	}, nil
}

// Run starts the HTTP server and scheduler, then waits for termination
// signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.scheduler.Start()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.scheduler.Stop()

	if a.gemini != nil {
		a.gemini.Close()
	}
	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
