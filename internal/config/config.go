package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"videoquiz"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres   Postgres
	Redis      Redis
	Transcript Transcript
	RAG        RAG
	Video      Video
	Prep       Prep
	Prewarm    Prewarm
	Packs      Packs
	Providers  Providers
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache configuration.
type Redis struct {
	Addr     string        `env:"REDIS_ADDR,notEmpty"`
	DB       int           `env:"REDIS_DB" envDefault:"0"`
	PoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"20"`
	PackTTL  time.Duration `env:"REDIS_PACK_TTL" envDefault:"5m"`
}

// Transcript configures the on-disk transcript cache.
type Transcript struct {
	Dir string `env:"TRANSCRIPT_DIR" envDefault:"downloads"`
}

// RAG bounds chunking and evidence snippets.
type RAG struct {
	ChunkSize    int `env:"RAG_CHUNK_SIZE" envDefault:"500"`
	ChunkOverlap int `env:"RAG_CHUNK_OVERLAP" envDefault:"100"`
	SnippetLen   int `env:"RAG_SNIPPET_LENGTH" envDefault:"400"`
}

// Video bounds acceptable source videos.
type Video struct {
	MaxSeconds   int64 `env:"VIDEO_MAX_SECONDS" envDefault:"1800"`
	EnforceLimit bool  `env:"VIDEO_ENFORCE_LIMIT" envDefault:"true"`
}

// Prep governs the asynchronous preparation pool.
type Prep struct {
	Workers     int           `env:"PREP_WORKERS" envDefault:"2"`
	Timeout     time.Duration `env:"PREP_TIMEOUT" envDefault:"30m"`
	DefaultSize int           `env:"PREP_DEFAULT_SIZE" envDefault:"10"`
}

// Prewarm schedules the nightly embedding prewarm batch.
type Prewarm struct {
	Enabled    bool   `env:"PREWARM_ENABLED" envDefault:"true"`
	Cron       string `env:"PREWARM_CRON" envDefault:"30 2 * * *"`
	BatchLimit int    `env:"PREWARM_BATCH_LIMIT" envDefault:"10"`
}

// Packs schedules nightly question-pack generation.
type Packs struct {
	Enabled bool   `env:"PACKS_ENABLED" envDefault:"true"`
	Cron    string `env:"PACKS_CRON" envDefault:"10 3 * * *"`
	Sizes   []int  `env:"PACKS_SIZES" envSeparator:"," envDefault:"5,10,15"`
	Cap     int    `env:"PACKS_CAP" envDefault:"6"`
}

// Providers selects and configures the external capability providers.
// Offline variants exist for the embedder and generator so the pipeline
// runs without upstream credentials.
type Providers struct {
	Embeddings     string `env:"PROVIDER_EMBEDDINGS" envDefault:"gemini"`
	Generator      string `env:"PROVIDER_GENERATOR" envDefault:"gemini"`
	GeminiAPIKey   string `env:"GEMINI_API_KEY"`
	GeminiModel    string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	EmbeddingModel string `env:"GEMINI_EMBEDDING_MODEL" envDefault:"text-embedding-004"`
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
