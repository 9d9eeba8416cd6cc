package server

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tutorlab/videoquiz/internal/config"
	"github.com/tutorlab/videoquiz/internal/logging"
)

// NewHTTPServer wires base routes (health, metrics) plus the v1 quiz and
// preparation API.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, handlers *Handlers) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/v1/ping", func(w http.ResponseWriter, r *http.Request) {
		if err := pingDependencies(r.Context(), pool, redis); err != nil {
			logger.Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"pong":true}`))
	})

	if handlers != nil {
		mux.HandleFunc("POST /v1/preparations", handlers.StartPreparation)
		mux.HandleFunc("GET /v1/preparations/{id}", handlers.PreparationStatus)

		mux.HandleFunc("POST /v1/quizzes", handlers.CreateQuiz)
		mux.HandleFunc("GET /v1/quizzes", handlers.ListQuizzes)
		mux.HandleFunc("GET /v1/quizzes/{id}", handlers.GetQuiz)
		mux.HandleFunc("POST /v1/quizzes/{id}/submit", handlers.SubmitAnswers)
		mux.HandleFunc("POST /v1/quizzes/{id}/regenerate", handlers.RegenerateQuiz)
		mux.HandleFunc("GET /v1/quizzes/{id}/questions/{questionId}/evidence", handlers.QuestionEvidence)
	}

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: requestLogger(logger, mux),
	}
}

// requestLogger stores a request-scoped logger in the context so handlers
// tag their log lines with method and path.
func requestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
	})
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if err := pool.Ping(ctx); err != nil {
		return err
	}
	if err := redis.Ping(ctx).Err(); err != nil {
		return err
	}
	return nil
}
