// Package repository holds the Postgres access layer. Queries are written
// by hand against pgx; each repository covers one aggregate.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tutorlab/videoquiz/internal/quiz"
)

// QuizRepository persists quizzes with their questions and wrong-answer
// records.
type QuizRepository struct {
	pool *pgxpool.Pool
}

func NewQuizRepository(pool *pgxpool.Pool) *QuizRepository {
	return &QuizRepository{pool: pool}
}

// Create inserts the quiz and its questions in one transaction.
func (r *QuizRepository) Create(ctx context.Context, q *quiz.Quiz) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quizzes (id, learner_id, video_url, video_title, transcript, total_questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		q.ID, q.LearnerID, q.VideoURL, q.VideoTitle, q.Transcript, q.TotalQuestions, q.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	if err := insertQuestions(ctx, tx, q.ID, q.Questions); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Get loads the learner's quiz with questions and wrong answers, or nil
// when no such quiz exists for that learner.
func (r *QuizRepository) Get(ctx context.Context, id uuid.UUID, learnerID string) (*quiz.Quiz, error) {
	var q quiz.Quiz
	err := r.pool.QueryRow(ctx, `
		SELECT id, learner_id, video_url, video_title, transcript, score, total_questions, created_at
		FROM quizzes WHERE id = $1 AND learner_id = $2`,
		id, learnerID).
		Scan(&q.ID, &q.LearnerID, &q.VideoURL, &q.VideoTitle, &q.Transcript, &q.Score, &q.TotalQuestions, &q.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select quiz: %w", err)
	}

	q.Questions, err = r.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	q.WrongAnswers, err = r.listWrongAnswers(ctx, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// List returns the learner's quizzes newest first, without question or
// wrong-answer children.
func (r *QuizRepository) List(ctx context.Context, learnerID string) ([]quiz.Quiz, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, learner_id, video_url, video_title, transcript, score, total_questions, created_at
		FROM quizzes WHERE learner_id = $1 ORDER BY created_at DESC`,
		learnerID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	var quizzes []quiz.Quiz
	for rows.Next() {
		var q quiz.Quiz
		if err := rows.Scan(&q.ID, &q.LearnerID, &q.VideoURL, &q.VideoTitle, &q.Transcript, &q.Score, &q.TotalQuestions, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		quizzes = append(quizzes, q)
	}
	return quizzes, rows.Err()
}

// ReplaceQuestions swaps the question set, clears wrong answers, and
// resets the score in one transaction.
func (r *QuizRepository) ReplaceQuestions(ctx context.Context, quizID uuid.UUID, questions []quiz.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM wrong_answers WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("clear wrong answers: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("clear questions: %w", err)
	}
	if err := insertQuestions(ctx, tx, quizID, questions); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE quizzes SET score = NULL, total_questions = $2 WHERE id = $1`, quizID, len(questions)); err != nil {
		return fmt.Errorf("reset score: %w", err)
	}
	return tx.Commit(ctx)
}

// SaveScore records the submission outcome.
func (r *QuizRepository) SaveScore(ctx context.Context, quizID uuid.UUID, score, total int) error {
	_, err := r.pool.Exec(ctx, `UPDATE quizzes SET score = $2, total_questions = $3 WHERE id = $1`, quizID, score, total)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

// ReplaceWrongAnswers swaps the quiz's wrong-answer set atomically.
func (r *QuizRepository) ReplaceWrongAnswers(ctx context.Context, quizID uuid.UUID, records []quiz.WrongRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM wrong_answers WHERE quiz_id = $1`, quizID); err != nil {
		return fmt.Errorf("clear wrong answers: %w", err)
	}
	for _, rec := range records {
		_, err := tx.Exec(ctx, `
			INSERT INTO wrong_answers (quiz_id, question_id, submitted)
			VALUES ($1, $2, $3)`,
			quizID, rec.QuestionID, rec.Submitted)
		if err != nil {
			return fmt.Errorf("insert wrong answer: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func insertQuestions(ctx context.Context, tx pgx.Tx, quizID uuid.UUID, questions []quiz.Question) error {
	for i, question := range questions {
		_, err := tx.Exec(ctx, `
			INSERT INTO questions (id, quiz_id, position, type, text, options, correct_answers)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			question.ID, quizID, i, string(question.Type), question.Text, question.Options, question.CorrectAnswers)
		if err != nil {
			return fmt.Errorf("insert question %d: %w", i, err)
		}
	}
	return nil
}

func (r *QuizRepository) listQuestions(ctx context.Context, quizID uuid.UUID) ([]quiz.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, type, text, options, correct_answers
		FROM questions WHERE quiz_id = $1 ORDER BY position`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []quiz.Question
	for rows.Next() {
		var (
			q   quiz.Question
			typ string
		)
		if err := rows.Scan(&q.ID, &typ, &q.Text, &q.Options, &q.CorrectAnswers); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = quiz.QuestionType(typ)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *QuizRepository) listWrongAnswers(ctx context.Context, quizID uuid.UUID) ([]quiz.WrongRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT question_id, submitted FROM wrong_answers WHERE quiz_id = $1`,
		quizID)
	if err != nil {
		return nil, fmt.Errorf("list wrong answers: %w", err)
	}
	defer rows.Close()

	var records []quiz.WrongRecord
	for rows.Next() {
		var rec quiz.WrongRecord
		if err := rows.Scan(&rec.QuestionID, &rec.Submitted); err != nil {
			return nil, fmt.Errorf("scan wrong answer: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
