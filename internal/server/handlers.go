package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	httperrors "github.com/tutorlab/videoquiz/pkg/http/errors"

	"github.com/tutorlab/videoquiz/internal/logging"
	"github.com/tutorlab/videoquiz/internal/prep"
	"github.com/tutorlab/videoquiz/internal/provider"
	"github.com/tutorlab/videoquiz/internal/quiz"
	"github.com/tutorlab/videoquiz/internal/rag"
)

// learnerHeader carries the opaque learner identifier. No authentication
// sits behind it.
const learnerHeader = "X-Learner-ID"

// Handlers exposes the quiz and preparation API over HTTP. Log lines go
// through the request-scoped logger injected by requestLogger.
type Handlers struct {
	quizzes  *quiz.Service
	prep     *prep.Coordinator
	snippets *rag.Snippets
}

func NewHandlers(quizzes *quiz.Service, coordinator *prep.Coordinator, snippets *rag.Snippets) *Handlers {
	return &Handlers{quizzes: quizzes, prep: coordinator, snippets: snippets}
}

func learnerID(r *http.Request) string {
	if id := r.Header.Get(learnerHeader); id != "" {
		return id
	}
	if c, err := r.Cookie("learner_id"); err == nil {
		return c.Value
	}
	return ""
}

type startPreparationRequest struct {
	VideoURL    string `json:"videoUrl"`
	DesiredSize int    `json:"desiredSize"`
}

// StartPreparation registers an asynchronous quiz preparation and returns
// its task id immediately.
func (h *Handlers) StartPreparation(w http.ResponseWriter, r *http.Request) {
	var req startPreparationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.VideoURL == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "videoUrl is required", "videoUrl")
		return
	}
	taskID := h.prep.Start(learnerID(r), req.VideoURL, req.DesiredSize)
	respondJSON(w, http.StatusAccepted, map[string]string{"taskId": taskID.String()})
}

// PreparationStatus reports the task's current state for polling.
func (h *Handlers) PreparationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid preparation id")
		return
	}
	respondJSON(w, http.StatusOK, h.prep.Status(id))
}

type createQuizRequest struct {
	VideoURL    string `json:"videoUrl"`
	DesiredSize int    `json:"desiredSize"`
	Difficulty  string `json:"difficulty"`
}

// CreateQuiz runs the preparation pipeline synchronously.
func (h *Handlers) CreateQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	if req.VideoURL == "" {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "videoUrl is required", "videoUrl")
		return
	}

	q, err := h.quizzes.Create(r.Context(), quiz.CreateRequest{
		LearnerID:   learnerID(r),
		VideoURL:    req.VideoURL,
		DesiredSize: req.DesiredSize,
		Difficulty:  quiz.ParseDifficulty(req.Difficulty),
	})
	if err != nil {
		h.respondPipelineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, q)
}

// ListQuizzes returns the learner's quizzes, newest first.
func (h *Handlers) ListQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.quizzes.List(r.Context(), learnerID(r))
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("list quizzes failed")
		httperrors.RespondInternalError(w, "failed to list quizzes")
		return
	}
	if quizzes == nil {
		quizzes = []quiz.Quiz{}
	}
	respondJSON(w, http.StatusOK, quizzes)
}

// GetQuiz returns one quiz with questions and wrong answers.
func (h *Handlers) GetQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quizID(w, r)
	if !ok {
		return
	}
	q, err := h.quizzes.Get(r.Context(), id, learnerID(r))
	if err != nil {
		h.respondQuizError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type submitRequest struct {
	// Answers maps question id to the submitted answer list.
	Answers map[uuid.UUID][]string `json:"answers"`
}

// SubmitAnswers scores the submission and returns the updated quiz.
func (h *Handlers) SubmitAnswers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quizID(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	q, err := h.quizzes.Submit(r.Context(), id, learnerID(r), req.Answers)
	if err != nil {
		h.respondQuizError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

type regenerateRequest struct {
	Difficulty string `json:"difficulty"`
}

// RegenerateQuiz replaces the quiz's questions at the requested difficulty.
func (h *Handlers) RegenerateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quizID(w, r)
	if !ok {
		return
	}
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid JSON body")
		return
	}
	q, err := h.quizzes.Regenerate(r.Context(), id, learnerID(r), quiz.ParseDifficulty(req.Difficulty))
	if err != nil {
		h.respondQuizError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, q)
}

// QuestionEvidence returns the best supporting transcript excerpt for one
// question, with correct-answer phrases highlighted.
func (h *Handlers) QuestionEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := h.quizID(w, r)
	if !ok {
		return
	}
	questionID, err := uuid.Parse(r.PathValue("questionId"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid question id")
		return
	}

	q, err := h.quizzes.Get(r.Context(), id, learnerID(r))
	if err != nil {
		h.respondQuizError(w, r, err)
		return
	}
	var question *quiz.Question
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			question = &q.Questions[i]
			break
		}
	}
	if question == nil {
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, "question not found")
		return
	}

	snippet, err := h.snippets.Evidence(r.Context(), q.ChunkOwnerID(), *question)
	if err != nil {
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Stringer("quiz", id).Msg("evidence lookup failed")
		httperrors.RespondInternalError(w, "failed to retrieve evidence")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"evidence": snippet})
}

func (h *Handlers) quizID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "invalid quiz id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handlers) respondQuizError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quiz.ErrQuizNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeQuizNotFound, "quiz not found")
	case errors.Is(err, quiz.ErrTranscriptMissing):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeTranscriptMissing, "Transcript missing; cannot regenerate. Please recreate the quiz.")
	case errors.Is(err, provider.ErrGenerationFailed):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeGenerationFailed, "question generation failed")
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("quiz request failed")
		httperrors.RespondInternalError(w, "internal error")
	}
}

func (h *Handlers) respondPipelineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, quiz.ErrDurationUnknown):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeDurationUnknown, err.Error())
	case errors.Is(err, quiz.ErrDurationExceeded):
		httperrors.RespondBadRequest(w, httperrors.ErrCodeDurationExceeded, err.Error())
	case errors.Is(err, provider.ErrFetchFailed):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeFetchFailed, "transcript fetch failed")
	case errors.Is(err, provider.ErrEmbeddingFailed):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeEmbeddingFailed, "embedding failed")
	case errors.Is(err, provider.ErrGenerationFailed):
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeGenerationFailed, "question generation failed")
	default:
		logger := logging.FromContext(r.Context())
		logger.Error().Err(err).Msg("quiz creation failed")
		httperrors.RespondInternalError(w, "failed to create quiz")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
