package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studymate/internal/app"
	"studymate/internal/model"
	"studymate/internal/transport/http/middleware"
	"studymate/internal/transport/http/response"
)

type QuizService interface {
	Create(ctx context.Context, input app.CreateQuizInput) (*model.Quiz, error)
	Get(ctx context.Context, userID uint, quizID string) (*model.Quiz, error)
	List(ctx context.Context, userID uint) ([]model.Quiz, error)
	RecordAttempt(ctx context.Context, input app.RecordAttemptInput) error
	Stats(ctx context.Context, userID uint) (*app.Stats, error)
}

type QuizHandler struct {
	quizzes QuizService
	logger  *zap.Logger
}

type CreateQuizRequest struct {
	ExternalFileIDs []string `json:"externalFileIds"`
	Topic           string   `json:"topic"`
	Count           *int     `json:"count"`
	Difficulty      string   `json:"difficulty"`
}

type RecordAttemptRequest struct {
	Score *int `json:"score"`
}

func NewQuizHandler(quizzes QuizService, logger *zap.Logger) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, logger: logger}
}

func (h *QuizHandler) Create(c *gin.Context) {
	var req CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ActionError(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	quiz, err := h.quizzes.Create(c.Request.Context(), app.CreateQuizInput{
		UserID:          middleware.UserID(c),
		ExternalFileIDs: req.ExternalFileIDs,
		Topic:           req.Topic,
		Count:           req.Count,
		Difficulty:      req.Difficulty,
	})
	if err != nil {
		f := h.classify(c, "create quiz failed", err)
		response.ActionError(c, f.status, f.message)
		return
	}

	c.Header("Location", "/api/v1/quizzes/"+quiz.ID)
	response.Action(c, http.StatusCreated, response.ActionResult{
		Success:  true,
		QuizID:   quiz.ID,
		Redirect: "/quizzes/" + quiz.ID,
	})
}

func (h *QuizHandler) List(c *gin.Context) {
	quizzes, err := h.quizzes.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		f := h.classify(c, "list quizzes failed", err)
		response.Error(c, f.status, f.code, f.message)
		return
	}
	response.OK(c, quizzes)
}

func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.quizzes.Get(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		f := h.classify(c, "get quiz failed", err)
		response.Error(c, f.status, f.code, f.message)
		return
	}
	response.OK(c, quiz)
}

func (h *QuizHandler) RecordAttempt(c *gin.Context) {
	var req RecordAttemptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ActionError(c, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Score == nil {
		response.ActionError(c, http.StatusBadRequest, "Score is required")
		return
	}

	err := h.quizzes.RecordAttempt(c.Request.Context(), app.RecordAttemptInput{
		UserID: middleware.UserID(c),
		QuizID: c.Param("id"),
		Score:  *req.Score,
	})
	if err != nil {
		f := h.classify(c, "record attempt failed", err)
		response.ActionError(c, f.status, f.message)
		return
	}
	response.Action(c, http.StatusOK, response.ActionResult{Success: true})
}

func (h *QuizHandler) Stats(c *gin.Context) {
	stats, err := h.quizzes.Stats(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		f := h.classify(c, "compute stats failed", err)
		response.Error(c, f.status, f.code, f.message)
		return
	}
	response.OK(c, stats)
}

func (h *QuizHandler) classify(c *gin.Context, msg string, err error) failure {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
	}
	return f
}
