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

type SummaryService interface {
	Create(ctx context.Context, input app.CreateSummaryInput) (*model.Summary, error)
	List(ctx context.Context, userID uint) ([]model.SummaryListItem, error)
}

type SummaryHandler struct {
	summaries SummaryService
	logger    *zap.Logger
}

type CreateSummaryRequest struct {
	ExternalFileID string `json:"externalFileId"`
	Topic          string `json:"topic"`
	TargetWords    *int   `json:"targetWords"`
}

func NewSummaryHandler(summaries SummaryService, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{summaries: summaries, logger: logger}
}

func (h *SummaryHandler) Create(c *gin.Context) {
	var req CreateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Message(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	summary, err := h.summaries.Create(c.Request.Context(), app.CreateSummaryInput{
		UserID:         middleware.UserID(c),
		ExternalFileID: req.ExternalFileID,
		Topic:          req.Topic,
		TargetWords:    req.TargetWords,
	})
	if err != nil {
		f := classify(err)
		if f.status >= http.StatusInternalServerError {
			h.logger.Error("create summary failed", zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
		}
		response.Message(c, f.status, f.message)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func (h *SummaryHandler) List(c *gin.Context) {
	items, err := h.summaries.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		f := classify(err)
		h.logger.Error("list summaries failed", zap.Error(err))
		response.Message(c, f.status, f.message)
		return
	}
	response.OK(c, items)
}
