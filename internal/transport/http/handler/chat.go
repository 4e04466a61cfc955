package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studymate/internal/app"
	"studymate/internal/rag"
	"studymate/internal/transport/http/middleware"
)

type ChatService interface {
	Ask(ctx context.Context, input app.AskInput) (*app.AskResult, error)
	Stream(ctx context.Context, input app.AskInput, emit rag.Emitter) error
}

type ChatHandler struct {
	chat   ChatService
	logger *zap.Logger
}

type ChatRequest struct {
	ExternalFileID string     `json:"externalFileId"`
	Message        string     `json:"message"`
	History        []rag.Turn `json:"history"`
}

func NewChatHandler(chat ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

func (h *ChatHandler) input(c *gin.Context, req ChatRequest) app.AskInput {
	return app.AskInput{
		UserID:         middleware.UserID(c),
		ExternalFileID: req.ExternalFileID,
		Message:        req.Message,
		History:        req.History,
	}
}

// Stream answers as a chunked text/plain body. Headers are committed on the
// first chunk, so failures before any text still get a proper status. A
// failure after that aborts the connection.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.String(http.StatusBadRequest, "Invalid request body")
		return
	}

	started := false
	emit := func(chunk string) error {
		if !started {
			c.Header("Content-Type", "text/plain; charset=utf-8")
			c.Header("Cache-Control", "no-cache")
			c.Header("X-Accel-Buffering", "no")
			c.Status(http.StatusOK)
			started = true
		}
		if _, err := c.Writer.WriteString(chunk); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	err := h.chat.Stream(c.Request.Context(), h.input(c, req), emit)
	if err == nil {
		return
	}
	if started {
		h.logger.Error("chat stream failed after first chunk", zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
		if abortErr := abortStream(c); abortErr != nil {
			h.logger.Warn("abort chat stream failed", zap.Error(abortErr))
		}
		return
	}
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		h.logger.Error("chat stream failed", zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
	}
	c.String(f.status, f.message)
}

func (h *ChatHandler) Ask(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	res, err := h.chat.Ask(c.Request.Context(), h.input(c, req))
	if err != nil {
		f := classify(err)
		if f.status >= http.StatusInternalServerError {
			h.logger.Error("chat failed", zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
		}
		c.JSON(f.status, gin.H{"message": f.message})
		return
	}
	c.JSON(http.StatusOK, res)
}

// abortStream drops the connection so the chunked body never gets its
// terminating chunk and the client reads an unexpected EOF instead of a
// complete answer.
func abortStream(c *gin.Context) (err error) {
	// gin panics when the underlying writer cannot be hijacked (HTTP/2)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hijack unsupported: %v", r)
		}
	}()
	c.Writer.Flush()
	conn, _, err := c.Writer.Hijack()
	if err != nil {
		return fmt.Errorf("hijack connection failed: %w", err)
	}
	return conn.Close()
}
