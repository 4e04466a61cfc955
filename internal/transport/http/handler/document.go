package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"studymate/internal/app"
	"studymate/internal/model"
	"studymate/internal/pkg/textextract"
	"studymate/internal/transport/http/middleware"
	"studymate/internal/transport/http/response"
)

const MaxUploadBytes = 10 << 20

type DocumentService interface {
	Upload(ctx context.Context, input app.UploadDocumentInput) (*model.Document, error)
	List(ctx context.Context, userID uint) ([]model.Document, error)
	Delete(ctx context.Context, userID, documentID uint) error
}

type DocumentHandler struct {
	documents DocumentService
	logger    *zap.Logger
}

type UploadDocumentRequest struct {
	Name    string `json:"name" binding:"required,max=256"`
	Content string `json:"content" binding:"required"`
}

func NewDocumentHandler(documents DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documents: documents, logger: logger}
}

// Upload accepts a multipart "file" (pdf, txt, md) or a JSON body with the
// text inline.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID := middleware.UserID(c)

	var input app.UploadDocumentInput
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		name, text, ok := h.readUpload(c)
		if !ok {
			return
		}
		input = app.UploadDocumentInput{UserID: userID, FileName: name, Content: text}
	} else {
		var req UploadDocumentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
			return
		}
		if len(req.Content) > MaxUploadBytes {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "File must be 10MB or smaller")
			return
		}
		input = app.UploadDocumentInput{UserID: userID, FileName: req.Name, Content: req.Content}
	}

	doc, err := h.documents.Upload(c.Request.Context(), input)
	if err != nil {
		h.fail(c, "upload document failed", err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) readUpload(c *gin.Context) (string, string, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "File must be 10MB or smaller")
			return "", "", false
		}
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file is required")
		return "", "", false
	}
	if fileHeader.Size > MaxUploadBytes {
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodeFileTooLarge, "File must be 10MB or smaller")
		return "", "", false
	}
	if !textextract.Supported(fileHeader.Filename) {
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedFile, "Only PDF, TXT and MD files are supported")
		return "", "", false
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "cannot read uploaded file")
		return "", "", false
	}
	defer f.Close()

	text, err := textextract.FromFile(fileHeader.Filename, f)
	if err != nil {
		h.logger.Warn("extract upload text failed", zap.String("file", fileHeader.Filename), zap.Error(err))
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "cannot extract text from file")
		return "", "", false
	}

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		name = fileHeader.Filename
	}
	return name, text, true
}

func (h *DocumentHandler) List(c *gin.Context) {
	docs, err := h.documents.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		h.fail(c, "list documents failed", err)
		return
	}
	response.OK(c, docs)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "Not found or access denied")
		return
	}
	if err := h.documents.Delete(c.Request.Context(), middleware.UserID(c), uint(id)); err != nil {
		h.fail(c, "delete document failed", err)
		return
	}
	response.OK(c, gin.H{"deleted": uint(id)})
}

func (h *DocumentHandler) fail(c *gin.Context, msg string, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Uint("user_id", middleware.UserID(c)), zap.Error(err))
	}
	response.Error(c, f.status, f.code, f.message)
}
