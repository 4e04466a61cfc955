package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"studymate/internal/app"
	"studymate/internal/model"
	"studymate/internal/parser"
	"studymate/internal/rag"
	"studymate/internal/transport/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func withUser(id uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserIDKey, id)
		c.Next()
	}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

type stubQuizService struct {
	createErr  error
	attemptErr error
	created    app.CreateQuizInput
	attempt    app.RecordAttemptInput
	stats      *app.Stats
}

func (s *stubQuizService) Create(_ context.Context, input app.CreateQuizInput) (*model.Quiz, error) {
	s.created = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &model.Quiz{ID: "q-1", UserID: input.UserID}, nil
}

func (s *stubQuizService) Get(_ context.Context, userID uint, quizID string) (*model.Quiz, error) {
	if quizID != "q-1" {
		return nil, app.ErrNotFoundOrForbidden
	}
	return &model.Quiz{ID: quizID, UserID: userID}, nil
}

func (s *stubQuizService) List(context.Context, uint) ([]model.Quiz, error) {
	return []model.Quiz{}, nil
}

func (s *stubQuizService) RecordAttempt(_ context.Context, input app.RecordAttemptInput) error {
	s.attempt = input
	return s.attemptErr
}

func (s *stubQuizService) Stats(context.Context, uint) (*app.Stats, error) {
	return s.stats, nil
}

func quizRouter(svc *stubQuizService) *gin.Engine {
	h := NewQuizHandler(svc, zap.NewNop())
	r := gin.New()
	r.Use(withUser(1))
	r.POST("/api/v1/quizzes", h.Create)
	r.GET("/api/v1/quizzes/:id", h.Get)
	r.POST("/api/v1/quizzes/:id/attempts", h.RecordAttempt)
	r.GET("/api/v1/stats", h.Stats)
	return r
}

func TestCreateQuizRedirectsToNewQuiz(t *testing.T) {
	svc := &stubQuizService{}
	w := doJSON(t, quizRouter(svc), http.MethodPost, "/api/v1/quizzes", map[string]interface{}{
		"externalFileIds": []string{"1:a"},
		"count":           3,
		"difficulty":      "easy",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/api/v1/quizzes/q-1", w.Header().Get("Location"))
	assert.JSONEq(t, `{"success":true,"quizId":"q-1","redirect":"/quizzes/q-1"}`, w.Body.String())
	require.NotNil(t, svc.created.Count)
	assert.Equal(t, 3, *svc.created.Count)
	assert.Equal(t, uint(1), svc.created.UserID)
}

func TestCreateQuizFailures(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", &app.ValidationError{Field: "Count", Message: "Question count must be between 1 and 20"}, http.StatusBadRequest, "Question count must be between 1 and 20"},
		{"not owned", rag.ErrNotAuthorized, http.StatusNotFound, "Not found or access denied"},
		{"no documents", rag.ErrNoDocuments, http.StatusNotFound, "No documents found"},
		{"malformed output", &parser.MalformedQuestionError{Index: 2, Reason: "answer is missing"}, http.StatusInternalServerError, "Failed to process the generated content"},
		{"upstream", fmt.Errorf("%w: connection reset", rag.ErrUpstream), http.StatusInternalServerError, "Failed to generate a response"},
		{"no session", app.ErrAuthRequired, http.StatusUnauthorized, "Authentication required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, quizRouter(&stubQuizService{createErr: tt.err}), http.MethodPost, "/api/v1/quizzes", map[string]interface{}{
				"externalFileIds": []string{"1:a"},
			})
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.message, body["error"])
			assert.NotContains(t, w.Body.String(), "index 2")
		})
	}
}

func TestGetQuizNotFound(t *testing.T) {
	w := doJSON(t, quizRouter(&stubQuizService{}), http.MethodGet, "/api/v1/quizzes/other", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRecordAttempt(t *testing.T) {
	svc := &stubQuizService{}
	w := doJSON(t, quizRouter(svc), http.MethodPost, "/api/v1/quizzes/q-1/attempts", map[string]int{"score": 80})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.Equal(t, app.RecordAttemptInput{UserID: 1, QuizID: "q-1", Score: 80}, svc.attempt)
}

func TestRecordAttemptFailures(t *testing.T) {
	w := doJSON(t, quizRouter(&stubQuizService{}), http.MethodPost, "/api/v1/quizzes/q-1/attempts", map[string]int{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Score is required", decode(t, w)["error"])

	svc := &stubQuizService{attemptErr: &app.ValidationError{Field: "score", Message: "Score must be between 0 and 100"}}
	w = doJSON(t, quizRouter(svc), http.MethodPost, "/api/v1/quizzes/q-1/attempts", map[string]int{"score": 150})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Score must be between 0 and 100"}`, w.Body.String())
}

func TestStatsRendersUndefinedAverage(t *testing.T) {
	svc := &stubQuizService{stats: &app.Stats{}}
	w := doJSON(t, quizRouter(svc), http.MethodGet, "/api/v1/stats", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "-", data["averageScore"])
	assert.Equal(t, float64(0), data["totalAttempts"])
}

type stubChatService struct {
	chunks []string
	err    error
}

func (s *stubChatService) Ask(context.Context, app.AskInput) (*app.AskResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &app.AskResult{Answer: "full", Model: "m"}, nil
}

func (s *stubChatService) Stream(_ context.Context, _ app.AskInput, emit rag.Emitter) error {
	for _, c := range s.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return s.err
}

func chatRouter(svc *stubChatService) *gin.Engine {
	h := NewChatHandler(svc, zap.NewNop())
	r := gin.New()
	r.Use(gin.Recovery(), withUser(1))
	r.POST("/api/v1/chat", h.Ask)
	r.POST("/api/v1/chat/stream", h.Stream)
	return r
}

func TestChatStreamWritesPlainTextChunks(t *testing.T) {
	w := doJSON(t, chatRouter(&stubChatService{chunks: []string{"Hello", ", ", "world"}}), http.MethodPost, "/api/v1/chat/stream",
		map[string]string{"externalFileId": "1:a", "message": "hi"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "Hello, world", w.Body.String())
	assert.True(t, w.Flushed)
}

func TestChatStreamErrorBeforeFirstChunk(t *testing.T) {
	w := doJSON(t, chatRouter(&stubChatService{err: &app.ValidationError{Field: "message", Message: "Message is required"}}), http.MethodPost, "/api/v1/chat/stream",
		map[string]string{"externalFileId": "1:a"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Message is required", w.Body.String())

	w = doJSON(t, chatRouter(&stubChatService{err: rag.ErrUpstream}), http.MethodPost, "/api/v1/chat/stream",
		map[string]string{"externalFileId": "1:a", "message": "hi"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to generate a response", w.Body.String())
}

func TestChatStreamErrorAfterFirstChunkAbortsBody(t *testing.T) {
	r := chatRouter(&stubChatService{chunks: []string{"partial "}, err: rag.ErrUpstream})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/api/v1/chat/stream", "application/json",
		strings.NewReader(`{"externalFileId":"1:a","message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Equal(t, "partial ", string(body))
}

func TestChatStreamCompletesCleanly(t *testing.T) {
	srv := httptest.NewServer(chatRouter(&stubChatService{chunks: []string{"all ", "done"}}))
	defer srv.Close()

	resp, err := srv.Client().Post(srv.URL+"/api/v1/chat/stream", "application/json",
		strings.NewReader(`{"externalFileId":"1:a","message":"hi"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "all done", string(body))
}

func TestChatStreamErrorAfterFirstChunkWithoutHijack(t *testing.T) {
	w := doJSON(t, chatRouter(&stubChatService{chunks: []string{"partial"}, err: rag.ErrUpstream}), http.MethodPost, "/api/v1/chat/stream",
		map[string]string{"externalFileId": "1:a", "message": "hi"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestChatAsk(t *testing.T) {
	w := doJSON(t, chatRouter(&stubChatService{}), http.MethodPost, "/api/v1/chat", map[string]string{"externalFileId": "1:a", "message": "hi"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"answer":"full","model":"m"}`, w.Body.String())
}

type stubSummaryService struct {
	err error
}

func (s *stubSummaryService) Create(_ context.Context, input app.CreateSummaryInput) (*model.Summary, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &model.Summary{ID: 1, UserID: input.UserID, Title: "T", Content: "C", Model: "m"}, nil
}

func (s *stubSummaryService) List(context.Context, uint) ([]model.SummaryListItem, error) {
	return nil, nil
}

func TestCreateSummary(t *testing.T) {
	h := NewSummaryHandler(&stubSummaryService{}, zap.NewNop())
	r := gin.New()
	r.Use(withUser(1))
	r.POST("/api/v1/summaries", h.Create)

	w := doJSON(t, r, http.MethodPost, "/api/v1/summaries", map[string]string{"externalFileId": "1:a"})
	assert.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "T", body["title"])
	assert.Equal(t, "C", body["content"])
}

func TestCreateSummaryErrorsUseMessageBody(t *testing.T) {
	h := NewSummaryHandler(&stubSummaryService{err: errors.New("db exploded")}, zap.NewNop())
	r := gin.New()
	r.Use(withUser(1))
	r.POST("/api/v1/summaries", h.Create)

	w := doJSON(t, r, http.MethodPost, "/api/v1/summaries", map[string]string{"externalFileId": "1:a"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Internal server error"}`, w.Body.String())
}

type stubDocumentService struct {
	uploaded app.UploadDocumentInput
	deleted  uint
}

func (s *stubDocumentService) Upload(_ context.Context, input app.UploadDocumentInput) (*model.Document, error) {
	s.uploaded = input
	return &model.Document{ID: 1, UserID: input.UserID, FileName: input.FileName, Status: model.DocumentUploaded}, nil
}

func (s *stubDocumentService) List(context.Context, uint) ([]model.Document, error) {
	return nil, nil
}

func (s *stubDocumentService) Delete(_ context.Context, _ uint, documentID uint) error {
	if documentID != 1 {
		return app.ErrNotFoundOrForbidden
	}
	s.deleted = documentID
	return nil
}

func documentRouter(svc *stubDocumentService) *gin.Engine {
	h := NewDocumentHandler(svc, zap.NewNop())
	r := gin.New()
	r.Use(withUser(1))
	r.POST("/api/v1/documents", h.Upload)
	r.DELETE("/api/v1/documents/:id", h.Delete)
	return r
}

func multipartUpload(t *testing.T, r http.Handler, fileName, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", fileName)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestUploadMultipartText(t *testing.T) {
	svc := &stubDocumentService{}
	w := multipartUpload(t, documentRouter(svc), "notes.md", "# Cells")

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, app.UploadDocumentInput{UserID: 1, FileName: "notes.md", Content: "# Cells"}, svc.uploaded)
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	w := multipartUpload(t, documentRouter(&stubDocumentService{}), "slides.pptx", "x")
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadJSON(t *testing.T) {
	svc := &stubDocumentService{}
	w := doJSON(t, documentRouter(svc), http.MethodPost, "/api/v1/documents", map[string]string{"name": "inline", "content": "text"})
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "inline", svc.uploaded.FileName)
}

func TestDeleteDocument(t *testing.T) {
	svc := &stubDocumentService{}
	r := documentRouter(svc)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/documents/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint(1), svc.deleted)

	w = doJSON(t, r, http.MethodDelete, "/api/v1/documents/2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/v1/documents/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
