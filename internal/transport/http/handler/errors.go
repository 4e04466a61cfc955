package handler

import (
	"errors"
	"net/http"

	"studymate/internal/app"
	"studymate/internal/parser"
	"studymate/internal/rag"
	"studymate/internal/transport/http/response"
)

type failure struct {
	status  int
	code    int
	message string
}

// classify maps a service error onto the status and caller-safe message. Only
// validation messages carry detail; everything else is generic.
func classify(err error) failure {
	var verr *app.ValidationError
	switch {
	case errors.Is(err, app.ErrAuthRequired):
		return failure{http.StatusUnauthorized, response.CodeUnauthorized, "Authentication required"}
	case errors.As(err, &verr):
		return failure{http.StatusBadRequest, response.CodeBadRequest, verr.Message}
	case errors.Is(err, rag.ErrNoDocuments):
		return failure{http.StatusNotFound, response.CodeNotFound, "No documents found"}
	case errors.Is(err, app.ErrNotFoundOrForbidden), errors.Is(err, rag.ErrNotAuthorized):
		return failure{http.StatusNotFound, response.CodeNotFound, "Not found or access denied"}
	case errors.Is(err, parser.ErrParse):
		return failure{http.StatusInternalServerError, response.CodeInternalServer, "Failed to process the generated content"}
	case errors.Is(err, rag.ErrUpstream), errors.Is(err, rag.ErrEmptyResponse):
		return failure{http.StatusInternalServerError, response.CodeInternalServer, "Failed to generate a response"}
	default:
		return failure{http.StatusInternalServerError, response.CodeInternalServer, "Internal server error"}
	}
}
