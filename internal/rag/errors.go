package rag

import "errors"

var (
	ErrNoDocuments   = errors.New("no documents found")
	ErrNotAuthorized = errors.New("documents not accessible")
	ErrUpstream      = errors.New("upstream generation failed")
	ErrEmptyResponse = errors.New("empty response from model")
)
