package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"studymate/internal/model"
)

type rawQuestion struct {
	Question json.RawMessage `json:"question"`
	Options  json.RawMessage `json:"options"`
	Answer   json.RawMessage `json:"answer"`
}

// ParseQuiz turns model output into a validated quiz. The payload may be
// wrapped in prose or code fences; the span from the first '{' to the last
// '}' is parsed.
func ParseQuiz(raw string) (*model.QuizResult, error) {
	payload := []byte(extractObject(raw))
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: output is not valid json", ErrParse)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(payload, &top); err != nil {
		return nil, fmt.Errorf("%w: top level is not an object", ErrMalformedQuiz)
	}
	quizRaw, ok := top["quiz"]
	if !ok || !isKind(quizRaw, '[') {
		return nil, fmt.Errorf("%w: missing quiz array", ErrMalformedQuiz)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(quizRaw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuiz, err)
	}

	result := &model.QuizResult{Quiz: make([]model.QuizQuestion, 0, len(items))}
	for i, item := range items {
		q, err := parseQuestion(i, item)
		if err != nil {
			return nil, err
		}
		result.Quiz = append(result.Quiz, q)
	}
	return result, nil
}

func parseQuestion(index int, item json.RawMessage) (model.QuizQuestion, error) {
	if !isKind(item, '{') {
		return model.QuizQuestion{}, &MalformedQuestionError{Index: index, Reason: "not an object"}
	}
	var rq rawQuestion
	if err := json.Unmarshal(item, &rq); err != nil {
		return model.QuizQuestion{}, &MalformedQuestionError{Index: index, Reason: err.Error()}
	}

	question, ok := nonEmptyString(rq.Question)
	if !ok {
		return model.QuizQuestion{}, &MalformedQuestionError{Index: index, Reason: "question is missing"}
	}
	answer, ok := scalarString(rq.Answer)
	if !ok {
		return model.QuizQuestion{}, &MalformedQuestionError{Index: index, Reason: "answer is missing"}
	}
	if !isKind(rq.Options, '[') {
		return model.QuizQuestion{}, &MalformedQuestionError{Index: index, Reason: "options is not a list"}
	}
	var rawOptions []json.RawMessage
	if err := json.Unmarshal(rq.Options, &rawOptions); err != nil {
		return model.QuizQuestion{}, &MalformedQuestionError{Index: index, Reason: err.Error()}
	}

	options := make([]string, len(rawOptions))
	for i, o := range rawOptions {
		options[i] = coerceString(o)
	}

	return model.QuizQuestion{
		Question:           question,
		Options:            options,
		CorrectAnswerIndex: matchAnswer(answer, options),
	}, nil
}

// matchAnswer returns the first option equal to answer ignoring case and
// surrounding space. No match yields 0.
func matchAnswer(answer string, options []string) int {
	want := strings.ToLower(strings.TrimSpace(answer))
	for i, o := range options {
		if strings.ToLower(strings.TrimSpace(o)) == want {
			return i
		}
	}
	return 0
}

func extractObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return strings.TrimSpace(raw)
	}
	return raw[start : end+1]
}

func isKind(raw json.RawMessage, open byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == open
}

func nonEmptyString(raw json.RawMessage) (string, bool) {
	if !isKind(raw, '"') {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

// scalarString accepts a non-empty string, number or boolean. Numbers keep
// their JSON spelling so "answer": 2 matches an option "2".
func scalarString(raw json.RawMessage) (string, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return "", false
	}
	switch trimmed[0] {
	case '"':
		return nonEmptyString(trimmed)
	case '{', '[', 'n':
		return "", false
	}
	return string(trimmed), true
}

// coerceString renders any JSON value as option text; null becomes "".
func coerceString(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	}
	return string(trimmed)
}
