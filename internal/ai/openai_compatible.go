package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type ChatConfig struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// CompatibleChatModel talks to any OpenAI-compatible /chat/completions
// endpoint over plain HTTP.
type CompatibleChatModel struct {
	cfg        ChatConfig
	httpClient *http.Client
}

var _ model.BaseChatModel = (*CompatibleChatModel)(nil)

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func NewCompatibleChatModel(cfg ChatConfig) *CompatibleChatModel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &CompatibleChatModel{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *CompatibleChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req, err := c.newRequest(ctx, input, false, opts)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read llm response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llm response status %d: %s", resp.StatusCode, string(raw))
	}

	var parsed struct {
		Choices []struct {
			Message      chatMessage `json:"message"`
			FinishReason string      `json:"finish_reason"`
		} `json:"choices"`
		Usage *chatUsage `json:"usage"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse llm json failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("empty llm choices")
	}

	msg := schema.AssistantMessage(parsed.Choices[0].Message.Content, nil)
	msg.ResponseMeta = &schema.ResponseMeta{FinishReason: parsed.Choices[0].FinishReason}
	if parsed.Usage != nil {
		msg.ResponseMeta.Usage = &schema.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return msg, nil
}

// Stream emits one message per SSE delta. Closing the returned reader stops
// the background reader and releases the HTTP body.
func (c *CompatibleChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	req, err := c.newRequest(ctx, input, true, opts)
	if err != nil {
		return nil, err
	}

	// The client timeout would cut long streams; the caller's ctx bounds them.
	streamClient := *c.httpClient
	streamClient.Timeout = 0
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm stream request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("llm stream status %d: %s", resp.StatusCode, string(raw))
	}

	sr, sw := schema.Pipe[*schema.Message](1)
	go func() {
		defer resp.Body.Close()
		defer sw.Close()
		if err := readSSE(resp.Body, func(text string) bool {
			return sw.Send(schema.AssistantMessage(text, nil), nil)
		}); err != nil {
			sw.Send(nil, err)
		}
	}()
	return sr, nil
}

// readSSE feeds each non-empty delta to send until [DONE], EOF, or send
// reports the reader closed.
func readSSE(body io.Reader, send func(text string) (closed bool)) error {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return nil
		}

		var chunk struct {
			Choices []struct {
				Delta struct {
					Content string `json:"content"`
				} `json:"delta"`
			} `json:"choices"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			return fmt.Errorf("llm stream error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if closed := send(chunk.Choices[0].Delta.Content); closed {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan llm stream failed: %w", err)
	}
	return nil
}

func (c *CompatibleChatModel) newRequest(ctx context.Context, input []*schema.Message, stream bool, opts []model.Option) (*http.Request, error) {
	if c.cfg.BaseURL == "" || c.cfg.Model == "" {
		return nil, errors.New("llm config is invalid")
	}

	options := model.GetCommonOptions(&model.Options{}, opts...)
	modelName := c.cfg.Model
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	messages := make([]chatMessage, 0, len(input))
	for _, m := range input {
		if m == nil {
			continue
		}
		messages = append(messages, chatMessage{Role: string(m.Role), Content: m.Content})
	}

	reqBody := map[string]interface{}{
		"model":    modelName,
		"messages": messages,
		"stream":   stream,
	}
	if options.MaxTokens != nil {
		reqBody["max_tokens"] = *options.MaxTokens
	} else if c.cfg.MaxTokens > 0 {
		reqBody["max_tokens"] = c.cfg.MaxTokens
	}
	if options.Temperature != nil {
		reqBody["temperature"] = *options.Temperature
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal llm request failed: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("build llm request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	return req, nil
}
