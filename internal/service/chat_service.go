package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrChatUnavailable indicates the upstream completion API could not be
// reached or returned an unusable response.
var ErrChatUnavailable = errors.New("chat assistant is unavailable")

const farmingSystemPrompt = "You are PiperSmart, an assistant for black pepper " +
	"(Piper nigrum) farmers. Answer questions about cultivation, pests, " +
	"diseases, harvesting, processing and markets. Keep answers short and " +
	"practical. If a question is unrelated to pepper farming, say so briefly."

// ChatService forwards user messages to an OpenAI-compatible
// chat-completions API and returns the assistant's reply.
type ChatService interface {
	Ask(ctx context.Context, message string) (string, error)
}

// ChatConfig points the service at a completion API.
type ChatConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type chatService struct {
	cfg    ChatConfig
	client *http.Client
}

func NewChatService(cfg ChatConfig) ChatService {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &chatService{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *chatService) Ask(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message is required")
	}

	payload := chatCompletionRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: farmingSystemPrompt},
			{Role: "user", Content: message},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrChatUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrChatUnavailable, err)
	}

	var out chatCompletionResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("%w: invalid response", ErrChatUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("%w: %s", ErrChatUnavailable, out.Error.Message)
		}
		return "", fmt.Errorf("%w: status %d", ErrChatUnavailable, resp.StatusCode)
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty completion", ErrChatUnavailable)
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
