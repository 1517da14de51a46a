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

	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
)

var ErrAssistantUnavailable = errors.New("assistant is unavailable")

// AssistantService generates replies for the storefront chat widget
// through an OpenAI-compatible chat completion API.
type AssistantService interface {
	Reply(ctx context.Context, history []model.ChatMessage, userMessage string) (string, error)
}

type assistantService struct {
	cfg        config.AssistantConfig
	httpClient *http.Client
}

func NewAssistantService(cfg config.AssistantConfig) AssistantService {
	return &assistantService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

const assistantSystemPrompt = "You are the shopping assistant for Verdantleaf, a botanical skincare shop. " +
	"Answer questions about products, ingredients, shipping and orders. " +
	"Be concise and friendly. If you do not know something, say so and " +
	"suggest contacting hello@verdantleaf.example instead of guessing. " +
	"Never invent prices, stock levels or order details."

// Reply sends the conversation to the completion API and returns the
// assistant's answer. Recent history is included so the assistant can
// follow up on earlier turns.
func (s *assistantService) Reply(ctx context.Context, history []model.ChatMessage, userMessage string) (string, error) {
	if s.cfg.APIKey == "" {
		logger.Warn("Assistant API key is not configured")
		return "", ErrAssistantUnavailable
	}

	messages := make([]completionMessage, 0, len(history)+2)
	messages = append(messages, completionMessage{Role: "system", Content: assistantSystemPrompt})
	for _, msg := range history {
		role := "user"
		if msg.Sender == model.SenderAssistant {
			role = "assistant"
		}
		messages = append(messages, completionMessage{Role: role, Content: msg.Content})
	}
	messages = append(messages, completionMessage{Role: "user", Content: userMessage})

	body, err := json.Marshal(completionRequest{
		Model:    s.cfg.Model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	url := strings.TrimSuffix(s.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		logger.Error("Assistant request failed", err)
		return "", ErrAssistantUnavailable
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read completion response: %w", err)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		logger.Error("Failed to parse completion response", err, map[string]interface{}{
			"status": resp.StatusCode,
		})
		return "", ErrAssistantUnavailable
	}

	if completion.Error != nil {
		logger.Error("Assistant API returned an error", errors.New(completion.Error.Message), map[string]interface{}{
			"type": completion.Error.Type,
		})
		return "", ErrAssistantUnavailable
	}

	if len(completion.Choices) == 0 {
		return "", ErrAssistantUnavailable
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}
