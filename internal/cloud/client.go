// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jeranaias/parley/internal/remote"
)

// Configuration constants.
const (
	// DefaultBaseURL is the OpenRouter API, which speaks the OpenAI protocol.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is used when Config.Model is empty.
	DefaultModel = "openai/gpt-4o-mini"

	// DefaultTimeout bounds one HTTP request.
	DefaultTimeout = 60 * time.Second
)

// ErrNoAPIKey is returned by NewClient when no key is configured.
var ErrNoAPIKey = errors.New("cloud backend requires an API key")

// Config configures the cloud client.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration

	// HTTPClient overrides the transport, for tests.
	HTTPClient *http.Client
}

// Client sends chat completions to an OpenAI-compatible endpoint.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient builds a client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	apiConfig := openai.DefaultConfig(cfg.APIKey)
	apiConfig.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.HTTPClient != nil {
		apiConfig.HTTPClient = cfg.HTTPClient
	} else {
		apiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{api: openai.NewClientWithConfig(apiConfig), model: cfg.Model}, nil
}

// Model returns the configured model.
func (c *Client) Model() string {
	return c.model
}

// Complete implements remote.Completer.
func (c *Client) Complete(ctx context.Context, turns []remote.Turn) (*remote.Reply, error) {
	messages := make([]openai.ChatCompletionMessage, len(turns))
	for i, t := range turns {
		messages[i] = openai.ChatCompletionMessage{Role: chatRole(t.Role), Content: t.Content}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return nil, describe(err)
	}
	if len(resp.Choices) == 0 {
		return &remote.Reply{}, nil
	}
	return remote.NewReply(resp.Choices[0].Message.Content), nil
}

func chatRole(role string) string {
	switch role {
	case "assistant":
		return openai.ChatMessageRoleAssistant
	case "system":
		return openai.ChatMessageRoleSystem
	default:
		return openai.ChatMessageRoleUser
	}
}

// describe turns API errors into short messages suitable for display.
func describe(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("authentication failed: %s: %w", apiErr.Message, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("rate limited by provider: %w", err)
		}
		return fmt.Errorf("provider error: %s: %w", apiErr.Message, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("provider returned HTTP %d: %w", reqErr.HTTPStatusCode, err)
	}
	return err
}
