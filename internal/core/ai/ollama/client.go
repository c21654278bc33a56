package ollama

import (
	"context"
	"fmt"
	"strings"

	"alercheck-api/internal/infrastructure/config"
	"alercheck-api/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Client talks to a locally hosted Ollama server.
type Client struct {
	config *config.OllamaConfig
	client *resty.Client
}

// APIError is a transport-level failure: the backend answered with a
// non-success status. Body carries whatever diagnostic text it returned.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ollama returned status %d: %s", e.StatusCode, e.Body)
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Stream   bool          `json:"stream"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// NewClient creates a client for the configured Ollama server. The timeout
// applies to every call; a hung backend cannot hang a check forever.
func NewClient(cfg *config.OllamaConfig) *Client {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		config: cfg,
		client: client,
	}
}

// Generate runs a text-only prompt through /api/generate and returns the
// model's raw reply text.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	common.LogInfo("sending generate request to ollama",
		zap.String("model", model),
		zap.Int("prompt_length", len(prompt)),
	)

	var result generateResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&generateRequest{Model: model, Prompt: prompt, Stream: false}).
		SetResult(&result).
		Post("/api/generate")

	if err != nil {
		common.LogError("ollama generate request failed",
			zap.Error(err),
			zap.String("model", model),
		)
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}

	if !resp.IsSuccess() {
		common.LogError("ollama generate returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", model),
		)
		return "", &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	content := strings.TrimSpace(result.Response)
	common.LogInfo("ollama generate succeeded",
		zap.String("model", model),
		zap.Int("content_length", len(content)),
	)

	return content, nil
}

// Chat runs a multimodal prompt through /api/chat, attaching the pure base64
// image payload, and returns the model's raw reply text.
func (c *Client) Chat(ctx context.Context, model, prompt, imageBase64 string) (string, error) {
	common.LogInfo("sending chat request to ollama",
		zap.String("model", model),
		zap.Int("prompt_length", len(prompt)),
		zap.Int("image_length", len(imageBase64)),
	)

	req := &chatRequest{
		Model:  model,
		Stream: false,
		Messages: []chatMessage{
			{
				Role:    "user",
				Content: prompt,
				Images:  []string{imageBase64},
			},
		},
	}

	var result chatResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/api/chat")

	if err != nil {
		common.LogError("ollama chat request failed",
			zap.Error(err),
			zap.String("model", model),
		)
		return "", fmt.Errorf("failed to call ollama: %w", err)
	}

	if !resp.IsSuccess() {
		common.LogError("ollama chat returned error status",
			zap.Int("status_code", resp.StatusCode()),
			zap.String("model", model),
		)
		return "", &APIError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}

	content := strings.TrimSpace(result.Message.Content)
	common.LogInfo("ollama chat succeeded",
		zap.String("model", model),
		zap.Int("content_length", len(content)),
	)

	return content, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.GetClient().CloseIdleConnections()
	return nil
}
