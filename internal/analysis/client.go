package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"NewsLens/internal/config"
)

// Task identifies one of the model call shapes the client knows how to
// prompt and parse.
type Task string

const (
	TaskCategorize Task = "categorize"
	TaskSignals    Task = "signals"
	TaskBias       Task = "bias"
	TaskSummarize  Task = "summarize"
)

var (
	// ErrUnavailable marks endpoint failures that are not timeouts:
	// refused connections, non-200 statuses, malformed envelopes.
	ErrUnavailable = errors.New("inference unavailable")

	// ErrTimeout marks requests that ran out of time.
	ErrTimeout = errors.New("inference timeout")
)

// fallbackModel is used when discovery against /v1/models fails and no
// model was configured.
const fallbackModel = "mistralai/mistral-7b-instruct-v0.3"

const probeTimeout = 5 * time.Second

// Client talks to a local OpenAI-compatible inference endpoint (LM
// Studio and similar). Requests go through a shared rate limiter so
// concurrent workers cannot flood the model.
type Client struct {
	endpoint    string
	model       string
	http        *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	maxTokens   int
	sumTokens   int
	temperature float64
	prompts     promptConfig
}

// NewClient creates a reusable HTTP client for the configured endpoint.
func NewClient(cfg config.InferenceConfig, logger *slog.Logger) *Client {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	endpoint = strings.TrimSuffix(endpoint, "/")
	endpoint = strings.TrimSuffix(endpoint, "/v1")

	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), burst)
	}

	return &Client{
		endpoint:    endpoint,
		model:       strings.TrimSpace(cfg.Model),
		http:        &http.Client{Timeout: timeout},
		limiter:     limiter,
		logger:      logger,
		maxTokens:   cfg.MaxTokens,
		sumTokens:   cfg.SummaryMaxTokens,
		temperature: cfg.Temperature,
		prompts: promptConfig{
			AnalysisRunes: cfg.PromptRunes,
			SummaryRunes:  cfg.SummaryPromptRunes,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Infer sends one prompt for the given task and returns the raw model
// output. Some local models only accept user/assistant roles, so the
// instruction preamble travels inside a single user message.
func (c *Client) Infer(ctx context.Context, task Task, title, content string) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("await rate limiter: %w", err)
		}
	}

	payload := completionRequest{
		Model:       c.resolvedModel(),
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(task, title, content, c.prompts)}},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if task == TaskSummarize {
		payload.MaxTokens = c.sumTokens
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: endpoint returned %s", ErrUnavailable, resp.Status)
	}

	var completion completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("%w: decode completion: %v", ErrUnavailable, err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: completion carried no choices", ErrUnavailable)
	}

	return strings.TrimSpace(completion.Choices[0].Message.Content), nil
}

// Available reports whether the endpoint answers its model list with at
// least one loaded model.
func (c *Client) Available(ctx context.Context) bool {
	ids, err := c.listModels(ctx)
	if err != nil {
		c.logger.Debug("inference endpoint probe failed", "error", err)
		return false
	}
	return len(ids) > 0
}

// ResolveModel fixes the model used for completions: the configured one
// when set, otherwise the first model the endpoint reports, otherwise a
// known default. Meant to run once at startup, before concurrent use.
func (c *Client) ResolveModel(ctx context.Context) string {
	if c.model != "" {
		return c.model
	}

	ids, err := c.listModels(ctx)
	if err == nil && len(ids) > 0 {
		c.model = ids[0]
		return c.model
	}
	if err != nil {
		c.logger.Warn("model discovery failed, using fallback", "fallback", fallbackModel, "error", err)
	}
	c.model = fallbackModel
	return c.model
}

func (c *Client) resolvedModel() string {
	if c.model != "" {
		return c.model
	}
	return fallbackModel
}

func (c *Client) listModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: endpoint returned %s", ErrUnavailable, resp.Status)
	}

	var models modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("%w: decode model list: %v", ErrUnavailable, err)
	}

	ids := make([]string, 0, len(models.Data))
	for _, m := range models.Data {
		if m.ID != "" {
			ids = append(ids, m.ID)
		}
	}
	return ids, nil
}

// classifyTransport folds transport errors into the package sentinels.
// Plain context cancellation passes through unchanged so callers can
// distinguish shutdown from endpoint trouble.
func classifyTransport(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("completion request: %w", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
