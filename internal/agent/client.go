package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// AIClient is the model backend the generation adapter calls.
type AIClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteJSON(ctx context.Context, prompt string) (string, error)
}

const jsonSystemPrompt = "You are a narrative generation assistant that responds with valid JSON only. Do not include markdown formatting, explanations, or any text outside of the JSON object."

// Client talks to an Anthropic- or OpenAI-compatible completion API.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	maxTokens  int
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	apiType    string // "anthropic" or "openai"
	logger     *slog.Logger
}

type Option func(*Client)

func WithRetry(maxRetries int) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
	}
}

func WithAPIConfig(baseURL, model string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
		c.model = model
		if strings.Contains(baseURL, "openai") {
			c.apiType = "openai"
		} else {
			c.apiType = "anthropic"
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Client) {
		c.maxTokens = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:    apiKey,
		baseURL:   "https://api.anthropic.com/v1",
		model:     "claude-3-5-sonnet-20241022",
		maxTokens: 8192,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		maxRetries: 3,
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
		apiType:    "anthropic",
		logger:     slog.Default().With("component", "ai_client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("AI client initialized",
		"api_type", c.apiType,
		"base_url", c.baseURL,
		"model", c.model,
		"max_retries", c.maxRetries)

	return c
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, false)
}

func (c *Client) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return c.complete(ctx, prompt, true)
}

func (c *Client) complete(ctx context.Context, prompt string, forceJSON bool) (string, error) {
	requestID := fmt.Sprintf("api_%d", time.Now().UnixNano())
	startTime := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait failed: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		attemptStart := time.Now()
		c.logger.Debug("attempting generation request",
			"request_id", requestID,
			"attempt", attempt,
			"prompt_length", len(prompt),
			"force_json", forceJSON,
			"api_type", c.apiType,
			"model", c.model)

		response, err := c.doRequest(ctx, prompt, forceJSON)
		if err == nil {
			c.logger.Info("generation request successful",
				"request_id", requestID,
				"attempt", attempt,
				"duration_ms", time.Since(attemptStart).Milliseconds(),
				"response_length", len(response))
			return response, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		c.logger.Warn("generation request failed, will retry",
			"request_id", requestID,
			"attempt", attempt,
			"duration_ms", time.Since(attemptStart).Milliseconds(),
			"error", err)
	}

	c.logger.Error("generation request failed after max retries",
		"request_id", requestID,
		"max_retries", c.maxRetries,
		"total_duration_ms", time.Since(startTime).Milliseconds(),
		"last_error", lastErr)

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, prompt string, forceJSON bool) (string, error) {
	if c.apiType == "openai" {
		return c.doOpenAIRequest(ctx, prompt, forceJSON)
	}
	return c.doAnthropicRequest(ctx, prompt, forceJSON)
}

func (c *Client) doOpenAIRequest(ctx context.Context, prompt string, forceJSON bool) (string, error) {
	messages := []map[string]string{
		{"role": "user", "content": prompt},
	}
	if forceJSON {
		messages = append([]map[string]string{
			{"role": "system", "content": jsonSystemPrompt},
		}, messages...)
	}

	requestBody := map[string]interface{}{
		"model":      c.model,
		"messages":   messages,
		"max_tokens": c.maxTokens,
	}
	if forceJSON {
		requestBody["response_format"] = map[string]string{"type": "json_object"}
	}

	respBody, err := c.post(ctx, "/chat/completions", requestBody, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	})
	if err != nil {
		return "", err
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	c.logger.Debug("openai request completed",
		"prompt_tokens", response.Usage.PromptTokens,
		"completion_tokens", response.Usage.CompletionTokens)

	return response.Choices[0].Message.Content, nil
}

func (c *Client) doAnthropicRequest(ctx context.Context, prompt string, forceJSON bool) (string, error) {
	requestBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens": c.maxTokens,
	}
	if forceJSON {
		requestBody["system"] = jsonSystemPrompt
	}

	respBody, err := c.post(ctx, "/messages", requestBody, func(req *http.Request) {
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")
	})
	if err != nil {
		return "", err
	}

	var response struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	c.logger.Debug("anthropic request completed",
		"input_tokens", response.Usage.InputTokens,
		"output_tokens", response.Usage.OutputTokens)

	return response.Content[0].Text, nil
}

func (c *Client) post(ctx context.Context, endpoint string, requestBody any, setAuth func(*http.Request)) ([]byte, error) {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}
