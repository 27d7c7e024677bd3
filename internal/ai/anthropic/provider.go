// Package anthropic implements the ai.Provider interface against
// Anthropic's Messages API.
package anthropic

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

	"github.com/jtmorrow/arguably/internal/ai"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-3-5-sonnet-20241022"

	// MaxInputChars caps the text sent per request. Arguments are short-form
	// prose; anything past this is almost certainly pasted noise.
	MaxInputChars = 50_000
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements the ai.Provider interface using Anthropic's Claude API
type Provider struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		logger: logger,
	}, nil
}

// ImproveBlock rewrites a single argument block using Claude.
func (p *Provider) ImproveBlock(ctx context.Context, params ai.ImproveParams) (*ai.Improvement, error) {
	startTime := time.Now()

	if strings.TrimSpace(params.InputText) == "" {
		return nil, ai.WrapError("improve block", fmt.Errorf("input text is empty"))
	}
	if len(params.InputText) > MaxInputChars {
		return nil, ai.WrapError("improve block", fmt.Errorf("input text exceeds %d characters", MaxInputChars))
	}

	prompt := buildImprovePrompt(params.BlockType, params.InputText, params.ContextBlocks)
	resp, err := p.complete(ctx, prompt, 1024)
	if err != nil {
		return nil, ai.WrapError("improve block", err)
	}

	content := strings.TrimSpace(textOf(resp))
	if content == "" {
		return nil, ai.WrapError("improve block", ai.ErrEmptyResult)
	}

	return &ai.Improvement{
		Content: content,
		Usage: ai.UsageInfo{
			Model:        p.config.Model,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			Duration:     time.Since(startTime),
		},
	}, nil
}

// AnalyzeArgument evaluates a whole argument using Claude, expecting a JSON
// object with fallacies, suggestions, strength score, grade, and feedback.
func (p *Provider) AnalyzeArgument(ctx context.Context, params ai.AnalyzeParams) (*ai.Analysis, error) {
	startTime := time.Now()

	if len(params.Blocks) < 2 {
		return nil, ai.WrapError("analyze argument", fmt.Errorf("at least two blocks are required"))
	}

	prompt := buildAnalyzePrompt(params.Title, params.Blocks)
	resp, err := p.complete(ctx, prompt, 4096)
	if err != nil {
		return nil, ai.WrapError("analyze argument", err)
	}

	analysis, err := parseAnalysis(textOf(resp))
	if err != nil {
		return nil, ai.WrapError("analyze argument", err)
	}

	analysis.Usage = ai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		Duration:     time.Since(startTime),
	}
	return analysis, nil
}

// complete sends a single-message completion request and retries transient failures.
func (p *Provider) complete(ctx context.Context, prompt string, maxTokens int) (*apiResponse, error) {
	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: maxTokens,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	return p.executeWithRetry(ctx, bodyBytes)
}

// executeWithRetry executes the request with exponential backoff on
// transient errors. The body is rebuilt per attempt.
func (p *Provider) executeWithRetry(ctx context.Context, body []byte) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", APIBaseURL, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.config.APIKey)
		req.Header.Set("anthropic-version", APIVersion)

		resp, err := p.executeRequest(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !ai.IsRetryable(err) {
			return nil, err
		}
		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(req *http.Request) (*apiResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors and client timeouts are retryable
		return nil, ai.ErrUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to provider errors
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return ai.ErrUnauthorized
	case http.StatusTooManyRequests:
		return ai.ErrRateLimit
	case http.StatusRequestTimeout:
		return ai.ErrTimeout
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ai.ErrUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// textOf returns the first text content of a response, or "".
func textOf(resp *apiResponse) string {
	for _, content := range resp.Content {
		if content.Type == "text" {
			return content.Text
		}
	}
	return ""
}

// parseAnalysis parses Claude's JSON analysis output into an ai.Analysis.
// A response that cannot be parsed, or that parses but lacks its required
// fields, is surfaced as ErrEmptyResult so the orchestrator never charges
// for it.
func parseAnalysis(text string) (*ai.Analysis, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ai.ErrEmptyResult
	}

	// The model occasionally wraps JSON in a code fence despite instructions.
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var output analysisOutput
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return nil, fmt.Errorf("parse analysis output: %w", ai.ErrEmptyResult)
	}

	if output.Feedback == "" || output.Grade == "" {
		return nil, ai.ErrEmptyResult
	}

	analysis := &ai.Analysis{
		Fallacies:   make([]ai.Fallacy, 0, len(output.Fallacies)),
		Suggestions: output.Suggestions,
		Strength:    clampStrength(output.Strength),
		Grade:       output.Grade,
		Feedback:    output.Feedback,
	}
	for _, f := range output.Fallacies {
		analysis.Fallacies = append(analysis.Fallacies, ai.Fallacy{
			Name:        f.Name,
			Description: f.Description,
			BlockIndex:  f.BlockIndex,
		})
	}
	return analysis, nil
}

func clampStrength(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []apiContentOutput `json:"content"`
	Model   string             `json:"model"`
	Usage   apiUsage           `json:"usage"`
}

type apiContentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// analysisOutput represents the JSON structure requested from Claude
type analysisOutput struct {
	Fallacies   []outputFallacy `json:"fallacies"`
	Suggestions []string        `json:"suggestions"`
	Strength    float64         `json:"strength"`
	Grade       string          `json:"grade"`
	Feedback    string          `json:"feedback"`
}

type outputFallacy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BlockIndex  int    `json:"block_index"`
}
