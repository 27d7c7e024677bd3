// Package ai defines the text-generation boundary for argument suggestions.
//
// The provider is an opaque request/response service: the orchestrator in
// the service layer owns all credit accounting, and a provider error or an
// empty response must never cost the user a credit.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

// Provider defines the interface for AI-powered argument assistance.
type Provider interface {
	// ImproveBlock rewrites a single block's content.
	ImproveBlock(ctx context.Context, params ImproveParams) (*Improvement, error)

	// AnalyzeArgument evaluates a whole argument for fallacies and strength.
	AnalyzeArgument(ctx context.Context, params AnalyzeParams) (*Analysis, error)
}

// ImproveParams contains parameters for a block improvement request.
type ImproveParams struct {
	BlockType     domain.BlockType // Rhetorical role of the block being improved
	InputText     string           // The block content, improvement marker already stripped
	ContextBlocks []ContextBlock   // Prior blocks of the argument, in order
	UserID        uuid.UUID        // For usage tracking
}

// AnalyzeParams contains parameters for a full-argument analysis request.
type AnalyzeParams struct {
	Title  string
	Blocks []ContextBlock // All blocks of the argument, in order; at least two
	UserID uuid.UUID
}

// ContextBlock is the provider-facing shape of an argument block.
type ContextBlock struct {
	Type    domain.BlockType `json:"type"`
	Content string           `json:"content"`
}

// Improvement is the response to a block improvement request.
// Content is the rewritten block text; an empty Content is treated as an
// empty result by the orchestrator.
type Improvement struct {
	Content string
	Usage   UsageInfo
}

// Analysis is the structured response to a full-argument analysis.
// A response missing Feedback or a grade is treated as empty.
type Analysis struct {
	Fallacies   []Fallacy
	Suggestions []string
	Strength    float64 // 0-100 numeric strength score
	Grade       string  // Letter grade: A+ through F
	Feedback    string  // Free-text overall feedback
	Usage       UsageInfo
}

// Fallacy is one identified logical fallacy.
type Fallacy struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BlockIndex  int    `json:"blockIndex"` // Index into the submitted blocks, -1 if general
}

// UsageInfo tracks API usage for monitoring.
type UsageInfo struct {
	Model        string
	InputTokens  int
	OutputTokens int
	Duration     time.Duration
}

// ProviderConfig contains common configuration for AI providers.
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error values for AI provider operations
var (
	// ErrRateLimit indicates the API rate limit has been exceeded
	ErrRateLimit = errors.New("ai provider rate limit exceeded")

	// ErrTimeout indicates the request timed out
	ErrTimeout = errors.New("ai request timed out")

	// ErrUnavailable indicates the AI service is temporarily unavailable
	ErrUnavailable = errors.New("ai service temporarily unavailable")

	// ErrUnauthorized indicates invalid API credentials
	ErrUnauthorized = errors.New("ai provider authentication failed")

	// ErrEmptyResult indicates a structurally valid response carried no content
	ErrEmptyResult = errors.New("ai response was empty")
)

// IsRetryable returns true if the error is a transient error that can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrUnavailable)
}

// IsEmpty returns true if the error marks an empty or structurally invalid response.
func IsEmpty(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}

// WrapError wraps an error with context about the AI operation.
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
