// Package mock provides a canned ai.Provider for development and tests.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jtmorrow/arguably/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger

	// Configurable responses for testing
	ImproveResponse *ai.Improvement
	ImproveError    error
	AnalyzeResponse *ai.Analysis
	AnalyzeError    error

	// Call tracking for testing
	ImproveCalls int
	AnalyzeCalls int
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// ImproveBlock returns a canned rewrite of the input text
func (p *Provider) ImproveBlock(ctx context.Context, params ai.ImproveParams) (*ai.Improvement, error) {
	p.ImproveCalls++

	if p.ImproveError != nil {
		return nil, p.ImproveError
	}
	if p.ImproveResponse != nil {
		return p.ImproveResponse, nil
	}

	return &ai.Improvement{
		Content: fmt.Sprintf("A sharper %s: %s", params.BlockType, params.InputText),
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  320,
			OutputTokens: 180,
			Duration:     150 * time.Millisecond,
		},
	}, nil
}

// AnalyzeArgument returns a canned structured analysis
func (p *Provider) AnalyzeArgument(ctx context.Context, params ai.AnalyzeParams) (*ai.Analysis, error) {
	p.AnalyzeCalls++

	if p.AnalyzeError != nil {
		return nil, p.AnalyzeError
	}
	if p.AnalyzeResponse != nil {
		return p.AnalyzeResponse, nil
	}

	return &ai.Analysis{
		Fallacies: []ai.Fallacy{
			{
				Name:        "Hasty generalization",
				Description: "The conclusion is drawn from a single example presented as evidence.",
				BlockIndex:  1,
			},
		},
		Suggestions: []string{
			"Add a second, independent piece of evidence for the main premise.",
			"State the conclusion before the objection so the rebuttal lands with context.",
		},
		Strength: 68,
		Grade:    "B-",
		Feedback: "The argument has a clear structure and a plausible premise, but its evidence base is thin. Strengthening the evidence block and tightening the rebuttal would raise the grade considerably.",
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  900,
			OutputTokens: 400,
			Duration:     250 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.ImproveCalls = 0
	p.AnalyzeCalls = 0
	p.ImproveResponse = nil
	p.ImproveError = nil
	p.AnalyzeResponse = nil
	p.AnalyzeError = nil
}
