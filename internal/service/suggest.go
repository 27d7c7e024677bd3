// Package service contains the business logic layer.
//
// This file implements the AI suggestion orchestrator: credit pre-check,
// provider call, and result-dependent consumption as one user-facing
// operation. The three steps are deliberately not a single transaction —
// the provider call is unavoidable latency between check and consume — so
// the guarded consume remains the only enforcement point, and a consume
// that loses the race after content was generated is flagged rather than
// charged.
package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jtmorrow/arguably/internal/ai"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/metrics"
)

// =============================================================================
// Parameters and Results
// =============================================================================

// ImproveBlockParams contains the parameters for a block improvement.
type ImproveBlockParams struct {
	BlockType     domain.BlockType
	Content       string         // Current block content, possibly carrying a prior improvement
	ContextBlocks []domain.Block // Prior blocks of the argument, in order
}

// ImproveBlockResult is returned to the caller for UI refresh.
type ImproveBlockResult struct {
	Content     string         // Full block content with the improvement applied
	Improvement string         // Just the generated improvement text
	Balance     domain.Balance // Fresh balance after consumption
	// ConsumeFailed is set when the balance raced to zero between the
	// eligibility check and consumption. The content is still delivered and
	// the user is not charged; the flag exists for observability.
	ConsumeFailed bool
}

// AnalyzeArgumentParams contains the parameters for a full-argument analysis.
type AnalyzeArgumentParams struct {
	Title  string
	Blocks []domain.Block
}

// AnalyzeArgumentResult is returned to the caller for UI refresh.
type AnalyzeArgumentResult struct {
	Analysis      *ai.Analysis
	Balance       domain.Balance
	ConsumeFailed bool
}

// =============================================================================
// Interface Definition
// =============================================================================

// SuggestionService orchestrates credit-gated AI suggestions.
type SuggestionService interface {
	// ImproveBlock rewrites one block's content, consuming a basic credit
	// on a delivered result. A prior improvement annotation on the content
	// is replaced, never stacked.
	ImproveBlock(ctx context.Context, user *domain.User, params ImproveBlockParams) (*ImproveBlockResult, error)

	// AnalyzeArgument evaluates a whole argument (two or more blocks),
	// consuming an advanced credit on a delivered result.
	AnalyzeArgument(ctx context.Context, user *domain.User, params AnalyzeArgumentParams) (*AnalyzeArgumentResult, error)
}

// =============================================================================
// Implementation
// =============================================================================

type suggestionService struct {
	credits  CreditService
	provider ai.Provider
	logger   *slog.Logger
}

// NewSuggestionService creates a new SuggestionService.
func NewSuggestionService(credits CreditService, provider ai.Provider, logger *slog.Logger) SuggestionService {
	return &suggestionService{
		credits:  credits,
		provider: provider,
		logger:   logger,
	}
}

// ImproveBlock implements the check -> generate -> consume sequence for a
// single block rewrite.
func (s *suggestionService) ImproveBlock(ctx context.Context, user *domain.User, params ImproveBlockParams) (*ImproveBlockResult, error) {
	const op = "suggest.improve_block"

	// Content validation comes before any credit work.
	if !params.BlockType.Valid() {
		return nil, domain.Invalid(op, "Unknown block type")
	}
	input := domain.StripImprovement(params.Content)
	if strings.TrimSpace(input) == "" {
		return nil, domain.Invalid(op, "Block content is empty")
	}

	// Step 1: eligibility pre-check. A fast-path hint only; the guarded
	// consume below is authoritative.
	if err := s.credits.CheckEligible(ctx, user, domain.CreditBasic); err != nil {
		return nil, err
	}

	// Step 2: the external completion call. No credit has been consumed
	// yet, so any failure here costs the user nothing.
	improvement, err := s.provider.ImproveBlock(ctx, ai.ImproveParams{
		BlockType:     params.BlockType,
		InputText:     input,
		ContextBlocks: toContextBlocks(params.ContextBlocks),
		UserID:        user.ID,
	})
	if err != nil {
		return nil, s.mapProviderError(op, err)
	}
	if strings.TrimSpace(improvement.Content) == "" {
		metrics.AIRequests.WithLabelValues("improve", "empty").Inc()
		return nil, domain.Errorf(domain.EAIEMPTY, op, "The AI returned an empty suggestion. Please try again.")
	}
	s.recordUsage("improve", improvement.Usage)

	// Step 3: consume only now that a valid result exists.
	result := &ImproveBlockResult{
		Content:     domain.ApplyImprovement(params.Content, improvement.Content),
		Improvement: improvement.Content,
	}
	result.Balance, result.ConsumeFailed = s.consumeDelivered(ctx, user, domain.CreditBasic, op)
	return result, nil
}

// AnalyzeArgument implements the same sequence for a full-argument analysis,
// drawing from the advanced counter.
func (s *suggestionService) AnalyzeArgument(ctx context.Context, user *domain.User, params AnalyzeArgumentParams) (*AnalyzeArgumentResult, error) {
	const op = "suggest.analyze_argument"

	// A one-block "argument" is rejected as content validation, before any
	// credit check, so the caller can distinguish it from a credit problem.
	if len(params.Blocks) < 2 {
		return nil, domain.Invalid(op, "Analysis requires at least two blocks")
	}
	for _, b := range params.Blocks {
		if !b.Type.Valid() {
			return nil, domain.Invalid(op, "Unknown block type")
		}
	}

	if err := s.credits.CheckEligible(ctx, user, domain.CreditAdvanced); err != nil {
		return nil, err
	}

	analysis, err := s.provider.AnalyzeArgument(ctx, ai.AnalyzeParams{
		Title:  params.Title,
		Blocks: toContextBlocks(params.Blocks),
		UserID: user.ID,
	})
	if err != nil {
		return nil, s.mapProviderError(op, err)
	}
	if analysis.Feedback == "" || analysis.Grade == "" {
		metrics.AIRequests.WithLabelValues("analyze", "empty").Inc()
		return nil, domain.Errorf(domain.EAIEMPTY, op, "The AI returned an empty analysis. Please try again.")
	}
	s.recordUsage("analyze", analysis.Usage)

	result := &AnalyzeArgumentResult{Analysis: analysis}
	result.Balance, result.ConsumeFailed = s.consumeDelivered(ctx, user, domain.CreditAdvanced, op)
	return result, nil
}

// consumeDelivered consumes a credit for a result that will be delivered
// regardless. A consume that fails because the balance raced to zero is
// non-fatal: the user keeps the content and is not charged, and the event
// is logged and counted for observability. Any balance mutation is
// authoritative even if the client has gone away.
func (s *suggestionService) consumeDelivered(ctx context.Context, user *domain.User, category domain.CreditCategory, op string) (domain.Balance, bool) {
	sub, err := s.credits.Consume(ctx, user, category)
	if err == nil {
		return domain.BalanceOf(sub), false
	}

	metrics.CreditConsumeFailures.WithLabelValues(string(category)).Inc()
	s.logger.Warn("Credit consume failed after delivery",
		"op", op,
		"user_id", user.ID,
		"category", category,
		"error_code", domain.ErrorCode(err),
	)

	// Best effort at a fresh balance for the response; zero values if the
	// store is unreachable too.
	var balance domain.Balance
	if sub, berr := s.credits.Balance(ctx, user); berr == nil {
		balance = domain.BalanceOf(sub)
	}
	return balance, true
}

// mapProviderError translates provider failures into the domain taxonomy.
// Nothing here consumes a credit.
func (s *suggestionService) mapProviderError(op string, err error) error {
	if ai.IsEmpty(err) {
		metrics.AIRequests.WithLabelValues(opKind(op), "empty").Inc()
		return domain.Wrap(err, domain.EAIEMPTY, op, "The AI returned an empty result. Please try again.")
	}
	metrics.AIRequests.WithLabelValues(opKind(op), "error").Inc()
	return domain.Wrap(err, domain.EAIDOWN, op, "The AI service is temporarily unavailable. Please try again.")
}

func opKind(op string) string {
	if strings.Contains(op, "analyze") {
		return "analyze"
	}
	return "improve"
}

func (s *suggestionService) recordUsage(kind string, usage ai.UsageInfo) {
	metrics.AIRequests.WithLabelValues(kind, "ok").Inc()
	metrics.AITokens.WithLabelValues("input").Add(float64(usage.InputTokens))
	metrics.AITokens.WithLabelValues("output").Add(float64(usage.OutputTokens))
}

func toContextBlocks(blocks []domain.Block) []ai.ContextBlock {
	out := make([]ai.ContextBlock, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, ai.ContextBlock{Type: b.Type, Content: b.Content})
	}
	return out
}
