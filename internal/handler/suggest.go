// Package handler contains the HTTP handlers for the Arguably API.
//
// This file implements the AI suggestion endpoints. Both responses carry the
// post-consumption balance and a consumeFailed flag: when the balance raced
// to zero after the content was generated, the content is still delivered
// and the user is not charged.
//
// Routes (all require auth):
//   - POST /api/suggest/improve -> HandleImprove
//   - POST /api/suggest/analyze -> HandleAnalyze
package handler

import (
	"log/slog"
	"net/http"

	"github.com/jtmorrow/arguably/internal/ai"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/middleware"
	"github.com/jtmorrow/arguably/internal/service"
)

// SuggestHandler handles AI suggestion endpoints.
type SuggestHandler struct {
	suggestions service.SuggestionService
	logger      *slog.Logger
}

// NewSuggestHandler creates a new SuggestHandler.
func NewSuggestHandler(suggestions service.SuggestionService, logger *slog.Logger) *SuggestHandler {
	return &SuggestHandler{
		suggestions: suggestions,
		logger:      logger,
	}
}

// HandleImprove rewrites one block's content. Costs one basic credit on a
// delivered result.
func (h *SuggestHandler) HandleImprove(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		BlockType     string         `json:"blockType"`
		Content       string         `json:"content"`
		ContextBlocks []blockRequest `json:"contextBlocks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.suggestions.ImproveBlock(r.Context(), user, service.ImproveBlockParams{
		BlockType:     domain.BlockType(req.BlockType),
		Content:       req.Content,
		ContextBlocks: toBlocks(req.ContextBlocks),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"content":       result.Content,
		"improvement":   result.Improvement,
		"balance":       result.Balance,
		"consumeFailed": result.ConsumeFailed,
	})
}

// fallacyResponse is the API shape of an identified fallacy.
type fallacyResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BlockIndex  int    `json:"blockIndex"`
}

// analysisResponse is the API shape of a full-argument analysis.
type analysisResponse struct {
	Fallacies   []fallacyResponse `json:"fallacies"`
	Suggestions []string          `json:"suggestions"`
	Strength    float64           `json:"strength"`
	Grade       string            `json:"grade"`
	Feedback    string            `json:"feedback"`
}

func toAnalysisResponse(a *ai.Analysis) analysisResponse {
	fallacies := make([]fallacyResponse, 0, len(a.Fallacies))
	for _, f := range a.Fallacies {
		fallacies = append(fallacies, fallacyResponse{
			Name:        f.Name,
			Description: f.Description,
			BlockIndex:  f.BlockIndex,
		})
	}
	suggestions := a.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return analysisResponse{
		Fallacies:   fallacies,
		Suggestions: suggestions,
		Strength:    a.Strength,
		Grade:       a.Grade,
		Feedback:    a.Feedback,
	}
}

// HandleAnalyze evaluates a whole argument. Costs one advanced credit on a
// delivered result. Requires at least two blocks.
func (h *SuggestHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Title  string         `json:"title"`
		Blocks []blockRequest `json:"blocks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	result, err := h.suggestions.AnalyzeArgument(r.Context(), user, service.AnalyzeArgumentParams{
		Title:  req.Title,
		Blocks: toBlocks(req.Blocks),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":      toAnalysisResponse(result.Analysis),
		"balance":       result.Balance,
		"consumeFailed": result.ConsumeFailed,
	})
}
