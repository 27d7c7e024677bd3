// Package handler contains the HTTP handlers for the Arguably API.
//
// This file implements argument document CRUD. Creating a document is
// credit-gated; the response carries the fresh balance so the client can
// refresh its counters without a second request.
//
// Routes (all require auth):
//   - POST   /api/arguments      -> HandleCreate
//   - GET    /api/arguments      -> HandleList
//   - GET    /api/arguments/{id} -> HandleGet
//   - PUT    /api/arguments/{id} -> HandleUpdate
//   - DELETE /api/arguments/{id} -> HandleDelete
package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
	"github.com/jtmorrow/arguably/internal/middleware"
	"github.com/jtmorrow/arguably/internal/service"
)

// ArgumentHandler handles argument document endpoints.
type ArgumentHandler struct {
	arguments service.ArgumentService
	logger    *slog.Logger
}

// NewArgumentHandler creates a new ArgumentHandler.
func NewArgumentHandler(arguments service.ArgumentService, logger *slog.Logger) *ArgumentHandler {
	return &ArgumentHandler{
		arguments: arguments,
		logger:    logger,
	}
}

// blockRequest is the API shape of a block. Clients may echo back the
// position they received, but array order is authoritative: toBlocks
// overwrites Position with the array index.
type blockRequest struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Content  string `json:"content"`
	Position int    `json:"position,omitempty"`
}

func toBlocks(in []blockRequest) []domain.Block {
	out := make([]domain.Block, 0, len(in))
	for i, b := range in {
		var id uuid.UUID
		if b.ID != "" {
			id, _ = uuid.Parse(b.ID)
		}
		out = append(out, domain.Block{
			ID:       id,
			Type:     domain.BlockType(b.Type),
			Content:  b.Content,
			Position: i,
		})
	}
	return out
}

// HandleCreate saves a new argument document.
func (h *ArgumentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	var req struct {
		Title  string         `json:"title"`
		Blocks []blockRequest `json:"blocks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	arg, balance, err := h.arguments.Create(r.Context(), user, domain.CreateArgumentParams{
		OwnerID: user.ID,
		Title:   req.Title,
		Blocks:  toBlocks(req.Blocks),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"argument": arg,
		"balance":  balance,
	})
}

// HandleList returns the user's arguments, newest first.
func (h *ArgumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	args, err := h.arguments.List(r.Context(), user)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"arguments": args,
	})
}

// HandleGet returns one argument.
func (h *ArgumentHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, r, h.logger, "Invalid argument ID")
		return
	}

	arg, err := h.arguments.Get(r.Context(), user, id)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"argument": arg,
	})
}

// HandleUpdate replaces an argument's title and blocks.
func (h *ArgumentHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, r, h.logger, "Invalid argument ID")
		return
	}

	var req struct {
		Title  string         `json:"title"`
		Blocks []blockRequest `json:"blocks"`
	}
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	arg, err := h.arguments.Update(r.Context(), user, domain.UpdateArgumentParams{
		ID:      id,
		OwnerID: user.ID,
		Title:   req.Title,
		Blocks:  toBlocks(req.Blocks),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"argument": arg,
	})
}

// HandleDelete removes an argument and releases its saved-document slot.
func (h *ArgumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, r, h.logger, "Invalid argument ID")
		return
	}

	if err := h.arguments.Delete(r.Context(), user, id); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
