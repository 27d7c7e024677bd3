// Package domain contains core business types and interfaces.
//
// This file defines argument documents and their ordered blocks. The block
// type is a closed enum: handlers and the AI layer switch over it rather
// than dispatching on free-form strings.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlockType identifies the rhetorical role of a block within an argument.
type BlockType string

const (
	BlockPremise    BlockType = "premise"
	BlockConclusion BlockType = "conclusion"
	BlockEvidence   BlockType = "evidence"
	BlockObjection  BlockType = "objection"
	BlockRebuttal   BlockType = "rebuttal"
)

// Valid checks if the block type is a known member.
func (b BlockType) Valid() bool {
	switch b {
	case BlockPremise, BlockConclusion, BlockEvidence, BlockObjection, BlockRebuttal:
		return true
	default:
		return false
	}
}

// ImprovementMarker separates a block's original content from an appended
// AI improvement. When content already carries a marker, the stale
// improvement is stripped before the new one is appended, so improvements
// never stack.
const ImprovementMarker = "\n\n--- AI Improvement ---\n"

// StripImprovement removes a prior AI improvement annotation from content,
// returning the original text unchanged when no marker is present.
func StripImprovement(content string) string {
	if i := strings.Index(content, ImprovementMarker); i >= 0 {
		return content[:i]
	}
	return content
}

// ApplyImprovement replaces any prior improvement annotation on content with
// the given one.
func ApplyImprovement(content, improvement string) string {
	return StripImprovement(content) + ImprovementMarker + improvement
}

// Block is one ordered unit of an argument document.
type Block struct {
	ID       uuid.UUID `json:"id"`
	Type     BlockType `json:"type"`
	Content  string    `json:"content"`
	Position int       `json:"position"`
}

// Argument is a titled, ordered sequence of blocks owned by a user.
//
// Saving a NEW argument is a credit-gated action bounded by the owner's
// saved document count against the tier allowance; updating an existing one
// is not gated.
type Argument struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"ownerId"`
	Title     string    `json:"title"`
	Blocks    []Block   `json:"blocks"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateArgumentParams contains the validated parameters for saving a new argument.
type CreateArgumentParams struct {
	OwnerID uuid.UUID
	Title   string
	Blocks  []Block
}

// UpdateArgumentParams contains parameters for updating an existing argument.
type UpdateArgumentParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Title   string
	Blocks  []Block
}
