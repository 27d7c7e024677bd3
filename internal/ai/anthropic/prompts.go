package anthropic

import (
	"fmt"
	"strings"

	"github.com/jtmorrow/arguably/internal/ai"
	"github.com/jtmorrow/arguably/internal/domain"
)

// blockGuidance tailors the rewrite instruction to the block's rhetorical role.
func blockGuidance(t domain.BlockType) string {
	switch t {
	case domain.BlockPremise:
		return "Make the premise precise and falsifiable. Remove hedging and unstated assumptions."
	case domain.BlockConclusion:
		return "Make the conclusion follow clearly from the premises. State it in one or two assertive sentences."
	case domain.BlockEvidence:
		return "Sharpen the evidence: be specific about sources, numbers, and how it supports the claim."
	case domain.BlockObjection:
		return "Steelman the objection: present the strongest version of the opposing view."
	case domain.BlockRebuttal:
		return "Address the objection directly. Concede what is true and refute what is not."
	default:
		return "Improve the clarity and persuasiveness of the text."
	}
}

// buildImprovePrompt builds the user prompt for a block improvement request.
func buildImprovePrompt(blockType domain.BlockType, input string, context []ai.ContextBlock) string {
	var b strings.Builder

	b.WriteString("You are an expert in argumentation and rhetoric helping a user improve one block of a structured argument.\n\n")

	if len(context) > 0 {
		b.WriteString("The argument so far:\n")
		for _, cb := range context {
			fmt.Fprintf(&b, "[%s] %s\n", cb.Type, cb.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Rewrite the following %s. %s\n\n", blockType, blockGuidance(blockType))
	b.WriteString("Respond with ONLY the rewritten text. No preamble, no quotation marks, no commentary.\n\n")
	fmt.Fprintf(&b, "Text to rewrite:\n%s", input)

	return b.String()
}

// buildAnalyzePrompt builds the user prompt for a full-argument analysis.
// The response contract is a single JSON object; parseAnalysis enforces it.
func buildAnalyzePrompt(title string, blocks []ai.ContextBlock) string {
	var b strings.Builder

	b.WriteString("You are an expert in logic and argumentation. Analyze the following structured argument.\n\n")
	if title != "" {
		fmt.Fprintf(&b, "Title: %s\n\n", title)
	}
	b.WriteString("Blocks, in order:\n")
	for i, cb := range blocks {
		fmt.Fprintf(&b, "%d. [%s] %s\n", i, cb.Type, cb.Content)
	}

	b.WriteString(`
Respond with ONLY a JSON object in exactly this shape, no markdown fences:
{
  "fallacies": [{"name": "...", "description": "...", "block_index": 0}],
  "suggestions": ["..."],
  "strength": 72.5,
  "grade": "B",
  "feedback": "..."
}

Rules:
- "fallacies": logical fallacies actually present; use block_index -1 for ones spanning the whole argument. Empty array if none.
- "suggestions": concrete improvements, most important first.
- "strength": overall strength score from 0 to 100.
- "grade": letter grade from A+ to F.
- "feedback": two to four sentences of overall feedback.
`)

	return b.String()
}
