package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBlockTypeValid(t *testing.T) {
	tests := []struct {
		name      string
		blockType BlockType
		want      bool
	}{
		{"premise", BlockPremise, true},
		{"conclusion", BlockConclusion, true},
		{"evidence", BlockEvidence, true},
		{"objection", BlockObjection, true},
		{"rebuttal", BlockRebuttal, true},
		{"unknown", BlockType("thesis"), false},
		{"empty", BlockType(""), false},
		{"wrong case", BlockType("Premise"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.blockType.Valid())
		})
	}
}

func TestStripImprovement(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"no marker", "All humans are mortal.", "All humans are mortal."},
		{"empty", "", ""},
		{
			name:    "marker with improvement",
			content: "original" + ImprovementMarker + "improved",
			want:    "original",
		},
		{
			name:    "marker with empty original",
			content: ImprovementMarker + "improved",
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripImprovement(tt.content))
		})
	}
}

func TestApplyImprovement(t *testing.T) {
	t.Run("plain content", func(t *testing.T) {
		got := ApplyImprovement("original", "better")
		assert.Equal(t, "original"+ImprovementMarker+"better", got)
	})

	t.Run("replaces prior improvement instead of stacking", func(t *testing.T) {
		once := ApplyImprovement("original", "first")
		twice := ApplyImprovement(once, "second")
		assert.Equal(t, "original"+ImprovementMarker+"second", twice)
	})
}
