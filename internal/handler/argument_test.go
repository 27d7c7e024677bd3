package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

func TestDecodeJSON_AcceptsEchoedPosition(t *testing.T) {
	// Editors round-trip documents whole, so update requests echo the
	// position each block was served with. The field must decode cleanly
	// even though array order is what actually counts.
	body := `{
		"title": "Remote work",
		"blocks": [
			{"type": "premise", "content": "Remote work raises output.", "position": 3},
			{"type": "evidence", "content": "A 2024 study found a 13% gain.", "position": 0}
		]
	}`

	req := httptest.NewRequest("POST", "/api/arguments", strings.NewReader(body))

	var decoded struct {
		Title  string         `json:"title"`
		Blocks []blockRequest `json:"blocks"`
	}
	if err := decodeJSON(req, &decoded); err != nil {
		t.Fatalf("decodeJSON() error = %v", err)
	}
	if len(decoded.Blocks) != 2 {
		t.Fatalf("decoded %d blocks, want 2", len(decoded.Blocks))
	}

	// Client-supplied positions lose to array order.
	blocks := toBlocks(decoded.Blocks)
	for i, b := range blocks {
		if b.Position != i {
			t.Errorf("blocks[%d].Position = %d, want %d", i, b.Position, i)
		}
	}
	if blocks[0].Type != domain.BlockPremise {
		t.Errorf("blocks[0].Type = %q, want %q", blocks[0].Type, domain.BlockPremise)
	}
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	body := `{"title": "x", "owner_id": "someone-else"}`
	req := httptest.NewRequest("POST", "/api/arguments", strings.NewReader(body))

	var decoded struct {
		Title string `json:"title"`
	}
	err := decodeJSON(req, &decoded)
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("decodeJSON() error code = %q, want %q", domain.ErrorCode(err), domain.EINVALID)
	}
}

func TestToBlocks_ParsesOptionalIDs(t *testing.T) {
	known := uuid.New()
	blocks := toBlocks([]blockRequest{
		{ID: known.String(), Type: "premise", Content: "a"},
		{Type: "evidence", Content: "b"},
	})

	if blocks[0].ID != known {
		t.Errorf("blocks[0].ID = %v, want %v", blocks[0].ID, known)
	}
	if blocks[1].ID != uuid.Nil {
		t.Errorf("blocks[1].ID = %v, want zero UUID", blocks[1].ID)
	}
}
