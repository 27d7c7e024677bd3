package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/jtmorrow/arguably/internal/domain"
)

// maxRequestBody caps JSON request bodies at 1MB. Argument documents are
// text; anything bigger is abuse, not content.
const maxRequestBody = 1 << 20

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes the request body into dst, rejecting unknown fields and
// oversized bodies.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.Wrap(err, domain.EINVALID, "", "Invalid request body")
	}
	return nil
}

// badRequest is a shorthand for malformed input errors.
func badRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, message string) {
	ErrorResponse(w, r, logger, domain.Invalid("", message))
}
