package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jtmorrow/arguably/internal/service"
	"github.com/jtmorrow/arguably/internal/worker"
)

// CleanupSessionsHandler deletes expired sessions. Sessions are validated on
// read, so this is hygiene, not enforcement: it keeps the sessions table from
// growing without bound.
type CleanupSessionsHandler struct {
	users  service.UserService
	logger *slog.Logger
}

// NewCleanupSessionsHandler creates a new handler for the session cleanup job.
func NewCleanupSessionsHandler(users service.UserService, logger *slog.Logger) *CleanupSessionsHandler {
	return &CleanupSessionsHandler{
		users:  users,
		logger: logger,
	}
}

// Type returns the job type identifier.
func (h *CleanupSessionsHandler) Type() string {
	return worker.JobTypeCleanupSessions
}

// Handle removes all expired sessions.
func (h *CleanupSessionsHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.CleanupSessionsPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	deleted, err := h.users.DeleteExpiredSessions(ctx)
	if err != nil {
		return fmt.Errorf("delete expired sessions: %w", err)
	}

	h.logger.Info("Expired sessions cleaned up", "deleted", deleted)
	return nil
}
