package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jtmorrow/arguably/internal/domain"
)

// Blocks are stored as a JSONB column: the ordered sequence is an opaque
// document to SQL, and the core never queries inside it.

func scanArgument(row interface{ Scan(...interface{}) error }) (*domain.Argument, error) {
	var a domain.Argument
	var blocks []byte
	if err := row.Scan(&a.ID, &a.OwnerID, &a.Title, &blocks, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(blocks, &a.Blocks); err != nil {
		return nil, fmt.Errorf("decode argument blocks: %w", err)
	}
	return &a, nil
}

// CreateArgument inserts a new argument document.
func (q *Queries) CreateArgument(ctx context.Context, a *domain.Argument) (*domain.Argument, error) {
	blocks, err := json.Marshal(a.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode argument blocks: %w", err)
	}

	row := q.db.QueryRowContext(ctx, `
		INSERT INTO arguments (id, owner_id, title, blocks)
		VALUES ($1, $2, $3, $4)
		RETURNING id, owner_id, title, blocks, created_at, updated_at`,
		a.ID, a.OwnerID, a.Title, blocks)
	return scanArgument(row)
}

// GetArgumentByID retrieves an argument by primary key.
func (q *Queries) GetArgumentByID(ctx context.Context, id uuid.UUID) (*domain.Argument, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, blocks, created_at, updated_at
		FROM arguments WHERE id = $1`, id)
	return scanArgument(row)
}

// ListArgumentsByOwner returns a user's arguments, newest first.
func (q *Queries) ListArgumentsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Argument, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, owner_id, title, blocks, created_at, updated_at
		FROM arguments WHERE owner_id = $1
		ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var args []*domain.Argument
	for rows.Next() {
		a, err := scanArgument(rows)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	return args, rows.Err()
}

// UpdateArgument replaces an existing argument's title and blocks.
// The owner filter makes cross-user updates a no-row miss, not a data leak.
func (q *Queries) UpdateArgument(ctx context.Context, a *domain.Argument) (*domain.Argument, error) {
	blocks, err := json.Marshal(a.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode argument blocks: %w", err)
	}

	row := q.db.QueryRowContext(ctx, `
		UPDATE arguments
		SET title = $3, blocks = $4, updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING id, owner_id, title, blocks, created_at, updated_at`,
		a.ID, a.OwnerID, a.Title, blocks)
	return scanArgument(row)
}

// DeleteArgument removes an argument owned by the given user, reporting
// whether a row was deleted.
func (q *Queries) DeleteArgument(ctx context.Context, id, ownerID uuid.UUID) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`DELETE FROM arguments WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
