package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/suar-net/suar-studio/internal/model"
)

const checkpointColumns = `id, request_id, name, data, created_at`

type checkpointRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewCheckpointRepository(db *sql.DB, now func() time.Time) ICheckpointRepository {
	return &checkpointRepository{db: db, now: now}
}

// Create assigns an id and creation time and inserts the checkpoint.
func (r *checkpointRepository) Create(ctx context.Context, checkpoint *model.Checkpoint) error {
	checkpoint.ID = uuid.NewString()
	checkpoint.CreatedAt = r.now().UTC()
	if checkpoint.Data.Headers == nil {
		checkpoint.Data.Headers = map[string]string{}
	}

	data, err := json.Marshal(checkpoint.Data)
	if err != nil {
		return fmt.Errorf("encoding checkpoint data: %w", err)
	}

	query := `
		INSERT INTO checkpoints (` + checkpointColumns + `)
		VALUES ($1, $2, $3, $4, $5)`

	_, err = r.db.ExecContext(ctx, query,
		checkpoint.ID,
		checkpoint.RequestID,
		checkpoint.Name,
		string(data),
		checkpoint.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting checkpoint: %w", err)
	}
	return nil
}

func (r *checkpointRepository) GetByID(ctx context.Context, id string) (*model.Checkpoint, error) {
	query := `SELECT ` + checkpointColumns + ` FROM checkpoints WHERE id = $1`
	return scanCheckpoint(r.db.QueryRowContext(ctx, query, id))
}

// ListByRequestID retrieves the checkpoints of a request, newest first.
func (r *checkpointRepository) ListByRequestID(ctx context.Context, requestID string) ([]*model.Checkpoint, error) {
	query := `
		SELECT ` + checkpointColumns + `
		FROM checkpoints
		WHERE request_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("querying checkpoints for request %s: %w", requestID, err)
	}
	defer rows.Close()

	checkpoints := []*model.Checkpoint{}
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating checkpoints for request %s: %w", requestID, err)
	}
	return checkpoints, nil
}

func (r *checkpointRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM checkpoints WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting checkpoint %s: %w", id, err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("deleting checkpoint %s: %w", id, err)
	}
	return nil
}

func scanCheckpoint(row rowScanner) (*model.Checkpoint, error) {
	var (
		cp   model.Checkpoint
		data []byte
	)

	if err := row.Scan(&cp.ID, &cp.RequestID, &cp.Name, &data, &cp.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning checkpoint: %w", err)
	}
	if err := json.Unmarshal(data, &cp.Data); err != nil {
		return nil, fmt.Errorf("decoding data of checkpoint %s: %w", cp.ID, err)
	}
	if cp.Data.Headers == nil {
		cp.Data.Headers = map[string]string{}
	}
	cp.CreatedAt = cp.CreatedAt.UTC()

	return &cp, nil
}
