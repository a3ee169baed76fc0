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

const requestColumns = `id, name, url, method, headers, body, query_params, auth, unsaved, created_at, updated_at`

// requestRepository is the SQL implementation of IRequestRepository.
type requestRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRequestRepository is the constructor for requestRepository.
func NewRequestRepository(db *sql.DB, now func() time.Time) IRequestRepository {
	return &requestRepository{db: db, now: now}
}

// Create assigns an id and timestamps and inserts the request as unsaved.
func (r *requestRepository) Create(ctx context.Context, request *model.Request) error {
	now := r.now().UTC()
	request.ID = uuid.NewString()
	request.Unsaved = true
	request.CreatedAt = now
	request.UpdatedAt = now
	if request.Headers == nil {
		request.Headers = map[string]string{}
	}
	if request.QueryParams == nil {
		request.QueryParams = []model.QueryParam{}
	}
	request.Auth = request.Auth.Normalize()

	cols, err := encodeRequest(request)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		request.ID,
		request.Name,
		request.URL,
		request.Method,
		cols.headers,
		cols.body,
		cols.queryParams,
		cols.auth,
		request.Unsaved,
		request.CreatedAt,
		request.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

// GetByID retrieves a single request.
func (r *requestRepository) GetByID(ctx context.Context, id string) (*model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests WHERE id = $1`
	return scanRequest(r.db.QueryRowContext(ctx, query, id))
}

// List retrieves all requests, newest first.
func (r *requestRepository) List(ctx context.Context) ([]*model.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM requests ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying requests: %w", err)
	}
	defer rows.Close()

	requests := []*model.Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating requests: %w", err)
	}
	return requests, nil
}

// Update reads, merges and writes back the request inside one transaction.
// Any update leaves the request unsaved.
func (r *requestRepository) Update(ctx context.Context, id string, patch *model.RequestPatch) (*model.Request, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	request, err := scanRequest(tx.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}

	patch.Apply(request)
	request.Unsaved = true
	request.UpdatedAt = r.now().UTC()

	cols, err := encodeRequest(request)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE requests
		SET name = $1, url = $2, method = $3, headers = $4, body = $5, query_params = $6, auth = $7, unsaved = $8, updated_at = $9
		WHERE id = $10`

	res, err := tx.ExecContext(ctx, query,
		request.Name,
		request.URL,
		request.Method,
		cols.headers,
		cols.body,
		cols.queryParams,
		cols.auth,
		request.Unsaved,
		request.UpdatedAt,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating request %s: %w", id, err)
	}
	if err := checkAffected(res); err != nil {
		return nil, fmt.Errorf("updating request %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing request %s: %w", id, err)
	}
	return request, nil
}

// SetUnsaved changes only the unsaved flag.
func (r *requestRepository) SetUnsaved(ctx context.Context, id string, unsaved bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE requests SET unsaved = $1 WHERE id = $2`, unsaved, id)
	if err != nil {
		return fmt.Errorf("setting unsaved on request %s: %w", id, err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("setting unsaved on request %s: %w", id, err)
	}
	return nil
}

// Delete removes the request. Its checkpoints are left in place.
func (r *requestRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting request %s: %w", id, err)
	}
	if err := checkAffected(res); err != nil {
		return fmt.Errorf("deleting request %s: %w", id, err)
	}
	return nil
}

type requestJSONColumns struct {
	headers     string
	body        any
	queryParams string
	auth        string
}

func encodeRequest(request *model.Request) (*requestJSONColumns, error) {
	headers, err := json.Marshal(request.Headers)
	if err != nil {
		return nil, fmt.Errorf("encoding headers: %w", err)
	}
	queryParams, err := json.Marshal(request.QueryParams)
	if err != nil {
		return nil, fmt.Errorf("encoding query params: %w", err)
	}
	auth, err := json.Marshal(request.Auth)
	if err != nil {
		return nil, fmt.Errorf("encoding auth: %w", err)
	}
	if len(request.Body) > 0 && !json.Valid(request.Body) {
		return nil, fmt.Errorf("encoding body: invalid JSON")
	}

	return &requestJSONColumns{
		headers:     string(headers),
		body:        nullableJSON(request.Body),
		queryParams: string(queryParams),
		auth:        string(auth),
	}, nil
}

func scanRequest(row rowScanner) (*model.Request, error) {
	var (
		req                              model.Request
		headers, body, queryParams, auth []byte
	)

	err := row.Scan(
		&req.ID,
		&req.Name,
		&req.URL,
		&req.Method,
		&headers,
		&body,
		&queryParams,
		&auth,
		&req.Unsaved,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning request: %w", err)
	}

	if err := json.Unmarshal(headers, &req.Headers); err != nil {
		return nil, fmt.Errorf("decoding headers of request %s: %w", req.ID, err)
	}
	if err := json.Unmarshal(queryParams, &req.QueryParams); err != nil {
		return nil, fmt.Errorf("decoding query params of request %s: %w", req.ID, err)
	}
	if err := json.Unmarshal(auth, &req.Auth); err != nil {
		return nil, fmt.Errorf("decoding auth of request %s: %w", req.ID, err)
	}
	if len(body) > 0 {
		req.Body = json.RawMessage(body)
	}
	if req.Headers == nil {
		req.Headers = map[string]string{}
	}
	if req.QueryParams == nil {
		req.QueryParams = []model.QueryParam{}
	}
	req.CreatedAt = req.CreatedAt.UTC()
	req.UpdatedAt = req.UpdatedAt.UTC()

	return &req, nil
}
