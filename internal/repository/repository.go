package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/suar-net/suar-studio/internal/model"
)

// ErrNotFound is returned when no row matches the given id.
var ErrNotFound = errors.New("record not found")

// IRequestRepository stores the mutable request drafts.
type IRequestRepository interface {
	Create(ctx context.Context, request *model.Request) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	List(ctx context.Context) ([]*model.Request, error)
	// Update merges patch into the stored request and marks it unsaved.
	Update(ctx context.Context, id string, patch *model.RequestPatch) (*model.Request, error)
	SetUnsaved(ctx context.Context, id string, unsaved bool) error
	Delete(ctx context.Context, id string) error
}

// ICheckpointRepository stores immutable request snapshots.
type ICheckpointRepository interface {
	Create(ctx context.Context, checkpoint *model.Checkpoint) error
	GetByID(ctx context.Context, id string) (*model.Checkpoint, error)
	ListByRequestID(ctx context.Context, requestID string) ([]*model.Checkpoint, error)
	Delete(ctx context.Context, id string) error
}

type IRepository interface {
	Request() IRequestRepository
	Checkpoint() ICheckpointRepository
}

type Repository struct {
	request    IRequestRepository
	checkpoint ICheckpointRepository
}

type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func NewRepository(db *sql.DB, opts ...Option) *Repository {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Repository{
		request:    NewRequestRepository(db, o.now),
		checkpoint: NewCheckpointRepository(db, o.now),
	}
}

func (r *Repository) Request() IRequestRepository {
	return r.request
}

func (r *Repository) Checkpoint() ICheckpointRepository {
	return r.checkpoint
}

type rowScanner interface {
	Scan(dest ...any) error
}

// nullableJSON maps an empty raw value to SQL NULL.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func checkAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
