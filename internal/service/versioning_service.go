package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/repository"
)

// versioningService coordinates requests and their checkpoints.
type versioningService struct {
	requests    repository.IRequestRepository
	checkpoints repository.ICheckpointRepository
	locks       *RequestLocks
	metrics     *Metrics
	logger      *zap.Logger
}

func NewVersioningService(
	requests repository.IRequestRepository,
	checkpoints repository.ICheckpointRepository,
	locks *RequestLocks,
	metrics *Metrics,
	logger *zap.Logger,
) IVersioningService {
	return &versioningService{
		requests:    requests,
		checkpoints: checkpoints,
		locks:       locks,
		metrics:     metrics,
		logger:      logger,
	}
}

// CreateCheckpoint snapshots the request and then tries to mark it saved.
// The second step is best effort: when it fails the checkpoint is still
// returned and the failure is reported on the result instead of as an error.
func (s *versioningService) CreateCheckpoint(ctx context.Context, requestID, name string) (*model.CheckpointResult, error) {
	unlock := s.locks.Lock(requestID)
	defer unlock()

	request, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapNotFound(err, "request", requestID)
	}

	checkpoint := &model.Checkpoint{
		RequestID: requestID,
		Name:      strings.TrimSpace(name),
		Data:      request.Snapshot(),
	}
	if err := s.checkpoints.Create(ctx, checkpoint); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint for request %s: %w", requestID, err)
	}
	s.metrics.CheckpointsCreated.Inc()

	result := &model.CheckpointResult{Checkpoint: checkpoint, UnsavedReset: true}

	if err := s.requests.SetUnsaved(ctx, requestID, false); err != nil {
		s.metrics.UnsavedResetFailures.Inc()
		s.logger.Warn("checkpoint created but request could not be marked saved",
			zap.String("request_id", requestID),
			zap.String("checkpoint_id", checkpoint.ID),
			zap.Error(err),
		)
		result.UnsavedReset = false
		result.ResetErr = err
		result.UnsavedResetError = err.Error()
	}

	s.logger.Info("checkpoint created",
		zap.String("request_id", requestID),
		zap.String("checkpoint_id", checkpoint.ID),
		zap.Bool("unsaved_reset", result.UnsavedReset),
	)
	return result, nil
}

// ListCheckpoints returns the request's checkpoints, newest first. The
// request itself must still exist.
func (s *versioningService) ListCheckpoints(ctx context.Context, requestID string) ([]*model.Checkpoint, error) {
	if _, err := s.requests.GetByID(ctx, requestID); err != nil {
		return nil, mapNotFound(err, "request", requestID)
	}

	checkpoints, err := s.checkpoints.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for request %s: %w", requestID, err)
	}
	return checkpoints, nil
}

func (s *versioningService) GetCheckpoint(ctx context.Context, id string) (*model.Checkpoint, error) {
	checkpoint, err := s.checkpoints.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "checkpoint", id)
	}
	return checkpoint, nil
}

// Rollback overwrites url, method, headers and body of the owning request
// with the checkpoint's data. The request is left unsaved.
func (s *versioningService) Rollback(ctx context.Context, checkpointID string) (*model.Request, error) {
	checkpoint, err := s.checkpoints.GetByID(ctx, checkpointID)
	if err != nil {
		return nil, mapNotFound(err, "checkpoint", checkpointID)
	}

	unlock := s.locks.Lock(checkpoint.RequestID)
	defer unlock()

	request, err := s.requests.Update(ctx, checkpoint.RequestID, model.PatchFromSnapshot(checkpoint.Data))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: checkpoint %s references missing request %s",
				ErrInconsistentState, checkpointID, checkpoint.RequestID)
		}
		return nil, fmt.Errorf("failed to roll back request %s: %w", checkpoint.RequestID, err)
	}
	s.metrics.Rollbacks.Inc()

	s.logger.Info("request rolled back",
		zap.String("request_id", request.ID),
		zap.String("checkpoint_id", checkpointID),
	)
	return request, nil
}

// DeleteCheckpoint removes a checkpoint. The owning request is not touched.
func (s *versioningService) DeleteCheckpoint(ctx context.Context, id string) (*model.DeleteResult, error) {
	if err := s.checkpoints.Delete(ctx, id); err != nil {
		return nil, mapNotFound(err, "checkpoint", id)
	}
	return &model.DeleteResult{Deleted: true, ID: id}, nil
}
