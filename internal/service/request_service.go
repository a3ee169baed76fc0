package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/repository"
)

type requestService struct {
	repo   repository.IRequestRepository
	locks  *RequestLocks
	logger *zap.Logger
}

func NewRequestService(repo repository.IRequestRepository, locks *RequestLocks, logger *zap.Logger) IRequestService {
	return &requestService{
		repo:   repo,
		locks:  locks,
		logger: logger,
	}
}

func (s *requestService) Create(ctx context.Context, dto *model.DTOCreateRequest) (*model.Request, error) {
	method, err := normalizeMethod(dto.Method)
	if err != nil {
		return nil, err
	}
	if err := validateURL(dto.URL); err != nil {
		return nil, err
	}

	request := &model.Request{
		Name:        strings.TrimSpace(dto.Name),
		URL:         strings.TrimSpace(dto.URL),
		Method:      method,
		Headers:     dto.Headers,
		Body:        dto.Body,
		QueryParams: dto.QueryParams,
	}
	if dto.Auth != nil {
		if err := validateAuth(dto.Auth); err != nil {
			return nil, err
		}
		request.Auth = *dto.Auth
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	s.logger.Debug("request created", zap.String("request_id", request.ID))
	return request, nil
}

func (s *requestService) Get(ctx context.Context, id string) (*model.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "request", id)
	}
	return request, nil
}

func (s *requestService) List(ctx context.Context) ([]*model.Request, error) {
	requests, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

// Update applies a partial update. The request always ends up unsaved.
func (s *requestService) Update(ctx context.Context, id string, dto *model.DTOUpdateRequest) (*model.Request, error) {
	if dto.Method != nil {
		method, err := normalizeMethod(*dto.Method)
		if err != nil {
			return nil, err
		}
		dto.Method = &method
	}
	if dto.URL != nil {
		if err := validateURL(*dto.URL); err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(*dto.URL)
		dto.URL = &trimmed
	}
	if dto.Auth != nil {
		if err := validateAuth(dto.Auth); err != nil {
			return nil, err
		}
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	request, err := s.repo.Update(ctx, id, dto.Patch())
	if err != nil {
		return nil, mapNotFound(err, "request", id)
	}
	return request, nil
}

// Delete removes the request. Its checkpoints are kept.
func (s *requestService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapNotFound(err, "request", id)
	}
	s.logger.Debug("request deleted", zap.String("request_id", id))
	return nil
}

func normalizeMethod(method string) (string, error) {
	m := strings.ToUpper(strings.TrimSpace(method))
	if !model.IsValidMethod(m) {
		return "", fmt.Errorf("%w: invalid or unsupported HTTP method: %q", ErrInvalidInput, method)
	}
	return m, nil
}

func validateURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: URL cannot be empty", ErrInvalidInput)
	}
	if _, err := url.Parse(raw); err != nil {
		return fmt.Errorf("%w: failed to parse URL: %v", ErrInvalidInput, err)
	}
	return nil
}

func validateAuth(auth *model.Auth) error {
	switch auth.Type {
	case "", model.AuthNone, model.AuthBearer, model.AuthBasic:
		return nil
	}
	return fmt.Errorf("%w: unsupported auth type: %q", ErrInvalidInput, auth.Type)
}

// mapNotFound turns a repository miss into ErrNotFound and wraps anything else.
func mapNotFound(err error, kind, id string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return fmt.Errorf("%s %s: %w", kind, id, err)
}
