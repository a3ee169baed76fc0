package service

import (
	"context"

	"github.com/suar-net/suar-studio/internal/model"
)

type IRequestService interface {
	Create(ctx context.Context, dto *model.DTOCreateRequest) (*model.Request, error)
	Get(ctx context.Context, id string) (*model.Request, error)
	List(ctx context.Context) ([]*model.Request, error)
	Update(ctx context.Context, id string, dto *model.DTOUpdateRequest) (*model.Request, error)
	Delete(ctx context.Context, id string) error
}

type IVersioningService interface {
	CreateCheckpoint(ctx context.Context, requestID, name string) (*model.CheckpointResult, error)
	ListCheckpoints(ctx context.Context, requestID string) ([]*model.Checkpoint, error)
	GetCheckpoint(ctx context.Context, id string) (*model.Checkpoint, error)
	Rollback(ctx context.Context, checkpointID string) (*model.Request, error)
	DeleteCheckpoint(ctx context.Context, id string) (*model.DeleteResult, error)
}

type IHTTPProxyService interface {
	ProcessRequest(ctx context.Context, dto *model.DTORequest) (*model.DTOResponse, error)
	SendStored(ctx context.Context, request *model.Request, opts *model.DTOSendOptions) (*model.DTOResponse, error)
}
