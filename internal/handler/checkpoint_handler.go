package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/service"
)

type CheckpointHandler struct {
	versioningService service.IVersioningService
	logger            *zap.Logger
}

func NewCheckpointHandler(s service.IVersioningService, l *zap.Logger) *CheckpointHandler {
	return &CheckpointHandler{
		versioningService: s,
		logger:            l,
	}
}

// Create snapshots the request named in the path. The body is optional.
func (h *CheckpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto model.DTOCreateCheckpoint
	if !decodeJSON(w, r, &dto, true) || !validateDTO(w, &dto) {
		return
	}

	result, err := h.versioningService.CreateCheckpoint(r.Context(), chi.URLParam(r, "id"), dto.Name)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusCreated, result)
}

func (h *CheckpointHandler) List(w http.ResponseWriter, r *http.Request) {
	checkpoints, err := h.versioningService.ListCheckpoints(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, checkpoints)
}

func (h *CheckpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	checkpoint, err := h.versioningService.GetCheckpoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, checkpoint)
}

func (h *CheckpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.versioningService.DeleteCheckpoint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, result)
}

func (h *CheckpointHandler) Rollback(w http.ResponseWriter, r *http.Request) {
	request, err := h.versioningService.Rollback(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, request)
}
