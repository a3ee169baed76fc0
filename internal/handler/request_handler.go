package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/service"
)

type RequestHandler struct {
	requestService   service.IRequestService
	httpProxyService service.IHTTPProxyService
	logger           *zap.Logger
}

func NewRequestHandler(s service.IRequestService, p service.IHTTPProxyService, l *zap.Logger) *RequestHandler {
	return &RequestHandler{
		requestService:   s,
		httpProxyService: p,
		logger:           l,
	}
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var dto model.DTOCreateRequest
	if !decodeJSON(w, r, &dto, false) || !validateDTO(w, &dto) {
		return
	}

	request, err := h.requestService.Create(r.Context(), &dto)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusCreated, request)
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	requests, err := h.requestService.List(r.Context())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, requests)
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	request, err := h.requestService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, request)
}

func (h *RequestHandler) Update(w http.ResponseWriter, r *http.Request) {
	var dto model.DTOUpdateRequest
	if !decodeJSON(w, r, &dto, false) || !validateDTO(w, &dto) {
		return
	}

	request, err := h.requestService.Update(r.Context(), chi.URLParam(r, "id"), &dto)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, request)
}

func (h *RequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.requestService.Delete(r.Context(), id); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, model.DeleteResult{Deleted: true, ID: id})
}

// Send executes the stored request against its target server.
func (h *RequestHandler) Send(w http.ResponseWriter, r *http.Request) {
	var opts model.DTOSendOptions
	if !decodeJSON(w, r, &opts, true) || !validateDTO(w, &opts) {
		return
	}

	request, err := h.requestService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	dtoResponse, err := h.httpProxyService.SendStored(r.Context(), request, &opts)
	if err != nil {
		h.logger.Info("stored request send failed", zap.String("request_id", request.ID), zap.Error(err))
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, dtoResponse)
}

func (h *RequestHandler) InspectToken(w http.ResponseWriter, r *http.Request) {
	request, err := h.requestService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	info, err := service.InspectBearerToken(request, time.Now())
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJson(w, http.StatusOK, info)
}
