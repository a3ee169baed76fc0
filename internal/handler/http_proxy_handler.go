package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/service"
)

// HTTPProxyHandler sends ad-hoc requests that are not persisted.
type HTTPProxyHandler struct {
	service service.IHTTPProxyService
	logger  *zap.Logger
}

func NewHTTPProxyHandler(s service.IHTTPProxyService, l *zap.Logger) *HTTPProxyHandler {
	return &HTTPProxyHandler{
		service: s,
		logger:  l,
	}
}

func (h *HTTPProxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondWithError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}

	var dto model.DTORequest
	if !decodeJSON(w, r, &dto, false) || !validateDTO(w, &dto) {
		return
	}

	// r.Context() carries deadlines, cancellation signals, and other request-scoped values.
	dtoResponse, err := h.service.ProcessRequest(r.Context(), &dto)
	if err != nil {
		h.logger.Info("proxy request failed", zap.String("url", dto.URL), zap.Error(err))
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJson(w, http.StatusOK, dtoResponse)
}
