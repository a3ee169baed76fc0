package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/service"
)

const maxRequestBodyBytes = 1 << 20

const (
	codeInvalidInput        = "invalid_input"
	codeNotFound            = "not_found"
	codeInconsistentState   = "inconsistent_state"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeTimeout             = "timeout"
	codeUnavailable         = "unavailable"
	codeMethodNotAllowed    = "method_not_allowed"
	codeInternal            = "internal"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondWithError sends a JSON error body with a code derived from the status.
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondWithErrorCode(w, status, errorCodeFor(status), message)
}

func respondWithErrorCode(w http.ResponseWriter, status int, code, message string) {
	respondWithJson(w, status, errorResponse{Error: message, Code: code})
}

// respondWithJson marshals payload and writes it with the given status.
func respondWithJson(w http.ResponseWriter, status int, payload interface{}) {
	dat, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("failed to marshal JSON response", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Failed to marshal response","code":"internal"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(dat)
}

// respondWithServiceError maps service sentinel errors onto HTTP statuses.
func respondWithServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInconsistentState):
		logger.Error("inconsistent state", zap.Error(err))
		respondWithErrorCode(w, http.StatusInternalServerError, codeInconsistentState, err.Error())
	case errors.Is(err, service.ErrUpstreamUnavailable):
		respondWithError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, service.ErrRequestTimeout):
		respondWithError(w, http.StatusGatewayTimeout, err.Error())
	default:
		logger.Error("request failed", zap.Error(err))
		respondWithError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

func errorCodeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return codeInvalidInput
	case http.StatusNotFound:
		return codeNotFound
	case http.StatusBadGateway:
		return codeUpstreamUnavailable
	case http.StatusGatewayTimeout:
		return codeTimeout
	case http.StatusServiceUnavailable:
		return codeUnavailable
	case http.StatusMethodNotAllowed:
		return codeMethodNotAllowed
	default:
		return codeInternal
	}
}

// decodeJSON reads a JSON body into dst. With allowEmpty, a missing body leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}, allowEmpty bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return true
		}
		respondWithError(w, http.StatusBadRequest, "Invalid JSON format")
		return false
	}
	return true
}

// validateDTO runs struct validation and writes a 400 on failure.
func validateDTO(w http.ResponseWriter, dto interface{}) bool {
	if err := validate.Struct(dto); err != nil {
		respondWithError(w, http.StatusBadRequest, ValidationError(err))
		return false
	}
	return true
}
