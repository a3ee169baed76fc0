package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/suar-net/suar-studio/internal/config"
	"github.com/suar-net/suar-studio/internal/database/dbtest"
	"github.com/suar-net/suar-studio/internal/model"
	"github.com/suar-net/suar-studio/internal/repository"
	"github.com/suar-net/suar-studio/internal/service"
)

type apiClient struct {
	t      *testing.T
	server *httptest.Server
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	db := dbtest.NewSQLite(t)
	registry := prometheus.NewRegistry()
	metrics := service.NewMetrics(registry)
	logger := zap.NewNop()

	httpProxy := service.NewHTTPProxyService(config.ProxyConfig{
		DefaultTimeout:      5 * time.Second,
		MaxTimeout:          10 * time.Second,
		MaxRedirects:        5,
		MaxBodyBytes:        1 << 20,
		AllowPrivateTargets: true,
	}, metrics, logger)
	svc := service.NewService(repository.NewRepository(db), httpProxy, metrics, logger)

	server := httptest.NewServer(SetupRouter(svc, db, registry, nil, logger))
	t.Cleanup(server.Close)
	return &apiClient{t: t, server: server}
}

// do sends a JSON request and decodes the response body into out when non-nil.
func (c *apiClient) do(method, path string, body interface{}, out interface{}) int {
	c.t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		payload, err := json.Marshal(b)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.server.URL+path, reader)
	require.NoError(c.t, err)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.server.Client().Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (c *apiClient) createRequest(url, method string) *model.Request {
	c.t.Helper()
	var req model.Request
	status := c.do(http.MethodPost, "/api/v1/requests", map[string]string{"url": url, "method": method}, &req)
	require.Equal(c.t, http.StatusCreated, status)
	return &req
}

func TestAPI_CheckpointRollbackScenario(t *testing.T) {
	api := newTestAPI(t)

	req := api.createRequest("http://a.com", "GET")
	assert.True(t, req.Unsaved)

	var created model.CheckpointResult
	status := api.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/checkpoints", map[string]string{"name": "v1"}, &created)
	require.Equal(t, http.StatusCreated, status)
	require.NotNil(t, created.Checkpoint)
	assert.True(t, created.UnsavedReset)
	assert.Equal(t, "v1", created.Checkpoint.Name)
	assert.Equal(t, "http://a.com", created.Checkpoint.Data.URL)

	var saved model.Request
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/requests/"+req.ID, nil, &saved))
	assert.False(t, saved.Unsaved)

	var updated model.Request
	status = api.do(http.MethodPatch, "/api/v1/requests/"+req.ID, map[string]string{"url": "http://b.com"}, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "http://b.com", updated.URL)
	assert.True(t, updated.Unsaved)

	var checkpoint model.Checkpoint
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/checkpoints/"+created.Checkpoint.ID, nil, &checkpoint))
	assert.Equal(t, "http://a.com", checkpoint.Data.URL)

	var rolledBack model.Request
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/checkpoints/"+created.Checkpoint.ID+"/rollback", nil, &rolledBack))
	assert.Equal(t, "http://a.com", rolledBack.URL)
	assert.True(t, rolledBack.Unsaved)

	var list []model.Checkpoint
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/requests/"+req.ID+"/checkpoints", nil, &list))
	assert.Len(t, list, 1)
}

func TestAPI_DeleteCheckpointScenario(t *testing.T) {
	api := newTestAPI(t)
	req := api.createRequest("http://a.com", "GET")

	var errBody errorResponse
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodDelete, "/api/v1/checkpoints/missing", nil, &errBody))
	assert.Equal(t, codeNotFound, errBody.Code)

	// empty body is accepted
	var created model.CheckpointResult
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/checkpoints", nil, &created))
	assert.Empty(t, created.Checkpoint.Name)

	var deleted model.DeleteResult
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/v1/checkpoints/"+created.Checkpoint.ID, nil, &deleted))
	assert.Equal(t, model.DeleteResult{Deleted: true, ID: created.Checkpoint.ID}, deleted)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/checkpoints/"+created.Checkpoint.ID, nil, nil))
}

func TestAPI_RollbackOrphanedCheckpoint(t *testing.T) {
	api := newTestAPI(t)
	req := api.createRequest("http://a.com", "GET")

	var created model.CheckpointResult
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/checkpoints", nil, &created))

	var deleted model.DeleteResult
	require.Equal(t, http.StatusOK, api.do(http.MethodDelete, "/api/v1/requests/"+req.ID, nil, &deleted))
	assert.True(t, deleted.Deleted)

	// the checkpoint outlives its request
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/checkpoints/"+created.Checkpoint.ID, nil, nil))

	var errBody errorResponse
	status := api.do(http.MethodPost, "/api/v1/checkpoints/"+created.Checkpoint.ID+"/rollback", nil, &errBody)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, codeInconsistentState, errBody.Code)

	status = api.do(http.MethodPost, "/api/v1/checkpoints/missing/rollback", nil, &errBody)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, codeNotFound, errBody.Code)
}

func TestAPI_RequestValidation(t *testing.T) {
	api := newTestAPI(t)

	tests := []struct {
		name string
		body interface{}
	}{
		{"malformed json", `{"url":`},
		{"missing url", map[string]string{"method": "GET"}},
		{"bad url", map[string]string{"url": "not a url", "method": "GET"}},
		{"bad method", map[string]string{"url": "http://a.com", "method": "HEAD"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errBody errorResponse
			assert.Equal(t, http.StatusBadRequest, api.do(http.MethodPost, "/api/v1/requests", tt.body, &errBody))
			assert.Equal(t, codeInvalidInput, errBody.Code)
			assert.NotEmpty(t, errBody.Error)
		})
	}

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/requests/missing", nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPatch, "/api/v1/requests/missing", map[string]string{"name": "x"}, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/v1/requests/missing/checkpoints", nil, nil))
	assert.Equal(t, http.StatusNotFound, api.do(http.MethodGet, "/api/v1/requests/missing/checkpoints", nil, nil))
}

func TestAPI_ListRequests(t *testing.T) {
	api := newTestAPI(t)

	var list []model.Request
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/requests", nil, &list))
	assert.Empty(t, list)

	api.createRequest("http://a.com", "GET")
	api.createRequest("http://b.com", "post")

	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/requests", nil, &list))
	assert.Len(t, list, 2)
}

func TestAPI_SendStoredRequest(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"path":"` + r.URL.Path + `","q":"` + r.URL.RawQuery + `"}`))
	}))
	defer target.Close()

	api := newTestAPI(t)

	var req model.Request
	status := api.do(http.MethodPost, "/api/v1/requests", map[string]interface{}{
		"url":    target.URL + "/items",
		"method": "GET",
		"query_params": []model.QueryParam{
			{Key: "page", Value: "2", Enabled: true},
		},
	}, &req)
	require.Equal(t, http.StatusCreated, status)

	var resp model.DTOResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/send", map[string]string{"select": "q"}, &resp))
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
	assert.JSONEq(t, `{"path":"/items","q":"page=2"}`, resp.Body)
	assert.JSONEq(t, `"page=2"`, string(resp.Selected))

	// no body at all uses defaults
	var plain model.DTOResponse
	require.Equal(t, http.StatusOK, api.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/send", nil, &plain))
	assert.Equal(t, http.StatusTeapot, plain.StatusCode)
	assert.Nil(t, plain.Selected)

	assert.Equal(t, http.StatusNotFound, api.do(http.MethodPost, "/api/v1/requests/missing/send", nil, nil))
}

func TestAPI_Proxy(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer target.Close()

	api := newTestAPI(t)

	var resp model.DTOResponse
	status := api.do(http.MethodPost, "/api/v1/proxy", map[string]string{"method": "GET", "url": target.URL}, &resp)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "boom", resp.Body)

	var errBody errorResponse
	status = api.do(http.MethodPost, "/api/v1/proxy", map[string]string{"method": "GET", "url": "ftp://example.com"}, &errBody)
	assert.Equal(t, http.StatusBadRequest, status)

	status = api.do(http.MethodGet, "/api/v1/proxy", nil, &errBody)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, codeMethodNotAllowed, errBody.Code)
}

func TestAPI_InspectToken(t *testing.T) {
	api := newTestAPI(t)
	req := api.createRequest("http://a.com", "GET")

	var errBody errorResponse
	assert.Equal(t, http.StatusBadRequest, api.do(http.MethodGet, "/api/v1/requests/"+req.ID+"/auth/token", nil, &errBody))

	// {"alg":"HS256","typ":"JWT"}.{"sub":"alice"}.sig
	token := "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJhbGljZSJ9.c2ln"
	status := api.do(http.MethodPatch, "/api/v1/requests/"+req.ID, map[string]interface{}{
		"auth": model.Auth{Type: model.AuthBearer, Token: token},
	}, nil)
	require.Equal(t, http.StatusOK, status)

	var info model.TokenInfo
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/api/v1/requests/"+req.ID+"/auth/token", nil, &info))
	assert.Equal(t, "HS256", info.Algorithm)
	assert.Equal(t, "alice", info.Claims["sub"])
	assert.False(t, info.Expired)
}

func TestAPI_HealthAndMetrics(t *testing.T) {
	api := newTestAPI(t)

	var health map[string]string
	require.Equal(t, http.StatusOK, api.do(http.MethodGet, "/health", nil, &health))
	assert.Equal(t, "ok", health["status"])

	req := api.createRequest("http://a.com", "GET")
	require.Equal(t, http.StatusCreated, api.do(http.MethodPost, "/api/v1/requests/"+req.ID+"/checkpoints", nil, nil))

	resp, err := api.server.Client().Get(api.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "suar_checkpoints_created_total 1")
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error { return errors.New("connection refused") }

func TestHealthHandler_DatabaseDown(t *testing.T) {
	h := NewHealthHandler(failingPinger{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var errBody errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
	assert.Equal(t, codeUnavailable, errBody.Code)
}

func TestRespondWithServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid", service.ErrInvalidInput, http.StatusBadRequest, codeInvalidInput},
		{"not found", service.ErrNotFound, http.StatusNotFound, codeNotFound},
		{"inconsistent", service.ErrInconsistentState, http.StatusInternalServerError, codeInconsistentState},
		{"upstream", service.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstreamUnavailable},
		{"timeout", service.ErrRequestTimeout, http.StatusGatewayTimeout, codeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, codeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondWithServiceError(rec, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var errBody errorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errBody))
			assert.Equal(t, tt.code, errBody.Code)
		})
	}
}
