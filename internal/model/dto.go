package model

import (
	"encoding/json"
	"time"
)

// DTORequest is an ad-hoc request to proxy to a target server.
type DTORequest struct {
	Method      string              `json:"method" validate:"required"`
	URL         string              `json:"url" validate:"required,url"`
	Headers     map[string][]string `json:"headers"`
	Body        json.RawMessage     `json:"body,omitempty"`
	QueryParams []QueryParam        `json:"query_params,omitempty"`
	Auth        *Auth               `json:"auth,omitempty"`
	Timeout     int                 `json:"timeout" validate:"gte=0,lte=90000"` // ms, 0 means default
	Select      string              `json:"select,omitempty"`
}

// DTOResponse is the simplified view of the target server's response.
type DTOResponse struct {
	StatusCode int                 `json:"status_code"`
	Duration   time.Duration       `json:"duration"`
	Timestamp  time.Time           `json:"timestamp"`
	Size       int64               `json:"size"`
	Headers    map[string][]string `json:"headers"`
	Body       string              `json:"body,omitempty"`
	Selected   json.RawMessage     `json:"selected,omitempty"`
	Error      string              `json:"error,omitempty"`
}

// DTOSendOptions tunes how a stored request is sent.
type DTOSendOptions struct {
	Timeout int    `json:"timeout" validate:"gte=0,lte=90000"`
	Select  string `json:"select,omitempty"`
}

type DTOCreateRequest struct {
	Name        string            `json:"name"`
	URL         string            `json:"url" validate:"required,url"`
	Method      string            `json:"method" validate:"required,httpmethod"`
	Headers     map[string]string `json:"headers"`
	Body        json.RawMessage   `json:"body,omitempty"`
	QueryParams []QueryParam      `json:"query_params" validate:"dive"`
	Auth        *Auth             `json:"auth"`
}

// DTOUpdateRequest carries a partial update. Absent fields are left untouched.
type DTOUpdateRequest struct {
	Name        *string            `json:"name"`
	URL         *string            `json:"url" validate:"omitempty,url"`
	Method      *string            `json:"method" validate:"omitempty,httpmethod"`
	Headers     *map[string]string `json:"headers"`
	Body        json.RawMessage    `json:"body,omitempty"`
	QueryParams *[]QueryParam      `json:"query_params"`
	Auth        *Auth              `json:"auth"`
}

// Patch converts the DTO into a store patch.
func (d *DTOUpdateRequest) Patch() *RequestPatch {
	p := &RequestPatch{
		Name:   d.Name,
		URL:    d.URL,
		Method: d.Method,
		Auth:   d.Auth,
	}
	if d.Headers != nil {
		p.Headers = *d.Headers
		p.SetHeaders = true
	}
	if len(d.Body) > 0 {
		p.Body = d.Body
		p.SetBody = true
	}
	if d.QueryParams != nil {
		p.QueryParams = *d.QueryParams
		p.SetQueryParams = true
	}
	return p
}

type DTOCreateCheckpoint struct {
	Name string `json:"name" validate:"max=200"`
}

// TokenInfo is the decoded, unverified content of a bearer JWT.
type TokenInfo struct {
	Algorithm string         `json:"algorithm"`
	Claims    map[string]any `json:"claims"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Expired   bool           `json:"expired"`
}
