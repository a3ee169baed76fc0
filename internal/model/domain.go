package model

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Supported request methods.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
	MethodPatch  = "PATCH"
)

// Auth variants.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
)

// IsValidMethod reports whether m is one of the methods a Request may carry.
func IsValidMethod(m string) bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	}
	return false
}

type QueryParam struct {
	Key     string `json:"key"`
	Value   string `json:"value"`
	Enabled bool   `json:"enabled"`
}

// Auth is a tagged variant; only the fields of the selected Type are meaningful.
type Auth struct {
	Type     string `json:"type" validate:"omitempty,oneof=none bearer basic"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// Normalize drops the fields that do not belong to the selected variant.
func (a Auth) Normalize() Auth {
	switch a.Type {
	case AuthBearer:
		return Auth{Type: AuthBearer, Token: a.Token}
	case AuthBasic:
		return Auth{Type: AuthBasic, Username: a.Username, Password: a.Password}
	default:
		return Auth{Type: AuthNone}
	}
}

// Request is the live, editable draft of one API call.
type Request struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	URL         string            `json:"url"`
	Method      string            `json:"method"`
	Headers     map[string]string `json:"headers"`
	Body        json.RawMessage   `json:"body,omitempty"`
	QueryParams []QueryParam      `json:"query_params"`
	Auth        Auth              `json:"auth"`
	Unsaved     bool              `json:"unsaved"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Snapshot copies the checkpoint-covered fields. Name, query params and auth
// are not part of a snapshot.
func (r *Request) Snapshot() CheckpointData {
	return CheckpointData{
		URL:     r.URL,
		Method:  r.Method,
		Headers: maps.Clone(r.Headers),
		Body:    slices.Clone(r.Body),
	}
}

// RequestPatch is a partial update; nil fields are left untouched.
type RequestPatch struct {
	Name        *string
	URL         *string
	Method      *string
	Headers     map[string]string
	Body        json.RawMessage
	QueryParams []QueryParam
	Auth        *Auth

	// SetHeaders, SetBody and SetQueryParams distinguish "clear" from "absent".
	SetHeaders     bool
	SetBody        bool
	SetQueryParams bool
}

// PatchFromSnapshot builds the patch a rollback applies.
func PatchFromSnapshot(d CheckpointData) *RequestPatch {
	return &RequestPatch{
		URL:        &d.URL,
		Method:     &d.Method,
		Headers:    maps.Clone(d.Headers),
		SetHeaders: true,
		Body:       slices.Clone(d.Body),
		SetBody:    true,
	}
}

// Apply merges the patch into r.
func (p *RequestPatch) Apply(r *Request) {
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.URL != nil {
		r.URL = *p.URL
	}
	if p.Method != nil {
		r.Method = *p.Method
	}
	if p.SetHeaders {
		r.Headers = maps.Clone(p.Headers)
		if r.Headers == nil {
			r.Headers = map[string]string{}
		}
	}
	if p.SetBody {
		r.Body = slices.Clone(p.Body)
	}
	if p.SetQueryParams {
		r.QueryParams = slices.Clone(p.QueryParams)
		if r.QueryParams == nil {
			r.QueryParams = []QueryParam{}
		}
	}
	if p.Auth != nil {
		r.Auth = p.Auth.Normalize()
	}
}

// CheckpointData is the frozen part of a Request held by a Checkpoint.
type CheckpointData struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    json.RawMessage   `json:"body,omitempty"`
}

// Checkpoint is an immutable snapshot of a Request.
type Checkpoint struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id"`
	Name      string         `json:"name,omitempty"`
	Data      CheckpointData `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
}

// CheckpointResult reports both steps of checkpoint creation: the checkpoint
// itself and whether the request's unsaved flag could be cleared afterwards.
type CheckpointResult struct {
	Checkpoint        *Checkpoint `json:"checkpoint"`
	UnsavedReset      bool        `json:"unsaved_reset"`
	UnsavedResetError string      `json:"unsaved_reset_error,omitempty"`

	ResetErr error `json:"-"`
}

type DeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      string `json:"id"`
}
