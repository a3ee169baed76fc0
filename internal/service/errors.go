package service

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRequestTimeout = errors.New("request timeout")
	// ErrUpstreamUnavailable is a transport-level failure reaching the target server.
	ErrUpstreamUnavailable = errors.New("target server unreachable")

	ErrNotFound = errors.New("not found")
	// ErrInconsistentState means a checkpoint points at a request that no longer exists.
	ErrInconsistentState = errors.New("inconsistent state")
)
