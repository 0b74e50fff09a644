package app

import "errors"

// Sentinel kinds for request failures. Each maps to an explicit reply.
var (
	ErrNoStream         = errors.New("no stream matched")
	ErrUnknownStream    = errors.New("unknown stream")
	ErrUnknownRequester = errors.New("unknown requester")
	ErrFetchFailed      = errors.New("fetch failed")
	ErrDuplicate        = errors.New("duplicate message")
	ErrQueueFull        = errors.New("request queue full")
	ErrNotStarted       = errors.New("service not started")
	ErrNotEnumerable    = errors.New("labeling scheme cannot list labels")
)
