package service

import (
	"errors"

	"github.com/okian/vesselsnap/internal/domain/normalize"
)

// Sentinel kinds for snapshot errors.
var (
	// ErrCredentialsMissing means no feed API key is configured. No
	// connection is attempted.
	ErrCredentialsMissing = errors.New("upstream credentials missing")
	// ErrUpstreamUnreachable means the feed could not be dialed or subscribed to.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	// ErrUpstream matches the feed's explicit error payload.
	ErrUpstream = normalize.ErrUpstream
	// ErrBusy means the concurrent snapshot limit was reached.
	ErrBusy = errors.New("too many concurrent snapshots")
	// ErrNotStarted means Snapshot was called before Start.
	ErrNotStarted = errors.New("service not started")
)

// UpstreamError carries the feed's error message.
type UpstreamError = normalize.UpstreamError
