package lifecycle

import "errors"

// Sentinel errors for the lifecycle service. Handlers map these onto HTTP
// statuses; nothing here carries transport concerns.
var (
	// ErrNotFound covers both absent entities and entities owned by a
	// different tenant. The two cases are deliberately indistinguishable
	// so ids can't be probed for existence.
	ErrNotFound = errors.New("campaign not found")

	// ErrPreconditionFailed means a transition guard did not hold.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrForbidden means the actor lacks privilege for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstreamUnavailable means the content gateway failed or timed
	// out. The campaign remains in its prior state and the call may be
	// retried.
	ErrUpstreamUnavailable = errors.New("content gateway unavailable")

	// ErrGenerationInProgress means another request currently holds the
	// per-campaign generation lock.
	ErrGenerationInProgress = errors.New("copy generation already in progress")
)
