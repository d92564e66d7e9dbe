package service

import "errors"

// Error taxonomy shared by the services. Callers branch with errors.Is;
// the update router maps each sentinel to a user-facing reply.
var (
	// ErrValidation covers bad user input; the authoring machine
	// re-prompts the same step instead of advancing.
	ErrValidation = errors.New("invalid input")

	// ErrDuplicateRole is returned by a grant when an active assignment
	// for the same (principal, role) pair already exists.
	ErrDuplicateRole = errors.New("role already granted")

	// ErrNoActiveRole is returned by a revoke with nothing to revoke.
	ErrNoActiveRole = errors.New("no active role assignment")

	// ErrSessionActive is returned when a principal starts a new
	// authoring flow while one is already in progress.
	ErrSessionActive = errors.New("authoring session already active")

	// ErrChannelNotFound is returned when a publish targets a channel
	// missing from the registry.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrPostNotFound is returned for lookups of unknown posts.
	ErrPostNotFound = errors.New("post not found")

	// ErrAlreadyPublished guards against double publication.
	ErrAlreadyPublished = errors.New("post already published")

	// ErrInvalidTransition rejects backward status moves and content
	// edits on published posts.
	ErrInvalidTransition = errors.New("invalid post transition")

	// ErrGenerationUnavailable is returned when the generation API
	// times out or fails; the caller decides whether to retry.
	ErrGenerationUnavailable = errors.New("content generation unavailable")

	// ErrPublishFailed is returned when the channel send fails; the
	// post keeps its previous status and no retry is attempted here.
	ErrPublishFailed = errors.New("publish failed")

	// ErrPermissionDenied is returned by the guard for any principal
	// without a matching active role.
	ErrPermissionDenied = errors.New("permission denied")
)
