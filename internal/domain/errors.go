package domain

import (
	"context"
	"errors"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidTransition = errors.New("invalid reply transition")

	// ErrResolutionGap: a placeholder survived into a prompt that must be fully resolved.
	ErrResolutionGap = errors.New("unresolved template placeholder")
	ErrPromptTooLong = errors.New("prompt exceeds maximum length")

	ErrGenerationTransient = errors.New("generation: transient failure")
	ErrGenerationRejected  = errors.New("generation: rejected by provider")
	ErrRetriesExhausted    = errors.New("generation: retries exhausted")

	ErrNoReplyToPost     = errors.New("no reply to post")
	ErrMissingReference  = errors.New("review has no external reference")
	ErrPublicationFailed = errors.New("publication failed")
	ErrCredentials       = errors.New("no usable platform credential")
	ErrUnauthorized      = errors.New("platform: unauthorized")
	ErrPlatformRejected  = errors.New("platform: reply rejected")

	ErrLocked = errors.New("review is locked by another operation")
)

type ErrorKind string

const (
	KindNone                    ErrorKind = ""
	KindNotFound                ErrorKind = "not_found"
	KindInvalidInput            ErrorKind = "invalid_input"
	KindInvalidTransition       ErrorKind = "invalid_transition"
	KindResolutionGap           ErrorKind = "resolution_gap"
	KindGenerationTransient     ErrorKind = "generation_transient"
	KindGenerationRejected      ErrorKind = "generation_rejected"
	KindGenerationExhausted     ErrorKind = "generation_exhausted"
	KindPublicationPrecondition ErrorKind = "publication_precondition"
	KindPublicationFailure      ErrorKind = "publication_failure"
	KindConflict                ErrorKind = "conflict"
	KindInternal                ErrorKind = "internal"
)

// KindOf classifies err. Order matters: exhausted wraps a transient cause and a
// publication failure may wrap a deadline.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidRating), errors.Is(err, ErrInvalidInput), errors.Is(err, ErrPromptTooLong):
		return KindInvalidInput
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrResolutionGap):
		return KindResolutionGap
	case errors.Is(err, ErrRetriesExhausted):
		return KindGenerationExhausted
	case errors.Is(err, ErrGenerationRejected):
		return KindGenerationRejected
	case errors.Is(err, ErrNoReplyToPost), errors.Is(err, ErrMissingReference):
		return KindPublicationPrecondition
	case errors.Is(err, ErrPublicationFailed), errors.Is(err, ErrCredentials),
		errors.Is(err, ErrUnauthorized), errors.Is(err, ErrPlatformRejected):
		return KindPublicationFailure
	case errors.Is(err, ErrGenerationTransient), errors.Is(err, context.DeadlineExceeded):
		return KindGenerationTransient
	case errors.Is(err, ErrLocked):
		return KindConflict
	default:
		return KindInternal
	}
}
