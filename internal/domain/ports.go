package domain

import (
	"context"
	"time"
)

type ReviewRepository interface {
	GetReview(ctx context.Context, id string) (Review, error)
	// SaveReply writes every reply field of r (ai_reply .. posted_by) in one update.
	SaveReply(ctx context.Context, r Review) error
	// ListAwaitingReply returns pending reviews that have no AI reply yet, oldest first.
	ListAwaitingReply(ctx context.Context, limit int) ([]Review, error)
}

type BusinessRepository interface {
	GetBusiness(ctx context.Context, id string) (BusinessConfig, error)
}

// TextGenerator is the AI collaborator. Implementations wrap failures in
// ErrGenerationTransient or ErrGenerationRejected.
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ReviewPlatform posts a reply to the external review platform.
// Implementations wrap failures in ErrUnauthorized, ErrPlatformRejected or ErrPublicationFailed.
type ReviewPlatform interface {
	PostReply(ctx context.Context, reviewRef, text, accessToken string) error
}

type CredentialProvider interface {
	AccessToken(ctx context.Context, accountID string) (string, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Locker serializes Post per review for the surrounding request handlers.
type Locker interface {
	// Acquire returns a release func, or ErrLocked when another holder owns the key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error)
}

type Clock func() time.Time
