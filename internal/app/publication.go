package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"replypilot/internal/adapters/observability"
	"replypilot/internal/domain"
)

// PublicationService submits approved replies. It never retries: a repeated post must be a user action.
type PublicationService struct {
	platform domain.ReviewPlatform
	creds    domain.CredentialProvider
	timeout  time.Duration
}

func NewPublicationService(p domain.ReviewPlatform, c domain.CredentialProvider, timeout time.Duration) *PublicationService {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &PublicationService{platform: p, creds: c, timeout: timeout}
}

// CheckPreconditions reports failures detectable before any external call.
func CheckPreconditions(reviewRef, text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.ErrNoReplyToPost
	}
	if strings.TrimSpace(reviewRef) == "" {
		return domain.ErrMissingReference
	}
	return nil
}

// Publish posts text for the review under accountID's credential.
// All non-precondition failures wrap domain.ErrPublicationFailed.
func (s *PublicationService) Publish(ctx context.Context, accountID, reviewRef, text string) error {
	if err := CheckPreconditions(reviewRef, text); err != nil {
		return err
	}

	token, err := s.creds.AccessToken(ctx, accountID)
	if err != nil {
		observability.ObservePublication("credential_error")
		return publicationErr(err)
	}
	if strings.TrimSpace(token) == "" {
		observability.ObservePublication("credential_error")
		return publicationErr(domain.ErrCredentials)
	}

	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.platform.PostReply(pctx, reviewRef, text, token); err != nil {
		observability.ObservePublication(publicationOutcome(err))
		return publicationErr(err)
	}
	observability.ObservePublication("ok")
	return nil
}

func publicationErr(err error) error {
	if errors.Is(err, domain.ErrPublicationFailed) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPublicationFailed, err)
}

func publicationOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrPlatformRejected):
		return "rejected"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
