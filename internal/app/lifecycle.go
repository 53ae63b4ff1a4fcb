package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"replypilot/internal/adapters/observability"
	"replypilot/internal/domain"
	"replypilot/internal/prompt"
)

type BusinessSource interface {
	GetBusiness(ctx context.Context, id string) (domain.BusinessConfig, error)
}

type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, accountID, reviewRef, text string) error
}

// Controller owns the reply state machine. It does not serialize concurrent
// operations on one review: concurrent Generates are last-write-wins and
// callers must serialize Post (see the redis post lock).
type Controller struct {
	reviews    domain.ReviewRepository
	businesses BusinessSource
	gen        Generator
	pub        Publisher
	now        domain.Clock
	tracer     trace.Tracer
}

func NewController(r domain.ReviewRepository, b BusinessSource, g Generator, p Publisher) *Controller {
	return &Controller{
		reviews:    r,
		businesses: b,
		gen:        g,
		pub:        p,
		now:        func() time.Time { return time.Now().UTC() },
		tracer:     otel.Tracer("replypilot/app"),
	}
}

// WithClock overrides the timestamp source.
func (c *Controller) WithClock(now domain.Clock) *Controller {
	c.now = now
	return c
}

func (c *Controller) Get(ctx context.Context, id string) (domain.Review, error) {
	return c.reviews.GetReview(ctx, id)
}

// BuildPrompt renders the generation prompt for a stored review.
func (c *Controller) BuildPrompt(ctx context.Context, r domain.Review) (string, error) {
	biz, err := c.businesses.GetBusiness(ctx, r.BusinessID)
	if err != nil {
		return "", fmt.Errorf("load business %s: %w", r.BusinessID, err)
	}
	return prompt.Build(biz, r.Data(), biz.Name, biz.Phone)
}

// Generate drafts a new AI reply. On failure the review is left untouched.
func (c *Controller) Generate(ctx context.Context, id string) (out domain.Review, err error) {
	ctx, end := c.span(ctx, "reply.generate", id)
	defer func() { end(err) }()

	r, err := c.reviews.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if r.ReplyStatus == domain.StatusPosted {
		return r, fmt.Errorf("%w: review %s is already posted", domain.ErrInvalidTransition, id)
	}
	p, err := c.BuildPrompt(ctx, r)
	if err != nil {
		return r, err
	}
	text, err := c.gen.Generate(ctx, p)
	if err != nil {
		log.Warn().Err(err).Str("review_id", id).Str("kind", string(domain.KindOf(err))).Msg("reply generation failed")
		return r, err
	}

	from := r.ReplyStatus
	if err := r.ApplyGenerated(text, c.now()); err != nil {
		return r, err
	}
	if err := c.reviews.SaveReply(ctx, r); err != nil {
		return r, fmt.Errorf("save generated reply: %w", err)
	}
	c.transition("generate", id, from, r.ReplyStatus, len(text))
	return r, nil
}

// Edit replaces the reply text directly, keeping the status.
func (c *Controller) Edit(ctx context.Context, id, text string) (out domain.Review, err error) {
	ctx, end := c.span(ctx, "reply.edit", id)
	defer func() { end(err) }()

	r, err := c.reviews.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	if err := r.ApplyEdit(text); err != nil {
		return r, err
	}
	if err := c.reviews.SaveReply(ctx, r); err != nil {
		return r, fmt.Errorf("save edited reply: %w", err)
	}
	c.transition("edit", id, r.ReplyStatus, r.ReplyStatus, len(text))
	return r, nil
}

func (c *Controller) Reject(ctx context.Context, id string) (out domain.Review, err error) {
	ctx, end := c.span(ctx, "reply.reject", id)
	defer func() { end(err) }()

	r, err := c.reviews.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	from := r.ReplyStatus
	if err := r.Reject(); err != nil {
		return r, err
	}
	if err := c.reviews.SaveReply(ctx, r); err != nil {
		return r, fmt.Errorf("save rejection: %w", err)
	}
	c.transition("reject", id, from, r.ReplyStatus, 0)
	return r, nil
}

// Post publishes override (or the stored reply) and records posted or failed.
// Precondition failures leave the review unchanged; publish failures are not retried.
// A failed repost of a posted review keeps the earlier publication on record.
// The outcome is written even if ctx is canceled once the platform call has returned.
func (c *Controller) Post(ctx context.Context, id, override, actor string) (out domain.Review, err error) {
	ctx, end := c.span(ctx, "reply.post", id)
	defer func() { end(err) }()

	r, err := c.reviews.GetReview(ctx, id)
	if err != nil {
		return domain.Review{}, err
	}
	text, err := r.ReplyToPost(override)
	if err != nil {
		return r, err
	}
	if err := CheckPreconditions(r.ExternalRef, text); err != nil {
		return r, err
	}

	from := r.ReplyStatus
	pubErr := c.pub.Publish(ctx, r.AccountID, r.ExternalRef, text)
	sctx := context.WithoutCancel(ctx)
	if pubErr != nil {
		log.Error().Err(pubErr).Str("review_id", id).Str("from", string(from)).Msg("reply publication failed")
		if from == domain.StatusPosted {
			return r, pubErr
		}
		r.MarkFailed(text)
		if err := c.reviews.SaveReply(sctx, r); err != nil {
			return r, errors.Join(pubErr, fmt.Errorf("record failed state: %w", err))
		}
		c.transition("post", id, from, r.ReplyStatus, len(text))
		return r, pubErr
	}

	r.MarkPosted(text, actor, c.now())
	if err := c.reviews.SaveReply(sctx, r); err != nil {
		log.Error().Err(err).Str("review_id", id).Msg("reply was published but recording it failed")
		return r, fmt.Errorf("record posted state: %w", err)
	}
	c.transition("post", id, from, r.ReplyStatus, len(text))
	return r, nil
}

func (c *Controller) transition(op, id string, from, to domain.ReplyStatus, textLen int) {
	observability.ObserveTransition(op, string(to))
	log.Info().
		Str("op", op).
		Str("review_id", id).
		Str("from", string(from)).
		Str("to", string(to)).
		Int("reply_len", textLen).
		Msg("reply transition")
}

func (c *Controller) span(ctx context.Context, name, id string) (context.Context, func(error)) {
	ctx, sp := c.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("review.id", id)))
	return ctx, func(err error) {
		if err != nil {
			sp.RecordError(err)
			sp.SetStatus(codes.Error, string(domain.KindOf(err)))
		}
		sp.End()
	}
}
