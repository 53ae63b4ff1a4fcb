package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"replypilot/internal/adapters/observability"
	"replypilot/internal/domain"
)

// AutoReplyActor is recorded as posted_by for replies the policy posts without approval.
const AutoReplyActor = "auto-reply"

type AutoReplySummary struct {
	Seen      int
	Generated int
	Posted    int
	Skipped   int
	Failed    int
}

// AutoReplyService applies the per-rating auto-reply policy to reviews awaiting a reply.
// Every review gets a draft; ratings with autoReply enabled are also posted.
type AutoReplyService struct {
	reviews    domain.ReviewRepository
	businesses BusinessSource
	ctl        *Controller
	locker     domain.Locker
	lockTTL    time.Duration
	workers    int
}

func NewAutoReplyService(r domain.ReviewRepository, b BusinessSource, ctl *Controller, l domain.Locker, lockTTL time.Duration, workers int) *AutoReplyService {
	if workers <= 0 {
		workers = 1
	}
	return &AutoReplyService{reviews: r, businesses: b, ctl: ctl, locker: l, lockTTL: lockTTL, workers: workers}
}

func PostLockKey(reviewID string) string { return fmt.Sprintf("lock:post:%s", reviewID) }

// Run processes one batch. Per-review failures are logged and counted; they never abort the batch.
func (s *AutoReplyService) Run(ctx context.Context, batch int) (AutoReplySummary, error) {
	pending, err := s.reviews.ListAwaitingReply(ctx, batch)
	if err != nil {
		return AutoReplySummary{}, fmt.Errorf("list awaiting reply: %w", err)
	}

	var (
		mu  sync.Mutex
		sum = AutoReplySummary{Seen: len(pending)}
		wg  sync.WaitGroup
		sem = semaphore.NewWeighted(int64(s.workers))
	)
	count := func(f func(*AutoReplySummary)) {
		mu.Lock()
		f(&sum)
		mu.Unlock()
	}

	for _, rv := range pending {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(rv domain.Review) {
			defer wg.Done()
			defer sem.Release(1)
			s.handle(ctx, rv, count)
		}(rv)
	}
	wg.Wait()
	return sum, ctx.Err()
}

func (s *AutoReplyService) handle(ctx context.Context, rv domain.Review, count func(func(*AutoReplySummary))) {
	l := observability.Component("autoreply").With().Str("review_id", rv.ID).Int("rating", rv.Rating).Logger()

	if err := domain.ValidRating(rv.Rating); err != nil {
		l.Warn().Err(err).Msg("auto-reply skipped")
		count(func(x *AutoReplySummary) { x.Skipped++ })
		return
	}
	biz, err := s.businesses.GetBusiness(ctx, rv.BusinessID)
	if err != nil {
		l.Warn().Err(err).Msg("auto-reply: business lookup failed")
		count(func(x *AutoReplySummary) { x.Failed++ })
		return
	}

	if _, err := s.ctl.Generate(ctx, rv.ID); err != nil {
		l.Warn().Err(err).Str("kind", string(domain.KindOf(err))).Msg("auto-reply: draft generation failed")
		count(func(x *AutoReplySummary) { x.Failed++ })
		return
	}
	count(func(x *AutoReplySummary) { x.Generated++ })

	if !biz.AutoReplyEnabled(rv.Rating) {
		return
	}

	release, err := s.locker.Acquire(ctx, PostLockKey(rv.ID), s.lockTTL)
	if err != nil {
		l.Info().Err(err).Msg("auto-reply: post lock busy, leaving draft for approval")
		count(func(x *AutoReplySummary) { x.Skipped++ })
		return
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			l.Warn().Err(err).Msg("auto-reply: release post lock")
		}
	}()

	if _, err := s.ctl.Post(ctx, rv.ID, "", AutoReplyActor); err != nil {
		l.Error().Err(err).Str("kind", string(domain.KindOf(err))).Msg("auto-reply: post failed")
		count(func(x *AutoReplySummary) { x.Failed++ })
		return
	}
	count(func(x *AutoReplySummary) { x.Posted++ })
}
