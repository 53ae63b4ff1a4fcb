package app

import (
	"context"
	crand "crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"replypilot/internal/adapters/observability"
	"replypilot/internal/domain"
)

// MaxPromptRunes is the validation boundary enforced before calling the provider.
const MaxPromptRunes = 30_000

type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Timeout bounds each provider call.
	Timeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond, MaxDelay: 5 * time.Second, Timeout: 30 * time.Second}
}

type GenerationService struct {
	gen     domain.TextGenerator
	policy  RetryPolicy
	breaker *gobreaker.CircuitBreaker
	sleep   func(ctx context.Context, d time.Duration) bool
}

func NewGenerationService(g domain.TextGenerator, p RetryPolicy) *GenerationService {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.Timeout <= 0 {
		p.Timeout = DefaultRetryPolicy().Timeout
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ai-provider",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 5 },
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
		// provider rejections are answers, not outages
		IsSuccessful: func(err error) bool { return err == nil || errors.Is(err, domain.ErrGenerationRejected) },
	})
	return &GenerationService{gen: g, policy: p, breaker: cb, sleep: sleepCtx}
}

// WithSleep replaces the backoff sleeper; tests use it to skip real waits.
func (s *GenerationService) WithSleep(fn func(ctx context.Context, d time.Duration) bool) *GenerationService {
	s.sleep = fn
	return s
}

// Generate returns reply text. Rejections surface immediately; transient failures are retried
// up to MaxAttempts and then surface wrapped in ErrRetriesExhausted.
func (s *GenerationService) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("%w: empty prompt", domain.ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(prompt); n > MaxPromptRunes {
		return "", fmt.Errorf("%w: %d > %d", domain.ErrPromptTooLong, n, MaxPromptRunes)
	}

	var lastErr error
	for i := 0; i < s.policy.MaxAttempts; i++ {
		if i > 0 {
			if !s.sleep(ctx, backoff(s.policy.BaseDelay, s.policy.MaxDelay, i-1)) {
				return "", fmt.Errorf("%w: %w", domain.ErrGenerationTransient, ctx.Err())
			}
		}

		text, err := s.attempt(ctx, prompt)
		if err == nil {
			observability.ObserveGeneration("ok")
			return text, nil
		}
		if errors.Is(err, domain.ErrGenerationRejected) {
			observability.ObserveGeneration("rejected")
			return "", err
		}
		if ctx.Err() != nil {
			observability.ObserveGeneration("canceled")
			return "", fmt.Errorf("%w: %w", domain.ErrGenerationTransient, ctx.Err())
		}
		observability.ObserveGeneration("transient")
		log.Warn().Err(err).Int("attempt", i+1).Int("max", s.policy.MaxAttempts).Msg("generation attempt failed")
		lastErr = err
	}
	observability.ObserveGeneration("exhausted")
	return "", fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, s.policy.MaxAttempts, lastErr)
}

func (s *GenerationService) attempt(ctx context.Context, prompt string) (string, error) {
	actx, cancel := context.WithTimeout(ctx, s.policy.Timeout)
	defer cancel()

	out, err := s.breaker.Execute(func() (interface{}, error) {
		text, err := s.gen.Complete(actx, prompt)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: empty completion", domain.ErrGenerationTransient)
		}
		return strings.TrimSpace(text), nil
	})
	if err != nil {
		return "", classifyGeneration(err)
	}
	return out.(string), nil
}

// classifyGeneration makes every failure either rejected or transient.
func classifyGeneration(err error) error {
	switch {
	case errors.Is(err, domain.ErrGenerationRejected), errors.Is(err, domain.ErrGenerationTransient):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: provider circuit open: %w", domain.ErrGenerationTransient, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: timeout: %w", domain.ErrGenerationTransient, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrGenerationTransient, err)
	}
}

// sleepCtx waits for d or returns false early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// backoff doubles base per retry, caps at max, and adds up to +50% jitter.
func backoff(base, maxDelay time.Duration, i int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := time.Duration(1<<i) * base
	if maxDelay > 0 && d > maxDelay {
		d = maxDelay
	}
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return d
	}
	f := float64(b[0]) / 255.0
	return d + time.Duration(0.5*f*float64(d))
}
