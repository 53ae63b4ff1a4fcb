package app_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"replypilot/internal/app"
	"replypilot/internal/domain"
)

func noSleep(ctx context.Context, d time.Duration) bool { return ctx.Err() == nil }

func newGenService(c *fakeCompleter, attempts int) *app.GenerationService {
	p := app.DefaultRetryPolicy()
	p.MaxAttempts = attempts
	return app.NewGenerationService(c, p).WithSleep(noSleep)
}

func TestGenerationService_TransientThenSuccess(t *testing.T) {
	c := &fakeCompleter{results: []completion{
		{err: domain.ErrGenerationTransient},
		{text: "  Thank you!  "},
	}}
	out, err := newGenService(c, 3).Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if out != "Thank you!" || c.calls != 2 {
		t.Fatalf("got %q after %d calls", out, c.calls)
	}
}

func TestGenerationService_RejectedNotRetried(t *testing.T) {
	c := &fakeCompleter{results: []completion{{err: domain.ErrGenerationRejected}}}
	_, err := newGenService(c, 3).Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrGenerationRejected) || domain.KindOf(err) != domain.KindGenerationRejected {
		t.Fatalf("expected rejected, got %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("rejection retried: %d calls", c.calls)
	}
}

func TestGenerationService_ExhaustedKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	c := &fakeCompleter{results: []completion{{err: cause}}}
	_, err := newGenService(c, 3).Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrRetriesExhausted) || !errors.Is(err, cause) {
		t.Fatalf("expected exhausted wrapping cause, got %v", err)
	}
	if domain.KindOf(err) != domain.KindGenerationExhausted {
		t.Fatalf("kind: %s", domain.KindOf(err))
	}
	if c.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", c.calls)
	}
}

func TestGenerationService_EmptyCompletionIsTransient(t *testing.T) {
	c := &fakeCompleter{results: []completion{{text: "   "}}}
	_, err := newGenService(c, 2).Generate(context.Background(), "prompt")
	if !errors.Is(err, domain.ErrRetriesExhausted) || c.calls != 2 {
		t.Fatalf("expected exhausted after 2 calls, got %v (%d)", err, c.calls)
	}
}

func TestGenerationService_PromptValidation(t *testing.T) {
	c := &fakeCompleter{results: []completion{{text: "x"}}}
	s := newGenService(c, 3)

	if _, err := s.Generate(context.Background(), strings.Repeat("é", app.MaxPromptRunes+1)); !errors.Is(err, domain.ErrPromptTooLong) {
		t.Fatalf("expected prompt too long, got %v", err)
	}
	if _, err := s.Generate(context.Background(), " "); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if c.calls != 0 {
		t.Fatalf("provider called for invalid prompt")
	}
	// the boundary itself is accepted
	if _, err := s.Generate(context.Background(), strings.Repeat("é", app.MaxPromptRunes)); err != nil {
		t.Fatalf("boundary prompt rejected: %v", err)
	}
}

func TestGenerationService_CanceledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &fakeCompleter{results: []completion{{err: domain.ErrGenerationTransient}}}
	s := app.NewGenerationService(c, app.DefaultRetryPolicy()).WithSleep(func(context.Context, time.Duration) bool {
		cancel()
		return false
	})
	_, err := s.Generate(ctx, "prompt")
	if !errors.Is(err, domain.ErrGenerationTransient) || c.calls != 1 {
		t.Fatalf("expected transient after one call, got %v (%d)", err, c.calls)
	}
}
