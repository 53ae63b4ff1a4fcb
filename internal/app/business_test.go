package app_test

import (
	"context"
	"testing"
	"time"

	"replypilot/internal/app"
	"replypilot/internal/domain"
)

func TestGetBusiness_CacheMissThenHit(t *testing.T) {
	repo := &fakeBusinesses{items: map[string]domain.BusinessConfig{"biz-1": {ID: "biz-1", Name: "Corner Café"}}}
	cache := &fakeCache{}
	q := app.NewBusinessReader(repo, cache, 10*time.Minute)

	// Miss (first time, populates cache)
	b, err := q.GetBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if b.Name != "Corner Café" || b.MaxSentences != domain.DefaultMaxSentences || len(b.StarConfigs) != 5 {
		t.Fatalf("defaults not applied: %+v", b)
	}

	// Mutate repo to ensure second read indeed comes from cache
	repo.items["biz-1"] = domain.BusinessConfig{ID: "biz-1", Name: "SHOULD NOT SEE THIS"}

	b2, err := q.GetBusiness(context.Background(), "biz-1")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if b2.Name != "Corner Café" || repo.calls != 1 {
		t.Fatalf("expected cached config, got %q after %d repo calls", b2.Name, repo.calls)
	}

	if err := q.Invalidate(context.Background(), "biz-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	b3, _ := q.GetBusiness(context.Background(), "biz-1")
	if b3.Name != "SHOULD NOT SEE THIS" {
		t.Fatalf("expected fresh config after invalidate, got %q", b3.Name)
	}
}

func TestGetBusiness_NoCache(t *testing.T) {
	repo := &fakeBusinesses{items: map[string]domain.BusinessConfig{}}
	q := app.NewBusinessReader(repo, nil, time.Minute)
	if _, err := q.GetBusiness(context.Background(), "missing"); domain.KindOf(err) != domain.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
