package app_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"replypilot/internal/domain"
)

// ---- fakes ----

type fakeReviews struct {
	mu    sync.Mutex
	items map[string]domain.Review
	saves int
}

func newFakeReviews(rs ...domain.Review) *fakeReviews {
	f := &fakeReviews{items: map[string]domain.Review{}}
	for _, r := range rs {
		f.items[r.ID] = r
	}
	return f
}

func (f *fakeReviews) GetReview(ctx context.Context, id string) (domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return domain.Review{}, fmt.Errorf("%w: review %s", domain.ErrNotFound, id)
	}
	return r, nil
}

func (f *fakeReviews) SaveReply(ctx context.Context, r domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	f.items[r.ID] = r
	return nil
}

func (f *fakeReviews) ListAwaitingReply(ctx context.Context, limit int) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Review
	for _, r := range f.items {
		if r.ReplyStatus == domain.StatusPending && r.AIReply == nil {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeReviews) get(id string) domain.Review {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

type fakeBusinesses struct {
	mu    sync.Mutex
	items map[string]domain.BusinessConfig
	calls int
}

func (f *fakeBusinesses) GetBusiness(ctx context.Context, id string) (domain.BusinessConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	b, ok := f.items[id]
	if !ok {
		return domain.BusinessConfig{}, fmt.Errorf("%w: business %s", domain.ErrNotFound, id)
	}
	return b, nil
}

// fakeGen is a Generator (post-retry) returning a scripted result.
type fakeGen struct {
	mu      sync.Mutex
	text    string
	err     error
	prompts []string
}

func (g *fakeGen) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type publishCall struct{ account, ref, text string }

type fakePub struct {
	mu    sync.Mutex
	err   error
	calls []publishCall
	// after runs once the call is recorded, e.g. to cancel the caller's context.
	after func()
}

func (p *fakePub) Publish(ctx context.Context, accountID, ref, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, publishCall{accountID, ref, text})
	if p.after != nil {
		p.after()
	}
	return p.err
}

// fakeCompleter is a TextGenerator returning results in order; the last one repeats.
type fakeCompleter struct {
	results []completion
	calls   int
}

type completion struct {
	text string
	err  error
}

func (c *fakeCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	i := c.calls
	if i >= len(c.results) {
		i = len(c.results) - 1
	}
	c.calls++
	return c.results[i].text, c.results[i].err
}

type fakePlatform struct {
	err   error
	calls int
	token string
}

func (p *fakePlatform) PostReply(ctx context.Context, ref, text, token string) error {
	p.calls++
	p.token = token
	return p.err
}

type fakeCreds struct {
	token string
	err   error
}

func (c fakeCreds) AccessToken(ctx context.Context, accountID string) (string, error) {
	return c.token, c.err
}

type fakeCache struct {
	store map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(v, dst)
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	c.store[key] = b
	return err
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, domain.ErrLocked
	}
	l.held[key] = true
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
		return nil
	}, nil
}

// ---- fixtures ----

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testBusiness() domain.BusinessConfig {
	b := domain.DefaultBusinessConfig("Corner Café")
	b.ID = "biz-1"
	b.Phone = "555-0100"
	b.StarConfigs[1] = domain.StarConfig{CustomInstructions: "Apologize and offer phone contact"}
	b.StarConfigs[5] = domain.StarConfig{CustomInstructions: "Invite them back", AutoReply: true}
	return b
}

func testReview(id string, rating int) domain.Review {
	return domain.Review{
		ID: id, BusinessID: "biz-1", AccountID: "acc-1", ExternalRef: "reviews/" + id,
		Rating: rating, ReviewerName: "Sam", ReviewText: "Cold coffee",
		ReceivedAt: fixedNow.Add(-time.Hour), ReplyStatus: domain.StatusPending,
	}
}

func ptr[T any](v T) *T { return &v }

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
