package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"replypilot/internal/adapters/observability"
	"replypilot/internal/domain"
)

// Client submits replies to the review platform. It performs exactly one
// request per call: reposting is a user decision, never an automatic retry.
type Client struct {
	base string
	hc   *http.Client
	rl   *rate.Limiter
}

func New(base string, rps int, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, fmt.Errorf("platform base URL is required")
	}
	if rps <= 0 {
		rps = 5
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: timeout},
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type replyBody struct {
	Comment string `json:"comment"`
}

// PostReply PUTs text as the reply for reviewRef (the platform's review resource name).
func (c *Client) PostReply(ctx context.Context, reviewRef, text, accessToken string) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(replyBody{Comment: text})
	if err != nil {
		return err
	}
	u := c.base + "/" + strings.TrimLeft(escapePath(reviewRef), "/") + "/reply"
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "replypilot/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("platform", "reply", 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", domain.ErrPublicationFailed, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal("platform", "reply", resp.StatusCode, time.Since(start))

	// read a small body for diagnostics
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return classify(resp, strings.TrimSpace(string(b)))
}

func classify(resp *http.Response, body string) error {
	switch code := resp.StatusCode; {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return fmt.Errorf("%w: status %d: %s", domain.ErrUnauthorized, code, body)
	case code == http.StatusBadRequest, code == http.StatusConflict, code == http.StatusUnprocessableEntity, code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d: %s", domain.ErrPlatformRejected, code, body)
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: rate limited, retry after %s", domain.ErrPublicationFailed, retryAfter(resp))
	default:
		return fmt.Errorf("%w: status %d: %s", domain.ErrPublicationFailed, code, body)
	}
}

// escapePath escapes each segment of a slash separated resource name.
func escapePath(ref string) string {
	parts := strings.Split(ref, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
