package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"replypilot/internal/adapters/observability"
	"replypilot/internal/domain"
)

const DefaultModel = "gemini-2.0-flash"

// Client completes prompts with a Gemini model. Each error is classified as
// domain.ErrGenerationTransient or domain.ErrGenerationRejected.
type Client struct {
	client *genai.Client
	model  string
	config *genai.GenerateContentConfig
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{
		client: c,
		model:  model,
		config: &genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(0.7)),
			MaxOutputTokens: 512,
		},
	}, nil
}

func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, c.config)
	if err != nil {
		observability.ObserveExternal("gemini", "generate", statusOf(err), time.Since(start))
		return "", classifyErr(err)
	}
	observability.ObserveExternal("gemini", "generate", http.StatusOK, time.Since(start))
	return textOf(resp)
}

// textOf extracts the reply, treating safety blocks as rejections and empty output as transient.
func textOf(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", domain.ErrGenerationTransient)
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return "", fmt.Errorf("%w: prompt blocked: %s", domain.ErrGenerationRejected, fb.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", domain.ErrGenerationTransient)
	}
	switch resp.Candidates[0].FinishReason {
	case genai.FinishReasonSafety, genai.FinishReasonProhibitedContent, genai.FinishReasonBlocklist, genai.FinishReasonSPII:
		return "", fmt.Errorf("%w: finish reason %s", domain.ErrGenerationRejected, resp.Candidates[0].FinishReason)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: empty completion", domain.ErrGenerationTransient)
	}
	return text, nil
}

func apiError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}

func statusOf(err error) int {
	if ae, ok := apiError(err); ok {
		return ae.Code
	}
	return 0
}

func classifyErr(err error) error {
	if ae, ok := apiError(err); ok {
		switch {
		case ae.Code == http.StatusTooManyRequests, ae.Code == http.StatusRequestTimeout, ae.Code >= 500:
			return fmt.Errorf("%w: provider status %d: %s", domain.ErrGenerationTransient, ae.Code, ae.Message)
		case ae.Code >= 400:
			return fmt.Errorf("%w: provider status %d: %s", domain.ErrGenerationRejected, ae.Code, ae.Message)
		}
	}
	var ne net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", domain.ErrGenerationTransient, err)
	case errors.As(err, &ne):
		return fmt.Errorf("%w: network: %w", domain.ErrGenerationTransient, err)
	}
	return fmt.Errorf("%w: %w", domain.ErrGenerationTransient, err)
}
