package prompt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"replypilot/internal/domain"
)

const (
	NoReviewText = "(no text)"
	NoEmojis     = "none (do not use emojis)"
	notProvided  = "(not provided)"
)

// baseTemplate is the fixed generation prompt. It is not user-editable.
const baseTemplate = `You write public replies to customer reviews on behalf of {{BUSINESS_NAME}}.

About the business: {{BUSINESS_DESCRIPTION}}
Contact phone: {{BUSINESS_PHONE}}

Rules:
- Tone of voice: {{TONE}}
- Reply language: {{LANGUAGE}}
- Write at most {{MAX_SENTENCES}} sentences.
- Emojis you may use: {{ALLOWED_EMOJIS}}
- End the reply with this signature: {{SIGNATURE}}

Instructions by star rating:
- 1 star: {{CUSTOM_INSTRUCTIONS_1}}
- 2 stars: {{CUSTOM_INSTRUCTIONS_2}}
- 3 stars: {{CUSTOM_INSTRUCTIONS_3}}
- 4 stars: {{CUSTOM_INSTRUCTIONS_4}}
- 5 stars: {{CUSTOM_INSTRUCTIONS_5}}

Review to answer:
- Rating: {{RATING}} out of 5
- Reviewer: {{REVIEWER_NAME}}
- Text: {{REVIEW_TEXT}}

Follow the instructions for a {{RATING}}-star review. Return only the reply text.`

// BaseTemplate exposes the generation template for previews and tooling.
func BaseTemplate() string { return baseTemplate }

var (
	openRun  = regexp.MustCompile(`\{\{+`)
	closeRun = regexp.MustCompile(`\}\}+`)
)

// neutralize collapses brace runs in user-supplied values so they cannot read as placeholders.
func neutralize(s string) string {
	return closeRun.ReplaceAllString(openRun.ReplaceAllString(s, "{"), "}")
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Context returns every placeholder value for the generation prompt, keyed by name.
func Context(business domain.BusinessConfig, review domain.ReviewData, businessName, businessPhone string) map[string]string {
	b := business.WithDefaults()
	if strings.TrimSpace(businessName) != "" {
		b.Name = businessName
	}
	if strings.TrimSpace(businessPhone) != "" {
		b.Phone = businessPhone
	}

	ctx := make(map[string]string, 16)
	for _, name := range KnownVariables() {
		v, _ := knownValue(name, b)
		ctx[name] = v
	}
	ctx[VarBusinessDescription] = orDefault(ctx[VarBusinessDescription], notProvided)
	ctx[VarBusinessPhone] = orDefault(ctx[VarBusinessPhone], notProvided)
	ctx[VarAllowedEmojis] = orDefault(ctx[VarAllowedEmojis], NoEmojis)
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		ctx[CustomInstructionsVar(r)] = orDefault(ctx[CustomInstructionsVar(r)], notProvided)
	}

	ctx[VarRating] = strconv.Itoa(review.Rating)
	ctx[VarReviewerName] = review.ReviewerName
	ctx[VarReviewText] = orDefault(review.ReviewText, NoReviewText)

	for k, v := range ctx {
		ctx[k] = neutralize(v)
	}
	return ctx
}

// Build renders the fixed generation template in a single substitution pass.
// Output is never truncated. ErrResolutionGap is returned if placeholder syntax survives.
func Build(business domain.BusinessConfig, review domain.ReviewData, businessName, businessPhone string) (string, error) {
	if err := domain.ValidRating(review.Rating); err != nil {
		return "", err
	}
	return render(baseTemplate, Context(business, review, businessName, businessPhone))
}

func render(template string, ctx map[string]string) (string, error) {
	pairs := make([]string, 0, 2*len(ctx))
	for k, v := range ctx {
		pairs = append(pairs, Token(k), v)
	}
	out := strings.NewReplacer(pairs...).Replace(template)
	if HasPlaceholder(out) {
		var missing []string
		for _, s := range Parse(out) {
			if s.Kind == SegmentVariable {
				missing = append(missing, s.Name)
			}
		}
		return "", fmt.Errorf("%w: %s", domain.ErrResolutionGap, strings.Join(missing, ", "))
	}
	return out, nil
}
