package prompt

import (
	"strconv"
	"strings"

	"replypilot/internal/domain"
)

const (
	VarBusinessName        = "BUSINESS_NAME"
	VarBusinessDescription = "BUSINESS_DESCRIPTION"
	VarBusinessPhone       = "BUSINESS_PHONE"
	VarTone                = "TONE"
	VarLanguage            = "LANGUAGE"
	VarMaxSentences        = "MAX_SENTENCES"
	VarSignature           = "SIGNATURE"
	VarAllowedEmojis       = "ALLOWED_EMOJIS"
	VarReviewerName        = "REVIEWER_NAME"
	VarRating              = "RATING"
	VarReviewText          = "REVIEW_TEXT"
	customPrefix           = "CUSTOM_INSTRUCTIONS_"
)

// CustomInstructionsVar names the per-rating instruction placeholder.
func CustomInstructionsVar(rating int) string { return customPrefix + strconv.Itoa(rating) }

// KnownVariables lists every configuration-resolvable placeholder in display order.
func KnownVariables() []string {
	out := []string{
		VarBusinessName, VarBusinessDescription, VarBusinessPhone, VarTone, VarLanguage,
		VarMaxSentences, VarSignature, VarAllowedEmojis,
	}
	for r := domain.MinRating; r <= domain.MaxRating; r++ {
		out = append(out, CustomInstructionsVar(r))
	}
	return out
}

// ReviewVariables are only resolvable with a concrete review.
func ReviewVariables() []string { return []string{VarReviewerName, VarRating, VarReviewText} }

func customRating(name string) (int, bool) {
	suffix, ok := strings.CutPrefix(name, customPrefix)
	if !ok || len(suffix) != 1 {
		return 0, false
	}
	n := int(suffix[0] - '0')
	if n < domain.MinRating || n > domain.MaxRating {
		return 0, false
	}
	return n, true
}

// Classify reports whether a placeholder name resolves from configuration alone.
func Classify(name string) VariableKind {
	switch name {
	case VarBusinessName, VarBusinessDescription, VarBusinessPhone, VarTone, VarLanguage,
		VarMaxSentences, VarSignature, VarAllowedEmojis:
		return Known
	}
	if _, ok := customRating(name); ok {
		return Known
	}
	return Unknown
}

func IsKnown(name string) bool { return Classify(TokenName(name)) == Known }

type Resolution struct {
	Value string
	Kind  VariableKind
}

// Resolve returns the substitution for a known placeholder. Review-bound and
// unrecognized tokens come back exactly as given, tagged Unknown.
// The review argument is accepted for symmetry with full rendering and is not read here.
func Resolve(token string, business domain.BusinessConfig, _ domain.ReviewData) Resolution {
	name := TokenName(token)
	if v, ok := knownValue(name, business); ok {
		return Resolution{Value: v, Kind: Known}
	}
	return Resolution{Value: token, Kind: Unknown}
}

func knownValue(name string, b domain.BusinessConfig) (string, bool) {
	switch name {
	case VarBusinessName:
		return b.Name, true
	case VarBusinessDescription:
		return b.Description, true
	case VarBusinessPhone:
		return b.Phone, true
	case VarTone:
		return b.Tone.Label(), true
	case VarLanguage:
		return domain.LanguageLabel(b.LanguageMode, b.FixedLanguage), true
	case VarMaxSentences:
		n := b.MaxSentences
		if n <= 0 {
			n = domain.DefaultMaxSentences
		}
		return strconv.Itoa(n), true
	case VarSignature:
		return b.EffectiveSignature(b.Name), true
	case VarAllowedEmojis:
		return strings.Join(b.AllowedEmojis, " "), true
	}
	if r, ok := customRating(name); ok {
		return b.Star(r).CustomInstructions, true
	}
	return "", false
}

// ResolveSegments returns a copy of segs with known variables substituted.
func ResolveSegments(segs []Segment, business domain.BusinessConfig, review domain.ReviewData) []Segment {
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = s
		if s.Kind != SegmentVariable {
			continue
		}
		res := Resolve(s.OriginalToken, business, review)
		out[i].Content = res.Value
		out[i].VariableKind = res.Kind
	}
	return out
}

// Preview parses a template and resolves only configuration-derived placeholders,
// leaving review-bound ones visible for an admin preview.
func Preview(template string, business domain.BusinessConfig) []Segment {
	return ResolveSegments(Parse(template), business, domain.ReviewData{})
}
