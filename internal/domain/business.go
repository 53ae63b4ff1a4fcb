package domain

import "strings"

type Tone string

const (
	ToneFriendly     Tone = "friendly"
	ToneFormal       Tone = "formal"
	ToneHumorous     Tone = "humorous"
	ToneProfessional Tone = "professional"
)

var toneLabels = map[Tone]string{
	ToneFriendly:     "Friendly and warm",
	ToneFormal:       "Formal and polite",
	ToneHumorous:     "Light-hearted and humorous",
	ToneProfessional: "Professional and courteous",
}

// Label returns the display label used in prompts. Unknown tones fall back to the friendly label.
func (t Tone) Label() string {
	if l, ok := toneLabels[t]; ok {
		return l
	}
	return toneLabels[ToneFriendly]
}

func (t Tone) Valid() bool {
	_, ok := toneLabels[t]
	return ok
}

type LanguageMode string

const (
	LanguageFixed LanguageMode = "fixed-language"
	LanguageAuto  LanguageMode = "auto-detect"
)

const (
	DefaultMaxSentences  = 2
	DefaultFixedLanguage = "English"
	autoLanguageLabel    = "the same language as the review"
)

// LanguageLabel maps a language mode to its display label. The fixed mode names the language itself.
func LanguageLabel(mode LanguageMode, fixed string) string {
	if mode == LanguageFixed {
		if s := strings.TrimSpace(fixed); s != "" {
			return s
		}
		return DefaultFixedLanguage
	}
	return autoLanguageLabel
}

func (m LanguageMode) Valid() bool { return m == LanguageFixed || m == LanguageAuto }

type StarConfig struct {
	CustomInstructions string `json:"custom_instructions" yaml:"custom_instructions"`
	AutoReply          bool   `json:"auto_reply" yaml:"auto_reply"`
}

// BusinessConfig is read-only here; the configuration-management system owns writes.
type BusinessConfig struct {
	ID            string             `json:"id" yaml:"id"`
	Name          string             `json:"name" yaml:"name"`
	Description   string             `json:"description" yaml:"description"`
	Phone         string             `json:"phone" yaml:"phone"`
	Tone          Tone               `json:"tone" yaml:"tone"`
	LanguageMode  LanguageMode       `json:"language_mode" yaml:"language_mode"`
	FixedLanguage string             `json:"fixed_language,omitempty" yaml:"fixed_language"`
	MaxSentences  int                `json:"max_sentences" yaml:"max_sentences"`
	AllowedEmojis []string           `json:"allowed_emojis" yaml:"allowed_emojis"`
	Signature     string             `json:"signature" yaml:"signature"`
	StarConfigs   map[int]StarConfig `json:"star_configs" yaml:"star_configs"`
}

// DefaultBusinessConfig returns a fresh default configuration on every call.
func DefaultBusinessConfig(name string) BusinessConfig {
	stars := make(map[int]StarConfig, 5)
	for r := MinRating; r <= MaxRating; r++ {
		stars[r] = StarConfig{}
	}
	return BusinessConfig{
		Name:          name,
		Tone:          ToneFriendly,
		LanguageMode:  LanguageAuto,
		FixedLanguage: DefaultFixedLanguage,
		MaxSentences:  DefaultMaxSentences,
		AllowedEmojis: []string{},
		StarConfigs:   stars,
	}
}

// WithDefaults fills every optional field so read sites never need fallbacks.
// The receiver is not modified; maps and slices are copied.
func (b BusinessConfig) WithDefaults() BusinessConfig {
	out := b
	if !out.Tone.Valid() {
		out.Tone = ToneFriendly
	}
	if !out.LanguageMode.Valid() {
		out.LanguageMode = LanguageAuto
	}
	if strings.TrimSpace(out.FixedLanguage) == "" {
		out.FixedLanguage = DefaultFixedLanguage
	}
	if out.MaxSentences <= 0 {
		out.MaxSentences = DefaultMaxSentences
	}
	out.AllowedEmojis = append([]string{}, b.AllowedEmojis...)
	stars := make(map[int]StarConfig, 5)
	for r := MinRating; r <= MaxRating; r++ {
		stars[r] = b.StarConfigs[r] // zero value when absent
	}
	out.StarConfigs = stars
	return out
}

// Star returns the configuration for a rating; missing or out-of-range ratings yield the zero value.
func (b BusinessConfig) Star(rating int) StarConfig {
	return b.StarConfigs[rating]
}

// EffectiveSignature falls back to a business-name-derived signature when none is set.
func (b BusinessConfig) EffectiveSignature(businessName string) string {
	if s := strings.TrimSpace(b.Signature); s != "" {
		return s
	}
	name := strings.TrimSpace(businessName)
	if name == "" {
		name = strings.TrimSpace(b.Name)
	}
	return strings.TrimSpace("Team " + name)
}

// AutoReplyEnabled reports whether a new review with this rating may be generated and posted without approval.
func (b BusinessConfig) AutoReplyEnabled(rating int) bool {
	return b.Star(rating).AutoReply
}
