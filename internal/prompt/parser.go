// Package prompt turns business configuration and review data into AI prompts.
//
// Templates use double-brace placeholders whose names contain only uppercase
// letters, digits and underscores, e.g. {{BUSINESS_NAME}}. Anything else,
// including malformed or lowercase tokens, is literal text.
package prompt

import (
	"regexp"
	"strings"
)

type SegmentKind string

const (
	SegmentText     SegmentKind = "text"
	SegmentVariable SegmentKind = "variable"
)

type VariableKind string

const (
	Known   VariableKind = "known"
	Unknown VariableKind = "unknown"
)

// Segment is either literal text or a variable. For variables, Content is the
// original token until resolved and the substituted value afterwards.
type Segment struct {
	Kind          SegmentKind  `json:"kind"`
	Content       string       `json:"content"`
	VariableKind  VariableKind `json:"variable_kind,omitempty"`
	OriginalToken string       `json:"original_token,omitempty"`
	Name          string       `json:"name,omitempty"`
}

// Tokenizer finds placeholder spans in a template. Each match is
// [start, end, nameStart, nameEnd] like regexp submatch indexes.
type Tokenizer interface {
	FindAll(s string) [][]int
}

type regexTokenizer struct{ re *regexp.Regexp }

func (t regexTokenizer) FindAll(s string) [][]int { return t.re.FindAllStringSubmatchIndex(s, -1) }

var tokenPattern = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

// DefaultTokenizer implements the {{NAME}} grammar.
var DefaultTokenizer Tokenizer = regexTokenizer{re: tokenPattern}

func Token(name string) string { return "{{" + name + "}}" }

// TokenName strips surrounding braces; "{{RATING}}" and "RATING" both yield "RATING".
func TokenName(token string) string {
	if strings.HasPrefix(token, "{{") && strings.HasSuffix(token, "}}") && len(token) >= 4 {
		return token[2 : len(token)-2]
	}
	return token
}

// Parse splits a template into ordered segments. It never fails and never emits empty text segments.
func Parse(template string) []Segment {
	return ParseWith(DefaultTokenizer, template)
}

func ParseWith(tk Tokenizer, template string) []Segment {
	matches := tk.FindAll(template)
	segs := make([]Segment, 0, 2*len(matches)+1)
	last := 0
	for _, m := range matches {
		if m[0] > last {
			segs = append(segs, Segment{Kind: SegmentText, Content: template[last:m[0]]})
		}
		tok := template[m[0]:m[1]]
		name := template[m[2]:m[3]]
		segs = append(segs, Segment{
			Kind:          SegmentVariable,
			Content:       tok,
			VariableKind:  Classify(name),
			OriginalToken: tok,
			Name:          name,
		})
		last = m[1]
	}
	if last < len(template) {
		segs = append(segs, Segment{Kind: SegmentText, Content: template[last:]})
	}
	return segs
}

// Render concatenates segment contents.
func Render(segs []Segment) string {
	var sb strings.Builder
	for _, s := range segs {
		sb.WriteString(s.Content)
	}
	return sb.String()
}

// HasPlaceholder reports whether s still contains placeholder syntax.
func HasPlaceholder(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "}}")
}
