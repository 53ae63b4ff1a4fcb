package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// ReviewData is the review-bound input to prompt building.
type ReviewData struct {
	Rating       int
	ReviewerName string
	ReviewText   string
}

type ReplyStatus string

const (
	StatusPending  ReplyStatus = "pending"
	StatusRejected ReplyStatus = "rejected"
	StatusPosted   ReplyStatus = "posted"
	StatusFailed   ReplyStatus = "failed"
)

// Review is created by ingestion and mutated only through the transition methods below.
type Review struct {
	ID                 string      `json:"id"`
	BusinessID         string      `json:"business_id"`
	AccountID          string      `json:"account_id"`
	ExternalRef        string      `json:"external_ref"` // platform-specific review identifier
	Rating             int         `json:"rating"`
	ReviewerName       string      `json:"reviewer_name"`
	ReviewText         string      `json:"review_text"`
	ReceivedAt         time.Time   `json:"received_at"`
	AIReply            *string     `json:"ai_reply,omitempty"`
	AIReplyGeneratedAt *time.Time  `json:"ai_reply_generated_at,omitempty"`
	AIReplyEdited      bool        `json:"ai_reply_edited"`
	ReplyStatus        ReplyStatus `json:"reply_status"`
	PostedReply        *string     `json:"posted_reply,omitempty"`
	PostedAt           *time.Time  `json:"posted_at,omitempty"`
	PostedBy           *string     `json:"posted_by,omitempty"`
}

func (r Review) Data() ReviewData {
	return ReviewData{Rating: r.Rating, ReviewerName: r.ReviewerName, ReviewText: r.ReviewText}
}

// CurrentReply returns the stored AI reply or "".
func (r Review) CurrentReply() string {
	if r.AIReply == nil {
		return ""
	}
	return *r.AIReply
}

func ValidRating(n int) error {
	if n < MinRating || n > MaxRating {
		return fmt.Errorf("%w: %d", ErrInvalidRating, n)
	}
	return nil
}

// ApplyGenerated stores a fresh AI reply and re-enters pending.
func (r *Review) ApplyGenerated(text string, at time.Time) error {
	if r.ReplyStatus == StatusPosted {
		return fmt.Errorf("%w: generate on %s review", ErrInvalidTransition, r.ReplyStatus)
	}
	r.AIReply = &text
	r.AIReplyGeneratedAt = &at
	r.AIReplyEdited = false
	r.ReplyStatus = StatusPending
	return nil
}

// ApplyEdit overwrites the reply text without touching the status.
func (r *Review) ApplyEdit(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: reply text is empty", ErrInvalidInput)
	}
	r.AIReply = &text
	r.AIReplyEdited = true
	return nil
}

// Reject keeps the reply text for reference.
func (r *Review) Reject() error {
	if r.ReplyStatus == StatusPosted {
		return fmt.Errorf("%w: reject on %s review", ErrInvalidTransition, r.ReplyStatus)
	}
	r.ReplyStatus = StatusRejected
	return nil
}

// ReplyToPost picks the override when given, else the stored reply.
func (r Review) ReplyToPost(override string) (string, error) {
	if s := strings.TrimSpace(override); s != "" {
		return override, nil
	}
	if strings.TrimSpace(r.CurrentReply()) != "" {
		return r.CurrentReply(), nil
	}
	return "", ErrNoReplyToPost
}

func (r *Review) MarkPosted(text, by string, at time.Time) {
	r.AIReply = &text
	r.ReplyStatus = StatusPosted
	r.PostedReply = &text
	r.PostedAt = &at
	r.PostedBy = &by
}

// MarkFailed clears the posted fields: they are set only while posted.
func (r *Review) MarkFailed(text string) {
	r.AIReply = &text
	r.ReplyStatus = StatusFailed
	r.PostedReply = nil
	r.PostedAt = nil
	r.PostedBy = nil
}
