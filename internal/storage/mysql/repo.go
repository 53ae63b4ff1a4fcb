package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"replypilot/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}
func valNonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
func valJSON(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return string(b), nil
}
func ptrStr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
func ptrTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Repo implements the review, business and credential stores over MySQL.
type Repo struct {
	db  *sql.DB
	now domain.Clock
}

func New(db *sql.DB) *Repo {
	return &Repo{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time used for credential expiry checks.
func (r *Repo) WithClock(now domain.Clock) *Repo {
	r.now = now
	return r
}

func (r *Repo) Ping(ctx context.Context) error { return r.db.PingContext(ctx) }

/********** businesses **********/

func (r *Repo) GetBusiness(ctx context.Context, id string) (domain.BusinessConfig, error) {
	var (
		b                       domain.BusinessConfig
		desc, phone, fixed, sig sql.NullString
		tone, mode              string
		emojis, stars           []byte
	)
	err := r.db.QueryRowContext(ctx, getBusinessSQL, id).Scan(
		&b.ID, &b.Name, &desc, &phone, &tone, &mode, &fixed, &b.MaxSentences, &emojis, &sig, &stars,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BusinessConfig{}, fmt.Errorf("%w: business %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return domain.BusinessConfig{}, err
	}
	b.Description, b.Phone, b.FixedLanguage, b.Signature = desc.String, phone.String, fixed.String, sig.String
	b.Tone, b.LanguageMode = domain.Tone(tone), domain.LanguageMode(mode)

	if len(emojis) > 0 {
		if err := json.Unmarshal(emojis, &b.AllowedEmojis); err != nil {
			return domain.BusinessConfig{}, fmt.Errorf("decode allowed_emojis: %w", err)
		}
	}
	if len(stars) > 0 {
		if err := json.Unmarshal(stars, &b.StarConfigs); err != nil {
			return domain.BusinessConfig{}, fmt.Errorf("decode star_configs: %w", err)
		}
	}
	return b, nil
}

func (r *Repo) UpsertBusiness(ctx context.Context, b domain.BusinessConfig) error {
	emojis, err := valJSON(b.AllowedEmojis)
	if err != nil {
		return err
	}
	stars, err := valJSON(b.StarConfigs)
	if err != nil {
		return err
	}
	tone, mode := string(b.Tone), string(b.LanguageMode)
	if tone == "" {
		tone = string(domain.ToneFriendly)
	}
	if mode == "" {
		mode = string(domain.LanguageAuto)
	}
	_, err = r.db.ExecContext(ctx, upsertBusinessSQL,
		b.ID, b.Name, valNonEmpty(b.Description), valNonEmpty(b.Phone), tone, mode,
		valNonEmpty(b.FixedLanguage), b.MaxSentences, emojis, valNonEmpty(b.Signature), stars,
	)
	return err
}

/********** reviews **********/

type scanner interface{ Scan(dest ...any) error }

func scanReview(s scanner) (domain.Review, error) {
	var (
		rv                        domain.Review
		ref, name, text           sql.NullString
		aiReply, posted, postedBy sql.NullString
		generatedAt, postedAt     sql.NullTime
		status                    string
	)
	if err := s.Scan(
		&rv.ID, &rv.BusinessID, &rv.AccountID, &ref, &rv.Rating, &name, &text, &rv.ReceivedAt,
		&aiReply, &generatedAt, &rv.AIReplyEdited, &status, &posted, &postedAt, &postedBy,
	); err != nil {
		return domain.Review{}, err
	}
	rv.ExternalRef, rv.ReviewerName, rv.ReviewText = ref.String, name.String, text.String
	rv.ReceivedAt = rv.ReceivedAt.UTC()
	rv.AIReply, rv.AIReplyGeneratedAt = ptrStr(aiReply), ptrTime(generatedAt)
	rv.ReplyStatus = domain.ReplyStatus(status)
	rv.PostedReply, rv.PostedAt, rv.PostedBy = ptrStr(posted), ptrTime(postedAt), ptrStr(postedBy)
	return rv, nil
}

func (r *Repo) GetReview(ctx context.Context, id string) (domain.Review, error) {
	rv, err := scanReview(r.db.QueryRowContext(ctx, getReviewSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Review{}, fmt.Errorf("%w: review %s", domain.ErrNotFound, id)
	}
	return rv, err
}

func (r *Repo) ListAwaitingReply(ctx context.Context, limit int) ([]domain.Review, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, listAwaitingSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rv)
	}
	return out, rows.Err()
}

// InsertReview stores a newly received review. Re-inserting updates content only.
func (r *Repo) InsertReview(ctx context.Context, rv domain.Review) error {
	if err := domain.ValidRating(rv.Rating); err != nil {
		return err
	}
	received := rv.ReceivedAt
	if received.IsZero() {
		received = r.now()
	}
	_, err := r.db.ExecContext(ctx, insertReviewSQL,
		rv.ID, rv.BusinessID, rv.AccountID, valNonEmpty(rv.ExternalRef), rv.Rating,
		valNonEmpty(rv.ReviewerName), valNonEmpty(rv.ReviewText), received.UTC(),
	)
	return err
}

// SaveReply persists the reply fields of rv.
func (r *Repo) SaveReply(ctx context.Context, rv domain.Review) error {
	status := rv.ReplyStatus
	if status == "" {
		status = domain.StatusPending
	}
	res, err := r.db.ExecContext(ctx, saveReplySQL,
		valStr(rv.AIReply), valTime(rv.AIReplyGeneratedAt), rv.AIReplyEdited, string(status),
		valStr(rv.PostedReply), valTime(rv.PostedAt), valStr(rv.PostedBy),
		rv.ID,
	)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows for no-op updates, so only a missing row is checked on read
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := r.GetReview(ctx, rv.ID); err != nil {
			return err
		}
	}
	return nil
}

/********** credentials **********/

// AccessToken returns a non-expired token for accountID or domain.ErrCredentials.
func (r *Repo) AccessToken(ctx context.Context, accountID string) (string, error) {
	var (
		token   string
		expires sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, getCredentialSQL, accountID).Scan(&token, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: no credential for account %s", domain.ErrCredentials, accountID)
	}
	if err != nil {
		return "", err
	}
	if expires.Valid && !expires.Time.After(r.now()) {
		return "", fmt.Errorf("%w: credential for account %s expired at %s", domain.ErrCredentials, accountID, expires.Time.UTC().Format(time.RFC3339))
	}
	if strings.TrimSpace(token) == "" {
		return "", fmt.Errorf("%w: empty credential for account %s", domain.ErrCredentials, accountID)
	}
	return token, nil
}

func (r *Repo) PutCredential(ctx context.Context, accountID, token string, expiresAt *time.Time) error {
	_, err := r.db.ExecContext(ctx, upsertCredentialSQL, accountID, token, valTime(expiresAt))
	return err
}
