package mysql

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replypilot/internal/domain"
)

func newMock(t *testing.T) (*Repo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

var reviewCols = []string{
	"id", "business_id", "account_id", "external_ref", "rating", "reviewer_name", "text", "received_at",
	"ai_reply", "ai_reply_generated_at", "ai_reply_edited", "reply_status", "posted_reply", "posted_at", "posted_by",
}

func TestRepo_GetBusiness_DecodesJSONColumns(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows([]string{"id", "name", "description", "phone", "tone", "language_mode", "fixed_language",
		"max_sentences", "allowed_emojis", "signature", "star_configs"}).
		AddRow("b1", "Bella Napoli", nil, "555", "formal", "fixed-language", "Italian", 3,
			[]byte(`["🍕"]`), nil, []byte(`{"1":{"custom_instructions":"Apologize","auto_reply":false},"5":{"custom_instructions":"","auto_reply":true}}`))
	mock.ExpectQuery(getBusinessSQL).WithArgs("b1").WillReturnRows(rows)

	b, err := repo.GetBusiness(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Bella Napoli", b.Name)
	assert.Equal(t, domain.ToneFormal, b.Tone)
	assert.Equal(t, []string{"🍕"}, b.AllowedEmojis)
	assert.Equal(t, "Apologize", b.StarConfigs[1].CustomInstructions)
	assert.True(t, b.AutoReplyEnabled(5))
	assert.Empty(t, b.Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_GetBusiness_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(getBusinessSQL).WithArgs("nope").WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetBusiness(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_GetReview_NullableFields(t *testing.T) {
	repo, mock := newMock(t)
	received := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(getReviewSQL).WithArgs("r1").WillReturnRows(sqlmock.NewRows(reviewCols).
		AddRow("r1", "b1", "acc1", "reviews/r1", 4, "Ann", "Great", received,
			nil, nil, false, "pending", nil, nil, nil))

	rv, err := repo.GetReview(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 4, rv.Rating)
	assert.Nil(t, rv.AIReply)
	assert.Nil(t, rv.PostedAt)
	assert.Equal(t, domain.StatusPending, rv.ReplyStatus)
	assert.Equal(t, received, rv.ReceivedAt)
}

func TestRepo_SaveReply_WritesAllReplyFields(t *testing.T) {
	repo, mock := newMock(t)
	at := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	rv := domain.Review{ID: "r1", Rating: 5}
	rv.MarkPosted("Thank you!", "user-7", at)

	mock.ExpectExec(saveReplySQL).
		WithArgs("Thank you!", nil, false, "posted", "Thank you!", at, "user-7", "r1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SaveReply(context.Background(), rv))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepo_SaveReply_MissingRow(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(saveReplySQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(getReviewSQL).WithArgs("ghost").WillReturnRows(sqlmock.NewRows(reviewCols))

	err := repo.SaveReply(context.Background(), domain.Review{ID: "ghost", ReplyStatus: domain.StatusRejected})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepo_ListAwaitingReply_DefaultLimit(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now().UTC()
	mock.ExpectQuery(listAwaitingSQL).WithArgs(100).WillReturnRows(sqlmock.NewRows(reviewCols).
		AddRow("r1", "b1", "a", "ref1", 5, "A", "ok", now, nil, nil, false, "pending", nil, nil, nil).
		AddRow("r2", "b1", "a", "ref2", 1, "B", "bad", now, nil, nil, false, "pending", nil, nil, nil))

	out, err := repo.ListAwaitingReply(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "r2", out[1].ID)
}

func TestRepo_AccessToken(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name    string
		rows    *sqlmock.Rows
		want    string
		wantErr error
	}{
		{"valid", sqlmock.NewRows([]string{"access_token", "expires_at"}).AddRow("tok", now.Add(time.Hour)), "tok", nil},
		{"no expiry", sqlmock.NewRows([]string{"access_token", "expires_at"}).AddRow("tok", nil), "tok", nil},
		{"expired", sqlmock.NewRows([]string{"access_token", "expires_at"}).AddRow("tok", now.Add(-time.Minute)), "", domain.ErrCredentials},
		{"missing", sqlmock.NewRows([]string{"access_token", "expires_at"}), "", domain.ErrCredentials},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, mock := newMock(t)
			repo.WithClock(func() time.Time { return now })
			mock.ExpectQuery(getCredentialSQL).WithArgs("acc1").WillReturnRows(tc.rows)

			got, err := repo.AccessToken(context.Background(), "acc1")
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRepo_UpsertBusiness_DefaultsEnums(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(upsertBusinessSQL).
		WithArgs("b1", "Shop", nil, nil, "friendly", "auto-detect", nil, 0, nil, nil, nil).
		WillReturnResult(driver.RowsAffected(1))

	require.NoError(t, repo.UpsertBusiness(context.Background(), domain.BusinessConfig{ID: "b1", Name: "Shop"}))
	require.NoError(t, mock.ExpectationsWereMet())
}
