package mysql

const getBusinessSQL = `
SELECT id, name, description, phone, tone, language_mode, fixed_language,
       max_sentences, allowed_emojis, signature, star_configs
FROM businesses
WHERE id = ?
`

const upsertBusinessSQL = `
INSERT INTO businesses
  (id, name, description, phone, tone, language_mode, fixed_language, max_sentences, allowed_emojis, signature, star_configs)
VALUES
  (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
  name           = VALUES(name),
  description    = VALUES(description),
  phone          = VALUES(phone),
  tone           = VALUES(tone),
  language_mode  = VALUES(language_mode),
  fixed_language = VALUES(fixed_language),
  max_sentences  = VALUES(max_sentences),
  allowed_emojis = VALUES(allowed_emojis),
  signature      = VALUES(signature),
  star_configs   = VALUES(star_configs)
`

// Note: `text` is reserved; keep it quoted everywhere.
const reviewColumns = "id, business_id, account_id, external_ref, rating, reviewer_name, `text`, received_at, " +
	"ai_reply, ai_reply_generated_at, ai_reply_edited, reply_status, posted_reply, posted_at, posted_by"

const getReviewSQL = "SELECT " + reviewColumns + " FROM reviews WHERE id = ?"

// awaiting: pending with no draft yet, oldest first
const listAwaitingSQL = "SELECT " + reviewColumns + ` FROM reviews
WHERE reply_status = 'pending' AND ai_reply IS NULL
ORDER BY received_at ASC, id ASC
LIMIT ?`

const insertReviewSQL = "INSERT INTO reviews\n  (id, business_id, account_id, external_ref, rating, reviewer_name, `text`, received_at)\n" +
	"VALUES (?, ?, ?, ?, ?, ?, ?, ?)\n" +
	"ON DUPLICATE KEY UPDATE\n" +
	"  rating        = VALUES(rating),\n" +
	"  reviewer_name = VALUES(reviewer_name),\n" +
	"  `text`        = VALUES(`text`)"

// saveReplySQL writes every reply field in one statement.
const saveReplySQL = `
UPDATE reviews SET
  ai_reply              = ?,
  ai_reply_generated_at = ?,
  ai_reply_edited       = ?,
  reply_status          = ?,
  posted_reply          = ?,
  posted_at             = ?,
  posted_by             = ?
WHERE id = ?
`

const getCredentialSQL = `
SELECT access_token, expires_at
FROM platform_credentials
WHERE account_id = ?
`

const upsertCredentialSQL = `
INSERT INTO platform_credentials (account_id, access_token, expires_at)
VALUES (?, ?, ?)
ON DUPLICATE KEY UPDATE
  access_token = VALUES(access_token),
  expires_at   = VALUES(expires_at)
`
