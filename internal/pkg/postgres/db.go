package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB provides operations with postgresql
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates DB instance
func NewDB(pool *pgxpool.Pool) (*DB, error) {
	res := &DB{pool: pool}
	return res, nil
}

// InsertMedia inserts media record into DB
func (db *DB) InsertMedia(ctx context.Context, m *persistence.Media) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO media(id, owner_id, title, source_url, size_bytes, mime_type, status, created)
	VALUES($1, $2, $3, $4, $5, $6, $7, $8)`, m.ID, m.OwnerID, m.Title, m.SourceURL, m.SizeBytes,
		m.MimeType, m.Status, m.Created)
	if err != nil {
		return fmt.Errorf("can't insert media: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadMedia loads media record from DB
func (db *DB) LoadMedia(ctx context.Context, id string) (*persistence.Media, error) {
	var res persistence.Media
	err := db.pool.QueryRow(ctx, `SELECT id, owner_id, title, source_url, size_bytes, mime_type, status, duration_secs, created
	FROM media WHERE id = $1`, id).Scan(&res.ID, &res.OwnerID, &res.Title, &res.SourceURL,
		&res.SizeBytes, &res.MimeType, &res.Status, &res.DurationSecs, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load media: %w", err)
	}
	return &res, nil
}

// UpdateMediaStatus updates media status field
func (db *DB) UpdateMediaStatus(ctx context.Context, id string, st status.Media) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE media SET status = $2, updated = $3 WHERE id = $1`,
		id, st.String(), time.Now())
	if err != nil {
		return fmt.Errorf("can't update media status: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't update media status, no record %s", id)
	}
	return nil
}

// InsertTranscript inserts transcript record into DB
func (db *DB) InsertTranscript(ctx context.Context, t *persistence.Transcript) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO transcripts(id, media_id, owner_id, external_job_id, gateway, status, created)
	VALUES($1, $2, $3, $4, $5, $6, $7)`, t.ID, t.MediaID, t.OwnerID, t.ExternalJobID, t.Gateway, t.Status, t.Created)
	if err != nil {
		return fmt.Errorf("can't insert transcript: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadTranscriptByJob loads transcript by external job id
func (db *DB) LoadTranscriptByJob(ctx context.Context, jobID string) (*persistence.Transcript, error) {
	return db.loadTranscript(ctx, `external_job_id`, jobID)
}

// LoadTranscriptByMedia loads transcript by media id
func (db *DB) LoadTranscriptByMedia(ctx context.Context, mediaID string) (*persistence.Transcript, error) {
	return db.loadTranscript(ctx, `media_id`, mediaID)
}

func (db *DB) loadTranscript(ctx context.Context, field, value string) (*persistence.Transcript, error) {
	var res persistence.Transcript
	err := db.pool.QueryRow(ctx, `SELECT id, media_id, owner_id, external_job_id, gateway, full_text, words, speakers,
	keywords, quotes, sentiment, status, created FROM transcripts WHERE `+field+` = $1`, value).
		Scan(&res.ID, &res.MediaID, &res.OwnerID, &res.ExternalJobID, &res.Gateway, &res.FullText, &res.Words,
			&res.Speakers, &res.Keywords, &res.Quotes, &res.Sentiment, &res.Status, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load transcript: %w", err)
	}
	return &res, nil
}

// UpdateTranscript saves completion fields
func (db *DB) UpdateTranscript(ctx context.Context, t *persistence.Transcript) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE transcripts SET
	full_text = $2,
	words = $3,
	speakers = $4,
	keywords = $5,
	quotes = $6,
	sentiment = $7,
	status = $8,
	updated = $9
	WHERE id = $1`, t.ID, t.FullText, t.Words, t.Speakers, t.Keywords, t.Quotes, t.Sentiment,
		t.Status, time.Now())
	if err != nil {
		return fmt.Errorf("can't update transcript: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't update transcript, no record %s", t.ID)
	}
	return nil
}

// InsertClips inserts a batch of clip records
func (db *DB) InsertClips(ctx context.Context, clips []*persistence.Clip) error {
	for _, cl := range clips {
		rows, err := db.pool.Query(ctx, `INSERT INTO clips(id, media_id, owner_id, start_time, end_time, reason,
		excerpt, tags, status, created) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			cl.ID, cl.MediaID, cl.OwnerID, cl.StartTime, cl.EndTime, cl.Reason, cl.Excerpt,
			cl.Tags, cl.Status, cl.Created)
		if err != nil {
			return fmt.Errorf("can't insert clip: %w", err)
		}
		rows.Close()
	}
	return nil
}

// LoadClip loads clip record from DB
func (db *DB) LoadClip(ctx context.Context, id string) (*persistence.Clip, error) {
	var res persistence.Clip
	err := db.pool.QueryRow(ctx, `SELECT id, media_id, owner_id, start_time, end_time, reason, excerpt, tags,
	status, rendered_url, thumbnail_url, created FROM clips WHERE id = $1`, id).
		Scan(&res.ID, &res.MediaID, &res.OwnerID, &res.StartTime, &res.EndTime, &res.Reason,
			&res.Excerpt, &res.Tags, &res.Status, &res.RenderedURL, &res.ThumbnailURL, &res.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load clip: %w", err)
	}
	return &res, nil
}

// LoadClipsByMedia loads all clip records of one media
func (db *DB) LoadClipsByMedia(ctx context.Context, mediaID string) ([]*persistence.Clip, error) {
	rows, err := db.pool.Query(ctx, `SELECT id, media_id, owner_id, start_time, end_time, reason, excerpt, tags,
	status, rendered_url, thumbnail_url, created FROM clips WHERE media_id = $1 ORDER BY start_time`, mediaID)
	if err != nil {
		return nil, fmt.Errorf("can't load clips: %w", err)
	}
	defer rows.Close()
	var res []*persistence.Clip
	for rows.Next() {
		var cl persistence.Clip
		if err := rows.Scan(&cl.ID, &cl.MediaID, &cl.OwnerID, &cl.StartTime, &cl.EndTime, &cl.Reason,
			&cl.Excerpt, &cl.Tags, &cl.Status, &cl.RenderedURL, &cl.ThumbnailURL, &cl.Created); err != nil {
			return nil, fmt.Errorf("can't scan clip: %w", err)
		}
		res = append(res, &cl)
	}
	return res, rows.Err()
}

// UpdateClipRendered marks a clip as created with its rendered file URLs
func (db *DB) UpdateClipRendered(ctx context.Context, id, url, thumbnailURL string) error {
	cmd, err := db.pool.Exec(ctx, `UPDATE clips SET
	rendered_url = $2,
	thumbnail_url = $3,
	status = $4,
	updated = $5
	WHERE id = $1`, id, url, thumbnailURL, status.ClipCreated, time.Now())
	if err != nil {
		return fmt.Errorf("can't update clip: %w", err)
	}
	if cmd.RowsAffected() != 1 {
		return fmt.Errorf("can't update clip, no record %s", id)
	}
	return nil
}

// InsertArtifact inserts content artifact record into DB
func (db *DB) InsertArtifact(ctx context.Context, a *persistence.ContentArtifact) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO content_artifacts(id, media_id, owner_id, content_type, platform,
	tone, persona, body, prompt_used, model_id, created) VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.MediaID, a.OwnerID, a.ContentType, a.Platform, a.Tone, a.Persona, a.Body,
		a.PromptUsed, a.ModelID, a.Created)
	if err != nil {
		return fmt.Errorf("can't insert artifact: %w", err)
	}
	defer rows.Close()
	return nil
}

// LoadQuota loads quota counter, nil if none yet
func (db *DB) LoadQuota(ctx context.Context, userID string) (*persistence.QuotaCounter, error) {
	var res persistence.QuotaCounter
	err := db.pool.QueryRow(ctx, `SELECT user_id, clips_this_month, last_reset FROM quota_counters
	WHERE user_id = $1`, userID).Scan(&res.UserID, &res.ClipsThisMonth, &res.LastReset)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("can't load quota: %w", err)
	}
	return &res, nil
}

// ResetQuota zeroes the counter and moves the reset mark
func (db *DB) ResetQuota(ctx context.Context, userID string, at time.Time) error {
	rows, err := db.pool.Query(ctx, `INSERT INTO quota_counters(user_id, clips_this_month, last_reset)
	VALUES($1, 0, $2) ON CONFLICT (user_id) DO UPDATE SET clips_this_month = 0, last_reset = $2`, userID, at)
	if err != nil {
		return fmt.Errorf("can't reset quota: %w", err)
	}
	defer rows.Close()
	return nil
}

// AddQuotaUsage increments the counter by the number of clips suggested.
// With limit >= 0 the increment is conditional so concurrent calls can't push
// a finite tier above its cap. Returns false if the limit would be exceeded.
func (db *DB) AddQuotaUsage(ctx context.Context, userID string, count, limit int) (bool, error) {
	if limit < 0 {
		rows, err := db.pool.Query(ctx, `INSERT INTO quota_counters(user_id, clips_this_month, last_reset)
		VALUES($1, $2, now()) ON CONFLICT (user_id) DO UPDATE
		SET clips_this_month = quota_counters.clips_this_month + $2`, userID, count)
		if err != nil {
			return false, fmt.Errorf("can't add quota usage: %w", err)
		}
		defer rows.Close()
		return true, nil
	}
	// first use creates the row, later uses increment only while under the cap
	cmd, err := db.pool.Exec(ctx, `INSERT INTO quota_counters(user_id, clips_this_month, last_reset)
	VALUES($1, $2, now()) ON CONFLICT (user_id) DO UPDATE
	SET clips_this_month = quota_counters.clips_this_month + $2
	WHERE quota_counters.clips_this_month < $3`, userID, count, limit)
	if err != nil {
		return false, fmt.Errorf("can't add quota usage: %w", err)
	}
	return cmd.RowsAffected() == 1, nil
}

// Live returns no error if db is reachable and initialized
func (db *DB) Live(ctx context.Context) error {
	var exists bool
	if err := db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT FROM pg_tables WHERE tablename = 'gue_jobs')`).Scan(&exists); err != nil {
		return fmt.Errorf("can't check table: %w", err)
	}
	if !exists {
		return fmt.Errorf("no migration done")
	}
	return nil
}
