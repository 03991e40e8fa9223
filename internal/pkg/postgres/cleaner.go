package postgres

import (
	"context"
	"fmt"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Cleaner removes all records derived from one media ID
type Cleaner struct {
	pool *pgxpool.Pool
}

// NewCleaner creates Cleaner instance
func NewCleaner(pool *pgxpool.Pool) (*Cleaner, error) {
	res := &Cleaner{pool: pool}
	return res, nil
}

// Clean deletes clips, artifacts, transcript and the media row itself
func (db *Cleaner) Clean(ctx context.Context, id string) error {
	for _, t := range []string{"clips", "content_artifacts", "transcripts"} {
		cmd, err := db.pool.Exec(ctx, `DELETE FROM `+t+` WHERE media_id = $1`, id)
		if err != nil {
			return fmt.Errorf("can't delete %s(%s): %w", id, t, err)
		}
		goapp.Log.Info().Str("ID", id).Str("table", t).Int64("rows", cmd.RowsAffected()).Msg("deleted")
	}
	cmd, err := db.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("can't delete media %s: %w", id, err)
	}
	goapp.Log.Info().Str("ID", id).Int64("rows", cmd.RowsAffected()).Msg("deleted media")
	return nil
}
