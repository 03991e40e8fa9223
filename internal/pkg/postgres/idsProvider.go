package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBIdsProvider provides expired media IDs from postgresql.
// Failed pipeline runs leave media rows in a non terminal state -
// those older than expiresAfter become cleanup candidates.
type DBIdsProvider struct {
	pool         *pgxpool.Pool
	expiresAfter time.Duration
}

// NewDBIdsProvider creates provider instance
func NewDBIdsProvider(pool *pgxpool.Pool, expiresAfter time.Duration) (*DBIdsProvider, error) {
	res := &DBIdsProvider{pool: pool, expiresAfter: expiresAfter}
	return res, nil
}

// GetExpired returns IDs of stale non terminal or failed media
func (db *DBIdsProvider) GetExpired(ctx context.Context) ([]string, error) {
	exp := time.Now().Add(-db.expiresAfter)
	goapp.Log.Info().Time("older than", exp).Msg("selecting stale media...")
	rows, err := db.pool.Query(ctx, `SELECT id FROM media WHERE created < $1 AND status IN ($2, $3, $4)`,
		exp, status.Uploaded.String(), status.Transcribing.String(), status.MediaError.String())
	if err != nil {
		return nil, fmt.Errorf("can't select IDs: %w", err)
	}
	defer rows.Close()

	res := []string{}
	for rows.Next() {
		var id string
		err := rows.Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("can't retrieve IDs: %w", err)
		}
		res = append(res, id)
	}

	return res, nil
}
