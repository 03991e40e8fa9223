package clean

import (
	"context"
	"fmt"
	"path"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"go.uber.org/multierr"
)

// Group runs several cleaners as one.
// Storage objects go first so a failure leaves DB records for a retry.
type Group struct {
	Jobs []Cleaner
}

// Clean invokes all jobs, collects failures
func (g *Group) Clean(ctx context.Context, ID string) error {
	var res error
	for _, job := range g.Jobs {
		res = multierr.Append(res, job.Clean(ctx, ID))
	}
	return res
}

// DB loads records needed to locate stored objects
type DB interface {
	LoadMedia(ctx context.Context, id string) (*persistence.Media, error)
	LoadClipsByMedia(ctx context.Context, mediaID string) ([]*persistence.Clip, error)
}

// FileRemover deletes one stored object
type FileRemover interface {
	Remove(ctx context.Context, name string) error
}

// StorageCleaner removes the source upload and all rendered objects of one media
type StorageCleaner struct {
	db    DB
	filer FileRemover
}

// NewStorageCleaner creates cleaner instance
func NewStorageCleaner(db DB, filer FileRemover) (*StorageCleaner, error) {
	if db == nil {
		return nil, fmt.Errorf("no db")
	}
	if filer == nil {
		return nil, fmt.Errorf("no filer")
	}
	return &StorageCleaner{db: db, filer: filer}, nil
}

// Clean removes stored objects by media ID
func (c *StorageCleaner) Clean(ctx context.Context, ID string) error {
	media, err := c.db.LoadMedia(ctx, ID)
	if err != nil {
		return fmt.Errorf("can't load media: %w", err)
	}
	var res error
	if media != nil {
		res = multierr.Append(res, c.filer.Remove(ctx, utils.MakeFileName(media.ID, path.Base(media.SourceURL))))
	}
	clips, err := c.db.LoadClipsByMedia(ctx, ID)
	if err != nil {
		return multierr.Append(res, fmt.Errorf("can't load clips: %w", err))
	}
	for _, cl := range clips {
		if cl.RenderedURL.Valid && cl.RenderedURL.String != "" {
			res = multierr.Append(res, c.filer.Remove(ctx,
				fmt.Sprintf("clips/%s_%.0f-%.0f.mp4", cl.ID, cl.StartTime, cl.EndTime)))
		}
		if cl.ThumbnailURL.Valid && cl.ThumbnailURL.String != "" {
			res = multierr.Append(res, c.filer.Remove(ctx, fmt.Sprintf("thumbs/%s.jpg", cl.ID)))
		}
	}
	goapp.Log.Info().Str("ID", ID).Msg("storage cleaned")
	return res
}
