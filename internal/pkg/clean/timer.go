package clean

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
)

// IDsProvider returns IDs of records due for cleanup
type IDsProvider interface {
	GetExpired(ctx context.Context) ([]string, error)
}

// TimerData configures the periodic cleanup run
type TimerData struct {
	RunEvery    time.Duration
	IDsProvider IDsProvider
	Cleaner     Cleaner
}

// StartCleanTimer runs cleanup on a timer until ctx is cancelled.
// The returned channel closes when the loop exits.
func StartCleanTimer(ctx context.Context, data *TimerData) (<-chan struct{}, error) {
	if data.IDsProvider == nil {
		return nil, fmt.Errorf("no IDs provider")
	}
	if data.Cleaner == nil {
		return nil, fmt.Errorf("no cleaner")
	}
	if data.RunEvery <= 0 {
		return nil, fmt.Errorf("wrong runEvery %v", data.RunEvery)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		serviceLoop(ctx, data)
	}()
	return done, nil
}

func serviceLoop(ctx context.Context, data *TimerData) {
	ticker := time.NewTicker(data.RunEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			goapp.Log.Info().Msg("stopping clean timer")
			return
		case <-ticker.C:
			if err := doClean(ctx, data); err != nil {
				goapp.Log.Error().Err(err).Send()
			}
		}
	}
}

func doClean(ctx context.Context, data *TimerData) error {
	ids, err := data.IDsProvider.GetExpired(ctx)
	if err != nil {
		return fmt.Errorf("can't get expired IDs: %w", err)
	}
	goapp.Log.Info().Int("count", len(ids)).Msg("expired media")
	for _, id := range ids {
		if err := data.Cleaner.Clean(ctx, id); err != nil {
			goapp.Log.Error().Err(err).Str("ID", id).Msg("can't clean")
		}
	}
	return nil
}
