package utils

import (
	"context"
	"encoding/json"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"github.com/vgarvardt/gue/v5"
)

// msg is dropped after this many failed attempts
const maxMsgAttempts = 3

// CreateHandler wraps a typed queue handler into a gue work func
func CreateHandler[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error) gue.WorkFunc {
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")
		if j.ErrorCount >= maxMsgAttempts {
			goapp.Log.Error().Int32("attempts", j.ErrorCount).Str("lastError", j.LastError.String).Msg("dropping msg")
			return nil
		}
		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			return errors.Wrap(err, "can't unmarshal msg")
		}
		return hf(ctx, &m, data)
	}
}
