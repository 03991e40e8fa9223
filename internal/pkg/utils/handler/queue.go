package handler

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/pkg/errors"
	"github.com/vgarvardt/gue/v5"
)

// FailureFunc decides if a failed job is retried and after what delay
type FailureFunc[TM any] func(context.Context, *TM, error, *gue.Job) (bool, time.Duration, error)

type Opts[TM any] struct {
	backoff   gue.Backoff
	timeout   time.Duration
	onFailure FailureFunc[TM]
}

// Create wraps a typed handler into a gue work func with timeout and retry policy
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		goapp.Log.Panic().Msg("no opts provided")
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")

		var m TM
		if err := json.Unmarshal(j.Args, &m); err != nil {
			return errors.Wrap(err, "can't unmarshal msg")
		}
		err := runJob(ctx, &m, data, hf, opts.timeout)
		if err == nil {
			return nil
		}
		goapp.Log.Warn().Err(err).Str("queue", j.Queue).Str("type", j.Type).Msg("fail")
		retry, delay, errFailure := opts.onFailure(ctx, &m, err, j)
		if errFailure != nil {
			goapp.Log.Error().Err(errFailure).Str("queue", j.Queue).Int32("errCount", j.ErrorCount).Msg("failure handler")
			if j.ErrorCount > 5 {
				return nil
			}
		}
		if !retry {
			goapp.Log.Warn().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("give up")
			return nil
		}
		if delay == 0 {
			delay = opts.backoff(int(j.ErrorCount + 1))
		}
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Dur("after", delay).Msg("retry after")
		return gue.ErrRescheduleJobIn(delay, err.Error())
	}
}

func runJob[TM any, SD any](ctx context.Context, m *TM, data *SD, hf func(context.Context, *TM, *SD) error, timeout time.Duration) error {
	wrkCtx, cf := context.WithTimeout(ctx, timeout)
	defer cf()
	return hf(wrkCtx, m, data)
}

func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute * 15, onFailure: defaultFailure[TM], backoff: DefaultBackoff()}
}

func DefaultBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return fullJitter(time.Duration(retries) * time.Second * 10)
	}
}

func NoBackoff() gue.Backoff {
	return func(retries int) time.Duration {
		return 0
	}
}

func DefaultBackoffOrTest(test bool) gue.Backoff {
	if test {
		return NoBackoff()
	}
	return DefaultBackoff()
}

func (o *Opts[TM]) WithFailure(f FailureFunc[TM]) *Opts[TM] {
	o.onFailure = f
	return o
}

func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}

func (o *Opts[TM]) WithBackoff(b gue.Backoff) *Opts[TM] {
	o.backoff = b
	return o
}

// fullJitter return randomized duration in interval [0, t)
func fullJitter(t time.Duration) time.Duration {
	return time.Duration(float64(t) * rand.Float64())
}

func defaultFailure[TM any](ctx context.Context, message *TM, err error, j *gue.Job) (bool, time.Duration, error) {
	if j.ErrorCount > 3 {
		return false, 0, nil
	}
	return true, 0, nil
}
