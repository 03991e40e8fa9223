package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/google/uuid"

	"github.com/faridopz/repurpose-smart/internal/pkg/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/content"
	"github.com/faridopz/repurpose-smart/internal/pkg/highlight"
	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	tapi "github.com/faridopz/repurpose-smart/internal/pkg/transcriber/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
)

const (
	pollInterval    = 5 * time.Second
	maxPollAttempts = 120
)

// DB provides persistence operations for the pipeline flow
type DB interface {
	LoadMedia(ctx context.Context, id string) (*persistence.Media, error)
	UpdateMediaStatus(ctx context.Context, id string, st status.Media) error
	InsertTranscript(ctx context.Context, t *persistence.Transcript) error
	UpdateTranscript(ctx context.Context, t *persistence.Transcript) error
	InsertClips(ctx context.Context, clips []*persistence.Clip) error
	InsertArtifact(ctx context.Context, a *persistence.ContentArtifact) error
}

// MsgSender provides send msg functionality
type MsgSender interface {
	SendMessage(ctx context.Context, msg messages.Message, queue string) error
}

// Transcribers selects a transcription gateway
type Transcribers interface {
	Get(srv string, allowNew bool) (tapi.Transcriber, string, error)
}

// Generator creates platform content from transcript text
type Generator interface {
	Generate(ctx context.Context, inp *content.Input) (*content.Output, error)
}

// Processor drives one media through the full pipeline:
// transcription start, polling, highlight suggestion, content generation
type Processor struct {
	db           DB
	transcribers Transcribers
	gen          Generator
	sender       MsgSender

	pollInterval time.Duration
	maxAttempts  int
	sleepF       func(ctx context.Context, d time.Duration) error
}

// NewProcessor creates flow processor
func NewProcessor(db DB, transcribers Transcribers, gen Generator, sender MsgSender) (*Processor, error) {
	if db == nil {
		return nil, fmt.Errorf("no DB")
	}
	if transcribers == nil {
		return nil, fmt.Errorf("no transcribers provider")
	}
	if gen == nil {
		return nil, fmt.Errorf("no content generator")
	}
	if sender == nil {
		return nil, fmt.Errorf("no msg sender")
	}
	return &Processor{db: db, transcribers: transcribers, gen: gen, sender: sender,
		pollInterval: pollInterval, maxAttempts: maxPollAttempts, sleepF: sleepCtx}, nil
}

// Process runs the pipeline for uploaded media until terminal state.
// On failure the flow step is reset so a client can restart from upload.
func (p *Processor) Process(ctx context.Context, mediaID string) error {
	goapp.Log.Info().Str("ID", mediaID).Msg("processing media")
	if err := p.process(ctx, mediaID); err != nil {
		p.report(ctx, mediaID, status.StepUpload, 0, err)
		if errSt := p.db.UpdateMediaStatus(ctx, mediaID, status.MediaError); errSt != nil {
			goapp.Log.Error().Err(errSt).Str("ID", mediaID).Msg("can't set error status")
		}
		return err
	}
	goapp.Log.Info().Str("ID", mediaID).Msg("done")
	return nil
}

func (p *Processor) process(ctx context.Context, mediaID string) error {
	p.report(ctx, mediaID, status.StepChecking, 10, nil)
	media, err := p.db.LoadMedia(ctx, mediaID)
	if err != nil {
		return fmt.Errorf("can't load media: %w", err)
	}
	if media == nil {
		return fmt.Errorf("no media record %s", mediaID)
	}

	p.report(ctx, mediaID, status.StepPreparing, 30, nil)
	tr, err := p.transcribe(ctx, media)
	if err != nil {
		return err
	}

	p.report(ctx, mediaID, status.StepAnalyzing, 75, nil)
	if err := p.suggest(ctx, media, tr); err != nil {
		return err
	}

	p.report(ctx, mediaID, status.StepGenerating, 85, nil)
	if err := p.generate(ctx, media, tr); err != nil {
		return err
	}

	p.report(ctx, mediaID, status.StepSuccess, 100, nil)
	return nil
}

func (p *Processor) transcribe(ctx context.Context, media *persistence.Media) (*persistence.Transcript, error) {
	trans, srvName, err := p.transcribers.Get("", true)
	if err != nil {
		return nil, fmt.Errorf("can't get transcriber: %w", err)
	}
	goapp.Log.Info().Str("ID", media.ID).Str("transcriber", srvName).Msg("starting transcription")

	if err := p.db.UpdateMediaStatus(ctx, media.ID, status.Transcribing); err != nil {
		return nil, err
	}
	p.report(ctx, media.ID, status.StepProcessing, 50, nil)
	jobID, err := trans.StartJob(ctx, media.SourceURL)
	if err != nil {
		return nil, fmt.Errorf("can't start transcription: %w", err)
	}
	tr := &persistence.Transcript{ID: uuid.NewString(), MediaID: media.ID, OwnerID: media.OwnerID,
		ExternalJobID: jobID, Gateway: srvName, Status: status.TranscriptProcessing, Created: time.Now()}
	if err := p.db.InsertTranscript(ctx, tr); err != nil {
		return nil, err
	}
	p.report(ctx, media.ID, status.StepTranscribing, 60, nil)

	res, err := p.poll(ctx, media.ID, trans, jobID)
	if err != nil {
		tr.Status = status.TranscriptError
		if errUpd := p.db.UpdateTranscript(ctx, tr); errUpd != nil {
			goapp.Log.Error().Err(errUpd).Str("ID", media.ID).Msg("can't save transcript status")
		}
		return nil, err
	}

	tr.FullText = utils.ToSQLStr(res.Text)
	tr.Words = res.Words
	tr.Speakers = res.Speakers
	tr.Keywords = res.Keywords
	tr.Sentiment = res.Sentiment
	tr.Status = status.TranscriptCompleted
	if err := p.db.UpdateTranscript(ctx, tr); err != nil {
		return nil, err
	}
	if err := p.db.UpdateMediaStatus(ctx, media.ID, status.Transcribed); err != nil {
		return nil, err
	}
	p.report(ctx, media.ID, status.StepTranscribing, 75, nil)
	return tr, nil
}

func (p *Processor) poll(ctx context.Context, mediaID string, trans tapi.Transcriber, jobID string) (*tapi.Result, error) {
	for att := 1; att <= p.maxAttempts; att++ {
		st, err := trans.GetStatus(ctx, jobID)
		if err != nil {
			return nil, fmt.Errorf("can't get job status: %w", err)
		}
		switch st.Status {
		case tapi.JobCompleted:
			return st.Result, nil
		case tapi.JobError:
			return nil, &utils.ErrTranscriptionFailed{Msg: st.Error}
		}
		p.report(ctx, mediaID, status.StepTranscribing, pollProgress(att), nil)
		if err := p.sleepF(ctx, p.pollInterval); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("no result after %d attempts: %w", p.maxAttempts, utils.ErrTimeout)
}

func (p *Processor) suggest(ctx context.Context, media *persistence.Media, tr *persistence.Transcript) error {
	clips := highlight.Heuristic(tr)
	if len(clips) == 0 {
		goapp.Log.Warn().Str("ID", media.ID).Msg("no highlights found")
		return nil
	}
	if err := p.db.InsertClips(ctx, clips); err != nil {
		return err
	}
	goapp.Log.Info().Str("ID", media.ID).Int("clips", len(clips)).Msg("highlights saved")
	return nil
}

func (p *Processor) generate(ctx context.Context, media *persistence.Media, tr *persistence.Transcript) error {
	platforms := []string{api.PlatformLinkedIn, api.PlatformTwitter}
	out, err := p.gen.Generate(ctx, &content.Input{Transcript: utils.FromSQLStr(tr.FullText),
		Platforms: platforms, Tone: "professional"})
	if err != nil {
		return fmt.Errorf("can't generate content: %w", err)
	}
	for _, pl := range platforms {
		a := &persistence.ContentArtifact{ID: uuid.NewString(), MediaID: media.ID, OwnerID: media.OwnerID,
			ContentType: "post", Platform: pl, Tone: "professional", Body: out.Generated[pl],
			PromptUsed: out.Prompt, ModelID: out.Model, Created: time.Now()}
		if err := p.db.InsertArtifact(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// pollProgress interpolates transcription progress, capped before analysis starts
func pollProgress(attempt int) float64 {
	res := 60 + float64(attempt)*0.5
	if res > 70 {
		return 70
	}
	return res
}

func (p *Processor) report(ctx context.Context, mediaID string, step status.Step, progress float64, err error) {
	msg := &messages.StatusMessage{QueueMessage: messages.QueueMessage{ID: mediaID},
		Step: step.String(), Progress: progress}
	if err != nil {
		msg.Error = err.Error()
	}
	if errS := p.sender.SendMessage(ctx, msg, messages.StatusChange); errS != nil {
		goapp.Log.Error().Err(errS).Str("ID", mediaID).Msg("can't send status msg")
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
