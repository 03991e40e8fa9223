package inform

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"github.com/jordan-wright/email"
	"github.com/vgarvardt/gue/v5"
)

// Data holds one notification to be mailed
type Data struct {
	ID      string
	Email   string
	MsgType string
	MsgTime time.Time
}

// Sender send emails
type Sender interface {
	Send(email *email.Email) error
}

// EmailMaker prepares the email
type EmailMaker interface {
	Make(data *Data) (*email.Email, error)
}

// DB loads the media record for the notification
type DB interface {
	LoadMedia(ctx context.Context, id string) (*persistence.Media, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	EmailSender Sender
	EmailMaker  EmailMaker
	DB          DB
	Location    *time.Location
}

// StartWorkerService starts the event queue listener service to listen for inform events
// returns channel for tracking when all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for messages")

	wm := gue.WorkMap{
		messages.Inform: utils.CreateHandler(data, handleInform),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Inform),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("inform-worker"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

func handleInform(ctx context.Context, m *messages.InformMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("type", m.Type).Msg("handling")

	media, err := data.DB.LoadMedia(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("can't load media: %w", err)
	}
	if media == nil {
		goapp.Log.Warn().Str("ID", m.ID).Msg("no media record, skip")
		return nil
	}
	// owners register with an email or an opaque ID, mail only the former
	if !strings.Contains(media.OwnerID, "@") {
		goapp.Log.Info().Msg("No email, skip")
		return nil
	}

	mailData := Data{ID: m.ID, Email: media.OwnerID, MsgType: m.Type,
		MsgTime: toLocalTime(data, m.At)}

	mail, err := data.EmailMaker.Make(&mailData)
	if err != nil {
		return fmt.Errorf("can't prepare email: %w", err)
	}

	if err := data.EmailSender.Send(mail); err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.EmailMaker == nil {
		return fmt.Errorf("no EmailMaker")
	}
	if data.EmailSender == nil {
		return fmt.Errorf("no EmailSender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}

func toLocalTime(data *ServiceData, t time.Time) time.Time {
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}
