package inform

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// fakeEmailSender posts mail json to a test endpoint instead of SMTP
type fakeEmailSender struct {
	url     string
	timeout time.Duration
}

// NewFakeEmailSender initiates fake email sender from smtp.fakeUrl
func NewFakeEmailSender(c *viper.Viper) (*fakeEmailSender, error) {
	url := c.GetString("smtp.fakeUrl")
	if url == "" {
		return nil, errors.New("no fake sender URL")
	}
	goapp.Log.Info().Str("URL", url).Msg("Fake email sender")
	return &fakeEmailSender{url: url, timeout: time.Second * 10}, nil
}

func (s *fakeEmailSender) Send(m *email.Email) error {
	body, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "can't marshal email")
	}
	ctx, cancelF := context.WithTimeout(context.Background(), s.timeout)
	defer cancelF()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	goapp.Log.Info().Str("url", req.URL.String()).Msg("posting mail")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 10000))
		_ = resp.Body.Close()
	}()
	if err := goapp.ValidateHTTPResp(resp, 100); err != nil {
		return errors.Wrapf(err, "can't invoke '%s'", req.URL.String())
	}
	return nil
}
