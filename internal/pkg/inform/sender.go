package inform

import (
	"fmt"
	"net/smtp"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

// SimpleEmailSender sends emails over plain SMTP
type SimpleEmailSender struct {
	host string
	port int
	auth smtp.Auth
}

// NewSimpleEmailSender inits sender from config
func NewSimpleEmailSender(c *viper.Viper) (*SimpleEmailSender, error) {
	res := &SimpleEmailSender{}
	res.host = c.GetString("smtp.host")
	if res.host == "" {
		return nil, fmt.Errorf("no smtp.host")
	}
	res.port = c.GetInt("smtp.port")
	if res.port == 0 {
		res.port = 25
	}
	if user := c.GetString("smtp.username"); user != "" {
		res.auth = smtp.PlainAuth("", user, c.GetString("smtp.password"), res.host)
	}
	goapp.Log.Info().Str("host", res.host).Int("port", res.port).Msg("smtp")
	return res, nil
}

// Send sends email
func (s *SimpleEmailSender) Send(mail *email.Email) error {
	return mail.Send(fmt.Sprintf("%s:%d", s.host, s.port), s.auth)
}
