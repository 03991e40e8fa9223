package inform

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/faridopz/repurpose-smart/internal/pkg/messages"
	"github.com/jordan-wright/email"
	"github.com/spf13/viper"
)

// TemplateEmailMaker builds notification emails from configured templates.
// Config keys per type: mail.<type>.subject, mail.<type>.text
type TemplateEmailMaker struct {
	from      string
	subjects  map[string]string
	templates map[string]*template.Template
}

// NewTemplateEmailMaker inits maker from config
func NewTemplateEmailMaker(c *viper.Viper) (*TemplateEmailMaker, error) {
	res := &TemplateEmailMaker{subjects: map[string]string{}, templates: map[string]*template.Template{}}
	res.from = c.GetString("mail.from")
	if res.from == "" {
		return nil, fmt.Errorf("no mail.from")
	}
	for _, tp := range []string{messages.InformFinished, messages.InformFailed} {
		key := "mail." + tp
		subj := c.GetString(key + ".subject")
		if subj == "" {
			return nil, fmt.Errorf("no %s.subject", key)
		}
		text := c.GetString(key + ".text")
		if text == "" {
			return nil, fmt.Errorf("no %s.text", key)
		}
		tmpl, err := template.New(tp).Parse(text)
		if err != nil {
			return nil, fmt.Errorf("can't parse %s.text: %w", key, err)
		}
		res.subjects[tp] = subj
		res.templates[tp] = tmpl
	}
	return res, nil
}

// Make builds the email for one notification
func (m *TemplateEmailMaker) Make(data *Data) (*email.Email, error) {
	tmpl, ok := m.templates[data.MsgType]
	if !ok {
		return nil, fmt.Errorf("unknown inform type '%s'", data.MsgType)
	}
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, fmt.Errorf("can't fill template: %w", err)
	}
	res := email.NewEmail()
	res.From = m.from
	res.To = []string{data.Email}
	res.Subject = m.subjects[data.MsgType]
	res.Text = body.Bytes()
	return res, nil
}
