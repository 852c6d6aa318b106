package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	DefaultSendgridHost = "https://api.sendgrid.com"
	sendgridEndpoint    = "/v3/mail/send"
)

// SendgridConfig configures SendgridInviter.
type SendgridConfig struct {
	APIKey    string
	Host      string // defaults to DefaultSendgridHost
	FromName  string
	FromEmail string
	BaseURL   string // activation page
}

// SendgridInviter sends invitations through the SendGrid v3 mail API.
type SendgridInviter struct {
	cfg  SendgridConfig
	from *sgmail.Email
}

// NewSendgridInviter returns an Inviter backed by SendGrid.
func NewSendgridInviter(cfg SendgridConfig) *SendgridInviter {
	if cfg.Host == "" {
		cfg.Host = DefaultSendgridHost
	}
	return &SendgridInviter{
		cfg:  cfg,
		from: sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
	}
}

func (s *SendgridInviter) prepare(ctx context.Context, inv Invitation) (*sgmail.SGMailV3, error) {
	activation := ActivationURL(s.cfg.BaseURL, inv)
	html, err := renderHTML(ctx, invitationEmail(inv.StudentName, activation))
	if err != nil {
		return nil, fmt.Errorf("render invitation: %w", err)
	}

	p := sgmail.NewPersonalization()
	p.Subject = subject
	p.AddTos(sgmail.NewEmail("", inv.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", plainBody(activation, inv)),
		sgmail.NewContent("text/html", html),
	)
	return m, nil
}

// Invite sends one invitation. Any non-2xx response is an error.
func (s *SendgridInviter) Invite(ctx context.Context, inv Invitation) error {
	m, err := s.prepare(ctx, inv)
	if err != nil {
		return err
	}

	req := sendgrid.GetRequest(s.cfg.APIKey, sendgridEndpoint, s.cfg.Host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m)

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("notify.SendgridInviter.Invite: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("notify.SendgridInviter.Invite: sendgrid returned %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
