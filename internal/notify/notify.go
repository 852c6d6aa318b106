// Package notify delivers invitation emails to parents whose placeholder
// accounts were created by a student import.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/a-h/templ"
)

// Invitation asks a parent to activate a placeholder account.
type Invitation struct {
	Email       string
	StudentName string
	// Token is the one-time activation secret; only its hash is stored.
	Token string
}

// Inviter sends invitations.
type Inviter interface {
	Invite(ctx context.Context, inv Invitation) error
}

// ActivationURL builds the link a parent follows to activate the account.
func ActivationURL(base string, inv Invitation) string {
	q := url.Values{}
	q.Set("email", inv.Email)
	q.Set("token", inv.Token)
	return base + "?" + q.Encode()
}

const subject = "You have been invited to the school roster"

func plainBody(activation string, inv Invitation) string {
	return fmt.Sprintf(
		"Hello,\n\n%s was enrolled and linked to this email address.\n"+
			"Activate your parent account here:\n%s\n", inv.StudentName, activation)
}

func renderHTML(ctx context.Context, c templ.Component) (string, error) {
	var buf bytes.Buffer
	if err := c.Render(ctx, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LogInviter writes invitations to the log instead of sending them.
// Used in development and when no mail provider is configured.
type LogInviter struct {
	BaseURL string
	Logger  *slog.Logger
}

// Invite logs the activation link.
func (l LogInviter) Invite(ctx context.Context, inv Invitation) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "parent invitation",
		"email", inv.Email,
		"student", inv.StudentName,
		"activation_url", ActivationURL(l.BaseURL, inv),
	)
	return nil
}
