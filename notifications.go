package bookshelf

import (
	"context"
	"fmt"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// Subject lines for the outgoing account notifications.
const (
	SubjectAccountActivation = "Account activation"
	SubjectRetrieveUsername  = "Retrieve username"
	SubjectResetPassword     = "Reset password"
)

// Notifier renders and dispatches the account notification messages. It
// owns exactly the template context the flows need, the uri or username
// substitution, nothing else.
type Notifier struct {
	mailer  Mailer
	baseURL string
}

// NewNotifier creates a Notifier; baseURL is the absolute prefix for
// callback URIs, e.g. https://example.com
func NewNotifier(mailer Mailer, baseURL string) *Notifier {
	if mailer == nil {
		mailer = logMailer{logger: defLogger{}}
	}
	return &Notifier{
		mailer:  mailer,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SendActivation dispatches the account activation message with the
// callback URI embedding the code.
func (n *Notifier) SendActivation(ctx context.Context, email, code string) error {
	uri := fmt.Sprintf("%s/activate/%s", n.baseURL, code)
	body := fmt.Sprintf("You have successfully signed up.\n\nFollow the link to activate your account:\n%s\n", uri)
	return n.send(ctx, email, SubjectAccountActivation, body)
}

// SendUsernameRecovery reveals the stored username; no state mutates.
func (n *Notifier) SendUsernameRecovery(ctx context.Context, email, username string) error {
	body := fmt.Sprintf("Your username is:\n%s\n", username)
	return n.send(ctx, email, SubjectRetrieveUsername, body)
}

// SendPasswordReset dispatches the reset confirmation link carrying the
// opaque user identifier and the signed token.
func (n *Notifier) SendPasswordReset(ctx context.Context, email, uid, token string) error {
	uri := fmt.Sprintf("%s/reset-password/confirm/%s/%s", n.baseURL, uid, token)
	body := fmt.Sprintf("Follow the link to reset your password:\n%s\n", uri)
	return n.send(ctx, email, SubjectResetPassword, body)
}

// SendEmailChange dispatches the change-email confirmation to the NEW
// address; the current address stays in place until the code is consumed.
func (n *Notifier) SendEmailChange(ctx context.Context, email, code string) error {
	uri := fmt.Sprintf("%s/change-email/activate/%s", n.baseURL, code)
	body := fmt.Sprintf("Follow the link to confirm your new email address:\n%s\n", uri)
	return n.send(ctx, email, SubjectAccountActivation, body)
}

func (n *Notifier) send(ctx context.Context, recipient, subject, body string) error {
	if err := n.mailer.Send(ctx, recipient, subject, body); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to dispatch notification email").
			WithMetadata(map[string]any{
				"subject": subject,
			})
	}
	return nil
}

// logMailer is the development fallback, it prints instead of delivering.
type logMailer struct {
	logger Logger
}

func (m logMailer) Send(_ context.Context, recipient, subject, body string) error {
	m.logger.Info("====== SENDING EMAIL NOTIFICATION =======")
	m.logger.Info("to: %s", recipient)
	m.logger.Info("subject: %s", subject)
	m.logger.Info("%s", body)
	return nil
}

// NewLogMailer returns a Mailer that logs messages instead of sending
// them. Useful in development and tests.
func NewLogMailer(logger Logger) Mailer {
	if logger == nil {
		logger = defLogger{}
	}
	return logMailer{logger: logger}
}
