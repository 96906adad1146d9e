// Package notification delivers verification and reset messages.
package notification

import (
	"context"
	"log/slog"

	"identity/config"
	"identity/internal/domain/service"
	"identity/internal/errors"

	"github.com/wneessen/go-mail"
)

type smtpNotifier struct {
	client *mail.Client
	from   string
	logger *slog.Logger
}

// NewSMTPNotifier creates an SMTP notifier. Secure selects implicit TLS, otherwise STARTTLS is used when offered.
func NewSMTPNotifier(cfg *config.MailConfig, logger *slog.Logger) (service.Notifier, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Secure {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	}
	if cfg.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.User),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create SMTP client")
	}

	logger.Info("SMTP notifier initialized",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.Bool("secure", cfg.Secure),
	)

	return &smtpNotifier{client: client, from: cfg.From, logger: logger}, nil
}

// Send opens a connection per message; ctx bounds dial and transfer.
func (n *smtpNotifier) Send(ctx context.Context, msg *service.Message) error {
	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return errors.Wrap(err, "invalid sender address")
	}
	if err := m.To(msg.To); err != nil {
		return errors.Wrap(err, "invalid recipient address")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	if err := n.client.DialAndSendWithContext(ctx, m); err != nil {
		return errors.Wrap(err, "failed to send mail")
	}

	return nil
}
