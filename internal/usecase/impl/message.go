package impl

import (
	"bytes"
	"html/template"
	"strings"

	"identity/config"
	"identity/internal/domain/service"
	"identity/internal/errors"
)

const (
	verificationSubject = "Verify your email address"
	resetSubject        = "Reset your password"
)

//nolint:gochecknoglobals
var (
	verificationTemplate = template.Must(template.New("verification").Parse(
		`<p>Use this code to verify your email address:</p>` +
			`<p><strong>{{.Code}}</strong></p>` +
			`{{if .Link}}<p><a href="{{.Link}}">Verify email</a></p>{{end}}`,
	))

	resetTemplate = template.Must(template.New("reset").Parse(
		`<p>Use this code to reset your password:</p>` +
			`<p><strong>{{.Code}}</strong></p>` +
			`{{if .Link}}<p><a href="{{.Link}}">Reset password</a></p>{{end}}` +
			`<p>If you did not ask for a reset, ignore this email.</p>`,
	))
)

type messageData struct {
	Code string
	Link string
}

// messageBuilder renders the mails that carry single-use codes.
type messageBuilder struct {
	verifyEmailURL   string
	resetPasswordURL string
}

func newMessageBuilder(cfg *config.MailConfig) *messageBuilder {
	if cfg == nil {
		return &messageBuilder{}
	}

	return &messageBuilder{
		verifyEmailURL:   cfg.VerifyEmailURL,
		resetPasswordURL: cfg.ResetPasswordURL,
	}
}

func (b *messageBuilder) Verification(to, code string) (*service.Message, error) {
	return render(verificationTemplate, to, verificationSubject, code, b.verifyEmailURL)
}

func (b *messageBuilder) Reset(to, code string) (*service.Message, error) {
	return render(resetTemplate, to, resetSubject, code, b.resetPasswordURL)
}

func render(tmpl *template.Template, to, subject, code, baseURL string) (*service.Message, error) {
	data := messageData{Code: code}
	if baseURL != "" {
		data.Link = strings.TrimRight(baseURL, "/") + "/" + code
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render %s message", tmpl.Name())
	}

	return &service.Message{To: to, Subject: subject, HTMLBody: body.String()}, nil
}
