package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/config"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Mailer sends the account notifications of the auth flows
type Mailer interface {
	SendWelcome(ctx context.Context, u *domain.Usuario, password string) error
	SendPasswordReset(ctx context.Context, u *domain.Usuario, resetURL string) error
}

var (
	welcomeTmpl = template.Must(template.New("register").Parse(
		`<p>Hola {{.Nombre}},</p>
<p>Se creó tu cuenta. Tu contraseña inicial es: <strong>{{.Password}}</strong></p>
<p>Te recomendamos cambiarla después de iniciar sesión.</p>`))

	resetTmpl = template.Must(template.New("resetpassword").Parse(
		`<p>Hola {{.Nombre}},</p>
<p>Para restablecer tu contraseña ingresá al siguiente enlace: <a href="{{.URL}}">{{.URL}}</a></p>
<p>El enlace vence en 30 minutos. Si no lo solicitaste, ignorá este correo.</p>`))
)

// SMTPMailer delivers mail through an SMTP relay
type SMTPMailer struct {
	dialer *gomail.Dialer
	sender string
}

// NewSMTPMailer creates an SMTPMailer from the mail configuration
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.Server, cfg.Port, cfg.Username, cfg.Password),
		sender: cfg.Sender,
	}
}

// New returns an SMTPMailer, or a LogMailer when no server is configured
func New(cfg config.MailConfig) Mailer {
	if cfg.Server == "" {
		log.Warn().Msg("MAIL_SERVER not set, outgoing mail will only be logged")
		return LogMailer{}
	}
	return NewSMTPMailer(cfg)
}

func (m *SMTPMailer) SendWelcome(ctx context.Context, u *domain.Usuario, password string) error {
	body, err := render(welcomeTmpl, map[string]string{"Nombre": u.Nombre, "Password": password})
	if err != nil {
		return err
	}
	return m.send(u.Email, "Bienvenido!", body)
}

func (m *SMTPMailer) SendPasswordReset(ctx context.Context, u *domain.Usuario, resetURL string) error {
	body, err := render(resetTmpl, map[string]string{"Nombre": u.Nombre, "URL": resetURL})
	if err != nil {
		return err
	}
	return m.send(u.Email, "Restablecer Contraseña", body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.Info().Str("to", to).Str("subject", subject).Msg("Email sent")
	return nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s email: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// LogMailer only logs the messages it would send. Used in development.
type LogMailer struct{}

func (LogMailer) SendWelcome(ctx context.Context, u *domain.Usuario, password string) error {
	log.Info().Str("to", u.Email).Msg("Welcome email (not sent, mail disabled)")
	return nil
}

func (LogMailer) SendPasswordReset(ctx context.Context, u *domain.Usuario, resetURL string) error {
	log.Info().Str("to", u.Email).Str("url", resetURL).Msg("Password reset email (not sent, mail disabled)")
	return nil
}
