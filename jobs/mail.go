package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/wneessen/go-mail"

	jobmetrics "github.com/odyssey-erp/workdesk/internal/jobs"
	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

// ErrUnknownTask is returned for task types that cannot be triggered manually.
var ErrUnknownTask = errors.New("jobs: unknown task type")

// Message is a single outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Configured reports whether a host and sender are set.
func (c SMTPConfig) Configured() bool {
	return c.Host != "" && c.From != ""
}

// ErrInvalidAddress is returned when a sender or recipient does not parse as
// a single RFC 5322 address.
var ErrInvalidAddress = errors.New("jobs: invalid email address")

const smtpTimeout = 30 * time.Second

// SMTPMailer sends mail through an SMTP relay.
type SMTPMailer struct {
	cfg     SMTPConfig
	deliver func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPMailer constructs an SMTPMailer.
func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	m := &SMTPMailer{cfg: cfg}
	m.deliver = m.dialAndSend
	return m
}

// Send delivers msg. Dialing and the SMTP exchange stop when ctx is done.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if msg.From == "" {
		msg.From = m.cfg.From
	}
	built, err := buildMessage(msg, time.Now())
	if err != nil {
		return err
	}
	if err := m.deliver(ctx, built); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(smtpTimeout),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password))
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}

// buildMessage parses both addresses, so header values never carry raw
// CR or LF from settings or payloads.
func buildMessage(msg Message, now time.Time) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("%w: sender %q: %v", ErrInvalidAddress, msg.From, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("%w: recipient %q: %v", ErrInvalidAddress, msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetDateWithValue(now)
	m.SetBodyString(mail.TypeTextHTML, msg.Body)
	return m, nil
}

// SettingReader reads tenant settings.
type SettingReader interface {
	Get(ctx context.Context, tenant shared.Tenant, key string) (string, bool, error)
}

// SendEmailJob handles TaskTypeSendEmail tasks.
type SendEmailJob struct {
	Mailer   Mailer
	Settings SettingReader
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle processes TaskTypeSendEmail tasks.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Mailer == nil {
		return errors.New("send email: handler not configured")
	}
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("send email: empty recipient: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskTypeSendEmail)
	defer func() { resultErr = tracker.End(resultErr) }()

	msg := Message{To: payload.To, Subject: payload.Subject, Body: payload.Body, From: j.from(ctx, payload.TenantID)}
	logger := j.logger().With(slog.Int64("tenant_id", payload.TenantID), slog.String("template", payload.Template))
	if err := j.Mailer.Send(ctx, msg); err != nil {
		logger.Error("send email", slog.Any("error", err))
		if errors.Is(err, ErrInvalidAddress) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("email sent")
	return nil
}

func (j *SendEmailJob) from(ctx context.Context, tenantID int64) string {
	if j.Settings == nil {
		return ""
	}
	tenant, err := shared.TenantFromID(tenantID)
	if err != nil {
		return ""
	}
	from, ok, err := j.Settings.Get(ctx, tenant, settings.KeySMTPFrom)
	if err != nil {
		j.logger().Warn("read smtp_from", slog.Int64("tenant_id", tenantID), slog.Any("error", err))
		return ""
	}
	if !ok {
		return ""
	}
	return from
}

func (j *SendEmailJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
