package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

type recordingMailer struct {
	sent []Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type mapSettings map[int64]map[string]string

func (m mapSettings) Get(ctx context.Context, tenant shared.Tenant, key string) (string, bool, error) {
	v, ok := m[tenant.ID()][key]
	return v, ok, nil
}

func emailTask(t *testing.T, payload SendEmailPayload) *asynq.Task {
	t.Helper()
	task, err := NewSendEmailTask(payload)
	require.NoError(t, err)
	return task
}

func TestSendEmailJobUsesTenantSender(t *testing.T) {
	mailer := &recordingMailer{}
	job := &SendEmailJob{
		Mailer:   mailer,
		Settings: mapSettings{7: {settings.KeySMTPFrom: "billing@acme.test"}},
	}
	err := job.Handle(context.Background(), emailTask(t, SendEmailPayload{TenantID: 7, To: "a@b.c", Subject: "Hi", Body: "<p>x</p>"}))
	require.NoError(t, err)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "billing@acme.test", mailer.sent[0].From)
	assert.Equal(t, "Hi", mailer.sent[0].Subject)

	require.NoError(t, job.Handle(context.Background(), emailTask(t, SendEmailPayload{TenantID: 8, To: "a@b.c"})))
	assert.Empty(t, mailer.sent[1].From)
}

func TestSendEmailJobRejectsBadPayload(t *testing.T) {
	job := &SendEmailJob{Mailer: &recordingMailer{}}

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{")))
	require.ErrorIs(t, err, asynq.SkipRetry)

	data, _ := json.Marshal(SendEmailPayload{Subject: "no recipient"})
	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, data))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestSendEmailJobPropagatesMailerError(t *testing.T) {
	boom := errors.New("relay down")
	job := &SendEmailJob{Mailer: &recordingMailer{err: boom}}
	err := job.Handle(context.Background(), emailTask(t, SendEmailPayload{To: "a@b.c"}))
	require.ErrorIs(t, err, boom)
}

func TestSMTPMailerBuildsMessage(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "smtp.test", Username: "u", Password: "p", From: "noreply@workdesk.test"})
	var got *mail.Msg
	mailer.deliver = func(ctx context.Context, msg *mail.Msg) error {
		got = msg
		return nil
	}

	require.NoError(t, mailer.Send(context.Background(), Message{To: "a@b.c", Subject: "Faktur jatuh tempo", Body: "<b>hi</b>"}))
	require.NotNil(t, got)
	assert.Equal(t, 587, mailer.cfg.Port)
	from := got.GetFrom()
	require.Len(t, from, 1)
	assert.Equal(t, "noreply@workdesk.test", from[0].Address)
	rcpts, err := got.GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"a@b.c"}, rcpts)
	assert.Equal(t, []string{"Faktur jatuh tempo"}, got.GetGenHeader(mail.HeaderSubject))

	var buf bytes.Buffer
	_, err = got.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "text/html")
	assert.Contains(t, buf.String(), "<b>hi</b>")
}

func TestSMTPMailerRejectsHeaderInjection(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "smtp.test", From: "noreply@workdesk.test"})
	mailer.deliver = func(context.Context, *mail.Msg) error {
		t.Fatal("deliver must not be called")
		return nil
	}

	for _, msg := range []Message{
		{To: "ops@acme.test\r\nBcc: victim@elsewhere.test"},
		{To: "ops@acme.test", From: "billing@acme.test\nBcc: victim@elsewhere.test"},
		{To: "not an address"},
	} {
		err := mailer.Send(context.Background(), msg)
		assert.ErrorIs(t, err, ErrInvalidAddress, msg.To)
	}
}

func TestSendEmailJobDoesNotRetryInvalidAddress(t *testing.T) {
	job := &SendEmailJob{Mailer: &recordingMailer{err: fmt.Errorf("%w: recipient", ErrInvalidAddress)}}
	err := job.Handle(context.Background(), emailTask(t, SendEmailPayload{To: "a@b.c\r\nBcc: x@y.z"}))
	require.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, ErrInvalidAddress)
}

func TestSMTPMailerHonoursCancelledContext(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "smtp.test", From: "x@y.z"})
	mailer.deliver = func(context.Context, *mail.Msg) error {
		t.Fatal("deliver must not be called")
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, mailer.Send(ctx, Message{To: "a@b.c"}), context.Canceled)
}

func TestBuildMessageSetsDate(t *testing.T) {
	msg, err := buildMessage(Message{From: "a@b.c", To: "d@e.f", Subject: "Pengingat é"}, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []string{"Wed, 01 May 2024 00:00:00 +0000"}, msg.GetGenHeader(mail.HeaderDate))
	assert.Equal(t, []string{"Pengingat é"}, msg.GetGenHeader(mail.HeaderSubject))
}

func TestSMTPConfigConfigured(t *testing.T) {
	assert.False(t, SMTPConfig{}.Configured())
	assert.False(t, SMTPConfig{Host: "smtp"}.Configured())
	assert.True(t, SMTPConfig{Host: "smtp", From: "a@b.c"}.Configured())
}
