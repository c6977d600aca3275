package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/workdesk/internal/documents"
	jobmetrics "github.com/odyssey-erp/workdesk/internal/jobs"
	"github.com/odyssey-erp/workdesk/internal/notify"
	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/internal/shared"
	"github.com/odyssey-erp/workdesk/internal/templating"
)

const (
	defaultReminderConcurrency = 4
	reminderBatchLimit         = 200
)

// remindableStatuses are the issued, unsettled invoice statuses. Drafts have
// not been sent to the customer yet.
var remindableStatuses = []documents.Status{documents.StatusPosted, documents.StatusPartial}

// TenantLister enumerates tenants.
type TenantLister interface {
	ListTenants(ctx context.Context) ([]shared.Tenant, error)
}

// OverdueFinder returns overdue documents of a kind.
type OverdueFinder interface {
	Overdue(ctx context.Context, tenant shared.Tenant, kind documents.Kind, limit int, statuses ...documents.Status) ([]documents.Document, error)
}

// Notifier sends templated email.
type Notifier interface {
	Send(ctx context.Context, tenant shared.Tenant, req notify.Request) notify.Result
}

// OverdueReminderJob mails the tenant inbox one reminder per overdue sales invoice.
type OverdueReminderJob struct {
	Tenants     TenantLister
	Documents   OverdueFinder
	Notifier    Notifier
	Settings    SettingReader
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	clock       func() time.Time
}

// NewOverdueReminderJob wires dependencies for the reminder handler.
func NewOverdueReminderJob(tenants TenantLister, docs OverdueFinder, notifier Notifier, settingsReader SettingReader, logger *slog.Logger, metrics *jobmetrics.Metrics) *OverdueReminderJob {
	return &OverdueReminderJob{
		Tenants:   tenants,
		Documents: docs,
		Notifier:  notifier,
		Settings:  settingsReader,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// ReminderSummary counts the outcome of a run.
type ReminderSummary struct {
	Tenants int
	Sent    int64
	Failed  int64
}

// Handle processes TaskOverdueReminders tasks.
func (j *OverdueReminderJob) Handle(ctx context.Context, t *asynq.Task) (resultErr error) {
	if j == nil || j.Tenants == nil || j.Documents == nil || j.Notifier == nil {
		return errors.New("overdue reminders: handler not configured")
	}
	var payload OverdueRemindersPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	tracker := j.Metrics.Track(TaskOverdueReminders)
	defer func() { resultErr = tracker.End(resultErr) }()

	summary, err := j.Run(ctx, payload)
	if err != nil {
		j.logger().Error("overdue reminders", slog.Any("error", err))
		return err
	}
	j.logger().Info("completed overdue reminders",
		slog.Int("tenants", summary.Tenants),
		slog.Int64("sent", summary.Sent),
		slog.Int64("failed", summary.Failed))
	return nil
}

// Run sends reminders for every tenant, or only payload.TenantID when set.
// A failing tenant is logged and does not stop the others.
func (j *OverdueReminderJob) Run(ctx context.Context, payload OverdueRemindersPayload) (ReminderSummary, error) {
	tenants, err := j.targets(ctx, payload)
	if err != nil {
		return ReminderSummary{}, err
	}
	limit := j.Concurrency
	if limit <= 0 {
		limit = defaultReminderConcurrency
	}
	var sent, failed atomic.Int64
	now := j.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, tenant := range tenants {
		g.Go(func() error {
			s, f, err := j.remindTenant(gctx, tenant, now)
			sent.Add(s)
			failed.Add(f)
			if err != nil {
				j.logger().Warn("tenant reminders", slog.Int64("tenant_id", tenant.ID()), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return ReminderSummary{}, err
	}
	return ReminderSummary{Tenants: len(tenants), Sent: sent.Load(), Failed: failed.Load()}, nil
}

func (j *OverdueReminderJob) targets(ctx context.Context, payload OverdueRemindersPayload) ([]shared.Tenant, error) {
	if payload.TenantID != 0 {
		tenant, err := shared.TenantFromID(payload.TenantID)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return []shared.Tenant{tenant}, nil
	}
	tenants, err := j.Tenants.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, nil
}

func (j *OverdueReminderJob) remindTenant(ctx context.Context, tenant shared.Tenant, now time.Time) (sent, failed int64, err error) {
	to, ok := j.setting(ctx, tenant, settings.KeyCompanyEmail)
	if !ok {
		j.logger().Debug("overdue reminders skipped, no company email", slog.Int64("tenant_id", tenant.ID()))
		return 0, 0, nil
	}
	locale, _ := j.setting(ctx, tenant, settings.KeyLocale)
	docs, err := j.Documents.Overdue(ctx, tenant, documents.KindSalesInvoice, reminderBatchLimit, remindableStatuses...)
	if err != nil {
		return 0, 0, err
	}
	for _, doc := range docs {
		if !slices.Contains(remindableStatuses, doc.Status) || doc.DisplayStatus != documents.DisplayOverdue {
			continue
		}
		result := j.Notifier.Send(ctx, tenant, notify.Request{
			Template: notify.TemplateInvoiceOverdue,
			Locale:   locale,
			To:       to,
			Values:   reminderValues(doc, now),
		})
		if !result.IsSuccess {
			failed++
			j.Metrics.AddReminders("failure", 1)
			j.logger().Warn("overdue reminder", slog.Int64("tenant_id", tenant.ID()), slog.String("number", doc.Number), slog.String("error", result.Error))
			continue
		}
		sent++
		j.Metrics.AddReminders("sent", 1)
	}
	return sent, failed, nil
}

func (j *OverdueReminderJob) setting(ctx context.Context, tenant shared.Tenant, key string) (string, bool) {
	if j.Settings == nil {
		return "", false
	}
	v, ok, err := j.Settings.Get(ctx, tenant, key)
	if err != nil {
		j.logger().Warn("read setting", slog.String("key", key), slog.Int64("tenant_id", tenant.ID()), slog.Any("error", err))
		return "", false
	}
	return v, ok && v != ""
}

func reminderValues(doc documents.Document, now time.Time) templating.Values {
	days := int(now.Sub(doc.DueDate).Hours() / 24)
	if days < 1 {
		days = 1
	}
	return templating.Values{
		"invoice_number":     doc.Number,
		"invoice_date":       doc.IssueDate.Format("2006-01-02"),
		"invoice_due_date":   doc.DueDate.Format("2006-01-02"),
		"invoice_amount":     doc.Total.StringFixed(2),
		"invoice_due_amount": doc.Balance.StringFixed(2),
		"customer_name":      doc.PartyName,
		"currency":           doc.Currency,
		"days_overdue":       strconv.Itoa(days),
	}
}

func (j *OverdueReminderJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *OverdueReminderJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
