package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/odyssey-erp/workdesk/internal/shared"
	"github.com/odyssey-erp/workdesk/internal/templating"
)

// Enqueuer hands rendered mail to the delivery queue.
type Enqueuer interface {
	EnqueueMail(ctx context.Context, mail Mail) error
}

// CompanyNamer resolves the tenant company name.
type CompanyNamer interface {
	CompanyName(ctx context.Context, tenant shared.Tenant) (string, error)
}

// Options configures the Service.
type Options struct {
	AppName        string
	AppURL         string
	SMTPConfigured bool
}

// Service renders and sends tenant email templates.
type Service struct {
	store     Store
	companies CompanyNamer
	queue     Enqueuer
	logger    *slog.Logger
	opts      Options
}

// NewService constructs a Service. companies and queue may be nil.
func NewService(store Store, companies CompanyNamer, queue Enqueuer, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, companies: companies, queue: queue, logger: logger, opts: opts}
}

// Templates lists the tenant templates.
func (s *Service) Templates(ctx context.Context, tenant shared.Tenant) ([]Template, error) {
	return s.store.List(ctx, tenant)
}

// SaveTemplate creates or updates a template and its localized contents.
func (s *Service) SaveTemplate(ctx context.Context, tenant shared.Tenant, tmpl Template) (Template, error) {
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Name == "" {
		return Template{}, fmt.Errorf("%w: name required", ErrInvalidTemplate)
	}
	for i, c := range tmpl.Contents {
		c.Locale = strings.TrimSpace(c.Locale)
		if c.Locale == "" || strings.TrimSpace(c.Body) == "" {
			return Template{}, fmt.Errorf("%w: content %d needs locale and body", ErrInvalidTemplate, i)
		}
		tmpl.Contents[i] = c
	}
	return s.store.Save(ctx, tenant, tmpl)
}

// Render fills the template best matching locale with values.
func (s *Service) Render(ctx context.Context, tenant shared.Tenant, name, locale string, values templating.Values) (Rendered, error) {
	tmpl, err := s.store.Find(ctx, tenant, name)
	if err != nil {
		return Rendered{}, err
	}
	content, ok := pickContent(tmpl.Contents, locale)
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s/%s", ErrContentNotFound, name, locale)
	}
	globals, err := s.globals(ctx, tenant, values)
	if err != nil {
		return Rendered{}, err
	}
	return Rendered{
		Locale:  content.Locale,
		Subject: templating.Substitute(content.Subject, values, globals),
		Body:    templating.Substitute(content.Body, values, globals),
	}, nil
}

// Send renders the requested template and queues it for delivery. Failures
// are reported in the Result rather than returned.
func (s *Service) Send(ctx context.Context, tenant shared.Tenant, req Request) Result {
	if !s.opts.SMTPConfigured || s.queue == nil {
		return failure(ErrSMTPNotConfigured)
	}
	if strings.TrimSpace(req.To) == "" {
		return failure(fmt.Errorf("%w: recipient required", ErrInvalidTemplate))
	}
	rendered, err := s.Render(ctx, tenant, req.Template, req.Locale, req.Values)
	if err != nil {
		if !errors.Is(err, ErrTemplateNotFound) && !errors.Is(err, ErrContentNotFound) {
			s.logger.Error("render email", slog.String("template", req.Template), slog.Any("error", err))
		}
		return failure(err)
	}
	mail := Mail{
		TenantID: tenant.ID(),
		To:       req.To,
		Subject:  rendered.Subject,
		Body:     rendered.Body,
		Template: req.Template,
	}
	if err := s.queue.EnqueueMail(ctx, mail); err != nil {
		s.logger.Error("enqueue email", slog.String("template", req.Template), slog.Any("error", err))
		return failure(fmt.Errorf("enqueue email: %w", err))
	}
	return Result{IsSuccess: true}
}

func (s *Service) globals(ctx context.Context, tenant shared.Tenant, values templating.Values) (templating.Globals, error) {
	g := templating.Globals{AppName: s.opts.AppName, AppURL: s.opts.AppURL}
	if s.companies == nil || !templating.NeedsCompanyName(values) {
		return g, nil
	}
	name, err := s.companies.CompanyName(ctx, tenant)
	if err != nil {
		return g, fmt.Errorf("resolve company name: %w", err)
	}
	g.CompanyName = name
	return g, nil
}

func failure(err error) Result {
	return Result{IsSuccess: false, Error: err.Error()}
}
