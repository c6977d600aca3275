package notify

import (
	"context"
	"errors"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

// DefaultTemplates returns the templates every tenant starts with.
func DefaultTemplates() []Template {
	return []Template{
		{
			Name:        TemplateInvoiceOverdue,
			Description: "Reminder for a sales invoice past its due date",
			Contents: []Content{
				{
					Locale:  "en",
					Subject: "Invoice {invoice_number} is {days_overdue} days overdue",
					Body: "<p>Invoice <b>{invoice_number}</b> for {customer_name} was due on {invoice_due_date}.</p>" +
						"<p>Outstanding: {currency} {invoice_due_amount} of {invoice_amount}.</p>" +
						"<p>{company_name} via {app_name} ({app_url})</p>",
				},
				{
					Locale:  "id",
					Subject: "Faktur {invoice_number} terlambat {days_overdue} hari",
					Body: "<p>Faktur <b>{invoice_number}</b> untuk {customer_name} jatuh tempo pada {invoice_due_date}.</p>" +
						"<p>Sisa tagihan: {currency} {invoice_due_amount} dari {invoice_amount}.</p>" +
						"<p>{company_name} melalui {app_name} ({app_url})</p>",
				},
			},
		},
		{
			Name:        TemplateOfferLetter,
			Description: "Job offer letter",
			Contents: []Content{
				{
					Locale:  "en",
					Subject: "Offer of employment: {job_title}",
					Body: "<p>Dear {candidate_name},</p>" +
						"<p>{company_name} is pleased to offer you the position of {job_title} in {job_department}, " +
						"starting {offer_start_date} with a salary of {offer_salary}.</p>" +
						"<p>This offer is valid until {offer_expiry_date}.</p>",
				},
			},
		},
	}
}

// EnsureDefaults saves each default template the tenant does not have yet and
// returns how many were created.
func (s *Service) EnsureDefaults(ctx context.Context, tenant shared.Tenant) (int, error) {
	created := 0
	for _, tmpl := range DefaultTemplates() {
		_, err := s.store.Find(ctx, tenant, tmpl.Name)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrTemplateNotFound) {
			return created, err
		}
		if _, err := s.SaveTemplate(ctx, tenant, tmpl); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
