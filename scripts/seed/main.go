// Command seed loads a demo tenant: roles, settings, email templates and a
// handful of documents in every lifecycle state.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/workdesk/internal/app"
	"github.com/odyssey-erp/workdesk/internal/documents"
	"github.com/odyssey-erp/workdesk/internal/notify"
	"github.com/odyssey-erp/workdesk/internal/platform/db"
	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

func main() {
	tenantID := flag.Int64("tenant", 1, "tenant id to seed")
	ownerID := flag.Int64("owner", 1, "owner user id")
	flag.Parse()

	ctx := context.Background()
	cfg, err := app.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	pool, err := db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	tenant, err := shared.TenantFromID(*tenantID)
	if err != nil {
		log.Fatal(err)
	}
	logger := app.NewLogger(cfg)

	fmt.Println("→ Seeding RBAC...")
	if _, err := rbac.NewService(rbac.NewStore(pool)).Bootstrap(ctx, tenant, *ownerID); err != nil {
		log.Fatalf("seed rbac: %v", err)
	}

	fmt.Println("→ Seeding settings...")
	settingsService := settings.NewService(settings.NewStore(pool), nil)
	for key, value := range map[string]string{
		settings.KeyCompanyName:  "PT Odyssey Demo",
		settings.KeyCompanyEmail: "finance@demo.workdesk.local",
		settings.KeyLocale:       "id",
	} {
		if err := settingsService.Set(ctx, tenant, key, value); err != nil {
			log.Fatalf("seed setting %s: %v", key, err)
		}
	}

	fmt.Println("→ Seeding email templates...")
	if _, err := notify.NewService(notify.NewStore(pool), nil, nil, logger, notify.Options{}).EnsureDefaults(ctx, tenant); err != nil {
		log.Fatalf("seed templates: %v", err)
	}

	fmt.Println("→ Seeding documents...")
	svc := documents.NewService(documents.NewRepository(pool), shared.NewAuditLogger(pool), nil, logger, documents.Options{
		MaxNumberAttempts: cfg.NumberingMaxAttempts,
	})
	if err := seedDocuments(ctx, svc, tenant, *ownerID); err != nil {
		log.Fatalf("seed documents: %v", err)
	}

	fmt.Println("✓ Seed complete at", time.Now().Format(time.RFC3339))
}

func seedDocuments(ctx context.Context, svc *documents.Service, tenant shared.Tenant, actor int64) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	lines := []documents.LineInput{
		{Description: "Consulting hours", Quantity: decimal.NewFromInt(12), UnitPrice: decimal.RequireFromString("350000"), TaxPct: decimal.NewFromInt(11)},
		{Description: "Hosting (monthly)", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("1250000"), DiscountPct: decimal.NewFromInt(10), TaxPct: decimal.NewFromInt(11)},
	}
	create := func(kind documents.Kind, party string, issue, due time.Time) (documents.Document, error) {
		return svc.Create(ctx, tenant, documents.CreateInput{
			Kind:      kind,
			PartyID:   1,
			PartyName: party,
			Currency:  "IDR",
			IssueDate: issue,
			DueDate:   due,
			CreatedBy: actor,
			Lines:     lines,
		})
	}

	if _, err := create(documents.KindSalesInvoice, "CV Draft Only", today, today.AddDate(0, 0, 30)); err != nil {
		return err
	}

	overdue, err := create(documents.KindSalesInvoice, "PT Late Payer", today.AddDate(0, 0, -45), today.AddDate(0, 0, -15))
	if err != nil {
		return err
	}
	if _, err := svc.Post(ctx, tenant, overdue.ID, actor); err != nil {
		return err
	}

	partial, err := create(documents.KindSalesInvoice, "PT Partial", today.AddDate(0, 0, -10), today.AddDate(0, 0, 20))
	if err != nil {
		return err
	}
	if _, err := svc.Post(ctx, tenant, partial.ID, actor); err != nil {
		return err
	}
	if _, err := svc.Pay(ctx, tenant, partial.ID, documents.PayInput{
		Amount: decimal.NewFromInt(1000000), PaidAt: today, Method: "transfer", CreatedBy: actor,
	}); err != nil {
		return err
	}

	bill, err := create(documents.KindPurchaseInvoice, "PT Supplier", today.AddDate(0, 0, -5), today.AddDate(0, 0, 25))
	if err != nil {
		return err
	}
	if _, err := svc.Post(ctx, tenant, bill.ID, actor); err != nil {
		return err
	}

	proposal, err := create(documents.KindSalesProposal, "PT Prospect", today, time.Time{})
	if err != nil {
		return err
	}
	if _, err := svc.Send(ctx, tenant, proposal.ID, actor); err != nil {
		return err
	}
	if _, err := svc.Accept(ctx, tenant, proposal.ID, actor); err != nil {
		return err
	}
	_, err = svc.ConvertProposal(ctx, tenant, proposal.ID, actor, today.AddDate(0, 0, 30))
	return err
}
