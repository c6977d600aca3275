package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/workdesk/internal/documents"
	"github.com/odyssey-erp/workdesk/internal/numbering"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

var numberingCmd = &cobra.Command{
	Use:   "numbering",
	Short: "Inspect document numbering",
}

func newNumberingPeekCmd() *cobra.Command {
	var tenantID int64
	var kindRaw, at string
	cmd := &cobra.Command{
		Use:   "peek",
		Short: "Print the next number without consuming it",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := shared.TenantFromID(tenantID)
			if err != nil {
				return err
			}
			kind, err := documents.ParseKind(kindRaw)
			if err != nil {
				return err
			}
			when, err := parseMonth(at)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			cfg, _, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			next, err := numbering.NewGenerator(numbering.NewPGSequencer(pool)).Peek(ctx, tenant, kind.Prefix(), when)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), next)
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id")
	cmd.Flags().StringVar(&kindRaw, "kind", "", "document kind, e.g. sales_invoice")
	cmd.Flags().StringVar(&at, "month", "", "period as YYYY-MM, defaults to the current month")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("kind")
	return cmd
}

func parseMonth(raw string) (time.Time, error) {
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("--month must be YYYY-MM: %w", err)
	}
	return t, nil
}

func init() {
	numberingCmd.AddCommand(newNumberingPeekCmd())
	rootCmd.AddCommand(numberingCmd)
}
