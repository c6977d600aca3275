package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/odyssey-erp/workdesk/internal/notify"
	"github.com/odyssey-erp/workdesk/internal/platform/cache"
	"github.com/odyssey-erp/workdesk/internal/rbac"
	"github.com/odyssey-erp/workdesk/internal/settings"
	"github.com/odyssey-erp/workdesk/internal/shared"
)

var tenantCmd = &cobra.Command{
	Use:   "tenant",
	Short: "Manage tenants",
}

func newTenantBootstrapCmd() *cobra.Command {
	var tenantID, ownerID int64
	var company, email string
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create default roles and grant the owner role",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, err := shared.TenantFromID(tenantID)
			if err != nil {
				return err
			}
			if ownerID <= 0 {
				return fmt.Errorf("--owner must be a positive user id")
			}
			ctx := cmd.Context()
			cfg, logger, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			pool, err := openPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			result, err := rbac.NewService(rbac.NewStore(pool)).Bootstrap(ctx, tenant, ownerID)
			if err != nil {
				return fmt.Errorf("bootstrap rbac: %w", err)
			}
			values := map[string]string{}
			if company != "" {
				values[settings.KeyCompanyName] = company
			}
			if email != "" {
				values[settings.KeyCompanyEmail] = email
			}
			if len(values) > 0 {
				redisClient, err := cache.New(ctx, cfg.RedisAddr)
				if err != nil {
					logger.Warn("redis unavailable, cached settings expire by ttl", slog.Any("error", err))
				} else {
					defer redisClient.Close()
				}
				svc := settings.NewService(settings.NewStore(pool), cache.NewJSONCache(redisClient, "workdesk:settings", cfg.SettingsCacheTTL))
				for key, value := range values {
					if err := svc.Set(ctx, tenant, key, value); err != nil {
						return fmt.Errorf("set %s: %w", key, err)
					}
				}
			}
			templates, err := notify.NewService(notify.NewStore(pool), nil, nil, logger, notify.Options{}).EnsureDefaults(ctx, tenant)
			if err != nil {
				return fmt.Errorf("seed email templates: %w", err)
			}
			logger.Info("tenant bootstrapped", slog.Int64("tenant_id", tenant.ID()))
			fmt.Fprintf(cmd.OutOrStdout(), "tenant %d: %d permissions, %d roles, owner role %d, %d new templates\n",
				tenant.ID(), result.Permissions, len(result.Roles), result.OwnerRoleID, templates)
			return nil
		},
	}
	cmd.Flags().Int64Var(&tenantID, "tenant", 0, "tenant id")
	cmd.Flags().Int64Var(&ownerID, "owner", 0, "user id receiving the owner role")
	cmd.Flags().StringVar(&company, "company", "", "company name setting")
	cmd.Flags().StringVar(&email, "email", "", "company email receiving overdue reminders")
	_ = cmd.MarkFlagRequired("tenant")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func init() {
	tenantCmd.AddCommand(newTenantBootstrapCmd())
	rootCmd.AddCommand(tenantCmd)
}
