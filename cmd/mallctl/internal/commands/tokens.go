package commands

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServiceTokenCommand(a *app) *cobra.Command {
	var (
		service string
		tenant  string
		scopes  []string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "service-token",
		Short: "Issue a token for an internal service",
		Long: `Issue an X-Service-Token for a service listed in service.allowed.

Without --tenant the token may act on any store named by X-Tenant-ID.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := auth.IssueInput{Service: service, Scopes: scopes, TTL: ttl}
			if tenant != "" {
				id, err := uuid.Parse(tenant)
				if err != nil {
					return fmt.Errorf("invalid tenant id %q: %w", tenant, err)
				}
				in.TenantID = &id
			}
			token, expiresAt, err := auth.NewServiceTokenService(a.cfg.Service, a.cfg.JWT.Issuer).Issue(in)
			if err != nil {
				return err
			}
			a.log.Info("Service token issued",
				zap.String("service", service),
				zap.Strings("scopes", scopes),
				zap.Time("expires_at", expiresAt),
			)
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "Calling service name")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Bind the token to one store ID")
	cmd.Flags().StringSliceVar(&scopes, "scopes", []string{auth.ScopeOrdersWrite}, "Granted scopes")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to service.token_ttl)")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}

func newLicenseCommand(a *app) *cobra.Command {
	var (
		plugin string
		tenant string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "license",
		Short: "Issue a license key for a commercial plugin",
		Long: `Issue a license key signed with license.secret.

Use --tenant '*' for a key that any store may redeem. A zero --ttl issues
a key that never expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			verifier := auth.NewLicenseVerifier(a.cfg.License)
			if verifier.Mode() != auth.LicenseModeJWT {
				a.log.Warn("license.mode is not jwt; the server accepts any key until it is switched")
			}
			key, err := verifier.Issue(plugin, tenant, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), key)
			return nil
		},
	}
	cmd.Flags().StringVar(&plugin, "plugin", "", "Plugin slug the key unlocks")
	cmd.Flags().StringVar(&tenant, "tenant", auth.AnyTenant, "Store ID, or * for any store")
	cmd.Flags().DurationVar(&ttl, "ttl", 365*24*time.Hour, "Key lifetime")
	_ = cmd.MarkFlagRequired("plugin")
	return cmd
}
