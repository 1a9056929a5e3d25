package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	catalogapp "github.com/jiffoo/mall/internal/application/catalog"
	identityapp "github.com/jiffoo/mall/internal/application/identity"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type seedOptions struct {
	store         string
	adminEmail    string
	adminPassword string
	products      int
	seed          uint64
	superEmail    string
	superPassword string
	autoMigrate   bool
}

func newSeedCommand(a *app) *cobra.Command {
	var opts seedOptions
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create a demo store with an admin and a generated catalog",
		Long: `Create a demo store, its admin account and a catalog of generated
products. Re-running against an existing store only adds products.

With --super-admin-email a platform super admin is created as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.seed(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.store, "store", "demo", "Slug of the demo store")
	f.StringVar(&opts.adminEmail, "admin-email", "admin@demo.example.com", "Store admin email")
	f.StringVar(&opts.adminPassword, "admin-password", "demo12345", "Store admin password")
	f.IntVar(&opts.products, "products", 20, "Number of products to generate")
	f.Uint64Var(&opts.seed, "seed", 0, "Random seed (0 picks one)")
	f.StringVar(&opts.superEmail, "super-admin-email", "", "Also create a platform super admin with this email")
	f.StringVar(&opts.superPassword, "super-admin-password", "", "Password of the platform super admin")
	f.BoolVar(&opts.autoMigrate, "auto-migrate", false, "Create missing tables first (always on for sqlite)")
	return cmd
}

func (a *app) seed(ctx context.Context, out io.Writer, opts seedOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := persistence.NewDatabase(&a.cfg.Database, logger.NewGormLogger(a.log, logger.MapGormLogLevel("warn")))
	if err != nil {
		return err
	}
	defer func() {
		_ = db.Close()
	}()
	if opts.autoMigrate || a.cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	tenants := identityapp.NewTenantService(tenantRepo, userRepo, persistence.NewGormTransactor(db.DB), nil, a.log)
	products := catalogapp.NewProductService(persistence.NewGormProductRepository(db.DB), nil, 0)

	if err := ensurePlatformTenant(ctx, tenantRepo); err != nil {
		return err
	}
	if opts.superEmail != "" {
		created, err := ensureSuperAdmin(ctx, userRepo, opts.superEmail, opts.superPassword)
		if err != nil {
			return err
		}
		if created {
			fmt.Fprintf(out, "super admin: %s\n", opts.superEmail)
		}
	}

	faker := gofakeit.New(opts.seed)
	store, err := tenantRepo.FindBySlug(ctx, opts.store)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		result, err := tenants.Register(ctx, identityapp.RegisterTenantInput{
			Slug:          opts.store,
			Name:          faker.Company(),
			ContactEmail:  opts.adminEmail,
			AdminEmail:    opts.adminEmail,
			AdminUsername: "admin",
			AdminPassword: opts.adminPassword,
		})
		if err != nil {
			return fmt.Errorf("failed to create store %q: %w", opts.store, err)
		}
		store, err = tenantRepo.FindByID(ctx, result.Tenant.ID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "store: %s (%s)\nadmin: %s\n", store.Slug, store.ID, opts.adminEmail)
	case err != nil:
		return err
	default:
		a.log.Info("Store exists, adding products only", zap.String("store", store.Slug))
	}

	storeCtx := logger.ContextWithTenantID(ctx, store.ID.String())
	for _, req := range fakeProducts(faker, opts.products) {
		if _, err := products.Create(storeCtx, store.ID, req); err != nil {
			return fmt.Errorf("failed to create product %q: %w", req.Name, err)
		}
	}
	fmt.Fprintf(out, "products: %d\n", opts.products)
	return nil
}

// ensurePlatformTenant creates the reserved store that owns super admins.
// The postgres migrations insert it; auto-migrated databases need this.
func ensurePlatformTenant(ctx context.Context, repo identity.TenantRepository) error {
	_, err := repo.FindByID(ctx, identity.PlatformTenantID)
	if err == nil || !errors.Is(err, shared.ErrNotFound) {
		return err
	}
	now := time.Now()
	return repo.Create(ctx, &identity.Tenant{
		BaseEntity: shared.BaseEntity{ID: identity.PlatformTenantID, CreatedAt: now, UpdatedAt: now},
		Slug:       "platform",
		Name:       "Jiffoo Platform",
		Status:     identity.TenantStatusActive,
		Plan:       identity.TenantPlanEnterprise,
		Settings:   identity.DefaultTenantSettings(),
	})
}

func ensureSuperAdmin(ctx context.Context, repo identity.UserRepository, email, password string) (bool, error) {
	ctx = logger.ContextWithTenantID(ctx, identity.PlatformTenantID.String())
	exists, err := repo.ExistsByEmail(ctx, email)
	if err != nil || exists {
		return false, err
	}
	user, err := identity.NewUser(identity.PlatformTenantID, email, "superadmin", password, identity.RoleSuperAdmin)
	if err != nil {
		return false, err
	}
	return true, repo.Create(ctx, user)
}

func fakeProducts(f *gofakeit.Faker, n int) []catalogapp.CreateProductRequest {
	reqs := make([]catalogapp.CreateProductRequest, 0, n)
	for range n {
		reqs = append(reqs, catalogapp.CreateProductRequest{
			Name:        f.ProductName(),
			Description: f.ProductDescription(),
			Price:       decimal.NewFromFloat(f.Price(1, 500)).Round(2),
			Stock:       f.IntRange(0, 250),
			Category:    f.ProductCategory(),
			Status:      string(catalog.ProductStatusActive),
		})
	}
	return reqs
}
