//go:build integration

package persistence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
)

// newPostgresDatabase starts a throwaway postgres container and applies the
// embedded SQL migrations to it.
func newPostgresDatabase(t *testing.T) *Database {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("mall_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.GreaterOrEqual(t, version, uint(2))
	require.NoError(t, m.Close())

	db, err := Open(postgres.Open(dsn), Options{TenantRequired: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestPostgres_MigrationsMatchModels(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()

	tenants := NewGormTenantRepository(db.DB)
	platform, err := tenants.FindBySlug(ctx, "platform")
	require.NoError(t, err)
	assert.True(t, platform.IsActive())

	store := mustTenant(t, "pg-store")
	require.NoError(t, tenants.Create(ctx, store))
	err = tenants.Create(ctx, mustTenant(t, "pg-store"))
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	tctx := ctxForTenant(store.ID)
	products := NewGormProductRepository(db.DB)
	p := mustProduct(t, store.ID, "Espresso Beans", "12.50", 5)
	require.NoError(t, products.Create(tctx, p))

	got, err := products.FindByID(tctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "12.5", got.Price.String())

	_, err = products.FindByID(ctxForTenant(platform.ID), p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPostgres_ConcurrentCheckoutNeverOversells(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()

	store := mustTenant(t, "oversell")
	require.NoError(t, NewGormTenantRepository(db.DB).Create(ctx, store))
	tctx := ctxForTenant(store.ID)

	products := NewGormProductRepository(db.DB)
	p := mustProduct(t, store.ID, "Limited Print", "30.00", 3)
	require.NoError(t, products.Create(tctx, p))

	tx := NewGormTransactor(db.DB)
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := tx.WithinTx(tctx, func(ctx context.Context) error {
				return products.DecrementStock(ctx, p.ID, 1)
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	got, err := products.FindByID(tctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Stock)
}

func TestPostgres_OrderRoundTrip(t *testing.T) {
	db := newPostgresDatabase(t)
	ctx := context.Background()

	store := mustTenant(t, "orders-pg")
	require.NoError(t, NewGormTenantRepository(db.DB).Create(ctx, store))
	tctx := ctxForTenant(store.ID)

	user, err := identity.NewUser(store.ID, "buyer@example.com", "", "Password123", identity.RoleCustomer)
	require.NoError(t, err)
	require.NoError(t, NewGormUserRepository(db.DB).Create(tctx, user))
	p := mustProduct(t, store.ID, "Mug", "8.00", 10)
	require.NoError(t, NewGormProductRepository(db.DB).Create(tctx, p))

	cart := trade.NewCart(store.ID, user.ID)
	require.NoError(t, cart.AddItem(p.ID, p.Name, p.Price, 2))
	require.NoError(t, NewGormCartRepository(db.DB).Save(tctx, cart))

	order, err := trade.NewOrderFromCart(cart, "USD", trade.ShippingAddress{
		Name: "Ada", Line1: "1 Main St", City: "Springfield", Country: "US",
	}, "")
	require.NoError(t, err)

	orders := NewGormOrderRepository(db.DB)
	require.NoError(t, orders.Create(tctx, order))

	got, err := orders.FindByID(tctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "16", got.TotalAmount.String())
	assert.Equal(t, "Springfield", got.ShippingAddress.City)

	_, err = orders.FindByID(ctxForTenant(uuid.New()), order.ID)
	assert.Error(t, err)
}
