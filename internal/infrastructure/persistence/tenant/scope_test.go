package tenant

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type orderRow struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status   string    `gorm:"size:20"`
}

func (orderRow) TableName() string {
	return "orders"
}

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)

	return gormDB, mock, mockDB
}

func TestTenantScope(t *testing.T) {
	tenantID := uuid.New()

	t.Run("filters by tenant", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}))

		var rows []orderRow
		require.NoError(t, db.Scopes(TenantScope(tenantID)).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("chains with other conditions", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "orders" WHERE status = \$1 AND tenant_id = \$2`).
			WithArgs("pending", tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "status"}))

		var rows []orderRow
		require.NoError(t, db.Where("status = ?", "pending").Scopes(TenantScope(tenantID)).Find(&rows).Error)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("binds the id as a parameter", func(t *testing.T) {
		db, mock, mockDB := setupMockDB(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "orders" WHERE tenant_id = \$1`).
			WithArgs(tenantID).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

		var n int64
		require.NoError(t, db.Model(&orderRow{}).Scopes(TenantScope(tenantID)).Count(&n).Error)
		assert.Equal(t, int64(3), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestWithoutScope(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want bool
	}{
		{"nil context", nil, false},
		{"plain context", context.Background(), false},
		{"marked context", WithoutScope(context.Background()), true},
		{"derived from marked", context.WithValue(WithoutScope(context.Background()), struct{}{}, 1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUnscoped(tt.ctx))
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "tenant_id", cfg.TenantColumn)
	assert.True(t, cfg.Required)
}
