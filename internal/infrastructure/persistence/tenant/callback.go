package tenant

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// TenantCallback provides GORM callback hooks for automatic tenant filtering
type TenantCallback struct {
	tenantColumn string
	required     bool
}

// NewTenantCallback creates a new tenant callback handler
func NewTenantCallback(cfg Config) *TenantCallback {
	if cfg.TenantColumn == "" {
		cfg.TenantColumn = "tenant_id"
	}
	return &TenantCallback{
		tenantColumn: cfg.TenantColumn,
		required:     cfg.Required,
	}
}

// Register installs tenant callbacks on db
func Register(db *gorm.DB, cfg Config) error {
	return NewTenantCallback(cfg).RegisterCallbacks(db)
}

// RegisterCallbacks registers tenant callbacks with GORM
func (tc *TenantCallback) RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	if err := cb.Query().Before("gorm:query").Register("tenant:before_query", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Row().Before("gorm:row").Register("tenant:before_row", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Update().Before("gorm:update").Register("tenant:before_update", tc.addTenantFilter); err != nil {
		return err
	}
	if err := cb.Delete().Before("gorm:delete").Register("tenant:before_delete", tc.addTenantFilter); err != nil {
		return err
	}
	return cb.Create().Before("gorm:create").Register("tenant:before_create", tc.stampTenant)
}

// tenantField returns the tenant column of the statement's model, or nil
// when the model is not tenant-owned
func (tc *TenantCallback) tenantField(db *gorm.DB) *schema.Field {
	if db.Statement.Schema == nil {
		return nil
	}
	return db.Statement.Schema.LookUpField(tc.tenantColumn)
}

// contextTenant returns the validated tenant ID from the statement
// context. ok is false when the statement must proceed unfiltered.
func (tc *TenantCallback) contextTenant(db *gorm.DB) (uuid.UUID, bool) {
	tenantID := logger.GetTenantID(db.Statement.Context)
	if tenantID == "" {
		if tc.required {
			_ = db.AddError(ErrTenantIDRequired)
		}
		return uuid.Nil, false
	}
	id, err := uuid.Parse(tenantID)
	if err != nil {
		_ = db.AddError(ErrInvalidTenantID)
		return uuid.Nil, false
	}
	return id, true
}

// addTenantFilter adds tenant filtering to read, update and delete statements
func (tc *TenantCallback) addTenantFilter(db *gorm.DB) {
	if db.Error != nil || db.Statement.Context == nil || db.Statement.Unscoped {
		return
	}
	if IsUnscoped(db.Statement.Context) || tc.tenantField(db) == nil {
		return
	}
	if tc.hasTenantCondition(db) {
		return
	}

	tenantID, ok := tc.contextTenant(db)
	if !ok {
		return
	}

	db.Statement.AddClause(clause.Where{
		Exprs: []clause.Expression{
			clause.Eq{
				Column: clause.Column{Table: clause.CurrentTable, Name: tc.tenantColumn},
				Value:  tenantID,
			},
		},
	})
}

// stampTenant sets tenant_id on records being created, rejecting records
// that already belong to another tenant
func (tc *TenantCallback) stampTenant(db *gorm.DB) {
	if db.Error != nil || db.Statement.Context == nil || IsUnscoped(db.Statement.Context) {
		return
	}
	field := tc.tenantField(db)
	if field == nil {
		return
	}

	tenantID, ok := tc.contextTenant(db)
	if !ok {
		return
	}

	rv := db.Statement.ReflectValue
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := tc.stampRecord(db, field, rv.Index(i), tenantID); err != nil {
				_ = db.AddError(err)
				return
			}
		}
	case reflect.Struct:
		if err := tc.stampRecord(db, field, rv, tenantID); err != nil {
			_ = db.AddError(err)
		}
	}
}

func (tc *TenantCallback) stampRecord(db *gorm.DB, field *schema.Field, rv reflect.Value, tenantID uuid.UUID) error {
	ctx := db.Statement.Context
	current, zero := field.ValueOf(ctx, rv)
	if zero {
		return field.Set(ctx, rv, tenantID)
	}
	if fmt.Sprint(current) != tenantID.String() {
		return ErrCrossTenantWrite
	}
	return nil
}

// hasTenantCondition checks if tenant_id condition is already present
func (tc *TenantCallback) hasTenantCondition(db *gorm.DB) bool {
	if whereClause, ok := db.Statement.Clauses["WHERE"]; ok {
		if where, ok := whereClause.Expression.(clause.Where); ok {
			for _, expr := range where.Exprs {
				if tc.exprContainsTenant(expr) {
					return true
				}
			}
		}
	}

	sql := db.Statement.SQL.String()
	return sql != "" && strings.Contains(sql, tc.tenantColumn)
}

// exprContainsTenant checks if an expression contains tenant_id column
func (tc *TenantCallback) exprContainsTenant(expr clause.Expression) bool {
	switch e := expr.(type) {
	case clause.Eq:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.tenantColumn
		}
	case clause.IN:
		if col, ok := e.Column.(clause.Column); ok {
			return col.Name == tc.tenantColumn
		}
	case clause.Expr:
		return strings.Contains(e.SQL, tc.tenantColumn)
	case clause.AndConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	case clause.OrConditions:
		for _, cond := range e.Exprs {
			if tc.exprContainsTenant(cond) {
				return true
			}
		}
	}
	return false
}
