package persistence

import (
	"strings"

	"github.com/jiffoo/mall/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// updateColumnsOmitted are never rewritten by an update
var updateColumnsOmitted = []string{"id", "tenant_id", "created_at", clause.Associations}

// applySearch adds a case-insensitive LIKE across columns. Portable between
// postgres and sqlite, unlike ILIKE.
func applySearch(query *gorm.DB, search string, columns ...string) *gorm.DB {
	search = strings.TrimSpace(search)
	if search == "" || len(columns) == 0 {
		return query
	}
	keyword := "%" + strings.ToLower(search) + "%"
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, col := range columns {
		conds[i] = "LOWER(" + col + ") LIKE ?"
		args[i] = keyword
	}
	return query.Where("("+strings.Join(conds, " OR ")+")", args...)
}

// paginate counts the matching rows, then applies whitelisted sorting and
// offset/limit to query
func paginate(query *gorm.DB, filter shared.Filter, allowed map[string]bool) (*gorm.DB, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	filter = filter.Normalize()
	sortField := ValidateSortField(filter.OrderBy, allowed, "created_at")
	sortOrder := ValidateSortOrder(filter.OrderDir)
	query = query.Order(sortField + " " + sortOrder).
		Offset(filter.Offset()).
		Limit(filter.PageSize)
	return query, total, nil
}
