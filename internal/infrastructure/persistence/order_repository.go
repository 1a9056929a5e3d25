package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Create inserts the order and its lines
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	return translateError(conn(ctx, r.db).Create(models.OrderModelFromDomain(order)).Error)
}

// Update saves header changes when the stored version still matches the
// one the order was loaded with, then bumps it. Lines are immutable after
// checkout.
func (r *GormOrderRepository) Update(ctx context.Context, order *trade.Order) error {
	model := models.OrderModelFromDomain(order)
	model.Items = nil
	model.Version = order.Version + 1

	db := conn(ctx, r.db)
	result := db.Model(model).
		Where("version = ?", order.Version).
		Select("*").Omit(updateColumnsOmitted...).
		Updates(model)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		var n int64
		if err := db.Model(&models.OrderModel{}).Where("id = ?", order.ID).Count(&n).Error; err != nil {
			return translateError(err)
		}
		if n == 0 {
			return shared.ErrNotFound
		}
		return shared.ErrConcurrencyConflict
	}
	order.Version = model.Version
	return nil
}

// FindByID finds an order with its lines
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := conn(ctx, r.db).Preload("Items").First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds orders matching the filter
func (r *GormOrderRepository) FindAll(ctx context.Context, filter trade.OrderFilter) ([]*trade.Order, int64, error) {
	query := conn(ctx, r.db).Model(&models.OrderModel{})
	query = applySearch(query, filter.Search, "order_number")
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	query, total, err := paginate(query, filter.Filter, OrderSortFields)
	if err != nil {
		return nil, 0, err
	}

	var orderModels []models.OrderModel
	if err := query.Preload(clause.Associations).Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}
	orders := make([]*trade.Order, len(orderModels))
	for i := range orderModels {
		orders[i] = orderModels[i].ToDomain()
	}
	return orders, total, nil
}
