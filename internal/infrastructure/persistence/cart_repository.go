package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCartRepository implements trade.CartRepository using GORM
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GormCartRepository
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// FindByUser loads the user's cart with its lines
func (r *GormCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*trade.Cart, error) {
	var model models.CartModel
	err := conn(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where("user_id = ?", userID).
		First(&model).Error
	if err != nil {
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Save upserts the cart header and replaces its lines
func (r *GormCartRepository) Save(ctx context.Context, cart *trade.Cart) error {
	model := models.CartModelFromDomain(cart)
	items := model.Items
	model.Items = nil

	save := func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
			}).
			Create(model).Error; err != nil {
			return translateError(err)
		}
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItemModel{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.Create(&items).Error
	}

	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return save(conn(ctx, r.db))
	}
	return r.db.WithContext(ctx).Transaction(save)
}
