package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/storage"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// DefaultMaxImageSize caps uploads when no limit is configured
const DefaultMaxImageSize = 5 << 20

// ProductService handles product-related business operations
type ProductService struct {
	productRepo  catalog.ProductRepository
	images       storage.ObjectStorage
	maxImageSize int64
}

// NewProductService creates a new ProductService. images may be nil, in
// which case uploads are rejected.
func NewProductService(productRepo catalog.ProductRepository, images storage.ObjectStorage, maxImageSize int64) *ProductService {
	if maxImageSize <= 0 {
		maxImageSize = DefaultMaxImageSize
	}
	return &ProductService{
		productRepo:  productRepo,
		images:       images,
		maxImageSize: maxImageSize,
	}
}

// ListActive returns the storefront listing; only active products are visible
func (s *ProductService) ListActive(ctx context.Context, query ProductListQuery) (shared.Paginated[ProductResponse], error) {
	query.Status = string(catalog.ProductStatusActive)
	return s.list(ctx, query)
}

// List returns products in every status for store admins
func (s *ProductService) List(ctx context.Context, query ProductListQuery) (shared.Paginated[ProductResponse], error) {
	return s.list(ctx, query)
}

func (s *ProductService) list(ctx context.Context, query ProductListQuery) (shared.Paginated[ProductResponse], error) {
	filter := catalog.ProductFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.SortBy,
			OrderDir: query.SortOrder,
			Search:   query.Search,
		}.Normalize(),
		Category: query.Category,
		Status:   catalog.ProductStatus(query.Status),
	}

	products, total, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[ProductResponse]{}, err
	}
	return shared.NewPaginated(ToProductResponses(products), total, filter.Page, filter.PageSize), nil
}

// GetActive returns a storefront product. Products that are not active are
// reported as not found.
func (s *ProductService) GetActive(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	p, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Purchasable() {
		return nil, shared.NewDomainError("NOT_FOUND", "Product not found")
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// Get returns a product in any status
func (s *ProductService) Get(ctx context.Context, id uuid.UUID) (*ProductResponse, error) {
	p, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// Create creates a new product
func (s *ProductService) Create(ctx context.Context, tenantID uuid.UUID, req CreateProductRequest) (*ProductResponse, error) {
	p, err := catalog.NewProduct(tenantID, req.Name, req.Price, req.Stock)
	if err != nil {
		return nil, err
	}
	p.SetDetails(req.Description, req.Category)
	for _, url := range req.Images {
		if err := p.AddImage(url); err != nil {
			return nil, err
		}
	}
	if req.Status != "" {
		if err := p.SetStatus(catalog.ProductStatus(req.Status)); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.L(ctx).Info("Product created", zap.String("product_id", p.ID.String()))
	resp := ToProductResponse(p)
	return &resp, nil
}

// Update applies a partial update
func (s *ProductService) Update(ctx context.Context, id uuid.UUID, req UpdateProductRequest) (*ProductResponse, error) {
	p, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if err := p.Rename(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Price != nil {
		if err := p.SetPrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil {
		if err := p.SetStock(*req.Stock); err != nil {
			return nil, err
		}
	}
	if req.Description != nil || req.Category != nil {
		description, category := p.Description, p.Category
		if req.Description != nil {
			description = *req.Description
		}
		if req.Category != nil {
			category = *req.Category
		}
		p.SetDetails(description, category)
	}
	if req.Status != nil {
		if err := p.SetStatus(catalog.ProductStatus(*req.Status)); err != nil {
			return nil, err
		}
	}

	if err := s.productRepo.Update(ctx, p); err != nil {
		return nil, err
	}
	resp := ToProductResponse(p)
	return &resp, nil
}

// Archive hides a product from the storefront. Products are never hard
// deleted because orders reference them.
func (s *ProductService) Archive(ctx context.Context, id uuid.UUID) error {
	p, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := p.SetStatus(catalog.ProductStatusArchived); err != nil {
		return err
	}
	if err := s.productRepo.Update(ctx, p); err != nil {
		return err
	}
	logger.L(ctx).Info("Product archived", zap.String("product_id", p.ID.String()))
	return nil
}

// UploadImage stores an image and appends its URL to the product
func (s *ProductService) UploadImage(ctx context.Context, id uuid.UUID, data []byte) (resp *ProductResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ProductService", "UploadImage",
		attribute.String("product.id", id.String()),
		attribute.Int("image.size", len(data)))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.images == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Image storage is not configured")
	}
	if len(data) == 0 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Image is empty")
	}
	if int64(len(data)) > s.maxImageSize {
		return nil, shared.NewDomainError("PAYLOAD_TOO_LARGE",
			fmt.Sprintf("Image exceeds the %d byte limit", s.maxImageSize))
	}
	contentType, ext, err := storage.DetectImage(data)
	if err != nil {
		return nil, err
	}

	p, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	key := storage.ProductImageKey(p.TenantID, p.ID, ext)
	url, err := s.images.Put(ctx, key, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload product image: %w", err)
	}

	if err := p.AddImage(url); err != nil {
		s.discard(ctx, key)
		return nil, err
	}
	if err := s.productRepo.Update(ctx, p); err != nil {
		s.discard(ctx, key)
		return nil, err
	}

	logger.L(ctx).Info("Product image uploaded",
		zap.String("product_id", p.ID.String()),
		zap.String("key", key))
	out := ToProductResponse(p)
	return &out, nil
}

func (s *ProductService) discard(ctx context.Context, key string) {
	if err := s.images.Delete(ctx, key); err != nil {
		logger.L(ctx).Warn("Failed to remove orphaned product image", zap.String("key", key), zap.Error(err))
	}
}
