package trade

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/invoice"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// TenantLookup finds the store an order belongs to
type TenantLookup interface {
	ResolveByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error)
}

// PaymentGateway hands out the payment providers a store may charge through
type PaymentGateway interface {
	Payment(ctx context.Context, tenantID uuid.UUID, slug string) (plugin.PaymentProvider, map[string]string, error)
}

var (
	errOrderNotFound   = shared.NewDomainError("NOT_FOUND", "Order not found")
	errOrderNotPending = shared.NewDomainError("INVALID_STATE", "Only pending orders can be paid")
	errPDFUnavailable  = shared.NewDomainError("INVALID_INPUT", "PDF invoices are not available")
)

// OrderService handles checkout and the order lifecycle
type OrderService struct {
	orderRepo   trade.OrderRepository
	cartRepo    trade.CartRepository
	productRepo catalog.ProductRepository
	tx          shared.Transactor
	events      shared.EventPublisher
	tenants     TenantLookup
	payments    PaymentGateway
	invoices    *invoice.Template
	pdf         invoice.PDFRenderer
}

// OrderServiceOption configures optional OrderService collaborators
type OrderServiceOption func(*OrderService)

// WithInvoices enables invoice rendering. pdf may be nil, in which case only
// HTML invoices are served.
func WithInvoices(tmpl *invoice.Template, pdf invoice.PDFRenderer) OrderServiceOption {
	return func(s *OrderService) {
		s.invoices = tmpl
		s.pdf = pdf
	}
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	cartRepo trade.CartRepository,
	productRepo catalog.ProductRepository,
	tx shared.Transactor,
	events shared.EventPublisher,
	tenants TenantLookup,
	payments PaymentGateway,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		tx:          tx,
		events:      events,
		tenants:     tenants,
		payments:    payments,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder checks out the user's cart. Stock is taken, the order created
// and the cart cleared in one transaction.
func (s *OrderService) PlaceOrder(ctx context.Context, tenantID, userID uuid.UUID, req PlaceOrderRequest) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "PlaceOrder",
		attribute.String("user_id", userID.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	store, err := s.tenants.ResolveByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var order *trade.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		cart, err := s.cartRepo.FindByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrCartEmpty
			}
			return err
		}
		if cart.IsEmpty() {
			return shared.ErrCartEmpty
		}
		if err := s.refreshPrices(ctx, cart); err != nil {
			return err
		}
		if err := s.takeStock(ctx, cart.Items); err != nil {
			return err
		}

		order, err = trade.NewOrderFromCart(cart, store.Settings.Currency, req.ShippingAddress.toDomain(), req.Note)
		if err != nil {
			return err
		}
		if err := s.orderRepo.Create(ctx, order); err != nil {
			return err
		}
		cart.Clear()
		return s.cartRepo.Save(ctx, cart)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.publish(ctx, order)
	out := ToOrderResponse(order)
	return &out, nil
}

// refreshPrices re-reads every product in the cart so the order is priced
// and named as the products are now
func (s *OrderService) refreshPrices(ctx context.Context, cart *trade.Cart) error {
	ids := make([]uuid.UUID, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}
	products, err := s.productRepo.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[uuid.UUID]*catalog.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i := range cart.Items {
		p, ok := byID[cart.Items[i].ProductID]
		if !ok || !p.Purchasable() {
			return shared.NewDomainError(errProductUnavailable.Code,
				fmt.Sprintf("%s is no longer available", cart.Items[i].Name))
		}
		cart.Items[i].Name = p.Name
		cart.Items[i].UnitPrice = p.Price
	}
	return nil
}

// takeStock decrements stock in product ID order so concurrent checkouts
// lock rows in the same order
func (s *OrderService) takeStock(ctx context.Context, items []trade.CartItem) error {
	sorted := make([]trade.CartItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].ProductID[:], sorted[j].ProductID[:]) < 0
	})
	for _, item := range sorted {
		if err := s.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, shared.ErrInsufficientStock) {
				return shared.NewDomainError(shared.ErrInsufficientStock.Code,
					fmt.Sprintf("Not enough stock for %s", item.Name))
			}
			return err
		}
	}
	return nil
}

func (s *OrderService) restoreStock(ctx context.Context, order *trade.Order) error {
	for _, item := range order.Items {
		if err := s.productRepo.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// List returns the user's own orders
func (s *OrderService) List(ctx context.Context, userID uuid.UUID, query OrderListQuery) (shared.Paginated[OrderResponse], error) {
	return s.list(ctx, &userID, query)
}

// AdminList returns every order of the store
func (s *OrderService) AdminList(ctx context.Context, query OrderListQuery) (shared.Paginated[OrderResponse], error) {
	return s.list(ctx, nil, query)
}

func (s *OrderService) list(ctx context.Context, userID *uuid.UUID, query OrderListQuery) (shared.Paginated[OrderResponse], error) {
	filter := trade.OrderFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.SortBy,
			OrderDir: query.SortOrder,
			Search:   query.Search,
		}.Normalize(),
		UserID: userID,
		Status: trade.OrderStatus(query.Status),
	}
	orders, total, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	return shared.NewPaginated(ToOrderResponses(orders), total, filter.Page, filter.PageSize), nil
}

// Get returns one of the user's orders. Orders of other users are reported
// as not found.
func (s *OrderService) Get(ctx context.Context, userID, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// AdminGet returns any order of the store
func (s *OrderService) AdminGet(ctx context.Context, id uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

func (s *OrderService) owned(ctx context.Context, userID, id uuid.UUID) (*trade.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.BelongsTo(userID) {
		return nil, errOrderNotFound
	}
	return order, nil
}

// Cancel cancels a pending order on behalf of its owner and restores stock
func (s *OrderService) Cancel(ctx context.Context, userID, id uuid.UUID) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Cancel",
		attribute.String("order_id", id.String()))
	defer func() { telemetry.EndSpan(span, err) }()

	var order *trade.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err = s.owned(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := order.Cancel(); err != nil {
			return err
		}
		if err := s.restoreStock(ctx, order); err != nil {
			return err
		}
		return s.orderRepo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Order cancelled by customer", zap.String("order_number", order.OrderNumber))
	s.publish(ctx, order)
	out := ToOrderResponse(order)
	return &out, nil
}

// Pay charges a pending order through the named payment plugin. Providers
// that settle immediately mark the order paid; the others leave it pending
// until the payment is confirmed through the internal status endpoint.
func (s *OrderService) Pay(ctx context.Context, tenantID, userID, id uuid.UUID, req PayOrderRequest) (resp *PaymentResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Pay",
		attribute.String("order_id", id.String()),
		attribute.String("provider", req.Provider))
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		order  *trade.Order
		result *plugin.ChargeResult
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err = s.owned(ctx, userID, id)
		if err != nil {
			return err
		}
		if order.Status != trade.OrderStatusPending {
			return errOrderNotPending
		}

		provider, config, err := s.payments.Payment(ctx, tenantID, req.Provider)
		if err != nil {
			return err
		}
		result, err = provider.Charge(ctx, plugin.ChargeRequest{
			TenantID:    tenantID,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Amount:      order.TotalAmount,
			Currency:    order.Currency,
			Config:      config,
		})
		if err != nil {
			logger.L(ctx).Warn("Payment charge failed",
				zap.String("order_number", order.OrderNumber),
				zap.String("provider", req.Provider),
				zap.Error(err),
			)
			return err
		}

		if result.Settled {
			if err := order.MarkPaid(req.Provider, result.Reference); err != nil {
				return err
			}
		} else {
			order.PaymentProvider = req.Provider
			order.PaymentRef = result.Reference
			order.Touch()
		}
		// a cancel or status change since the read fails here and rolls back
		return s.orderRepo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Payment started",
		zap.String("order_number", order.OrderNumber),
		zap.String("provider", req.Provider),
		zap.Bool("settled", result.Settled),
	)
	s.publish(ctx, order)
	return &PaymentResponse{
		Order:       ToOrderResponse(order),
		Provider:    req.Provider,
		Reference:   result.Reference,
		RedirectURL: result.RedirectURL,
		Settled:     result.Settled,
	}, nil
}

// UpdateStatus runs a staff-driven lifecycle transition
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, req OrderStatusRequest) (*OrderResponse, error) {
	return s.transition(ctx, id, trade.OrderStatus(req.Status), "", "")
}

// InternalUpdateStatus applies a status relayed by a payment webhook
func (s *OrderService) InternalUpdateStatus(ctx context.Context, id uuid.UUID, req InternalOrderStatusRequest) (*OrderResponse, error) {
	return s.transition(ctx, id, trade.OrderStatus(req.Status), req.Provider, req.PaymentRef)
}

func (s *OrderService) transition(ctx context.Context, id uuid.UUID, target trade.OrderStatus, provider, ref string) (resp *OrderResponse, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Transition",
		attribute.String("order_id", id.String()),
		attribute.String("status", string(target)))
	defer func() { telemetry.EndSpan(span, err) }()

	var (
		order *trade.Order
		from  trade.OrderStatus
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		order, err = s.orderRepo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		from = order.Status

		if target == trade.OrderStatusPaid {
			if provider == "" {
				provider = order.PaymentProvider
			}
			if ref == "" {
				ref = order.PaymentRef
			}
			err = order.MarkPaid(provider, ref)
		} else {
			err = order.TransitionTo(target)
		}
		if err != nil {
			return err
		}
		if target.RestoresStock() {
			if err := s.restoreStock(ctx, order); err != nil {
				return err
			}
		}
		return s.orderRepo.Update(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Order status changed",
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(from)),
		zap.String("to", string(target)),
	)
	s.publish(ctx, order)
	out := ToOrderResponse(order)
	return &out, nil
}

// Invoice renders one of the user's orders as HTML or PDF
func (s *OrderService) Invoice(ctx context.Context, tenantID, userID, id uuid.UUID, format string) (doc *InvoiceDocument, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "OrderService", "Invoice",
		attribute.String("order_id", id.String()),
		attribute.String("format", format))
	defer func() { telemetry.EndSpan(span, err) }()

	if s.invoices == nil {
		return nil, shared.NewDomainError("INVALID_STATE", "Invoices are not enabled")
	}
	if format == "" {
		format = InvoiceFormatHTML
	}
	if format != InvoiceFormatHTML && format != InvoiceFormatPDF {
		return nil, shared.NewDomainError("INVALID_INPUT", "Invoice format must be html or pdf")
	}
	if format == InvoiceFormatPDF && s.pdf == nil {
		return nil, errPDFUnavailable
	}

	order, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	store, err := s.tenants.ResolveByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	html, err := s.invoices.Render(ctx, invoice.Data{
		StoreName:  store.Name,
		StoreEmail: store.ContactEmail,
		Locale:     store.Settings.Locale,
		Order:      order,
	})
	if err != nil {
		return nil, err
	}
	if format == InvoiceFormatHTML {
		return &InvoiceDocument{
			Filename:    order.OrderNumber + ".html",
			ContentType: "text/html; charset=utf-8",
			Body:        html,
		}, nil
	}

	pdf, err := s.pdf.RenderPDF(ctx, html)
	if err != nil {
		return nil, err
	}
	return &InvoiceDocument{
		Filename:    order.OrderNumber + ".pdf",
		ContentType: "application/pdf",
		Body:        pdf,
	}, nil
}

// publish sends the order's pending events. The order is already committed,
// so a publish failure is logged rather than returned.
func (s *OrderService) publish(ctx context.Context, order *trade.Order) {
	events := order.PullEvents()
	if len(events) == 0 || s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, events...); err != nil {
		logger.L(ctx).Error("Failed to publish order events",
			zap.String("order_number", order.OrderNumber),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}
