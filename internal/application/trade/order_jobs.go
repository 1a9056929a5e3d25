package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/event"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/queue"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Background job types fed by order events
const (
	JobOrderConfirmation = "order.confirmation"
	JobOrderPaid         = "order.paid"
)

// JobRoutes binds order events to the jobs that follow them up
func JobRoutes() []event.Route {
	return []event.Route{
		{EventType: trade.EventTypeOrderPlaced, JobType: JobOrderConfirmation},
		{EventType: trade.EventTypeOrderPaid, JobType: JobOrderPaid},
	}
}

// NotifierSource returns the store's notification plugin, if it has one
type NotifierSource interface {
	Notifier(ctx context.Context, tenantID uuid.UUID) (plugin.NotificationProvider, map[string]string, bool)
}

// orderJobPayload is the subset of the order event a job needs
type orderJobPayload struct {
	OrderID     uuid.UUID       `json:"aggregate_id"`
	OrderNumber string          `json:"order_number"`
	Provider    string          `json:"provider"`
	PaymentRef  string          `json:"payment_ref"`
	Amount      decimal.Decimal `json:"amount"`
}

// OrderJobs sends customer notifications for order events
type OrderJobs struct {
	orderRepo trade.OrderRepository
	userRepo  identity.UserRepository
	notifiers NotifierSource
}

// NewOrderJobs creates the order job handlers
func NewOrderJobs(orderRepo trade.OrderRepository, userRepo identity.UserRepository, notifiers NotifierSource) *OrderJobs {
	return &OrderJobs{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		notifiers: notifiers,
	}
}

// Register adds the handlers to w
func (h *OrderJobs) Register(w *queue.Worker) {
	w.Register(JobOrderConfirmation, queue.HandlerFunc(h.HandleConfirmation))
	w.Register(JobOrderPaid, queue.HandlerFunc(h.HandlePaid))
}

// HandleConfirmation tells the customer their order was received
func (h *OrderJobs) HandleConfirmation(ctx context.Context, job *queue.Job) error {
	order, user, err := h.load(ctx, job)
	if err != nil {
		return err
	}
	return h.notify(ctx, plugin.Message{
		TenantID: job.TenantID,
		To:       user.Email,
		Subject:  fmt.Sprintf("Order %s received", order.OrderNumber),
		Body: fmt.Sprintf("Thank you for your order. %d item(s), total %s %s.",
			len(order.Items), order.TotalAmount.StringFixed(2), order.Currency),
	})
}

// HandlePaid records the payment and tells the customer it was received
func (h *OrderJobs) HandlePaid(ctx context.Context, job *queue.Job) error {
	var payload orderJobPayload
	if err := job.Decode(&payload); err != nil {
		return err
	}
	order, user, err := h.load(ctx, job)
	if err != nil {
		return err
	}

	logger.L(ctx).Info("Payment recorded",
		zap.String("order_number", order.OrderNumber),
		zap.String("provider", payload.Provider),
		zap.String("payment_ref", payload.PaymentRef),
		zap.String("amount", payload.Amount.StringFixed(2)),
		zap.String("currency", order.Currency),
	)

	return h.notify(ctx, plugin.Message{
		TenantID: job.TenantID,
		To:       user.Email,
		Subject:  fmt.Sprintf("Payment received for order %s", order.OrderNumber),
		Body: fmt.Sprintf("We received your payment of %s %s.",
			payload.Amount.StringFixed(2), order.Currency),
	})
}

// load finds the order and the customer who placed it. Records that no
// longer exist will not appear on a retry, so the job is not retried.
func (h *OrderJobs) load(ctx context.Context, job *queue.Job) (*trade.Order, *identity.User, error) {
	var payload orderJobPayload
	if err := job.Decode(&payload); err != nil {
		return nil, nil, err
	}
	if payload.OrderID == uuid.Nil {
		return nil, nil, queue.Permanent(fmt.Errorf("%s job has no order id", job.Type))
	}

	order, err := h.orderRepo.FindByID(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, queue.Permanent(fmt.Errorf("order %s: %w", payload.OrderID, err))
		}
		return nil, nil, err
	}
	user, err := h.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, queue.Permanent(fmt.Errorf("customer of order %s: %w", order.OrderNumber, err))
		}
		return nil, nil, err
	}
	return order, user, nil
}

// notify sends msg through the store's notification plugin, or logs it
// when the store has none
func (h *OrderJobs) notify(ctx context.Context, msg plugin.Message) error {
	provider, config, ok := h.notifiers.Notifier(ctx, msg.TenantID)
	if !ok {
		logger.L(ctx).Info("Customer notification",
			zap.String("to", msg.To),
			zap.String("subject", msg.Subject),
		)
		return nil
	}
	if err := provider.Notify(ctx, config, msg); err != nil {
		var domainErr *shared.DomainError
		if errors.As(err, &domainErr) {
			return queue.Permanent(err)
		}
		return err
	}
	return nil
}
