package trade

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"github.com/jiffoo/mall/internal/infrastructure/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingNotifier struct {
	err      error
	messages []plugin.Message
}

func (n *recordingNotifier) Slug() string { return "newsletter" }

func (n *recordingNotifier) Notify(_ context.Context, _ map[string]string, msg plugin.Message) error {
	n.messages = append(n.messages, msg)
	return n.err
}

type notifierSource struct {
	provider plugin.NotificationProvider
}

func (s notifierSource) Notifier(context.Context, uuid.UUID) (plugin.NotificationProvider, map[string]string, bool) {
	if s.provider == nil {
		return nil, nil, false
	}
	return s.provider, map[string]string{"sender": "shop@acme.test"}, true
}

type jobFixture struct {
	orders *MockOrderRepository
	users  *MockUserRepository
	order  *trade.Order
	user   *identity.User
}

func newJobFixture(t *testing.T) *jobFixture {
	t.Helper()
	f := newOrderFixture(t)
	user, err := identity.NewUser(f.tenant.ID, "ada@example.com", "ada", "Password123", identity.RoleCustomer)
	require.NoError(t, err)
	f.userID = user.ID
	return &jobFixture{
		orders: new(MockOrderRepository),
		users:  new(MockUserRepository),
		order:  f.placedOrder(t),
		user:   user,
	}
}

func (f *jobFixture) job(t *testing.T, jobType string, event shared.DomainEvent) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(jobType, f.order.TenantID, event)
	require.NoError(t, err)
	return job
}

func TestJobRoutes(t *testing.T) {
	routes := JobRoutes()
	require.Len(t, routes, 2)
	assert.Equal(t, trade.EventTypeOrderPlaced, routes[0].EventType)
	assert.Equal(t, JobOrderConfirmation, routes[0].JobType)
	assert.Equal(t, trade.EventTypeOrderPaid, routes[1].EventType)
	assert.Equal(t, JobOrderPaid, routes[1].JobType)
}

func TestOrderJobs_ConfirmationThroughPlugin(t *testing.T) {
	f := newJobFixture(t)
	f.orders.On("FindByID", mock.Anything, f.order.ID).Return(f.order, nil)
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)
	notifier := &recordingNotifier{}
	jobs := NewOrderJobs(f.orders, f.users, notifierSource{provider: notifier})

	err := jobs.HandleConfirmation(context.Background(), f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order)))
	require.NoError(t, err)
	require.Len(t, notifier.messages, 1)
	msg := notifier.messages[0]
	assert.Equal(t, "ada@example.com", msg.To)
	assert.Equal(t, f.order.TenantID, msg.TenantID)
	assert.Contains(t, msg.Subject, f.order.OrderNumber)
	assert.Contains(t, msg.Body, f.order.TotalAmount.StringFixed(2))
}

func TestOrderJobs_PaidWithoutPluginLogs(t *testing.T) {
	f := newJobFixture(t)
	require.NoError(t, f.order.MarkPaid("cod", "cod-ref"))
	f.orders.On("FindByID", mock.Anything, f.order.ID).Return(f.order, nil)
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)
	jobs := NewOrderJobs(f.orders, f.users, notifierSource{})

	core, logs := observer.New(zapcore.InfoLevel)
	ctx := logger.WithContext(context.Background(), zap.New(core))

	err := jobs.HandlePaid(ctx, f.job(t, JobOrderPaid, trade.NewOrderPaidEvent(f.order)))
	require.NoError(t, err)

	recorded := logs.FilterMessage("Payment recorded").All()
	require.Len(t, recorded, 1)
	fields := recorded[0].ContextMap()
	assert.Equal(t, "cod", fields["provider"])
	assert.Equal(t, "cod-ref", fields["payment_ref"])
	assert.Equal(t, 1, logs.FilterMessage("Customer notification").Len())
}

func TestOrderJobs_Errors(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(f *jobFixture) (*queue.Job, *recordingNotifier)
		wantPermanent bool
	}{
		{
			name: "order deleted",
			setup: func(f *jobFixture) (*queue.Job, *recordingNotifier) {
				f.orders.On("FindByID", mock.Anything, f.order.ID).Return(nil, shared.ErrNotFound)
				return f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order)), &recordingNotifier{}
			},
			wantPermanent: true,
		},
		{
			name: "database unavailable",
			setup: func(f *jobFixture) (*queue.Job, *recordingNotifier) {
				f.orders.On("FindByID", mock.Anything, f.order.ID).Return(nil, errors.New("connection refused"))
				return f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order)), &recordingNotifier{}
			},
		},
		{
			name: "malformed payload",
			setup: func(f *jobFixture) (*queue.Job, *recordingNotifier) {
				job := f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order))
				job.Payload = []byte(`{"aggregate_id": 42}`)
				return job, &recordingNotifier{}
			},
			wantPermanent: true,
		},
		{
			name: "notifier rejects message",
			setup: func(f *jobFixture) (*queue.Job, *recordingNotifier) {
				f.orders.On("FindByID", mock.Anything, f.order.ID).Return(f.order, nil)
				f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)
				return f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order)),
					&recordingNotifier{err: shared.NewDomainError("INVALID_INPUT", "Notification has no recipient")}
			},
			wantPermanent: true,
		},
		{
			name: "notifier unavailable",
			setup: func(f *jobFixture) (*queue.Job, *recordingNotifier) {
				f.orders.On("FindByID", mock.Anything, f.order.ID).Return(f.order, nil)
				f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)
				return f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order)),
					&recordingNotifier{err: errors.New("smtp relay down")}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newJobFixture(t)
			job, notifier := tt.setup(f)
			jobs := NewOrderJobs(f.orders, f.users, notifierSource{provider: notifier})

			err := jobs.HandleConfirmation(context.Background(), job)
			require.Error(t, err)
			assert.Equal(t, tt.wantPermanent, queue.IsPermanent(err))
		})
	}
}

type chanNotifier chan plugin.Message

func (n chanNotifier) Slug() string { return "newsletter" }

func (n chanNotifier) Notify(_ context.Context, _ map[string]string, msg plugin.Message) error {
	n <- msg
	return nil
}

func TestOrderJobs_RegisterDispatches(t *testing.T) {
	f := newJobFixture(t)
	f.orders.On("FindByID", mock.Anything, f.order.ID).Return(f.order, nil)
	f.users.On("FindByID", mock.Anything, f.user.ID).Return(f.user, nil)
	sent := make(chanNotifier, 1)
	jobs := NewOrderJobs(f.orders, f.users, notifierSource{provider: sent})

	q := queue.NewMemoryQueue(queue.Options{})
	w := queue.NewWorker(q, queue.WorkerConfig{Workers: 1}, zap.NewNop(), nil)
	jobs.Register(w)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop(context.Background()) })

	require.NoError(t, q.Enqueue(context.Background(), f.job(t, JobOrderConfirmation, trade.NewOrderPlacedEvent(f.order))))
	select {
	case msg := <-sent:
		assert.Equal(t, "ada@example.com", msg.To)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation was not sent")
	}
}
