package payment

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/festiva/festiva/internal/models"
	"github.com/festiva/festiva/internal/paymentprovider"
)

type MockRepository struct {
	mock.Mock
}

func subOrNil(args mock.Arguments) (*models.Subscription, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func (m *MockRepository) CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, sub))
}

func (m *MockRepository) FindLatestPending(ctx context.Context, userID string) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, userID))
}

func (m *MockRepository) FindLatestActivePaid(ctx context.Context, userID string) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, userID))
}

func (m *MockRepository) FindByPaymentID(ctx context.Context, paymentID string) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, paymentID))
}

func (m *MockRepository) ActivateByPaymentID(ctx context.Context, paymentID string, startsAt, expiresAt time.Time) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, paymentID, startsAt, expiresAt))
}

func (m *MockRepository) ActivateLatestPending(ctx context.Context, userID, paymentID string, startsAt, expiresAt time.Time) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, userID, paymentID, startsAt, expiresAt))
}

func (m *MockRepository) ActivateByID(ctx context.Context, id string, startsAt, expiresAt time.Time) (*models.Subscription, error) {
	return subOrNil(m.Called(ctx, id, startsAt, expiresAt))
}

func (m *MockRepository) UpdateStatusByPaymentID(ctx context.Context, paymentID string, to models.Status, from ...models.Status) (int64, error) {
	args := m.Called(ctx, paymentID, to, from)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) UpdateStatusByID(ctx context.Context, id string, to models.Status, from ...models.Status) (int64, error) {
	args := m.Called(ctx, id, to, from)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CancelActiveFree(ctx context.Context, userID string) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) CancelPendingExcept(ctx context.Context, userID, keepID string) (int64, error) {
	args := m.Called(ctx, userID, keepID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) FindSuperseded(ctx context.Context, userID string) ([]*models.Subscription, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Subscription), args.Error(1)
}

func (m *MockRepository) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockRepository) RecordWebhookEvent(ctx context.Context, rec models.WebhookRecord) error {
	return m.Called(ctx, rec).Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) CreateBilling(ctx context.Context, req paymentprovider.CreateBillingRequest) (*paymentprovider.Billing, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*paymentprovider.Billing), args.Error(1)
}

func (m *MockProvider) ListBillings(ctx context.Context) ([]paymentprovider.Billing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]paymentprovider.Billing), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishActivation(ctx context.Context, notice models.ActivationNotice) error {
	return m.Called(ctx, notice).Error(0)
}

type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) IncPaymentCreated(plan string) { m.Called(plan) }
func (m *MockMetrics) IncWebhookEvent(kind string)   { m.Called(kind) }
func (m *MockMetrics) IncActivation(source string)   { m.Called(source) }
func (m *MockMetrics) IncVerifyResult(status string) { m.Called(status) }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

var fixedNow = time.Date(2025, 12, 20, 12, 0, 0, 0, time.UTC)

const testTerm = 365 * 24 * time.Hour

type testDeps struct {
	repo      *MockRepository
	provider  *MockProvider
	cache     *MockCache
	publisher *MockPublisher
	metrics   *MockMetrics
}

func newTestService() (*Service, *testDeps) {
	deps := &testDeps{
		repo:      &MockRepository{},
		provider:  &MockProvider{},
		cache:     &MockCache{},
		publisher: &MockPublisher{},
		metrics:   &MockMetrics{},
	}
	// метрики не проверяются в каждом тесте
	deps.metrics.On("IncPaymentCreated", mock.Anything).Maybe()
	deps.metrics.On("IncWebhookEvent", mock.Anything).Maybe()
	deps.metrics.On("IncActivation", mock.Anything).Maybe()
	deps.metrics.On("IncVerifyResult", mock.Anything).Maybe()

	svc := New(newNoopLogger(), Config{ProviderName: "abacatepay", Term: testTerm},
		deps.repo, deps.provider, deps.cache, deps.publisher, deps.metrics)
	svc.now = func() time.Time { return fixedNow }
	return svc, deps
}

func (d *testDeps) assertExpectations(t mock.TestingT) {
	d.repo.AssertExpectations(t)
	d.provider.AssertExpectations(t)
	d.cache.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func strPtr(s string) *string {
	return &s
}

func activeSub(id, userID string, plan models.Plan, paymentID string) *models.Subscription {
	expires := fixedNow.Add(testTerm)
	starts := fixedNow
	return &models.Subscription{
		ID:        id,
		UserID:    userID,
		Plan:      plan,
		Status:    models.StatusActive,
		PaymentID: strPtr(paymentID),
		StartsAt:  &starts,
		ExpiresAt: &expires,
	}
}

// activatedFrom помечает запись статусом, из которого её перевёл запрос активации.
func activatedFrom(sub *models.Subscription, prev models.Status) *models.Subscription {
	sub.PreviousStatus = prev
	return sub
}
