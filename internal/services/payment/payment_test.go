package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/painscope/internal/config"
	"github.com/magabrotheeeer/painscope/internal/models"
	"github.com/magabrotheeeer/painscope/internal/stripeclient"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) UpdateSubscriptionByUserUID(ctx context.Context, uid string, upd models.SubscriptionUpdate) (int, error) {
	args := m.Called(ctx, uid, upd)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpdateSubscriptionBySubscriptionID(ctx context.Context, subscriptionID string, upd models.SubscriptionUpdate) (int, error) {
	args := m.Called(ctx, subscriptionID, upd)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, upd models.SubscriptionUpdate) (int, error) {
	args := m.Called(ctx, customerID, upd)
	return args.Int(0), args.Error(1)
}

type MockStripeClient struct {
	mock.Mock
}

func (m *MockStripeClient) CreateCheckoutSession(ctx context.Context, params stripeclient.CheckoutSessionParams) (*stripeclient.CheckoutSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.CheckoutSession), args.Error(1)
}

func (m *MockStripeClient) GetSubscription(ctx context.Context, id string) (*stripeclient.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripeclient.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testStripeConfig() config.Stripe {
	return config.Stripe{
		PriceProMonthly:        "price_pro_m",
		PriceProYearly:         "price_pro_y",
		PriceEnterpriseMonthly: "price_ent_m",
	}
}

func TestCreateCheckout(t *testing.T) {
	tests := []struct {
		name          string
		planID        string
		interval      string
		expectedTrial int
		expectedPrice string
		expectedErr   error
	}{
		{
			name:          "pro monthly получает пробный период",
			planID:        "pro",
			interval:      "monthly",
			expectedTrial: 7,
			expectedPrice: "price_pro_m",
		},
		{
			name:          "pro yearly без пробного периода",
			planID:        "pro",
			interval:      "yearly",
			expectedTrial: 0,
			expectedPrice: "price_pro_y",
		},
		{
			name:          "enterprise monthly без пробного периода",
			planID:        "enterprise",
			interval:      "monthly",
			expectedTrial: 0,
			expectedPrice: "price_ent_m",
		},
		{
			name:        "неизвестный план",
			planID:      "platinum",
			interval:    "monthly",
			expectedErr: ErrUnknownPlan,
		},
		{
			name:        "неизвестный интервал",
			planID:      "pro",
			interval:    "weekly",
			expectedErr: ErrUnknownPlan,
		},
		{
			name:        "цена не сконфигурирована",
			planID:      "enterprise",
			interval:    "yearly",
			expectedErr: ErrPriceNotConfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			stripe := new(MockStripeClient)

			if tt.expectedErr == nil {
				repo.On("GetUserByUID", mock.Anything, "user-1").
					Return(&models.User{UUID: "user-1", Email: "user@example.com"}, nil).Once()
				stripe.On("CreateCheckoutSession", mock.Anything,
					mock.MatchedBy(func(p stripeclient.CheckoutSessionParams) bool {
						return p.PriceID == tt.expectedPrice &&
							p.TrialDays == tt.expectedTrial &&
							p.ClientReferenceID == "user-1" &&
							p.Metadata["plan_id"] == tt.planID
					})).
					Return(&stripeclient.CheckoutSession{URL: "https://checkout.stripe.com/s/1"}, nil).Once()
			}

			svc := New(repo, stripe, testStripeConfig(), "https://painscope.example", newNoopLogger())
			url, err := svc.CreateCheckout(context.Background(), "user-1", tt.planID, tt.interval)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "https://checkout.stripe.com/s/1", url)
			}
			repo.AssertExpectations(t)
			stripe.AssertExpectations(t)
		})
	}
}

func TestMapStatus(t *testing.T) {
	future := time.Now().Add(48 * time.Hour).Unix()
	past := time.Now().Add(-48 * time.Hour).Unix()

	tests := []struct {
		name           string
		providerStatus string
		trialEnd       int64
		deleted        bool
		expected       string
	}{
		{"deleted всегда canceled", "active", 0, true, models.SubscriptionCanceled},
		{"canceled остаётся canceled", "canceled", 0, false, models.SubscriptionCanceled},
		{"unpaid трактуется как canceled", "unpaid", 0, false, models.SubscriptionCanceled},
		{"trialing с будущим trial_end", "trialing", future, false, models.SubscriptionTrialing},
		{"trialing с истёкшим trial_end", "trialing", past, false, models.SubscriptionActive},
		{"active остаётся active", "active", 0, false, models.SubscriptionActive},
		{"past_due схлопывается в active", "past_due", 0, false, models.SubscriptionActive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mapStatus(tt.providerStatus, tt.trialEnd, tt.deleted))
		})
	}
}

func TestProcessWebhookEvent_CheckoutCompleted(t *testing.T) {
	repo := new(MockRepository)
	stripe := new(MockStripeClient)

	session := map[string]any{
		"id":                  "cs_1",
		"customer":            "cus_1",
		"subscription":        "sub_1",
		"client_reference_id": "user-1",
	}
	object, err := json.Marshal(session)
	require.NoError(t, err)

	stripe.On("GetSubscription", mock.Anything, "sub_1").
		Return(&stripeclient.Subscription{
			ID:       "sub_1",
			Customer: "cus_1",
			Status:   "trialing",
			TrialEnd: time.Now().Add(7 * 24 * time.Hour).Unix(),
			Metadata: map[string]string{"plan_id": "pro"},
		}, nil).Once()
	repo.On("UpdateSubscriptionByUserUID", mock.Anything, "user-1",
		mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
			return upd.Plan == models.PlanPro &&
				upd.Status == models.SubscriptionTrialing &&
				upd.TrialEndsAt != nil &&
				upd.StripeCustomerID != nil && *upd.StripeCustomerID == "cus_1" &&
				upd.StripeSubscriptionID != nil && *upd.StripeSubscriptionID == "sub_1"
		})).Return(1, nil).Once()

	svc := New(repo, stripe, testStripeConfig(), "https://painscope.example", newNoopLogger())
	err = svc.ProcessWebhookEvent(context.Background(), stripeclient.Event{
		ID:   "evt_1",
		Type: "checkout.session.completed",
		Data: stripeclient.EventData{Object: object},
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
	stripe.AssertExpectations(t)
}

func TestProcessWebhookEvent_SubscriptionDeleted(t *testing.T) {
	repo := new(MockRepository)
	stripe := new(MockStripeClient)

	object, err := json.Marshal(map[string]any{
		"id":       "sub_1",
		"customer": "cus_1",
		"status":   "canceled",
	})
	require.NoError(t, err)

	repo.On("UpdateSubscriptionBySubscriptionID", mock.Anything, "sub_1",
		mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
			// Отменённая подписка сбрасывает план на free.
			return upd.Plan == models.PlanFree && upd.Status == models.SubscriptionCanceled
		})).Return(1, nil).Once()

	svc := New(repo, stripe, testStripeConfig(), "https://painscope.example", newNoopLogger())
	err = svc.ProcessWebhookEvent(context.Background(), stripeclient.Event{
		ID:   "evt_2",
		Type: "customer.subscription.deleted",
		Data: stripeclient.EventData{Object: object},
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessWebhookEvent_CustomerIDFallback(t *testing.T) {
	repo := new(MockRepository)
	stripe := new(MockStripeClient)

	object, err := json.Marshal(map[string]any{
		"id":       "sub_9",
		"customer": "cus_9",
		"status":   "active",
	})
	require.NoError(t, err)

	repo.On("UpdateSubscriptionBySubscriptionID", mock.Anything, "sub_9", mock.Anything).
		Return(0, nil).Once()
	repo.On("UpdateSubscriptionByCustomerID", mock.Anything, "cus_9",
		mock.MatchedBy(func(upd models.SubscriptionUpdate) bool {
			return upd.StripeSubscriptionID != nil && *upd.StripeSubscriptionID == "sub_9"
		})).Return(1, nil).Once()

	svc := New(repo, stripe, testStripeConfig(), "https://painscope.example", newNoopLogger())
	err = svc.ProcessWebhookEvent(context.Background(), stripeclient.Event{
		ID:   "evt_3",
		Type: "customer.subscription.updated",
		Data: stripeclient.EventData{Object: object},
	})

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestProcessWebhookEvent_UnknownTypeIgnored(t *testing.T) {
	repo := new(MockRepository)
	stripe := new(MockStripeClient)

	svc := New(repo, stripe, testStripeConfig(), "https://painscope.example", newNoopLogger())
	err := svc.ProcessWebhookEvent(context.Background(), stripeclient.Event{
		ID:   "evt_4",
		Type: "invoice.paid",
	})

	assert.NoError(t, err)
	repo.AssertNotCalled(t, "UpdateSubscriptionByUserUID", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessWebhookEvent_RepositoryError(t *testing.T) {
	repo := new(MockRepository)
	stripe := new(MockStripeClient)

	object, _ := json.Marshal(map[string]any{"id": "sub_1", "status": "active"})
	repo.On("UpdateSubscriptionBySubscriptionID", mock.Anything, "sub_1", mock.Anything).
		Return(0, errors.New("db error")).Once()

	svc := New(repo, stripe, testStripeConfig(), "https://painscope.example", newNoopLogger())
	err := svc.ProcessWebhookEvent(context.Background(), stripeclient.Event{
		ID:   "evt_5",
		Type: "customer.subscription.updated",
		Data: stripeclient.EventData{Object: object},
	})

	assert.Error(t, err)
}
