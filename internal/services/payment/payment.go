// Package services реализует бизнес-логику оплаты: создание чекаут-сессий
// и применение событий платёжного провайдера к профилям пользователей.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/painscope/internal/config"
	"github.com/magabrotheeeer/painscope/internal/models"
	"github.com/magabrotheeeer/painscope/internal/stripeclient"
)

// PaymentRepository определяет методы хранилища для обновления подписок.
type PaymentRepository interface {
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	UpdateSubscriptionByUserUID(ctx context.Context, uid string, upd models.SubscriptionUpdate) (int, error)
	UpdateSubscriptionBySubscriptionID(ctx context.Context, subscriptionID string, upd models.SubscriptionUpdate) (int, error)
	UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, upd models.SubscriptionUpdate) (int, error)
}

// StripeClient описывает вызовы Stripe API, нужные сервису.
type StripeClient interface {
	CreateCheckoutSession(ctx context.Context, params stripeclient.CheckoutSessionParams) (*stripeclient.CheckoutSession, error)
	GetSubscription(ctx context.Context, id string) (*stripeclient.Subscription, error)
}

var (
	ErrUnknownPlan        = errors.New("unknown plan or interval")
	ErrPriceNotConfigured = errors.New("price is not configured")
)

// trialDaysProMonthly пробный период выдаётся только на pro/monthly.
const trialDaysProMonthly = 7

// PaymentService управляет платёжными операциями.
type PaymentService struct {
	repo    PaymentRepository
	stripe  StripeClient
	cfg     config.Stripe
	siteURL string
	log     *slog.Logger
}

// New создает новый экземпляр PaymentService.
func New(repo PaymentRepository, stripe StripeClient, cfg config.Stripe, siteURL string, log *slog.Logger) *PaymentService {
	return &PaymentService{
		repo:    repo,
		stripe:  stripe,
		cfg:     cfg,
		siteURL: siteURL,
		log:     log,
	}
}

// CreateCheckout создает чекаут-сессию для выбранной комбинации план/интервал
// и возвращает URL оплаты. Пробный период назначается здесь, а не клиентом.
func (s *PaymentService) CreateCheckout(ctx context.Context, userUID, planID, interval string) (string, error) {
	if planID != "pro" && planID != "enterprise" {
		return "", ErrUnknownPlan
	}
	if interval != "monthly" && interval != "yearly" {
		return "", ErrUnknownPlan
	}
	priceID := s.cfg.PriceID(planID, interval)
	if priceID == "" {
		return "", ErrPriceNotConfigured
	}

	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		return "", err
	}

	trialDays := 0
	if planID == "pro" && interval == "monthly" {
		trialDays = trialDaysProMonthly
	}

	session, err := s.stripe.CreateCheckoutSession(ctx, stripeclient.CheckoutSessionParams{
		PriceID:           priceID,
		CustomerEmail:     user.Email,
		ClientReferenceID: userUID,
		SuccessURL:        s.siteURL + "/dashboard?checkout=success",
		CancelURL:         s.siteURL + "/pricing?checkout=cancelled",
		TrialDays:         trialDays,
		Metadata: map[string]string{
			"plan_id":  planID,
			"user_uid": userUID,
		},
	})
	if err != nil {
		return "", err
	}

	s.log.Info("checkout session created",
		slog.String("user_uid", userUID), slog.String("plan", planID), slog.String("interval", interval))
	return session.URL, nil
}

// ProcessWebhookEvent применяет событие провайдера к профилю пользователя.
// Незнакомые типы событий игнорируются.
func (s *PaymentService) ProcessWebhookEvent(ctx context.Context, event stripeclient.Event) error {
	const op = "payment.ProcessWebhookEvent"

	switch event.Type {
	case "checkout.session.completed":
		if err := s.handleCheckoutCompleted(ctx, event); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	case "customer.subscription.updated", "customer.subscription.deleted":
		if err := s.handleSubscriptionEvent(ctx, event); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	default:
		s.log.Debug("ignoring stripe event", slog.String("type", event.Type))
	}
	return nil
}

func (s *PaymentService) handleCheckoutCompleted(ctx context.Context, event stripeclient.Event) error {
	var session stripeclient.CheckoutSession
	if err := unmarshalObject(event, &session); err != nil {
		return err
	}
	if session.ClientReferenceID == "" || session.Subscription == "" {
		s.log.Warn("checkout event without reference or subscription", slog.String("event_id", event.ID))
		return nil
	}

	sub, err := s.stripe.GetSubscription(ctx, session.Subscription)
	if err != nil {
		return err
	}

	upd := s.subscriptionUpdate(sub, false)
	upd.StripeCustomerID = &session.Customer
	upd.StripeSubscriptionID = &session.Subscription

	rows, err := s.repo.UpdateSubscriptionByUserUID(ctx, session.ClientReferenceID, upd)
	if err != nil {
		return err
	}
	if rows == 0 {
		s.log.Warn("checkout completed for unknown user",
			slog.String("user_uid", session.ClientReferenceID))
	}
	return nil
}

func (s *PaymentService) handleSubscriptionEvent(ctx context.Context, event stripeclient.Event) error {
	var sub stripeclient.Subscription
	if err := unmarshalObject(event, &sub); err != nil {
		return err
	}

	deleted := event.Type == "customer.subscription.deleted"
	upd := s.subscriptionUpdate(&sub, deleted)

	rows, err := s.repo.UpdateSubscriptionBySubscriptionID(ctx, sub.ID, upd)
	if err != nil {
		return err
	}
	if rows == 0 && sub.Customer != "" {
		// Профиль мог быть создан до того, как подписка получила ID:
		// ищем по идентификатору покупателя и записываем ID подписки.
		upd.StripeSubscriptionID = &sub.ID
		if _, err := s.repo.UpdateSubscriptionByCustomerID(ctx, sub.Customer, upd); err != nil {
			return err
		}
	}
	return nil
}

// subscriptionUpdate переводит объект подписки провайдера в обновление профиля.
func (s *PaymentService) subscriptionUpdate(sub *stripeclient.Subscription, deleted bool) models.SubscriptionUpdate {
	status := mapStatus(sub.Status, sub.TrialEnd, deleted)

	var plan string
	if status == models.SubscriptionCanceled {
		plan = models.PlanFree
	} else {
		var priceID string
		if len(sub.Items.Data) > 0 {
			priceID = sub.Items.Data[0].Price.ID
		}
		plan = s.cfg.PlanByPrice(priceID, sub.Metadata["plan_id"])
	}

	var trialEndsAt *time.Time
	if sub.TrialEnd > 0 {
		t := time.Unix(sub.TrialEnd, 0).UTC()
		trialEndsAt = &t
	}

	return models.SubscriptionUpdate{
		Plan:        plan,
		Status:      status,
		TrialEndsAt: trialEndsAt,
	}
}

// mapStatus сводит статусы провайдера к трём внутренним. Статус trialing
// с истёкшим trial_end трактуется как active.
func mapStatus(providerStatus string, trialEnd int64, deleted bool) string {
	switch {
	case deleted, providerStatus == "canceled", providerStatus == "unpaid":
		return models.SubscriptionCanceled
	case providerStatus == "trialing" && time.Unix(trialEnd, 0).After(time.Now()):
		return models.SubscriptionTrialing
	default:
		return models.SubscriptionActive
	}
}

func unmarshalObject(event stripeclient.Event, target any) error {
	if len(event.Data.Object) == 0 {
		return errors.New("event has no data object")
	}
	return json.Unmarshal(event.Data.Object, target)
}
