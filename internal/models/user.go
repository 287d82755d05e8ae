// Package models содержит доменные структуры сервиса PainScope:
// профили пользователей, брифинги, отчёты, болевые архетипы и фоновые задачи.
// Структуры используются в бизнес-логике и при работе с хранилищем.
package models

import "time"

// Возможные значения плана подписки пользователя.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// Возможные значения статуса подписки пользователя.
const (
	SubscriptionTrialing = "trialing"
	SubscriptionActive   = "active"
	SubscriptionCanceled = "canceled"
)

// User представляет зарегистрированного пользователя системы.
type User struct {
	UUID                 string     // Уникальный идентификатор пользователя
	Email                string     // Электронная почта
	Username             string     // Имя пользователя (уникальное)
	PasswordHash         string     // Хэш пароля пользователя
	Role                 string     // Роль пользователя, admin или user
	IsVerified           bool       // Подтверждена ли электронная почта
	IsLocked             bool       // Заблокирован ли пользователь администратором
	Company              string     // Компания (опционально)
	Industry             string     // Отрасль (опционально)
	SubscriptionPlan     string     // План подписки: free, pro, enterprise
	SubscriptionStatus   string     // Статус подписки: trialing, active, canceled
	TrialEndsAt          *time.Time // Дата истечения пробного периода
	StripeCustomerID     *string    // Идентификатор клиента в Stripe
	StripeSubscriptionID *string    // Идентификатор подписки в Stripe
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// SubscriptionUpdate описывает поля профиля, которые обновляет
// обработчик событий платёжного провайдера.
type SubscriptionUpdate struct {
	Plan                 string     // Новый план подписки
	Status               string     // Новый статус подписки
	TrialEndsAt          *time.Time // Дата окончания пробного периода (nil, если его нет)
	StripeCustomerID     *string    // Устанавливается, если ещё не известен
	StripeSubscriptionID *string    // Устанавливается, если ещё не известен
}
