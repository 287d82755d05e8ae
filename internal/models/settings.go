package models

import "time"

// UserSettings представляет персональные настройки пользователя,
// переживающие перезагрузку клиента.
type UserSettings struct {
	UserUID               string // Владелец настроек
	EmailNotifications    bool   // Отправлять ли письма о готовых отчётах
	NotificationFrequency string // immediate, daily или weekly
	Theme                 string // dark, light или system
	DefaultIndustry       string // Отрасль по умолчанию для нового брифинга
	UpdatedAt             time.Time
}

// DefaultSettings возвращает настройки нового пользователя.
func DefaultSettings(userUID string) UserSettings {
	return UserSettings{
		UserUID:               userUID,
		EmailNotifications:    true,
		NotificationFrequency: "daily",
		Theme:                 "dark",
	}
}

// DummySettingsUpdate используется для приёма изменений настроек из JSON-запроса.
type DummySettingsUpdate struct {
	EmailNotifications    *bool   `json:"email_notifications,omitempty"`
	NotificationFrequency *string `json:"notification_frequency,omitempty" validate:"omitempty,oneof=immediate daily weekly"`
	Theme                 *string `json:"theme,omitempty" validate:"omitempty,oneof=dark light system"`
	DefaultIndustry       *string `json:"default_industry,omitempty"`
}
