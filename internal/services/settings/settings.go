// Package services содержит бизнес-логику пользовательских настроек,
// включая кеширование.
package services

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// SettingsRepository определяет методы для работы с настройками в хранилище.
type SettingsRepository interface {
	// GetSettings возвращает настройки пользователя.
	GetSettings(ctx context.Context, userUID string) (*models.UserSettings, error)
	// UpsertSettings создаёт или обновляет настройки пользователя.
	UpsertSettings(ctx context.Context, settings models.UserSettings) error
}

// Cache описывает методы для кэширования данных.
type Cache interface {
	// Get пытается получить значение из кеша по ключу.
	Get(key string, result any) (bool, error)
	// Set сохраняет значение в кеш с временем жизни.
	Set(key string, value any, expiration time.Duration) error
	// Invalidate удаляет значение из кеша по ключу.
	Invalidate(key string) error
}

// SettingsService отвечает за чтение и изменение настроек пользователя.
type SettingsService struct {
	repo  SettingsRepository
	cache Cache
	log   *slog.Logger
}

// NewSettingsService создает новый экземпляр SettingsService.
func NewSettingsService(repo SettingsRepository, cache Cache, log *slog.Logger) *SettingsService {
	return &SettingsService{
		repo:  repo,
		cache: cache,
		log:   log,
	}
}

// Read возвращает настройки пользователя. Если строка ещё не создана,
// возвращаются значения по умолчанию.
func (s *SettingsService) Read(ctx context.Context, userUID string) (*models.UserSettings, error) {
	var cached *models.UserSettings
	cacheKey := "settings:" + userUID
	found, err := s.cache.Get(cacheKey, &cached)
	if err != nil {
		s.log.Warn("failed to read settings from cache", slog.Any("err", err))
	}
	if found && cached != nil {
		return cached, nil
	}

	settings, err := s.repo.GetSettings(ctx, userUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			defaults := models.DefaultSettings(userUID)
			return &defaults, nil
		}
		return nil, err
	}

	if err := s.cache.Set(cacheKey, settings, time.Hour); err != nil {
		s.log.Warn("failed to cache settings", slog.String("key", cacheKey), slog.Any("err", err))
	}
	return settings, nil
}

// Update применяет частичное изменение настроек и инвалидирует кеш.
func (s *SettingsService) Update(ctx context.Context, userUID string, req models.DummySettingsUpdate) (*models.UserSettings, error) {
	settings, err := s.Read(ctx, userUID)
	if err != nil {
		return nil, err
	}

	if req.EmailNotifications != nil {
		settings.EmailNotifications = *req.EmailNotifications
	}
	if req.NotificationFrequency != nil {
		settings.NotificationFrequency = *req.NotificationFrequency
	}
	if req.Theme != nil {
		settings.Theme = *req.Theme
	}
	if req.DefaultIndustry != nil {
		settings.DefaultIndustry = *req.DefaultIndustry
	}

	if err := s.repo.UpsertSettings(ctx, *settings); err != nil {
		return nil, err
	}
	if err := s.cache.Invalidate("settings:" + userUID); err != nil {
		s.log.Warn("failed to invalidate settings cache", slog.Any("err", err))
	}
	return settings, nil
}
