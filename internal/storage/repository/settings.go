package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// GetSettings возвращает настройки пользователя. Если строки ещё нет,
// возвращается sql.ErrNoRows — слой бизнес-логики подставит значения
// по умолчанию.
func (s *Storage) GetSettings(ctx context.Context, userUID string) (*models.UserSettings, error) {
	const op = "storage.GetSettings"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT user_uid, email_notifications, notification_frequency, theme,
			      default_industry, updated_at
			  FROM user_settings WHERE user_uid = $1`
	row := s.DB.QueryRowContext(ctx, query, userUID)

	var result models.UserSettings
	if err := row.Scan(&result.UserUID, &result.EmailNotifications,
		&result.NotificationFrequency, &result.Theme, &result.DefaultIndustry,
		&result.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &result, nil
}

// UpsertSettings создаёт или обновляет строку настроек пользователя.
func (s *Storage) UpsertSettings(ctx context.Context, settings models.UserSettings) error {
	const op = "storage.UpsertSettings"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO user_settings (user_uid, email_notifications, notification_frequency,
			      theme, default_industry, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (user_uid) DO UPDATE
			  SET email_notifications = EXCLUDED.email_notifications,
			      notification_frequency = EXCLUDED.notification_frequency,
			      theme = EXCLUDED.theme,
			      default_industry = EXCLUDED.default_industry,
			      updated_at = EXCLUDED.updated_at`
	_, err := s.DB.ExecContext(ctx, query,
		settings.UserUID, settings.EmailNotifications, settings.NotificationFrequency,
		settings.Theme, settings.DefaultIndustry, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
