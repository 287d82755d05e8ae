// Package services содержит бизнес-логику профиля пользователя.
package services

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// ProfileRepository определяет методы для работы с профилями в хранилище.
type ProfileRepository interface {
	// GetUserByUID возвращает пользователя по UID.
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	// UpdateProfile обновляет редактируемые поля профиля.
	UpdateProfile(ctx context.Context, uid, username, company, industry string) error
}

// ProfileService отвечает за чтение и изменение профиля.
type ProfileService struct {
	repo ProfileRepository
	log  *slog.Logger
}

// NewProfileService создает новый экземпляр ProfileService.
func NewProfileService(repo ProfileRepository, log *slog.Logger) *ProfileService {
	return &ProfileService{
		repo: repo,
		log:  log,
	}
}

// Read возвращает профиль без хэша пароля.
func (s *ProfileService) Read(ctx context.Context, uid string) (*models.User, error) {
	user, err := s.repo.GetUserByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// Update правит редактируемые поля профиля и возвращает свежую версию.
func (s *ProfileService) Update(ctx context.Context, uid, username, company, industry string) (*models.User, error) {
	if err := s.repo.UpdateProfile(ctx, uid, username, company, industry); err != nil {
		return nil, err
	}
	return s.Read(ctx, uid)
}
