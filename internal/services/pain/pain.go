// Package services содержит бизнес-логику библиотеки болевых точек.
package services

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// PainRepository определяет методы для чтения архетипов из хранилища.
type PainRepository interface {
	// ListPains возвращает архетипы пользователя по фильтру.
	ListPains(ctx context.Context, userUID string, filter models.PainFilter) ([]*models.PainArchetype, error)
	// ReadPain возвращает архетип с источниками.
	ReadPain(ctx context.Context, userUID, id string) (*models.PainArchetype, error)
}

const defaultListLimit = 50

// PainService отвечает за выборку болевых точек пользователя.
type PainService struct {
	repo PainRepository
	log  *slog.Logger
}

// NewPainService создает новый экземпляр PainService.
func NewPainService(repo PainRepository, log *slog.Logger) *PainService {
	return &PainService{
		repo: repo,
		log:  log,
	}
}

// List возвращает архетипы пользователя. Пустой фильтр даёт все записи,
// отсортированные по убыванию балла боли.
func (s *PainService) List(ctx context.Context, userUID string, req models.DummyPainFilter) ([]*models.PainArchetype, error) {
	filter := models.PainFilter{
		Search:    req.Search,
		MinScore:  req.MinScore,
		MaxScore:  req.MaxScore,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
		Limit:     req.Limit,
		Offset:    req.Offset,
	}
	if filter.MaxScore == 0 {
		filter.MaxScore = 100
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	return s.repo.ListPains(ctx, userUID, filter)
}

// Read возвращает один архетип вместе с его источниками.
func (s *PainService) Read(ctx context.Context, userUID, id string) (*models.PainArchetype, error) {
	return s.repo.ReadPain(ctx, userUID, id)
}
