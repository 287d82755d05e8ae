// Package services содержит бизнес-логику чтения отчётов исследований.
package services

import (
	"context"
	"log/slog"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// ReportRepository определяет методы для чтения отчётов из хранилища.
type ReportRepository interface {
	// ListReports возвращает отчёты пользователя, новые первыми.
	ListReports(ctx context.Context, userUID string, limit, offset int) ([]*models.Report, error)
	// ListAllReports возвращает отчёты всех пользователей с именем и почтой владельца.
	ListAllReports(ctx context.Context, limit, offset int) ([]*models.Report, error)
}

// ReportService отвечает за выдачу истории отчётов.
type ReportService struct {
	repo ReportRepository
	log  *slog.Logger
}

// NewReportService создает новый экземпляр ReportService.
func NewReportService(repo ReportRepository, log *slog.Logger) *ReportService {
	return &ReportService{
		repo: repo,
		log:  log,
	}
}

// List возвращает отчёты пользователя, новые первыми.
func (s *ReportService) List(ctx context.Context, userUID string, limit, offset int) ([]*models.Report, error) {
	return s.repo.ListReports(ctx, userUID, limit, offset)
}

// ListAll возвращает отчёты всех пользователей. Только для администраторов.
func (s *ReportService) ListAll(ctx context.Context, limit, offset int) ([]*models.Report, error) {
	return s.repo.ListAllReports(ctx, limit, offset)
}
