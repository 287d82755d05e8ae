package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// CreateReport вставляет снимок запуска исследования и возвращает его ID.
// Отчёты после создания не изменяются.
func (s *Storage) CreateReport(ctx context.Context, r models.Report) (string, error) {
	const op = "storage.CreateReport"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	metrics, err := json.Marshal(r.Metrics)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO reports (user_uid, briefing_id, pain_count, avg_pain_score,
			      top_pain, comprehensive_report, dashboard_metrics, structured_data, pain_snapshot)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var id string
	err = s.DB.QueryRowContext(ctx, query,
		r.UserUID, r.BriefingID, r.PainCount, r.AvgPainScore, r.TopPain,
		r.ComprehensiveReport, metrics, nullableJSON(r.StructuredData),
		nullableJSON(r.PainSnapshot)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// nullableJSON возвращает nil для пустого jsonb-поля, чтобы в базе оказался
// NULL, а не пустая строка, которую постгрес отвергнет.
func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

const reportColumns = `id, user_uid, briefing_id, pain_count, avg_pain_score, top_pain,
		comprehensive_report, dashboard_metrics, structured_data, pain_snapshot, created_at`

func scanReport(rows interface{ Scan(dest ...any) error }) (*models.Report, error) {
	var r models.Report
	var metrics []byte
	if err := rows.Scan(&r.ID, &r.UserUID, &r.BriefingID, &r.PainCount, &r.AvgPainScore,
		&r.TopPain, &r.ComprehensiveReport, &metrics, &r.StructuredData,
		&r.PainSnapshot, &r.CreatedAt); err != nil {
		return nil, err
	}
	if len(metrics) > 0 {
		if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
			return nil, err
		}
	}
	return &r, nil
}

// ListReports возвращает отчёты пользователя, новые — первыми.
func (s *Storage) ListReports(ctx context.Context, userUID string, limit, offset int) ([]*models.Report, error) {
	const op = "storage.ListReports"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + reportColumns + `
			  FROM reports
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT $2 OFFSET $3`
	rows, err := s.DB.QueryContext(ctx, query, userUID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ListAllReports возвращает отчёты всех пользователей с именем и почтой
// владельца. Используется только административной выборкой.
func (s *Storage) ListAllReports(ctx context.Context, limit, offset int) ([]*models.Report, error) {
	const op = "storage.ListAllReports"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT r.id, r.user_uid, r.briefing_id, r.pain_count, r.avg_pain_score,
			      r.top_pain, r.comprehensive_report, r.dashboard_metrics, r.structured_data,
			      r.pain_snapshot, r.created_at, COALESCE(p.username, ''), COALESCE(p.email, '')
			  FROM reports r
			  LEFT JOIN profiles p ON p.id = r.user_uid
			  ORDER BY r.created_at DESC
			  LIMIT $1 OFFSET $2`
	rows, err := s.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.Report
	for rows.Next() {
		var r models.Report
		var metrics []byte
		if err := rows.Scan(&r.ID, &r.UserUID, &r.BriefingID, &r.PainCount, &r.AvgPainScore,
			&r.TopPain, &r.ComprehensiveReport, &metrics, &r.StructuredData,
			&r.PainSnapshot, &r.CreatedAt, &r.UserName, &r.UserEmail); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if len(metrics) > 0 {
			if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
