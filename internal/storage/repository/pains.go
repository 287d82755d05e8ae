package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// CreatePain вставляет болевой архетип и возвращает его ID.
func (s *Storage) CreatePain(ctx context.Context, p models.PainArchetype) (string, error) {
	const op = "storage.CreatePain"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tags, err := json.Marshal(p.Tags)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	history, err := json.Marshal(p.FrequencyHistory)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO pain_archetypes (id, external_id, user_uid, report_id, name, description,
			      pain_score, severity, frequency, urgency, competitive_saturation,
			      tam, sam, som, estimated_arr, confidence, tags, frequency_history)
			  VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
			  RETURNING id`
	var id string
	err = s.DB.QueryRowContext(ctx, query,
		p.ID, p.ExternalID, p.UserUID, p.ReportID, p.Name, p.Description,
		p.PainScore, p.Severity, p.Frequency, p.Urgency, p.CompetitiveSaturation,
		p.Revenue.TAM, p.Revenue.SAM, p.Revenue.SOM, p.Revenue.EstimatedARR,
		p.Revenue.Confidence, tags, history).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// CreatePainSource вставляет источник архетипа. Источники удаляются каскадно
// вместе с родительской записью.
func (s *Storage) CreatePainSource(ctx context.Context, painID string, src models.PainSource) error {
	const op = "storage.CreatePainSource"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO pain_sources (pain_archetype_id, url, title, platform, snippet, sentiment, source_date)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := s.DB.ExecContext(ctx, query,
		painID, src.URL, src.Title, src.Platform, src.Snippet, src.Sentiment, src.Date)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const painColumns = `id, external_id, user_uid, COALESCE(report_id::text, ''), name, description,
		pain_score, severity, frequency, urgency, competitive_saturation,
		tam, sam, som, estimated_arr, confidence, tags, frequency_history, created_at`

func scanPain(rows interface{ Scan(dest ...any) error }) (*models.PainArchetype, error) {
	var p models.PainArchetype
	var tags, history []byte
	if err := rows.Scan(&p.ID, &p.ExternalID, &p.UserUID, &p.ReportID, &p.Name, &p.Description,
		&p.PainScore, &p.Severity, &p.Frequency, &p.Urgency, &p.CompetitiveSaturation,
		&p.Revenue.TAM, &p.Revenue.SAM, &p.Revenue.SOM, &p.Revenue.EstimatedARR,
		&p.Revenue.Confidence, &tags, &history, &p.CreatedAt); err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, err
		}
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.FrequencyHistory); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// sortColumn переводит значение фильтра в имя колонки. Неизвестные значения
// сводятся к pain_score, чтобы пользовательский ввод не попадал в SQL.
func sortColumn(sortBy string) string {
	switch sortBy {
	case "frequency":
		return "frequency"
	case "created_at":
		return "created_at"
	default:
		return "pain_score"
	}
}

// ListPains возвращает архетипы пользователя с учётом фильтра и сортировки.
func (s *Storage) ListPains(ctx context.Context, userUID string, filter models.PainFilter) ([]*models.PainArchetype, error) {
	const op = "storage.ListPains"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	order := "DESC"
	if filter.SortOrder == "asc" {
		order = "ASC"
	}

	query := `SELECT ` + painColumns + `
			  FROM pain_archetypes
			  WHERE user_uid = $1
			    AND ($2 = '' OR name ILIKE '%' || $2 || '%' OR description ILIKE '%' || $2 || '%')
			    AND pain_score >= $3 AND pain_score <= $4
			  ORDER BY ` + sortColumn(filter.SortBy) + ` ` + order + `
			  LIMIT $5 OFFSET $6`
	rows, err := s.DB.QueryContext(ctx, query,
		userUID, filter.Search, filter.MinScore, filter.MaxScore, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.PainArchetype
	for rows.Next() {
		p, err := scanPain(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

// ReadPain возвращает архетип с источниками в границах владельца.
func (s *Storage) ReadPain(ctx context.Context, userUID, id string) (*models.PainArchetype, error) {
	const op = "storage.ReadPain"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + painColumns + ` FROM pain_archetypes WHERE id = $1 AND user_uid = $2`
	p, err := scanPain(s.DB.QueryRowContext(ctx, query, id, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sources, err := s.ListPainSources(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	for _, src := range sources {
		p.Sources = append(p.Sources, *src)
	}
	return p, nil
}

// ListPainSources возвращает источники архетипа в порядке добавления.
func (s *Storage) ListPainSources(ctx context.Context, painID string) ([]*models.PainSource, error) {
	const op = "storage.ListPainSources"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, url, title, platform, snippet, sentiment, source_date
			  FROM pain_sources
			  WHERE pain_archetype_id = $1
			  ORDER BY id`
	rows, err := s.DB.QueryContext(ctx, query, painID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.PainSource
	for rows.Next() {
		var src models.PainSource
		if err := rows.Scan(&src.ID, &src.URL, &src.Title, &src.Platform,
			&src.Snippet, &src.Sentiment, &src.Date); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
