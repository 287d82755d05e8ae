package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// CreateBriefing вставляет новый брифинг и возвращает его ID.
func (s *Storage) CreateBriefing(ctx context.Context, b models.Briefing) (string, error) {
	const op = "storage.CreateBriefing"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	competitors, err := json.Marshal(b.Competitors)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	query := `INSERT INTO briefings (user_uid, industry, product_focus, competitors,
			      target_audience, additional_notes, is_complete)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)
			  RETURNING id`
	var id string
	err = s.DB.QueryRowContext(ctx, query,
		b.UserUID, b.Industry, b.ProductFocus, competitors,
		b.TargetAudience, b.AdditionalNotes, b.IsComplete).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdateBriefing обновляет поля анкеты незавершённого брифинга.
func (s *Storage) UpdateBriefing(ctx context.Context, b models.Briefing) error {
	const op = "storage.UpdateBriefing"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	competitors, err := json.Marshal(b.Competitors)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	query := `UPDATE briefings
			  SET industry = $1, product_focus = $2, competitors = $3,
			      target_audience = $4, additional_notes = $5, is_complete = $6, updated_at = $7
			  WHERE id = $8 AND user_uid = $9`
	_, err = s.DB.ExecContext(ctx, query,
		b.Industry, b.ProductFocus, competitors, b.TargetAudience,
		b.AdditionalNotes, b.IsComplete, time.Now().UTC(), b.ID, b.UserUID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AttachResearchData помечает брифинг завершённым и прикрепляет сырой
// результат исследования. Единственная разрешённая мутация после финализации.
func (s *Storage) AttachResearchData(ctx context.Context, briefingID string, researchData json.RawMessage) error {
	const op = "storage.AttachResearchData"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE briefings
			  SET is_complete = true, research_data = $1, updated_at = $2
			  WHERE id = $3`
	_, err := s.DB.ExecContext(ctx, query, researchData, time.Now().UTC(), briefingID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ReadBriefing возвращает брифинг по ID в границах владельца.
func (s *Storage) ReadBriefing(ctx context.Context, userUID, id string) (*models.Briefing, error) {
	const op = "storage.ReadBriefing"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, user_uid, industry, product_focus, competitors, target_audience,
			      additional_notes, is_complete, research_data, created_at, updated_at
			  FROM briefings WHERE id = $1 AND user_uid = $2`
	row := s.DB.QueryRowContext(ctx, query, id, userUID)

	var b models.Briefing
	var competitors []byte
	if err := row.Scan(&b.ID, &b.UserUID, &b.Industry, &b.ProductFocus, &competitors,
		&b.TargetAudience, &b.AdditionalNotes, &b.IsComplete, &b.ResearchData,
		&b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(competitors) > 0 {
		if err := json.Unmarshal(competitors, &b.Competitors); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	return &b, nil
}

// CreateChatMessage сохраняет одну реплику диалога брифинга.
func (s *Storage) CreateChatMessage(ctx context.Context, m models.ChatMessage) error {
	const op = "storage.CreateChatMessage"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO chat_messages (briefing_id, role, content) VALUES ($1, $2, $3)`
	_, err := s.DB.ExecContext(ctx, query, m.BriefingID, m.Role, m.Content)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListChatMessages возвращает реплики брифинга в порядке появления.
func (s *Storage) ListChatMessages(ctx context.Context, briefingID string) ([]*models.ChatMessage, error) {
	const op = "storage.ListChatMessages"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, briefing_id, role, content, created_at
			  FROM chat_messages
			  WHERE briefing_id = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, briefingID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.BriefingID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
