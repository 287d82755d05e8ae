package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// CreateAgentJob вставляет новую фоновую задачу исследования и возвращает её ID.
func (s *Storage) CreateAgentJob(ctx context.Context, job models.AgentJob) (string, error) {
	const op = "storage.CreateAgentJob"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO agent_jobs (user_uid, briefing_id, status, current_task, progress)
			  VALUES ($1, NULLIF($2, ''), $3, $4, $5)
			  RETURNING id`
	var id string
	err := s.DB.QueryRowContext(ctx, query,
		job.UserUID, job.BriefingID, job.Status, job.CurrentTask, job.Progress).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return id, nil
}

// UpdateAgentJob обновляет статус, описание шага и прогресс задачи.
func (s *Storage) UpdateAgentJob(ctx context.Context, id, status, currentTask string, progress int) error {
	const op = "storage.UpdateAgentJob"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE agent_jobs
			  SET status = $1, current_task = $2, progress = $3, updated_at = $4
			  WHERE id = $5`
	_, err := s.DB.ExecContext(ctx, query, status, currentTask, progress, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

const agentJobColumns = `id, user_uid, COALESCE(briefing_id::text, ''), status, current_task,
		progress, created_at, updated_at`

func scanAgentJob(row interface{ Scan(dest ...any) error }) (*models.AgentJob, error) {
	var j models.AgentJob
	if err := row.Scan(&j.ID, &j.UserUID, &j.BriefingID, &j.Status, &j.CurrentTask,
		&j.Progress, &j.CreatedAt, &j.UpdatedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

// GetAgentJob возвращает задачу по ID.
func (s *Storage) GetAgentJob(ctx context.Context, id string) (*models.AgentJob, error) {
	const op = "storage.GetAgentJob"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + agentJobColumns + ` FROM agent_jobs WHERE id = $1`
	job, err := scanAgentJob(s.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return job, nil
}

// LatestAgentJob возвращает самую свежую задачу пользователя.
func (s *Storage) LatestAgentJob(ctx context.Context, userUID string) (*models.AgentJob, error) {
	const op = "storage.LatestAgentJob"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + agentJobColumns + `
			  FROM agent_jobs
			  WHERE user_uid = $1
			  ORDER BY created_at DESC
			  LIMIT 1`
	job, err := scanAgentJob(s.DB.QueryRowContext(ctx, query, userUID))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return job, nil
}

// CreateAgentLog добавляет запись в журнал задачи.
func (s *Storage) CreateAgentLog(ctx context.Context, entry models.AgentLog) error {
	const op = "storage.CreateAgentLog"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO agent_logs (agent_job_id, level, message) VALUES ($1, $2, $3)`
	_, err := s.DB.ExecContext(ctx, query, entry.JobID, entry.Level, entry.Message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// ListAgentLogs возвращает журнал задачи в порядке записи.
func (s *Storage) ListAgentLogs(ctx context.Context, jobID string) ([]*models.AgentLog, error) {
	const op = "storage.ListAgentLogs"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT id, agent_job_id, level, message, created_at
			  FROM agent_logs
			  WHERE agent_job_id = $1
			  ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var result []*models.AgentLog
	for rows.Next() {
		var entry models.AgentLog
		if err := rows.Scan(&entry.ID, &entry.JobID, &entry.Level, &entry.Message, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		result = append(result, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
