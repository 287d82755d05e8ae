// Package services отдаёт состояние фоновых задач исследования и
// реализует наблюдатель, опрашивающий задачу с фиксированным интервалом.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/magabrotheeeer/painscope/internal/lib/sl"
	"github.com/magabrotheeeer/painscope/internal/models"
)

// AgentJobRepository определяет методы хранилища для фоновых задач.
type AgentJobRepository interface {
	GetAgentJob(ctx context.Context, id string) (*models.AgentJob, error)
	LatestAgentJob(ctx context.Context, userUID string) (*models.AgentJob, error)
	ListAgentLogs(ctx context.Context, jobID string) ([]*models.AgentLog, error)
}

// AgentJobService отвечает за чтение задач и их журналов.
type AgentJobService struct {
	repo AgentJobRepository
	log  *slog.Logger
}

// NewAgentJobService создает новый экземпляр AgentJobService.
func NewAgentJobService(repo AgentJobRepository, log *slog.Logger) *AgentJobService {
	return &AgentJobService{
		repo: repo,
		log:  log,
	}
}

// LatestWithLogs возвращает самую свежую задачу пользователя и её журнал.
func (s *AgentJobService) LatestWithLogs(ctx context.Context, userUID string) (*models.AgentJob, []*models.AgentLog, error) {
	job, err := s.repo.LatestAgentJob(ctx, userUID)
	if err != nil {
		return nil, nil, err
	}
	logs, err := s.repo.ListAgentLogs(ctx, job.ID)
	if err != nil {
		return nil, nil, err
	}
	return job, logs, nil
}

// Watcher опрашивает одну задачу с фиксированным интервалом, пока она
// выполняется. Без экспоненциальной паузы: интервал постоянный, остановка
// либо по Stop, либо когда задача покидает статус "running".
type Watcher struct {
	service  *AgentJobService
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWatcher создает наблюдатель с заданным интервалом опроса.
func (s *AgentJobService) NewWatcher(interval time.Duration) *Watcher {
	return &Watcher{
		service:  s,
		interval: interval,
	}
}

// Start запускает опрос задачи. onUpdate вызывается на каждом тике с
// актуальным состоянием. Повторный Start без Stop игнорируется.
func (w *Watcher) Start(ctx context.Context, jobID string, onUpdate func(*models.AgentJob)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go w.run(ctx, jobID, onUpdate)
}

func (w *Watcher) run(ctx context.Context, jobID string, onUpdate func(*models.AgentJob)) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.service.repo.GetAgentJob(ctx, jobID)
			if err != nil {
				w.service.log.Error("failed to poll agent job",
					slog.String("job_id", jobID), sl.Err(err))
				continue
			}
			onUpdate(job)
			if job.Status != models.AgentJobRunning {
				return
			}
		}
	}
}

// Stop останавливает опрос и дожидается завершения горутины.
// Повторный Stop безопасен.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel = nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}
