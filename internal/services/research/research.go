// Package services запускает внешний исследовательский конвейер и
// раскладывает его результат по хранилищу: отчёт, болевые точки, источники.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/painscope/internal/lib/normalize"
	"github.com/magabrotheeeer/painscope/internal/metrics"
	"github.com/magabrotheeeer/painscope/internal/models"
	"github.com/magabrotheeeer/painscope/internal/researchclient"
)

// ResearchRepository определяет методы хранилища, нужные для сохранения
// результатов исследования.
type ResearchRepository interface {
	CreateReport(ctx context.Context, r models.Report) (string, error)
	CreatePain(ctx context.Context, p models.PainArchetype) (string, error)
	CreatePainSource(ctx context.Context, painID string, src models.PainSource) error
	AttachResearchData(ctx context.Context, briefingID string, researchData json.RawMessage) error
	GetUserByUID(ctx context.Context, uid string) (*models.User, error)
	GetSettings(ctx context.Context, userUID string) (*models.UserSettings, error)
	CreateAgentJob(ctx context.Context, job models.AgentJob) (string, error)
	UpdateAgentJob(ctx context.Context, id, status, currentTask string, progress int) error
	CreateAgentLog(ctx context.Context, entry models.AgentLog) error
}

// ResearchClient отправляет брифинг в конвейер и ждёт результата.
type ResearchClient interface {
	StartResearch(ctx context.Context, req researchclient.StartResearchRequest) (any, error)
}

// NotificationPublisher публикует сообщения в брокер уведомлений.
type NotificationPublisher interface {
	Publish(exchange, routingKey string, message any) error
}

// JobWatcher наблюдает за фоновой задачей, пока идёт исследование.
// Конвейер обновляет задачу самостоятельно; наблюдатель делает эти
// обновления видимыми в логах сервиса, пока запрос ждёт результата.
type JobWatcher interface {
	Start(ctx context.Context, jobID string, onUpdate func(*models.AgentJob))
	Stop()
}

// ResearchService выполняет полный цикл исследования по брифингу.
type ResearchService struct {
	repo       ResearchRepository
	client     ResearchClient
	publisher  NotificationPublisher
	newWatcher func() JobWatcher
	log        *slog.Logger
}

// NewResearchService создает новый экземпляр ResearchService.
// publisher и newWatcher могут быть nil: уведомления тогда не
// отправляются, а задачи не наблюдаются во время запуска.
func NewResearchService(repo ResearchRepository, client ResearchClient,
	publisher NotificationPublisher, newWatcher func() JobWatcher, log *slog.Logger) *ResearchService {
	return &ResearchService{
		repo:       repo,
		client:     client,
		publisher:  publisher,
		newWatcher: newWatcher,
		log:        log,
	}
}

// Run отправляет брифинг в конвейер, нормализует ответ и сохраняет
// отчёт с болевыми точками. Возвращает сохранённый отчёт.
func (s *ResearchService) Run(ctx context.Context, userUID string, b *models.Briefing) (*models.Report, error) {
	const op = "research.Run"

	jobID := s.startJob(ctx, userUID, b.ID)

	if s.newWatcher != nil && jobID != "" {
		w := s.newWatcher()
		w.Start(ctx, jobID, func(job *models.AgentJob) {
			s.log.Debug("agent job progress",
				slog.String("job_id", job.ID),
				slog.String("status", job.Status),
				slog.Int("progress", job.Progress))
		})
		defer w.Stop()
	}

	payload, err := s.client.StartResearch(ctx, researchclient.StartResearchRequest{
		UserID:     userUID,
		BriefingID: b.ID,
		BriefingData: researchclient.BriefingData{
			Industry:        b.Industry,
			ProductFocus:    b.ProductFocus,
			Competitors:     b.Competitors,
			TargetAudience:  b.TargetAudience,
			AdditionalNotes: b.AdditionalNotes,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Action:    "start_research",
	})
	if err != nil {
		s.failJob(ctx, jobID, err)
		metrics.ResearchRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.progressJob(ctx, jobID, "Normalizing research results", 70)

	obj, _ := normalize.Unwrap(payload)
	pains := normalize.Pains(obj)
	report := normalize.BuildReport(obj)
	report.UserUID = userUID
	report.BriefingID = &b.ID

	reportID, err := s.repo.CreateReport(ctx, report)
	if err != nil {
		// Без строки отчёта болевым точкам не к чему привязываться.
		s.failJob(ctx, jobID, err)
		metrics.ResearchRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	report.ID = reportID

	s.progressJob(ctx, jobID, "Saving pain archetypes", 85)

	for _, pain := range pains {
		pain.UserUID = userUID
		pain.ReportID = reportID
		// Конвейер повторяет идентификаторы между запусками, поэтому
		// первичный ключ генерируется заново, а исходный сохраняется отдельно.
		pain.ExternalID = pain.ID
		pain.ID = uuid.NewString()
		painID, err := s.repo.CreatePain(ctx, pain)
		if err != nil {
			s.log.Error("failed to save pain archetype",
				slog.String("report_id", reportID), slog.String("pain", pain.Name), slog.Any("err", err))
			continue
		}
		for _, src := range pain.Sources {
			if err := s.repo.CreatePainSource(ctx, painID, src); err != nil {
				s.log.Error("failed to save pain source",
					slog.String("pain_id", painID), slog.Any("err", err))
			}
		}
	}

	rawData, err := json.Marshal(payload)
	if err != nil {
		rawData = json.RawMessage("{}")
	}
	if err := s.repo.AttachResearchData(ctx, b.ID, rawData); err != nil {
		s.failJob(ctx, jobID, err)
		metrics.ResearchRuns.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notify(ctx, userUID, &report)
	s.completeJob(ctx, jobID)
	metrics.ResearchRuns.WithLabelValues("ok").Inc()

	s.log.Info("research run finished",
		slog.String("briefing_id", b.ID),
		slog.String("report_id", reportID),
		slog.Int("pain_count", len(pains)))

	return &report, nil
}

// notify публикует событие о готовом отчёте, если у пользователя
// включены почтовые уведомления.
func (s *ResearchService) notify(ctx context.Context, userUID string, report *models.Report) {
	if s.publisher == nil {
		return
	}
	settings, err := s.repo.GetSettings(ctx, userUID)
	if err != nil {
		defaults := models.DefaultSettings(userUID)
		settings = &defaults
	}
	if !settings.EmailNotifications {
		return
	}
	user, err := s.repo.GetUserByUID(ctx, userUID)
	if err != nil {
		s.log.Warn("failed to load user for notification", slog.Any("err", err))
		return
	}
	message := models.ReportNotification{
		Email:     user.Email,
		Username:  user.Username,
		ReportID:  report.ID,
		TopPain:   report.TopPain,
		PainCount: report.PainCount,
		AvgScore:  report.AvgPainScore,
	}
	if err := s.publisher.Publish("notifications", "report_ready", message); err != nil {
		s.log.Warn("failed to publish report notification", slog.Any("err", err))
	}
}

func (s *ResearchService) startJob(ctx context.Context, userUID, briefingID string) string {
	jobID, err := s.repo.CreateAgentJob(ctx, models.AgentJob{
		UserUID:     userUID,
		BriefingID:  briefingID,
		Status:      models.AgentJobRunning,
		CurrentTask: "Dispatching briefing to research pipeline",
		Progress:    10,
	})
	if err != nil {
		s.log.Warn("failed to create agent job", slog.Any("err", err))
		return ""
	}
	s.logJob(ctx, jobID, "info", "research started")
	return jobID
}

func (s *ResearchService) progressJob(ctx context.Context, jobID, task string, progress int) {
	if jobID == "" {
		return
	}
	if err := s.repo.UpdateAgentJob(ctx, jobID, models.AgentJobRunning, task, progress); err != nil {
		s.log.Warn("failed to update agent job", slog.Any("err", err))
	}
	s.logJob(ctx, jobID, "info", task)
}

func (s *ResearchService) completeJob(ctx context.Context, jobID string) {
	if jobID == "" {
		return
	}
	if err := s.repo.UpdateAgentJob(ctx, jobID, models.AgentJobCompleted, "Research complete", 100); err != nil {
		s.log.Warn("failed to complete agent job", slog.Any("err", err))
	}
	s.logJob(ctx, jobID, "info", "research complete")
}

func (s *ResearchService) failJob(ctx context.Context, jobID string, cause error) {
	if jobID == "" {
		return
	}
	if err := s.repo.UpdateAgentJob(ctx, jobID, models.AgentJobError, cause.Error(), 100); err != nil {
		s.log.Warn("failed to mark agent job as failed", slog.Any("err", err))
	}
	s.logJob(ctx, jobID, "error", cause.Error())
}

func (s *ResearchService) logJob(ctx context.Context, jobID, level, message string) {
	if jobID == "" {
		return
	}
	entry := models.AgentLog{JobID: jobID, Level: level, Message: message}
	if err := s.repo.CreateAgentLog(ctx, entry); err != nil {
		s.log.Warn("failed to append agent log", slog.Any("err", err))
	}
}
