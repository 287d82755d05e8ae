package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/painscope/internal/models"
	"github.com/magabrotheeeer/painscope/internal/researchclient"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateReport(ctx context.Context, r models.Report) (string, error) {
	args := m.Called(ctx, r)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) CreatePain(ctx context.Context, p models.PainArchetype) (string, error) {
	args := m.Called(ctx, p)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) CreatePainSource(ctx context.Context, painID string, src models.PainSource) error {
	args := m.Called(ctx, painID, src)
	return args.Error(0)
}

func (m *MockRepository) AttachResearchData(ctx context.Context, briefingID string, researchData json.RawMessage) error {
	args := m.Called(ctx, briefingID, researchData)
	return args.Error(0)
}

func (m *MockRepository) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockRepository) GetSettings(ctx context.Context, userUID string) (*models.UserSettings, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserSettings), args.Error(1)
}

func (m *MockRepository) CreateAgentJob(ctx context.Context, job models.AgentJob) (string, error) {
	args := m.Called(ctx, job)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) UpdateAgentJob(ctx context.Context, id, status, currentTask string, progress int) error {
	args := m.Called(ctx, id, status, currentTask, progress)
	return args.Error(0)
}

func (m *MockRepository) CreateAgentLog(ctx context.Context, entry models.AgentLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

type MockClient struct {
	mock.Mock
}

func (m *MockClient) StartResearch(ctx context.Context, req researchclient.StartResearchRequest) (any, error) {
	args := m.Called(ctx, req)
	return args.Get(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, routingKey string, message any) error {
	args := m.Called(exchange, routingKey, message)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func testBriefing() *models.Briefing {
	return &models.Briefing{
		ID:             "brief-1",
		UserUID:        "user-1",
		Industry:       "Fintech",
		ProductFocus:   "Invoice automation",
		Competitors:    []string{"Acme", "Globex"},
		TargetAudience: "SMB accountants",
	}
}

func allowJobTracking(repo *MockRepository) {
	repo.On("CreateAgentJob", mock.Anything, mock.Anything).Return("job-1", nil).Maybe()
	repo.On("UpdateAgentJob", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.On("CreateAgentLog", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func webhookPayload() map[string]any {
	return map[string]any{
		"painLibrary": []any{
			map[string]any{
				"id":          "pain-1",
				"archetype":   "Invoice delay",
				"description": "Invoices take weeks to reconcile",
				"painScore":   80.0,
				"topSource":   map[string]any{"name": "Fintech forum", "url": "https://forum.example"},
			},
		},
		"dashboardMetrics": map[string]any{"painsDiscovered": 1.0, "avgPainScore": 80.0},
	}
}

func TestRun_Success(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	publisher := new(MockPublisher)
	allowJobTracking(repo)

	client.On("StartResearch", mock.Anything,
		mock.MatchedBy(func(req researchclient.StartResearchRequest) bool {
			return req.UserID == "user-1" &&
				req.BriefingID == "brief-1" &&
				req.Action == "start_research" &&
				req.BriefingData.Industry == "Fintech" &&
				len(req.BriefingData.Competitors) == 2
		})).Return(webhookPayload(), nil).Once()

	repo.On("CreateReport", mock.Anything, mock.MatchedBy(func(r models.Report) bool {
		return r.UserUID == "user-1" &&
			r.BriefingID != nil && *r.BriefingID == "brief-1" &&
			r.PainCount == 1 &&
			r.TopPain == "Invoice delay"
	})).Return("report-1", nil).Once()
	repo.On("CreatePain", mock.Anything, mock.MatchedBy(func(p models.PainArchetype) bool {
		return p.UserUID == "user-1" && p.ReportID == "report-1" && p.Name == "Invoice delay" &&
			p.ExternalID == "pain-1" && p.ID != "pain-1"
	})).Return("pain-1", nil).Once()
	repo.On("CreatePainSource", mock.Anything, "pain-1", mock.Anything).Return(nil).Once()
	repo.On("AttachResearchData", mock.Anything, "brief-1", mock.Anything).Return(nil).Once()
	repo.On("GetSettings", mock.Anything, "user-1").
		Return(&models.UserSettings{UserUID: "user-1", EmailNotifications: true}, nil).Once()
	repo.On("GetUserByUID", mock.Anything, "user-1").
		Return(&models.User{UUID: "user-1", Email: "user@example.com", Username: "testuser"}, nil).Once()
	publisher.On("Publish", "notifications", "report_ready",
		mock.MatchedBy(func(msg models.ReportNotification) bool {
			return msg.Email == "user@example.com" && msg.ReportID == "report-1" && msg.PainCount == 1
		})).Return(nil).Once()

	svc := NewResearchService(repo, client, publisher, nil, newNoopLogger())
	report, err := svc.Run(context.Background(), "user-1", testBriefing())

	require.NoError(t, err)
	assert.Equal(t, "report-1", report.ID)
	assert.Equal(t, 1, report.PainCount)
	repo.AssertExpectations(t)
	client.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRun_WebhookError(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	allowJobTracking(repo)

	client.On("StartResearch", mock.Anything, mock.Anything).
		Return(nil, errors.New("webhook timeout")).Once()

	svc := NewResearchService(repo, client, nil, nil, newNoopLogger())
	_, err := svc.Run(context.Background(), "user-1", testBriefing())

	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreateReport", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "AttachResearchData", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_ReportErrorSkipsPains(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	allowJobTracking(repo)

	client.On("StartResearch", mock.Anything, mock.Anything).Return(webhookPayload(), nil).Once()
	repo.On("CreateReport", mock.Anything, mock.Anything).Return("", errors.New("db error")).Once()

	svc := NewResearchService(repo, client, nil, nil, newNoopLogger())
	_, err := svc.Run(context.Background(), "user-1", testBriefing())

	assert.Error(t, err)
	repo.AssertNotCalled(t, "CreatePain", mock.Anything, mock.Anything)
}

func TestRun_PainErrorDoesNotAbortRun(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	allowJobTracking(repo)

	payload := webhookPayload()
	payload["painLibrary"] = []any{
		map[string]any{"id": "pain-1", "archetype": "First"},
		map[string]any{"id": "pain-2", "archetype": "Second"},
	}
	client.On("StartResearch", mock.Anything, mock.Anything).Return(payload, nil).Once()
	repo.On("CreateReport", mock.Anything, mock.Anything).Return("report-1", nil).Once()
	repo.On("CreatePain", mock.Anything, mock.MatchedBy(func(p models.PainArchetype) bool {
		return p.ExternalID == "pain-1"
	})).Return("", errors.New("constraint violation")).Once()
	repo.On("CreatePain", mock.Anything, mock.MatchedBy(func(p models.PainArchetype) bool {
		return p.ExternalID == "pain-2"
	})).Return("pain-2", nil).Once()
	repo.On("AttachResearchData", mock.Anything, "brief-1", mock.Anything).Return(nil).Once()

	svc := NewResearchService(repo, client, nil, nil, newNoopLogger())
	report, err := svc.Run(context.Background(), "user-1", testBriefing())

	require.NoError(t, err)
	assert.Equal(t, "report-1", report.ID)
	repo.AssertExpectations(t)
}

func TestRun_NotificationsRespectSettings(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	publisher := new(MockPublisher)
	allowJobTracking(repo)

	client.On("StartResearch", mock.Anything, mock.Anything).Return(webhookPayload(), nil).Once()
	repo.On("CreateReport", mock.Anything, mock.Anything).Return("report-1", nil).Once()
	repo.On("CreatePain", mock.Anything, mock.Anything).Return("pain-1", nil).Once()
	repo.On("CreatePainSource", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.On("AttachResearchData", mock.Anything, "brief-1", mock.Anything).Return(nil).Once()
	repo.On("GetSettings", mock.Anything, "user-1").
		Return(&models.UserSettings{UserUID: "user-1", EmailNotifications: false}, nil).Once()

	svc := NewResearchService(repo, client, publisher, nil, newNoopLogger())
	_, err := svc.Run(context.Background(), "user-1", testBriefing())

	require.NoError(t, err)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_PublishErrorIsNotFatal(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	publisher := new(MockPublisher)
	allowJobTracking(repo)

	client.On("StartResearch", mock.Anything, mock.Anything).Return(webhookPayload(), nil).Once()
	repo.On("CreateReport", mock.Anything, mock.Anything).Return("report-1", nil).Once()
	repo.On("CreatePain", mock.Anything, mock.Anything).Return("pain-1", nil).Once()
	repo.On("CreatePainSource", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.On("AttachResearchData", mock.Anything, "brief-1", mock.Anything).Return(nil).Once()
	repo.On("GetSettings", mock.Anything, "user-1").
		Return(&models.UserSettings{UserUID: "user-1", EmailNotifications: true}, nil).Once()
	repo.On("GetUserByUID", mock.Anything, "user-1").
		Return(&models.User{UUID: "user-1", Email: "user@example.com"}, nil).Once()
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable")).Once()

	svc := NewResearchService(repo, client, publisher, nil, newNoopLogger())
	report, err := svc.Run(context.Background(), "user-1", testBriefing())

	require.NoError(t, err)
	assert.Equal(t, "report-1", report.ID)
}

type MockWatcher struct {
	mock.Mock
}

func (m *MockWatcher) Start(ctx context.Context, jobID string, onUpdate func(*models.AgentJob)) {
	m.Called(ctx, jobID, onUpdate)
}

func (m *MockWatcher) Stop() {
	m.Called()
}

func TestRun_WatcherFollowsJob(t *testing.T) {
	t.Run("наблюдатель запускается на задаче и останавливается после запуска", func(t *testing.T) {
		repo := new(MockRepository)
		client := new(MockClient)
		watcher := new(MockWatcher)
		allowJobTracking(repo)

		client.On("StartResearch", mock.Anything, mock.Anything).Return(webhookPayload(), nil).Once()
		repo.On("CreateReport", mock.Anything, mock.Anything).Return("report-1", nil).Once()
		repo.On("CreatePain", mock.Anything, mock.Anything).Return("pain-1", nil).Once()
		repo.On("CreatePainSource", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
		repo.On("AttachResearchData", mock.Anything, "brief-1", mock.Anything).Return(nil).Once()
		watcher.On("Start", mock.Anything, "job-1", mock.Anything).Once()
		watcher.On("Stop").Once()

		svc := NewResearchService(repo, client, nil,
			func() JobWatcher { return watcher }, newNoopLogger())
		_, err := svc.Run(context.Background(), "user-1", testBriefing())

		require.NoError(t, err)
		watcher.AssertExpectations(t)
	})

	t.Run("наблюдатель останавливается и при ошибке конвейера", func(t *testing.T) {
		repo := new(MockRepository)
		client := new(MockClient)
		watcher := new(MockWatcher)
		allowJobTracking(repo)

		client.On("StartResearch", mock.Anything, mock.Anything).
			Return(nil, errors.New("webhook timeout")).Once()
		watcher.On("Start", mock.Anything, "job-1", mock.Anything).Once()
		watcher.On("Stop").Once()

		svc := NewResearchService(repo, client, nil,
			func() JobWatcher { return watcher }, newNoopLogger())
		_, err := svc.Run(context.Background(), "user-1", testBriefing())

		assert.Error(t, err)
		watcher.AssertExpectations(t)
	})
}

// Конвейер возвращает одни и те же идентификаторы архетипов в каждом запуске;
// повторный запуск не должен конфликтовать с уже сохранёнными записями.
func TestRun_PainPrimaryKeyRegenerated(t *testing.T) {
	repo := new(MockRepository)
	client := new(MockClient)
	allowJobTracking(repo)

	client.On("StartResearch", mock.Anything, mock.Anything).Return(webhookPayload(), nil).Twice()
	repo.On("CreateReport", mock.Anything, mock.Anything).Return("report-1", nil).Twice()

	var saved []models.PainArchetype
	repo.On("CreatePain", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			saved = append(saved, args.Get(1).(models.PainArchetype))
		}).Return("pain-row", nil).Twice()
	repo.On("CreatePainSource", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()
	repo.On("AttachResearchData", mock.Anything, "brief-1", mock.Anything).Return(nil).Twice()

	svc := NewResearchService(repo, client, nil, nil, newNoopLogger())
	_, err := svc.Run(context.Background(), "user-1", testBriefing())
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), "user-1", testBriefing())
	require.NoError(t, err)

	require.Len(t, saved, 2)
	assert.Equal(t, "pain-1", saved[0].ExternalID)
	assert.Equal(t, "pain-1", saved[1].ExternalID)
	assert.NotEqual(t, saved[0].ID, saved[1].ID)
	repo.AssertExpectations(t)
}
