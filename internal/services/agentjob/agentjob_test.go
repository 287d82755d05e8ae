package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/painscope/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetAgentJob(ctx context.Context, id string) (*models.AgentJob, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentJob), args.Error(1)
}

func (m *MockRepository) LatestAgentJob(ctx context.Context, userUID string) (*models.AgentJob, error) {
	args := m.Called(ctx, userUID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.AgentJob), args.Error(1)
}

func (m *MockRepository) ListAgentLogs(ctx context.Context, jobID string) ([]*models.AgentLog, error) {
	args := m.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AgentLog), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func TestLatestWithLogs(t *testing.T) {
	t.Run("возвращает задачу и журнал", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("LatestAgentJob", mock.Anything, "user-1").
			Return(&models.AgentJob{ID: "job-1", Status: models.AgentJobRunning}, nil).Once()
		repo.On("ListAgentLogs", mock.Anything, "job-1").
			Return([]*models.AgentLog{{JobID: "job-1", Level: "info", Message: "scanning sources"}}, nil).Once()

		svc := NewAgentJobService(repo, newNoopLogger())
		job, logs, err := svc.LatestWithLogs(context.Background(), "user-1")

		require.NoError(t, err)
		assert.Equal(t, "job-1", job.ID)
		require.Len(t, logs, 1)
		assert.Equal(t, "scanning sources", logs[0].Message)
	})

	t.Run("ошибка чтения задачи пробрасывается", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("LatestAgentJob", mock.Anything, "user-1").
			Return(nil, errors.New("no rows")).Once()

		svc := NewAgentJobService(repo, newNoopLogger())
		_, _, err := svc.LatestWithLogs(context.Background(), "user-1")
		assert.Error(t, err)
		repo.AssertNotCalled(t, "ListAgentLogs", mock.Anything, mock.Anything)
	})
}

func TestWatcher_StopsWhenJobLeavesRunning(t *testing.T) {
	repo := new(MockRepository)
	var polls atomic.Int32
	repo.On("GetAgentJob", mock.Anything, "job-1").
		Return(&models.AgentJob{ID: "job-1", Status: models.AgentJobRunning}, nil).Times(2)
	repo.On("GetAgentJob", mock.Anything, "job-1").
		Return(&models.AgentJob{ID: "job-1", Status: models.AgentJobCompleted, Progress: 100}, nil).Once()

	svc := NewAgentJobService(repo, newNoopLogger())
	w := svc.NewWatcher(10 * time.Millisecond)

	done := make(chan *models.AgentJob, 1)
	w.Start(context.Background(), "job-1", func(job *models.AgentJob) {
		polls.Add(1)
		if job.Status != models.AgentJobRunning {
			done <- job
		}
	})

	select {
	case job := <-done:
		assert.Equal(t, models.AgentJobCompleted, job.Status)
		assert.Equal(t, 100, job.Progress)
	case <-time.After(time.Second):
		t.Fatal("watcher did not observe job completion")
	}

	w.Stop()
	assert.Equal(t, int32(3), polls.Load())
}

func TestWatcher_RepeatStartIgnored(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetAgentJob", mock.Anything, "job-1").
		Return(&models.AgentJob{ID: "job-1", Status: models.AgentJobRunning}, nil)

	svc := NewAgentJobService(repo, newNoopLogger())
	w := svc.NewWatcher(10 * time.Millisecond)

	var updates atomic.Int32
	w.Start(context.Background(), "job-1", func(*models.AgentJob) { updates.Add(1) })
	// Второй Start не порождает второй опрашивающей горутины.
	w.Start(context.Background(), "job-1", func(*models.AgentJob) { updates.Add(100) })

	time.Sleep(35 * time.Millisecond)
	w.Stop()

	assert.Less(t, updates.Load(), int32(100))
}

func TestWatcher_StopIdempotent(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetAgentJob", mock.Anything, "job-1").
		Return(&models.AgentJob{ID: "job-1", Status: models.AgentJobRunning}, nil)

	svc := NewAgentJobService(repo, newNoopLogger())
	w := svc.NewWatcher(10 * time.Millisecond)

	// Stop до Start безопасен.
	w.Stop()

	w.Start(context.Background(), "job-1", func(*models.AgentJob) {})
	w.Stop()
	w.Stop()
}

func TestWatcher_PollErrorContinues(t *testing.T) {
	repo := new(MockRepository)
	repo.On("GetAgentJob", mock.Anything, "job-1").
		Return(nil, errors.New("temporary db error")).Once()
	repo.On("GetAgentJob", mock.Anything, "job-1").
		Return(&models.AgentJob{ID: "job-1", Status: models.AgentJobError}, nil).Once()

	svc := NewAgentJobService(repo, newNoopLogger())
	w := svc.NewWatcher(10 * time.Millisecond)

	done := make(chan struct{})
	w.Start(context.Background(), "job-1", func(job *models.AgentJob) {
		if job.Status == models.AgentJobError {
			close(done)
		}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watcher did not survive poll error")
	}
	w.Stop()
}
