package run_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"manualgen/features/run"
	"manualgen/internal/config"
)

func TestService_Record(t *testing.T) {
	mockRepo := new(MockRepo)
	mockPub := new(MockPublisher)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	svc := run.NewService(mockRepo, run.NewLog(&buf), mockPub, logger)

	mockRepo.On("Save", mock.Anything, mock.AnythingOfType("*run.Run")).Return(nil)
	mockPub.On("Publish", config.TopicManualCompleted, mock.MatchedBy(func(body []byte) bool {
		var ev run.Event
		return json.Unmarshal(body, &ev) == nil && ev.Type == config.TopicManualCompleted && ev.Run.Topic == "kettle"
	})).Return(nil)

	r := &run.Run{Topic: "kettle", Status: run.StatusCompleted, Sections: 2}
	svc.Record(context.Background(), r)

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	var logged run.Run
	require.NoError(t, json.Unmarshal(buf.Bytes(), &logged))
	assert.Equal(t, r.ID, logged.ID)
	assert.Equal(t, 2, logged.Sections)

	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestService_Record_FailedRunUsesFailedTopic(t *testing.T) {
	mockPub := new(MockPublisher)
	svc := run.NewService(nil, nil, mockPub, nil)

	mockPub.On("Publish", config.TopicManualFailed, mock.Anything).Return(nil)

	svc.Record(context.Background(), &run.Run{Status: run.StatusFailed, Error: "upstream"})
	mockPub.AssertExpectations(t)
}

func TestService_Record_SinkErrorsAreSwallowed(t *testing.T) {
	mockRepo := new(MockRepo)
	mockPub := new(MockPublisher)
	svc := run.NewService(mockRepo, nil, mockPub, nil)

	mockRepo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	mockPub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("nsq down"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		svc.Record(ctx, &run.Run{Status: run.StatusCompleted})
	})
	mockRepo.AssertExpectations(t)
	mockPub.AssertExpectations(t)
}

func TestService_List(t *testing.T) {
	mockRepo := new(MockRepo)
	svc := run.NewService(mockRepo, nil, nil, nil)

	mockRepo.On("List", mock.Anything, run.DefaultListLimit).Return([]run.Run{{ID: "a"}}, nil).Once()
	mockRepo.On("List", mock.Anything, run.MaxListLimit).Return([]run.Run{}, nil).Once()

	runs, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = svc.List(context.Background(), 10000)
	require.NoError(t, err)
	mockRepo.AssertExpectations(t)
}

func TestService_Get_InvalidID(t *testing.T) {
	mockRepo := new(MockRepo)
	svc := run.NewService(mockRepo, nil, nil, nil)

	_, err := svc.Get(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, run.ErrNotFound)
	mockRepo.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestService_WithoutRepository(t *testing.T) {
	svc := run.NewService(nil, nil, nil, nil)

	runs, err := svc.List(context.Background(), 5)
	assert.NoError(t, err)
	assert.Empty(t, runs)

	_, err = svc.Get(context.Background(), "8c5e0d1e-6d44-4b7e-9d0e-1f2a3b4c5d6e")
	assert.ErrorIs(t, err, run.ErrNotFound)
}

func TestNewFileLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "runs.log")
	l, err := run.NewFileLog(path)
	require.NoError(t, err)

	l.Write(run.Run{ID: "one"})
	l.Write(run.Run{ID: "two"})

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(data), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), `"id":"two"`)
}
