package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"zapisnik/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetState(ctx context.Context, userID int64) (*models.UserState, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserState), args.Error(1)
}

func (m *mockRepo) SetState(ctx context.Context, state *models.UserState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

func (m *mockRepo) ClearState(ctx context.Context, userID int64) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockRepo) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverStateRepository(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary := new(mockRepo)
		fallback := new(mockRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		state := &models.UserState{UserID: 1}
		primary.On("GetState", ctx, int64(1)).Return(state, nil).Once()

		got, err := repo.GetState(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "GetState", mock.Anything, mock.Anything)
	})

	t.Run("FallbackOnPrimaryError", func(t *testing.T) {
		primary := new(mockRepo)
		fallback := new(mockRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		state := &models.UserState{UserID: 2}
		primary.On("GetState", ctx, int64(2)).Return(nil, errors.New("redis down")).Once()
		fallback.On("GetState", ctx, int64(2)).Return(state, nil).Once()

		got, err := repo.GetState(ctx, 2)
		assert.NoError(t, err)
		assert.Equal(t, state, got)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		primary := new(mockRepo)
		fallback := new(mockRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		primary.On("SetState", ctx, mock.Anything).Return(errors.New("redis down")).Once()
		fallback.On("SetState", ctx, mock.Anything).Return(nil).Twice()

		// Первый вызов валит primary и уходит в fallback
		assert.NoError(t, repo.SetState(ctx, &models.UserState{UserID: 3}))
		// Второй идет сразу в fallback, primary больше не трогаем
		assert.NoError(t, repo.SetState(ctx, &models.UserState{UserID: 3}))

		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RateLimitFallback", func(t *testing.T) {
		primary := new(mockRepo)
		fallback := new(mockRepo)
		repo := NewFailoverStateRepository(primary, fallback, &logger)

		primary.On("CheckRateLimit", ctx, int64(4), 10, time.Second).Return(false, errors.New("redis down")).Once()
		fallback.On("CheckRateLimit", ctx, int64(4), 10, time.Second).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, 4, 10, time.Second)
		assert.NoError(t, err)
		assert.True(t, allowed)
	})
}
