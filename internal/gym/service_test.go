package gym

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockGymRepository struct{ mock.Mock }

func (m *MockGymRepository) CreateGym(ctx context.Context, name, address, phone, openTime, closeTime string, size int) (*Gym, error) {
	args := m.Called(ctx, name, address, phone, openTime, closeTime, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gym), args.Error(1)
}

func (m *MockGymRepository) GetAllGyms(ctx context.Context) ([]Gym, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Gym), args.Error(1)
}

func (m *MockGymRepository) GetGymByID(ctx context.Context, id int) (*Gym, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gym), args.Error(1)
}

func TestService_CreateGym(t *testing.T) {
	validReq := CreateGymRequest{
		Name:      "Iron Temple",
		Address:   "12 Barbell St",
		Phone:     "02-1234-5678",
		OpenTime:  "06:00",
		CloseTime: "23:00",
		Size:      50,
	}

	t.Run("success", func(t *testing.T) {
		repo := new(MockGymRepository)
		repo.On("CreateGym", mock.Anything, "Iron Temple", "12 Barbell St", "02-1234-5678", "06:00", "23:00", 50).
			Return(&Gym{ID: 1, Name: "Iron Temple", Size: 50}, nil)

		service := NewService(repo)

		gym, err := service.CreateGym(context.Background(), validReq)
		require.NoError(t, err)
		assert.Equal(t, 1, gym.ID)
		repo.AssertExpectations(t)
	})

	t.Run("malformed open time", func(t *testing.T) {
		req := validReq
		req.OpenTime = "6am"

		service := NewService(new(MockGymRepository))

		_, err := service.CreateGym(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidGymTime)
	})

	t.Run("close before open", func(t *testing.T) {
		req := validReq
		req.OpenTime = "22:00"
		req.CloseTime = "06:00"

		service := NewService(new(MockGymRepository))

		_, err := service.CreateGym(context.Background(), req)
		assert.ErrorIs(t, err, ErrInvalidGymTime)
	})
}

func TestService_GetGymDetail(t *testing.T) {
	t.Run("computes congestion from counter and size", func(t *testing.T) {
		repo := new(MockGymRepository)
		repo.On("GetGymByID", mock.Anything, 1).Return(&Gym{
			ID: 1, Name: "Iron Temple", Size: 20, UserCount: 10,
		}, nil)

		service := NewService(repo)

		detail, err := service.GetGymDetail(context.Background(), 1)
		require.NoError(t, err)
		assert.InDelta(t, 0.5, detail.Congestion, 1e-9)
		assert.GreaterOrEqual(t, detail.Forecast, 0.0)
		assert.LessOrEqual(t, detail.Forecast, 1.0)
	})

	t.Run("counter above size clamps to one", func(t *testing.T) {
		repo := new(MockGymRepository)
		repo.On("GetGymByID", mock.Anything, 1).Return(&Gym{
			ID: 1, Size: 20, UserCount: 30,
		}, nil)

		service := NewService(repo)

		detail, err := service.GetGymDetail(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 1.0, detail.Congestion)
	})

	t.Run("zero size reports zero", func(t *testing.T) {
		repo := new(MockGymRepository)
		repo.On("GetGymByID", mock.Anything, 1).Return(&Gym{
			ID: 1, Size: 0, UserCount: 5,
		}, nil)

		service := NewService(repo)

		detail, err := service.GetGymDetail(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, 0.0, detail.Congestion)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(MockGymRepository)
		repo.On("GetGymByID", mock.Anything, 99).Return(nil, ErrGymNotFound)

		service := NewService(repo)

		_, err := service.GetGymDetail(context.Background(), 99)
		assert.ErrorIs(t, err, ErrGymNotFound)
	})

	t.Run("storage failure is not a not-found", func(t *testing.T) {
		repo := new(MockGymRepository)
		dbErr := errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")
		repo.On("GetGymByID", mock.Anything, 1).Return(nil, dbErr)

		service := NewService(repo)

		_, err := service.GetGymDetail(context.Background(), 1)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrGymNotFound)
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestService_GetGymDetail_ForecastSmoothing(t *testing.T) {
	// Pin the clock to noon so the hour weight (0.8) is known.
	noon := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	repo := new(MockGymRepository)
	repo.On("GetGymByID", mock.Anything, 1).Return(&Gym{
		ID: 1, Size: 20, UserCount: 10,
	}, nil).Once()
	repo.On("GetGymByID", mock.Anything, 1).Return(&Gym{
		ID: 1, Size: 20, UserCount: 20,
	}, nil)

	svc := &service{
		repo:      repo,
		now:       func() time.Time { return noon },
		forecasts: make(map[int]float64),
	}

	// First read seeds the series with the raw estimate: 0.5 * 0.8 = 0.4.
	first, err := svc.GetGymDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.4, first.Forecast, 1e-9)

	// Occupancy jumps to full (raw 0.8); the smoothed value moves only 20%
	// of the way there: 0.8*0.4 + 0.2*0.8 = 0.48.
	second, err := svc.GetGymDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, 0.48, second.Forecast, 1e-9)

	// A steady signal keeps converging toward the raw estimate.
	third, err := svc.GetGymDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Greater(t, third.Forecast, second.Forecast)
	assert.Less(t, third.Forecast, 0.8)
}
