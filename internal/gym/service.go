package gym

import (
	"context"
	"errors"
	"sync"
	"time"

	"guss/internal/congestion"
)

var (
	ErrGymNotFound    = errors.New("gym not found")
	ErrInvalidGymTime = errors.New("invalid open/close time")
)

type Service interface {
	CreateGym(ctx context.Context, req CreateGymRequest) (*Gym, error)
	GetAllGyms(ctx context.Context) ([]Gym, error)
	GetGymDetail(ctx context.Context, id int) (*GymDetailResponse, error)
}

type service struct {
	repo Repository
	now  func() time.Time

	mu        sync.Mutex
	forecasts map[int]float64
}

func NewService(repo Repository) Service {
	return &service{
		repo:      repo,
		now:       time.Now,
		forecasts: make(map[int]float64),
	}
}

func (s *service) CreateGym(ctx context.Context, req CreateGymRequest) (*Gym, error) {
	open, err := time.Parse("15:04", req.OpenTime)
	if err != nil {
		return nil, ErrInvalidGymTime
	}

	closeT, err := time.Parse("15:04", req.CloseTime)
	if err != nil {
		return nil, ErrInvalidGymTime
	}

	if !closeT.After(open) {
		return nil, ErrInvalidGymTime
	}

	return s.repo.CreateGym(ctx, req.Name, req.Address, req.Phone, req.OpenTime, req.CloseTime, req.Size)
}

func (s *service) GetAllGyms(ctx context.Context) ([]Gym, error) {
	return s.repo.GetAllGyms(ctx)
}

func (s *service) GetGymDetail(ctx context.Context, id int) (*GymDetailResponse, error) {
	gym, err := s.repo.GetGymByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &GymDetailResponse{
		Gym:        gym,
		Congestion: congestion.Ratio(gym.UserCount, gym.Size),
		Forecast:   s.smoothForecast(gym.ID, congestion.Forecast(gym.UserCount, gym.Size, s.now())),
	}, nil
}

// smoothForecast damps the hour-weighted estimate across successive reads so
// a single noisy occupancy sample does not whipsaw the displayed value. The
// first sample for a gym seeds its series.
func (s *service) smoothForecast(gymID int, sample float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.forecasts[gymID]
	if !ok {
		s.forecasts[gymID] = sample
		return sample
	}

	smoothed := congestion.ApplyEMA(prev, sample)
	s.forecasts[gymID] = smoothed
	return smoothed
}
