package gym

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockGymService struct{ mock.Mock }

func (m *MockGymService) CreateGym(ctx context.Context, req CreateGymRequest) (*Gym, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Gym), args.Error(1)
}

func (m *MockGymService) GetAllGyms(ctx context.Context) ([]Gym, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Gym), args.Error(1)
}

func (m *MockGymService) GetGymDetail(ctx context.Context, id int) (*GymDetailResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*GymDetailResponse), args.Error(1)
}

func newGymRouter(service Service) *gin.Engine {
	r := gin.New()
	h := &Handler{service: service}
	r.GET("/gyms", h.ListGyms)
	r.GET("/gyms/:gymID", h.GetGym)
	r.POST("/admin/gyms", h.CreateGym)
	return r
}

func TestHandler_GetGym(t *testing.T) {
	t.Run("detail includes congestion", func(t *testing.T) {
		service := new(MockGymService)
		service.On("GetGymDetail", mock.Anything, 1).Return(&GymDetailResponse{
			Gym:        &Gym{ID: 1, Name: "Iron Temple", Size: 20, UserCount: 10},
			Congestion: 0.5,
			Forecast:   0.55,
		}, nil)

		w := httptest.NewRecorder()
		newGymRouter(service).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms/1", nil))

		assert.Equal(t, http.StatusOK, w.Code)

		var detail GymDetailResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &detail))
		assert.InDelta(t, 0.5, detail.Congestion, 1e-9)
	})

	t.Run("not found", func(t *testing.T) {
		service := new(MockGymService)
		service.On("GetGymDetail", mock.Anything, 99).Return(nil, ErrGymNotFound)

		w := httptest.NewRecorder()
		newGymRouter(service).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms/99", nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("storage failure returns 500", func(t *testing.T) {
		service := new(MockGymService)
		service.On("GetGymDetail", mock.Anything, 1).Return(nil, errors.New("driver: bad connection"))

		w := httptest.NewRecorder()
		newGymRouter(service).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms/1", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("non-numeric id", func(t *testing.T) {
		w := httptest.NewRecorder()
		newGymRouter(new(MockGymService)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/gyms/abc", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_CreateGym(t *testing.T) {
	body := func(t *testing.T, v any) *bytes.Reader {
		t.Helper()
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		return bytes.NewReader(payload)
	}

	t.Run("created", func(t *testing.T) {
		req := CreateGymRequest{
			Name: "Iron Temple", Address: "12 Barbell St",
			OpenTime: "06:00", CloseTime: "23:00", Size: 50,
		}

		service := new(MockGymService)
		service.On("CreateGym", mock.Anything, req).Return(&Gym{ID: 1, Name: "Iron Temple"}, nil)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/admin/gyms", body(t, req))
		r.Header.Set("Content-Type", "application/json")
		newGymRouter(service).ServeHTTP(w, r)

		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("invalid hours", func(t *testing.T) {
		req := CreateGymRequest{
			Name: "Iron Temple", Address: "12 Barbell St",
			OpenTime: "23:00", CloseTime: "06:00", Size: 50,
		}

		service := new(MockGymService)
		service.On("CreateGym", mock.Anything, req).Return(nil, ErrInvalidGymTime)

		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/admin/gyms", body(t, req))
		r.Header.Set("Content-Type", "application/json")
		newGymRouter(service).ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing required fields", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/admin/gyms", body(t, gin.H{"name": "x"}))
		r.Header.Set("Content-Type", "application/json")
		newGymRouter(new(MockGymService)).ServeHTTP(w, r)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
