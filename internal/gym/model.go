package gym

import "time"

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

type Gym struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	Phone     string    `db:"phone" json:"phone"`
	Status    string    `db:"status" json:"status"`
	Size      int       `db:"size" json:"size"`
	UserCount int       `db:"user_count" json:"user_count"`
	OpenTime  string    `db:"open_time" json:"open_time"`
	CloseTime string    `db:"close_time" json:"close_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type CreateGymRequest struct {
	Name      string `json:"name" binding:"required"`
	Address   string `json:"address" binding:"required"`
	Phone     string `json:"phone"`
	Size      int    `json:"size" binding:"required,min=1"`
	OpenTime  string `json:"open_time" binding:"required"`
	CloseTime string `json:"close_time" binding:"required"`
}

type GymDetailResponse struct {
	Gym        *Gym    `json:"gym"`
	Congestion float64 `json:"congestion"`
	Forecast   float64 `json:"forecast"`
}
