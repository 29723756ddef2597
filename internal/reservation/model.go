package reservation

import "time"

// Reservation statuses. A user may hold at most one CONFIRMED or WAITING
// reservation per gym; CANCELLED rows are kept for audit.
const (
	StatusConfirmed = "CONFIRMED"
	StatusWaiting   = "WAITING"
	StatusCancelled = "CANCELLED"
)

type Reservation struct {
	ID           int        `db:"id" json:"id"`
	UserID       int        `db:"user_id" json:"user_id"`
	GymID        int        `db:"gym_id" json:"gym_id"`
	VisitTime    time.Time  `db:"visit_time" json:"visit_time"`
	Status       string     `db:"status" json:"status"`
	CheckinToken string     `db:"checkin_token" json:"-"`
	CheckedInAt  *time.Time `db:"checked_in_at" json:"checked_in_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

type ReservationWithDetails struct {
	Reservation
	GymName   string `db:"gym_name" json:"gym_name"`
	UserName  string `db:"user_name" json:"user_name"`
	UserEmail string `db:"user_email" json:"user_email"`
}

// Outcome is the admission decision for a reservation submission.
type Outcome string

const (
	OutcomeConfirmed Outcome = "CONFIRMED"
	OutcomeWaiting   Outcome = "WAITING"
	OutcomeDuplicate Outcome = "DUPLICATE"
)

// SubmitResult is returned by the coordinator. QRData is set only when the
// outcome is CONFIRMED; Reservation is nil for DUPLICATE.
type SubmitResult struct {
	Outcome     Outcome      `json:"status"`
	Reservation *Reservation `json:"reservation,omitempty"`
	QRData      string       `json:"qr_data,omitempty"`
}

type ReserveRequest struct {
	GymID     int    `json:"gym_id" binding:"required"`
	VisitTime string `json:"visit_time" binding:"required"`
}
