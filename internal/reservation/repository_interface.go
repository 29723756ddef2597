package reservation

import (
	"context"
	"time"
)

type Repository interface {
	// Create runs the admission decision atomically: insert the reservation,
	// claim gym capacity if any is left, and upgrade the row to CONFIRMED
	// with the given check-in token. The returned bool reports whether
	// capacity was claimed. A second active reservation for the same
	// (user, gym) yields ErrDuplicateActive and writes nothing.
	Create(ctx context.Context, userID, gymID int, visitTime time.Time, checkinToken string) (*Reservation, bool, error)

	GetByID(ctx context.Context, id int) (*Reservation, error)

	// Cancel transitions an active reservation owned by userID to CANCELLED
	// and releases gym capacity if it was CONFIRMED.
	Cancel(ctx context.Context, id, userID int) (*Reservation, error)

	GetUserReservations(ctx context.Context, userID int) ([]Reservation, error)
	GetReservationsByGym(ctx context.Context, gymID int) ([]ReservationWithDetails, error)

	// MarkCheckedIn stamps checked_in_at exactly once.
	MarkCheckedIn(ctx context.Context, id int) error
}
