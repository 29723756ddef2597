package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrDuplicateActive     = errors.New("user already has an active reservation for this gym")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyCancelled    = errors.New("reservation already cancelled")
	ErrAlreadyCheckedIn    = errors.New("reservation already checked in")
)

const pqUniqueViolation = "23505"

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// Create inserts the reservation as WAITING, then tries to claim one unit of
// gym capacity; a successful claim upgrades the row to CONFIRMED and stores
// the check-in token. Everything happens in one transaction, so concurrent
// submissions for the same (user, gym) are serialized by the partial unique
// index and a failure never leaves a half-committed record.
func (r *repository) Create(ctx context.Context, userID, gymID int, visitTime time.Time, checkinToken string) (*Reservation, bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	insertQuery := `
		INSERT INTO reservations (user_id, gym_id, visit_time, status)
		VALUES ($1, $2, $3, 'WAITING')
		RETURNING id, user_id, gym_id, visit_time, status, checkin_token, checked_in_at, created_at
	`

	var res Reservation
	if err := tx.GetContext(ctx, &res, insertQuery, userID, gymID, visitTime); err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrDuplicateActive
		}
		return nil, false, err
	}

	claimQuery := `
		UPDATE gyms
		SET user_count = user_count + 1
		WHERE id = $1 AND user_count < size
	`

	result, err := tx.ExecContext(ctx, claimQuery, gymID)
	if err != nil {
		return nil, false, err
	}

	claimed, err := result.RowsAffected()
	if err != nil {
		return nil, false, err
	}

	confirmed := claimed == 1
	if confirmed {
		confirmQuery := `
			UPDATE reservations
			SET status = 'CONFIRMED', checkin_token = $1
			WHERE id = $2
			RETURNING id, user_id, gym_id, visit_time, status, checkin_token, checked_in_at, created_at
		`

		if err := tx.GetContext(ctx, &res, confirmQuery, checkinToken, res.ID); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	return &res, confirmed, nil
}

func (r *repository) GetByID(ctx context.Context, id int) (*Reservation, error) {
	query := `
		SELECT id, user_id, gym_id, visit_time, status, checkin_token, checked_in_at, created_at
		FROM reservations
		WHERE id = $1
	`

	var res Reservation
	err := r.db.GetContext(ctx, &res, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	return &res, nil
}

// Cancel locks the row, transitions it to CANCELLED and, if it held a
// confirmed spot, releases one unit of gym capacity. The counter is floored
// at zero because admins may also reset it out of band.
func (r *repository) Cancel(ctx context.Context, id, userID int) (*Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	selectQuery := `
		SELECT id, user_id, gym_id, visit_time, status, checkin_token, checked_in_at, created_at
		FROM reservations
		WHERE id = $1 AND user_id = $2
		FOR UPDATE
	`

	var res Reservation
	if err := tx.GetContext(ctx, &res, selectQuery, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	if res.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}

	updateQuery := `
		UPDATE reservations
		SET status = 'CANCELLED'
		WHERE id = $1
	`

	if _, err := tx.ExecContext(ctx, updateQuery, res.ID); err != nil {
		return nil, err
	}

	if res.Status == StatusConfirmed {
		releaseQuery := `
			UPDATE gyms
			SET user_count = GREATEST(user_count - 1, 0)
			WHERE id = $1
		`

		if _, err := tx.ExecContext(ctx, releaseQuery, res.GymID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	res.Status = StatusCancelled

	return &res, nil
}

func (r *repository) GetUserReservations(ctx context.Context, userID int) ([]Reservation, error) {
	query := `
		SELECT id, user_id, gym_id, visit_time, status, checkin_token, checked_in_at, created_at
		FROM reservations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var reservations []Reservation
	err := r.db.SelectContext(ctx, &reservations, query, userID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) GetReservationsByGym(ctx context.Context, gymID int) ([]ReservationWithDetails, error) {
	query := `
		SELECT
			r.id,
			r.user_id,
			r.gym_id,
			r.visit_time,
			r.status,
			r.checkin_token,
			r.checked_in_at,
			r.created_at,
			g.name AS gym_name,
			u.name AS user_name,
			u.email AS user_email
		FROM reservations r
		JOIN gyms g ON r.gym_id = g.id
		JOIN users u ON r.user_id = u.id
		WHERE r.gym_id = $1
		ORDER BY r.created_at DESC
	`

	var reservations []ReservationWithDetails
	err := r.db.SelectContext(ctx, &reservations, query, gymID)
	if err != nil {
		return nil, err
	}

	return reservations, nil
}

func (r *repository) MarkCheckedIn(ctx context.Context, id int) error {
	query := `
		UPDATE reservations
		SET checked_in_at = NOW()
		WHERE id = $1 AND checked_in_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrAlreadyCheckedIn
	}

	return nil
}
