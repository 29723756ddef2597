package gym

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateGym(ctx context.Context, name, address, phone, openTime, closeTime string, size int) (*Gym, error) {
	query := `
		INSERT INTO gyms (name, address, phone, status, size, user_count, open_time, close_time)
		VALUES ($1, $2, $3, 'open', $4, 0, $5, $6)
		RETURNING id, name, address, phone, status, size, user_count, open_time, close_time, created_at
	`

	var gym Gym
	err := r.db.GetContext(ctx, &gym, query, name, address, phone, size, openTime, closeTime)
	if err != nil {
		return nil, err
	}

	return &gym, nil
}

func (r *repository) GetAllGyms(ctx context.Context) ([]Gym, error) {
	query := `
		SELECT id, name, address, phone, status, size, user_count, open_time, close_time, created_at
		FROM gyms
		ORDER BY created_at DESC
	`

	var gyms []Gym
	err := r.db.SelectContext(ctx, &gyms, query)
	if err != nil {
		return nil, err
	}

	return gyms, nil
}

func (r *repository) GetGymByID(ctx context.Context, id int) (*Gym, error) {
	query := `
		SELECT id, name, address, phone, status, size, user_count, open_time, close_time, created_at
		FROM gyms
		WHERE id = $1
	`

	var gym Gym
	err := r.db.GetContext(ctx, &gym, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGymNotFound
		}
		return nil, err
	}

	return &gym, nil
}
