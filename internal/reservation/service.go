package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"guss/internal/gym"
	"guss/internal/logger"
	"guss/internal/metrics"
	"guss/internal/user"
)

var (
	ErrGymNotFound      = errors.New("gym not found")
	ErrVisitTimeInPast  = errors.New("visit time is in the past")
	ErrInvalidVisitTime = errors.New("visit time must be a 30-minute slot within opening hours")
	ErrNotConfirmed     = errors.New("reservation is not confirmed")
	ErrTokenMismatch    = errors.New("check-in token does not match reservation")
)

// Notifier delivers push notifications for reservation events. Delivery is
// best effort; the coordinator never fails a request over it.
type Notifier interface {
	QueueReservationConfirmed(ctx context.Context, deviceToken, gymName string, visitTime time.Time) error
	QueueReservationCancelled(ctx context.Context, deviceToken, gymName string) error
}

type Service interface {
	Submit(ctx context.Context, userID, gymID int, visitTime time.Time) (*SubmitResult, error)
	Cancel(ctx context.Context, userID, reservationID int) error
	CheckIn(ctx context.Context, qrToken string) (*Reservation, error)
	GetUserReservations(ctx context.Context, userID int) ([]Reservation, error)
	GetReservationsByGym(ctx context.Context, gymID int) ([]ReservationWithDetails, error)
}

type service struct {
	repo     Repository
	gymRepo  gym.Repository
	userRepo user.Repository
	tokens   *TokenIssuer
	notifier Notifier
}

func NewService(repo Repository, gymRepo gym.Repository, userRepo user.Repository, tokens *TokenIssuer, notifier Notifier) Service {
	return &service{
		repo:     repo,
		gymRepo:  gymRepo,
		userRepo: userRepo,
		tokens:   tokens,
		notifier: notifier,
	}
}

// Submit decides the disposition of a reservation request: DUPLICATE if the
// user already holds an active reservation for the gym, CONFIRMED with a QR
// payload if capacity is left, WAITING otherwise.
func (s *service) Submit(ctx context.Context, userID, gymID int, visitTime time.Time) (*SubmitResult, error) {
	g, err := s.gymRepo.GetGymByID(ctx, gymID)
	if err != nil {
		if errors.Is(err, gym.ErrGymNotFound) {
			return nil, ErrGymNotFound
		}
		return nil, fmt.Errorf("gym lookup failed: %w", err)
	}

	if err := validateVisitTime(g, visitTime); err != nil {
		return nil, err
	}

	res, confirmed, err := s.repo.Create(ctx, userID, gymID, visitTime, NewTokenID())
	if err != nil {
		if errors.Is(err, ErrDuplicateActive) {
			metrics.RecordReservation(string(OutcomeDuplicate))
			return &SubmitResult{Outcome: OutcomeDuplicate}, nil
		}
		return nil, err
	}

	if !confirmed {
		metrics.RecordReservation(string(OutcomeWaiting))
		return &SubmitResult{Outcome: OutcomeWaiting, Reservation: res}, nil
	}

	qrData, err := s.tokens.Issue(res.ID, gymID, res.CheckinToken)
	if err != nil {
		// The reservation is committed; surfacing an error here would make
		// the caller retry into a DUPLICATE. Log and return without a QR,
		// the client can re-fetch it.
		logger.Errorf("Failed to sign QR payload for reservation %d: %v", res.ID, err)
	}

	metrics.RecordReservation(string(OutcomeConfirmed))
	s.pushConfirmed(ctx, userID, g.Name, visitTime)

	return &SubmitResult{Outcome: OutcomeConfirmed, Reservation: res, QRData: qrData}, nil
}

func (s *service) Cancel(ctx context.Context, userID, reservationID int) error {
	res, err := s.repo.Cancel(ctx, reservationID, userID)
	if err != nil {
		return err
	}

	metrics.RecordCancellation()

	if g, gerr := s.gymRepo.GetGymByID(ctx, res.GymID); gerr == nil {
		s.pushCancelled(ctx, userID, g.Name)
	}

	return nil
}

// CheckIn redeems a scanned QR payload. The signature alone proves the
// reservation was confirmed; the stored token and status guard against
// cancelled reservations and re-scans.
func (s *service) CheckIn(ctx context.Context, qrToken string) (*Reservation, error) {
	claims, err := s.tokens.Parse(qrToken)
	if err != nil {
		metrics.RecordCheckIn("invalid")
		return nil, err
	}

	res, err := s.repo.GetByID(ctx, claims.ReservationID)
	if err != nil {
		metrics.RecordCheckIn("not_found")
		return nil, err
	}

	if res.CheckinToken != claims.ID || res.GymID != claims.GymID {
		metrics.RecordCheckIn("mismatch")
		return nil, ErrTokenMismatch
	}

	if res.Status != StatusConfirmed {
		metrics.RecordCheckIn("not_confirmed")
		return nil, ErrNotConfirmed
	}

	if err := s.repo.MarkCheckedIn(ctx, res.ID); err != nil {
		if errors.Is(err, ErrAlreadyCheckedIn) {
			metrics.RecordCheckIn("rescan")
		}
		return nil, err
	}

	metrics.RecordCheckIn("ok")
	logger.Info("Check-in", "reservation_id", res.ID, "gym_id", res.GymID, "user_id", res.UserID)

	return res, nil
}

func (s *service) GetUserReservations(ctx context.Context, userID int) ([]Reservation, error) {
	return s.repo.GetUserReservations(ctx, userID)
}

func (s *service) GetReservationsByGym(ctx context.Context, gymID int) ([]ReservationWithDetails, error) {
	return s.repo.GetReservationsByGym(ctx, gymID)
}

func (s *service) pushConfirmed(ctx context.Context, userID int, gymName string, visitTime time.Time) {
	if s.notifier == nil {
		return
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || u.DeviceToken == "" {
		return
	}

	if err := s.notifier.QueueReservationConfirmed(ctx, u.DeviceToken, gymName, visitTime); err != nil {
		logger.Errorf("Failed to queue confirmation push for user %d: %v", userID, err)
	}
}

func (s *service) pushCancelled(ctx context.Context, userID int, gymName string) {
	if s.notifier == nil {
		return
	}

	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil || u.DeviceToken == "" {
		return
	}

	if err := s.notifier.QueueReservationCancelled(ctx, u.DeviceToken, gymName); err != nil {
		logger.Errorf("Failed to queue cancellation push for user %d: %v", userID, err)
	}
}

// validateVisitTime re-checks what the client UI promises: a 30-minute
// aligned slot, not in the past, inside the gym's opening window for that
// day. Client-supplied slot validity is never trusted.
func validateVisitTime(g *gym.Gym, visitTime time.Time) error {
	if visitTime.Minute()%30 != 0 || visitTime.Second() != 0 || visitTime.Nanosecond() != 0 {
		return ErrInvalidVisitTime
	}

	if visitTime.Before(time.Now()) {
		return ErrVisitTimeInPast
	}

	open, err := withClock(visitTime, g.OpenTime)
	if err != nil {
		return fmt.Errorf("gym %d has malformed open_time %q: %w", g.ID, g.OpenTime, err)
	}

	closeAt, err := withClock(visitTime, g.CloseTime)
	if err != nil {
		return fmt.Errorf("gym %d has malformed close_time %q: %w", g.ID, g.CloseTime, err)
	}

	if visitTime.Before(open) || !visitTime.Before(closeAt) {
		return ErrInvalidVisitTime
	}

	return nil
}

// withClock places an "HH:MM" clock value on the date of t.
func withClock(t time.Time, clock string) (time.Time, error) {
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}

	return time.Date(t.Year(), t.Month(), t.Day(), parsed.Hour(), parsed.Minute(), 0, 0, t.Location()), nil
}
