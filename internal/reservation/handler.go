package reservation

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"guss/internal/api"
	"guss/internal/auth"
	"guss/internal/gym"
	"guss/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

type Handler struct {
	service Service
}

func NewHandler(db *sqlx.DB, qrSecret string, notifier Notifier) *Handler {
	return &Handler{
		service: NewService(
			NewRepository(db),
			gym.NewRepository(db),
			user.NewRepository(db),
			NewTokenIssuer(qrSecret),
			notifier,
		),
	}
}

// Reserve godoc
// @Summary      Submit reservation
// @Description  Requests a visit slot at a gym. Returns CONFIRMED with a QR payload, WAITING when the gym is full, or DUPLICATE when the caller already holds an active reservation there.
// @Tags         reservations
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request  body      ReserveRequest  true  "Reservation request"
// @Success      200      {object}  SubmitResult
// @Success      201      {object}  SubmitResult
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Failure      500      {object}  api.ErrorResponse
// @Router       /api/reserve [post]
func (h *Handler) Reserve(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	var req ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		return
	}

	visitTime, err := time.Parse(time.RFC3339, req.VisitTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "invalid visit_time format, use RFC3339"})
		return
	}

	result, err := h.service.Submit(c.Request.Context(), userID, req.GymID, visitTime)
	if err != nil {
		switch {
		case errors.Is(err, ErrGymNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Gym not found"})
		case errors.Is(err, ErrInvalidVisitTime), errors.Is(err, ErrVisitTimeInPast):
			c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to create reservation"})
		}
		return
	}

	// WAITING and DUPLICATE are decisions, not errors; only a confirmed
	// reservation creates a new check-in credential.
	if result.Outcome == OutcomeConfirmed {
		c.JSON(http.StatusCreated, result)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelReservation godoc
// @Summary      Cancel reservation
// @Description  Cancels an active reservation of the current user and releases its confirmed spot.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        reservationID  path      int  true  "Reservation ID"
// @Success      200            {object}  api.MessageResponse
// @Failure      400            {object}  api.ErrorResponse
// @Failure      404            {object}  api.ErrorResponse
// @Failure      409            {object}  api.ErrorResponse
// @Failure      500            {object}  api.ErrorResponse
// @Router       /api/reservations/{reservationID} [delete]
func (h *Handler) CancelReservation(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	reservationID, err := strconv.Atoi(c.Param("reservationID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid reservation ID"})
		return
	}

	if err := h.service.Cancel(c.Request.Context(), userID, reservationID); err != nil {
		switch {
		case errors.Is(err, ErrReservationNotFound):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Reservation not found"})
		case errors.Is(err, ErrAlreadyCancelled):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Reservation already cancelled"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to cancel reservation"})
		}
		return
	}

	c.JSON(http.StatusOK, api.MessageResponse{Message: "Reservation cancelled successfully"})
}

// ListMyReservations godoc
// @Summary      List my reservations
// @Description  Returns reservations of the authenticated user, newest first.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Success      200  {array}   Reservation
// @Failure      500  {object}  api.ErrorResponse
// @Router       /reservations [get]
func (h *Handler) ListMyReservations(c *gin.Context) {
	userID, exists := auth.GetUserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "User not authenticated"})
		return
	}

	reservations, err := h.service.GetUserReservations(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// ListReservationsByGym godoc
// @Summary      List reservations by gym
// @Description  Returns all reservations for a gym with user details. Admin only.
// @Tags         reservations
// @Security     BearerAuth
// @Produce      json
// @Param        gymID  path      int  true  "Gym ID"
// @Success      200    {array}   ReservationWithDetails
// @Failure      400    {object}  api.ErrorResponse
// @Failure      500    {object}  api.ErrorResponse
// @Router       /admin/gyms/{gymID}/reservations [get]
func (h *Handler) ListReservationsByGym(c *gin.Context) {
	gymID, err := strconv.Atoi(c.Param("gymID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "Invalid gym ID"})
		return
	}

	reservations, err := h.service.GetReservationsByGym(c.Request.Context(), gymID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to fetch reservations"})
		return
	}

	c.JSON(http.StatusOK, reservations)
}

// CheckIn godoc
// @Summary      Redeem check-in QR
// @Description  Called by the entry scanner with the signed QR token. Marks the reservation attended; re-scans are rejected.
// @Tags         reservations
// @Produce      json
// @Param        token  query     string  true  "Signed QR token"
// @Success      200    {object}  gin.H
// @Failure      400    {object}  api.ErrorResponse
// @Failure      401    {object}  api.ErrorResponse
// @Failure      404    {object}  api.ErrorResponse
// @Failure      409    {object}  api.ErrorResponse
// @Router       /api/checkin [get]
func (h *Handler) CheckIn(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{Error: "token parameter required"})
		return
	}

	res, err := h.service.CheckIn(c.Request.Context(), token)
	if err != nil {
		switch {
		case errors.Is(err, ErrQRTokenInvalid):
			c.JSON(http.StatusUnauthorized, api.ErrorResponse{Error: "Invalid or expired QR token"})
		case errors.Is(err, ErrReservationNotFound), errors.Is(err, ErrTokenMismatch):
			c.JSON(http.StatusNotFound, api.ErrorResponse{Error: "Reservation not found"})
		case errors.Is(err, ErrNotConfirmed):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Reservation is not confirmed"})
		case errors.Is(err, ErrAlreadyCheckedIn):
			c.JSON(http.StatusConflict, api.ErrorResponse{Error: "Reservation already checked in"})
		default:
			c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Check-in failed"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Check-in successful",
		"reservation_id": res.ID,
		"gym_id":         res.GymID,
	})
}
