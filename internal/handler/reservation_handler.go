package handler

import (
	"errors"
	"net/http"

	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/dto"
	"github.com/campuslabs/roomreserve/internal/middleware"
	"github.com/campuslabs/roomreserve/internal/service"
	"github.com/labstack/echo/v4"
)

type ReservationHandler struct {
	svc service.ReservationService
	clk clock.Clock
}

func NewReservationHandler(svc service.ReservationService, clk clock.Clock) *ReservationHandler {
	return &ReservationHandler{svc: svc, clk: clk}
}

func (h *ReservationHandler) RegisterRoutes(e *echo.Echo) {
	r := e.Group("/api/reservations", middleware.RequireAuth)
	r.POST("", h.CreateReservation)
	r.GET("/my", h.MyReservations)
	r.POST("/:id/checkin", h.CheckIn)
	r.DELETE("/:id", h.CancelReservation)

	admin := e.Group("/api/admin/reservations", middleware.RequireAdmin)
	admin.GET("", h.ListAllReservations)
	admin.DELETE("/:id", h.DeleteReservation)
	admin.POST("/:id/resend", h.ResendNotifications)
}

func (h *ReservationHandler) CreateReservation(c echo.Context) error {
	sess, _ := middleware.CurrentSession(c)

	var req dto.CreateReservationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	reservation, err := h.svc.Create(c.Request().Context(), sess.UserID, req)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusCreated, dto.ToReservationResponse(reservation, h.clk.Now()))
}

func (h *ReservationHandler) MyReservations(c echo.Context) error {
	sess, _ := middleware.CurrentSession(c)

	reservations, err := h.svc.ListByUser(c.Request().Context(), sess.UserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	now := h.clk.Now()
	resp := make([]dto.ReservationResponse, len(reservations))
	for i := range reservations {
		resp[i] = dto.ToReservationResponse(&reservations[i], now)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ReservationHandler) CheckIn(c echo.Context) error {
	sess, _ := middleware.CurrentSession(c)

	reservation, err := h.svc.CheckIn(c.Request().Context(), c.Param("id"), sess.UserID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, dto.ToReservationResponse(reservation, h.clk.Now()))
}

func (h *ReservationHandler) CancelReservation(c echo.Context) error {
	sess, _ := middleware.CurrentSession(c)

	if err := h.svc.Cancel(c.Request().Context(), c.Param("id"), sess.UserID); err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "Reservation cancelled successfully"})
}

func (h *ReservationHandler) ListAllReservations(c echo.Context) error {
	reservations, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	now := h.clk.Now()
	resp := make([]dto.ReservationResponse, len(reservations))
	for i := range reservations {
		resp[i] = dto.ToReservationResponse(&reservations[i], now)
	}
	return c.JSON(http.StatusOK, resp)
}

// DeleteReservation hard-removes the row. Cancellation is the normal path;
// this is the admin escape hatch.
func (h *ReservationHandler) DeleteReservation(c echo.Context) error {
	if err := h.svc.HardDelete(c.Request().Context(), c.Param("id")); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Reservation deleted"})
}

func (h *ReservationHandler) ResendNotifications(c echo.Context) error {
	if err := h.svc.Resend(c.Request().Context(), c.Param("id")); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Emails re-sent and reminder scheduled"})
}

func mapServiceError(err error) error {
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrLeadTime),
		errors.Is(err, service.ErrDailyLimit),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrCheckInNotOpen),
		errors.Is(err, service.ErrDeadlinePassed):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrSlotConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrReservationNotFound),
		errors.Is(err, service.ErrRoomNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
