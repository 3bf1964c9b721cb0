package handler

import (
	"net/http"
	"strconv"

	"github.com/campuslabs/roomreserve/internal/clock"
	"github.com/campuslabs/roomreserve/internal/dto"
	"github.com/campuslabs/roomreserve/internal/service"
	"github.com/campuslabs/roomreserve/internal/timeutil"
	"github.com/labstack/echo/v4"
)

type RoomHandler struct {
	availability service.AvailabilityService
	reservations service.ReservationService
	clk          clock.Clock
}

func NewRoomHandler(availability service.AvailabilityService, reservations service.ReservationService, clk clock.Clock) *RoomHandler {
	return &RoomHandler{availability: availability, reservations: reservations, clk: clk}
}

func (h *RoomHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/rooms", h.ListRooms)
	e.GET("/api/rooms/:id", h.GetRoom)
	e.GET("/api/rooms/:id/reservations", h.RoomReservations)
	e.GET("/api/hotspots", h.Hotspots)
	e.GET("/api/recommendations", h.Recommendations)
}

// queryDateTime takes date/time from query params, defaulting to now.
func (h *RoomHandler) queryDateTime(c echo.Context) (string, string) {
	now := h.clk.Now()
	date := c.QueryParam("date")
	if date == "" {
		date = timeutil.FormatDate(now)
	}
	at := c.QueryParam("time")
	if at == "" {
		at = timeutil.FormatClock(now)
	}
	return date, at
}

func (h *RoomHandler) ListRooms(c echo.Context) error {
	date, at := h.queryDateTime(c)

	statuses, err := h.availability.RoomsWithStatus(c.Request().Context(), date, at)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, h.toStatusResponses(statuses))
}

func (h *RoomHandler) GetRoom(c echo.Context) error {
	date, at := h.queryDateTime(c)

	status, err := h.availability.RoomStatusAt(c.Request().Context(), c.Param("id"), date, at)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, h.toStatusResponse(*status))
}

func (h *RoomHandler) RoomReservations(c echo.Context) error {
	date := c.QueryParam("date")
	if date == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "date parameter is required")
	}

	reservations, err := h.reservations.ListByRoomAndDate(c.Request().Context(), c.Param("id"), date)
	if err != nil {
		return mapServiceError(err)
	}

	now := h.clk.Now()
	resp := make([]dto.ReservationResponse, len(reservations))
	for i := range reservations {
		resp[i] = dto.ToReservationResponse(&reservations[i], now)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RoomHandler) Hotspots(c echo.Context) error {
	date, at := h.queryDateTime(c)

	hotspots, err := h.availability.Hotspots(c.Request().Context(), date, at)
	if err != nil {
		return mapServiceError(err)
	}

	resp := make([]dto.HotspotResponse, len(hotspots))
	for i, hs := range hotspots {
		resp[i] = dto.HotspotResponse{
			Building: hs.Building,
			Floor:    hs.Floor,
			Occupied: hs.Occupied,
			Total:    hs.Total,
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *RoomHandler) Recommendations(c echo.Context) error {
	date, at := h.queryDateTime(c)
	purpose := c.QueryParam("purpose")

	groupSize := 0
	if raw := c.QueryParam("groupSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid groupSize")
		}
		groupSize = n
	}

	statuses, err := h.availability.Recommendations(c.Request().Context(), purpose, groupSize, date, at)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, h.toStatusResponses(statuses))
}

func (h *RoomHandler) toStatusResponses(statuses []service.RoomStatus) []dto.RoomStatusResponse {
	resp := make([]dto.RoomStatusResponse, len(statuses))
	for i, st := range statuses {
		resp[i] = h.toStatusResponse(st)
	}
	return resp
}

func (h *RoomHandler) toStatusResponse(st service.RoomStatus) dto.RoomStatusResponse {
	out := dto.RoomStatusResponse{
		RoomResponse:      dto.ToRoomResponse(&st.Room),
		Occupied:          st.Occupied,
		NextAvailableTime: st.NextAvailableTime,
	}
	if st.Current != nil {
		current := dto.ToReservationResponse(st.Current, h.clk.Now())
		out.CurrentReservation = &current
	}
	return out
}
