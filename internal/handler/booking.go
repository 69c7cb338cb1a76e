package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
	"github.com/JoseLuizMendes/barber-pro/internal/middleware"
	"github.com/JoseLuizMendes/barber-pro/internal/model"
)

// BookingHandler serves customer reservations, slot availability and the
// staff lifecycle endpoints.
type BookingHandler struct {
	Coordinator  *booking.Coordinator
	Availability *booking.AvailabilityService
	Lifecycle    *booking.Lifecycle
}

func NewBookingHandler(c *booking.Coordinator, a *booking.AvailabilityService, l *booking.Lifecycle) *BookingHandler {
	if c == nil || a == nil || l == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Coordinator: c, Availability: a, Lifecycle: l}
}

type reserveBody struct {
	BarbershopID string    `json:"barbershop_id"`
	ServiceID    string    `json:"service_id"`
	EmployeeID   string    `json:"employee_id"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// Reserve handles POST /v1/bookings.  The customer is the token subject.
func (h *BookingHandler) Reserve(c echo.Context) error {
	customerID := middleware.UserID(c)
	if customerID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body reserveBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "invalid request body"})
	}
	b, err := h.Coordinator.Reserve(c.Request().Context(), booking.ReserveRequest{
		CustomerID:   customerID,
		BarbershopID: body.BarbershopID,
		ServiceID:    body.ServiceID,
		EmployeeID:   body.EmployeeID,
		ScheduledAt:  body.ScheduledAt,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, b)
}

// CheckAvailability handles GET /v1/availability?employee_id=&scheduled_at=.
// scheduled_at is RFC 3339.
func (h *BookingHandler) CheckAvailability(c echo.Context) error {
	var at time.Time
	if raw := c.QueryParam("scheduled_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation", "message": "scheduled_at must be RFC 3339"})
		}
		at = t
	}
	a, err := h.Availability.CheckAvailability(c.Request().Context(), c.QueryParam("employee_id"), at)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Get handles GET /v1/barbershops/:shop/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	b, err := h.Lifecycle.Get(c.Request().Context(), c.Param("shop"), c.Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

// Transition returns a handler moving the booking in the path to status.
func (h *BookingHandler) Transition(to model.Status) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := h.Lifecycle.Transition(c.Request().Context(), c.Param("shop"), c.Param("id"), to)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, b)
	}
}
