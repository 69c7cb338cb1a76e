package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JoseLuizMendes/barber-pro/internal/booking"
)

// OpsHandler exposes maintenance operations to admins.
type OpsHandler struct {
	Runner  *booking.SweepRunner
	Auditor *booking.Auditor
}

func NewOpsHandler(r *booking.SweepRunner, a *booking.Auditor) *OpsHandler {
	if r == nil || a == nil {
		panic("nil dependency passed to NewOpsHandler")
	}
	return &OpsHandler{Runner: r, Auditor: a}
}

// Sweep handles POST /v1/ops/sweep.  It answers 409 when a sweep is
// already running.
func (h *OpsHandler) Sweep(c echo.Context) error {
	n, ran, err := h.Runner.Trigger(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	if !ran {
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict", "message": "sweep already running"})
	}
	return c.JSON(http.StatusOK, echo.Map{"completed": n})
}

// Conflicts handles GET /v1/ops/conflicts.
func (h *OpsHandler) Conflicts(c echo.Context) error {
	groups, err := h.Auditor.FindConflicts(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"conflicts": groups})
}
