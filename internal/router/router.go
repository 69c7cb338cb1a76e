// Package router registers HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/JoseLuizMendes/barber-pro/internal/handler"
	"github.com/JoseLuizMendes/barber-pro/internal/middleware"
	"github.com/JoseLuizMendes/barber-pro/internal/model"
	"github.com/JoseLuizMendes/barber-pro/internal/utils"
)

// Deps collects what the routes need.  RateLimit may be nil.
type Deps struct {
	JWTSecret string
	DB        handler.Pinger
	Bookings  *handler.BookingHandler
	Ops       *handler.OpsHandler
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health(d.DB))

	v1 := e.Group("/v1")
	v1.GET("/availability", d.Bookings.CheckAvailability)

	auth := middleware.JWTAuth(d.JWTSecret)

	customer := []echo.MiddlewareFunc{auth, middleware.RequireRole(utils.RoleCustomer)}
	if d.RateLimit != nil {
		customer = append(customer, d.RateLimit)
	}
	v1.POST("/bookings", d.Bookings.Reserve, customer...)

	staff := v1.Group("/barbershops/:shop/bookings", auth,
		middleware.RequireRole(utils.RoleStaff, utils.RoleAdmin),
		middleware.RequireTenant("shop"))
	staff.GET("/:id", d.Bookings.Get)
	staff.POST("/:id/confirm", d.Bookings.Transition(model.StatusConfirmed))
	staff.POST("/:id/start", d.Bookings.Transition(model.StatusInProgress))
	staff.POST("/:id/complete", d.Bookings.Transition(model.StatusCompleted))
	staff.POST("/:id/cancel", d.Bookings.Transition(model.StatusCancelled))

	ops := v1.Group("/ops", auth, middleware.RequireRole(utils.RoleAdmin))
	ops.POST("/sweep", d.Ops.Sweep)
	ops.GET("/conflicts", d.Ops.Conflicts)
}
