package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/JoseLuizMendes/barber-pro/internal/utils"
)

// RequireRole rejects requests whose role claim is not one of roles.  It
// must run after JWTAuth.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireTenant restricts staff to the barbershop named by the param
// path parameter.  Admins pass through.
func RequireTenant(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if role, _ := c.Get(CtxRole).(string); role == utils.RoleAdmin {
				return next(c)
			}
			shop, _ := c.Get(CtxBarbershopID).(string)
			if shop == "" || shop != c.Param(param) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
