package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/JoseLuizMendes/barber-pro/internal/utils"
)

// Context keys set by JWTAuth.
const (
	CtxUserID       = "user_id"
	CtxRole         = "role"
	CtxBarbershopID = "barbershop_id"
)

// JWTAuth validates a Bearer access token and stores its subject, role and
// barbershop claims in the echo context.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := utils.ParseAccessToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxBarbershopID, claims.BarbershopID)
			return next(c)
		}
	}
}

// UserID returns the authenticated subject, or "" when none is set.
func UserID(c echo.Context) string {
	s, _ := c.Get(CtxUserID).(string)
	return s
}
