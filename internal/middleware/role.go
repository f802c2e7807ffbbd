package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// RequireRole admits only requests whose token role is one of roles.  It
// must run after JWTAuth; a missing role is treated like a wrong one.
// Rejections use the unauthorized code of the booking error taxonomy.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxRole).(string)
			if role == "" || !slices.Contains(roles, role) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden", "code": "unauthorized"})
			}
			return next(c)
		}
	}
}
