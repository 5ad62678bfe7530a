package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/darasahq/darasa/core/user"
)

// roleMiddleware gates a route behind a minimum role tier; the check runs
// on the token claims before any service call.
func roleMiddleware(min user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if user.Role(claims.Role).Priority() >= min.Priority() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

func superAdminMiddleware() echo.MiddlewareFunc { return roleMiddleware(user.RoleSuperAdmin) }

func adminMiddleware() echo.MiddlewareFunc { return roleMiddleware(user.RoleAdmin) }

func staffMiddleware() echo.MiddlewareFunc { return roleMiddleware(user.RoleTeacher) }
