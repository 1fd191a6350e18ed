package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/elimu/core/account"
	"github.com/trezcool/elimu/core/authz"
)

// roleMiddleware lets through callers holding one of roles. It must run after identityMiddleware.
func roleMiddleware(roles ...account.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := contextIdentity(ctx)
			if err != nil {
				return err
			}
			if err := authz.RequireRole(ident, roles...); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
