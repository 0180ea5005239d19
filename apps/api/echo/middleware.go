package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/access"
)

// adminMiddleware gates the admin-only resources. The role check fails closed:
// a token carrying an unknown role is rejected, never promoted.
func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			ident, err := getContextIdentity(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context identity")
			}
			if err := access.CheckUserScope(ident); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}
