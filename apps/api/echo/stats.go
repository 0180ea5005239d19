package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/stats"
)

type statsApi struct {
	svc stats.Service
}

func registerStatsAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc stats.Service) {
	api := statsApi{svc: svc}

	g.GET("/dashboard/stats", api.report, jwt)
}

// report returns the caller's role-appropriate dashboard counts.
func (api *statsApi) report(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	report, err := api.svc.Report(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "reporting stats")
	}
	return ctx.JSON(http.StatusOK, report)
}
