package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core/message"
)

type messageApi struct {
	svc message.Service
}

func registerMessageAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc message.Service) {
	api := messageApi{svc: svc}

	ng := g.Group("/notifications", jwt)
	ng.GET("", api.queryNotifications)
	ng.POST("/:id/read", api.markNotificationRead)

	mg := g.Group("/messages", jwt)
	mg.GET("", api.queryMessages)
	mg.POST("", api.send)
	mg.POST("/:id/read", api.markMessageRead)
}

// Handlers

func (api *messageApi) queryNotifications(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	ntfs, err := api.svc.Notifications(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "querying notifications")
	}
	if ntfs == nil {
		ntfs = []message.Notification{}
	}
	return ctx.JSON(http.StatusOK, ntfs)
}

func (api *messageApi) markNotificationRead(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	ntf, err := api.svc.MarkNotificationRead(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking notification read")
	}
	return ctx.JSON(http.StatusOK, ntf)
}

func (api *messageApi) send(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	var data message.NewMessage
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewMessage")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	msg, err := api.svc.Send(ctx.Request().Context(), ident, data)
	if err != nil {
		return errors.Wrap(err, "sending message")
	}
	return ctx.JSON(http.StatusCreated, msg)
}

func (api *messageApi) queryMessages(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	msgs, err := api.svc.Messages(ctx.Request().Context(), ident)
	if err != nil {
		return errors.Wrap(err, "querying messages")
	}
	if msgs == nil {
		msgs = []message.Message{}
	}
	return ctx.JSON(http.StatusOK, msgs)
}

func (api *messageApi) markMessageRead(ctx echo.Context) error {
	ident, err := getContextIdentity(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context identity")
	}

	msg, err := api.svc.MarkMessageRead(ctx.Request().Context(), ident, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "marking message read")
	}
	return ctx.JSON(http.StatusOK, msg)
}
