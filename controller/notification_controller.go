package controller

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/controller/json"
	"chirp/model"
	"chirp/service"
)

type NotificationController struct {
	notificationService *service.NotificationService
	tracer              trace.Tracer
}

func NewNotificationController(notificationService *service.NotificationService, tracer trace.Tracer) *NotificationController {
	return &NotificationController{
		notificationService,
		tracer,
	}
}

func (c *NotificationController) GetNotifications(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "NotificationController.GetNotifications")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	page, limit := pageParams(req)

	notifications, appErr := c.notificationService.GetNotifications(ctx, authUser, page, limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, notifications)
}

func (c *NotificationController) MarkAllRead(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "NotificationController.MarkAllRead")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	if appErr := c.notificationService.MarkAllRead(ctx, authUser); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "notifications read"})
}
