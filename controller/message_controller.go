package controller

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/controller/json"
	"chirp/model"
	"chirp/service"
)

type MessageController struct {
	messageService *service.MessageService
	tracer         trace.Tracer
	validator      *validator.Validate
}

func NewMessageController(messageService *service.MessageService, tracer trace.Tracer) *MessageController {
	return &MessageController{
		messageService,
		tracer,
		validator.New(),
	}
}

func (c *MessageController) SendMessage(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "MessageController.SendMessage")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	recipientID := mux.Vars(req)["id"]

	sendReq, err := json.DecodeJson[service.SendMessageRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(sendReq); vErr != nil {
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	message, appErr := c.messageService.SendMessage(ctx, authUser, recipientID, sendReq)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, message)
}

func (c *MessageController) GetConversations(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "MessageController.GetConversations")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	conversations, appErr := c.messageService.GetConversations(ctx, authUser)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, conversations)
}

func (c *MessageController) GetThread(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "MessageController.GetThread")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	peerID := mux.Vars(req)["id"]
	page, limit := pageParams(req)

	thread, appErr := c.messageService.GetThread(ctx, authUser, peerID, page, limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, thread)
}
