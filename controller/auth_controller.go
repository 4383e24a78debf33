package controller

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/controller/json"
	"chirp/service"
)

type AuthController struct {
	authService *service.AuthService
	tracer      trace.Tracer
	validator   *validator.Validate
}

func NewAuthController(authService *service.AuthService, tracer trace.Tracer) *AuthController {
	return &AuthController{
		authService,
		tracer,
		validator.New(),
	}
}

func (c *AuthController) Register(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "AuthController.Register")
	defer span.End()

	registerReq, err := json.DecodeJson[service.RegisterRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(registerReq); vErr != nil {
		span.SetStatus(codes.Error, vErr.Error())
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	user, appErr := c.authService.Register(ctx, registerReq)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, user)
}

func (c *AuthController) Verify(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "AuthController.Verify")
	defer span.End()

	token := req.URL.Query().Get("token")
	if token == "" {
		json.EncodeError(w, 400, "missing token")
		return
	}

	if appErr := c.authService.Verify(ctx, token); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "account verified"})
}

type resendRequest struct {
	Username string `json:"username" validate:"required"`
}

func (c *AuthController) ResendVerification(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "AuthController.ResendVerification")
	defer span.End()

	resendReq, err := json.DecodeJson[resendRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(resendReq); vErr != nil {
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	if appErr := c.authService.ResendVerification(ctx, resendReq.Username); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "verification mail sent"})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *AuthController) Login(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "AuthController.Login")
	defer span.End()

	loginReq, err := json.DecodeJson[loginRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(loginReq); vErr != nil {
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	response, appErr := c.authService.Login(ctx, loginReq.Username, loginReq.Password)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, response)
}
