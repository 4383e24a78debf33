package controller

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"chirp/controller/json"
	"chirp/controller/jwt"
	"chirp/model"
	"chirp/service"
)

type UserController struct {
	userService   *service.UserService
	followService *service.FollowService
	tracer        trace.Tracer
	validator     *validator.Validate
}

func NewUserController(userService *service.UserService, followService *service.FollowService, tracer trace.Tracer) *UserController {
	return &UserController{
		userService,
		followService,
		tracer,
		validator.New(),
	}
}

func (c *UserController) GetMe(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.GetMe")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	user, appErr := c.userService.GetMe(ctx, authUser)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, user)
}

func (c *UserController) UpdateProfile(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.UpdateProfile")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	updateReq, err := json.DecodeJson[service.UpdateProfileRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(updateReq); vErr != nil {
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	user, appErr := c.userService.UpdateProfile(ctx, authUser, updateReq)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, user)
}

func (c *UserController) GetProfile(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.GetProfile")
	defer span.End()

	username := mux.Vars(req)["username"]

	profile, appErr := c.followService.GetProfile(ctx, username, jwt.ViewerID(ctx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, profile)
}

func (c *UserController) Follow(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.Follow")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	targetID := mux.Vars(req)["id"]

	state, appErr := c.followService.Follow(ctx, authUser, targetID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"state": string(state)})
}

func (c *UserController) Unfollow(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.Unfollow")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	targetID := mux.Vars(req)["id"]

	if appErr := c.followService.Unfollow(ctx, authUser, targetID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "unfollowed"})
}

func (c *UserController) GetFollowRequests(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.GetFollowRequests")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	requests, appErr := c.followService.GetFollowRequests(ctx, authUser)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, requests)
}

func (c *UserController) AcceptFollowRequest(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.AcceptFollowRequest")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	requestID := mux.Vars(req)["id"]

	if appErr := c.followService.AcceptFollowRequest(ctx, authUser, requestID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "request accepted"})
}

func (c *UserController) RejectFollowRequest(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.RejectFollowRequest")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	requestID := mux.Vars(req)["id"]

	if appErr := c.followService.RejectFollowRequest(ctx, authUser, requestID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "request rejected"})
}

func (c *UserController) GetSuggestions(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.GetSuggestions")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	suggestions, appErr := c.followService.GetSuggestions(ctx, authUser)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, suggestions)
}

func (c *UserController) GetFollowers(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.GetFollowers")
	defer span.End()

	userID := mux.Vars(req)["id"]

	users, appErr := c.followService.GetFollowers(ctx, userID, jwt.ViewerID(ctx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, users)
}

func (c *UserController) GetFollowing(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.GetFollowing")
	defer span.End()

	userID := mux.Vars(req)["id"]

	users, appErr := c.followService.GetFollowing(ctx, userID, jwt.ViewerID(ctx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, users)
}

func (c *UserController) SearchUsers(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "UserController.SearchUsers")
	defer span.End()

	query := req.URL.Query().Get("q")
	if query == "" {
		json.EncodeError(w, 400, "missing query")
		return
	}

	page, limit := pageParams(req)

	result, appErr := c.userService.SearchUsers(ctx, query, page, limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, result)
}
