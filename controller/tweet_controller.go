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
	"chirp/repository"
	"chirp/service"
)

type TweetController struct {
	tweetService *service.TweetService
	tracer       trace.Tracer
	validator    *validator.Validate
}

func NewTweetController(tweetService *service.TweetService, tracer trace.Tracer) *TweetController {
	return &TweetController{
		tweetService,
		tracer,
		validator.New(),
	}
}

func (c *TweetController) CreateTweet(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.CreateTweet")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)

	createReq, err := json.DecodeJson[service.CreateTweetRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(createReq); vErr != nil {
		span.SetStatus(codes.Error, vErr.Error())
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	newTweet, appErr := c.tweetService.CreateTweet(ctx, authUser, createReq)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, newTweet)
}

func (c *TweetController) Retweet(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.Retweet")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	tweetID := mux.Vars(req)["id"]

	retweet, appErr := c.tweetService.Retweet(ctx, authUser, tweetID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, retweet)
}

func (c *TweetController) DeleteTweet(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.DeleteTweet")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	tweetID := mux.Vars(req)["id"]

	if appErr := c.tweetService.DeleteTweet(ctx, authUser, tweetID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "tweet deleted"})
}

// GetFeed serves GET /tweets?page&limit&mode=all|following.
func (c *TweetController) GetFeed(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.GetFeed")
	defer span.End()

	page, limit := pageParams(req)

	mode := repository.FeedModeAll
	if req.URL.Query().Get("mode") == string(repository.FeedModeFollowing) {
		mode = repository.FeedModeFollowing
	}

	feed, appErr := c.tweetService.GetFeed(ctx, jwt.ViewerID(ctx), mode, page, limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, feed)
}

func (c *TweetController) GetTweet(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.GetTweet")
	defer span.End()

	tweetID := mux.Vars(req)["id"]

	tweet, appErr := c.tweetService.GetTweet(ctx, tweetID, jwt.ViewerID(ctx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, tweet)
}

func (c *TweetController) GetProfileTweets(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.GetProfileTweets")
	defer span.End()

	username := mux.Vars(req)["username"]
	page, limit := pageParams(req)

	tweets, appErr := c.tweetService.GetProfileTweets(ctx, username, jwt.ViewerID(ctx), page, limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, tweets)
}

func (c *TweetController) CreateLike(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.CreateLike")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	tweetID := mux.Vars(req)["id"]

	newLike, appErr := c.tweetService.CreateLike(ctx, authUser, tweetID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, newLike)
}

func (c *TweetController) DeleteLike(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.DeleteLike")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	tweetID := mux.Vars(req)["id"]

	if appErr := c.tweetService.DeleteLike(ctx, authUser, tweetID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "like removed"})
}

func (c *TweetController) GetLikesByTweet(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.GetLikesByTweet")
	defer span.End()

	tweetID := mux.Vars(req)["id"]

	likes, appErr := c.tweetService.GetLikesByTweet(ctx, tweetID, jwt.ViewerID(ctx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, likes)
}

func (c *TweetController) CreateComment(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.CreateComment")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	tweetID := mux.Vars(req)["id"]

	commentReq, err := json.DecodeJson[service.CreateCommentRequest](req.Body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		json.EncodeErrorWithCause(w, 500, "could not read request", err)
		return
	}

	if vErr := c.validator.Struct(commentReq); vErr != nil {
		json.EncodeError(w, 400, vErr.Error())
		return
	}

	comment, appErr := c.tweetService.CreateComment(ctx, authUser, tweetID, commentReq)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, comment)
}

func (c *TweetController) GetComments(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.GetComments")
	defer span.End()

	tweetID := mux.Vars(req)["id"]

	comments, appErr := c.tweetService.GetComments(ctx, tweetID, jwt.ViewerID(ctx))
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, comments)
}

func (c *TweetController) DeleteComment(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.DeleteComment")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	commentID := mux.Vars(req)["id"]

	if appErr := c.tweetService.DeleteComment(ctx, authUser, commentID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "comment deleted"})
}

func (c *TweetController) LikeComment(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.LikeComment")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	commentID := mux.Vars(req)["id"]

	like, appErr := c.tweetService.LikeComment(ctx, authUser, commentID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, like)
}

func (c *TweetController) UnlikeComment(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.UnlikeComment")
	defer span.End()

	authUser := ctx.Value("authUser").(model.AuthUser)
	commentID := mux.Vars(req)["id"]

	if appErr := c.tweetService.UnlikeComment(ctx, authUser, commentID); appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"message": "like removed"})
}

func (c *TweetController) SearchTweets(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.SearchTweets")
	defer span.End()

	query := req.URL.Query().Get("q")
	if query == "" {
		json.EncodeError(w, 400, "missing query")
		return
	}

	page, limit := pageParams(req)

	result, appErr := c.tweetService.SearchTweets(ctx, query, jwt.ViewerID(ctx), page, limit)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, result)
}

func (c *TweetController) SaveImage(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.SaveImage")
	defer span.End()

	imageID, appErr := c.tweetService.SaveImage(ctx, req)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	json.EncodeJson(w, map[string]string{"id": imageID})
}

func (c *TweetController) GetImage(w http.ResponseWriter, req *http.Request) {
	ctx, span := c.tracer.Start(req.Context(), "TweetController.GetImage")
	defer span.End()

	imageID := mux.Vars(req)["id"]

	data, appErr := c.tweetService.GetImage(ctx, imageID)
	if appErr != nil {
		span.SetStatus(codes.Error, appErr.Error())
		json.EncodeError(w, appErr.Code, appErr.Message)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}
