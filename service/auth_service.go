package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"chirp/app_errors"
	"chirp/metrics"
	"chirp/model"
	"chirp/repository"
	"chirp/service/circuit_breaker"
)

type AuthService struct {
	userRepository  repository.UserRepository
	cacheRepository repository.CacheRepository
	mailerBreaker   *circuit_breaker.MailerCircuitBreaker
	tracer          trace.Tracer
	logger          *zap.Logger

	jwtSecret     []byte
	tokenTTL      time.Duration
	publicBaseURL string
}

func NewAuthService(
	userRepository repository.UserRepository,
	cacheRepository repository.CacheRepository,
	mailerBreaker *circuit_breaker.MailerCircuitBreaker,
	tracer trace.Tracer,
	logger *zap.Logger,
	jwtSecret string,
	tokenTTLHours int,
	publicBaseURL string,
) *AuthService {
	if tokenTTLHours <= 0 {
		tokenTTLHours = 24
	}

	return &AuthService{
		userRepository:  userRepository,
		cacheRepository: cacheRepository,
		mailerBreaker:   mailerBreaker,
		tracer:          tracer,
		logger:          logger,
		jwtSecret:       []byte(jwtSecret),
		tokenTTL:        time.Duration(tokenTTLHours) * time.Hour,
		publicBaseURL:   publicBaseURL,
	}
}

type RegisterRequest struct {
	Username  string `json:"username" validate:"required,alphanum,min=3,max=30"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=72"`
	IsPrivate bool   `json:"isPrivate"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	user := model.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		IsPrivate:    req.IsPrivate,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepository.SaveUser(serviceCtx, &user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, app_errors.Conflict("username or email already taken")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	s.sendVerification(serviceCtx, &user)

	user.PasswordHash = ""
	return &user, nil
}

// sendVerification issues an opaque token and asks the mailer for delivery.
// Failures never fail the surrounding mutation; the user can request a
// resend.
func (s *AuthService) sendVerification(ctx context.Context, user *model.User) {
	token := uuid.New().String()

	if err := s.cacheRepository.PostToken(ctx, token, user.ID); err != nil {
		s.logger.Error("storing verification token", zap.Error(err))
		return
	}

	link := fmt.Sprintf("%s/auth/verify?token=%s", s.publicBaseURL, token)
	if err := s.mailerBreaker.SendVerification(ctx, user.Email, link); err != nil {
		metrics.MailSendFailuresTotal.Inc()
		s.logger.Error("sending verification mail",
			zap.String("user", user.Username),
			zap.Error(err),
		)
	}
}

func (s *AuthService) Verify(ctx context.Context, token string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "AuthService.Verify")
	defer span.End()

	userID, err := s.cacheRepository.GetToken(serviceCtx, token)
	if err != nil {
		return app_errors.NotVerified("invalid or expired verification token")
	}

	if err := s.userRepository.MarkVerified(serviceCtx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return app_errors.NotVerified("invalid or expired verification token")
		}
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	_ = s.cacheRepository.DeleteToken(serviceCtx, token)
	return nil
}

func (s *AuthService) ResendVerification(ctx context.Context, username string) *app_errors.AppError {
	serviceCtx, span := s.tracer.Start(ctx, "AuthService.ResendVerification")
	defer span.End()

	user, err := s.userRepository.GetUserByUsername(serviceCtx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return app_errors.NotFound("user not found")
		}
		span.SetStatus(codes.Error, err.Error())
		return app_errors.Internal()
	}

	if user.Verified {
		return app_errors.InvalidOperation("account already verified")
	}

	s.sendVerification(serviceCtx, user)
	return nil
}

type LoginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, *app_errors.AppError) {
	serviceCtx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.userRepository.GetUserByUsername(serviceCtx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, app_errors.Unauthorized("invalid credentials")
		}
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, app_errors.Unauthorized("invalid credentials")
	}

	if !user.Verified {
		return nil, app_errors.NotVerified("account not verified")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.tokenTTL).UnixMilli(),
	})

	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, app_errors.Internal()
	}

	user.PasswordHash = ""
	return &LoginResponse{Token: signed, User: *user}, nil
}
