package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"chirp/config"
	"chirp/controller"
	"chirp/controller/jwt"
	"chirp/controller/middleware"
	"chirp/mailer"
	"chirp/realtime"
	"chirp/repository/redis"
	"chirp/repository/sqlite"
	"chirp/service"
	"chirp/service/circuit_breaker"
	"chirp/tls"
	"chirp/tracing"
)

func main() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	exp, tracingErr := tracing.NewExporter(cfg.Tracing.JaegerEndpoint)
	if tracingErr != nil {
		logger.Fatal("failed to initialize exporter", zap.Error(tracingErr))
	}
	// Create a new tracer provider with a batch span processor and the given exporter.
	tp := tracing.NewTraceProvider(exp)
	// Handle shutdown properly so nothing leaks.
	defer func() { _ = tp.Shutdown(ctx) }()
	otel.SetTracerProvider(tp)
	// Finally, set the tracer that can be used for this package.
	tracer := tp.Tracer("chirp")
	otel.SetTextMapPropagator(propagation.TraceContext{})

	store, err := sqlite.Open(cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer func() { _ = store.Close() }()

	userRepository := sqlite.NewSQLiteUserRepository(store, tracer)
	tweetRepository := sqlite.NewSQLiteTweetRepository(store, tracer)
	followRepository := sqlite.NewSQLiteFollowRepository(store, tracer)
	messageRepository := sqlite.NewSQLiteMessageRepository(store, tracer)
	notificationRepository := sqlite.NewSQLiteNotificationRepository(store, tracer)
	cacheRepository := redis.NewRedisCacheRepository(cfg.Redis.Addr, tracer)

	nc, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		logger.Fatal("failed to connect to nats", zap.Error(err))
	}
	defer nc.Close()

	broker := realtime.NewNATSBroker(nc, tracer)

	var mail mailer.Mailer
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	} else {
		mail = mailer.NewLogMailer(logger)
	}
	mailerBreaker := circuit_breaker.NewMailerCircuitBreaker(mail, tracer, logger)

	authService := service.NewAuthService(
		userRepository, cacheRepository, mailerBreaker, tracer, logger,
		cfg.JWT.Secret, cfg.JWT.TokenTTLHours, cfg.HTTP.PublicBaseURL,
	)
	userService := service.NewUserService(userRepository, tracer)
	tweetService := service.NewTweetService(
		tweetRepository, userRepository, followRepository,
		notificationRepository, cacheRepository, broker, tracer, logger,
	)
	followService := service.NewFollowService(
		followRepository, userRepository, notificationRepository, broker, tracer, logger,
	)
	messageService := service.NewMessageService(
		messageRepository, userRepository, notificationRepository, broker, tracer, logger,
	)
	notificationService := service.NewNotificationService(notificationRepository, tracer)

	authController := controller.NewAuthController(authService, tracer)
	userController := controller.NewUserController(userService, followService, tracer)
	tweetController := controller.NewTweetController(tweetService, tracer)
	messageController := controller.NewMessageController(messageService, tracer)
	notificationController := controller.NewNotificationController(notificationService, tracer)
	eventsController := controller.NewEventsController(broker, logger, tracer)

	rateLimiter := middleware.NewRateLimiter(50, 100)

	router := mux.NewRouter()
	router.StrictSlash(true)
	router.Use(
		tracing.ExtractTraceInfoMiddleware,
		rateLimiter.Middleware,
		middleware.MetricsMiddleware,
		jwt.ExtractJWTUserMiddleware(cfg.JWT.Secret, tracer),
	)

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	router.HandleFunc("/auth/register", authController.Register).Methods("POST")
	router.HandleFunc("/auth/verify", authController.Verify).Methods("GET")
	router.HandleFunc("/auth/resend", authController.ResendVerification).Methods("POST")
	router.HandleFunc("/auth/login", authController.Login).Methods("POST")

	router.HandleFunc("/tweets/", jwt.RequireAuth(tweetController.CreateTweet)).Methods("POST")
	router.HandleFunc("/tweets/feed", tweetController.GetFeed).Methods("GET")
	router.HandleFunc("/tweets/search", tweetController.SearchTweets).Methods("GET")
	router.HandleFunc("/tweets/image", jwt.RequireAuth(tweetController.SaveImage)).Methods("POST")
	router.HandleFunc("/tweets/image/{id}", tweetController.GetImage).Methods("GET")
	router.HandleFunc("/tweets/profile/{username}", tweetController.GetProfileTweets).Methods("GET")
	router.HandleFunc("/tweets/{id}", tweetController.GetTweet).Methods("GET")
	router.HandleFunc("/tweets/{id}", jwt.RequireAuth(tweetController.DeleteTweet)).Methods("DELETE")
	router.HandleFunc("/tweets/{id}/retweet", jwt.RequireAuth(tweetController.Retweet)).Methods("POST")
	router.HandleFunc("/tweets/{id}/like", jwt.RequireAuth(tweetController.CreateLike)).Methods("PUT")
	router.HandleFunc("/tweets/{id}/unlike", jwt.RequireAuth(tweetController.DeleteLike)).Methods("PUT")
	router.HandleFunc("/tweets/{id}/likes", tweetController.GetLikesByTweet).Methods("GET")
	router.HandleFunc("/tweets/{id}/comments", jwt.RequireAuth(tweetController.CreateComment)).Methods("POST")
	router.HandleFunc("/tweets/{id}/comments", tweetController.GetComments).Methods("GET")

	router.HandleFunc("/comments/{id}", jwt.RequireAuth(tweetController.DeleteComment)).Methods("DELETE")
	router.HandleFunc("/comments/{id}/like", jwt.RequireAuth(tweetController.LikeComment)).Methods("PUT")
	router.HandleFunc("/comments/{id}/unlike", jwt.RequireAuth(tweetController.UnlikeComment)).Methods("PUT")

	router.HandleFunc("/users/me", jwt.RequireAuth(userController.GetMe)).Methods("GET")
	router.HandleFunc("/users/me", jwt.RequireAuth(userController.UpdateProfile)).Methods("PUT")
	router.HandleFunc("/users/search", userController.SearchUsers).Methods("GET")
	router.HandleFunc("/users/suggestions", jwt.RequireAuth(userController.GetSuggestions)).Methods("GET")
	router.HandleFunc("/users/requests", jwt.RequireAuth(userController.GetFollowRequests)).Methods("GET")
	router.HandleFunc("/users/requests/{id}/accept", jwt.RequireAuth(userController.AcceptFollowRequest)).Methods("PUT")
	router.HandleFunc("/users/requests/{id}/reject", jwt.RequireAuth(userController.RejectFollowRequest)).Methods("PUT")
	router.HandleFunc("/users/profile/{username}", userController.GetProfile).Methods("GET")
	router.HandleFunc("/users/{id}/follow", jwt.RequireAuth(userController.Follow)).Methods("PUT")
	router.HandleFunc("/users/{id}/unfollow", jwt.RequireAuth(userController.Unfollow)).Methods("PUT")
	router.HandleFunc("/users/{id}/followers", userController.GetFollowers).Methods("GET")
	router.HandleFunc("/users/{id}/following", userController.GetFollowing).Methods("GET")

	router.HandleFunc("/messages", jwt.RequireAuth(messageController.GetConversations)).Methods("GET")
	router.HandleFunc("/messages/{id}", jwt.RequireAuth(messageController.GetThread)).Methods("GET")
	router.HandleFunc("/messages/{id}", jwt.RequireAuth(messageController.SendMessage)).Methods("POST")

	router.HandleFunc("/notifications", jwt.RequireAuth(notificationController.GetNotifications)).Methods("GET")
	router.HandleFunc("/notifications/read", jwt.RequireAuth(notificationController.MarkAllRead)).Methods("PUT")

	router.HandleFunc("/events", jwt.RequireAuth(eventsController.Stream)).Methods("GET")

	allowedHeaders := handlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	allowedMethods := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"})
	allowedOrigins := handlers.AllowedOrigins([]string{"*"})

	srv := &http.Server{
		Addr:    cfg.HTTP.Addr,
		Handler: handlers.CORS(allowedHeaders, allowedMethods, allowedOrigins)(router),
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.HTTP.Addr))

		var serveErr error
		if cfg.HTTP.CertFile != "" && cfg.HTTP.KeyFile != "" {
			tlsConfig, tlsErr := tls.GetHTTPServerTLSConfig(cfg.HTTP.CACertFile)
			if tlsErr != nil {
				logger.Fatal("failed to build TLS config", zap.Error(tlsErr))
			}
			srv.TLSConfig = tlsConfig
			serveErr = srv.ListenAndServeTLS(cfg.HTTP.CertFile, cfg.HTTP.KeyFile)
		} else {
			serveErr = srv.ListenAndServe()
		}

		if serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(serveErr))
		}
	}()

	<-quit

	logger.Info("service shutting down")

	// gracefully stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("shutdown failed", zap.Error(err))
	}
	logger.Info("server stopped")
}
