package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"marketplace-chat/internal/auth"
	"marketplace-chat/internal/authz"
	"marketplace-chat/internal/broadcast"
	"marketplace-chat/internal/config"
	"marketplace-chat/internal/db"
	"marketplace-chat/internal/handlers"
	"marketplace-chat/internal/logging"
	"marketplace-chat/internal/middleware"
	"marketplace-chat/internal/notifications"
	"marketplace-chat/internal/observability"
	"marketplace-chat/internal/rabbitmq"
	"marketplace-chat/internal/repositories"
	"marketplace-chat/internal/services"
	"marketplace-chat/internal/telemetry"
	"marketplace-chat/internal/ws"
)

const serviceName = "marketplace-chat"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load config")
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Caller: cfg.Logging.Caller})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		logging.Warn().Err(err).Msg("tracing disabled")
		shutdownTracing = func(context.Context) error { return nil }
	}

	database, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to connect to db")
	}
	defer database.Close()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.AuditExchange)
	defer auditPublisher.Close()
	observability.SetPublisher(auditPublisher)
	logging.Info().
		Str("mode", rabbitmq.PublisherMode(auditPublisher)).
		Str("reason", rabbitmq.PublisherNoopReason(auditPublisher)).
		Msg("audit publisher ready")
	auditEmitter := telemetry.NewAuditEmitter(auditPublisher, cfg.AMQP.AuditRoutingKey, serviceName, cfg.Environment)

	hub := ws.NewHub(cfg.Realtime.WriteTimeout)
	broadcaster, closeBroadcaster, err := broadcast.New(cfg.Realtime, cfg.AMQP, hub)
	if err != nil {
		logging.Fatal().Err(err).Str("driver", cfg.Realtime.Driver).Msg("failed to start realtime broadcaster")
	}
	defer closeBroadcaster()

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	dispatcher := notifications.NewDispatcher(notifications.NewCatalog(), notificationRepo, broadcaster)
	conversationStore := services.NewConversationStore(conversationRepo, broadcaster)
	messageLog := services.NewMessageLog(conversationRepo, messageRepo, broadcaster, dispatcher)

	authorizer, err := authz.NewAuthorizer()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to build channel authorizer")
	}
	tokens := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer)

	conversationHandler := handlers.NewConversationHandler(conversationStore, auditEmitter)
	messageHandler := handlers.NewMessageHandler(messageLog, auditEmitter)
	notificationHandler := handlers.NewNotificationHandler(dispatcher, auditEmitter)
	wsHandler := ws.NewHandler(hub, tokens, authorizer, conversationRepo)

	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}
	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(middleware.RequestID(), middleware.RequestLogger())
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", observability.HealthHandler)
	router.GET("/metrics", observability.MetricsHandler())
	handlers.RegisterDebugRoutes(router, auditEmitter, cfg.Debug.Routes)

	var sendLimiter *middleware.RateLimiter
	if cfg.Server.MessageRateLimit > 0 {
		sendLimiter = middleware.NewRateLimiter(cfg.Server.MessageRateLimit, cfg.Server.MessageRateWindow)
	}

	api := router.Group("/", middleware.AuthMiddleware(tokens), middleware.RequireActive())

	api.POST("/conversations", conversationHandler.StartConversation)
	api.GET("/conversations", conversationHandler.ListConversations)
	api.GET("/conversations/:conversation_id", conversationHandler.GetConversation)
	api.DELETE("/conversations/:conversation_id", conversationHandler.DeleteConversation)
	api.POST("/conversations/:conversation_id/read", conversationHandler.MarkRead)

	api.GET("/conversations/:conversation_id/messages", messageHandler.ListMessages)
	api.POST("/conversations/:conversation_id/messages", sendLimiter.Middleware(), messageHandler.PostMessage)
	api.PATCH("/conversations/:conversation_id/messages/:message_id", messageHandler.EditMessage)
	api.DELETE("/conversations/:conversation_id/messages/:message_id", messageHandler.DeleteMessage)

	api.GET("/notifications", notificationHandler.ListNotifications)
	api.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
	api.POST("/notifications/:notification_id/read", notificationHandler.MarkRead)
	api.POST("/notifications", middleware.RequireAdmin(), notificationHandler.SendNotification)

	router.GET("/ws/conversations/:conversation_id", wsHandler.Conversation)
	router.GET("/ws/notifications", wsHandler.Notifications)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info().Str("addr", srv.Addr).Str("realtime_driver", cfg.Realtime.Driver).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	logging.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("http shutdown")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("tracing shutdown")
	}
}
