package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gigboard/gig-backend/internal/config"
	"github.com/gigboard/gig-backend/internal/http/handlers"
	"github.com/gigboard/gig-backend/internal/http/middleware"
	"github.com/gigboard/gig-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	gigHandler *handlers.GigHandler,
	applicationHandler *handlers.ApplicationHandler,
	paymentHandler *handlers.PaymentHandler,
	withdrawalHandler *handlers.WithdrawalHandler,
	disputeHandler *handlers.DisputeHandler,
	notificationHandler *handlers.NotificationHandler,
	mediaHandler *handlers.MediaHandler,
	webhookHandler *handlers.WebhookHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", authHandler.DeleteSession)
		protectedAuth.DELETE("/sessions", authHandler.DeleteAllSessionsExcept)
		protectedAuth.GET("/payout-details", authHandler.GetPayoutDetails)
		protectedAuth.PUT("/payout-details", authHandler.UpdatePayoutDetails)
	}

	// Публичные маршруты
	api.GET("/gigs", gigHandler.List)
	api.GET("/gigs/:id", middleware.UUIDValidator("id"), gigHandler.Get)
	api.GET("/ws", wsHandler.Handle)

	// Вебхук платёжного шлюза аутентифицируется подписью, а не JWT.
	api.POST("/webhooks/payments", webhookHandler.HandlePayment)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/gigs", gigHandler.Create)
		protected.GET("/gigs/my", gigHandler.ListMine)
		protected.POST("/gigs/:id/cancel", middleware.UUIDValidator("id"), gigHandler.Cancel)
		protected.POST("/gigs/:id/confirm", middleware.UUIDValidator("id"), gigHandler.Confirm)

		protected.POST("/gigs/:id/applications", middleware.UUIDValidator("id"), applicationHandler.Submit)
		protected.GET("/gigs/:id/applications", middleware.UUIDValidator("id"), applicationHandler.ListByGig)
		protected.GET("/applications/my", applicationHandler.ListMine)
		protected.GET("/applications/:id", middleware.UUIDValidator("id"), applicationHandler.Get)
		protected.POST("/applications/:id/accept", middleware.UUIDValidator("id"), applicationHandler.Accept)
		protected.POST("/applications/:id/reject", middleware.UUIDValidator("id"), applicationHandler.Reject)

		protected.GET("/payments/balance", paymentHandler.GetBalance)
		protected.POST("/payments/deposit", paymentHandler.Deposit)
		protected.POST("/gigs/:id/escrow", middleware.UUIDValidator("id"), paymentHandler.FundEscrow)
		protected.GET("/gigs/:id/escrow", middleware.UUIDValidator("id"), paymentHandler.GetEscrow)
		protected.GET("/payments/transactions", paymentHandler.ListTransactions)
		protected.GET("/payments/transactions/:id", middleware.UUIDValidator("id"), paymentHandler.GetTransaction)

		protected.POST("/withdrawals", withdrawalHandler.Create)
		protected.GET("/withdrawals", withdrawalHandler.List)
		protected.GET("/withdrawals/:id", middleware.UUIDValidator("id"), withdrawalHandler.Get)

		protected.POST("/gigs/:id/dispute", middleware.UUIDValidator("id"), disputeHandler.Open)
		protected.GET("/disputes/my", disputeHandler.ListMine)
		protected.GET("/disputes/:id", middleware.UUIDValidator("id"), disputeHandler.Get)
		protected.POST("/disputes/:id/resolve",
			middleware.UUIDValidator("id"),
			middleware.RequireRole(middleware.RoleOperator),
			disputeHandler.Resolve)

		protected.GET("/notifications", notificationHandler.List)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkAsRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)

		protected.POST("/media/files", mediaHandler.Upload)
		protected.DELETE("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Delete)
	}

	return r
}
