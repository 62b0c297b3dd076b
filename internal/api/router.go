package api

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/api/handler"
	"github.com/qs3c/lingo_go_server/internal/api/middleware"
	"github.com/qs3c/lingo_go_server/internal/service"
)

type Router struct {
	authHandler         *handler.AuthHandler
	userHandler         *handler.UserHandler
	subscriptionHandler *handler.SubscriptionHandler
	billingHandler      *handler.BillingHandler
	learningHandler     *handler.LearningHandler
	sessionHandler      *handler.SessionHandler
	chatHandler         *handler.ChatHandler
	exportHandler       *handler.ExportHandler
	websocketHandler    *handler.WebSocketHandler
	subService          *service.SubscriptionService
	cfg                 *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	billingHandler *handler.BillingHandler,
	learningHandler *handler.LearningHandler,
	sessionHandler *handler.SessionHandler,
	chatHandler *handler.ChatHandler,
	exportHandler *handler.ExportHandler,
	websocketHandler *handler.WebSocketHandler,
	subService *service.SubscriptionService,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:         authHandler,
		userHandler:         userHandler,
		subscriptionHandler: subscriptionHandler,
		billingHandler:      billingHandler,
		learningHandler:     learningHandler,
		sessionHandler:      sessionHandler,
		chatHandler:         chatHandler,
		exportHandler:       exportHandler,
		websocketHandler:    websocketHandler,
		subService:          subService,
		cfg:                 cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/register", r.authHandler.Register)
			auth.POST("/login", r.authHandler.Login)
			auth.POST("/verify-email", r.authHandler.VerifyEmail)
			auth.GET("/github", r.authHandler.GithubAuth)
			auth.GET("/github/callback", r.authHandler.GithubCallback)
		}

		// 公开接口 - 套餐列表与 Stripe 回调。
		// 套餐列表可匿名访问，带 Token 时会标出当前套餐
		api.GET("/subscription/plans", middleware.OptionalAuth(r.cfg.JWT.Secret), r.subscriptionHandler.ListPlans)
		api.POST("/billing/webhook", r.billingHandler.Webhook)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 用户
			user := authenticated.Group("/user")
			{
				user.GET("/profile", r.userHandler.GetProfile)
				user.PUT("/profile", r.userHandler.UpdateProfile)
				user.POST("/avatar", r.userHandler.UploadAvatar)
			}

			// 订阅
			subscription := authenticated.Group("/subscription")
			{
				subscription.GET("/status", r.subscriptionHandler.GetStatus)
				subscription.GET("/limits", r.subscriptionHandler.GetLimits)
				subscription.POST("/track-usage", r.subscriptionHandler.TrackUsage)
				subscription.GET("/can-access/:feature", r.subscriptionHandler.CanAccess)
			}

			// 支付
			billing := authenticated.Group("/billing")
			{
				billing.POST("/checkout", r.billingHandler.Checkout)
				billing.POST("/portal", r.billingHandler.Portal)
			}

			// 学习计划与进度
			plans := authenticated.Group("/plans")
			{
				plans.POST("", r.learningHandler.CreatePlan)
				plans.GET("", r.learningHandler.ListPlans)
				plans.GET("/:id", r.learningHandler.GetPlan)
				plans.DELETE("/:id", r.learningHandler.DeletePlan)
				plans.PUT("/:id/progress", r.learningHandler.UpdateProgress)
				// 会话完成前先做配额预检，扣量本身在事务里完成
				plans.POST("/:id/sessions",
					middleware.FeatureCheck(r.subService, service.FeaturePracticeSession),
					r.learningHandler.CompleteSession)
			}

			// 会话历史
			sessions := authenticated.Group("/sessions")
			{
				sessions.GET("", r.sessionHandler.List)
				sessions.GET("/:id", r.sessionHandler.Get)
			}

			// 知识库问答与导出
			authenticated.POST("/chat", r.chatHandler.Ask)
			authenticated.POST("/export/sessions", r.exportHandler.ExportSessions)
		}
	}

	return engine
}
