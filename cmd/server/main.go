package main

import (
	"context"
	"fmt"
	"log"

	"github.com/qs3c/lingo_go_server/config"
	"github.com/qs3c/lingo_go_server/internal/api"
	"github.com/qs3c/lingo_go_server/internal/api/handler"
	"github.com/qs3c/lingo_go_server/internal/database"
	"github.com/qs3c/lingo_go_server/internal/pkg/ai"
	"github.com/qs3c/lingo_go_server/internal/pkg/billing"
	"github.com/qs3c/lingo_go_server/internal/pkg/cron"
	"github.com/qs3c/lingo_go_server/internal/pkg/email"
	"github.com/qs3c/lingo_go_server/internal/pkg/kb"
	"github.com/qs3c/lingo_go_server/internal/pkg/oauth"
	"github.com/qs3c/lingo_go_server/internal/pkg/oss"
	"github.com/qs3c/lingo_go_server/internal/pkg/pubsub"
	"github.com/qs3c/lingo_go_server/internal/pkg/queue"
	"github.com/qs3c/lingo_go_server/internal/pkg/ws"
	"github.com/qs3c/lingo_go_server/internal/repository"
	"github.com/qs3c/lingo_go_server/internal/service"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化 OSS（可选）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化 Stripe（可选，未配置时相关接口返回错误）
	stripeClient := billing.NewClient(&cfg.Stripe)
	if stripeClient.Enabled() {
		log.Println("Stripe client initialized")
	}

	// 初始化知识库与 AI 客户端
	knowledgeBase := kb.New(&cfg.Knowledge)
	log.Printf("Knowledge base loaded: %d docs", knowledgeBase.Size())
	var aiClient *ai.Client
	if cfg.AI.APIURL != "" {
		aiClient = ai.NewClient(&cfg.AI)
	}

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.SummaryQueue)

	// 初始化 WebSocket Hub，并把摘要进度从 pub/sub 桥接到在线连接
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			wsHub.SendToUser(msg.UserID, &ws.Message{
				Type: msg.Type,
				Data: msg,
			})
		})
		if err != nil && err != context.Canceled {
			log.Printf("Pubsub subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	planRepo := repository.NewPlanRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	jobRepo := repository.NewJobRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)

	// 初始化 Service
	emailSvc := email.NewService(&cfg.Email)
	authService := service.NewAuthService(userRepo, cfg, emailSvc)
	subscriptionService := service.NewSubscriptionService(userRepo, planRepo, stripeClient, cfg)
	userService := service.NewUserService(userRepo, subscriptionService, ossClient, cfg)
	billingService := service.NewBillingService(userRepo, paymentRepo, stripeClient, cfg)
	planService := service.NewPlanService(planRepo, userRepo)
	progressService := service.NewProgressService(db, planRepo, sessionRepo, jobRepo, subscriptionService, jobQueue)
	chatService := service.NewChatService(knowledgeBase, aiClient)
	exportService := service.NewExportService(sessionRepo, ossClient)

	// 初始化 Handler
	stateStore := oauth.NewStateStore(rdb)
	authHandler := handler.NewAuthHandler(authService, stateStore, cfg.Stripe.FrontendURL)
	userHandler := handler.NewUserHandler(userService)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionService)
	billingHandler := handler.NewBillingHandler(billingService)
	learningHandler := handler.NewLearningHandler(planService, progressService)
	sessionHandler := handler.NewSessionHandler(sessionRepo)
	chatHandler := handler.NewChatHandler(chatService)
	exportHandler := handler.NewExportHandler(exportService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 启动定时任务（月度用量重置 + 到期提醒）
	cronService := cron.NewService(subscriptionService, userRepo, emailSvc)
	cronService.Start()
	defer cronService.Stop()

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		subscriptionHandler,
		billingHandler,
		learningHandler,
		sessionHandler,
		chatHandler,
		exportHandler,
		websocketHandler,
		subscriptionService,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
