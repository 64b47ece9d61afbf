package main

import (
	"context"
	"fmt"
	"log"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/api"
	"github.com/qs3c/reflect_go_server/internal/api/handler"
	"github.com/qs3c/reflect_go_server/internal/database"
	"github.com/qs3c/reflect_go_server/internal/pkg/email"
	"github.com/qs3c/reflect_go_server/internal/pkg/oauth"
	"github.com/qs3c/reflect_go_server/internal/pkg/oss"
	"github.com/qs3c/reflect_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/pkg/ws"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/service"
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

	// 初始化 OSS（可选，未配置时草稿导出不可用）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化邮件服务（可选）
	var emailSvc *email.Service
	if cfg.Email.SMTPHost != "" {
		emailSvc = email.NewService(&cfg.Email)
	}

	// 初始化 Queue
	jobQueue := queue.NewQueue(rdb, cfg.Queue.OperationQueue)

	// 初始化 WebSocket Hub，订阅任务进度并转发给在线用户
	wsHub := ws.NewHub()
	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			_ = wsHub.SendToUser(msg.UserID, &ws.Message{
				Type: "operation_progress",
				Data: msg,
			})
		})
		if err != nil {
			log.Printf("Progress subscriber stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	opRepo := repository.NewOperationRepository(db)
	draftRepo := repository.NewDraftRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(userRepo, cfg, emailSvc)
	userService := service.NewUserService(userRepo, cfg)
	quotaService := service.NewQuotaService(userRepo, cfg)
	preferenceService := service.NewPreferenceService(prefRepo)
	operationService := service.NewOperationService(opRepo, draftRepo, prefRepo, jobQueue, quotaService)
	draftService := service.NewDraftService(draftRepo, ossClient)

	// 初始化 Handler
	stateStore := oauth.NewStateStore(rdb)
	authHandler := handler.NewAuthHandler(authService, stateStore)
	userHandler := handler.NewUserHandler(userService)
	preferenceHandler := handler.NewPreferenceHandler(preferenceService)
	operationHandler := handler.NewOperationHandler(operationService)
	draftHandler := handler.NewDraftHandler(draftService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		userHandler,
		preferenceHandler,
		operationHandler,
		draftHandler,
		websocketHandler,
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
