package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/database"
	"github.com/qs3c/reflect_go_server/internal/integration"
	"github.com/qs3c/reflect_go_server/internal/llm"
	"github.com/qs3c/reflect_go_server/internal/pkg/email"
	"github.com/qs3c/reflect_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/service"
	"github.com/qs3c/reflect_go_server/internal/worker"
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

	// 初始化邮件服务（可选）
	var emailSvc *email.Service
	if cfg.Email.SMTPHost != "" {
		emailSvc = email.NewService(&cfg.Email)
	}

	// 初始化 Queue 和 Pub/Sub
	jobQueue := queue.NewQueue(rdb, cfg.Queue.OperationQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	opRepo := repository.NewOperationRepository(db)
	weekRepo := repository.NewWeekRepository(db)
	draftRepo := repository.NewDraftRepository(db)
	insightRepo := repository.NewInsightRepository(db)

	// 初始化活动数据源
	sourceRegistry, err := integration.BuildRegistry(cfg.Integrations, http.DefaultClient)
	if err != nil {
		log.Fatalf("Failed to build source registry: %v", err)
	}

	// 初始化 LLM 客户端
	gateway, err := llm.NewClient(cfg.Models, nil)
	if err != nil {
		log.Fatalf("Failed to init LLM client: %v", err)
	}

	// 注册任务处理器
	consolidationSvc := service.NewConsolidationService(sourceRegistry, weekRepo)
	registry := worker.NewRegistry()
	if err := registry.Register(worker.NewReflectionHandler(
		consolidationSvc, draftRepo, insightRepo, userRepo, gateway, cfg.Scheduler.LLMMaxRetries,
	)); err != nil {
		log.Fatalf("Failed to register handler: %v", err)
	}
	if err := registry.Register(worker.NewCareerPlanHandler(
		draftRepo, insightRepo, gateway, cfg.Scheduler.LLMMaxRetries,
	)); err != nil {
		log.Fatalf("Failed to register handler: %v", err)
	}

	processor := worker.NewProcessor(opRepo, userRepo, prefRepo, registry, publisher, emailSvc, cfg)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// 定期回收超时未完成的任务
	go func() {
		ticker := time.NewTicker(cfg.Scheduler.JobTimeout())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				processor.FailStaleOperations()
			}
		}
	}()

	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	log.Printf("Worker started, max workers: %d", maxWorkers)

	// 启动 worker 循环
	for i := 0; i < maxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					msg, err := jobQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop operation: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing operation %d", workerID, msg.OperationID)
					if err := processor.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: operation %d failed: %v", workerID, msg.OperationID, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
