package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/database"
	"github.com/qs3c/reflect_go_server/internal/pkg/cron"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/repository"
	"github.com/qs3c/reflect_go_server/internal/service"
)

var runOnce = flag.Bool("once", false, "Run a single scheduler tick and exit")

func main() {
	flag.Parse()

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
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

	// 初始化 Repository 和 Service
	userRepo := repository.NewUserRepository(db)
	prefRepo := repository.NewPreferenceRepository(db)
	opRepo := repository.NewOperationRepository(db)
	draftRepo := repository.NewDraftRepository(db)

	jobQueue := queue.NewQueue(rdb, cfg.Queue.OperationQueue)
	quotaService := service.NewQuotaService(userRepo, cfg)
	operationService := service.NewOperationService(opRepo, draftRepo, prefRepo, jobQueue, quotaService)
	schedulerService := service.NewSchedulerService(prefRepo, operationService)

	cronService := cron.NewService(schedulerService, quotaService, cfg.Scheduler.TickInterval())

	if *runOnce {
		if err := cronService.RunNow(context.Background()); err != nil {
			log.Fatalf("Scheduler tick failed: %v", err)
		}
		log.Println("Scheduler tick complete")
		return
	}

	cronService.Start()
	log.Printf("Scheduler started, tick interval: %s", cfg.Scheduler.TickInterval())

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("Received shutdown signal")
	cronService.Stop()
	log.Println("Scheduler shutdown complete")
}
