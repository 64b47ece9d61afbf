package cron

import (
	"context"
	"log"
	"time"
)

// SchedulerRunner 调度检查入口，由 service.SchedulerService 实现
type SchedulerRunner interface {
	CheckAllUsers(ctx context.Context) error
}

// QuotaResetter 配额重置入口，由 service.QuotaService 实现
type QuotaResetter interface {
	ResetAllQuotas() error
}

type Service struct {
	scheduler    SchedulerRunner
	quotaService QuotaResetter
	tickInterval time.Duration
	stopChan     chan struct{}
}

func NewService(scheduler SchedulerRunner, quotaService QuotaResetter, tickInterval time.Duration) *Service {
	if tickInterval <= 0 {
		tickInterval = time.Hour
	}
	return &Service{
		scheduler:    scheduler,
		quotaService: quotaService,
		tickInterval: tickInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	go s.runSchedulerTick()
	go s.runDailyQuotaReset()
	log.Println("Cron service started (scheduler tick + quota reset)")
}

// Stop 停止定时任务
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

// runSchedulerTick 每个周期扫描一次全部用户的生成偏好
func (s *Service) runSchedulerTick() {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	// 启动时先跑一轮，避免进程重启错过整点
	s.tick()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Service) tick() {
	if s.scheduler == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.tickInterval)
	defer cancel()

	if err := s.scheduler.CheckAllUsers(ctx); err != nil {
		log.Printf("Scheduler tick failed: %v", err)
	}
}

// runDailyQuotaReset 每日配额重置任务
func (s *Service) runDailyQuotaReset() {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.resetDailyQuotas()
			timer.Reset(24 * time.Hour)
		}
	}
}

// resetDailyQuotas 重置所有用户的手动生成配额
func (s *Service) resetDailyQuotas() {
	if s.quotaService == nil {
		return
	}
	log.Println("Starting daily quota reset...")
	if err := s.quotaService.ResetAllQuotas(); err != nil {
		log.Printf("Failed to reset daily quotas: %v", err)
		return
	}
	log.Println("Daily quota reset completed")
}

// RunNow 立即执行一轮调度检查（用于手动触发）
func (s *Service) RunNow(ctx context.Context) error {
	log.Println("Manual scheduler tick triggered...")
	return s.scheduler.CheckAllUsers(ctx)
}
