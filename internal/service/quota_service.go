package service

import (
	"errors"
	"time"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

var ErrQuotaExceeded = errors.New("今日手动生成次数已用完")

type QuotaService struct {
	userRepo *repository.UserRepository
	cfg      *config.Config
}

func NewQuotaService(userRepo *repository.UserRepository, cfg *config.Config) *QuotaService {
	return &QuotaService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

func (s *QuotaService) dailyLimit() int {
	limit := s.cfg.Scheduler.ManualDailyQuota
	if limit <= 0 {
		limit = 3
	}
	return limit
}

// CheckQuota 检查手动触发配额
func (s *QuotaService) CheckQuota(userID int64) (bool, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return false, err
	}

	// 过了重置时间先自动重置
	if user.QuotaResetAt != nil && time.Now().After(*user.QuotaResetAt) {
		nextReset := time.Now().UTC().Add(24 * time.Hour).Truncate(24 * time.Hour)
		if err := s.userRepo.UpdateFields(userID, map[string]interface{}{
			"manual_quota_today": 0,
			"quota_reset_at":     nextReset,
		}); err != nil {
			return false, err
		}
		return true, nil
	}

	return user.ManualQuotaToday < s.dailyLimit(), nil
}

// UseQuota 消耗一次手动触发
func (s *QuotaService) UseQuota(userID int64) error {
	return s.userRepo.IncrementManualQuota(userID)
}

// RefundQuota 入队失败时退还
func (s *QuotaService) RefundQuota(userID int64) error {
	return s.userRepo.DecrementManualQuota(userID)
}

// ResetAllQuotas 重置所有用户配额
func (s *QuotaService) ResetAllQuotas() error {
	nextReset := time.Now().UTC().Add(24 * time.Hour).Truncate(24 * time.Hour)
	return s.userRepo.ResetAllQuotas(nextReset)
}
