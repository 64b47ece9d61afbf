package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/timeutil"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

type SchedulerService struct {
	prefRepo *repository.PreferenceRepository
	opSvc    *OperationService
}

func NewSchedulerService(prefRepo *repository.PreferenceRepository, opSvc *OperationService) *SchedulerService {
	return &SchedulerService{
		prefRepo: prefRepo,
		opSvc:    opSvc,
	}
}

// ShouldEnqueue 判断当前时刻是否命中用户的生成时间。
// 把 UTC 时刻换算到用户时区后比较星期和小时；时区无效时按 UTC 处理。
// 命中时返回目标周（用户时区下的当前周）。
func ShouldEnqueue(utcNow time.Time, pref *model.UserPreference) (hit bool, year, week int) {
	if !pref.AutoGenerate {
		return false, 0, 0
	}

	loc, err := time.LoadLocation(pref.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := utcNow.In(loc)

	if int(local.Weekday()) != pref.PreferredDay || local.Hour() != pref.PreferredHour {
		return false, 0, 0
	}

	year, week = timeutil.ISOWeek(local)
	return true, year, week
}

// CheckAllUsers 扫描全部开启自动生成的用户，命中偏好时间的入队。
// 单个用户失败只记录日志，不影响其他用户。
// 同一小时内重复扫描依赖入队去重，不会产生第二个任务。
func (s *SchedulerService) CheckAllUsers(ctx context.Context) error {
	prefs, err := s.prefRepo.ListAutoGenerate()
	if err != nil {
		return fmt.Errorf("failed to list preferences: %w", err)
	}

	now := time.Now().UTC()
	enqueued := 0
	for _, pref := range prefs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		hit, year, week := ShouldEnqueue(now, pref)
		if !hit {
			continue
		}

		resp, err := s.opSvc.Enqueue(ctx, pref.UserID, model.JobTypeWeeklyReflection, year, week, TriggerScheduled)
		if err != nil {
			log.Printf("Scheduler: failed to enqueue for user %d: %v", pref.UserID, err)
			continue
		}
		if !resp.Deduplicated {
			enqueued++
		}
	}

	if enqueued > 0 {
		log.Printf("Scheduler: checked %d users, enqueued %d operations", len(prefs), enqueued)
	}
	return nil
}
