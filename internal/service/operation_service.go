package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/model/dto"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/pkg/timeutil"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

var (
	ErrOperationNotFound = errors.New("任务不存在")
	ErrNotOwner          = errors.New("无权访问该任务")
)

// 触发来源
const (
	TriggerManual    = "manual"
	TriggerScheduled = "scheduled"
)

type OperationService struct {
	opRepo    *repository.OperationRepository
	draftRepo *repository.DraftRepository
	prefRepo  *repository.PreferenceRepository
	queue     *queue.Queue
	quotaSvc  *QuotaService
}

func NewOperationService(
	opRepo *repository.OperationRepository,
	draftRepo *repository.DraftRepository,
	prefRepo *repository.PreferenceRepository,
	q *queue.Queue,
	quotaSvc *QuotaService,
) *OperationService {
	return &OperationService{
		opRepo:    opRepo,
		draftRepo: draftRepo,
		prefRepo:  prefRepo,
		queue:     q,
		quotaSvc:  quotaSvc,
	}
}

// EnqueueManual 手动触发生成，受每日配额限制
func (s *OperationService) EnqueueManual(ctx context.Context, userID int64, req *dto.EnqueueOperationRequest) (*dto.EnqueueOperationResponse, error) {
	ok, err := s.quotaSvc.CheckQuota(userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrQuotaExceeded
	}

	resp, err := s.Enqueue(ctx, userID, req.JobType, req.Year, req.WeekNumber, TriggerManual)
	if err != nil {
		return nil, err
	}

	// 去重命中不扣配额
	if !resp.Deduplicated {
		if err := s.quotaSvc.UseQuota(userID); err != nil {
			log.Printf("Failed to use quota for user %d: %v", userID, err)
		}
	}
	return resp, nil
}

// Enqueue 创建生成任务并入队。
// 同一用户同一周已有未失败任务或已有草稿时直接返回已有结果，不重复入队。
func (s *OperationService) Enqueue(ctx context.Context, userID int64, jobType string, year, week int, trigger string) (*dto.EnqueueOperationResponse, error) {
	if year == 0 || week == 0 {
		year, week = s.defaultTargetWeek(userID)
	}

	// 已有未失败的同周任务
	if existing, err := s.opRepo.FindActiveForWeek(userID, jobType, year, week); err == nil {
		return &dto.EnqueueOperationResponse{
			OperationID:  existing.ID,
			Status:       existing.Status,
			Deduplicated: true,
		}, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 已有草稿（失败任务被清理后的兜底）
	if jobType == model.JobTypeWeeklyReflection {
		exists, err := s.draftRepo.ExistsForWeek(userID, year, week)
		if err != nil {
			return nil, err
		}
		if exists {
			return &dto.EnqueueOperationResponse{
				Status:       model.OperationStatusCompleted,
				Deduplicated: true,
			}, nil
		}
	}

	inputData := model.JSONMap{
		"week_number": week,
		"year":        year,
		"trigger":     trigger,
	}
	// 入队时固化数据源选择，之后改偏好不影响已排队的任务
	if jobType == model.JobTypeWeeklyReflection {
		pref, err := s.prefRepo.GetOrCreate(userID)
		if err != nil {
			return nil, err
		}
		inputData["include_integrations"] = []string(pref.IncludeSources)
	}

	op := &model.Operation{
		UserID:     userID,
		JobType:    jobType,
		Status:     model.OperationStatusQueued,
		WeekNumber: week,
		Year:       year,
		TraceID:    uuid.NewString(),
		InputData:  inputData,
	}
	if err := s.opRepo.Create(op); err != nil {
		return nil, err
	}

	if err := s.queue.Push(ctx, &queue.OperationMessage{
		OperationID: op.ID,
		UserID:      userID,
		JobType:     jobType,
		TraceID:     op.TraceID,
	}); err != nil {
		// 入队失败直接标记为失败，避免任务卡在 queued
		if _, claimErr := s.opRepo.ClaimQueued(op.ID, time.Now().UTC()); claimErr == nil {
			_, _ = s.opRepo.Fail(op.ID, model.ErrorKindPersistence, "任务入队失败", time.Now().UTC())
		}
		return nil, err
	}

	log.Printf("[%s] Operation %d enqueued: user=%d type=%s week=%d-W%d trigger=%s",
		op.TraceID, op.ID, userID, jobType, year, week, trigger)

	return &dto.EnqueueOperationResponse{
		OperationID: op.ID,
		Status:      op.Status,
	}, nil
}

// GetStatus 查询任务状态，只允许本人查询
func (s *OperationService) GetStatus(userID, operationID int64) (*dto.OperationStatus, error) {
	op, err := s.opRepo.GetByID(operationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOperationNotFound
		}
		return nil, err
	}
	if op.UserID != userID {
		return nil, ErrNotOwner
	}

	return &dto.OperationStatus{
		OperationID:  op.ID,
		JobType:      op.JobType,
		Status:       op.Status,
		Progress:     op.Progress,
		WeekNumber:   op.WeekNumber,
		Year:         op.Year,
		ResultData:   op.ResultData,
		ErrorKind:    op.ErrorKind,
		ErrorMessage: op.ErrorMessage,
		CreatedAt:    op.CreatedAt,
		StartedAt:    op.StartedAt,
		CompletedAt:  op.CompletedAt,
	}, nil
}

// ListByUser 查询用户的任务列表
func (s *OperationService) ListByUser(userID int64, limit, offset int) ([]*dto.OperationStatus, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	ops, err := s.opRepo.ListByUser(userID, limit, offset)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.OperationStatus, 0, len(ops))
	for _, op := range ops {
		result = append(result, &dto.OperationStatus{
			OperationID: op.ID,
			JobType:     op.JobType,
			Status:      op.Status,
			Progress:    op.Progress,
			WeekNumber:  op.WeekNumber,
			Year:        op.Year,
			ErrorKind:   op.ErrorKind,
			CreatedAt:   op.CreatedAt,
			CompletedAt: op.CompletedAt,
		})
	}
	return result, nil
}

// defaultTargetWeek 未指定周时按用户时区取当前周
func (s *OperationService) defaultTargetWeek(userID int64) (int, int) {
	now := time.Now().UTC()
	if pref, err := s.prefRepo.GetOrCreate(userID); err == nil {
		if loc, locErr := time.LoadLocation(pref.Timezone); locErr == nil {
			now = now.In(loc)
		}
	}
	return timeutil.ISOWeek(now)
}
