package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/qs3c/reflect_go_server/config"
	"github.com/qs3c/reflect_go_server/internal/model"
	"github.com/qs3c/reflect_go_server/internal/pkg/email"
	"github.com/qs3c/reflect_go_server/internal/pkg/pubsub"
	"github.com/qs3c/reflect_go_server/internal/pkg/queue"
	"github.com/qs3c/reflect_go_server/internal/repository"
)

// Processor 任务处理器。从队列消息定位任务，抢占后分发给对应的 Handler，
// 终态只写一次：完成或失败之后任何更新都不再生效。
type Processor struct {
	opRepo    *repository.OperationRepository
	userRepo  *repository.UserRepository
	prefRepo  *repository.PreferenceRepository
	registry  *Registry
	publisher *pubsub.Publisher
	emailSvc  *email.Service // 可选
	cfg       *config.Config
}

func NewProcessor(
	opRepo *repository.OperationRepository,
	userRepo *repository.UserRepository,
	prefRepo *repository.PreferenceRepository,
	registry *Registry,
	publisher *pubsub.Publisher,
	emailSvc *email.Service,
	cfg *config.Config,
) *Processor {
	return &Processor{
		opRepo:    opRepo,
		userRepo:  userRepo,
		prefRepo:  prefRepo,
		registry:  registry,
		publisher: publisher,
		emailSvc:  emailSvc,
		cfg:       cfg,
	}
}

// Process 处理一条队列消息
func (p *Processor) Process(ctx context.Context, msg *queue.OperationMessage) error {
	op, err := p.opRepo.GetByID(msg.OperationID)
	if err != nil {
		return fmt.Errorf("failed to get operation %d: %w", msg.OperationID, err)
	}

	if op.IsTerminal() {
		log.Printf("[%s] Operation %d already terminal (%s), skipping", op.TraceID, op.ID, op.Status)
		return nil
	}

	// 原子抢占，没抢到说明另一个 worker 在处理
	claimed, err := p.opRepo.ClaimQueued(op.ID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to claim operation %d: %w", op.ID, err)
	}
	if !claimed {
		log.Printf("[%s] Operation %d claimed by another worker, skipping", op.TraceID, op.ID)
		return nil
	}

	publishProgress := func(step, status, errMsg string) {
		if p.publisher == nil {
			return
		}
		if pubErr := p.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:      op.UserID,
			OperationID: op.ID,
			TraceID:     op.TraceID,
			Status:      status,
			Step:        step,
			Error:       errMsg,
		}); pubErr != nil {
			log.Printf("[%s] Failed to publish progress: %v", op.TraceID, pubErr)
		}
	}

	fail := func(processErr error) error {
		kind := Classify(processErr)
		if _, failErr := p.opRepo.Fail(op.ID, kind, processErr.Error(), time.Now().UTC()); failErr != nil {
			log.Printf("[%s] Failed to mark operation %d failed: %v", op.TraceID, op.ID, failErr)
		}
		publishProgress("", "failed", processErr.Error())
		log.Printf("[%s] Operation %d failed (%s): %v", op.TraceID, op.ID, kind, processErr)
		return processErr
	}

	handler, ok := p.registry.Get(op.JobType)
	if !ok {
		return fail(fmt.Errorf("%w: %s", ErrUnknownJobType, op.JobType))
	}

	if err := handler.Validate(op); err != nil {
		return fail(err)
	}

	processCtx, cancel := context.WithTimeout(ctx, p.cfg.Scheduler.JobTimeout())
	defer cancel()

	report := func(step string) {
		if progress, known := pubsub.StepProgress[step]; known {
			if updErr := p.opRepo.UpdateProgress(op.ID, progress); updErr != nil {
				log.Printf("[%s] Failed to update progress: %v", op.TraceID, updErr)
			}
		}
		publishProgress(step, model.OperationStatusProcessing, "")
	}

	result, err := handler.Process(processCtx, op, report)
	if err != nil {
		if processCtx.Err() != nil && errors.Is(processCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return fail(err)
	}

	done, err := p.opRepo.Complete(op.ID, result, time.Now().UTC())
	if err != nil {
		return fail(fmt.Errorf("failed to complete operation: %w", err))
	}
	if !done {
		// 抢占成功后只有本 worker 能写终态，走到这里说明被超时清理抢先了
		log.Printf("[%s] Operation %d already finalized elsewhere", op.TraceID, op.ID)
		return nil
	}

	publishProgress(pubsub.StepDone, model.OperationStatusCompleted, "")
	log.Printf("[%s] Operation %d completed", op.TraceID, op.ID)

	p.notifyCompletion(op)
	return nil
}

// notifyCompletion 按偏好发送生成完成邮件
func (p *Processor) notifyCompletion(op *model.Operation) {
	if p.emailSvc == nil || op.JobType != model.JobTypeWeeklyReflection {
		return
	}

	pref, err := p.prefRepo.GetOrCreate(op.UserID)
	if err != nil || !pref.NotifyOnGeneration {
		return
	}

	user, err := p.userRepo.GetByID(op.UserID)
	if err != nil || user.Email == nil {
		return
	}

	if err := p.emailSvc.SendDraftReady(*user.Email, op.Year, op.WeekNumber); err != nil {
		log.Printf("[%s] Failed to send completion email to user %d: %v", op.TraceID, op.UserID, err)
	}
}

// FailStaleOperations 清理超时的 processing 任务，worker 崩溃后的兜底
func (p *Processor) FailStaleOperations() {
	cutoff := time.Now().UTC().Add(-p.cfg.Scheduler.JobTimeout())
	count, err := p.opRepo.FailStale(cutoff, time.Now().UTC())
	if err != nil {
		log.Printf("Failed to clean stale operations: %v", err)
		return
	}
	if count > 0 {
		log.Printf("Marked %d stale operations as timed out", count)
	}
}
