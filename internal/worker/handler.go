package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/qs3c/reflect_go_server/internal/model"
)

// 处理失败的哨兵错误，Classify 据此归类持久化的失败原因
var (
	ErrInvalidInput     = errors.New("任务参数无效")
	ErrDuplicateDraft   = errors.New("该周草稿已存在")
	ErrGenerationFailed = errors.New("生成服务调用失败")
	ErrUnknownJobType   = errors.New("未知的任务类型")
)

// ProgressReporter 处理过程中上报阶段进度
type ProgressReporter func(step string)

// Handler 单一任务类型的处理器。
// Validate 做入参检查，Process 返回写入 result_data 的内容。
type Handler interface {
	JobType() string
	Validate(op *model.Operation) error
	Process(ctx context.Context, op *model.Operation, report ProgressReporter) (model.JSONMap, error)
}

// Registry 按任务类型分发的处理器注册表
type Registry struct {
	handlers map[string]Handler
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) Register(handler Handler) error {
	jobType := handler.JobType()
	if _, exists := r.handlers[jobType]; exists {
		return fmt.Errorf("处理器 %s 已注册", jobType)
	}
	r.handlers[jobType] = handler
	return nil
}

func (r *Registry) Get(jobType string) (Handler, bool) {
	h, ok := r.handlers[jobType]
	return h, ok
}

// Classify 把处理错误映射为持久化的失败分类
func Classify(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownJobType):
		return model.ErrorKindValidation
	case errors.Is(err, ErrDuplicateDraft):
		return model.ErrorKindDuplicate
	case errors.Is(err, ErrGenerationFailed):
		return model.ErrorKindLLM
	case errors.Is(err, context.DeadlineExceeded):
		return model.ErrorKindTimeout
	default:
		return model.ErrorKindPersistence
	}
}
